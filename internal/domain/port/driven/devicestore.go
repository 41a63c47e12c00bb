package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/keypass/internal/domain/model"
)

// ErrInvalidID is returned by DeviceStore.ParseID when the input cannot be a
// document id for the underlying store.
var ErrInvalidID = errors.New("invalid document id")

// DeviceStore defines the driven port for the devices table. There is no
// uniqueness constraint; listing is ordered by RegisteredAt descending.
type DeviceStore interface {
	// ParseID validates raw user input as this store's native id format and
	// returns its canonical form. Never touches the store.
	ParseID(raw string) (string, error)

	Insert(ctx context.Context, device model.Device) (string, error)

	// FindOne returns the device with the given id, or (nil, nil) if absent.
	FindOne(ctx context.Context, id string) (*model.Device, error)

	// Find returns all devices, newest registration first. An empty store
	// yields an empty slice and no error.
	Find(ctx context.Context) ([]model.Device, error)

	DeleteOne(ctx context.Context, id string) (int64, error)
}
