package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DeviceStore = (*DeviceRepo)(nil)

const maxDocIDBytes = 1500

type deviceDoc struct {
	MAC          string    `firestore:"mac"`
	IP           string    `firestore:"ip"`
	Hostname     string    `firestore:"hostname"`
	RegisteredAt time.Time `firestore:"registered_at"`
}

// DeviceRepo stores devices in the devices collection under auto-generated ids.
type DeviceRepo struct {
	store *Store
}

// NewDeviceRepo creates a DeviceRepo on the given store.
func NewDeviceRepo(store *Store) *DeviceRepo {
	return &DeviceRepo{store: store}
}

// ParseID applies Firestore's document id rules.
func (r *DeviceRepo) ParseID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	switch {
	case id == "", id == ".", id == "..":
	case len(id) > maxDocIDBytes:
	case strings.Contains(id, "/"):
	case strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__"):
	default:
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", driven.ErrInvalidID, raw)
}

// Insert creates a device document with an auto-generated id.
func (r *DeviceRepo) Insert(ctx context.Context, device model.Device) (string, error) {
	ref := r.store.devices().NewDoc()
	_, err := ref.Create(ctx, deviceDoc{
		MAC:          device.MAC,
		IP:           device.IP,
		Hostname:     device.Hostname,
		RegisteredAt: device.RegisteredAt.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("insert device %q: %w", device.MAC, err)
	}
	return ref.ID, nil
}

// FindOne returns the device with the given id, or (nil, nil) if absent.
func (r *DeviceRepo) FindOne(ctx context.Context, id string) (*model.Device, error) {
	snap, err := r.store.devices().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find device %s: %w", id, err)
	}

	device, err := decodeDevice(snap)
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// Find returns all devices newest first. Firestore breaks ties on the
// document id in the direction of the last ordering.
func (r *DeviceRepo) Find(ctx context.Context) ([]model.Device, error) {
	iter := r.store.devices().OrderBy("registered_at", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	devices := []model.Device{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list devices: %w", err)
		}

		device, err := decodeDevice(snap)
		if err != nil {
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// DeleteOne deletes the device with the given id and returns the number removed.
func (r *DeviceRepo) DeleteOne(ctx context.Context, id string) (int64, error) {
	return deleteExisting(ctx, r.store.devices().Doc(id))
}

func decodeDevice(snap *firestore.DocumentSnapshot) (model.Device, error) {
	var doc deviceDoc
	if err := snap.DataTo(&doc); err != nil {
		return model.Device{}, fmt.Errorf("decode device %s: %w", snap.Ref.ID, err)
	}
	return model.Device{
		ID:           snap.Ref.ID,
		MAC:          doc.MAC,
		IP:           doc.IP,
		Hostname:     doc.Hostname,
		RegisteredAt: doc.RegisteredAt.UTC(),
	}, nil
}

// deleteExisting deletes ref only if it exists, reporting 1 or 0 removed.
func deleteExisting(ctx context.Context, ref *firestore.DocumentRef) (int64, error) {
	_, err := ref.Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", ref.Path, err)
	}
	return 1, nil
}
