package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/keypass/internal/domain/model"
)

// ErrDuplicateKey is returned by CredentialStore.Insert when a document with the
// same (type, user, name) triple already exists. The existing document is untouched.
var ErrDuplicateKey = errors.New("duplicate key")

// CredentialStore defines the driven port for the items table. Implementations
// must enforce (type, user, name) uniqueness inside the store itself so that two
// concurrent inserts for the same key produce exactly one success.
type CredentialStore interface {
	// Insert stores a new credential document and returns the store-assigned id.
	// Returns ErrDuplicateKey if the key is already taken.
	Insert(ctx context.Context, cred model.Credential) (string, error)

	// FindOne returns the credential matching key, or (nil, nil) if absent.
	FindOne(ctx context.Context, key model.CredentialKey) (*model.Credential, error)

	// DeleteOne removes the credential matching key and reports how many
	// documents were removed (0 or 1).
	DeleteOne(ctx context.Context, key model.CredentialKey) (int64, error)
}
