package application

import (
	"errors"
	"fmt"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
	"github.com/ericfisherdev/keypass/internal/envelope"
)

// Sentinel errors returned by the services. Callers match with errors.Is.
var (
	ErrEmptySecret      = errors.New("secret must not be empty")
	ErrEmptyName        = errors.New("credential name must not be empty")
	ErrUnknownOwner     = errors.New("credential owner could not be determined")
	ErrCredentialExists = errors.New("credential already exists")
	ErrNotFound         = errors.New("not found")
	ErrDecryptionFailed = errors.New("failed to decrypt secret")

	// ErrDeleteFailed means the record was found but the delete removed
	// nothing, typically because it was deleted concurrently in between.
	ErrDeleteFailed = errors.New("delete removed no documents")

	// ErrCancelled means the operator declined confirmation. Nothing was changed.
	ErrCancelled = errors.New("cancelled")

	// ErrKeyExists is returned by KeyService.Init when a master key is
	// already stored and reset was not requested.
	ErrKeyExists = errors.New("master key already exists")

	ErrKeyMissing = envelope.ErrKeyMissing
	ErrInvalidID  = driven.ErrInvalidID
)

// CredentialExistsError reports an add for a (user, name) pair that is taken.
// It matches ErrCredentialExists and unwraps to driven.ErrDuplicateKey.
type CredentialExistsError struct {
	Name  string
	Owner string
}

func (e *CredentialExistsError) Error() string {
	return fmt.Sprintf("credential %q already exists for user %q", e.Name, e.Owner)
}

// Is reports whether target is ErrCredentialExists.
func (e *CredentialExistsError) Is(target error) bool {
	return target == ErrCredentialExists
}

func (e *CredentialExistsError) Unwrap() error {
	return driven.ErrDuplicateKey
}
