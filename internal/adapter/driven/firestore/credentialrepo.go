package firestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

type itemDoc struct {
	Type       string    `firestore:"type"`
	User       string    `firestore:"user"`
	Name       string    `firestore:"name"`
	Ciphertext string    `firestore:"ciphertext"`
	Tags       []string  `firestore:"tags"`
	CreatedAt  time.Time `firestore:"created_at"`
}

// CredentialRepo stores credentials in the items collection. Firestore has no
// unique secondary indexes, so the document id is derived from the
// (type, user, name) triple and inserts use Create, which the server rejects
// atomically when the id is already taken.
type CredentialRepo struct {
	store *Store
}

// NewCredentialRepo creates a CredentialRepo on the given store.
func NewCredentialRepo(store *Store) *CredentialRepo {
	return &CredentialRepo{store: store}
}

// Insert creates the credential document. AlreadyExists maps to driven.ErrDuplicateKey.
func (r *CredentialRepo) Insert(ctx context.Context, cred model.Credential) (string, error) {
	tags := cred.Tags
	if tags == nil {
		tags = []string{}
	}

	id := credentialDocID(cred.Key())
	_, err := r.store.items().Doc(id).Create(ctx, itemDoc{
		Type:       cred.Type,
		User:       cred.User,
		Name:       cred.Name,
		Ciphertext: cred.Ciphertext,
		Tags:       tags,
		CreatedAt:  cred.CreatedAt.UTC(),
	})
	if status.Code(err) == codes.AlreadyExists {
		return "", fmt.Errorf("insert credential %q for %q: %w", cred.Name, cred.User, driven.ErrDuplicateKey)
	}
	if err != nil {
		return "", fmt.Errorf("insert credential %q for %q: %w", cred.Name, cred.User, err)
	}
	return id, nil
}

// FindOne returns the credential for key, or (nil, nil) if absent.
func (r *CredentialRepo) FindOne(ctx context.Context, key model.CredentialKey) (*model.Credential, error) {
	snap, err := r.store.items().Doc(credentialDocID(key)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential %q for %q: %w", key.Name, key.User, err)
	}

	var doc itemDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode credential %q: %w", key.Name, err)
	}

	return &model.Credential{
		ID:         snap.Ref.ID,
		Type:       doc.Type,
		User:       doc.User,
		Name:       doc.Name,
		Ciphertext: doc.Ciphertext,
		Tags:       doc.Tags,
		CreatedAt:  doc.CreatedAt.UTC(),
	}, nil
}

// DeleteOne deletes the credential for key. A missing document reports zero removed.
func (r *CredentialRepo) DeleteOne(ctx context.Context, key model.CredentialKey) (int64, error) {
	return deleteExisting(ctx, r.store.items().Doc(credentialDocID(key)))
}

// credentialDocID hashes the key so arbitrary user and name strings (including
// "/") yield a valid, fixed-length document id.
func credentialDocID(key model.CredentialKey) string {
	h := sha256.New()
	for _, part := range []string{key.Type, key.User, key.Name} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
