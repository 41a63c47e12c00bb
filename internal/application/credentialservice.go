package application

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
	"github.com/ericfisherdev/keypass/internal/envelope"
)

// CipherSource yields a cipher keyed by the current master key.
type CipherSource interface {
	Cipher() (driven.Cipher, error)
}

// CredentialService encrypts, stores, retrieves and deletes credentials.
// Each credential belongs to exactly one owner; all lookups are scoped by owner.
type CredentialService struct {
	store   driven.CredentialStore
	keys    CipherSource
	users   driven.UserResolver
	confirm driven.Confirmer
	log     *slog.Logger
	now     func() time.Time
}

// NewCredentialService creates a CredentialService with the required dependencies.
func NewCredentialService(
	store driven.CredentialStore,
	keys CipherSource,
	users driven.UserResolver,
	confirm driven.Confirmer,
	log *slog.Logger,
) *CredentialService {
	return &CredentialService{
		store:   store,
		keys:    keys,
		users:   users,
		confirm: confirm,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add encrypts secret and stores it as credential name for user (or the
// current OS user when user is empty). Returns the store-assigned id.
// A taken (user, name) pair yields *CredentialExistsError; nothing is written.
func (s *CredentialService) Add(ctx context.Context, name, user, secret string, tags []string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyName
	}

	owner, err := s.resolveOwner(user)
	if err != nil {
		return "", err
	}

	c, err := s.keys.Cipher()
	if err != nil {
		return "", err
	}
	sealed, err := c.Encrypt([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("encrypt credential %q: %w", name, err)
	}

	id, err := s.store.Insert(ctx, model.Credential{
		Type:       model.CredentialType,
		Name:       name,
		User:       owner,
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
		Tags:       normalizeTags(tags),
		CreatedAt:  s.now(),
	})
	if errors.Is(err, driven.ErrDuplicateKey) {
		return "", &CredentialExistsError{Name: name, Owner: owner}
	}
	if err != nil {
		return "", err
	}

	s.log.Info("credential saved", "id", id, "name", name, "user", owner)
	return id, nil
}

// Get returns the decrypted secret for credential name owned by user.
// The master key is loaded before the store is queried, so a missing key
// fails without any store access.
func (s *CredentialService) Get(ctx context.Context, name, user string) (string, error) {
	owner, err := s.resolveOwner(user)
	if err != nil {
		return "", err
	}

	c, err := s.keys.Cipher()
	if err != nil {
		return "", err
	}

	cred, err := s.store.FindOne(ctx, credentialKey(owner, name))
	if err != nil {
		return "", err
	}
	if cred == nil {
		return "", fmt.Errorf("credential %q for user %q: %w", name, owner, ErrNotFound)
	}

	sealed, err := base64.StdEncoding.DecodeString(cred.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: credential %q: %w", ErrDecryptionFailed, name, envelope.ErrFormat)
	}
	plaintext, err := c.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("%w: credential %q: %w", ErrDecryptionFailed, name, err)
	}

	return string(plaintext), nil
}

// Delete removes credential name owned by user. Unless force is set the
// operator must confirm first; declining returns ErrCancelled.
// The lookup and the delete are separate store calls; a concurrent delete in
// between surfaces as ErrDeleteFailed.
func (s *CredentialService) Delete(ctx context.Context, name, user string, force bool) error {
	owner, err := s.resolveOwner(user)
	if err != nil {
		return err
	}

	key := credentialKey(owner, name)
	cred, err := s.store.FindOne(ctx, key)
	if err != nil {
		return err
	}
	if cred == nil {
		return fmt.Errorf("credential %q for user %q: %w", name, owner, ErrNotFound)
	}

	if !force {
		ok, err := s.confirm.Confirm(ctx, fmt.Sprintf("Are you sure you want to delete credential '%s' for user '%s'?", name, owner))
		if err != nil {
			return fmt.Errorf("confirm delete: %w", err)
		}
		if !ok {
			return ErrCancelled
		}
	}

	removed, err := s.store.DeleteOne(ctx, key)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("credential %q for user %q: %w", name, owner, ErrDeleteFailed)
	}

	s.log.Info("credential deleted", "id", cred.ID, "name", name, "user", owner)
	return nil
}

func (s *CredentialService) resolveOwner(user string) (string, error) {
	owner := strings.TrimSpace(user)
	if owner != "" {
		return owner, nil
	}

	current, err := s.users.CurrentUser()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnknownOwner, err)
	}
	owner = strings.TrimSpace(current)
	if owner == "" {
		return "", ErrUnknownOwner
	}
	return owner, nil
}

func credentialKey(owner, name string) model.CredentialKey {
	return model.CredentialKey{Type: model.CredentialType, User: owner, Name: name}
}

// normalizeTags drops empty labels and duplicates, keeping first occurrence.
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
