package application

import (
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
	"github.com/ericfisherdev/keypass/internal/envelope"
)

// MasterKeyAccount is the secret holder account under which the master key is stored.
const MasterKeyAccount = "master_key"

// KeyService owns the master key lifecycle. The key exists only in the secret
// holder; it is read fresh for every cipher and never persisted elsewhere.
type KeyService struct {
	holder  driven.SecretHolder
	service string
	log     *slog.Logger
}

// NewKeyService creates a KeyService for the given secret holder service identity.
func NewKeyService(holder driven.SecretHolder, service string, log *slog.Logger) *KeyService {
	return &KeyService{holder: holder, service: service, log: log}
}

// HasKey reports whether a master key is stored.
func (s *KeyService) HasKey() (bool, error) {
	existing, err := s.holder.Get(s.service, MasterKeyAccount)
	if err != nil {
		return false, fmt.Errorf("check master key: %w", err)
	}
	return existing != "", nil
}

// Init generates and stores a new master key. If a key exists and reset is
// false, it returns ErrKeyExists and leaves the stored key untouched.
// Resetting orphans every credential encrypted under the previous key.
func (s *KeyService) Init(reset bool) error {
	exists, err := s.HasKey()
	if err != nil {
		return err
	}
	if exists && !reset {
		return ErrKeyExists
	}

	key, err := envelope.GenerateKey()
	if err != nil {
		return err
	}
	if err := s.holder.Set(s.service, MasterKeyAccount, key); err != nil {
		return fmt.Errorf("store master key: %w", err)
	}

	s.log.Info("master key stored", "service", s.service, "reset", exists)
	return nil
}

// Cipher loads the master key and returns a cipher keyed by it.
// Returns ErrKeyMissing when Init has not been run.
func (s *KeyService) Cipher() (driven.Cipher, error) {
	c, err := envelope.Load(s.holder, s.service, MasterKeyAccount)
	if err != nil {
		return nil, err
	}
	return c, nil
}
