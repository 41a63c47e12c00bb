// Package oskeyring adapts the OS secure credential store to the SecretHolder port.
package oskeyring

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/99designs/keyring"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretHolder = (*Holder)(nil)

// OpenFunc opens the keyring scoped to one service identity.
type OpenFunc func(service string) (keyring.Keyring, error)

// Options restricts which OS backends may be used.
type Options struct {
	// AllowedBackends lists backend names ("keychain", "secret-service",
	// "kwallet", "wincred", "pass", "keyctl", "file"). Empty allows all.
	AllowedBackends []string
	// FileDir is where the encrypted-file backend keeps its items.
	FileDir string
	// FilePassword unlocks the file backend. When empty the user is prompted
	// on the terminal.
	FilePassword string
}

// Holder is the SecretHolder backed by github.com/99designs/keyring.
// The keyring is opened on every call; nothing is cached in process.
type Holder struct {
	open OpenFunc
	log  *slog.Logger
}

// NewHolder creates a Holder that opens the OS keyring according to opts.
func NewHolder(opts Options, log *slog.Logger) *Holder {
	return NewHolderWithOpener(systemOpener(opts), log)
}

// NewHolderWithOpener creates a Holder using a custom opener.
func NewHolderWithOpener(open OpenFunc, log *slog.Logger) *Holder {
	return &Holder{open: open, log: log}
}

func systemOpener(opts Options) OpenFunc {
	return func(service string) (keyring.Keyring, error) {
		return keyring.Open(keyringConfig(opts, service))
	}
}

func keyringConfig(opts Options, service string) keyring.Config {
	// keyring.Open only falls back to every available backend when the list is nil.
	var backends []keyring.BackendType
	for _, b := range opts.AllowedBackends {
		backends = append(backends, keyring.BackendType(b))
	}

	prompt := keyring.TerminalPrompt
	if opts.FilePassword != "" {
		prompt = keyring.FixedStringPrompt(opts.FilePassword)
	}

	return keyring.Config{
		ServiceName:              service,
		AllowedBackends:          backends,
		KeychainName:             "login",
		KeychainTrustApplication: true,
		FileDir:                  opts.FileDir,
		FilePasswordFunc:         prompt,
		LibSecretCollectionName:  "login",
		KWalletAppID:             service,
		KWalletFolder:            service,
		PassPrefix:               service,
	}
}

// Get returns the value stored for (service, account), or ("", nil) if absent.
func (h *Holder) Get(service, account string) (string, error) {
	kr, err := h.open(service)
	if err != nil {
		return "", fmt.Errorf("open keyring %q: %w", service, err)
	}

	item, err := kr.Get(account)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		h.log.Debug("secret not found", "service", service, "account", account)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get %q from keyring %q: %w", account, service, err)
	}
	return string(item.Data), nil
}

// Set stores value under (service, account) and reads it back, so a nil
// return guarantees the value is retrievable.
func (h *Holder) Set(service, account, value string) error {
	kr, err := h.open(service)
	if err != nil {
		return fmt.Errorf("open keyring %q: %w", service, err)
	}

	err = kr.Set(keyring.Item{
		Key:         account,
		Data:        []byte(value),
		Label:       fmt.Sprintf("%s: %s", service, account),
		Description: "keypass master key",
	})
	if err != nil {
		return fmt.Errorf("set %q in keyring %q: %w", account, service, err)
	}

	item, err := kr.Get(account)
	if err != nil {
		return fmt.Errorf("verify %q in keyring %q: %w", account, service, err)
	}
	if string(item.Data) != value {
		return fmt.Errorf("verify %q in keyring %q: stored value does not match", account, service)
	}

	h.log.Debug("secret stored", "service", service, "account", account)
	return nil
}
