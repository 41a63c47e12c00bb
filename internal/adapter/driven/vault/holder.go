// Package vault implements the SecretHolder port on a HashiCorp Vault KV v2 mount,
// for hosts without a usable OS keyring.
package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"

	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretHolder = (*Holder)(nil)

const valueField = "value"

// Holder stores secrets at <mount>/data/<service>/<account>, one field per secret.
type Holder struct {
	kv      *api.KVv2
	timeout time.Duration
	log     *slog.Logger
}

// NewHolder creates a Vault-backed holder authenticated with token.
func NewHolder(address, token, mountPath string, log *slog.Logger) (*Holder, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	mountPath = strings.Trim(mountPath, "/")
	if mountPath == "" {
		mountPath = "secret"
	}

	return &Holder{
		kv:      client.KVv2(mountPath),
		timeout: 30 * time.Second,
		log:     log,
	}, nil
}

// Get returns the stored value, or ("", nil) when the path has no secret.
func (h *Holder) Get(service, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	path := secretPath(service, account)
	secret, err := h.kv.Get(ctx, path)
	if errors.Is(err, api.ErrSecretNotFound) {
		h.log.Debug("secret not found in vault", slog.String("path", path))
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s from vault: %w", path, err)
	}
	// A soft-deleted latest version reads back as metadata with no data.
	if secret == nil || secret.Data == nil {
		h.log.Debug("secret deleted in vault", slog.String("path", path))
		return "", nil
	}

	value, ok := secret.Data[valueField].(string)
	if !ok {
		return "", fmt.Errorf("read %s from vault: field %q missing or not a string", path, valueField)
	}
	return value, nil
}

// Set writes a new version of the secret. Vault acknowledges the write only
// after it is durable, so a nil error means the value is retrievable.
func (h *Holder) Set(service, account, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	path := secretPath(service, account)
	if _, err := h.kv.Put(ctx, path, map[string]interface{}{valueField: value}); err != nil {
		return fmt.Errorf("write %s to vault: %w", path, err)
	}

	h.log.Debug("secret stored in vault", slog.String("path", path))
	return nil
}

func secretPath(service, account string) string {
	return strings.Trim(service, "/") + "/" + strings.Trim(account, "/")
}
