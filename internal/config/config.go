// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Document store kinds.
const (
	StoreSQLite    = "sqlite"
	StoreFirestore = "firestore"
)

// Secret holder backends.
const (
	SecretBackendKeyring = "keyring"
	SecretBackendVault   = "vault"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Store  string
	DBPath string
	DBName string

	FirestoreProject     string
	FirestoreCredentials string

	SecretBackend   string
	KeyringService  string
	KeyringBackends []string
	KeyringFileDir  string

	// KeyringFilePassword unlocks the encrypted-file keyring backend.
	// Empty means prompt on the terminal.
	KeyringFilePassword string

	VaultAddr  string
	VaultToken string
	VaultMount string

	LogLevel slog.Level
	Timeout  time.Duration
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. KEYPASS_FIRESTORE_PROJECT is required when
// KEYPASS_STORE=firestore, and KEYPASS_VAULT_ADDR when KEYPASS_SECRET_BACKEND=vault.
// Defaults: KEYPASS_STORE (sqlite), KEYPASS_DB_PATH (keypass.db),
// KEYPASS_DB_NAME (keypass_db), KEYPASS_SECRET_BACKEND (keyring),
// KEYPASS_KEYRING_SERVICE (keypass), KEYPASS_KEYRING_FILE_DIR (~/.keypass/keyring),
// KEYPASS_VAULT_MOUNT (secret), KEYPASS_LOG_LEVEL (warn), KEYPASS_TIMEOUT (30s).
func Load() (*Config, error) {
	store := envOr("KEYPASS_STORE", StoreSQLite)
	if store != StoreSQLite && store != StoreFirestore {
		return nil, fmt.Errorf("KEYPASS_STORE must be %q or %q, got %q", StoreSQLite, StoreFirestore, store)
	}

	firestoreProject := os.Getenv("KEYPASS_FIRESTORE_PROJECT")
	if store == StoreFirestore && firestoreProject == "" {
		return nil, fmt.Errorf("KEYPASS_FIRESTORE_PROJECT is required when KEYPASS_STORE=%s", StoreFirestore)
	}

	secretBackend := envOr("KEYPASS_SECRET_BACKEND", SecretBackendKeyring)
	if secretBackend != SecretBackendKeyring && secretBackend != SecretBackendVault {
		return nil, fmt.Errorf("KEYPASS_SECRET_BACKEND must be %q or %q, got %q",
			SecretBackendKeyring, SecretBackendVault, secretBackend)
	}

	vaultAddr := os.Getenv("KEYPASS_VAULT_ADDR")
	if secretBackend == SecretBackendVault && vaultAddr == "" {
		return nil, fmt.Errorf("KEYPASS_VAULT_ADDR is required when KEYPASS_SECRET_BACKEND=%s", SecretBackendVault)
	}

	keyringService := envOr("KEYPASS_KEYRING_SERVICE", "keypass")
	if strings.TrimSpace(keyringService) == "" {
		return nil, fmt.Errorf("KEYPASS_KEYRING_SERVICE must not be blank")
	}

	var keyringBackends []string
	if v, ok := os.LookupEnv("KEYPASS_KEYRING_BACKENDS"); ok && v != "" {
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				keyringBackends = append(keyringBackends, name)
			}
		}
	}

	keyringFileDir, ok := os.LookupEnv("KEYPASS_KEYRING_FILE_DIR")
	if !ok {
		keyringFileDir = defaultKeyringFileDir()
	}

	logLevel := slog.LevelWarn
	if v, ok := os.LookupEnv("KEYPASS_LOG_LEVEL"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("KEYPASS_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	timeout := 30 * time.Second
	if v, ok := os.LookupEnv("KEYPASS_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("KEYPASS_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("KEYPASS_TIMEOUT must be positive, got %s", parsed)
		}
		timeout = parsed
	}

	return &Config{
		Store:                store,
		DBPath:               envOr("KEYPASS_DB_PATH", "keypass.db"),
		DBName:               envOr("KEYPASS_DB_NAME", "keypass_db"),
		FirestoreProject:     firestoreProject,
		FirestoreCredentials: os.Getenv("KEYPASS_FIRESTORE_CREDENTIALS"),
		SecretBackend:        secretBackend,
		KeyringService:       keyringService,
		KeyringBackends:      keyringBackends,
		KeyringFileDir:       keyringFileDir,
		KeyringFilePassword:  os.Getenv("KEYPASS_KEYRING_FILE_PASSWORD"),
		VaultAddr:            vaultAddr,
		VaultToken:           os.Getenv("KEYPASS_VAULT_TOKEN"),
		VaultMount:           envOr("KEYPASS_VAULT_MOUNT", "secret"),
		LogLevel:             logLevel,
		Timeout:              timeout,
	}, nil
}

// HolderName names the configured secret holder in user-facing messages.
func (c *Config) HolderName() string {
	if c.SecretBackend == SecretBackendVault {
		return "Vault"
	}
	return "OS keyring"
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func defaultKeyringFileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".keypass", "keyring")
	}
	return filepath.Join(home, ".keypass", "keyring")
}
