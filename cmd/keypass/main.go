package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	firestoreadapter "github.com/ericfisherdev/keypass/internal/adapter/driven/firestore"
	"github.com/ericfisherdev/keypass/internal/adapter/driven/oskeyring"
	"github.com/ericfisherdev/keypass/internal/adapter/driven/osuser"
	sqliteadapter "github.com/ericfisherdev/keypass/internal/adapter/driven/sqlite"
	vaultadapter "github.com/ericfisherdev/keypass/internal/adapter/driven/vault"
	"github.com/ericfisherdev/keypass/internal/adapter/driving/cli"
	"github.com/ericfisherdev/keypass/internal/application"
	"github.com/ericfisherdev/keypass/internal/config"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

func main() {
	code, err := run()
	if err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Load configuration (.env first; the process environment wins).
	if err := config.LoadDotEnv(".env"); err != nil {
		return 1, err
	}
	cfg, err := config.Load()
	if err != nil {
		return 1, err
	}

	// 2. Logger on stderr so command output on stdout stays clean.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	logger.Debug("config loaded",
		"store", cfg.Store,
		"secret_backend", cfg.SecretBackend,
		"service", cfg.KeyringService,
	)

	// 3. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Secret holder and master-key service.
	holder, err := openSecretHolder(cfg, logger)
	if err != nil {
		return 1, err
	}
	keys := application.NewKeyService(holder, cfg.KeyringService, logger)

	// 5. Operator interaction and identity.
	prompter := cli.NewPrompter(os.Stdin, os.Stderr)
	users := osuser.NewResolver()

	// 6. Document store, opened only by commands that need it.
	var closeStore func() error
	defer func() {
		if closeStore == nil {
			return
		}
		if closeErr := closeStore(); closeErr != nil {
			logger.Error("error closing document store", "error", closeErr)
		}
	}()

	connect := func(ctx context.Context) (*cli.Services, error) {
		credentials, devices, closer, err := openStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		closeStore = closer

		return &cli.Services{
			Credentials: application.NewCredentialService(credentials, keys, users, prompter, logger),
			Devices:     application.NewDeviceService(devices, prompter, logger),
		}, nil
	}

	// 7. Run the command.
	app := cli.NewApp(keys, connect, prompter, cfg.HolderName(), logger)
	return app.Run(ctx, os.Args[1:], os.Stdout, os.Stderr), nil
}

func openSecretHolder(cfg *config.Config, logger *slog.Logger) (driven.SecretHolder, error) {
	switch cfg.SecretBackend {
	case config.SecretBackendVault:
		holder, err := vaultadapter.NewHolder(cfg.VaultAddr, cfg.VaultToken, cfg.VaultMount, logger)
		if err != nil {
			return nil, err
		}
		return holder, nil
	default:
		return oskeyring.NewHolder(oskeyring.Options{
			AllowedBackends: cfg.KeyringBackends,
			FileDir:         cfg.KeyringFileDir,
			FilePassword:    cfg.KeyringFilePassword,
		}, logger), nil
	}
}

// openStore opens the configured document store, applies its schema and
// indexes, and returns both repositories plus the matching close function.
// Opening is bounded by cfg.Timeout.
func openStore(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) (driven.CredentialStore, driven.DeviceStore, func() error, error) {
	switch cfg.Store {
	case config.StoreFirestore:
		store, err := firestoreadapter.Open(ctx, cfg.FirestoreProject, cfg.FirestoreCredentials, cfg.DBName, cfg.Timeout, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("firestore project %q: %w", cfg.FirestoreProject, err)
		}
		store.EnsureIndexes(ctx)
		logger.Debug("document store opened", "store", cfg.Store, "database", cfg.DBName)
		return firestoreadapter.NewCredentialRepo(store), firestoreadapter.NewDeviceRepo(store), store.Close, nil

	default:
		openCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		db, err := sqliteadapter.NewDB(openCtx, cfg.DBPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite database %q: %w", cfg.DBPath, err)
		}
		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
		sqliteadapter.EnsureIndexes(openCtx, db.Writer, logger)
		logger.Debug("document store opened", "store", cfg.Store, "path", db.Path())
		return sqliteadapter.NewCredentialRepo(db), sqliteadapter.NewDeviceRepo(db), db.Close, nil
	}
}
