package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies all pending table migrations embedded in the binary.
// It is safe to call on every startup; already-applied migrations are skipped.
// Indexes are not part of the migrations; see EnsureIndexes.
func RunMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// index is one secondary index the adapter wants but can live without.
type index struct {
	name string
	ddl  string
}

var indexes = []index{
	{
		name: "uniq_credential_per_user",
		ddl:  `CREATE UNIQUE INDEX IF NOT EXISTS uniq_credential_per_user ON items (type, user, name)`,
	},
	{
		name: "devices_registered_at_desc",
		ddl:  `CREATE INDEX IF NOT EXISTS devices_registered_at_desc ON devices (registered_at DESC, id DESC)`,
	},
}

// EnsureIndexes creates the credential uniqueness index and the device listing
// index. Failures never propagate: the store keeps working on unindexed scans
// and the failure is logged as degraded mode. Returns true when degraded.
//
// Without uniq_credential_per_user, concurrent adds of the same credential
// key are no longer guaranteed to conflict.
func EnsureIndexes(ctx context.Context, db *sql.DB, log *slog.Logger) bool {
	degraded := false
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx.ddl); err != nil {
			degraded = true
			log.Warn("index creation failed, running in degraded mode",
				"index", idx.name,
				"error", err,
			)
		}
	}
	return degraded
}
