package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ericfisherdev/keypass/internal/domain/model"
	"github.com/ericfisherdev/keypass/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Values arrive already encrypted; this repo never sees plaintext.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

// Insert adds a credential document. A violation of uniq_credential_per_user
// is reported as driven.ErrDuplicateKey and leaves the existing row untouched.
func (r *CredentialRepo) Insert(ctx context.Context, cred model.Credential) (string, error) {
	tags := cred.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}

	const query = `INSERT INTO items (type, user, name, ciphertext, tags, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	result, err := r.db.Writer.ExecContext(ctx, query,
		cred.Type, cred.User, cred.Name, cred.Ciphertext, string(tagsJSON), formatTime(cred.CreatedAt),
	)
	if isUniqueViolation(err) {
		return "", fmt.Errorf("insert credential %q for %q: %w", cred.Name, cred.User, driven.ErrDuplicateKey)
	}
	if err != nil {
		return "", fmt.Errorf("insert credential %q for %q: %w", cred.Name, cred.User, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// FindOne returns the credential matching key, or (nil, nil) if none exists.
func (r *CredentialRepo) FindOne(ctx context.Context, key model.CredentialKey) (*model.Credential, error) {
	const query = `SELECT id, type, user, name, ciphertext, tags, created_at FROM items
		WHERE type = ? AND user = ? AND name = ? ORDER BY id LIMIT 1`

	var (
		cred      model.Credential
		id        int64
		tagsJSON  string
		createdAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, key.Type, key.User, key.Name).Scan(
		&id, &cred.Type, &cred.User, &cred.Name, &cred.Ciphertext, &tagsJSON, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find credential %q for %q: %w", key.Name, key.User, err)
	}

	cred.ID = strconv.FormatInt(id, 10)
	if err := json.Unmarshal([]byte(tagsJSON), &cred.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags for credential %q: %w", key.Name, err)
	}
	cred.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for credential %q: %w", key.Name, err)
	}
	return &cred, nil
}

// DeleteOne removes at most one credential matching key and returns the number removed.
func (r *CredentialRepo) DeleteOne(ctx context.Context, key model.CredentialKey) (int64, error) {
	const query = `DELETE FROM items WHERE id = (
		SELECT id FROM items WHERE type = ? AND user = ? AND name = ? ORDER BY id LIMIT 1)`

	result, err := r.db.Writer.ExecContext(ctx, query, key.Type, key.User, key.Name)
	if err != nil {
		return 0, fmt.Errorf("delete credential %q for %q: %w", key.Name, key.User, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check rows affected: %w", err)
	}
	return rows, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Extended result codes disabled; fall back to the message.
		return strings.Contains(sqliteErr.Error(), "UNIQUE")
	}
	return false
}
