// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package sqlite provides SQLite-backed credential and password stores.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

const schema = `
CREATE TABLE IF NOT EXISTS passkeys (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    credential_id BLOB NOT NULL UNIQUE,
    public_key    BLOB NOT NULL,
    counter       INTEGER NOT NULL DEFAULT 0,
    name          TEXT NOT NULL,
    aaguid        BLOB,
    transports    TEXT,
    created_at    INTEGER NOT NULL,
    last_used_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_passkeys_user_id ON passkeys(user_id);

CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL DEFAULT ''
);
`

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store implements passkey.CredentialStore and passkey.PasswordStore over a
// single SQLite file, so credential and account state share the same
// transaction and visibility boundaries.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at path and applies the schema. The path ":memory:"
// yields an in-process database for tests.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the raw database handle for callers that manage users directly.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// CreateUser inserts an account row. The password is hashed before storage;
// an empty password leaves the account passkey-only.
func (s *Store) CreateUser(ctx context.Context, userID, username, password string) error {
	hash := ""
	if password != "" {
		var err error
		hash, err = passkey.HashPassword(password)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash) VALUES (?, ?, ?)`,
		userID, username, hash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Save stores a new credential.
func (s *Store) Save(ctx context.Context, cred *passkey.Credential) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO passkeys (id, user_id, credential_id, public_key, counter, name, aaguid, transports, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cred.ID, cred.UserID, cred.CredentialID, cred.PublicKey, cred.Counter,
		cred.Name, cred.AAGUID, strings.Join(cred.Transports, ","), toMillis(cred.CreatedAt))
	if err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// GetByCredentialID retrieves a credential by its raw credential id.
func (s *Store) GetByCredentialID(ctx context.Context, credentialID []byte) (*passkey.Credential, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, user_id, credential_id, public_key, counter, name, aaguid, transports, created_at, last_used_at
		 FROM passkeys WHERE credential_id = ?`, credentialID)
	cred, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrPasskeyNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	return cred, nil
}

// GetByUserID retrieves all credentials for a user, newest first.
func (s *Store) GetByUserID(ctx context.Context, userID string) ([]*passkey.Credential, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, user_id, credential_id, public_key, counter, name, aaguid, transports, created_at, last_used_at
		 FROM passkeys WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()
	return collectCredentials(rows)
}

// GetByUsername retrieves all credentials for the account registered under
// username.
func (s *Store) GetByUsername(ctx context.Context, username string) ([]*passkey.Credential, error) {
	var userID string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id FROM users WHERE username = ?`, username).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return s.GetByUserID(ctx, userID)
}

// UpdateCounter sets the signature counter and stamps last_used_at.
func (s *Store) UpdateCounter(ctx context.Context, credentialID []byte, counter uint32, lastUsedAt time.Time) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE passkeys SET counter = ?, last_used_at = ? WHERE credential_id = ?`,
		counter, toMillis(lastUsedAt), credentialID)
	if err != nil {
		return fmt.Errorf("update counter: %w", err)
	}
	return requireRow(result)
}

// Rename changes a credential's label, scoped to its owner. An owner mismatch
// reports not-found so another user's credential ids are never confirmed.
func (s *Store) Rename(ctx context.Context, userID string, credentialID []byte, name string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE passkeys SET name = ? WHERE credential_id = ? AND user_id = ?`,
		name, credentialID, userID)
	if err != nil {
		return fmt.Errorf("rename credential: %w", err)
	}
	return requireRow(result)
}

// Delete removes a credential, scoped to its owner.
func (s *Store) Delete(ctx context.Context, userID string, credentialID []byte) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM passkeys WHERE credential_id = ? AND user_id = ?`,
		credentialID, userID)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return requireRow(result)
}

// GetPasswordByUsername implements passkey.PasswordStore. Accounts without a
// stored password hash report not-found so the fallback path treats them as
// passkey-only.
func (s *Store) GetPasswordByUsername(ctx context.Context, username string) (*passkey.PasswordRecord, error) {
	var record passkey.PasswordRecord
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username = ?`, username).
		Scan(&record.UserID, &record.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, passkey.ErrUserNotFound
		}
		return nil, fmt.Errorf("get password record: %w", err)
	}
	if record.PasswordHash == "" {
		return nil, passkey.ErrUserNotFound
	}
	return &record, nil
}

// Passwords adapts the store to the passkey.PasswordStore interface.
func (s *Store) Passwords() passkey.PasswordStore {
	return passwordAdapter{store: s}
}

type passwordAdapter struct {
	store *Store
}

func (a passwordAdapter) GetByUsername(ctx context.Context, username string) (*passkey.PasswordRecord, error) {
	return a.store.GetPasswordByUsername(ctx, username)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (*passkey.Credential, error) {
	var (
		cred       passkey.Credential
		transports string
		createdAt  int64
		lastUsedAt sql.NullInt64
	)
	err := row.Scan(&cred.ID, &cred.UserID, &cred.CredentialID, &cred.PublicKey,
		&cred.Counter, &cred.Name, &cred.AAGUID, &transports, &createdAt, &lastUsedAt)
	if err != nil {
		return nil, err
	}

	if transports != "" {
		cred.Transports = strings.Split(transports, ",")
	}
	cred.CreatedAt = fromMillis(createdAt)
	if lastUsedAt.Valid {
		cred.LastUsedAt = fromMillis(lastUsedAt.Int64)
	}
	return &cred, nil
}

func collectCredentials(rows *sql.Rows) ([]*passkey.Credential, error) {
	creds := make([]*passkey.Credential, 0)
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return creds, nil
}

// requireRow converts a zero-row update or delete into not-found.
func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return passkey.ErrPasskeyNotFound
	}
	return nil
}
