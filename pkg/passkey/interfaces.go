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

package passkey

import (
	"context"
	"time"
)

// CredentialStore is the persistence contract the ceremonies consume.
// Credentials live in external relational storage; the engine never touches
// it except through this interface.
type CredentialStore interface {
	// Save stores a new credential. The credential id is globally unique;
	// implementations must reject duplicates.
	Save(ctx context.Context, cred *Credential) error

	// GetByCredentialID retrieves a credential by its raw credential id.
	// Returns ErrPasskeyNotFound if the credential does not exist.
	GetByCredentialID(ctx context.Context, credentialID []byte) (*Credential, error)

	// GetByUserID retrieves all credentials for a user.
	// Returns an empty slice if the user has none.
	GetByUserID(ctx context.Context, userID string) ([]*Credential, error)

	// GetByUsername retrieves all credentials for the account registered
	// under username, joining through the external user-identity store.
	GetByUsername(ctx context.Context, username string) ([]*Credential, error)

	// UpdateCounter sets the signature counter after a successful
	// authentication and stamps last_used_at.
	UpdateCounter(ctx context.Context, credentialID []byte, counter uint32, lastUsedAt time.Time) error

	// Rename changes a credential's label. The credential must belong to
	// userID; an owner mismatch returns ErrPasskeyNotFound rather than a
	// permission error, so another user's credential ids are never
	// confirmed to exist.
	Rename(ctx context.Context, userID string, credentialID []byte, name string) error

	// Delete removes a credential, scoped to its owner the same way Rename
	// is.
	Delete(ctx context.Context, userID string, credentialID []byte) error
}

// PasswordRecord is the account material the fallback guard verifies
// against.
type PasswordRecord struct {
	// UserID is the account identifier.
	UserID string

	// PasswordHash is the PHC-encoded Argon2 hash of the account password.
	PasswordHash string
}

// PasswordStore resolves legacy password accounts for the fallback path.
type PasswordStore interface {
	// GetByUsername looks up an account by username or email.
	// Returns ErrUserNotFound if no account exists.
	GetByUsername(ctx context.Context, username string) (*PasswordRecord, error)
}

// TokenGenerator is an optional interface for issuing session tokens after a
// successful fallback authentication. If not provided, the service issues an
// opaque "{user_id}:{base64url(random)}" token.
type TokenGenerator interface {
	// GenerateToken creates a token for the authenticated user.
	GenerateToken(ctx context.Context, userID string) (string, error)
}
