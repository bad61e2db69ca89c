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
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service runs the registration and authentication ceremonies and the
// password fallback guard. Challenge and lockout state are process-local and
// owned exclusively by the service instance.
type Service struct {
	config     *Config
	creds      CredentialStore
	passwords  PasswordStore
	challenges *ChallengeStore
	tokens     TokenGenerator // optional
	logger     *slog.Logger
	rpIDHash   [32]byte
	configured bool

	fallbackMu       sync.RWMutex
	fallbackConfig   FallbackConfig
	fallbackAttempts map[string]*fallbackTracker

	now func() time.Time
}

// fallbackTracker holds per-username failed-attempt state. Created on the
// first failure, cleared on success.
type fallbackTracker struct {
	attempts    int
	lockedUntil time.Time
}

// ServiceParams contains dependencies for creating a passkey service.
type ServiceParams struct {
	// Config is the relying party configuration (required).
	Config *Config

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// PasswordStore resolves legacy password accounts. Optional; without it
	// the fallback path reports unavailable.
	PasswordStore PasswordStore

	// TokenGenerator is an optional token issuer for the fallback path.
	// If nil, the service issues opaque "{user_id}:{random}" tokens.
	TokenGenerator TokenGenerator

	// Logger is an optional structured logger. Defaults to slog.Default().
	Logger *slog.Logger
}

// NewService creates a new passkey service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		config:           params.Config,
		creds:            params.CredentialStore,
		passwords:        params.PasswordStore,
		challenges:       NewChallengeStoreWithTTL(params.Config.ChallengeTTL),
		tokens:           params.TokenGenerator,
		logger:           logger,
		rpIDHash:         sha256.Sum256([]byte(params.Config.RPID)),
		configured:       true,
		fallbackConfig:   *params.Config.Fallback,
		fallbackAttempts: make(map[string]*fallbackTracker),
		now:              time.Now,
	}, nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}

// Challenges returns the service's challenge store, primarily so callers can
// schedule Cleanup sweeps.
func (s *Service) Challenges() *ChallengeStore {
	return s.challenges
}

// ListCredentials returns the listing summaries for a user's credentials.
func (s *Service) ListCredentials(ctx context.Context, userID string) ([]CredentialSummary, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	creds, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		return nil, WrapError("list credentials", err)
	}

	summaries := make([]CredentialSummary, len(creds))
	for i, cred := range creds {
		summaries[i] = CredentialSummary{
			ID:           cred.ID,
			CredentialID: encodeBase64URL(cred.CredentialID),
			Name:         cred.Name,
			CreatedAt:    cred.CreatedAt,
			LastUsedAt:   cred.LastUsedAt,
		}
	}
	return summaries, nil
}

// RenameCredential relabels a credential owned by userID. The new name goes
// through the same sanitizer as registration.
func (s *Service) RenameCredential(ctx context.Context, userID string, credentialID []byte, name string) error {
	if !s.configured {
		return ErrNotConfigured
	}

	sanitized := SanitizeName(name)
	if sanitized == "" {
		return WrapError("rename credential", ErrInvalidCredentialName)
	}
	return s.creds.Rename(ctx, userID, credentialID, sanitized)
}

// DeleteCredential removes a credential owned by userID.
func (s *Service) DeleteCredential(ctx context.Context, userID string, credentialID []byte) error {
	if !s.configured {
		return ErrNotConfigured
	}
	return s.creds.Delete(ctx, userID, credentialID)
}

// verifyClientData decodes and validates the common clientDataJSON checks:
// base64url decoding, JSON shape, ceremony type, and exact origin match.
func (s *Service) verifyClientData(raw string, wantType string) (*collectedClientData, error) {
	decoded, err := decodeBase64URL(raw)
	if err != nil {
		return nil, WrapError("decode client data", ErrInvalidClientData)
	}

	var clientData collectedClientData
	if err := json.Unmarshal(decoded, &clientData); err != nil {
		return nil, WrapError("parse client data", ErrInvalidClientData)
	}

	if clientData.Type != wantType {
		return nil, WrapError("client data type", ErrInvalidCeremonyType)
	}
	if clientData.Origin != s.config.RPOrigin {
		return nil, WrapError("client data origin", ErrInvalidOrigin)
	}
	if clientData.Challenge == "" {
		return nil, WrapError("client data challenge", ErrInvalidChallenge)
	}
	return &clientData, nil
}
