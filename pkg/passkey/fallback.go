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
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters used when hashing new passwords. Verification reads the
// parameters embedded in the stored hash, so these only affect new hashes.
const (
	argon2Memory  = 64 * 1024
	argon2Time    = 3
	argon2Threads = 4
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// FallbackStatus reports whether password fallback is available for a user
// and whether they already hold passkeys.
type FallbackStatus struct {
	Available   bool   `json:"available"`
	HasPasskeys bool   `json:"has_passkeys"`
	Reason      string `json:"reason,omitempty"`
}

// FallbackConfig returns the active fallback policy.
func (s *Service) FallbackConfig() FallbackConfig {
	s.fallbackMu.RLock()
	defer s.fallbackMu.RUnlock()
	return s.fallbackConfig
}

// SetFallbackConfig replaces the fallback policy at runtime. Existing attempt
// trackers are kept; a lowered MaxAttempts applies to the next failure.
func (s *Service) SetFallbackConfig(cfg FallbackConfig) {
	s.fallbackMu.Lock()
	defer s.fallbackMu.Unlock()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxFallbackAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	s.fallbackConfig = cfg
}

// IsLocked reports whether the username is currently locked out from password
// fallback.
func (s *Service) IsLocked(username string) bool {
	s.fallbackMu.RLock()
	defer s.fallbackMu.RUnlock()
	tracker, ok := s.fallbackAttempts[username]
	if !ok {
		return false
	}
	return s.now().Before(tracker.lockedUntil)
}

// AuthenticateFallback verifies a username/password pair as the safety net
// for users who cannot complete a passkey ceremony. Bad credentials and
// lockouts are reported in the result, not as errors; errors mean the attempt
// could not be evaluated at all.
func (s *Service) AuthenticateFallback(ctx context.Context, username, password string) (*FallbackResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	cfg := s.FallbackConfig()
	if !cfg.Enabled || s.passwords == nil {
		return &FallbackResult{
			Success: false,
			Message: "password fallback is disabled",
		}, nil
	}
	if username == "" || password == "" {
		return &FallbackResult{
			Success: false,
			Message: "username and password are required",
		}, nil
	}

	// Locked accounts are rejected before any hashing work.
	if s.IsLocked(username) {
		s.logger.Warn("fallback attempt while locked out", "username", username)
		recordFallbackAttempt(false)
		return &FallbackResult{
			Success: false,
			Message: "account is temporarily locked, try again later",
		}, nil
	}

	record, err := s.passwords.GetByUsername(ctx, username)
	if err != nil {
		if IsUserNotFound(err) {
			return s.failFallback(username, cfg), nil
		}
		return nil, WrapError("get password record", err)
	}

	match, err := VerifyPassword(password, record.PasswordHash)
	if err != nil {
		return nil, WrapError("verify password", err)
	}
	if !match {
		return s.failFallback(username, cfg), nil
	}

	s.ClearFallbackAttempts(username)
	recordFallbackAttempt(true)

	token, err := s.issueToken(ctx, record.UserID)
	if err != nil {
		return nil, WrapError("issue token", err)
	}

	hasPasskeys := false
	if creds, err := s.creds.GetByUserID(ctx, record.UserID); err == nil && len(creds) > 0 {
		hasPasskeys = true
	}

	s.logger.Info("fallback authentication succeeded",
		"username", username,
		"user_id", record.UserID,
		"has_passkeys", hasPasskeys)

	result := &FallbackResult{
		Success:          true,
		UserID:           record.UserID,
		Token:            token,
		PasskeyAvailable: hasPasskeys,
	}
	if cfg.PromptPasskeySetup && !hasPasskeys {
		result.Message = "consider setting up a passkey for faster sign-in"
	}
	return result, nil
}

// ShouldOfferFallback reports whether the fallback form should be shown for a
// username, without revealing whether the account exists.
func (s *Service) ShouldOfferFallback(ctx context.Context, username string) (*FallbackStatus, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	cfg := s.FallbackConfig()
	if !cfg.Enabled || s.passwords == nil {
		return &FallbackStatus{Available: false, Reason: "fallback disabled"}, nil
	}
	if s.IsLocked(username) {
		return &FallbackStatus{Available: false, Reason: "account locked"}, nil
	}

	status := &FallbackStatus{Available: true}
	creds, err := s.creds.GetByUsername(ctx, username)
	if err != nil && !IsUserNotFound(err) {
		return nil, WrapError("get credentials", err)
	}
	status.HasPasskeys = len(creds) > 0
	return status, nil
}

// failFallback records a failed attempt, locking the account once the
// configured limit is reached. The caller's result never distinguishes an
// unknown username from a wrong password.
func (s *Service) failFallback(username string, cfg FallbackConfig) *FallbackResult {
	recordFallbackAttempt(false)

	s.fallbackMu.Lock()
	tracker, ok := s.fallbackAttempts[username]
	if !ok {
		tracker = &fallbackTracker{}
		s.fallbackAttempts[username] = tracker
	}
	tracker.attempts++
	remaining := cfg.MaxAttempts - tracker.attempts
	if remaining <= 0 {
		tracker.lockedUntil = s.now().Add(cfg.LockoutDuration)
		tracker.attempts = 0
		s.fallbackMu.Unlock()

		fallbackLockoutsTotal.Inc()
		s.logger.Warn("fallback lockout triggered",
			"username", username,
			"duration", cfg.LockoutDuration)
		return &FallbackResult{
			Success: false,
			Message: "too many failed attempts, account temporarily locked",
		}
	}
	s.fallbackMu.Unlock()

	return &FallbackResult{
		Success: false,
		Message: fmt.Sprintf("invalid username or password, %d attempts remaining", remaining),
	}
}

// ClearFallbackAttempts resets the failure counter and any active lockout
// for the username, unlocking the account immediately. It is also called
// after every successful fallback authentication.
func (s *Service) ClearFallbackAttempts(username string) {
	s.fallbackMu.Lock()
	delete(s.fallbackAttempts, username)
	s.fallbackMu.Unlock()
}

// issueToken mints a session token through the configured TokenGenerator, or
// an opaque random token when none is configured.
func (s *Service) issueToken(ctx context.Context, userID string) (string, error) {
	if s.tokens != nil {
		return s.tokens.GenerateToken(ctx, userID)
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return userID + ":" + encodeBase64URL(buf), nil
}

// HashPassword hashes a password with Argon2id and returns it in PHC string
// format, suitable for storage in a PasswordStore.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyPassword checks a password against a PHC-format Argon2 hash in
// constant time. A malformed hash is an error; a mismatch is (false, nil).
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return false, fmt.Errorf("malformed password hash")
	}
	variant := parts[1]
	if variant != "argon2id" && variant != "argon2i" {
		return false, fmt.Errorf("unsupported hash variant %q", variant)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("malformed hash version: %w", err)
	}
	var memory, iterations uint32
	var parallelism uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		return false, fmt.Errorf("malformed hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed hash salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed hash digest: %w", err)
	}

	var got []byte
	if variant == "argon2id" {
		got = argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	} else {
		got = argon2.Key([]byte(password), salt, iterations, memory, parallelism, uint32(len(want)))
	}
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
