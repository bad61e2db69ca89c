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
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// MemoryCredentialStore is an in-memory CredentialStore for development and
// testing. Production deployments should use relational storage.
type MemoryCredentialStore struct {
	mu        sync.RWMutex
	byID      map[string]*Credential // hex(credential id) -> credential
	byUser    map[string][]string    // user id -> hex credential ids
	usernames map[string]string      // username -> user id
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:      make(map[string]*Credential),
		byUser:    make(map[string][]string),
		usernames: make(map[string]string),
	}
}

// MapUsername associates a username with a user id so GetByUsername can
// resolve it. Relational stores do this with a join; the memory store needs
// the mapping registered explicitly.
func (s *MemoryCredentialStore) MapUsername(username, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usernames[username] = userID
}

// Save stores a new credential, rejecting duplicate credential ids.
func (s *MemoryCredentialStore) Save(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.CredentialID)
	if _, exists := s.byID[key]; exists {
		return fmt.Errorf("credential already registered")
	}

	stored := *cred
	s.byID[key] = &stored
	s.byUser[cred.UserID] = append(s.byUser[cred.UserID], key)
	return nil
}

// GetByCredentialID retrieves a credential by its raw credential id.
func (s *MemoryCredentialStore) GetByCredentialID(_ context.Context, credentialID []byte) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrPasskeyNotFound
	}
	out := *cred
	return &out, nil
}

// GetByUserID retrieves all credentials for a user.
func (s *MemoryCredentialStore) GetByUserID(_ context.Context, userID string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credentialsForUser(userID), nil
}

// GetByUsername retrieves all credentials for the account registered under
// username.
func (s *MemoryCredentialStore) GetByUsername(_ context.Context, username string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.usernames[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return s.credentialsForUser(userID), nil
}

// credentialsForUser must be called with the lock held.
func (s *MemoryCredentialStore) credentialsForUser(userID string) []*Credential {
	keys := s.byUser[userID]
	out := make([]*Credential, 0, len(keys))
	for _, key := range keys {
		if cred, ok := s.byID[key]; ok {
			c := *cred
			out = append(out, &c)
		}
	}
	return out
}

// UpdateCounter sets the signature counter and last-used timestamp.
func (s *MemoryCredentialStore) UpdateCounter(_ context.Context, credentialID []byte, counter uint32, lastUsedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return ErrPasskeyNotFound
	}
	cred.Counter = counter
	cred.LastUsedAt = lastUsedAt
	return nil
}

// Rename changes a credential's label, scoped to its owner.
func (s *MemoryCredentialStore) Rename(_ context.Context, userID string, credentialID []byte, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok || cred.UserID != userID {
		return ErrPasskeyNotFound
	}
	cred.Name = name
	return nil
}

// Delete removes a credential, scoped to its owner.
func (s *MemoryCredentialStore) Delete(_ context.Context, userID string, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(credentialID)
	cred, ok := s.byID[key]
	if !ok || cred.UserID != userID {
		return ErrPasskeyNotFound
	}
	delete(s.byID, key)

	keys := s.byUser[userID]
	for i, k := range keys {
		if k == key {
			s.byUser[userID] = append(keys[:i], keys[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryPasswordStore is an in-memory PasswordStore for development and
// testing.
type MemoryPasswordStore struct {
	mu       sync.RWMutex
	accounts map[string]*PasswordRecord // username -> record
}

// NewMemoryPasswordStore creates an empty in-memory password store.
func NewMemoryPasswordStore() *MemoryPasswordStore {
	return &MemoryPasswordStore{
		accounts: make(map[string]*PasswordRecord),
	}
}

// SetPassword hashes and stores a password for the username.
func (s *MemoryPasswordStore) SetPassword(username, userID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = &PasswordRecord{UserID: userID, PasswordHash: hash}
	return nil
}

// GetByUsername looks up an account by username.
func (s *MemoryPasswordStore) GetByUsername(_ context.Context, username string) (*PasswordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.accounts[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *record
	return &out, nil
}
