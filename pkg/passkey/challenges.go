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
	"crypto/rand"
	"sync"
	"time"
)

// ChallengeSize is the number of random bytes in a ceremony challenge.
const ChallengeSize = 32

// DefaultChallengeTTL is how long an issued challenge stays consumable.
const DefaultChallengeTTL = 300 * time.Second

// ChallengeStore issues and tracks single-use ceremony challenges in memory.
// Challenges are keyed by their base64url encoding and consumed atomically,
// so two concurrent verifications of the same challenge succeed at most once.
//
// The store is process-local. Deployments running multiple authentication
// service instances must replace it with a shared store.
type ChallengeStore struct {
	mu      sync.RWMutex
	entries map[string]*Challenge
	ttl     time.Duration
	now     func() time.Time
}

// NewChallengeStore creates a challenge store with the default TTL.
func NewChallengeStore() *ChallengeStore {
	return NewChallengeStoreWithTTL(DefaultChallengeTTL)
}

// NewChallengeStoreWithTTL creates a challenge store with a custom TTL.
func NewChallengeStoreWithTTL(ttl time.Duration) *ChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeStore{
		entries: make(map[string]*Challenge),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue draws a fresh challenge from the system RNG and stores it keyed by
// its base64url encoding. userID is bound only for registration challenges
// and may be empty for authentication.
func (s *ChallengeStore) Issue(op Operation, userID string) ([]byte, string, error) {
	challenge := make([]byte, ChallengeSize)
	if _, err := rand.Read(challenge); err != nil {
		return nil, "", WrapError("issue challenge", ErrChallengeGenerationFailed)
	}
	key := encodeBase64URL(challenge)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &Challenge{
		Challenge: challenge,
		UserID:    userID,
		CreatedAt: s.now(),
		Operation: op,
	}

	return challenge, key, nil
}

// Consume atomically removes and returns the challenge stored under the
// given base64url key. The removal and the freshness check happen under one
// lock acquisition: the loser of a race between two concurrent consumers
// gets ErrChallengeNotFound, and an expired challenge is removed and
// rejected with ErrChallengeExpired.
func (s *ChallengeStore) Consume(key string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrChallengeNotFound
	}
	delete(s.entries, key)

	if s.now().Sub(entry.CreatedAt) > s.ttl {
		return nil, ErrChallengeExpired
	}
	return entry, nil
}

// Cleanup evicts challenges older than the TTL and reports how many were
// removed. It bounds memory only; Consume rejects expired entries lazily, so
// correctness never depends on the sweep running.
func (s *ChallengeStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if now.Sub(entry.CreatedAt) > s.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// Count returns the number of pending challenges.
func (s *ChallengeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
