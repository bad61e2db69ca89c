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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeStoreIssue(t *testing.T) {
	store := NewChallengeStore()

	challenge, key, err := store.Issue(OperationRegistration, "user-1")
	require.NoError(t, err)
	assert.Len(t, challenge, ChallengeSize)
	assert.Equal(t, encodeBase64URL(challenge), key)
	assert.Equal(t, 1, store.Count())

	// Successive challenges are unique.
	challenge2, key2, err := store.Issue(OperationRegistration, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, challenge, challenge2)
	assert.NotEqual(t, key, key2)
}

func TestChallengeStoreConsumeSingleUse(t *testing.T) {
	store := NewChallengeStore()

	_, key, err := store.Issue(OperationAuthentication, "")
	require.NoError(t, err)

	entry, err := store.Consume(key)
	require.NoError(t, err)
	assert.Equal(t, OperationAuthentication, entry.Operation)
	assert.Empty(t, entry.UserID)

	// Second consume of the same challenge fails.
	_, err = store.Consume(key)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStoreConsumeUnknown(t *testing.T) {
	store := NewChallengeStore()

	_, err := store.Consume("bm90LWEtcmVhbC1jaGFsbGVuZ2U")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStoreExpiry(t *testing.T) {
	store := NewChallengeStoreWithTTL(300 * time.Second)
	current := time.Now()
	store.now = func() time.Time { return current }

	_, key, err := store.Issue(OperationRegistration, "user-1")
	require.NoError(t, err)

	// Just inside the TTL the challenge is still consumable.
	current = current.Add(299 * time.Second)
	_, keyFresh, err := store.Issue(OperationRegistration, "user-1")
	require.NoError(t, err)
	_, err = store.Consume(keyFresh)
	require.NoError(t, err)

	// Past the TTL the original challenge is expired, and the failed
	// consume still removes it.
	current = current.Add(2 * time.Second)
	_, err = store.Consume(key)
	assert.ErrorIs(t, err, ErrChallengeExpired)

	_, err = store.Consume(key)
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestChallengeStoreCleanup(t *testing.T) {
	store := NewChallengeStoreWithTTL(300 * time.Second)
	current := time.Now()
	store.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		_, _, err := store.Issue(OperationRegistration, "user-1")
		require.NoError(t, err)
	}

	current = current.Add(301 * time.Second)
	_, freshKey, err := store.Issue(OperationAuthentication, "")
	require.NoError(t, err)

	removed := store.Cleanup()
	assert.Equal(t, 5, removed)
	assert.Equal(t, 1, store.Count())

	_, err = store.Consume(freshKey)
	assert.NoError(t, err)
}

func TestChallengeStoreConcurrentConsume(t *testing.T) {
	store := NewChallengeStore()

	_, key, err := store.Issue(OperationAuthentication, "")
	require.NoError(t, err)

	const goroutines = 16
	var wg sync.WaitGroup
	successes := make(chan struct{}, goroutines)

	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			if _, err := store.Consume(key); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	// Exactly one goroutine wins the challenge.
	assert.Len(t, successes, 1)
}
