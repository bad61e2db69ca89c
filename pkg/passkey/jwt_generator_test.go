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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testJWTSecret = []byte(strings.Repeat("s", 32))

func TestJWTGeneratorRoundTrip(t *testing.T) {
	generator, err := NewJWTGenerator(testJWTSecret, "go-passkey", time.Hour)
	require.NoError(t, err)

	token, err := generator.GenerateToken(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := generator.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", subject)
}

func TestJWTGeneratorRejectsShortSecret(t *testing.T) {
	_, err := NewJWTGenerator([]byte("short"), "go-passkey", time.Hour)
	assert.ErrorContains(t, err, "at least 32 bytes")
}

func TestJWTGeneratorRejectsWrongSecret(t *testing.T) {
	generator, err := NewJWTGenerator(testJWTSecret, "go-passkey", time.Hour)
	require.NoError(t, err)
	other, err := NewJWTGenerator([]byte(strings.Repeat("x", 32)), "go-passkey", time.Hour)
	require.NoError(t, err)

	token, err := generator.GenerateToken(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestJWTGeneratorRejectsExpiredToken(t *testing.T) {
	generator, err := NewJWTGenerator(testJWTSecret, "go-passkey", time.Minute)
	require.NoError(t, err)

	issued := time.Now()
	generator.now = func() time.Time { return issued }

	token, err := generator.GenerateToken(context.Background(), "user-1")
	require.NoError(t, err)

	generator.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = generator.ParseToken(token)
	assert.Error(t, err)
}

func TestJWTGeneratorRejectsWrongIssuer(t *testing.T) {
	minted, err := NewJWTGenerator(testJWTSecret, "someone-else", time.Hour)
	require.NoError(t, err)
	parser, err := NewJWTGenerator(testJWTSecret, "go-passkey", time.Hour)
	require.NoError(t, err)

	token, err := minted.GenerateToken(context.Background(), "user-1")
	require.NoError(t, err)

	_, err = parser.ParseToken(token)
	assert.Error(t, err)
}
