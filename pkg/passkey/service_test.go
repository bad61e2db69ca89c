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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceValidation(t *testing.T) {
	creds := NewMemoryCredentialStore()

	_, err := NewService(ServiceParams{CredentialStore: creds})
	assert.ErrorContains(t, err, "config is required")

	_, err = NewService(ServiceParams{Config: &Config{RPID: "example.com"}})
	assert.ErrorContains(t, err, "credential store is required")

	_, err = NewService(ServiceParams{
		Config:          &Config{RPID: "example.com"},
		CredentialStore: creds,
	})
	assert.ErrorContains(t, err, "invalid config")
}

func TestListCredentials(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, first, testUserID, "Laptop")

	second, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, second, testUserID, "Phone")

	summaries, err := svc.ListCredentials(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	names := []string{summaries[0].Name, summaries[1].Name}
	assert.Contains(t, names, "Laptop")
	assert.Contains(t, names, "Phone")
	for _, s := range summaries {
		assert.NotEmpty(t, s.ID)
		assert.False(t, s.CreatedAt.IsZero())
	}

	// A user with no credentials lists empty.
	summaries, err = svc.ListCredentials(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestRenameCredential(t *testing.T) {
	svc, creds, _ := newTestService(t)
	ctx := context.Background()

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, authenticator, testUserID, "old name")

	require.NoError(t, svc.RenameCredential(ctx, testUserID, authenticator.CredentialID(), "new <b>name</b>"))

	stored, err := creds.GetByCredentialID(ctx, authenticator.CredentialID())
	require.NoError(t, err)
	assert.Equal(t, "new bnameb", stored.Name)

	// A name that sanitizes to nothing is rejected.
	err = svc.RenameCredential(ctx, testUserID, authenticator.CredentialID(), "!!!")
	assert.ErrorIs(t, err, ErrInvalidCredentialName)

	// Another user cannot rename it.
	err = svc.RenameCredential(ctx, "user-2", authenticator.CredentialID(), "stolen")
	assert.ErrorIs(t, err, ErrPasskeyNotFound)
}

func TestDeleteCredential(t *testing.T) {
	svc, creds, _ := newTestService(t)
	ctx := context.Background()

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, authenticator, testUserID, "key")

	// Another user cannot delete it.
	err = svc.DeleteCredential(ctx, "user-2", authenticator.CredentialID())
	assert.ErrorIs(t, err, ErrPasskeyNotFound)

	require.NoError(t, svc.DeleteCredential(ctx, testUserID, authenticator.CredentialID()))
	_, err = creds.GetByCredentialID(ctx, authenticator.CredentialID())
	assert.ErrorIs(t, err, ErrPasskeyNotFound)

	// Deleting a deleted credential also reports not-found.
	err = svc.DeleteCredential(ctx, testUserID, authenticator.CredentialID())
	assert.ErrorIs(t, err, ErrPasskeyNotFound)
}

// TestRegisterThenAuthenticate walks the two ceremonies end to end the way a
// browser would drive them.
func TestRegisterThenAuthenticate(t *testing.T) {
	svc, creds, _ := newTestService(t)
	ctx := context.Background()

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)

	// Registration.
	creationOptions, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)
	registrationResponse, err := authenticator.CreateRegistrationResponse(creationOptions.Challenge, testOrigin, testRPID)
	require.NoError(t, err)
	registration, err := svc.VerifyRegistration(ctx, registrationResponse, "E2E Key")
	require.NoError(t, err)
	require.True(t, registration.Success)

	// Authentication against the freshly registered credential.
	requestOptions, err := svc.GenerateAuthenticationOptions(ctx, "")
	require.NoError(t, err)
	assertionResponse, err := authenticator.CreateAuthenticationResponse(requestOptions.Challenge, testOrigin, testRPID)
	require.NoError(t, err)
	authentication, err := svc.VerifyAuthentication(ctx, assertionResponse)
	require.NoError(t, err)
	assert.True(t, authentication.Success)
	assert.Equal(t, testUserID, authentication.UserID)

	stored, err := creds.GetByCredentialID(ctx, authenticator.CredentialID())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.Counter)
}
