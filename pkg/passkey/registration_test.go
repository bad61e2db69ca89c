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
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrigin = "https://example.com"
	testUserID = "user-1"
)

// newTestService builds a service backed by memory stores.
func newTestService(t *testing.T) (*Service, *MemoryCredentialStore, *MemoryPasswordStore) {
	t.Helper()
	creds := NewMemoryCredentialStore()
	passwords := NewMemoryPasswordStore()

	svc, err := NewService(ServiceParams{
		Config: &Config{
			RPID:     testRPID,
			RPName:   "Example Corp",
			RPOrigin: testOrigin,
		},
		CredentialStore: creds,
		PasswordStore:   passwords,
	})
	require.NoError(t, err)
	return svc, creds, passwords
}

// register runs a full registration ceremony with the given authenticator.
func register(t *testing.T, svc *Service, authenticator *MockAuthenticator, userID, name string) *RegistrationResult {
	t.Helper()
	ctx := context.Background()

	options, err := svc.GenerateRegistrationOptions(ctx, userID, userID+"@example.com", "Test User")
	require.NoError(t, err)

	resp, err := authenticator.CreateRegistrationResponse(options.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	result, err := svc.VerifyRegistration(ctx, resp, name)
	require.NoError(t, err)
	require.True(t, result.Success)
	return result
}

func TestGenerateRegistrationOptions(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	options, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	assert.NotEmpty(t, options.Challenge)
	assert.Equal(t, testRPID, options.RP.ID)
	assert.Equal(t, "Example Corp", options.RP.Name)
	assert.Equal(t, encodeBase64URL([]byte(testUserID)), options.User.ID)
	assert.Equal(t, "user@example.com", options.User.Name)
	assert.Equal(t, int64(60000), options.Timeout)
	assert.Equal(t, "none", options.Attestation)
	assert.Empty(t, options.ExcludeCredentials)

	require.Len(t, options.PubKeyCredParams, 2)
	assert.Equal(t, AlgES256, options.PubKeyCredParams[0].Alg)
	assert.Equal(t, AlgRS256, options.PubKeyCredParams[1].Alg)
}

func TestGenerateRegistrationOptionsRequiresUserID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GenerateRegistrationOptions(context.Background(), "", "user@example.com", "Test User")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestGenerateRegistrationOptionsExcludesExisting(t *testing.T) {
	svc, _, _ := newTestService(t)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, authenticator, testUserID, "First Key")

	options, err := svc.GenerateRegistrationOptions(context.Background(), testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	require.Len(t, options.ExcludeCredentials, 1)
	assert.Equal(t, encodeBase64URL(authenticator.CredentialID()), options.ExcludeCredentials[0].ID)
}

func TestVerifyRegistration(t *testing.T) {
	svc, creds, _ := newTestService(t)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)

	result := register(t, svc, authenticator, testUserID, "My YubiKey")
	assert.Equal(t, encodeBase64URL(authenticator.CredentialID()), result.CredentialID)

	stored, err := creds.GetByCredentialID(context.Background(), authenticator.CredentialID())
	require.NoError(t, err)
	assert.Equal(t, testUserID, stored.UserID)
	assert.Equal(t, "My YubiKey", stored.Name)
	assert.Equal(t, uint32(0), stored.Counter)
	assert.Equal(t, []string{"internal"}, stored.Transports)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestVerifyRegistrationRS256(t *testing.T) {
	svc, creds, _ := newTestService(t)

	authenticator, err := NewMockAuthenticator(WithRSA())
	require.NoError(t, err)

	register(t, svc, authenticator, testUserID, "RSA Key")

	stored, err := creds.GetByCredentialID(context.Background(), authenticator.CredentialID())
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PublicKey)
}

func TestVerifyRegistrationSanitizesName(t *testing.T) {
	svc, creds, _ := newTestService(t)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, authenticator, testUserID, "<b>key</b>!!")

	stored, err := creds.GetByCredentialID(context.Background(), authenticator.CredentialID())
	require.NoError(t, err)
	assert.Equal(t, "bkeyb", stored.Name)
}

func TestVerifyRegistrationDefaultsEmptyName(t *testing.T) {
	svc, creds, _ := newTestService(t)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	register(t, svc, authenticator, testUserID, " ☃")

	stored, err := creds.GetByCredentialID(context.Background(), authenticator.CredentialID())
	require.NoError(t, err)
	assert.Contains(t, stored.Name, "Passkey ")
}

func TestVerifyRegistrationChallengeSingleUse(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	options, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	resp, err := authenticator.CreateRegistrationResponse(options.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	_, err = svc.VerifyRegistration(ctx, resp, "key")
	require.NoError(t, err)

	// Replaying the same response fails on the consumed challenge.
	second, err := NewMockAuthenticator()
	require.NoError(t, err)
	replay, err := second.CreateRegistrationResponse(options.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	_, err = svc.VerifyRegistration(ctx, replay, "key")
	assert.ErrorIs(t, err, ErrChallengeNotFound)
}

func TestVerifyRegistrationExpiredChallenge(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	current := svc.now()
	svc.challenges.now = func() time.Time { return current }

	options, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	resp, err := authenticator.CreateRegistrationResponse(options.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	current = current.Add(301 * time.Second)
	_, err = svc.VerifyRegistration(ctx, resp, "key")
	assert.ErrorIs(t, err, ErrChallengeExpired)
}

func TestVerifyRegistrationWrongOrigin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	options, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)

	tests := []struct {
		name   string
		origin string
	}{
		{name: "different host", origin: "https://evil.com"},
		{name: "subdomain", origin: "https://sub.example.com"},
		{name: "different scheme", origin: "http://example.com"},
		{name: "explicit default port", origin: "https://example.com:443"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := authenticator.CreateRegistrationResponse(options.Challenge, tc.origin, testRPID)
			require.NoError(t, err)

			_, err = svc.VerifyRegistration(ctx, resp, "key")
			assert.ErrorIs(t, err, ErrInvalidOrigin)
		})
	}
}

func TestVerifyRegistrationWrongCeremonyType(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	options, err := svc.GenerateRegistrationOptions(ctx, testUserID, "user@example.com", "Test User")
	require.NoError(t, err)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	resp, err := authenticator.CreateRegistrationResponse(options.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	// Swap in client data with the authentication ceremony type.
	clientDataJSON, err := json.Marshal(collectedClientData{
		Type:      "webauthn.get",
		Challenge: options.Challenge,
		Origin:    testOrigin,
	})
	require.NoError(t, err)
	resp.Response.ClientDataJSON = encodeBase64URL(clientDataJSON)

	_, err = svc.VerifyRegistration(ctx, resp, "key")
	assert.ErrorIs(t, err, ErrInvalidCeremonyType)
}

func TestVerifyRegistrationAuthenticationChallengeRejected(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	// Issue an authentication challenge and present it to registration.
	requestOptions, err := svc.GenerateAuthenticationOptions(ctx, "")
	require.NoError(t, err)

	authenticator, err := NewMockAuthenticator()
	require.NoError(t, err)
	resp, err := authenticator.CreateRegistrationResponse(requestOptions.Challenge, testOrigin, testRPID)
	require.NoError(t, err)

	_, err = svc.VerifyRegistration(ctx, resp, "key")
	assert.ErrorIs(t, err, ErrInvalidCeremonyType)
}

func TestVerifyRegistrationGarbageClientData(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp := &RegistrationResponse{
		RawID: "AAAA",
		Response: AttestationResponse{
			ClientDataJSON:    "!!!not-base64!!!",
			AttestationObject: "AAAA",
		},
	}
	_, err := svc.VerifyRegistration(context.Background(), resp, "key")
	assert.ErrorIs(t, err, ErrInvalidClientData)
}
