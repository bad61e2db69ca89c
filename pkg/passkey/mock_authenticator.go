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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MockAuthenticator is a software authenticator that produces valid
// registration and authentication responses without browser or hardware
// involvement. It exists for tests and local development.
type MockAuthenticator struct {
	ecKey  *ecdsa.PrivateKey
	rsaKey *rsa.PrivateKey

	credentialID []byte
	aaguid       [16]byte
	signCount    uint32
	counterless  bool
	userPresent  bool
	userVerified bool
}

// MockOption customizes a MockAuthenticator.
type MockOption func(*MockAuthenticator)

// WithRSA makes the authenticator produce an RS256 credential instead of the
// default ES256.
func WithRSA() MockOption {
	return func(m *MockAuthenticator) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(fmt.Sprintf("generate rsa key: %v", err))
		}
		m.rsaKey = key
		m.ecKey = nil
	}
}

// WithCredentialID overrides the random credential id.
func WithCredentialID(id []byte) MockOption {
	return func(m *MockAuthenticator) {
		m.credentialID = id
	}
}

// WithSignCount sets the initial signature counter.
func WithSignCount(n uint32) MockOption {
	return func(m *MockAuthenticator) {
		m.signCount = n
	}
}

// WithoutCounter makes the authenticator always report a zero counter, like
// platform authenticators that do not implement one.
func WithoutCounter() MockOption {
	return func(m *MockAuthenticator) {
		m.counterless = true
	}
}

// WithUserPresent sets the user-present flag on produced assertions.
func WithUserPresent(present bool) MockOption {
	return func(m *MockAuthenticator) {
		m.userPresent = present
	}
}

// WithUserVerified sets the user-verified flag on produced assertions.
func WithUserVerified(verified bool) MockOption {
	return func(m *MockAuthenticator) {
		m.userVerified = verified
	}
}

// WithAAGUID sets the authenticator model identifier.
func WithAAGUID(aaguid [16]byte) MockOption {
	return func(m *MockAuthenticator) {
		m.aaguid = aaguid
	}
}

// NewMockAuthenticator creates a software authenticator with a fresh P-256
// key and random credential id.
func NewMockAuthenticator(opts ...MockOption) (*MockAuthenticator, error) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ec key: %w", err)
	}

	credentialID := make([]byte, 32)
	if _, err := rand.Read(credentialID); err != nil {
		return nil, fmt.Errorf("generate credential id: %w", err)
	}

	m := &MockAuthenticator{
		ecKey:        ecKey,
		credentialID: credentialID,
		userPresent:  true,
		userVerified: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CredentialID returns the authenticator's credential id.
func (m *MockAuthenticator) CredentialID() []byte {
	return m.credentialID
}

// SetSignCount overrides the signature counter, letting tests replay or
// regress the counter the way a cloned authenticator would.
func (m *MockAuthenticator) SetSignCount(n uint32) {
	m.signCount = n
}

// PublicKeyCOSE returns the credential public key in COSE form.
func (m *MockAuthenticator) PublicKeyCOSE() ([]byte, error) {
	if m.rsaKey != nil {
		e := exponentBytes(m.rsaKey.PublicKey.E)
		return cbor.Marshal(map[int]interface{}{
			1:  coseKeyTypeRSA,
			3:  AlgRS256,
			-1: m.rsaKey.PublicKey.N.Bytes(),
			-2: e,
		})
	}
	return cbor.Marshal(map[int]interface{}{
		1:  coseKeyTypeEC2,
		3:  AlgES256,
		-1: 1, // P-256
		-2: padCoordinate(m.ecKey.PublicKey.X.Bytes()),
		-3: padCoordinate(m.ecKey.PublicKey.Y.Bytes()),
	})
}

// CreateRegistrationResponse produces a registration response for the given
// challenge, as a browser would after navigator.credentials.create.
func (m *MockAuthenticator) CreateRegistrationResponse(challenge, origin, rpID string) (*RegistrationResponse, error) {
	clientDataJSON, err := json.Marshal(collectedClientData{
		Type:      "webauthn.create",
		Challenge: challenge,
		Origin:    origin,
	})
	if err != nil {
		return nil, err
	}

	publicKey, err := m.PublicKeyCOSE()
	if err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))
	authData := make([]byte, 0, authDataCredIDOffset+len(m.credentialID)+len(publicKey))
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, m.flags()|flagAttestedCredential)
	authData = binary.BigEndian.AppendUint32(authData, m.reportedCount())
	authData = append(authData, m.aaguid[:]...)
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(m.credentialID)))
	authData = append(authData, m.credentialID...)
	authData = append(authData, publicKey...)

	attestationObject, err := cbor.Marshal(map[string]interface{}{
		"authData": authData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	id := encodeBase64URL(m.credentialID)
	return &RegistrationResponse{
		ID:    id,
		RawID: id,
		Type:  "public-key",
		Response: AttestationResponse{
			ClientDataJSON:    encodeBase64URL(clientDataJSON),
			AttestationObject: encodeBase64URL(attestationObject),
			Transports:        []string{"internal"},
		},
	}, nil
}

// CreateAuthenticationResponse produces an assertion for the given challenge,
// as a browser would after navigator.credentials.get. The signature counter
// is incremented before signing unless the authenticator is counter-less.
func (m *MockAuthenticator) CreateAuthenticationResponse(challenge, origin, rpID string) (*AuthenticationResponse, error) {
	clientDataJSON, err := json.Marshal(collectedClientData{
		Type:      "webauthn.get",
		Challenge: challenge,
		Origin:    origin,
	})
	if err != nil {
		return nil, err
	}

	if !m.counterless {
		m.signCount++
	}

	rpIDHash := sha256.Sum256([]byte(rpID))
	authData := make([]byte, 0, authDataMinLength)
	authData = append(authData, rpIDHash[:]...)
	authData = append(authData, m.flags())
	authData = binary.BigEndian.AppendUint32(authData, m.reportedCount())

	clientDataHash := sha256.Sum256(clientDataJSON)
	signed := make([]byte, 0, len(authData)+len(clientDataHash))
	signed = append(signed, authData...)
	signed = append(signed, clientDataHash[:]...)
	digest := sha256.Sum256(signed)

	var signature []byte
	if m.rsaKey != nil {
		signature, err = rsa.SignPKCS1v15(rand.Reader, m.rsaKey, crypto.SHA256, digest[:])
	} else {
		signature, err = ecdsa.SignASN1(rand.Reader, m.ecKey, digest[:])
	}
	if err != nil {
		return nil, fmt.Errorf("sign assertion: %w", err)
	}

	id := encodeBase64URL(m.credentialID)
	return &AuthenticationResponse{
		ID:    id,
		RawID: id,
		Type:  "public-key",
		Response: AssertionResponse{
			ClientDataJSON:    encodeBase64URL(clientDataJSON),
			AuthenticatorData: encodeBase64URL(authData),
			Signature:         encodeBase64URL(signature),
		},
	}, nil
}

func (m *MockAuthenticator) flags() byte {
	var flags byte
	if m.userPresent {
		flags |= flagUserPresent
	}
	if m.userVerified {
		flags |= flagUserVerified
	}
	return flags
}

func (m *MockAuthenticator) reportedCount() uint32 {
	if m.counterless {
		return 0
	}
	return m.signCount
}

// padCoordinate left-pads an EC coordinate to the 32 bytes P-256 requires.
func padCoordinate(b []byte) []byte {
	if len(b) >= 32 {
		return b
	}
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

// exponentBytes encodes an RSA public exponent as its minimal big-endian
// bytes, the form COSE carries it in.
func exponentBytes(e int) []byte {
	out := make([]byte, 0, 4)
	for shift := 24; shift >= 0; shift -= 8 {
		b := byte(e >> shift)
		if b == 0 && len(out) == 0 {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		out = append(out, 0)
	}
	return out
}
