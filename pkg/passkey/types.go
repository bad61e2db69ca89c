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
	"encoding/base64"
	"strings"
	"time"
)

// Operation identifies which ceremony a challenge was issued for. A challenge
// issued for one operation must never satisfy the other.
type Operation string

// Ceremony operations.
const (
	OperationRegistration   Operation = "registration"
	OperationAuthentication Operation = "authentication"
)

// MaxCredentialNameLength is the maximum length of a credential's
// user-facing label after sanitization.
const MaxCredentialNameLength = 64

// Transports recognized in credential descriptors.
var validTransports = map[string]bool{
	"usb":      true,
	"nfc":      true,
	"ble":      true,
	"internal": true,
	"hybrid":   true,
}

// Credential is a registered passkey stored by the relying party, one per
// authenticator.
type Credential struct {
	// ID is the opaque storage identifier for this record.
	ID string `json:"id"`

	// UserID is the account this credential belongs to.
	UserID string `json:"user_id"`

	// CredentialID is the raw credential id assigned by the authenticator.
	// It is globally unique across all users.
	CredentialID []byte `json:"credential_id"`

	// PublicKey is the credential's public key in COSE format. Storage
	// treats it as opaque bytes; only the signature verifier interprets it.
	PublicKey []byte `json:"public_key"`

	// Counter is the signature counter reported by the authenticator,
	// used for clone detection. Authenticators without counters always
	// report zero.
	Counter uint32 `json:"counter"`

	// Name is the sanitized user-facing label.
	Name string `json:"name"`

	// AAGUID identifies the authenticator model (16 bytes, may be empty).
	AAGUID []byte `json:"aaguid,omitempty"`

	// Transports lists how the authenticator communicates (usb, nfc, ble,
	// internal, hybrid).
	Transports []string `json:"transports,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// Challenge is an ephemeral single-use ceremony challenge.
type Challenge struct {
	// Challenge is the 32 random bytes sent to the client.
	Challenge []byte

	// UserID is the bound account. Set only for registration challenges.
	UserID string

	// CreatedAt is when the challenge was issued.
	CreatedAt time.Time

	// Operation is the ceremony the challenge was issued for.
	Operation Operation
}

// RelyingParty identifies the service to the authenticator.
type RelyingParty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserEntity describes the account being registered.
type UserEntity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// CredentialParameter is an allowed credential algorithm.
type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int    `json:"alg"`
}

// CredentialDescriptor references an existing credential in allow/exclude
// lists.
type CredentialDescriptor struct {
	Type       string   `json:"type"`
	ID         string   `json:"id"`
	Transports []string `json:"transports,omitempty"`
}

// AuthenticatorSelection expresses authenticator requirements for
// registration.
type AuthenticatorSelection struct {
	ResidentKey        string `json:"residentKey"`
	RequireResidentKey bool   `json:"requireResidentKey"`
	UserVerification   string `json:"userVerification"`
}

// CreationOptions is the PublicKeyCredentialCreationOptions-shaped payload
// returned to the client at the start of registration.
type CreationOptions struct {
	Challenge              string                 `json:"challenge"`
	RP                     RelyingParty           `json:"rp"`
	User                   UserEntity             `json:"user"`
	PubKeyCredParams       []CredentialParameter  `json:"pubKeyCredParams"`
	Timeout                int64                  `json:"timeout"`
	Attestation            string                 `json:"attestation"`
	AuthenticatorSelection AuthenticatorSelection `json:"authenticatorSelection"`
	ExcludeCredentials     []CredentialDescriptor `json:"excludeCredentials"`
}

// RequestOptions is the assertion options payload returned to the client at
// the start of authentication.
type RequestOptions struct {
	Challenge        string                 `json:"challenge"`
	Timeout          int64                  `json:"timeout"`
	RPID             string                 `json:"rpId"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials"`
	UserVerification string                 `json:"userVerification"`
}

// AttestationResponse is the authenticator's registration output.
type AttestationResponse struct {
	ClientDataJSON    string   `json:"clientDataJSON"`
	AttestationObject string   `json:"attestationObject"`
	Transports        []string `json:"transports,omitempty"`
}

// RegistrationResponse is the client's answer to CreationOptions.
type RegistrationResponse struct {
	ID       string              `json:"id"`
	RawID    string              `json:"rawId"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

// AssertionResponse is the authenticator's authentication output.
type AssertionResponse struct {
	ClientDataJSON    string `json:"clientDataJSON"`
	AuthenticatorData string `json:"authenticatorData"`
	Signature         string `json:"signature"`
	UserHandle        string `json:"userHandle,omitempty"`
}

// AuthenticationResponse is the client's answer to RequestOptions.
type AuthenticationResponse struct {
	ID       string            `json:"id"`
	RawID    string            `json:"rawId"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}

// collectedClientData is the browser-produced client data common to both
// ceremonies.
type collectedClientData struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge"`
	Origin    string `json:"origin"`
}

// RegistrationResult reports the outcome of a registration ceremony.
type RegistrationResult struct {
	Success      bool   `json:"success"`
	CredentialID string `json:"credential_id,omitempty"`
}

// AuthenticationResult reports the outcome of an authentication ceremony.
// UsedFallback is always false here; the field keeps the response shape
// shared with the password fallback path.
type AuthenticationResult struct {
	Success      bool   `json:"success"`
	UserID       string `json:"user_id,omitempty"`
	CredentialID string `json:"credential_id,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
}

// FallbackResult reports the outcome of a password fallback attempt. Lockout
// and bad credentials are reported through Success/Message rather than an
// error so clients can render them without special-casing a status code.
type FallbackResult struct {
	Success          bool   `json:"success"`
	UserID           string `json:"user_id,omitempty"`
	Token            string `json:"token,omitempty"`
	Message          string `json:"error,omitempty"`
	PasskeyAvailable bool   `json:"passkey_available"`
}

// CredentialSummary is the public listing shape for a stored credential.
// CredentialID is the base64url credential id that rename and delete
// operations address.
type CredentialSummary struct {
	ID           string    `json:"id"`
	CredentialID string    `json:"credential_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at,omitempty"`
}

// SanitizeName strips a credential label down to letters, digits, spaces,
// hyphens and underscores, truncated to MaxCredentialNameLength. Sanitizing
// an already-sanitized name returns it unchanged.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r >= '0' && r <= '9',
			r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= MaxCredentialNameLength {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

// FilterTransports drops transport hints the relying party does not
// recognize.
func FilterTransports(transports []string) []string {
	var out []string
	for _, t := range transports {
		if validTransports[t] {
			out = append(out, t)
		}
	}
	return out
}

// decodeBase64URL decodes base64url input with or without padding.
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

// encodeBase64URL encodes bytes as unpadded base64url, the encoding WebAuthn
// uses on the wire.
func encodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
