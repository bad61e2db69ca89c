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
	"bytes"
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
)

// Authenticator data flag bits.
const (
	flagUserPresent        = 0x01
	flagUserVerified       = 0x04
	flagAttestedCredential = 0x40
)

// Authenticator data layout offsets. The fixed header is the 32-byte RP ID
// hash, one flags byte, and a 4-byte big-endian signature counter; attested
// credential data follows with a 16-byte AAGUID and a length-prefixed
// credential id.
const (
	authDataMinLength     = 37
	authDataFlagsOffset   = 32
	authDataCounterOffset = 33
	authDataAAGUIDOffset  = 37
	authDataCredIDLenOff  = 53
	authDataCredIDOffset  = 55
)

// AttestationObject is the CBOR envelope an authenticator returns at
// registration. The attestation statement is carried but never verified;
// the service operates with attestation "none".
type AttestationObject struct {
	AuthData []byte          `cbor:"authData"`
	Fmt      string          `cbor:"fmt"`
	AttStmt  cbor.RawMessage `cbor:"attStmt"`
}

// AttestedCredential is the usable output of parsing an attestation object.
type AttestedCredential struct {
	// AuthData is the raw authenticator data buffer.
	AuthData []byte

	// AAGUID identifies the authenticator model (16 bytes).
	AAGUID []byte

	// CredentialID is the authenticator-assigned credential id.
	CredentialID []byte

	// PublicKey is the credential public key in COSE form, kept opaque
	// until authentication time.
	PublicKey []byte
}

// ParseAttestationObject decodes an untrusted CBOR attestation object and
// extracts the attested credential. rpIDHash is the SHA-256 of the
// configured relying party id; a mismatch rejects the buffer before anything
// else is read from it.
func ParseAttestationObject(raw []byte, rpIDHash [32]byte) (*AttestedCredential, error) {
	var obj AttestationObject
	if err := cbor.Unmarshal(raw, &obj); err != nil {
		return nil, WrapError("decode attestation object", ErrInvalidAttestationObject)
	}
	if len(obj.AuthData) == 0 {
		return nil, WrapError("missing authenticator data", ErrInvalidAttestationObject)
	}

	authData := obj.AuthData
	if len(authData) < authDataMinLength {
		return nil, WrapError("authenticator data too short", ErrInvalidAuthenticatorData)
	}
	if !bytes.Equal(authData[:32], rpIDHash[:]) {
		return nil, WrapError("parse attestation", ErrRPIDMismatch)
	}

	flags := authData[authDataFlagsOffset]
	if flags&flagAttestedCredential == 0 {
		// Registration without attested credential data cannot yield a
		// usable credential.
		return nil, WrapError("parse attestation", ErrNoAttestedCredential)
	}

	if len(authData) < authDataCredIDOffset {
		return nil, WrapError("attested credential data too short", ErrInvalidAuthenticatorData)
	}

	aaguid := authData[authDataAAGUIDOffset:authDataCredIDLenOff]
	credIDLen := int(binary.BigEndian.Uint16(authData[authDataCredIDLenOff:authDataCredIDOffset]))
	if len(authData) < authDataCredIDOffset+credIDLen {
		return nil, WrapError("credential id truncated", ErrInvalidAuthenticatorData)
	}

	credentialID := authData[authDataCredIDOffset : authDataCredIDOffset+credIDLen]
	publicKey := authData[authDataCredIDOffset+credIDLen:]
	if len(publicKey) == 0 {
		return nil, WrapError("missing credential public key", ErrInvalidAuthenticatorData)
	}

	return &AttestedCredential{
		AuthData:     authData,
		AAGUID:       aaguid,
		CredentialID: credentialID,
		PublicKey:    publicKey,
	}, nil
}
