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
	"errors"
	"fmt"
)

// Sentinel errors for passkey operations. Every error aborts the current
// ceremony; nothing is retried and no partial state is persisted.
var (
	// ErrChallengeGenerationFailed is returned when the system RNG fails.
	ErrChallengeGenerationFailed = errors.New("challenge generation failed")

	// ErrChallengeNotFound is returned when a challenge is absent from the
	// store, including the case where it has already been consumed.
	ErrChallengeNotFound = errors.New("challenge not found")

	// ErrChallengeExpired is returned when a challenge is older than the TTL.
	ErrChallengeExpired = errors.New("challenge expired")

	// ErrInvalidClientData is returned when clientDataJSON cannot be decoded.
	ErrInvalidClientData = errors.New("invalid client data")

	// ErrInvalidCeremonyType is returned when the client data type or the
	// stored challenge operation does not match the ceremony being verified.
	ErrInvalidCeremonyType = errors.New("invalid ceremony type")

	// ErrInvalidOrigin is returned when the client data origin does not
	// exactly match the configured relying party origin.
	ErrInvalidOrigin = errors.New("invalid origin")

	// ErrInvalidChallenge is returned when the client data challenge is
	// missing or not valid base64url.
	ErrInvalidChallenge = errors.New("invalid challenge")

	// ErrInvalidAttestationObject is returned when the CBOR attestation
	// object cannot be decoded or lacks authenticator data.
	ErrInvalidAttestationObject = errors.New("invalid attestation object")

	// ErrInvalidAuthenticatorData is returned when the authenticator data
	// buffer is malformed or truncated.
	ErrInvalidAuthenticatorData = errors.New("invalid authenticator data")

	// ErrInvalidCredentialID is returned when the credential id cannot be
	// decoded or is empty.
	ErrInvalidCredentialID = errors.New("invalid credential id")

	// ErrInvalidCredentialName is returned when a credential label is empty
	// after sanitization.
	ErrInvalidCredentialName = errors.New("invalid credential name")

	// ErrInvalidSignature is returned when the signature cannot be decoded.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidPublicKey is returned when a COSE public key is structurally
	// malformed (wrong coordinate size, missing parameters, bad modulus).
	ErrInvalidPublicKey = errors.New("invalid public key")

	// ErrMissingUserID is returned when a registration challenge carries no
	// bound user id. Registration challenges are always user-bound, so this
	// indicates a bug or tampering.
	ErrMissingUserID = errors.New("missing user id")

	// ErrNoAttestedCredential is returned when the authenticator data does
	// not include attested credential data during registration.
	ErrNoAttestedCredential = errors.New("no attested credential data")

	// ErrRPIDMismatch is returned when the authenticator data RP ID hash
	// does not match the configured relying party.
	ErrRPIDMismatch = errors.New("relying party id mismatch")

	// ErrUserNotPresent is returned when the user-present flag is not set in
	// an assertion.
	ErrUserNotPresent = errors.New("user not present")

	// ErrCounterMismatch is returned when the reported signature counter did
	// not advance, indicating a possibly cloned credential.
	ErrCounterMismatch = errors.New("signature counter mismatch")

	// ErrSignatureVerificationFailed is returned when the assertion
	// signature does not verify against the stored public key.
	ErrSignatureVerificationFailed = errors.New("signature verification failed")

	// ErrUnsupportedAlgorithm is returned for COSE key type/algorithm pairs
	// other than ES256 and RS256.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

	// ErrPasskeyNotFound is returned when a credential cannot be found, or
	// when it is not owned by the requesting user.
	ErrPasskeyNotFound = errors.New("passkey not found")

	// ErrUserNotFound is returned by password stores when no account exists
	// for a username.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotConfigured is returned when the service is used before it has
	// been constructed through NewService.
	ErrNotConfigured = errors.New("passkey service not configured")
)

// PasskeyError wraps an error with the operation that failed.
type PasskeyError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *PasskeyError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *PasskeyError) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *PasskeyError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new PasskeyError with the given operation and error.
func NewError(op string, err error) error {
	return &PasskeyError{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsChallengeNotFound returns true if the error indicates a missing or
// already-consumed challenge.
func IsChallengeNotFound(err error) bool {
	return errors.Is(err, ErrChallengeNotFound)
}

// IsChallengeExpired returns true if the error indicates an expired challenge.
func IsChallengeExpired(err error) bool {
	return errors.Is(err, ErrChallengeExpired)
}

// IsPasskeyNotFound returns true if the error indicates a missing credential.
func IsPasskeyNotFound(err error) bool {
	return errors.Is(err, ErrPasskeyNotFound)
}

// IsUserNotFound returns true if the error indicates a missing user account.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsCounterMismatch returns true if the error indicates possible credential
// cloning.
func IsCounterMismatch(err error) bool {
	return errors.Is(err, ErrCounterMismatch)
}
