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

package http

import "github.com/jeremyhahn/go-passkey/pkg/passkey"

// RegistrationOptionsRequest is the request body for starting registration.
type RegistrationOptionsRequest struct {
	// UserID is the account identifier (required).
	UserID string `json:"user_id"`

	// Username is the account name shown in authenticator UI (required).
	Username string `json:"username"`

	// DisplayName is the human-readable name (optional, defaults to
	// Username).
	DisplayName string `json:"display_name,omitempty"`
}

// RegistrationVerifyRequest is the request body for completing registration.
type RegistrationVerifyRequest struct {
	// Response is the credential creation response from the browser.
	Response passkey.RegistrationResponse `json:"response"`

	// Name is the user-chosen label for the new passkey (optional).
	Name string `json:"name,omitempty"`
}

// AuthenticationOptionsRequest is the request body for starting
// authentication.
type AuthenticationOptionsRequest struct {
	// Username narrows the allow list to one account (optional; without it
	// the discoverable credential flow is used).
	Username string `json:"username,omitempty"`
}

// RenameRequest is the request body for renaming a passkey.
type RenameRequest struct {
	// Name is the new label (required).
	Name string `json:"name"`
}

// FallbackAuthenticateRequest is the request body for password fallback.
type FallbackAuthenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ListResponse is the response body for listing a user's passkeys.
type ListResponse struct {
	Passkeys []passkey.CredentialSummary `json:"passkeys"`
}

// StatusResponse is the response body for mutations with no payload.
type StatusResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeChallengeNotFound  = "challenge_not_found"
	ErrorCodeChallengeExpired   = "challenge_expired"
	ErrorCodeOriginMismatch     = "origin_mismatch"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeCounterMismatch    = "counter_mismatch"
	ErrorCodePasskeyNotFound    = "passkey_not_found"
	ErrorCodeInternalError      = "internal_error"
)
