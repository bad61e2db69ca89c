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

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Handler provides HTTP handlers for passkey operations.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	service *passkey.Service
	logger  *slog.Logger
}

// NewHandler creates a new passkey HTTP handler.
func NewHandler(service *passkey.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// RegistrationOptions handles POST /registration/options
//
// Request body:
//
//	{
//	    "user_id": "user-123",
//	    "username": "user@example.com",
//	    "display_name": "User Name" // optional
//	}
//
// Response: PublicKeyCredentialCreationOptions-shaped JSON
func (h *Handler) RegistrationOptions(w http.ResponseWriter, r *http.Request) {
	var req RegistrationOptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}
	if req.Username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}
	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Username
	}

	options, err := h.service.GenerateRegistrationOptions(r.Context(), req.UserID, req.Username, displayName)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, options)
}

// RegistrationVerify handles POST /registration/verify
//
// Request body: the credential creation response plus an optional label.
// Response: RegistrationResult
func (h *Handler) RegistrationVerify(w http.ResponseWriter, r *http.Request) {
	var req RegistrationVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	result, err := h.service.VerifyRegistration(r.Context(), &req.Response, req.Name)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// AuthenticationOptions handles POST /authentication/options
//
// Request body:
//
//	{
//	    "username": "user@example.com" // optional
//	}
//
// Response: assertion request options JSON
func (h *Handler) AuthenticationOptions(w http.ResponseWriter, r *http.Request) {
	var req AuthenticationOptionsRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
			return
		}
	}

	options, err := h.service.GenerateAuthenticationOptions(r.Context(), req.Username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, options)
}

// AuthenticationVerify handles POST /authentication/verify
//
// Request body: the assertion response from the browser.
// Response: AuthenticationResult
func (h *Handler) AuthenticationVerify(w http.ResponseWriter, r *http.Request) {
	var req passkey.AuthenticationResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	result, err := h.service.VerifyAuthentication(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// List handles GET /list/{user_id}
//
// Response: ListResponse with the user's passkey summaries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := pathParam(r, "user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	summaries, err := h.service.ListCredentials(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if summaries == nil {
		summaries = []passkey.CredentialSummary{}
	}
	h.writeJSON(w, http.StatusOK, ListResponse{Passkeys: summaries})
}

// Delete handles DELETE /{user_id}/{passkey_id}
//
// Response: StatusResponse
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, credentialID, ok := h.ownerParams(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCredential(r.Context(), userID, credentialID); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// Rename handles POST /{user_id}/{passkey_id}/rename
//
// Request body:
//
//	{
//	    "name": "Work Laptop"
//	}
//
// Response: StatusResponse
func (h *Handler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, credentialID, ok := h.ownerParams(w, r)
	if !ok {
		return
	}

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	if err := h.service.RenameCredential(r.Context(), userID, credentialID, req.Name); err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Success: true})
}

// FallbackAuthenticate handles POST /fallback/authenticate
//
// Request body:
//
//	{
//	    "username": "user@example.com",
//	    "password": "secret"
//	}
//
// Response: FallbackResult. Failed attempts and lockouts are 200 responses
// with success=false; only transport and server faults use error statuses.
func (h *Handler) FallbackAuthenticate(w http.ResponseWriter, r *http.Request) {
	var req FallbackAuthenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	result, err := h.service.AuthenticateFallback(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// FallbackCheck handles GET /fallback/check/{username}
//
// Response: FallbackStatus
func (h *Handler) FallbackCheck(w http.ResponseWriter, r *http.Request) {
	username := pathParam(r, "username")
	if username == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "username is required")
		return
	}

	status, err := h.service.ShouldOfferFallback(r.Context(), username)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// FallbackConfig handles GET /fallback/config
//
// Response: PublicFallbackConfig. Attempt limits and lockout windows are
// intentionally withheld.
func (h *Handler) FallbackConfig(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.FallbackConfig().Public())
}

// ownerParams extracts and decodes the {user_id} and {passkey_id} route
// parameters.
func (h *Handler) ownerParams(w http.ResponseWriter, r *http.Request) (string, []byte, bool) {
	userID := pathParam(r, "user_id")
	passkeyID := pathParam(r, "passkey_id")
	if userID == "" || passkeyID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id and passkey_id are required")
		return "", nil, false
	}

	credentialID, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(passkeyID, "="))
	if err != nil || len(credentialID) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid passkey_id encoding")
		return "", nil, false
	}
	return userID, credentialID, true
}

// handleServiceError maps service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, passkey.ErrChallengeNotFound):
		h.writeError(w, http.StatusGone, ErrorCodeChallengeNotFound, "challenge not found or already used")
	case errors.Is(err, passkey.ErrChallengeExpired):
		h.writeError(w, http.StatusGone, ErrorCodeChallengeExpired, "challenge expired")
	case errors.Is(err, passkey.ErrInvalidOrigin):
		h.writeError(w, http.StatusForbidden, ErrorCodeOriginMismatch, "origin mismatch")
	case errors.Is(err, passkey.ErrRPIDMismatch):
		h.writeError(w, http.StatusForbidden, ErrorCodeOriginMismatch, "relying party mismatch")
	case errors.Is(err, passkey.ErrCounterMismatch):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeCounterMismatch, "signature counter did not advance")
	case errors.Is(err, passkey.ErrSignatureVerificationFailed):
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "signature verification failed")
	case errors.Is(err, passkey.ErrPasskeyNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodePasskeyNotFound, "passkey not found")
	case errors.Is(err, passkey.ErrUserNotFound):
		h.writeError(w, http.StatusNotFound, ErrorCodePasskeyNotFound, "user not found")
	case errors.Is(err, passkey.ErrInvalidClientData),
		errors.Is(err, passkey.ErrInvalidCeremonyType),
		errors.Is(err, passkey.ErrInvalidChallenge),
		errors.Is(err, passkey.ErrInvalidAttestationObject),
		errors.Is(err, passkey.ErrInvalidAuthenticatorData),
		errors.Is(err, passkey.ErrInvalidCredentialID),
		errors.Is(err, passkey.ErrInvalidCredentialName),
		errors.Is(err, passkey.ErrInvalidSignature),
		errors.Is(err, passkey.ErrInvalidPublicKey),
		errors.Is(err, passkey.ErrMissingUserID),
		errors.Is(err, passkey.ErrNoAttestedCredential),
		errors.Is(err, passkey.ErrUserNotPresent),
		errors.Is(err, passkey.ErrUnsupportedAlgorithm):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, err.Error())
	default:
		h.logger.Error("unhandled service error", "error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
