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
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
)

// GenerateAuthenticationOptions starts the authentication ceremony. With a
// username the allow list is narrowed to that user's credentials; without one
// the client performs discoverable-credential (usernameless) sign-in.
func (s *Service) GenerateAuthenticationOptions(ctx context.Context, username string) (*RequestOptions, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	_, challengeB64, err := s.challenges.Issue(OperationAuthentication, "")
	if err != nil {
		return nil, err
	}
	recordChallengeIssued(OperationAuthentication)

	var allow []CredentialDescriptor
	if username != "" {
		creds, err := s.creds.GetByUsername(ctx, username)
		if err != nil && !IsUserNotFound(err) {
			return nil, WrapError("get credentials", err)
		}
		for _, cred := range creds {
			allow = append(allow, CredentialDescriptor{
				Type:       "public-key",
				ID:         encodeBase64URL(cred.CredentialID),
				Transports: cred.Transports,
			})
		}
	}

	return &RequestOptions{
		Challenge:        challengeB64,
		Timeout:          s.config.Timeout.Milliseconds(),
		RPID:             s.config.RPID,
		AllowCredentials: allow,
		UserVerification: s.config.UserVerification,
	}, nil
}

// VerifyAuthentication completes the authentication ceremony: client data and
// challenge checks, credential lookup, authenticator data validation, clone
// detection and signature verification, in that order.
func (s *Service) VerifyAuthentication(ctx context.Context, response *AuthenticationResponse) (*AuthenticationResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	result, err := s.verifyAuthentication(ctx, response)
	recordCeremony(OperationAuthentication, err == nil)
	return result, err
}

func (s *Service) verifyAuthentication(ctx context.Context, response *AuthenticationResponse) (*AuthenticationResult, error) {
	clientData, err := s.verifyClientData(response.Response.ClientDataJSON, "webauthn.get")
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Consume(clientData.Challenge)
	if err != nil {
		return nil, err
	}
	if challenge.Operation != OperationAuthentication {
		return nil, WrapError("challenge operation", ErrInvalidCeremonyType)
	}

	credentialID, err := decodeBase64URL(response.RawID)
	if err != nil || len(credentialID) == 0 {
		return nil, WrapError("decode raw id", ErrInvalidCredentialID)
	}
	cred, err := s.creds.GetByCredentialID(ctx, credentialID)
	if err != nil {
		return nil, WrapError("get credential", err)
	}

	authData, err := decodeBase64URL(response.Response.AuthenticatorData)
	if err != nil || len(authData) < authDataMinLength {
		return nil, WrapError("decode authenticator data", ErrInvalidAuthenticatorData)
	}
	if subtle.ConstantTimeCompare(authData[:32], s.rpIDHash[:]) != 1 {
		return nil, WrapError("verify rp id", ErrRPIDMismatch)
	}
	if authData[authDataFlagsOffset]&flagUserPresent == 0 {
		return nil, WrapError("verify flags", ErrUserNotPresent)
	}

	counter := binary.BigEndian.Uint32(authData[authDataCounterOffset : authDataCounterOffset+4])
	// A non-increasing counter means the private key may have been extracted
	// and used elsewhere. Counter-less authenticators always report zero and
	// are exempt.
	if counter > 0 && counter <= cred.Counter {
		s.logger.Warn("possible cloned authenticator",
			"user_id", cred.UserID,
			"credential_id", encodeBase64URL(credentialID),
			"stored_counter", cred.Counter,
			"reported_counter", counter)
		cloneWarningsTotal.Inc()
		return nil, WrapError("verify counter", ErrCounterMismatch)
	}

	clientDataJSON, err := decodeBase64URL(response.Response.ClientDataJSON)
	if err != nil {
		return nil, WrapError("decode client data", ErrInvalidClientData)
	}
	signature, err := decodeBase64URL(response.Response.Signature)
	if err != nil {
		return nil, WrapError("decode signature", ErrInvalidSignature)
	}

	clientDataHash := sha256.Sum256(clientDataJSON)
	signed := make([]byte, 0, len(authData)+len(clientDataHash))
	signed = append(signed, authData...)
	signed = append(signed, clientDataHash[:]...)

	valid, err := VerifySignature(cred.PublicKey, signed, signature)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, WrapError("verify signature", ErrSignatureVerificationFailed)
	}

	newCounter := counter
	if counter == 0 {
		newCounter = cred.Counter
	}
	if err := s.creds.UpdateCounter(ctx, credentialID, newCounter, s.now().UTC()); err != nil {
		return nil, WrapError("update counter", err)
	}

	s.logger.Info("passkey authenticated",
		"user_id", cred.UserID,
		"credential_id", encodeBase64URL(credentialID))

	return &AuthenticationResult{
		Success:      true,
		UserID:       cred.UserID,
		CredentialID: encodeBase64URL(credentialID),
	}, nil
}
