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

	"github.com/google/uuid"
)

// GenerateRegistrationOptions starts the registration ceremony: it issues a
// user-bound challenge and returns creation options excluding the user's
// already-registered authenticators.
func (s *Service) GenerateRegistrationOptions(ctx context.Context, userID, username, displayName string) (*CreationOptions, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	if userID == "" {
		return nil, WrapError("generate registration options", ErrMissingUserID)
	}

	_, challengeB64, err := s.challenges.Issue(OperationRegistration, userID)
	if err != nil {
		return nil, err
	}
	recordChallengeIssued(OperationRegistration)

	existing, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		return nil, WrapError("get credentials", err)
	}

	exclude := make([]CredentialDescriptor, len(existing))
	for i, cred := range existing {
		exclude[i] = CredentialDescriptor{
			Type:       "public-key",
			ID:         encodeBase64URL(cred.CredentialID),
			Transports: cred.Transports,
		}
	}

	return &CreationOptions{
		Challenge: challengeB64,
		RP: RelyingParty{
			ID:   s.config.RPID,
			Name: s.config.RPName,
		},
		User: UserEntity{
			ID:          encodeBase64URL([]byte(userID)),
			Name:        username,
			DisplayName: displayName,
		},
		PubKeyCredParams: []CredentialParameter{
			{Type: "public-key", Alg: AlgES256},
			{Type: "public-key", Alg: AlgRS256},
		},
		Timeout:     s.config.Timeout.Milliseconds(),
		Attestation: s.config.Attestation,
		AuthenticatorSelection: AuthenticatorSelection{
			ResidentKey:      s.config.ResidentKey,
			UserVerification: s.config.UserVerification,
		},
		ExcludeCredentials: exclude,
	}, nil
}

// VerifyRegistration completes the registration ceremony. Any failing step
// aborts the whole ceremony; no partial state is persisted.
func (s *Service) VerifyRegistration(ctx context.Context, response *RegistrationResponse, name string) (*RegistrationResult, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	result, err := s.verifyRegistration(ctx, response, name)
	recordCeremony(OperationRegistration, err == nil)
	return result, err
}

func (s *Service) verifyRegistration(ctx context.Context, response *RegistrationResponse, name string) (*RegistrationResult, error) {
	clientData, err := s.verifyClientData(response.Response.ClientDataJSON, "webauthn.create")
	if err != nil {
		return nil, err
	}

	challenge, err := s.challenges.Consume(clientData.Challenge)
	if err != nil {
		return nil, err
	}
	if challenge.Operation != OperationRegistration {
		return nil, WrapError("challenge operation", ErrInvalidCeremonyType)
	}
	if challenge.UserID == "" {
		// Registration challenges are always user-bound; an unbound one
		// indicates a bug or tampering.
		return nil, WrapError("challenge user", ErrMissingUserID)
	}

	attestationObject, err := decodeBase64URL(response.Response.AttestationObject)
	if err != nil {
		return nil, WrapError("decode attestation object", ErrInvalidAttestationObject)
	}
	attested, err := ParseAttestationObject(attestationObject, s.rpIDHash)
	if err != nil {
		return nil, err
	}

	credentialID, err := decodeBase64URL(response.RawID)
	if err != nil || len(credentialID) == 0 {
		return nil, WrapError("decode raw id", ErrInvalidCredentialID)
	}

	sanitized := SanitizeName(name)
	if sanitized == "" {
		sanitized = "Passkey " + s.now().UTC().Format("2006-01-02 1504")
	}

	cred := &Credential{
		ID:           uuid.NewString(),
		UserID:       challenge.UserID,
		CredentialID: credentialID,
		PublicKey:    attested.PublicKey,
		Counter:      0,
		Name:         sanitized,
		AAGUID:       attested.AAGUID,
		Transports:   FilterTransports(response.Response.Transports),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, WrapError("save credential", err)
	}

	s.logger.Info("passkey registered",
		"user_id", challenge.UserID,
		"credential_id", encodeBase64URL(credentialID),
		"name", sanitized)

	return &RegistrationResult{
		Success:      true,
		CredentialID: encodeBase64URL(credentialID),
	}, nil
}
