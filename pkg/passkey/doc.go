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

// Package passkey implements a WebAuthn (passkey) relying party engine with a
// password-fallback safety net for gradual passkey rollout.
//
// The package performs the full registration and authentication ceremonies
// itself: it issues and consumes single-use challenges, decodes CBOR
// attestation objects and COSE public keys, verifies ES256 and RS256
// assertion signatures, and detects cloned authenticators through the
// signature counter. Attestation statements are not validated; the service
// operates with attestation "none".
//
// Persistence is abstracted behind the CredentialStore and PasswordStore
// interfaces so applications can bring their own storage. In-memory
// implementations suitable for development and testing are provided, along
// with a SQLite-backed store in the sqlite subpackage.
//
// Basic usage:
//
//	svc, err := passkey.NewService(passkey.ServiceParams{
//	    Config: &passkey.Config{
//	        RPID:     "example.com",
//	        RPName:   "Example Corp",
//	        RPOrigin: "https://example.com",
//	    },
//	    CredentialStore: passkey.NewMemoryCredentialStore(),
//	    PasswordStore:   passkey.NewMemoryPasswordStore(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	options, err := svc.GenerateRegistrationOptions(ctx, userID, username, displayName)
//	// ... send options to the browser, receive the attestation response ...
//	result, err := svc.VerifyRegistration(ctx, response, "My Passkey")
//
// The HTTP handlers in the http subpackage expose the ceremonies as a JSON
// API mountable on a chi router.
package passkey
