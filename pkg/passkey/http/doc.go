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

// Package http provides composable HTTP handlers for passkey operations.
//
// This package lets applications add passkey authentication to existing HTTP
// servers without coupling to go-passkey's own server binary.
//
// # Usage
//
// Create a handler from a passkey service and mount it on your router:
//
//	svc, _ := passkey.NewService(...)
//	handler := passkeyhttp.NewHandler(svc)
//
//	r.Route("/api/v1/passkeys", func(r chi.Router) {
//	    passkeyhttp.MountChi(r, handler)
//	})
//
// # Endpoints
//
// The handler provides the following endpoints:
//
//	POST   /registration/options              - Start registration ceremony
//	POST   /registration/verify               - Complete registration
//	POST   /authentication/options            - Start authentication ceremony
//	POST   /authentication/verify             - Complete authentication
//	GET    /list/{user_id}                    - List a user's passkeys
//	DELETE /{user_id}/{passkey_id}            - Delete a passkey
//	POST   /{user_id}/{passkey_id}/rename     - Rename a passkey
//	POST   /fallback/authenticate             - Password fallback sign-in
//	GET    /fallback/check/{username}         - Fallback availability for a user
//	GET    /fallback/config                   - Public fallback configuration
//
// {passkey_id} is the base64url credential id reported by registration and by
// the list endpoint.
//
// # Response Format
//
// All responses are JSON. Successful responses include the data directly.
// Error responses have the format:
//
//	{
//	    "error": "error_code",
//	    "message": "Human-readable message"
//	}
package http
