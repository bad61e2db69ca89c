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
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTGenerator issues HS256-signed session tokens after a successful
// fallback authentication.
type JWTGenerator struct {
	secret    []byte
	issuer    string
	expiresIn time.Duration
	now       func() time.Time
}

// NewJWTGenerator creates a token generator with the given signing secret.
// expiresIn defaults to one hour when zero.
func NewJWTGenerator(secret []byte, issuer string, expiresIn time.Duration) (*JWTGenerator, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	if expiresIn == 0 {
		expiresIn = time.Hour
	}
	return &JWTGenerator{
		secret:    secret,
		issuer:    issuer,
		expiresIn: expiresIn,
		now:       time.Now,
	}, nil
}

// GenerateToken creates a signed JWT for the authenticated user.
func (g *JWTGenerator) GenerateToken(_ context.Context, userID string) (string, error) {
	now := g.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    g.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.expiresIn)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates a token issued by GenerateToken and returns the user
// id from its subject claim.
func (g *JWTGenerator) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return g.secret, nil
		},
		jwt.WithIssuer(g.issuer),
		jwt.WithTimeFunc(func() time.Time { return g.now() }))
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("invalid token claims")
	}
	return claims.Subject, nil
}
