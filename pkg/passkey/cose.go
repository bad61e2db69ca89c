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
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/sha256"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// COSE algorithm identifiers offered in registration options and accepted by
// the verifier.
const (
	AlgES256 = -7
	AlgRS256 = -257
)

// COSE key types.
const (
	coseKeyTypeEC2 = 2
	coseKeyTypeRSA = 3
)

// RSA modulus bounds accepted by the verifier, in bits.
const (
	minRSAModulusBits = 2048
	maxRSAModulusBits = 8192
)

// coseKey is the raw COSE_Key map decoded once with a strict schema. The
// negative labels are polymorphic across key types (-1 is the curve for EC2
// and the modulus for RSA), so they stay raw until the key type is known.
type coseKey struct {
	Kty    int             `cbor:"1,keyasint,omitempty"`
	Alg    int             `cbor:"3,keyasint,omitempty"`
	CrvOrN cbor.RawMessage `cbor:"-1,keyasint,omitempty"` // Crv for EC2, N for RSA
	XOrE   cbor.RawMessage `cbor:"-2,keyasint,omitempty"` // X for EC2, E for RSA
	Y      cbor.RawMessage `cbor:"-3,keyasint,omitempty"` // Y for EC2
}

// VerifySignature decodes a COSE public key and verifies sig over data.
//
// ES256 (kty=2, alg=-7) expects an ECDSA-P256-SHA256 signature in ASN.1 DER
// form; RS256 (kty=3, alg=-257) expects RSASSA-PKCS1-v1_5-SHA256. A
// signature that simply does not match returns (false, nil); an error is
// returned only for malformed keys or unsupported algorithms.
func VerifySignature(publicKeyCOSE, data, sig []byte) (bool, error) {
	var key coseKey
	if err := cbor.Unmarshal(publicKeyCOSE, &key); err != nil {
		return false, WrapError("decode cose key", ErrInvalidPublicKey)
	}

	switch {
	case key.Kty == coseKeyTypeEC2 && key.Alg == AlgES256:
		return verifyES256(&key, data, sig)
	case key.Kty == coseKeyTypeRSA && key.Alg == AlgRS256:
		return verifyRS256(&key, data, sig)
	default:
		return false, WrapError("verify signature", ErrUnsupportedAlgorithm)
	}
}

func verifyES256(key *coseKey, data, sig []byte) (bool, error) {
	if len(key.CrvOrN) > 0 {
		var crv int
		if err := cbor.Unmarshal(key.CrvOrN, &crv); err != nil || crv != 1 {
			// Curve label 1 is P-256, the only curve ES256 uses.
			return false, WrapError("decode ec2 curve", ErrInvalidPublicKey)
		}
	}

	var x, y []byte
	if err := cbor.Unmarshal(key.XOrE, &x); err != nil {
		return false, WrapError("decode ec2 x coordinate", ErrInvalidPublicKey)
	}
	if err := cbor.Unmarshal(key.Y, &y); err != nil {
		return false, WrapError("decode ec2 y coordinate", ErrInvalidPublicKey)
	}

	// P-256 coordinates are exactly 32 bytes; anything else is malformed
	// rather than merely non-matching.
	if len(x) != 32 || len(y) != 32 {
		return false, WrapError("ec2 coordinate size", ErrInvalidPublicKey)
	}

	pub := &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}
	if !pub.Curve.IsOnCurve(pub.X, pub.Y) {
		return false, WrapError("ec2 point", ErrInvalidPublicKey)
	}

	digest := sha256.Sum256(data)
	return ecdsa.VerifyASN1(pub, digest[:], sig), nil
}

func verifyRS256(key *coseKey, data, sig []byte) (bool, error) {
	var n, e []byte
	if err := cbor.Unmarshal(key.CrvOrN, &n); err != nil {
		return false, WrapError("decode rsa modulus", ErrInvalidPublicKey)
	}
	if err := cbor.Unmarshal(key.XOrE, &e); err != nil {
		return false, WrapError("decode rsa exponent", ErrInvalidPublicKey)
	}
	if len(n) == 0 || len(e) == 0 || len(e) > 8 {
		return false, WrapError("rsa parameters", ErrInvalidPublicKey)
	}

	modulus := new(big.Int).SetBytes(n)
	if bits := modulus.BitLen(); bits < minRSAModulusBits || bits > maxRSAModulusBits {
		return false, WrapError("rsa modulus size", ErrInvalidPublicKey)
	}

	exponent := 0
	for _, b := range e {
		exponent = exponent<<8 | int(b)
	}
	if exponent < 3 {
		return false, WrapError("rsa exponent", ErrInvalidPublicKey)
	}

	pub := &rsa.PublicKey{N: modulus, E: exponent}
	digest := sha256.Sum256(data)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return false, nil
	}
	return true, nil
}
