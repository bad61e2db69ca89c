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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain name unchanged",
			input:    "My YubiKey",
			expected: "My YubiKey",
		},
		{
			name:     "allowed punctuation kept",
			input:    "work_laptop-2",
			expected: "work_laptop-2",
		},
		{
			name:     "html stripped",
			input:    "<script>alert(1)</script>",
			expected: "scriptalert1script",
		},
		{
			name:     "unicode stripped",
			input:    "ключ 🔑 phone",
			expected: "phone",
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  iPhone  ",
			expected: "iPhone",
		},
		{
			name:     "all invalid becomes empty",
			input:    "!!!***",
			expected: "",
		},
		{
			name:     "truncated to max length",
			input:    strings.Repeat("a", 100),
			expected: strings.Repeat("a", MaxCredentialNameLength),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeName(tc.input)
			assert.Equal(t, tc.expected, got)

			// Sanitizing is idempotent.
			assert.Equal(t, got, SanitizeName(got))
		})
	}
}

func TestFilterTransports(t *testing.T) {
	assert.Equal(t,
		[]string{"usb", "internal", "hybrid"},
		FilterTransports([]string{"usb", "smoke-signal", "internal", "hybrid", ""}))
	assert.Nil(t, FilterTransports([]string{"carrier-pigeon"}))
	assert.Nil(t, FilterTransports(nil))
}

func TestDecodeBase64URLPaddingTolerance(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	encoded := encodeBase64URL(raw)

	decoded, err := decodeBase64URL(encoded)
	assert.NoError(t, err)
	assert.Equal(t, raw, decoded)

	// Padded input decodes to the same bytes.
	decoded, err = decodeBase64URL(encoded + "===")
	assert.NoError(t, err)
	assert.Equal(t, raw, decoded)
}
