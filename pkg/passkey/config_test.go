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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() *Config {
	return &Config{
		RPID:     "example.com",
		RPName:   "Example Corp",
		RPOrigin: "https://example.com",
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing rp id",
			mutate:  func(c *Config) { c.RPID = "" },
			wantErr: "RPID is required",
		},
		{
			name:    "missing rp name",
			mutate:  func(c *Config) { c.RPName = "" },
			wantErr: "RPName is required",
		},
		{
			name:    "missing origin",
			mutate:  func(c *Config) { c.RPOrigin = "" },
			wantErr: "RPOrigin is required",
		},
		{
			name:    "origin without scheme",
			mutate:  func(c *Config) { c.RPOrigin = "example.com" },
			wantErr: "RPOrigin must be",
		},
		{
			name:    "bad user verification",
			mutate:  func(c *Config) { c.UserVerification = "sometimes" },
			wantErr: "invalid user verification",
		},
		{
			name:    "bad resident key",
			mutate:  func(c *Config) { c.ResidentKey = "always" },
			wantErr: "invalid resident key",
		},
		{
			name:    "unsupported attestation",
			mutate:  func(c *Config) { c.Attestation = "direct" },
			wantErr: "unsupported attestation",
		},
		{
			name:    "negative max attempts",
			mutate:  func(c *Config) { c.Fallback = &FallbackConfig{MaxAttempts: -1} },
			wantErr: "invalid fallback max attempts",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestConfigSetDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.SetDefaults()

	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultChallengeTTL, cfg.ChallengeTTL)
	assert.Equal(t, "preferred", cfg.UserVerification)
	assert.Equal(t, "preferred", cfg.ResidentKey)
	assert.Equal(t, "none", cfg.Attestation)

	// An unconfigured fallback block defaults to enabled.
	assert.True(t, cfg.Fallback.Enabled)
	assert.True(t, cfg.Fallback.PromptPasskeySetup)
	assert.Equal(t, DefaultMaxFallbackAttempts, cfg.Fallback.MaxAttempts)
	assert.Equal(t, DefaultLockoutDuration, cfg.Fallback.LockoutDuration)
}

func TestConfigSetDefaultsKeepsExplicitFallback(t *testing.T) {
	cfg := validConfig()
	cfg.Fallback = &FallbackConfig{
		Enabled:         false,
		MaxAttempts:     3,
		LockoutDuration: time.Minute,
	}
	cfg.SetDefaults()

	assert.False(t, cfg.Fallback.Enabled)
	assert.Equal(t, 3, cfg.Fallback.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Fallback.LockoutDuration)
	assert.False(t, cfg.Fallback.PromptPasskeySetup)
}

func TestConfigSetDefaultsKeepsDisableOnlyFallback(t *testing.T) {
	cfg := validConfig()
	cfg.Fallback = &FallbackConfig{Enabled: false}
	cfg.SetDefaults()

	// Enabled: false with everything else unset must stay disabled while
	// the numeric limits still receive defaults.
	assert.False(t, cfg.Fallback.Enabled)
	assert.Equal(t, DefaultMaxFallbackAttempts, cfg.Fallback.MaxAttempts)
	assert.Equal(t, DefaultLockoutDuration, cfg.Fallback.LockoutDuration)
}

func TestConfigUnmarshalYAMLDisableOnlyFallback(t *testing.T) {
	var cfg Config
	data := "id: example.com\nname: Example\norigin: https://example.com\nfallback:\n  enabled: false\n"
	require.NoError(t, yaml.Unmarshal([]byte(data), &cfg))
	cfg.SetDefaults()

	require.NotNil(t, cfg.Fallback)
	assert.False(t, cfg.Fallback.Enabled)
}

func TestFallbackConfigPublic(t *testing.T) {
	f := FallbackConfig{
		Enabled:            true,
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		PromptPasskeySetup: true,
	}
	pub := f.Public()
	assert.True(t, pub.Enabled)
	assert.True(t, pub.PromptPasskeySetup)
}
