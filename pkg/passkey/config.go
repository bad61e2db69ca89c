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
	"fmt"
	"net/url"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied by SetDefaults when the corresponding field is unset.
const (
	DefaultTimeout             = 60 * time.Second
	DefaultMaxFallbackAttempts = 5
	DefaultLockoutDuration     = 15 * time.Minute
)

// Config configures the passkey service.
type Config struct {
	// RPID is the Relying Party identifier, typically the domain name.
	// Example: "example.com"
	RPID string `yaml:"id" json:"id" mapstructure:"id"`

	// RPName is the human-readable name of the Relying Party.
	// Example: "Example Corp"
	RPName string `yaml:"name" json:"name" mapstructure:"name"`

	// RPOrigin is the single allowed origin (scheme+host+port), compared by
	// exact string equality against the client data origin.
	// Example: "https://example.com"
	RPOrigin string `yaml:"origin" json:"origin" mapstructure:"origin"`

	// Timeout is the client-side ceremony timeout. The browser and
	// authenticator enforce it; the server only reports it in options.
	// Default: 60 seconds.
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`

	// ChallengeTTL is how long an issued challenge stays consumable.
	// Default: 300 seconds.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl" mapstructure:"challenge_ttl"`

	// UserVerification specifies the user verification requirement.
	// Options: "required", "preferred", "discouraged"
	// Default: "preferred"
	UserVerification string `yaml:"user_verification" json:"user_verification" mapstructure:"user_verification"`

	// ResidentKey specifies the resident key (discoverable credential)
	// requirement. Options: "required", "preferred", "discouraged"
	// Default: "preferred"
	ResidentKey string `yaml:"resident_key" json:"resident_key" mapstructure:"resident_key"`

	// Attestation is the attestation conveyance preference. Only "none" is
	// supported; attestation chains are not verified.
	Attestation string `yaml:"attestation" json:"attestation" mapstructure:"attestation"`

	// Fallback configures the legacy password path. Nil means unconfigured;
	// SetDefaults then enables it so un-enrolled accounts can still sign
	// in. A non-nil block is taken literally, including Enabled: false.
	Fallback *FallbackConfig `yaml:"fallback" json:"fallback" mapstructure:"fallback"`
}

// FallbackConfig controls the password fallback guard.
type FallbackConfig struct {
	// Enabled globally switches the password path on or off.
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`

	// MaxAttempts is the number of consecutive failures before lockout.
	// Default: 5.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" mapstructure:"max_attempts"`

	// LockoutDuration is how long a locked account stays locked.
	// Default: 15 minutes.
	LockoutDuration time.Duration `yaml:"lockout_duration" json:"lockout_duration" mapstructure:"lockout_duration"`

	// PromptPasskeySetup tells clients to offer passkey enrollment after a
	// successful password login.
	PromptPasskeySetup bool `yaml:"prompt_passkey_setup" json:"prompt_passkey_setup" mapstructure:"prompt_passkey_setup"`
}

// PublicFallbackConfig is the subset of FallbackConfig exposed to clients.
type PublicFallbackConfig struct {
	Enabled            bool `json:"enabled"`
	PromptPasskeySetup bool `json:"prompt_passkey_setup"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPName == "" {
		return fmt.Errorf("RPName is required")
	}
	if c.RPOrigin == "" {
		return fmt.Errorf("RPOrigin is required")
	}

	u, err := url.Parse(c.RPOrigin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("RPOrigin must be a scheme://host[:port] origin: %s", c.RPOrigin)
	}

	switch c.UserVerification {
	case "", "required", "preferred", "discouraged":
		// Valid
	default:
		return fmt.Errorf("invalid user verification: %s", c.UserVerification)
	}

	switch c.ResidentKey {
	case "", "required", "preferred", "discouraged":
		// Valid
	default:
		return fmt.Errorf("invalid resident key requirement: %s", c.ResidentKey)
	}

	switch c.Attestation {
	case "", "none":
		// Valid
	default:
		return fmt.Errorf("unsupported attestation preference: %s", c.Attestation)
	}

	if c.Fallback != nil {
		if c.Fallback.MaxAttempts < 0 {
			return fmt.Errorf("invalid fallback max attempts: %d", c.Fallback.MaxAttempts)
		}
		if c.Fallback.LockoutDuration < 0 {
			return fmt.Errorf("invalid fallback lockout duration: %s", c.Fallback.LockoutDuration)
		}
	}

	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = DefaultChallengeTTL
	}
	if c.UserVerification == "" {
		c.UserVerification = "preferred"
	}
	if c.ResidentKey == "" {
		c.ResidentKey = "preferred"
	}
	if c.Attestation == "" {
		c.Attestation = "none"
	}
	if c.Fallback == nil {
		// An absent fallback block means the caller did not configure it;
		// the password path stays available so un-enrolled accounts can
		// still sign in. An explicit block with Enabled: false is kept
		// as written.
		c.Fallback = &FallbackConfig{Enabled: true, PromptPasskeySetup: true}
	}
	if c.Fallback.MaxAttempts == 0 {
		c.Fallback.MaxAttempts = DefaultMaxFallbackAttempts
	}
	if c.Fallback.LockoutDuration == 0 {
		c.Fallback.LockoutDuration = DefaultLockoutDuration
	}
}

// UnmarshalYAML decodes the config, accepting durations in Go syntax
// ("60s", "15m").
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig struct {
		RPID             string          `yaml:"id"`
		RPName           string          `yaml:"name"`
		RPOrigin         string          `yaml:"origin"`
		Timeout          string          `yaml:"timeout"`
		ChallengeTTL     string          `yaml:"challenge_ttl"`
		UserVerification string          `yaml:"user_verification"`
		ResidentKey      string          `yaml:"resident_key"`
		Attestation      string          `yaml:"attestation"`
		Fallback         *FallbackConfig `yaml:"fallback"`
	}
	var raw rawConfig
	if err := value.Decode(&raw); err != nil {
		return err
	}

	timeout, err := parseDuration(raw.Timeout)
	if err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	ttl, err := parseDuration(raw.ChallengeTTL)
	if err != nil {
		return fmt.Errorf("challenge_ttl: %w", err)
	}

	if raw.RPID != "" {
		c.RPID = raw.RPID
	}
	if raw.RPName != "" {
		c.RPName = raw.RPName
	}
	if raw.RPOrigin != "" {
		c.RPOrigin = raw.RPOrigin
	}
	if timeout != 0 {
		c.Timeout = timeout
	}
	if ttl != 0 {
		c.ChallengeTTL = ttl
	}
	if raw.UserVerification != "" {
		c.UserVerification = raw.UserVerification
	}
	if raw.ResidentKey != "" {
		c.ResidentKey = raw.ResidentKey
	}
	if raw.Attestation != "" {
		c.Attestation = raw.Attestation
	}
	if raw.Fallback != nil {
		c.Fallback = raw.Fallback
	}
	return nil
}

// UnmarshalYAML decodes the fallback block, accepting lockout_duration in Go
// duration syntax.
func (f *FallbackConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawFallback struct {
		Enabled            bool   `yaml:"enabled"`
		MaxAttempts        int    `yaml:"max_attempts"`
		LockoutDuration    string `yaml:"lockout_duration"`
		PromptPasskeySetup bool   `yaml:"prompt_passkey_setup"`
	}
	var raw rawFallback
	if err := value.Decode(&raw); err != nil {
		return err
	}

	lockout, err := parseDuration(raw.LockoutDuration)
	if err != nil {
		return fmt.Errorf("lockout_duration: %w", err)
	}

	f.Enabled = raw.Enabled
	f.MaxAttempts = raw.MaxAttempts
	f.LockoutDuration = lockout
	f.PromptPasskeySetup = raw.PromptPasskeySetup
	return nil
}

// parseDuration parses a YAML duration field. Empty means unset.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Public returns the client-visible subset of the fallback configuration.
func (f FallbackConfig) Public() PublicFallbackConfig {
	return PublicFallbackConfig{
		Enabled:            f.Enabled,
		PromptPasskeySetup: f.PromptPasskeySetup,
	}
}
