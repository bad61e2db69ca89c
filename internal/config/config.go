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

// Package config loads the passkey server configuration from YAML with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-passkey/pkg/passkey"
)

// Config represents the complete server configuration
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Logging LoggingConfig  `yaml:"logging"`
	Storage StorageConfig  `yaml:"storage"`
	Auth    AuthConfig     `yaml:"auth"`
	Passkey passkey.Config `yaml:"passkey"`
}

// ServerConfig contains server-level settings
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// StorageConfig controls credential persistence
type StorageConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory stores.
	Path string `yaml:"path"`
}

// AuthConfig controls session token issuance for the fallback path
type AuthConfig struct {
	// JWTSecret enables JWT session tokens when set (min 32 bytes).
	JWTSecret string `yaml:"jwt_secret"`

	// JWTIssuer is the iss claim. Defaults to "go-passkey".
	JWTIssuer string `yaml:"jwt_issuer"`
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			BasePath: "/api/v1/passkeys",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Auth: AuthConfig{
			JWTIssuer: "go-passkey",
		},
		Passkey: passkey.Config{
			RPID:     "localhost",
			RPName:   "go-passkey",
			RPOrigin: "http://localhost:8080",
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 - Config file path is provided by admin/user
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	if host := os.Getenv("PASSKEY_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("PASSKEY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if basePath := os.Getenv("PASSKEY_BASE_PATH"); basePath != "" {
		cfg.Server.BasePath = basePath
	}
	if level := os.Getenv("PASSKEY_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("PASSKEY_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}
	if path := os.Getenv("PASSKEY_DB_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if secret := os.Getenv("PASSKEY_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if rpID := os.Getenv("PASSKEY_RP_ID"); rpID != "" {
		cfg.Passkey.RPID = rpID
	}
	if rpName := os.Getenv("PASSKEY_RP_NAME"); rpName != "" {
		cfg.Passkey.RPName = rpName
	}
	if origin := os.Getenv("PASSKEY_RP_ORIGIN"); origin != "" {
		cfg.Passkey.RPOrigin = origin
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}

	c.Passkey.SetDefaults()
	return c.Passkey.Validate()
}
