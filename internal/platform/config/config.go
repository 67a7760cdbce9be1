// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, token codec) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// minSecretLength mirrors the HMAC key floor enforced by the token codec.
const minSecretLength = 32

// # Configuration Schema

// Config holds all runtime configuration for the Quill API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath overrides the embedded migrations with a directory on disk.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Key-Value Cache (Redis). Optional: enables the single-use OAuth code guard.
	RedisURL string `env:"REDIS_URL"`

	// Token signing
	JWTSecret string `env:"JWT_SECRET,required,unset"`
	JWTKeyID  string `env:"JWT_KEY_ID" envDefault:"primary"`

	// Previous signing key, still accepted for verification after a secret change
	JWTPreviousKeyID  string `env:"JWT_PREVIOUS_KEY_ID"`
	JWTPreviousSecret string `env:"JWT_PREVIOUS_SECRET,unset"`

	// Token validity windows, in whole seconds
	AccessTokenTTLSeconds  int `env:"ACCESS_TOKEN_TTL_SECONDS"  envDefault:"1800"`
	RefreshTokenTTLSeconds int `env:"REFRESH_TOKEN_TTL_SECONDS" envDefault:"604800"`

	// CookieSecure sets the Secure attribute on the refresh-token cookie.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	// Google OAuth client
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET,required,unset"`
	GoogleRedirectURI  string        `env:"GOOGLE_REDIRECT_URI,required"`
	OAuthTimeout       time.Duration `env:"OAUTH_TIMEOUT" envDefault:"10s"`

	// Cross-Origin Resource Sharing
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that parse but cannot run safely.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if (c.JWTPreviousKeyID == "") != (c.JWTPreviousSecret == "") {
		errs = append(errs, errors.New("JWT_PREVIOUS_KEY_ID and JWT_PREVIOUS_SECRET must be set together"))
	}
	if c.JWTPreviousKeyID != "" {
		if c.JWTPreviousKeyID == c.JWTKeyID {
			errs = append(errs, errors.New("JWT_PREVIOUS_KEY_ID must differ from JWT_KEY_ID"))
		}
		if len(c.JWTPreviousSecret) < minSecretLength {
			errs = append(errs, fmt.Errorf("JWT_PREVIOUS_SECRET must be at least %d bytes", minSecretLength))
		}
	}
	if c.AccessTokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL_SECONDS must be positive"))
	}
	if c.RefreshTokenTTLSeconds <= 0 {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL_SECONDS must be positive"))
	}
	if c.OAuthTimeout <= 0 {
		errs = append(errs, errors.New("OAUTH_TIMEOUT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// AccessTokenTTL is the access-token validity as a duration.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenTTLSeconds) * time.Second
}

// RefreshTokenTTL is the refresh-token validity as a duration.
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenTTLSeconds) * time.Second
}

// HasPreviousSigningKey reports whether a retired key should still verify tokens.
func (c *Config) HasPreviousSigningKey() bool {
	return c.JWTPreviousKeyID != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// CORSOrigins lists the origins allowed to call the API with credentials.
func (c *Config) CORSOrigins() []string {
	return c.AllowedOrigins
}
