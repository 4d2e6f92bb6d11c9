// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

// Package config loads and validates service configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Store    StoreConfig    `koanf:"store"`
	IdP      IdPConfig      `koanf:"idp"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds settings for the embedded document store.
type StoreConfig struct {
	// Path is the on-disk location of the store. Ignored when InMemory is set.
	Path string `koanf:"path"`

	// InMemory runs the store without persistence. Test and dev use only.
	InMemory bool `koanf:"in_memory"`

	// GCInterval is how often the value-log garbage collector runs.
	GCInterval time.Duration `koanf:"gc_interval"`

	// GCDiscardRatio is the reclaimable fraction required before a value-log
	// file is rewritten. Badger recommends 0.5.
	GCDiscardRatio float64 `koanf:"gc_discard_ratio"`
}

// IdPConfig holds settings for the external identity provider adapter.
type IdPConfig struct {
	// BaseURL is the root endpoint of the directory service.
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates this service to the directory API.
	APIKey string `koanf:"api_key"`

	Timeout time.Duration `koanf:"timeout"`

	// RateLimit is the sustained request rate (requests/second) permitted
	// against the provider; RateBurst is the burst allowance.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// Circuit breaker tuning for provider calls.
	BreakerMaxRequests uint32        `koanf:"breaker_max_requests"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`
}

// SecurityConfig holds authorization and transport-security settings.
type SecurityConfig struct {
	// JWTSecret verifies bearer tokens minted by the upstream auth layer.
	JWTSecret string `koanf:"jwt_secret"`

	// AdminRoles lists the roles that may invoke admin operations.
	AdminRoles []string `koanf:"admin_roles"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// minJWTSecretLen is the minimum accepted HMAC secret length in bytes.
const minJWTSecretLen = 32

// Validate checks the configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if !c.Store.InMemory && c.Store.Path == "" {
		return fmt.Errorf("store.path is required unless store.in_memory is set")
	}
	if c.Store.GCDiscardRatio <= 0 || c.Store.GCDiscardRatio >= 1 {
		return fmt.Errorf("store.gc_discard_ratio must be in (0, 1), got %v", c.Store.GCDiscardRatio)
	}
	if c.IdP.BaseURL == "" {
		return fmt.Errorf("idp.base_url is required")
	}
	if len(c.Security.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("security.jwt_secret must be at least %d bytes", minJWTSecretLen)
	}
	if len(c.Security.AdminRoles) == 0 {
		return fmt.Errorf("security.admin_roles must name at least one admin-capable role")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
