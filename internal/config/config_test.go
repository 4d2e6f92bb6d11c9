// Tessera - Multi-Tenant Access Administration
// Copyright 2026 Tessera Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tessera-io/tessera

package config

import (
	"os"
	"strings"
	"testing"
)

// validEnv sets the minimum environment for a loadable configuration.
func validEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TESSERA_IDP_BASE_URL", "https://directory.example.com")
	t.Setenv("TESSERA_SECURITY_JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("TESSERA_STORE_IN_MEMORY", "true")
}

func TestLoadDefaults(t *testing.T) {
	validEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8086 {
		t.Errorf("default port = %d, want 8086", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("default logging = %+v", cfg.Logging)
	}
	if cfg.Store.GCDiscardRatio != 0.5 {
		t.Errorf("default gc_discard_ratio = %v, want 0.5", cfg.Store.GCDiscardRatio)
	}
	if len(cfg.Security.AdminRoles) != 1 || cfg.Security.AdminRoles[0] != "iam-admin" {
		t.Errorf("default admin roles = %v", cfg.Security.AdminRoles)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	validEnv(t)
	t.Setenv("TESSERA_SERVER_PORT", "9090")
	t.Setenv("TESSERA_LOGGING_LEVEL", "debug")
	t.Setenv("TESSERA_SECURITY_ADMIN_ROLES", "iam-admin, tenant-operator")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	want := []string{"iam-admin", "tenant-operator"}
	if len(cfg.Security.AdminRoles) != len(want) {
		t.Fatalf("admin roles = %v, want %v", cfg.Security.AdminRoles, want)
	}
	for i := range want {
		if cfg.Security.AdminRoles[i] != want[i] {
			t.Errorf("admin roles[%d] = %q, want %q", i, cfg.Security.AdminRoles[i], want[i])
		}
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TESSERA_SERVER_PORT", "server.port"},
		{"TESSERA_IDP_BASE_URL", "idp.base_url"},
		{"TESSERA_SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"TESSERA_STORE_GC_DISCARD_RATIO", "store.gc_discard_ratio"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateRejections(t *testing.T) {
	base := func() *Config {
		c := defaultConfig()
		c.IdP.BaseURL = "https://directory.example.com"
		c.Security.JWTSecret = strings.Repeat("s", 32)
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"missing store path", func(c *Config) { c.Store.Path = ""; c.Store.InMemory = false }, "store.path"},
		{"bad gc ratio", func(c *Config) { c.Store.GCDiscardRatio = 1.5 }, "gc_discard_ratio"},
		{"missing idp url", func(c *Config) { c.IdP.BaseURL = "" }, "idp.base_url"},
		{"short jwt secret", func(c *Config) { c.Security.JWTSecret = "short" }, "jwt_secret"},
		{"no admin roles", func(c *Config) { c.Security.AdminRoles = nil }, "admin_roles"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q missing %q", err, tt.want)
			}
		})
	}
}

func TestFindConfigFileEnvOverride(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, f.Name())
	if got := findConfigFile(); got != f.Name() {
		t.Errorf("findConfigFile() = %q, want %q", got, f.Name())
	}
}
