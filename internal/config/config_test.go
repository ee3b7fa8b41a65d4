// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Server.Port != 8421 {
		t.Errorf("expected default port 8421, got %d", cfg.Server.Port)
	}
	if cfg.Gate.FailureThreshold != 3 {
		t.Errorf("expected default failure threshold 3, got %d", cfg.Gate.FailureThreshold)
	}
	if len(cfg.Gate.BackoffSchedule) != 3 {
		t.Errorf("expected 3 backoff steps, got %d", len(cfg.Gate.BackoffSchedule))
	}
	if cfg.Tiler.TileRadiusMeters != 25000 {
		t.Errorf("expected 25km tile radius, got %f", cfg.Tiler.TileRadiusMeters)
	}
	if len(cfg.Sources.Overpass.Endpoints) == 0 {
		t.Error("expected default overpass endpoints")
	}
	if cfg.Sources.OpenTripMap.APIKey != "" {
		t.Error("expected no API key by default")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FERNWEH_SERVER_PORT", "9999")
	t.Setenv("FERNWEH_CACHE_TTL", "5m")
	t.Setenv("FERNWEH_SOURCES_OPENTRIPMAP_API_KEY", "test-key")
	t.Setenv("FERNWEH_SOURCES_OVERPASS_ENDPOINTS", "https://a.example.com/api, https://b.example.com/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected env-overridden port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected env-overridden TTL 5m, got %v", cfg.Cache.TTL)
	}
	if cfg.Sources.OpenTripMap.APIKey != "test-key" {
		t.Errorf("expected env-overridden API key, got %q", cfg.Sources.OpenTripMap.APIKey)
	}
	if len(cfg.Sources.Overpass.Endpoints) != 2 {
		t.Fatalf("expected 2 endpoints from comma-separated env, got %d", len(cfg.Sources.Overpass.Endpoints))
	}
	if cfg.Sources.Overpass.Endpoints[1] != "https://b.example.com/api" {
		t.Errorf("expected trimmed endpoint, got %q", cfg.Sources.Overpass.Endpoints[1])
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 8000\ncache:\n  capacity: 42\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected file-overridden port 8000, got %d", cfg.Server.Port)
	}
	if cfg.Cache.Capacity != 42 {
		t.Errorf("expected file-overridden capacity 42, got %d", cfg.Cache.Capacity)
	}
	// Untouched values keep defaults
	if cfg.Cache.StaleFactor != 6 {
		t.Errorf("expected default stale factor 6, got %d", cfg.Cache.StaleFactor)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"FERNWEH_SERVER_PORT", "server.port"},
		{"FERNWEH_SERVER_RATE_LIMIT_REQS", "server.rate_limit_reqs"},
		{"FERNWEH_CACHE_STALE_FACTOR", "cache.stale_factor"},
		{"FERNWEH_SOURCES_OPENTRIPMAP_API_KEY", "sources.opentripmap.api_key"},
		{"FERNWEH_SOURCES_OVERPASS_MIN_INTERVAL", "sources.overpass.min_interval"},
		{"FERNWEH_SOURCES_TELEMETRY_SIZE", "sources.telemetry_size"},
		{"FERNWEH_UNKNOWN_THING", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
		{"zero failure threshold", func(c *Config) { c.Gate.FailureThreshold = 0 }},
		{"empty backoff schedule", func(c *Config) { c.Gate.BackoffSchedule = nil }},
		{"negative tile radius", func(c *Config) { c.Tiler.TileRadiusMeters = -1 }},
		{"no overpass endpoints", func(c *Config) { c.Sources.Overpass.Endpoints = nil }},
		{"bad endpoint scheme", func(c *Config) {
			c.Sources.Overpass.Endpoints = []string{"ftp://example.com/api"}
		}},
		{"zero selection count", func(c *Config) { c.Selection.Count = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}
