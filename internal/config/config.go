// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package config defines the static configuration surface of the discovery
// pipeline and loads it with layered precedence: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import "time"

// Config is the root configuration for the Fernweh server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Cache     CacheConfig     `koanf:"cache"`
	Gate      GateConfig      `koanf:"gate"`
	Tiler     TilerConfig     `koanf:"tiler"`
	Sources   SourcesConfig   `koanf:"sources"`
	Selection SelectionConfig `koanf:"selection"`
}

// ServerConfig holds the HTTP surface configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CacheConfig holds geo cache configuration.
//
// TTL is the hard-expiry (fresh) window. StaleFactor multiplies TTL to
// produce the soft-expiry window: a lookup between hard- and soft-expiry is
// served stale while a background refresh runs.
type CacheConfig struct {
	Capacity        int           `koanf:"capacity"`
	TTL             time.Duration `koanf:"ttl"`
	StaleFactor     int           `koanf:"stale_factor"`
	Path            string        `koanf:"path"`
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// GateConfig holds source-gate (circuit breaker) configuration.
//
// BackoffSchedule is indexed by how many times a breaker has tripped; trips
// beyond the last entry reuse it (capped escalation).
type GateConfig struct {
	FailureThreshold int             `koanf:"failure_threshold"`
	BackoffSchedule  []time.Duration `koanf:"backoff_schedule"`
}

// TilerConfig holds query tiler configuration.
type TilerConfig struct {
	TileRadiusMeters float64 `koanf:"tile_radius_meters"`
	Concurrency      int     `koanf:"concurrency"`
}

// OverpassConfig configures the bulk map-data source.
// Endpoints are interchangeable mirrors tried in ranked order.
type OverpassConfig struct {
	Endpoints   []string      `koanf:"endpoints"`
	MinInterval time.Duration `koanf:"min_interval"`
}

// OpenTripMapConfig configures the curated-attraction source.
// An empty APIKey disables the source: it silently contributes nothing.
type OpenTripMapConfig struct {
	URL         string        `koanf:"url"`
	APIKey      string        `koanf:"api_key"`
	MinInterval time.Duration `koanf:"min_interval"`
}

// WikipediaConfig configures the notable-place geosearch source.
type WikipediaConfig struct {
	URL         string        `koanf:"url"`
	MinInterval time.Duration `koanf:"min_interval"`
}

// SourcesConfig groups per-source configuration.
type SourcesConfig struct {
	Overpass      OverpassConfig    `koanf:"overpass"`
	OpenTripMap   OpenTripMapConfig `koanf:"opentripmap"`
	Wikipedia     WikipediaConfig   `koanf:"wikipedia"`
	TelemetrySize int               `koanf:"telemetry_size"`
}

// SelectionConfig holds scoring and selection configuration.
type SelectionConfig struct {
	Count        int `koanf:"count"`
	RecentMemory int `koanf:"recent_memory"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8421,
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Cache: CacheConfig{
			Capacity:        500,
			TTL:             30 * time.Minute,
			StaleFactor:     6,
			Path:            "", // empty = in-memory backing store
			JanitorInterval: time.Hour,
		},
		Gate: GateConfig{
			FailureThreshold: 3,
			BackoffSchedule: []time.Duration{
				5 * time.Minute,
				30 * time.Minute,
				2 * time.Hour,
			},
		},
		Tiler: TilerConfig{
			TileRadiusMeters: 25000,
			Concurrency:      3,
		},
		Sources: SourcesConfig{
			Overpass: OverpassConfig{
				Endpoints: []string{
					"https://overpass-api.de/api/interpreter",
					"https://overpass.kumi.systems/api/interpreter",
					"https://maps.mail.ru/osm/tools/overpass/api/interpreter",
				},
				MinInterval: 2 * time.Second,
			},
			OpenTripMap: OpenTripMapConfig{
				URL:         "https://api.opentripmap.com/0.1/en/places/radius",
				APIKey:      "",
				MinInterval: time.Second,
			},
			Wikipedia: WikipediaConfig{
				URL:         "https://en.wikipedia.org/w/api.php",
				MinInterval: time.Second,
			},
			TelemetrySize: 200,
		},
		Selection: SelectionConfig{
			Count:        12,
			RecentMemory: 50,
		},
	}
}
