// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateGate(); err != nil {
		return err
	}
	if err := c.validateTiler(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	return c.validateSelection()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("FERNWEH_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("FERNWEH_SERVER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("FERNWEH_CACHE_CAPACITY must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("FERNWEH_CACHE_TTL must be positive")
	}
	if c.Cache.StaleFactor < 1 {
		return fmt.Errorf("FERNWEH_CACHE_STALE_FACTOR must be at least 1, got %d", c.Cache.StaleFactor)
	}
	return nil
}

func (c *Config) validateGate() error {
	if c.Gate.FailureThreshold < 1 {
		return fmt.Errorf("FERNWEH_GATE_FAILURE_THRESHOLD must be at least 1, got %d", c.Gate.FailureThreshold)
	}
	if len(c.Gate.BackoffSchedule) == 0 {
		return fmt.Errorf("FERNWEH_GATE_BACKOFF_SCHEDULE must have at least one entry")
	}
	for i, d := range c.Gate.BackoffSchedule {
		if d <= 0 {
			return fmt.Errorf("FERNWEH_GATE_BACKOFF_SCHEDULE entry %d must be positive", i)
		}
	}
	return nil
}

func (c *Config) validateTiler() error {
	if c.Tiler.TileRadiusMeters <= 0 {
		return fmt.Errorf("FERNWEH_TILER_TILE_RADIUS_METERS must be positive")
	}
	if c.Tiler.Concurrency < 1 {
		return fmt.Errorf("FERNWEH_TILER_CONCURRENCY must be at least 1, got %d", c.Tiler.Concurrency)
	}
	return nil
}

func (c *Config) validateSources() error {
	if len(c.Sources.Overpass.Endpoints) == 0 {
		return fmt.Errorf("FERNWEH_SOURCES_OVERPASS_ENDPOINTS must list at least one endpoint")
	}
	for _, ep := range c.Sources.Overpass.Endpoints {
		if err := validateHTTPURL(ep, "FERNWEH_SOURCES_OVERPASS_ENDPOINTS"); err != nil {
			return err
		}
	}
	if err := validateHTTPURL(c.Sources.OpenTripMap.URL, "FERNWEH_SOURCES_OPENTRIPMAP_URL"); err != nil {
		return err
	}
	if err := validateHTTPURL(c.Sources.Wikipedia.URL, "FERNWEH_SOURCES_WIKIPEDIA_URL"); err != nil {
		return err
	}
	if c.Sources.TelemetrySize < 1 {
		return fmt.Errorf("FERNWEH_SOURCES_TELEMETRY_SIZE must be at least 1, got %d", c.Sources.TelemetrySize)
	}
	return nil
}

func (c *Config) validateSelection() error {
	if c.Selection.Count < 1 {
		return fmt.Errorf("FERNWEH_SELECTION_COUNT must be at least 1, got %d", c.Selection.Count)
	}
	if c.Selection.RecentMemory < 0 {
		return fmt.Errorf("FERNWEH_SELECTION_RECENT_MEMORY must not be negative, got %d", c.Selection.RecentMemory)
	}
	return nil
}

// validateHTTPURL checks that a URL parses and uses an http(s) scheme.
// Upstream endpoint URLs may carry a path (e.g. /api/interpreter).
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if strings.Contains(parsedURL.Host, " ") {
		return fmt.Errorf("%s host contains whitespace", fieldName)
	}
	return nil
}
