// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Command server runs the Fernweh place-discovery service: an HTTP API over
// the tiled, cached, circuit-broken multi-source discovery pipeline.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernweh-app/fernweh/internal/api"
	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geo"
	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/pipeline"
	"github.com/fernweh-app/fernweh/internal/selection"
	"github.com/fernweh-app/fernweh/internal/sources"
	"github.com/fernweh-app/fernweh/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Msg("Starting Fernweh")

	// Cache tiers: in-process LRU over a Badger backing store
	backing, err := geocache.NewBadgerStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open cache store: %w", err)
	}
	defer func() {
		if err := backing.Close(); err != nil {
			logging.Warn().Err(err).Msg("Cache store close failed")
		}
	}()
	cache := geocache.New(cfg.Cache.Capacity, cfg.Cache.StaleFactor, backing)

	// Source gate shared by every fetcher
	g := gate.New(gate.Config{
		FailureThreshold: cfg.Gate.FailureThreshold,
		BackoffSchedule:  cfg.Gate.BackoffSchedule,
	}, cache)

	telemetry := sources.NewTelemetry(cfg.Sources.TelemetrySize)
	ttl := cfg.Cache.TTL

	overpass := sources.NewOverpassFetcher(cfg.Sources.Overpass, g, telemetry, ttl)
	opentripmap := sources.NewOpenTripMapFetcher(cfg.Sources.OpenTripMap, g, telemetry, ttl)
	wikipedia := sources.NewWikipediaFetcher(cfg.Sources.Wikipedia, g, telemetry, ttl)
	if cfg.Sources.OpenTripMap.APIKey == "" {
		logging.Info().Msg("No OpenTripMap API key configured, curated source disabled")
	}

	selector := selection.New(cfg.Selection, 0)
	discoverer := pipeline.New(
		overpass,
		[]sources.Fetcher{opentripmap, wikipedia},
		geo.NewTiler(cfg.Tiler.TileRadiusMeters),
		cfg.Tiler.Concurrency,
		selector,
	)

	handler := api.NewHandler(discoverer, g, telemetry, cache)
	router := api.NewRouter(handler, cfg.Server)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
	}

	// Supervision tree: HTTP server and the backing-store janitor
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slog.New(logging.NewSlogHandler()), treeCfg)
	tree.Add(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	tree.Add(geocache.NewJanitor(backing, cfg.Cache.JanitorInterval))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
