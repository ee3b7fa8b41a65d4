// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fernweh-app/fernweh/internal/geo"
	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/metrics"
	"github.com/fernweh-app/fernweh/internal/places"
	"github.com/fernweh-app/fernweh/internal/selection"
	"github.com/fernweh-app/fernweh/internal/sources"
)

// Discoverer runs the full discovery pipeline for one request: plan tiles,
// fan out to every source per tile in bounded batches, merge, score, select.
//
// One Discoverer is created at startup and shared; all state lives in the
// injected components, so concurrent Discover calls are safe.
type Discoverer struct {
	primary   sources.Fetcher
	secondary []sources.Fetcher

	tiler       *geo.Tiler
	concurrency int
	selector    *selection.Selector

	// inFlight cancels the previous request for a logical purpose when a new
	// one starts, so stale results never overwrite fresher ones.
	mu       sync.Mutex
	inFlight map[string]*flight
}

type flight struct {
	cancel context.CancelFunc
}

// New creates a discoverer. The primary fetcher's results are trusted
// outright during the merge; secondary fetchers are deduplicated against
// them in the given order.
func New(primary sources.Fetcher, secondary []sources.Fetcher, tiler *geo.Tiler, concurrency int, selector *selection.Selector) *Discoverer {
	if concurrency < 1 {
		concurrency = 3
	}
	return &Discoverer{
		primary:     primary,
		secondary:   secondary,
		tiler:       tiler,
		concurrency: concurrency,
		selector:    selector,
		inFlight:    make(map[string]*flight),
	}
}

// Discover returns a scored, diverse place list for the search area.
//
// Source failures are best effort: a failing source contributes nothing and
// the merge proceeds with whatever succeeded; total failure yields an empty
// list, not an error. Cancellation is the only error returned.
func (d *Discoverer) Discover(ctx context.Context, lat, lon, radiusMeters float64, category string) ([]places.Place, error) {
	start := time.Now()
	defer func() {
		metrics.DiscoverDuration.Observe(time.Since(start).Seconds())
	}()

	tiles := d.tiler.PlanTiles(lat, lon, radiusMeters)
	metrics.TilesPerRequest.Observe(float64(len(tiles)))

	acc := newAccumulator(len(d.secondary))

	// Tile batches run strictly in sequence; tiles within a batch race.
	for i := 0; i < len(tiles); i += d.concurrency {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + d.concurrency
		if end > len(tiles) {
			end = len(tiles)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, tile := range tiles[i:end] {
			tile := tile
			g.Go(func() error {
				return d.fetchTile(gctx, tile, category, acc)
			})
		}
		if err := g.Wait(); err != nil {
			// Only cancellation aborts; source failures were absorbed
			return nil, err
		}
	}

	sec := acc.lists()
	var curated, notable []places.Place
	if len(sec) > 0 {
		curated = sec[0]
	}
	if len(sec) > 1 {
		notable = sec[1]
	}
	merged := Merge(acc.primary, curated, notable)
	metrics.DiscoverResults.Observe(float64(len(merged)))

	if d.selector == nil {
		return merged, nil
	}
	d.selector.ScoreAll(merged, selection.Context{Now: time.Now()})
	return d.selector.Select(merged, d.selector.DefaultCount(), category), nil
}

// DiscoverLatest behaves like Discover but first cancels any in-flight
// request sharing the same logical purpose (e.g. one client switching
// category mid-request).
func (d *Discoverer) DiscoverLatest(ctx context.Context, purpose string, lat, lon, radiusMeters float64, category string) ([]places.Place, error) {
	ctx, cancel := context.WithCancel(ctx)
	fl := &flight{cancel: cancel}

	d.mu.Lock()
	if prev, ok := d.inFlight[purpose]; ok {
		prev.cancel()
	}
	d.inFlight[purpose] = fl
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		if d.inFlight[purpose] == fl {
			delete(d.inFlight, purpose)
		}
		d.mu.Unlock()
		cancel()
	}()

	return d.Discover(ctx, lat, lon, radiusMeters, category)
}

// fetchTile fans out one tile to every source, best effort. Only
// cancellation is returned; other source errors are logged and absorbed.
func (d *Discoverer) fetchTile(ctx context.Context, tile geo.Tile, category string, acc *accumulator) error {
	type branch struct {
		fetcher   sources.Fetcher
		secondary int // -1 for the primary source
	}

	branches := []branch{{fetcher: d.primary, secondary: -1}}
	for i, f := range d.secondary {
		branches = append(branches, branch{fetcher: f, secondary: i})
	}

	var wg sync.WaitGroup
	errs := make([]error, len(branches))
	for i, b := range branches {
		wg.Add(1)
		go func(i int, b branch) {
			defer wg.Done()
			result, err := b.fetcher.Fetch(ctx, tile.Lat, tile.Lon, tile.Radius, category)
			if err != nil {
				errs[i] = err
				return
			}
			acc.add(b.secondary, result)
		}(i, b)
	}
	wg.Wait()

	for i, err := range errs {
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if errors.Is(err, context.Canceled) {
			return err
		}
		logging.Warn().
			Str("source", branches[i].fetcher.Name()).
			Float64("lat", tile.Lat).
			Float64("lon", tile.Lon).
			Err(err).
			Msg("Source failed for tile, continuing without it")
	}
	return nil
}

// accumulator collects per-source results across tile batches, deduplicating
// by place identifier incrementally so overlapping tiles stay bounded.
type accumulator struct {
	mu        sync.Mutex
	seen      map[string]bool
	primary   []places.Place
	secondary [][]places.Place
}

func newAccumulator(secondaryCount int) *accumulator {
	return &accumulator{
		seen:      make(map[string]bool),
		secondary: make([][]places.Place, secondaryCount),
	}
}

// add appends results for one source branch, dropping identifiers already
// collected. idx is -1 for the primary source.
func (a *accumulator) add(idx int, result []places.Place) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, p := range result {
		if a.seen[p.ID] {
			continue
		}
		a.seen[p.ID] = true
		if idx < 0 {
			a.primary = append(a.primary, p)
		} else {
			a.secondary[idx] = append(a.secondary[idx], p)
		}
	}
}

// lists returns the secondary result lists in registration order.
func (a *accumulator) lists() [][]places.Place {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.secondary
}
