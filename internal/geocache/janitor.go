// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geocache

import (
	"context"
	"time"

	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/metrics"
)

// Janitor periodically purges soft-expired entries from the backing store.
// It implements suture.Service and is run under the application supervisor.
type Janitor struct {
	backing  BackingStore
	interval time.Duration
}

// NewJanitor creates a janitor sweeping the backing store at the given interval.
func NewJanitor(backing BackingStore, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{backing: backing, interval: interval}
}

// Serve implements suture.Service. It sweeps immediately on start, then at
// every interval tick, until the context is canceled. Purge failures are
// logged and swallowed; the janitor keeps running.
func (j *Janitor) Serve(ctx context.Context) error {
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	purged, err := j.backing.PurgeDead(ctx, time.Now())
	if err != nil {
		metrics.CacheBackingErrors.WithLabelValues("purge").Inc()
		logging.Warn().Err(err).Msg("Cache janitor sweep failed")
		return
	}
	if purged > 0 {
		logging.Debug().Int("purged", purged).Msg("Cache janitor sweep complete")
	}
}

// String implements fmt.Stringer for supervisor logging.
func (j *Janitor) String() string {
	return "geocache-janitor"
}
