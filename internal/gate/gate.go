// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package gate provides per-source admission control for upstream calls:
// a minimum inter-request interval, a circuit breaker with escalating
// backoff, in-flight request deduplication and cache composition.
//
// One Gate instance is shared process-wide; it is constructed once at
// startup and injected into the source fetchers so tests can build isolated
// instances.
package gate

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/metrics"
)

// ErrOpen is returned when a source's circuit breaker refuses the call.
var ErrOpen = errors.New("gate: source disabled by circuit breaker")

// ErrAuth marks authentication/authorization failures from an upstream.
// Fetchers wrap 401/403 responses with it; a single such failure trips the
// source's breaker.
var ErrAuth = errors.New("gate: authentication rejected by source")

// IsAuthError reports whether err is classified as an auth failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// isCancellation distinguishes caller cancellation from source failures.
// Deadline expiry is deliberately not included: an upstream that times out
// is a failing upstream and counts against its breaker.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}

// Config holds breaker tuning shared by all sources.
type Config struct {
	// FailureThreshold is the consecutive-failure count that opens a breaker.
	FailureThreshold int

	// BackoffSchedule is indexed by trip count; trips beyond the last entry
	// reuse it.
	BackoffSchedule []time.Duration

	// DefaultInterval is the inter-request interval for sources that were
	// never explicitly registered.
	DefaultInterval time.Duration
}

// Gate is the process-wide source gate.
type Gate struct {
	mu        sync.Mutex
	sources   map[string]*sourceState
	intervals map[string]time.Duration

	threshold       int
	backoff         []time.Duration
	defaultInterval time.Duration

	cache *geocache.Cache

	// pending deduplicates concurrent identical in-flight calls by cache
	// key; entries clear the instant the underlying operation finishes.
	pending singleflight.Group

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a gate over the given cache.
func New(cfg Config, cache *geocache.Cache) *Gate {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 3
	}
	if len(cfg.BackoffSchedule) == 0 {
		cfg.BackoffSchedule = []time.Duration{5 * time.Minute, 30 * time.Minute, 2 * time.Hour}
	}
	if cfg.DefaultInterval <= 0 {
		cfg.DefaultInterval = time.Second
	}

	return &Gate{
		sources:         make(map[string]*sourceState),
		intervals:       make(map[string]time.Duration),
		threshold:       cfg.FailureThreshold,
		backoff:         cfg.BackoffSchedule,
		defaultInterval: cfg.DefaultInterval,
		cache:           cache,
		now:             time.Now,
	}
}

// RegisterSource sets the minimum inter-request interval for a source.
// Must be called before the source's first use to take effect.
func (g *Gate) RegisterSource(name string, minInterval time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if minInterval > 0 {
		g.intervals[name] = minInterval
	}
}

// source returns the state for a source name, creating it lazily.
// Caller must hold g.mu.
func (g *Gate) source(name string) *sourceState {
	if s, ok := g.sources[name]; ok {
		return s
	}

	interval := g.defaultInterval
	if iv, ok := g.intervals[name]; ok {
		interval = iv
	}

	s := &sourceState{
		name:    name,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		state:   StateClosed,
	}
	g.sources[name] = s
	metrics.BreakerState.WithLabelValues(name).Set(float64(StateClosed))
	return s
}

// Admit reports whether a call to the source would currently be allowed.
// Passing the time-based open-to-half-open boundary transitions the breaker.
func (g *Gate) Admit(source string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.source(source)
	switch s.state {
	case StateClosed:
		return true
	case StateOpen:
		if g.now().Before(s.disabledUntil) {
			return false
		}
		g.transition(s, StateHalfOpen)
		return true
	case StateHalfOpen:
		return !s.probing
	default:
		return false
	}
}

// RecordSuccess records a successful call against the source's breaker.
func (g *Gate) RecordSuccess(source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recordSuccess(g.source(source))
}

// RecordFailure records a failed call against the source's breaker.
func (g *Gate) RecordFailure(source string, isAuth bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recordFailure(g.source(source), isAuth)
}

// Reset administratively restores a source's breaker to closed with all
// counters cleared.
func (g *Gate) Reset(source string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.source(source)
	s.consecutiveFailures = 0
	s.tripCount = 0
	s.probing = false
	s.disabledUntil = time.Time{}
	g.transition(s, StateClosed)
}

// ManagedCall composes the breaker, the cache, in-flight deduplication and
// the rate limiter around one upstream operation:
//
//	breaker check -> cache check -> in-flight dedupe -> rate slot ->
//	operation -> record outcome -> populate cache
//
// An open breaker yields ErrOpen without touching the network. Cache reads
// follow stale-while-revalidate semantics; background refreshes run through
// the same gated path. The pending-ledger entry is cleared the instant the
// operation finishes, success or failure.
func (g *Gate) ManagedCall(ctx context.Context, source, key string, ttl time.Duration, op geocache.RefreshFunc) (json.RawMessage, error) {
	if !g.Admit(source) {
		metrics.GateRejections.WithLabelValues(source).Inc()
		return nil, ErrOpen
	}

	res, err := g.cache.GetWithRevalidate(ctx, key, ttl, func(ctx context.Context) (json.RawMessage, error) {
		return g.call(ctx, source, key, op)
	}, nil)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// call runs one gated operation: dedupe by key, wait for the rate slot,
// invoke, record the outcome.
func (g *Gate) call(ctx context.Context, source, key string, op geocache.RefreshFunc) (json.RawMessage, error) {
	v, err, _ := g.pending.Do(key, func() (interface{}, error) {
		g.mu.Lock()
		s := g.source(source)
		if !g.acquire(s) {
			g.mu.Unlock()
			metrics.GateRejections.WithLabelValues(source).Inc()
			return nil, ErrOpen
		}
		limiter := s.limiter
		g.mu.Unlock()

		waitStart := g.now()
		if err := limiter.Wait(ctx); err != nil {
			// Never got to the network: free the probe slot, count nothing.
			g.mu.Lock()
			g.releaseProbe(s)
			g.mu.Unlock()
			return nil, err
		}
		metrics.RateWaitDuration.WithLabelValues(source).Observe(g.now().Sub(waitStart).Seconds())

		data, err := op(ctx)

		g.mu.Lock()
		defer g.mu.Unlock()
		if err != nil {
			if isCancellation(err) {
				g.releaseProbe(s)
				return nil, err
			}
			g.recordFailure(s, IsAuthError(err))
			return nil, err
		}
		g.recordSuccess(s)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// SourceStatus is a point-in-time view of one source's gate state.
type SourceStatus struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	TripCount           int        `json:"trip_count"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
}

// Snapshot returns the current state of every source the gate has seen.
func (g *Gate) Snapshot() []SourceStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	statuses := make([]SourceStatus, 0, len(g.sources))
	for _, s := range g.sources {
		status := SourceStatus{
			Name:                s.name,
			State:               s.state.String(),
			ConsecutiveFailures: s.consecutiveFailures,
			TripCount:           s.tripCount,
		}
		if s.state == StateOpen {
			t := s.disabledUntil
			status.DisabledUntil = &t
		}
		statuses = append(statuses, status)
	}
	return statuses
}
