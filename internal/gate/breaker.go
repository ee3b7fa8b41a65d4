// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package gate

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/metrics"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed is normal operation; failures increment a counter.
	StateClosed State = iota
	// StateOpen short-circuits all calls until the backoff elapses.
	StateOpen
	// StateHalfOpen allows exactly one probe call.
	StateHalfOpen
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// sourceState holds the per-source breaker and rate limiter. Instances are
// created lazily on first use of a source name and live for the process.
type sourceState struct {
	name    string
	limiter *rate.Limiter

	state               State
	consecutiveFailures int
	tripCount           int
	disabledUntil       time.Time

	// probing is set while the single half-open trial call is in flight.
	probing bool
}

// transition moves a source breaker to a new state with logging and metrics.
// Caller must hold g.mu.
func (g *Gate) transition(s *sourceState, to State) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to

	logging.Info().
		Str("source", s.name).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("[CIRCUIT BREAKER] State transition")

	metrics.BreakerState.WithLabelValues(s.name).Set(float64(to))
	metrics.BreakerTransitions.WithLabelValues(s.name, from.String(), to.String()).Inc()
}

// trip opens the breaker, advancing the escalating backoff one step.
// Caller must hold g.mu.
func (g *Gate) trip(s *sourceState) {
	s.tripCount++
	s.consecutiveFailures = 0
	s.probing = false

	idx := s.tripCount - 1
	if idx >= len(g.backoff) {
		idx = len(g.backoff) - 1
	}
	s.disabledUntil = g.now().Add(g.backoff[idx])

	g.transition(s, StateOpen)
	logging.Warn().
		Str("source", s.name).
		Int("trip", s.tripCount).
		Time("disabled_until", s.disabledUntil).
		Msg("[CIRCUIT BREAKER] Source disabled")
}

// acquire reserves the right to make one call. In half-open state only a
// single probe is granted; in open state the call is refused until the
// backoff elapses, at which point the breaker moves to half-open.
// Caller must hold g.mu.
func (g *Gate) acquire(s *sourceState) bool {
	switch s.state {
	case StateClosed:
		return true
	case StateOpen:
		if g.now().Before(s.disabledUntil) {
			return false
		}
		g.transition(s, StateHalfOpen)
		s.probing = true
		return true
	case StateHalfOpen:
		if s.probing {
			return false
		}
		s.probing = true
		return true
	default:
		return false
	}
}

// releaseProbe frees the half-open probe slot without recording an outcome.
// Used when a call is canceled before completing: cancellation is not a
// breaker failure and must not consume the probe. Caller must hold g.mu.
func (g *Gate) releaseProbe(s *sourceState) {
	s.probing = false
}

// recordSuccess resets the failure and trip counters; a successful half-open
// probe closes the breaker. Caller must hold g.mu.
func (g *Gate) recordSuccess(s *sourceState) {
	s.probing = false
	s.consecutiveFailures = 0
	if s.state != StateClosed {
		s.tripCount = 0
		g.transition(s, StateClosed)
	}
}

// recordFailure counts a failure against the breaker. Auth failures trip
// immediately (retrying a bad credential cannot succeed); a failed half-open
// probe re-opens with the backoff advanced. Caller must hold g.mu.
func (g *Gate) recordFailure(s *sourceState, isAuth bool) {
	if isAuth || s.state == StateHalfOpen {
		g.trip(s)
		return
	}

	s.consecutiveFailures++
	if s.consecutiveFailures >= g.threshold {
		g.trip(s)
	}
}
