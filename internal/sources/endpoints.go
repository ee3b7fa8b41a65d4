// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fernweh-app/fernweh/internal/logging"
)

// ewmaAlpha is the weight of the newest latency observation.
const ewmaAlpha = 0.3

// failurePenaltySeconds is added to an endpoint's rank score per recent
// failure; it halves on each success so a recovered mirror climbs back.
const failurePenaltySeconds = 5.0

// endpoint is one interchangeable mirror of the bulk source. Each carries
// its own breaker so a single dead mirror is skipped without costing a
// request, independently of the source-level gate.
type endpoint struct {
	url     string
	breaker *gobreaker.CircuitBreaker[[]byte]

	latencyEWMA float64 // seconds
	failPenalty float64 // seconds
}

// score ranks the endpoint; lower is better.
func (e *endpoint) score() float64 {
	return e.latencyEWMA + e.failPenalty
}

// EndpointPool tries a prioritized list of interchangeable endpoints in
// order, ranked by a moving average of recent latency plus a penalty for
// recent failures, falling through to the next endpoint on any failure.
type EndpointPool struct {
	mu        sync.Mutex
	endpoints []*endpoint
}

// NewEndpointPool creates a pool over the given mirror URLs, preserving the
// configured order as the initial ranking.
func NewEndpointPool(urls []string) *EndpointPool {
	p := &EndpointPool{}
	for i, u := range urls {
		st := gobreaker.Settings{
			Name:        u,
			MaxRequests: 1,
			Timeout:     time.Minute,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			IsSuccessful: func(err error) bool {
				// Caller cancellation says nothing about endpoint health
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Info().
					Str("endpoint", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("[CIRCUIT BREAKER] Endpoint state transition")
			},
		}
		p.endpoints = append(p.endpoints, &endpoint{
			url: u,
			// Seed a tiny latency gradient so the configured order wins ties
			latencyEWMA: float64(i) * 0.001,
			breaker:     gobreaker.NewCircuitBreaker[[]byte](st),
		})
	}
	return p
}

// ranked returns the endpoints sorted best-first.
func (p *EndpointPool) ranked() []*endpoint {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*endpoint, len(p.endpoints))
	copy(out, p.endpoints)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score() < out[j].score()
	})
	return out
}

// observe folds one attempt into the endpoint's ranking state.
func (p *EndpointPool) observe(e *endpoint, d time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ok {
		secs := d.Seconds()
		if e.latencyEWMA == 0 {
			e.latencyEWMA = secs
		} else {
			e.latencyEWMA = (1-ewmaAlpha)*e.latencyEWMA + ewmaAlpha*secs
		}
		e.failPenalty /= 2
		return
	}
	e.failPenalty += failurePenaltySeconds
}

// Post sends the body to the best available endpoint, falling through the
// ranking on failure. Cancellation stops the fall-through immediately.
// Returns the response body of the first endpoint that answers 200.
func (p *EndpointPool) Post(ctx context.Context, client *http.Client, contentType, body string) ([]byte, string, error) {
	var lastErr error
	lastEndpoint := ""

	for _, e := range p.ranked() {
		if err := ctx.Err(); err != nil {
			return nil, lastEndpoint, err
		}

		start := time.Now()
		data, err := e.breaker.Execute(func() ([]byte, error) {
			return postOnce(ctx, client, e.url, contentType, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Endpoint-level breaker refused without a network call
			continue
		}
		p.observe(e, time.Since(start), err == nil)

		if err == nil {
			return data, e.url, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, e.url, err
		}

		logging.Warn().
			Str("endpoint", e.url).
			Err(err).
			Msg("Endpoint failed, falling through to next mirror")
		lastErr = err
		lastEndpoint = e.url
	}

	if lastErr == nil {
		lastErr = errors.New("no endpoint available")
	}
	return nil, lastEndpoint, lastErr
}

func postOnce(ctx context.Context, client *http.Client, url, contentType, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}
