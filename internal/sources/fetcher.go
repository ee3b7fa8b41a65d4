// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package sources implements the upstream place fetchers: the bulk map-data
// source (Overpass), the curated-attraction source (OpenTripMap) and the
// notable-place source (Wikipedia geosearch). Each fetcher normalizes raw
// upstream records into the common Place shape and records every attempt to
// a bounded telemetry log.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/metrics"
	"github.com/fernweh-app/fernweh/internal/places"
)

// Fetcher is one upstream place source. Fetch returns normalized places for
// a circular search area; an empty category means all categories.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, lat, lon, radiusMeters float64, category string) ([]places.Place, error)
}

const (
	userAgent = "fernweh/1.0 (+https://github.com/fernweh-app/fernweh)"

	// maxResponseBytes bounds upstream response bodies. Overpass answers for
	// a dense 25 km tile stay well under this.
	maxResponseBytes = 20 << 20
)

// newHTTPClient returns the client shared by a fetcher. Per-request deadlines
// come from the context; the client timeout is a backstop only.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 90 * time.Second}
}

// serverTimeout scales an upstream-side timeout with the requested radius:
// larger areas take longer to answer. Clamped to [10s, 60s].
func serverTimeout(radiusMeters float64) time.Duration {
	secs := 10 + int(radiusMeters/2000)
	if secs < 10 {
		secs = 10
	}
	if secs > 60 {
		secs = 60
	}
	return time.Duration(secs) * time.Second
}

// statusError converts a non-200 upstream status into an error.
// 401 and 403 are wrapped with gate.ErrAuth so the breaker trips immediately.
func statusError(source string, status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%s: status %d: %w", source, status, gate.ErrAuth)
	}
	return fmt.Errorf("%s: unexpected status %d", source, status)
}

// fetchJSON executes one request and decodes the JSON body into out.
// Returns the HTTP status code where one was received.
func fetchJSON(client *http.Client, req *http.Request, source string, out interface{}) (int, error) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: request failed: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, statusError(source, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%s: read body: %w", source, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, fmt.Errorf("%s: decode response: %w", source, err)
	}
	return resp.StatusCode, nil
}

// outcomeFor classifies an attempt result for telemetry.
func outcomeFor(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

// recordAttempt logs one fetch attempt to telemetry and metrics. Operability
// only; callers must not branch on anything it does.
func recordAttempt(tel *Telemetry, source, endpoint string, start time.Time, status, results int, err error) {
	outcome := outcomeFor(err)
	duration := time.Since(start)

	a := Attempt{
		Source:   source,
		Endpoint: endpoint,
		Start:    start,
		Duration: duration,
		Outcome:  outcome,
		Status:   status,
		Results:  results,
	}
	if err != nil {
		a.Error = err.Error()
	}
	if tel != nil {
		tel.Record(a)
	}

	metrics.FetchDuration.WithLabelValues(source, string(outcome)).Observe(duration.Seconds())
	if results > 0 {
		metrics.FetchResults.WithLabelValues(source).Add(float64(results))
	}
}

// quality computes the fetch-time heuristic score from data-completeness and
// notability signals. chain marks evident franchise records, which score low
// regardless of completeness.
func quality(p *places.Place, chain bool) int {
	q := 40
	if p.Website != "" {
		q += 10
	}
	if p.Phone != "" {
		q += 5
	}
	if p.Hours != "" {
		q += 10
	}
	if p.WikipediaRef != "" || p.WikidataRef != "" {
		q += 15
	}
	if p.Heritage {
		q += 10
	}
	if p.Description != "" {
		q += 5
	}
	if p.ImageURL != "" {
		q += 5
	}
	if chain {
		q -= 25
	}
	if q < 0 {
		q = 0
	}
	if q > 100 {
		q = 100
	}
	return q
}
