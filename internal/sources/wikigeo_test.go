// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/places"
)

const geosearchFixture = `{
	"query": {
		"geosearch": [
			{"pageid": 12345, "title": "Tower of London", "lat": 51.5081, "lon": -0.0759},
			{"pageid": 0, "title": "", "lat": 0, "lon": 0}
		]
	}
}`

func newWikipediaFetcher(t *testing.T, url string) *WikipediaFetcher {
	t.Helper()
	cfg := config.WikipediaConfig{URL: url, MinInterval: time.Millisecond}
	return NewWikipediaFetcher(cfg, newTestGate(t), NewTelemetry(10), time.Minute)
}

func TestWikipediaFetchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("list") != "geosearch" {
			t.Errorf("expected geosearch query, got %q", q.Get("list"))
		}
		_, _ = w.Write([]byte(geosearchFixture))
	}))
	defer srv.Close()

	f := newWikipediaFetcher(t, srv.URL)
	result, err := f.Fetch(context.Background(), 51.5, -0.08, 5000, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The empty page is dropped
	if len(result) != 1 {
		t.Fatalf("expected 1 place, got %d", len(result))
	}
	p := result[0]
	if p.ID != "wikipedia:12345" {
		t.Errorf("expected source-qualified id, got %s", p.ID)
	}
	if p.WikipediaRef != "Tower of London" {
		t.Errorf("expected article reference, got %q", p.WikipediaRef)
	}
	if p.Source != places.SourceWikipedia {
		t.Errorf("unexpected source %s", p.Source)
	}
}

func TestWikipediaRadiusCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		radius, err := strconv.Atoi(r.URL.Query().Get("gsradius"))
		if err != nil || radius > 10000 {
			t.Errorf("gsradius must be capped at 10000, got %q", r.URL.Query().Get("gsradius"))
		}
		_, _ = w.Write([]byte(geosearchFixture))
	}))
	defer srv.Close()

	f := newWikipediaFetcher(t, srv.URL)
	if _, err := f.Fetch(context.Background(), 51.5, -0.08, 50000, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestWikipediaIgnoresCategoryInKey(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(geosearchFixture))
	}))
	defer srv.Close()

	f := newWikipediaFetcher(t, srv.URL)
	// The category filter does not apply to this source; both requests share
	// one cache entry
	if _, err := f.Fetch(context.Background(), 51.5, -0.08, 5000, "food"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := f.Fetch(context.Background(), 51.5, -0.08, 5000, "history"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected one upstream call across category variants, got %d", calls)
	}
}
