// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/places"
)

const overpassFixture = `{
	"elements": [
		{
			"type": "node", "id": 42, "lat": 51.5007, "lon": -0.1246,
			"tags": {
				"name": "Big Ben", "tourism": "attraction",
				"wikipedia": "en:Big Ben", "wikidata": "Q41225",
				"heritage": "1"
			}
		},
		{
			"type": "way", "id": 7, "center": {"lat": 51.501, "lon": -0.125},
			"tags": {
				"name": "Westminster Abbey", "amenity": "place_of_worship",
				"opening_hours": "Mo-Sa 09:30-15:30",
				"website": "https://www.westminster-abbey.org",
				"addr:street": "Dean's Yard", "addr:housenumber": "20",
				"addr:city": "London"
			}
		},
		{
			"type": "node", "id": 8, "lat": 51.502, "lon": -0.126,
			"tags": {"tourism": "viewpoint"}
		},
		{
			"type": "node", "id": 9, "lat": 51.503, "lon": -0.127,
			"tags": {"name": "Coffee Chain 214", "amenity": "cafe", "brand": "Coffee Chain"}
		}
	]
}`

func newOverpassFetcher(t *testing.T, endpoints []string) *OverpassFetcher {
	t.Helper()
	cfg := config.OverpassConfig{Endpoints: endpoints, MinInterval: time.Millisecond}
	return NewOverpassFetcher(cfg, newTestGate(t), NewTelemetry(10), time.Minute)
}

func TestOverpassFetchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer srv.Close()

	f := newOverpassFetcher(t, []string{srv.URL})
	result, err := f.Fetch(context.Background(), 51.5, -0.12, 5000, "")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// The nameless viewpoint is dropped
	if len(result) != 3 {
		t.Fatalf("expected 3 places, got %d", len(result))
	}

	byName := make(map[string]places.Place, len(result))
	for _, p := range result {
		byName[p.Name] = p
	}

	ben, ok := byName["Big Ben"]
	if !ok {
		t.Fatal("missing Big Ben")
	}
	if ben.ID != "overpass:node/42" {
		t.Errorf("expected source-qualified id, got %s", ben.ID)
	}
	if ben.Category != places.CategoryCuriosity {
		t.Errorf("attraction kind maps to curiosity, got %s", ben.Category)
	}
	if ben.WikipediaRef != "en:Big Ben" || !ben.Heritage {
		t.Errorf("notability fields not carried: %+v", ben)
	}

	abbey, ok := byName["Westminster Abbey"]
	if !ok {
		t.Fatal("missing Westminster Abbey")
	}
	if abbey.Lat != 51.501 || abbey.Lon != -0.125 {
		t.Errorf("way must use its center coordinate, got %f,%f", abbey.Lat, abbey.Lon)
	}
	if abbey.Category != places.CategoryReligious {
		t.Errorf("expected religious, got %s", abbey.Category)
	}
	if abbey.Address != "Dean's Yard 20, London" {
		t.Errorf("unexpected address %q", abbey.Address)
	}

	// A branded cafe scores below the heritage landmark
	chain := byName["Coffee Chain 214"]
	if chain.Quality >= ben.Quality {
		t.Errorf("chain quality %d must be below landmark quality %d", chain.Quality, ben.Quality)
	}
}

func TestOverpassFetchCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer srv.Close()

	f := newOverpassFetcher(t, []string{srv.URL})
	for i := 0; i < 3; i++ {
		if _, err := f.Fetch(context.Background(), 51.5, -0.12, 5000, ""); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 upstream call for identical requests, got %d", hits.Load())
	}
}

func TestOverpassFallsThroughMirrors(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer good.Close()

	f := newOverpassFetcher(t, []string{bad.URL, good.URL})
	result, err := f.Fetch(context.Background(), 51.5, -0.12, 5000, "")
	if err != nil {
		t.Fatalf("expected mirror fall-through to succeed: %v", err)
	}
	if len(result) == 0 {
		t.Error("expected places from the healthy mirror")
	}
}

func TestOverpassRecordsTelemetry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(overpassFixture))
	}))
	defer srv.Close()

	tel := NewTelemetry(10)
	cfg := config.OverpassConfig{Endpoints: []string{srv.URL}, MinInterval: time.Millisecond}
	f := NewOverpassFetcher(cfg, newTestGate(t), tel, time.Minute)

	if _, err := f.Fetch(context.Background(), 51.5, -0.12, 5000, ""); err != nil {
		t.Fatalf("fetch: %v", err)
	}

	recent := tel.Recent()
	if len(recent) != 1 {
		t.Fatalf("expected 1 telemetry attempt, got %d", len(recent))
	}
	a := recent[0]
	if a.Source != "overpass" || a.Outcome != OutcomeSuccess || a.Results != 3 {
		t.Errorf("unexpected attempt record: %+v", a)
	}
}

func TestBuildOverpassQuery(t *testing.T) {
	q := buildOverpassQuery(51.5, -0.12, 5000, "")

	if !strings.HasPrefix(q, "[out:json][timeout:12];(") {
		t.Errorf("expected radius-scaled timeout prefix, got %q", q[:40])
	}
	for _, key := range []string{"amenity", "historic", "leisure", "man_made", "natural", "tourism"} {
		if !strings.Contains(q, `nwr["`+key+`"~`) {
			t.Errorf("query missing selector for %s", key)
		}
	}
	if !strings.HasSuffix(q, "out center 200;") {
		t.Errorf("query missing output clause: %q", q)
	}
}

func TestBuildOverpassQueryCategoryFilter(t *testing.T) {
	q := buildOverpassQuery(51.5, -0.12, 5000, "food")

	if !strings.Contains(q, `nwr["amenity"~"^(restaurant|cafe|pub|bar|biergarten)$"]`) {
		t.Errorf("food filter missing amenity selector: %q", q)
	}
	if strings.Contains(q, "historic") || strings.Contains(q, "natural") {
		t.Errorf("food filter must not query unrelated keys: %q", q)
	}
}

func TestServerTimeoutScalesWithRadius(t *testing.T) {
	tests := []struct {
		radius float64
		want   time.Duration
	}{
		{1000, 10 * time.Second},
		{25000, 22 * time.Second},
		{200000, 60 * time.Second}, // capped
	}
	for _, tt := range tests {
		if got := serverTimeout(tt.radius); got != tt.want {
			t.Errorf("serverTimeout(%.0f) = %v, want %v", tt.radius, got, tt.want)
		}
	}
}
