// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/places"
)

// maxGeosearchRadius is the upstream geosearch radius cap in meters.
const maxGeosearchRadius = 10000.0

// geosearchLimit caps the page count per query.
const geosearchLimit = 50

// WikipediaFetcher queries the notable-place geosearch source. Every result
// is notable by definition; the fetcher tags them with the article reference
// so the merge stage can backfill it onto bulk-source records.
type WikipediaFetcher struct {
	cfg    config.WikipediaConfig
	gate   *gate.Gate
	client *http.Client
	tel    *Telemetry
	ttl    time.Duration
}

// NewWikipediaFetcher creates the notable-place fetcher and registers its
// rate-limit interval with the gate.
func NewWikipediaFetcher(cfg config.WikipediaConfig, g *gate.Gate, tel *Telemetry, cacheTTL time.Duration) *WikipediaFetcher {
	g.RegisterSource(string(places.SourceWikipedia), cfg.MinInterval)
	return &WikipediaFetcher{
		cfg:    cfg,
		gate:   g,
		client: newHTTPClient(),
		tel:    tel,
		ttl:    cacheTTL,
	}
}

// Name returns the source identifier.
func (f *WikipediaFetcher) Name() string { return string(places.SourceWikipedia) }

// Fetch returns notable places near the point. The upstream caps the search
// radius at 10 km; larger requests are clamped, not rejected. The category
// filter does not apply to this source.
func (f *WikipediaFetcher) Fetch(ctx context.Context, lat, lon, radiusMeters float64, category string) ([]places.Place, error) {
	if radiusMeters > maxGeosearchRadius {
		radiusMeters = maxGeosearchRadius
	}

	key := geocache.Key(f.Name(), lat, lon, radiusMeters, "")
	raw, err := f.gate.ManagedCall(ctx, f.Name(), key, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.query(ctx, lat, lon, radiusMeters)
	})
	if err != nil {
		return nil, err
	}

	var result []places.Place
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("wikipedia: decode cached places: %w", err)
	}
	return result, nil
}

type geosearchResponse struct {
	Query struct {
		Geosearch []geosearchPage `json:"geosearch"`
	} `json:"query"`
}

type geosearchPage struct {
	PageID int64   `json:"pageid"`
	Title  string  `json:"title"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
}

func (f *WikipediaFetcher) query(ctx context.Context, lat, lon, radiusMeters float64) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "geosearch")
	params.Set("gscoord", fmt.Sprintf("%.6f|%.6f", lat, lon))
	params.Set("gsradius", strconv.Itoa(int(radiusMeters)))
	params.Set("gslimit", strconv.Itoa(geosearchLimit))
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("wikipedia: build request: %w", err)
	}

	start := time.Now()
	var resp geosearchResponse
	status, err := fetchJSON(f.client, req, f.Name(), &resp)
	if err != nil {
		recordAttempt(f.tel, f.Name(), f.cfg.URL, start, status, 0, err)
		return nil, err
	}

	result := make([]places.Place, 0, len(resp.Query.Geosearch))
	for _, page := range resp.Query.Geosearch {
		if p, ok := normalizeGeosearchPage(page); ok {
			result = append(result, p)
		}
	}
	recordAttempt(f.tel, f.Name(), f.cfg.URL, start, status, len(result), nil)

	return json.Marshal(result)
}

// normalizeGeosearchPage converts one geosearch hit into a Place.
func normalizeGeosearchPage(page geosearchPage) (places.Place, bool) {
	if page.Title == "" || (page.Lat == 0 && page.Lon == 0) {
		return places.Place{}, false
	}

	p := places.Place{
		ID:           fmt.Sprintf("%s:%d", places.SourceWikipedia, page.PageID),
		Name:         page.Title,
		Lat:          page.Lat,
		Lon:          page.Lon,
		Kind:         "notable",
		Category:     places.CategoryOf("notable"),
		WikipediaRef: page.Title,
		Source:       places.SourceWikipedia,
	}
	p.Quality = quality(&p, false)
	return p, true
}
