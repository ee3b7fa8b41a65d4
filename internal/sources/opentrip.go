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
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/places"
)

// otmKinds maps the taxonomy onto the curated source's kind slugs.
var otmKinds = map[places.Category]string{
	places.CategoryNature:        "natural",
	places.CategoryHistory:       "historic",
	places.CategoryCulture:       "cultural",
	places.CategoryReligious:     "religion",
	places.CategoryViewpoint:     "view_points",
	places.CategoryFood:          "foods",
	places.CategoryEntertainment: "amusements",
	places.CategoryCuriosity:     "interesting_places",
}

// OpenTripMapFetcher queries the curated-attraction source. An empty API key
// disables the source entirely: Fetch returns no places and no error, so the
// pipeline proceeds on the remaining sources.
type OpenTripMapFetcher struct {
	cfg    config.OpenTripMapConfig
	gate   *gate.Gate
	client *http.Client
	tel    *Telemetry
	ttl    time.Duration
}

// NewOpenTripMapFetcher creates the curated fetcher and registers its
// rate-limit interval with the gate.
func NewOpenTripMapFetcher(cfg config.OpenTripMapConfig, g *gate.Gate, tel *Telemetry, cacheTTL time.Duration) *OpenTripMapFetcher {
	g.RegisterSource(string(places.SourceOpenTripMap), cfg.MinInterval)
	return &OpenTripMapFetcher{
		cfg:    cfg,
		gate:   g,
		client: newHTTPClient(),
		tel:    tel,
		ttl:    cacheTTL,
	}
}

// Name returns the source identifier.
func (f *OpenTripMapFetcher) Name() string { return string(places.SourceOpenTripMap) }

// Fetch returns normalized curated places, or nothing when no API key is
// configured.
func (f *OpenTripMapFetcher) Fetch(ctx context.Context, lat, lon, radiusMeters float64, category string) ([]places.Place, error) {
	if f.cfg.APIKey == "" {
		return nil, nil
	}

	key := geocache.Key(f.Name(), lat, lon, radiusMeters, category)
	raw, err := f.gate.ManagedCall(ctx, f.Name(), key, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.query(ctx, lat, lon, radiusMeters, category)
	})
	if err != nil {
		return nil, err
	}

	var result []places.Place
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("opentripmap: decode cached places: %w", err)
	}
	return result, nil
}

type otmPlace struct {
	XID      string  `json:"xid"`
	Name     string  `json:"name"`
	Kinds    string  `json:"kinds"`
	Rate     int     `json:"rate"`
	Wikidata string  `json:"wikidata"`
	Point    struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"point"`
}

func (f *OpenTripMapFetcher) query(ctx context.Context, lat, lon, radiusMeters float64, category string) (json.RawMessage, error) {
	kinds := otmKinds[places.CategoryCuriosity]
	if k, ok := otmKinds[places.Category(category)]; ok && category != "" {
		kinds = k
	}

	params := url.Values{}
	params.Set("radius", strconv.Itoa(int(radiusMeters)))
	params.Set("lat", strconv.FormatFloat(lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', 6, 64))
	params.Set("kinds", kinds)
	params.Set("format", "json")
	params.Set("limit", "100")
	params.Set("apikey", f.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: build request: %w", err)
	}

	start := time.Now()
	var resp []otmPlace
	status, err := fetchJSON(f.client, req, f.Name(), &resp)
	if err != nil {
		recordAttempt(f.tel, f.Name(), f.cfg.URL, start, status, 0, err)
		return nil, err
	}

	result := make([]places.Place, 0, len(resp))
	for i := range resp {
		if p, ok := normalizeOTMPlace(&resp[i]); ok {
			result = append(result, p)
		}
	}
	recordAttempt(f.tel, f.Name(), f.cfg.URL, start, status, len(result), nil)

	return json.Marshal(result)
}

// normalizeOTMPlace converts one curated record into a Place. Records
// without a name or coordinate are discarded.
func normalizeOTMPlace(r *otmPlace) (places.Place, bool) {
	if r.Name == "" || (r.Point.Lat == 0 && r.Point.Lon == 0) {
		return places.Place{}, false
	}

	// kinds is a comma-separated slug list; the first entry is the most
	// specific
	kind := r.Kinds
	if i := strings.IndexByte(kind, ','); i >= 0 {
		kind = kind[:i]
	}

	p := places.Place{
		ID:          fmt.Sprintf("%s:%s", places.SourceOpenTripMap, r.XID),
		Name:        r.Name,
		Lat:         r.Point.Lat,
		Lon:         r.Point.Lon,
		Kind:        kind,
		Category:    places.CategoryOf(kind),
		WikidataRef: r.Wikidata,
		Source:      places.SourceOpenTripMap,
	}

	// The upstream rating (1..3, plus heritage grades above) dominates the
	// completeness signals this source does not carry
	p.Quality = quality(&p, false)
	if r.Rate > 0 {
		q := p.Quality + r.Rate*5
		if q > 100 {
			q = 100
		}
		p.Quality = q
	}
	return p, true
}
