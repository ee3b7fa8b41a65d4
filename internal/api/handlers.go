// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/logging"
	"github.com/fernweh-app/fernweh/internal/places"
	"github.com/fernweh-app/fernweh/internal/sources"
)

// Discoverer is the pipeline entry point the API depends on.
type Discoverer interface {
	DiscoverLatest(ctx context.Context, purpose string, lat, lon, radiusMeters float64, category string) ([]places.Place, error)
}

// Handler serves the discovery API.
type Handler struct {
	discoverer Discoverer
	gate       *gate.Gate
	telemetry  *sources.Telemetry
	cache      *geocache.Cache
	started    time.Time
	validate   *validator.Validate
}

// NewHandler creates the API handler over the injected pipeline components.
func NewHandler(d Discoverer, g *gate.Gate, tel *sources.Telemetry, cache *geocache.Cache) *Handler {
	return &Handler{
		discoverer: d,
		gate:       g,
		telemetry:  tel,
		cache:      cache,
		started:    time.Now(),
		validate:   validator.New(),
	}
}

// discoverRequest is the validated query-parameter shape of GET /discover.
// A zero lat/lon is legal (equator, prime meridian); absence is caught at
// parse time, so range checks suffice here.
type discoverRequest struct {
	Lat      float64 `validate:"latitude"`
	Lon      float64 `validate:"longitude"`
	Radius   float64 `validate:"gt=0,lte=100000"`
	Category string  `validate:"omitempty,oneof=nature history culture religious viewpoint food entertainment curiosity"`
}

// discoverResponse is the envelope of GET /discover.
type discoverResponse struct {
	Places []places.Place `json:"places"`
	Count  int            `json:"count"`
}

// Discover handles GET /api/v1/discover?lat=&lon=&radius=&category=.
//
// A new request from the same client cancels that client's previous
// in-flight request, so switching category mid-search never lets stale
// results win.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	req, err := parseDiscoverRequest(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid parameters: "+err.Error())
		return
	}

	result, err := h.discoverer.DiscoverLatest(r.Context(), clientPurpose(r), req.Lat, req.Lon, req.Radius, req.Category)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// Client went away or a newer request superseded this one
			respondError(w, statusClientClosedRequest, "request canceled")
			return
		}
		logging.Error().Err(err).Msg("Discovery request failed")
		respondError(w, http.StatusInternalServerError, "discovery failed")
		return
	}

	if result == nil {
		result = []places.Place{}
	}
	respondJSON(w, http.StatusOK, discoverResponse{Places: result, Count: len(result)})
}

// statusClientClosedRequest is the nginx convention for canceled requests.
const statusClientClosedRequest = 499

func parseDiscoverRequest(r *http.Request) (*discoverRequest, error) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return nil, errors.New("lat must be a number")
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return nil, errors.New("lon must be a number")
	}
	radius, err := strconv.ParseFloat(q.Get("radius"), 64)
	if err != nil {
		return nil, errors.New("radius must be a number in meters")
	}

	return &discoverRequest{
		Lat:      lat,
		Lon:      lon,
		Radius:   radius,
		Category: q.Get("category"),
	}, nil
}

// clientPurpose identifies the logical caller for previous-request
// cancellation: an explicit session header when present, the client address
// otherwise.
func clientPurpose(r *http.Request) string {
	if s := r.Header.Get("X-Session-ID"); s != "" {
		return s
	}
	return r.RemoteAddr
}

// healthResponse is the envelope of GET /healthz.
type healthResponse struct {
	Status       string `json:"status"`
	UptimeSecs   int64  `json:"uptime_seconds"`
	CacheEntries int    `json:"cache_entries"`
}

// Health handles GET /healthz.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "ok",
		UptimeSecs: int64(time.Since(h.started).Seconds()),
	}
	if h.cache != nil {
		resp.CacheEntries = h.cache.Len()
	}
	respondJSON(w, http.StatusOK, resp)
}

// sourcesResponse is the envelope of GET /api/v1/sources.
type sourcesResponse struct {
	Sources  []gate.SourceStatus `json:"sources"`
	Attempts []sources.Attempt   `json:"recent_attempts"`
}

// Sources handles GET /api/v1/sources: per-source breaker state plus the
// recent fetch telemetry.
func (h *Handler) Sources(w http.ResponseWriter, r *http.Request) {
	resp := sourcesResponse{
		Sources:  h.gate.Snapshot(),
		Attempts: h.telemetry.Recent(),
	}
	if resp.Sources == nil {
		resp.Sources = []gate.SourceStatus{}
	}
	if resp.Attempts == nil {
		resp.Attempts = []sources.Attempt{}
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
