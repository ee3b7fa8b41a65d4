// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package api provides the HTTP surface of the discovery pipeline using the
// Chi router: the discover endpoint, source status, health and metrics.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/middleware"
)

// Router assembles the HTTP routes over the injected handler.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router over the given handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all HTTP routes and the middleware stack.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/healthz", rt.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByRealIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))

		r.Get("/discover", rt.handler.Discover)
		r.Get("/sources", rt.handler.Sources)
	})

	return r
}
