// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestEndpointPoolFallsThroughOnFailure(t *testing.T) {
	var badHits, goodHits atomic.Int32

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goodHits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer good.Close()

	pool := NewEndpointPool([]string{bad.URL, good.URL})
	body, endpoint, err := pool.Post(context.Background(), newHTTPClient(), "text/plain", "q")
	if err != nil {
		t.Fatalf("expected fall-through to succeed, got %v", err)
	}
	if endpoint != good.URL {
		t.Errorf("expected answer from second endpoint, got %s", endpoint)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body %s", body)
	}
	if badHits.Load() != 1 || goodHits.Load() != 1 {
		t.Errorf("expected one hit each, got bad=%d good=%d", badHits.Load(), goodHits.Load())
	}
}

func TestEndpointPoolAllFailed(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	pool := NewEndpointPool([]string{bad.URL})
	_, _, err := pool.Post(context.Background(), newHTTPClient(), "text/plain", "q")
	if err == nil {
		t.Fatal("expected error when every endpoint fails")
	}
}

func TestEndpointPoolRanksFailingEndpointLast(t *testing.T) {
	pool := NewEndpointPool([]string{"http://a.example", "http://b.example"})

	// a was configured first but keeps failing; b answers fast
	eps := pool.ranked()
	pool.observe(eps[0], 100*time.Millisecond, false)
	pool.observe(eps[1], 50*time.Millisecond, true)

	ranked := pool.ranked()
	if ranked[0].url != "http://b.example" {
		t.Errorf("expected healthy endpoint ranked first, got %s", ranked[0].url)
	}

	// a recovers; the penalty decays across successes
	a := eps[0]
	for i := 0; i < 12; i++ {
		pool.observe(a, 10*time.Millisecond, true)
	}
	ranked = pool.ranked()
	if ranked[0].url != "http://a.example" {
		t.Errorf("expected recovered faster endpoint to climb back, got %s", ranked[0].url)
	}
}

func TestEndpointPoolStopsOnCancellation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewEndpointPool([]string{srv.URL, srv.URL})
	_, _, err := pool.Post(ctx, newHTTPClient(), "text/plain", "q")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if hits.Load() != 0 {
		t.Errorf("canceled call must not reach the network, got %d hits", hits.Load())
	}
}

func TestEndpointBreakerSkipsDeadMirror(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`ok`))
	}))
	defer good.Close()

	pool := NewEndpointPool([]string{bad.URL, good.URL})
	// Pin the bad mirror first so every call has to fall through it
	pool.endpoints[0].latencyEWMA = 0
	pool.endpoints[1].latencyEWMA = 1

	for i := 0; i < 5; i++ {
		if _, _, err := pool.Post(context.Background(), newHTTPClient(), "text/plain", "q"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		pool.endpoints[0].failPenalty = 0
	}

	// After three consecutive failures the mirror's breaker opens and later
	// calls skip it without a request
	if badHits.Load() != 3 {
		t.Errorf("expected the dead mirror to stop being called after 3 failures, got %d hits", badHits.Load())
	}
}
