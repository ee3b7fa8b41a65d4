// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"testing"

	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geocache"
)

// newTestGate builds an isolated gate over an in-memory cache.
func newTestGate(t *testing.T) *gate.Gate {
	t.Helper()
	backing, err := geocache.NewBadgerStore("")
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = backing.Close() })

	cache := geocache.New(100, 6, backing)
	return gate.New(gate.Config{FailureThreshold: 3}, cache)
}
