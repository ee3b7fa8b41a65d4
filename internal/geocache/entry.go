// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geocache

import (
	"time"

	"github.com/goccy/go-json"
)

// Entry wraps cached response data with its lifecycle timestamps.
// Invariant: CreatedAt <= HardExpiry <= SoftExpiry.
//
// A read before HardExpiry is fresh. A read between HardExpiry and SoftExpiry
// is stale: still served, but a background refresh is triggered. Past
// SoftExpiry the entry is dead and only ever served as a last resort when a
// synchronous refresh fails.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"created_at"`
	HardExpiry time.Time       `json:"hard_expiry"`
	SoftExpiry time.Time       `json:"soft_expiry"`
}

// Fresh reports whether the entry is within its hard-expiry window.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.HardExpiry)
}

// Stale reports whether the entry is between hard- and soft-expiry.
func (e *Entry) Stale(now time.Time) bool {
	return !now.Before(e.HardExpiry) && now.Before(e.SoftExpiry)
}

// Dead reports whether the entry is past its soft-expiry.
func (e *Entry) Dead(now time.Time) bool {
	return !now.Before(e.SoftExpiry)
}
