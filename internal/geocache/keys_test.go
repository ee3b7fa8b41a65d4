// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geocache

import "testing"

func TestKeyBucketsNearbyCoordinates(t *testing.T) {
	// ~40 m apart: same bucket, same key
	a := Key("overpass", 51.5001, -0.1201, 5000, "")
	b := Key("overpass", 51.5004, -0.1199, 5000, "")
	if a != b {
		t.Errorf("expected nearby requests to share a key, got %q vs %q", a, b)
	}
}

func TestKeyDiscriminates(t *testing.T) {
	base := Key("overpass", 51.5, -0.12, 5000, "")

	if Key("wikipedia", 51.5, -0.12, 5000, "") == base {
		t.Error("source must be part of the key")
	}
	if Key("overpass", 51.6, -0.12, 5000, "") == base {
		t.Error("distant latitude must change the key")
	}
	if Key("overpass", 51.5, -0.12, 20000, "") == base {
		t.Error("radius must be part of the key")
	}
	if Key("overpass", 51.5, -0.12, 5000, "food") == base {
		t.Error("category must be part of the key")
	}
}

func TestKeyEmptyCategory(t *testing.T) {
	if Key("overpass", 51.5, -0.12, 5000, "") != Key("overpass", 51.5, -0.12, 5000, "all") {
		t.Error(`empty category and "all" must produce the same key`)
	}
}
