// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geocache

import (
	"fmt"

	"github.com/fernweh-app/fernweh/internal/geo"
)

// keyPrecision quantizes coordinates to 3 decimal places (~100 m buckets) so
// that two requests for nearby points reuse the same cached result.
const keyPrecision = 3

// Key builds a cache key from a source name and the request geometry.
// Radius is bucketed to whole kilometers to keep near-identical requests on
// one key.
func Key(source string, lat, lon, radiusMeters float64, category string) string {
	if category == "" {
		category = "all"
	}
	radiusKM := int(radiusMeters / 1000)
	return fmt.Sprintf("%s:%s:r%d:%s", source, geo.BucketKey(lat, lon, keyPrecision), radiusKM, category)
}
