// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package geo

import "math"

// Tile is a geographic sub-region of one discovery request. Tiles exist only
// for the duration of the request that planned them.
type Tile struct {
	Lat    float64
	Lon    float64
	Radius float64
}

// Tiler plans how an oversized search radius is split into bounded tiles.
type Tiler struct {
	// tileRadius is the fixed radius of each emitted tile, in meters.
	tileRadius float64
}

// splitFactor: requests below splitFactor*tileRadius are not split at all.
const splitFactor = 1.5

// NewTiler creates a tiler with the given fixed tile radius in meters.
func NewTiler(tileRadiusMeters float64) *Tiler {
	if tileRadiusMeters <= 0 {
		tileRadiusMeters = 25000
	}
	return &Tiler{tileRadius: tileRadiusMeters}
}

// PlanTiles splits a requested search area into tiles.
//
// A radius below 1.5x the tile size is returned unchanged as a single tile.
// Larger requests produce one center tile plus a ring of tiles positioned at
// 60% of the requested radius, spaced so that consecutive ring tiles overlap
// by roughly half a tile (spacing of 1.5x the tile radius along the ring),
// which leaves no coverage gap between neighbours.
func (t *Tiler) PlanTiles(lat, lon, radiusMeters float64) []Tile {
	if radiusMeters < splitFactor*t.tileRadius {
		return []Tile{{Lat: lat, Lon: lon, Radius: radiusMeters}}
	}

	tiles := []Tile{{Lat: lat, Lon: lon, Radius: t.tileRadius}}

	ringDistance := 0.6 * radiusMeters
	circumference := 2 * math.Pi * ringDistance
	spacing := splitFactor * t.tileRadius
	count := int(math.Ceil(circumference / spacing))
	if count < 4 {
		count = 4
	}

	step := 360.0 / float64(count)
	for i := 0; i < count; i++ {
		tileLat, tileLon := Destination(lat, lon, float64(i)*step, ringDistance)
		tiles = append(tiles, Tile{Lat: tileLat, Lon: tileLon, Radius: t.tileRadius})
	}

	return tiles
}
