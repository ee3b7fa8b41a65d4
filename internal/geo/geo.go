// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package geo provides the spherical geometry the pipeline needs: distance,
// destination-point projection, bounding boxes, coordinate quantization and
// the query tiler that splits oversized search radii.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusMeters is the mean Earth radius used for all spherical math.
const earthRadiusMeters = 6371000.0

// Distance returns the haversine great-circle distance in meters between two
// coordinates given in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Destination returns the coordinate reached by travelling distanceMeters
// from (lat, lon) along the given bearing in degrees (0 = north, clockwise).
func Destination(lat, lon, bearingDeg, distanceMeters float64) (float64, float64) {
	phi := lat * math.Pi / 180
	lambda := lon * math.Pi / 180
	theta := bearingDeg * math.Pi / 180
	delta := distanceMeters / earthRadiusMeters

	phi2 := math.Asin(math.Sin(phi)*math.Cos(delta) +
		math.Cos(phi)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi),
		math.Cos(delta)-math.Sin(phi)*math.Sin(phi2))

	lat2 := phi2 * 180 / math.Pi
	lon2 := lambda2 * 180 / math.Pi

	// Normalize longitude to [-180, 180)
	lon2 = math.Mod(lon2+540, 360) - 180

	return lat2, lon2
}

// BoundingBox returns the (south, west, north, east) box enclosing a circle
// of radiusMeters around (lat, lon). Longitude width degrades near the poles;
// the cosine is clamped to keep the box finite.
func BoundingBox(lat, lon, radiusMeters float64) (south, west, north, east float64) {
	latDelta := radiusMeters / earthRadiusMeters * 180 / math.Pi

	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := radiusMeters / (earthRadiusMeters * cosLat) * 180 / math.Pi

	return lat - latDelta, lon - lonDelta, lat + latDelta, lon + lonDelta
}

// Quantize rounds a coordinate to the given number of decimal places.
// Three decimals produce ~111 m latitude buckets, four produce ~11 m.
func Quantize(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}

// BucketKey returns a stable string key for the quantized coordinate pair.
func BucketKey(lat, lon float64, decimals int) string {
	return fmt.Sprintf("%.*f,%.*f", decimals, Quantize(lat, decimals), decimals, Quantize(lon, decimals))
}
