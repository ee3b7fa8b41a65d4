// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package pipeline orchestrates one discovery request: tile planning,
// gated per-source fan-out, cross-source merge and scoring/selection.
package pipeline

import (
	"strings"

	"github.com/fernweh-app/fernweh/internal/geo"
	"github.com/fernweh-app/fernweh/internal/places"
)

// mergeBucketDecimals quantizes coordinates to ~11 m buckets for duplicate
// detection across sources.
const mergeBucketDecimals = 4

// Merge unifies the per-source result lists into one list with no two
// entries referring to the same physical place.
//
// Primary-source results are trusted outright and seeded first. A secondary
// record is dropped when its normalized name already exists anywhere in the
// accumulated set, or when a record in the same coordinate bucket has a
// name that contains (or is contained by) it; the drop backfills missing
// notability references onto the surviving record.
func Merge(primary, curated, notable []places.Place) []places.Place {
	merged := make([]places.Place, 0, len(primary)+len(curated)+len(notable))
	byName := make(map[string]int)
	byBucket := make(map[string][]int)

	add := func(p places.Place) {
		idx := len(merged)
		merged = append(merged, p)
		if norm := places.NormalizeName(p.Name); norm != "" {
			if _, ok := byName[norm]; !ok {
				byName[norm] = idx
			}
		}
		bucket := geo.BucketKey(p.Lat, p.Lon, mergeBucketDecimals)
		byBucket[bucket] = append(byBucket[bucket], idx)
	}

	for _, p := range primary {
		add(p)
	}

	secondary := make([]places.Place, 0, len(curated)+len(notable))
	secondary = append(secondary, curated...)
	secondary = append(secondary, notable...)

	for _, p := range secondary {
		norm := places.NormalizeName(p.Name)

		if idx, ok := byName[norm]; ok {
			backfillRefs(&merged[idx], &p)
			continue
		}

		bucket := geo.BucketKey(p.Lat, p.Lon, mergeBucketDecimals)
		dropped := false
		for _, idx := range byBucket[bucket] {
			existing := places.NormalizeName(merged[idx].Name)
			if existing == "" || norm == "" {
				continue
			}
			if strings.Contains(existing, norm) || strings.Contains(norm, existing) {
				backfillRefs(&merged[idx], &p)
				dropped = true
				break
			}
		}
		if !dropped {
			add(p)
		}
	}

	return merged
}

// backfillRefs copies missing cross-reference fields from a dropped
// duplicate onto the record that absorbed it.
func backfillRefs(dst, src *places.Place) {
	if dst.WikipediaRef == "" {
		dst.WikipediaRef = src.WikipediaRef
	}
	if dst.WikidataRef == "" {
		dst.WikidataRef = src.WikidataRef
	}
	if dst.ImageURL == "" {
		dst.ImageURL = src.ImageURL
	}
}
