// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package places defines the unified Place model that all source fetchers
// normalize into, plus the category taxonomy used by scoring and selection.
package places

import "strings"

// Source identifies which upstream fetcher produced a place.
type Source string

// Known sources. Identifiers are qualified with these so that records from
// different upstreams can never collide.
const (
	SourceOverpass    Source = "overpass"
	SourceOpenTripMap Source = "opentripmap"
	SourceWikipedia   Source = "wikipedia"
)

// Place is a discovered point of interest.
//
// A Place is created by a source fetcher from raw upstream data, enriched by
// the merge stage (cross-source references) and the scoring stage (Score),
// and immutable thereafter. Places are never persisted; only the geo cache
// retains serialized snapshots.
type Place struct {
	// ID is the stable source-qualified identifier, e.g. "overpass:node/42".
	ID string `json:"id"`

	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`

	// Kind is the raw upstream type/tag, e.g. "castle" or "viewpoint".
	Kind string `json:"kind"`

	// Category is the Kind mapped into the fixed taxonomy below.
	Category Category `json:"category"`

	// Optional enrichment fields; empty string means absent.
	Address     string `json:"address,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Website     string `json:"website,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Hours       string `json:"hours,omitempty"`

	// WikipediaRef and WikidataRef link the place to notable-place records.
	// The merge stage may backfill these from another source's record.
	WikipediaRef string `json:"wikipedia_ref,omitempty"`
	WikidataRef  string `json:"wikidata_ref,omitempty"`

	// Heritage marks formally designated heritage sites.
	Heritage bool `json:"heritage,omitempty"`

	// Quality is the fetch-time heuristic score (0-100) derived from data
	// completeness and notability signals.
	Quality int `json:"quality"`

	// Score is the context score (0-100) attached by the scoring stage.
	Score int `json:"score"`

	Source Source `json:"source"`
}

// HasContact reports whether the place carries any contact information.
func (p *Place) HasContact() bool {
	return p.Phone != "" || p.Website != ""
}

// articles are name tokens dropped during normalization so that
// "The Crown Inn" and "Crown Inn, The" compare equal.
var articles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
}

// NormalizeName reduces a display name to a canonical comparison form:
// lowercase, punctuation stripped, article tokens removed, single spaces.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 0x80: // keep non-ASCII letters as-is
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if !articles[f] {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
