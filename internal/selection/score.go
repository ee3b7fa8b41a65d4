// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package selection assigns context scores to discovered places and reduces
// them to a small, category-diverse subset for display.
package selection

import (
	"regexp"
	"time"

	"github.com/fernweh-app/fernweh/internal/places"
)

// Weather is the caller-supplied weather condition at the search point.
// Callers without weather data pass WeatherUnknown; no bonus applies.
type Weather string

const (
	WeatherUnknown Weather = ""
	WeatherGood    Weather = "good"
	WeatherBad     Weather = "bad"
)

// Context carries the request-time signals scoring conditions on.
type Context struct {
	Now     time.Time
	Weather Weather
}

// Base scores by category recognition.
const (
	baseRecognized   = 30
	baseUnrecognized = 10
)

// premiumKinds are place types that are nearly always worth a detour.
var premiumKinds = map[string]bool{
	"castle":              true,
	"palace":              true,
	"cathedral":           true,
	"monastery":           true,
	"ruins":               true,
	"archaeological_site": true,
	"viewpoint":           true,
	"waterfall":           true,
	"lighthouse":          true,
	"observation_tower":   true,
}

// denylistKinds are never shown regardless of other signals.
var denylistKinds = map[string]bool{
	"fuel":             true,
	"parking":          true,
	"toilets":          true,
	"bench":            true,
	"atm":              true,
	"vending_machine":  true,
	"car_wash":         true,
	"charging_station": true,
	"waste_disposal":   true,
}

// evocativeNames matches name fragments that promise something memorable.
var evocativeNames = regexp.MustCompile(`(?i)\b(castle|abbey|falls|grotto|cave|haunted|ancient|secret|hidden|ruin|lost)\b`)

// boringNames matches chain-store and civic-infrastructure naming patterns.
var boringNames = regexp.MustCompile(`(?i)\b(car park|parking|substation|pumping station|retail park|industrial estate|business park|supermarket|depot)\b`)

// Score computes the context score (0-100) for one place.
//
// The score combines a base for recognized categories, completeness bonuses,
// premium-type and evocative-name bonuses, and time-of-day and weather
// conditioned category bonuses. Denylisted types and boring name patterns
// carry fixed penalties; the denylist penalty is effectively exclusionary.
func Score(p *places.Place, c Context) int {
	if denylistKinds[p.Kind] {
		return 0
	}

	score := baseUnrecognized
	if places.Recognized(p.Kind) {
		score = baseRecognized
	}

	// Completeness
	if p.ImageURL != "" {
		score += 8
	}
	if p.Website != "" {
		score += 5
	}
	if p.Hours != "" {
		score += 5
	}
	if len(p.Description) >= 100 {
		score += 7
	}
	if p.WikipediaRef != "" || p.WikidataRef != "" {
		score += 10
	}
	if p.HasContact() {
		score += 4
	}
	if p.Address != "" {
		score += 3
	}

	if premiumKinds[p.Kind] {
		score += 12
	}
	if evocativeNames.MatchString(p.Name) {
		score += 6
	}
	if boringNames.MatchString(p.Name) {
		score -= 40
	}

	score += contextBonus(p.Category, c)

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// contextBonus conditions categories on daylight and weather: outdoor
// categories shine in good weather during the day, indoor ones in bad
// weather or in the evening.
func contextBonus(cat places.Category, c Context) int {
	hour := -1
	if !c.Now.IsZero() {
		hour = c.Now.Hour()
	}

	bonus := 0
	if cat.IsOutdoor() {
		if c.Weather == WeatherGood {
			bonus += 8
		}
		if c.Weather == WeatherBad {
			bonus -= 8
		}
		if hour >= 8 && hour < 18 {
			bonus += 4
		}
	} else {
		if c.Weather == WeatherBad {
			bonus += 8
		}
		if hour >= 18 && hour < 23 {
			bonus += 4
		}
	}
	return bonus
}
