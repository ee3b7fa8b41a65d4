// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package places

// Category is the fixed taxonomy places are grouped into for scoring and
// diversity selection.
type Category string

const (
	CategoryNature        Category = "nature"
	CategoryHistory       Category = "history"
	CategoryCulture       Category = "culture"
	CategoryReligious     Category = "religious"
	CategoryViewpoint     Category = "viewpoint"
	CategoryFood          Category = "food"
	CategoryEntertainment Category = "entertainment"
	CategoryCuriosity     Category = "curiosity"
)

// Categories lists every recognized category.
var Categories = []Category{
	CategoryNature,
	CategoryHistory,
	CategoryCulture,
	CategoryReligious,
	CategoryViewpoint,
	CategoryFood,
	CategoryEntertainment,
	CategoryCuriosity,
}

// kindCategories maps raw upstream kinds onto the taxonomy. Kinds map from
// OSM tag values and OpenTripMap kind slugs; anything unlisted falls back to
// CategoryCuriosity.
var kindCategories = map[string]Category{
	// nature
	"park":           CategoryNature,
	"garden":         CategoryNature,
	"nature_reserve": CategoryNature,
	"beach":          CategoryNature,
	"waterfall":      CategoryNature,
	"cave_entrance":  CategoryNature,
	"peak":           CategoryNature,
	"spring":         CategoryNature,
	"natural":        CategoryNature,
	"water_park":     CategoryNature,

	// history
	"castle":            CategoryHistory,
	"fort":              CategoryHistory,
	"ruins":             CategoryHistory,
	"archaeological_site": CategoryHistory,
	"monument":          CategoryHistory,
	"memorial":          CategoryHistory,
	"historic":          CategoryHistory,
	"battlefield":       CategoryHistory,
	"city_gate":         CategoryHistory,
	"palace":            CategoryHistory,

	// culture
	"museum":        CategoryCulture,
	"gallery":       CategoryCulture,
	"artwork":       CategoryCulture,
	"theatre":       CategoryCulture,
	"arts_centre":   CategoryCulture,
	"library":       CategoryCulture,
	"cultural":      CategoryCulture,

	// religious
	"place_of_worship": CategoryReligious,
	"monastery":        CategoryReligious,
	"shrine":           CategoryReligious,
	"cathedral":        CategoryReligious,
	"church":           CategoryReligious,
	"temple":           CategoryReligious,

	// viewpoint
	"viewpoint":         CategoryViewpoint,
	"observation_tower": CategoryViewpoint,
	"lighthouse":        CategoryViewpoint,
	"tower":             CategoryViewpoint,

	// food
	"restaurant": CategoryFood,
	"cafe":       CategoryFood,
	"pub":        CategoryFood,
	"bar":        CategoryFood,
	"biergarten": CategoryFood,
	"winery":     CategoryFood,
	"brewery":    CategoryFood,

	// entertainment
	"cinema":         CategoryEntertainment,
	"zoo":            CategoryEntertainment,
	"aquarium":       CategoryEntertainment,
	"theme_park":     CategoryEntertainment,
	"amusement_ride": CategoryEntertainment,
	"planetarium":    CategoryEntertainment,
	"marketplace":    CategoryEntertainment,
}

// outdoorCategories marks categories whose places are primarily open-air.
// Used by context scoring for weather and time-of-day bonuses.
var outdoorCategories = map[Category]bool{
	CategoryNature:    true,
	CategoryViewpoint: true,
	CategoryHistory:   true,
}

// CategoryOf maps a raw kind onto the taxonomy.
func CategoryOf(kind string) Category {
	if c, ok := kindCategories[kind]; ok {
		return c
	}
	return CategoryCuriosity
}

// IsOutdoor reports whether a category is primarily open-air.
func (c Category) IsOutdoor() bool {
	return outdoorCategories[c]
}

// Recognized reports whether kind maps to an explicit category rather than
// the curiosity fallback.
func Recognized(kind string) bool {
	_, ok := kindCategories[kind]
	return ok
}
