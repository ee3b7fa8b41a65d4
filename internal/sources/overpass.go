// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/gate"
	"github.com/fernweh-app/fernweh/internal/geo"
	"github.com/fernweh-app/fernweh/internal/geocache"
	"github.com/fernweh-app/fernweh/internal/places"
)

// overpassLimit caps the element count per query.
const overpassLimit = 200

// overpassFilters groups the curated place types under their few underlying
// attribute keys, so one selector per key covers many types instead of one
// query per type.
var overpassFilters = map[string]string{
	"tourism":  "attraction|museum|gallery|viewpoint|zoo|aquarium|theme_park|artwork|picnic_site",
	"historic": "castle|fort|ruins|monument|memorial|archaeological_site|battlefield|city_gate",
	"leisure":  "park|garden|nature_reserve|water_park|marina",
	"amenity":  "restaurant|cafe|pub|bar|biergarten|marketplace|theatre|cinema|arts_centre|place_of_worship|planetarium|fountain|library",
	"natural":  "beach|peak|waterfall|spring|cave_entrance",
	"man_made": "lighthouse|observation_tower|windmill",
}

// categoryFilters restricts the selectors when a category filter is active.
var categoryFilters = map[places.Category]map[string]string{
	places.CategoryNature: {
		"leisure": "park|garden|nature_reserve|water_park",
		"natural": "beach|peak|waterfall|spring|cave_entrance",
		"tourism": "picnic_site",
	},
	places.CategoryHistory: {
		"historic": "castle|fort|ruins|monument|memorial|archaeological_site|battlefield|city_gate",
	},
	places.CategoryCulture: {
		"tourism": "museum|gallery|artwork",
		"amenity": "theatre|arts_centre|library",
	},
	places.CategoryReligious: {
		"amenity":  "place_of_worship",
		"historic": "monastery|wayside_shrine",
	},
	places.CategoryViewpoint: {
		"tourism":  "viewpoint",
		"man_made": "lighthouse|observation_tower",
	},
	places.CategoryFood: {
		"amenity": "restaurant|cafe|pub|bar|biergarten",
	},
	places.CategoryEntertainment: {
		"tourism": "zoo|aquarium|theme_park",
		"amenity": "cinema|planetarium|marketplace",
	},
}

// OverpassFetcher queries the bulk map-data source with bounding-box filter
// expressions over a pool of interchangeable mirrors.
type OverpassFetcher struct {
	pool   *EndpointPool
	gate   *gate.Gate
	client *http.Client
	tel    *Telemetry
	ttl    time.Duration
}

// NewOverpassFetcher creates the bulk fetcher and registers its rate-limit
// interval with the gate.
func NewOverpassFetcher(cfg config.OverpassConfig, g *gate.Gate, tel *Telemetry, cacheTTL time.Duration) *OverpassFetcher {
	g.RegisterSource(string(places.SourceOverpass), cfg.MinInterval)
	return &OverpassFetcher{
		pool:   NewEndpointPool(cfg.Endpoints),
		gate:   g,
		client: newHTTPClient(),
		tel:    tel,
		ttl:    cacheTTL,
	}
}

// Name returns the source identifier.
func (f *OverpassFetcher) Name() string { return string(places.SourceOverpass) }

// Fetch returns normalized places inside the circle, via the gate and cache.
func (f *OverpassFetcher) Fetch(ctx context.Context, lat, lon, radiusMeters float64, category string) ([]places.Place, error) {
	key := geocache.Key(f.Name(), lat, lon, radiusMeters, category)
	raw, err := f.gate.ManagedCall(ctx, f.Name(), key, f.ttl, func(ctx context.Context) (json.RawMessage, error) {
		return f.query(ctx, lat, lon, radiusMeters, category)
	})
	if err != nil {
		return nil, err
	}

	var result []places.Place
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("overpass: decode cached places: %w", err)
	}
	return result, nil
}

// query performs one upstream round trip and returns the normalized places
// as a serialized snapshot ready for the cache.
func (f *OverpassFetcher) query(ctx context.Context, lat, lon, radiusMeters float64, category string) (json.RawMessage, error) {
	ql := buildOverpassQuery(lat, lon, radiusMeters, category)
	start := time.Now()

	body, endpointURL, err := f.pool.Post(ctx, f.client, "application/x-www-form-urlencoded", "data="+ql)
	if err != nil {
		recordAttempt(f.tel, f.Name(), endpointURL, start, 0, 0, err)
		return nil, err
	}

	var resp overpassResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		err = fmt.Errorf("overpass: decode response: %w", err)
		recordAttempt(f.tel, f.Name(), endpointURL, start, 200, 0, err)
		return nil, err
	}

	result := make([]places.Place, 0, len(resp.Elements))
	for i := range resp.Elements {
		if p, ok := normalizeOverpassElement(&resp.Elements[i]); ok {
			result = append(result, p)
		}
	}
	recordAttempt(f.tel, f.Name(), endpointURL, start, 200, len(result), nil)

	return json.Marshal(result)
}

// buildOverpassQuery renders the QL for one circular search. The server-side
// timeout scales with the radius; nwr selectors cover nodes, ways and
// relations in one pass.
func buildOverpassQuery(lat, lon, radiusMeters float64, category string) string {
	filters := overpassFilters
	if cf, ok := categoryFilters[places.Category(category)]; ok {
		filters = cf
	}

	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	south, west, north, east := geo.BoundingBox(lat, lon, radiusMeters)
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", south, west, north, east)

	var b strings.Builder
	fmt.Fprintf(&b, "[out:json][timeout:%d];(", int(serverTimeout(radiusMeters).Seconds()))
	for _, k := range keys {
		fmt.Fprintf(&b, `nwr["%s"~"^(%s)$"](%s);`, k, filters[k], bbox)
	}
	fmt.Fprintf(&b, ");out center %d;", overpassLimit)
	return b.String()
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// kindKeys is the tag precedence when deriving a place's kind.
var kindKeys = []string{"tourism", "historic", "amenity", "leisure", "natural", "man_made"}

// normalizeOverpassElement converts one raw element into a Place. Elements
// without a name or coordinate are discarded.
func normalizeOverpassElement(el *overpassElement) (places.Place, bool) {
	name := el.Tags["name"]
	if name == "" {
		return places.Place{}, false
	}

	lat, lon := el.Lat, el.Lon
	if el.Center != nil {
		lat, lon = el.Center.Lat, el.Center.Lon
	}
	if lat == 0 && lon == 0 {
		return places.Place{}, false
	}

	kind := ""
	for _, k := range kindKeys {
		if v := el.Tags[k]; v != "" && v != "yes" {
			kind = v
			break
		}
	}
	if kind == "" {
		return places.Place{}, false
	}

	p := places.Place{
		ID:           fmt.Sprintf("%s:%s/%d", places.SourceOverpass, el.Type, el.ID),
		Name:         name,
		Lat:          lat,
		Lon:          lon,
		Kind:         kind,
		Category:     places.CategoryOf(kind),
		Address:      overpassAddress(el.Tags),
		Phone:        firstTag(el.Tags, "phone", "contact:phone"),
		Website:      firstTag(el.Tags, "website", "contact:website"),
		Description:  el.Tags["description"],
		ImageURL:     el.Tags["image"],
		Hours:        el.Tags["opening_hours"],
		WikipediaRef: el.Tags["wikipedia"],
		WikidataRef:  el.Tags["wikidata"],
		Heritage:     el.Tags["heritage"] != "" && el.Tags["heritage"] != "no",
		Source:       places.SourceOverpass,
	}

	chain := el.Tags["brand"] != "" || el.Tags["brand:wikidata"] != ""
	p.Quality = quality(&p, chain)
	return p, true
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func overpassAddress(tags map[string]string) string {
	street := tags["addr:street"]
	if street == "" {
		return ""
	}
	parts := []string{street}
	if n := tags["addr:housenumber"]; n != "" {
		parts[0] = street + " " + n
	}
	if city := tags["addr:city"]; city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}
