// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package selection

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/places"
)

// jitterRange is the random spread added to scores during weighted shuffles:
// higher-scoring places are likelier but not guaranteed to lead.
const jitterRange = 25.0

// freshnessPenalty is subtracted from recently shown places in
// SelectRandomQuality so repeated requests surface variety.
const freshnessPenalty = 30.0

// Selector reduces a merged place list to a bounded, diverse subset.
type Selector struct {
	defaultCount int
	recent       *recentMemory

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates a selector. A zero seed randomizes from the clock; tests pass
// a fixed seed for determinism.
func New(cfg config.SelectionConfig, seed int64) *Selector {
	if cfg.Count < 1 {
		cfg.Count = 12
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Selector{
		defaultCount: cfg.Count,
		recent:       newRecentMemory(cfg.RecentMemory),
		rng:          rand.New(rand.NewSource(seed)), //nolint:gosec // shuffle variety, not security
	}
}

// DefaultCount returns the configured result cap.
func (s *Selector) DefaultCount() int { return s.defaultCount }

// ScoreAll attaches context scores to every place in the list.
func (s *Selector) ScoreAll(list []places.Place, c Context) {
	for i := range list {
		list[i].Score = Score(&list[i], c)
	}
}

// Select reduces the list to at most count places.
//
// With no category filter, selection guarantees category diversity via
// round-robin draws across per-category groups in a randomized category
// order; each group is internally ordered by a randomized-weighted shuffle.
// With a filter active, any single category is capped at two consecutive
// picks from a shuffled pool, with remaining slots filled afterward.
func (s *Selector) Select(list []places.Place, count int, categoryFilter string) []places.Place {
	if count < 1 {
		count = s.defaultCount
	}
	if categoryFilter == "" {
		return s.selectDiverse(list, count)
	}
	return s.selectFiltered(list, count)
}

// selectDiverse draws round-robin across categories so no category appears
// twice in a row while at least two groups still have candidates.
func (s *Selector) selectDiverse(list []places.Place, count int) []places.Place {
	groups := groupByCategory(list)

	order := make([]places.Category, 0, len(groups))
	for cat := range groups {
		order = append(order, cat)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	s.mu.Lock()
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	for _, cat := range order {
		s.weightedShuffle(groups[cat])
	}
	s.mu.Unlock()

	result := make([]places.Place, 0, count)
	for len(result) < count {
		drew := false
		for _, cat := range order {
			if len(groups[cat]) == 0 {
				continue
			}
			result = append(result, groups[cat][0])
			groups[cat] = groups[cat][1:]
			drew = true
			if len(result) == count {
				break
			}
		}
		if !drew {
			break
		}
	}
	return result
}

// selectFiltered picks from one shuffled pool, deferring any candidate that
// would put the same category three times in a row, then fills remaining
// slots from the deferred leftovers.
func (s *Selector) selectFiltered(list []places.Place, count int) []places.Place {
	pool := make([]places.Place, len(list))
	copy(pool, list)

	s.mu.Lock()
	s.weightedShuffle(pool)
	s.mu.Unlock()

	result := make([]places.Place, 0, count)
	var leftovers []places.Place
	for _, p := range pool {
		if len(result) == count {
			break
		}
		n := len(result)
		if n >= 2 && result[n-1].Category == p.Category && result[n-2].Category == p.Category {
			leftovers = append(leftovers, p)
			continue
		}
		result = append(result, p)
	}
	for _, p := range leftovers {
		if len(result) == count {
			break
		}
		result = append(result, p)
	}
	return result
}

// SelectRandomQuality picks count places by jittered score, weighting places
// not recently shown higher, and remembers what it returned.
func (s *Selector) SelectRandomQuality(list []places.Place, count int) []places.Place {
	if count < 1 {
		count = s.defaultCount
	}

	type weighted struct {
		p places.Place
		w float64
	}
	ws := make([]weighted, 0, len(list))

	s.mu.Lock()
	for _, p := range list {
		w := float64(p.Score) + s.rng.Float64()*jitterRange
		if s.recent.Seen(p.ID) {
			w -= freshnessPenalty
		}
		ws = append(ws, weighted{p: p, w: w})
	}
	s.mu.Unlock()

	sort.SliceStable(ws, func(i, j int) bool { return ws[i].w > ws[j].w })

	if count > len(ws) {
		count = len(ws)
	}
	result := make([]places.Place, 0, count)
	for _, w := range ws[:count] {
		result = append(result, w.p)
		s.recent.Remember(w.p.ID)
	}
	return result
}

// weightedShuffle orders a group by score plus random jitter, descending.
// Caller must hold s.mu.
func (s *Selector) weightedShuffle(group []places.Place) {
	keys := make(map[string]float64, len(group))
	for i := range group {
		keys[group[i].ID] = float64(group[i].Score) + s.rng.Float64()*jitterRange
	}
	sort.SliceStable(group, func(i, j int) bool {
		return keys[group[i].ID] > keys[group[j].ID]
	})
}

func groupByCategory(list []places.Place) map[places.Category][]places.Place {
	groups := make(map[places.Category][]places.Place)
	for _, p := range list {
		groups[p.Category] = append(groups[p.Category], p)
	}
	return groups
}
