// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package selection

import (
	"fmt"
	"testing"

	"github.com/fernweh-app/fernweh/internal/config"
	"github.com/fernweh-app/fernweh/internal/places"
)

func newTestSelector() *Selector {
	return New(config.SelectionConfig{Count: 12, RecentMemory: 10}, 42)
}

// supply builds n places per category with varied scores.
func supply(n int, cats ...places.Category) []places.Place {
	var out []places.Place
	for _, cat := range cats {
		for i := 0; i < n; i++ {
			out = append(out, places.Place{
				ID:       fmt.Sprintf("%s-%d", cat, i),
				Name:     fmt.Sprintf("%s place %d", cat, i),
				Category: cat,
				Score:    50 + i,
			})
		}
	}
	return out
}

func TestSelectDiverseNeverRepeatsCategoryConsecutively(t *testing.T) {
	s := newTestSelector()
	list := supply(10, places.CategoryNature, places.CategoryHistory, places.CategoryCulture)

	for trial := 0; trial < 20; trial++ {
		result := s.Select(list, 12, "")
		if len(result) != 12 {
			t.Fatalf("expected 12 places, got %d", len(result))
		}
		for i := 1; i < len(result); i++ {
			if result[i].Category == result[i-1].Category {
				t.Fatalf("trial %d: category %s repeated at positions %d,%d",
					trial, result[i].Category, i-1, i)
			}
		}
	}
}

func TestSelectDiverseExhaustsSupply(t *testing.T) {
	s := newTestSelector()
	list := supply(2, places.CategoryNature, places.CategoryFood)

	result := s.Select(list, 12, "")
	if len(result) != 4 {
		t.Errorf("expected all 4 available places, got %d", len(result))
	}
}

func TestSelectFilteredCapsConsecutivePicks(t *testing.T) {
	s := newTestSelector()
	// A filtered pool can still contain a second category (fallback records)
	list := supply(10, places.CategoryFood)
	list = append(list, supply(3, places.CategoryCuriosity)...)

	for trial := 0; trial < 20; trial++ {
		result := s.Select(list, 10, "food")
		run := 1
		for i := 1; i < len(result); i++ {
			if result[i].Category == result[i-1].Category {
				run++
			} else {
				run = 1
			}
			if run > 2 {
				// Only flag while leftovers could still have broken the run
				remaining := len(result) - i - 1
				if remaining > 0 {
					t.Fatalf("trial %d: three consecutive %s picks at %d", trial, result[i].Category, i)
				}
			}
		}
	}
}

func TestSelectFilteredSingleCategoryFills(t *testing.T) {
	s := newTestSelector()
	list := supply(10, places.CategoryFood)

	result := s.Select(list, 6, "food")
	if len(result) != 6 {
		t.Errorf("a single-category pool must still fill the request, got %d", len(result))
	}
}

func TestSelectRandomQualityPrefersFresh(t *testing.T) {
	s := newTestSelector()
	list := supply(6, places.CategoryNature)

	first := s.SelectRandomQuality(list, 3)
	if len(first) != 3 {
		t.Fatalf("expected 3 places, got %d", len(first))
	}
	for _, p := range first {
		if !s.recent.Seen(p.ID) {
			t.Errorf("returned place %s must be remembered", p.ID)
		}
	}

	// With equal base scores, the freshness penalty should rotate the
	// remembered places out on the next draw
	shown := make(map[string]bool)
	for _, p := range first {
		shown[p.ID] = true
	}
	second := s.SelectRandomQuality(list, 3)
	fresh := 0
	for _, p := range second {
		if !shown[p.ID] {
			fresh++
		}
	}
	if fresh == 0 {
		t.Error("repeat draw surfaced no fresh places")
	}
}

func TestRecentMemoryBounded(t *testing.T) {
	m := newRecentMemory(3)
	for i := 0; i < 5; i++ {
		m.Remember(fmt.Sprintf("id-%d", i))
	}
	if m.Len() != 3 {
		t.Errorf("expected memory capped at 3, got %d", m.Len())
	}
	if m.Seen("id-0") || m.Seen("id-1") {
		t.Error("oldest identifiers must be forgotten")
	}
	if !m.Seen("id-4") {
		t.Error("newest identifier must be remembered")
	}
}

func TestScoreAll(t *testing.T) {
	s := newTestSelector()
	list := []places.Place{
		{Name: "A", Kind: "castle", Category: places.CategoryHistory},
		{Name: "B", Kind: "fuel"},
	}
	s.ScoreAll(list, Context{})
	if list[0].Score <= 0 {
		t.Error("recognized place must get a positive score")
	}
	if list[1].Score != 0 {
		t.Error("denylisted place must score 0")
	}
}
