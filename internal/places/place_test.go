// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package places

import "testing"

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"The Crown Inn", "crown inn"},
		{"Crown Inn, The", "crown inn"},
		{"St. Mary's Church", "st mary s church"},
		{"  Multiple   Spaces  ", "multiple spaces"},
		{"An Old Mill", "old mill"},
		{"CAFÉ MÜLLER", "café müller"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeName(tt.input); got != tt.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeNameEquatesArticleForms(t *testing.T) {
	a := NormalizeName("The Crown Inn")
	b := NormalizeName("Crown Inn, The")
	if a != b {
		t.Errorf("expected %q and %q to normalize equal, got %q vs %q",
			"The Crown Inn", "Crown Inn, The", a, b)
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		kind string
		want Category
	}{
		{"castle", CategoryHistory},
		{"museum", CategoryCulture},
		{"viewpoint", CategoryViewpoint},
		{"pub", CategoryFood},
		{"place_of_worship", CategoryReligious},
		{"waterfall", CategoryNature},
		{"zoo", CategoryEntertainment},
		{"completely_unknown_kind", CategoryCuriosity},
	}

	for _, tt := range tests {
		if got := CategoryOf(tt.kind); got != tt.want {
			t.Errorf("CategoryOf(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestIsOutdoor(t *testing.T) {
	if !CategoryNature.IsOutdoor() {
		t.Error("nature should be outdoor")
	}
	if CategoryCulture.IsOutdoor() {
		t.Error("culture should not be outdoor")
	}
}

func TestHasContact(t *testing.T) {
	p := &Place{}
	if p.HasContact() {
		t.Error("empty place should have no contact")
	}
	p.Website = "https://example.com"
	if !p.HasContact() {
		t.Error("place with website should have contact")
	}
}
