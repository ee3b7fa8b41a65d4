// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package selection

import "sync"

// recentMemory is a bounded FIFO set of recently shown place identifiers.
// When full, remembering a new identifier forgets the oldest one.
type recentMemory struct {
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	cap   int
}

func newRecentMemory(capacity int) *recentMemory {
	if capacity < 1 {
		capacity = 50
	}
	return &recentMemory{
		ids: make(map[string]struct{}, capacity),
		cap: capacity,
	}
}

// Remember records an identifier as recently shown.
func (m *recentMemory) Remember(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[id]; ok {
		return
	}
	if len(m.order) >= m.cap {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.ids, oldest)
	}
	m.ids[id] = struct{}{}
	m.order = append(m.order, id)
}

// Seen reports whether the identifier was recently shown.
func (m *recentMemory) Seen(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ids[id]
	return ok
}

// Len returns the number of remembered identifiers.
func (m *recentMemory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.order)
}
