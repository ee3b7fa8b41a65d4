// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

package sources

import (
	"sync"
	"time"
)

// Outcome classifies one fetch attempt.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeError    Outcome = "error"
	OutcomeCanceled Outcome = "canceled"
)

// Attempt is one recorded fetch attempt. Telemetry is operability data only;
// it never affects control flow.
type Attempt struct {
	Source   string        `json:"source"`
	Endpoint string        `json:"endpoint,omitempty"`
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Outcome  Outcome       `json:"outcome"`
	Status   int           `json:"status,omitempty"`
	Results  int           `json:"results"`
	Error    string        `json:"error,omitempty"`
}

// Telemetry is a bounded rolling log of fetch attempts. When full, the
// oldest entries are dropped.
type Telemetry struct {
	mu   sync.Mutex
	buf  []Attempt
	next int
	size int
}

// NewTelemetry creates a telemetry log holding at most size attempts.
func NewTelemetry(size int) *Telemetry {
	if size < 1 {
		size = 200
	}
	return &Telemetry{buf: make([]Attempt, 0, size), size: size}
}

// Record appends an attempt, dropping the oldest once the log is full.
func (t *Telemetry) Record(a Attempt) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) < t.size {
		t.buf = append(t.buf, a)
		return
	}
	t.buf[t.next] = a
	t.next = (t.next + 1) % t.size
}

// Recent returns the logged attempts, oldest first.
func (t *Telemetry) Recent() []Attempt {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Attempt, 0, len(t.buf))
	if len(t.buf) < t.size {
		return append(out, t.buf...)
	}
	out = append(out, t.buf[t.next:]...)
	return append(out, t.buf[:t.next]...)
}

// Len returns the number of logged attempts.
func (t *Telemetry) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}
