// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"fmt"
	"sync"
	"time"

	"github.com/bureau-foundation/burrow/lib/clock"
)

// Stage distinguishes where in the import pipeline a request is
// being tracked: pending covers enqueue to completion, live covers
// only the time an underlying fetch is in flight.
type Stage uint8

const (
	// StagePending tracks requests from creation to resolution.
	StagePending Stage = iota
	// StageLive tracks requests while a fetch is actually running.
	StageLive

	stageCount
)

// String returns the metrics name of the stage.
func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageLive:
		return "live"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// MetricsRegistry holds one watch list per (stage, kind) pair. A
// RequestMetricsScope registers on the list at construction and
// removes itself when closed; queries report the number of
// outstanding scopes and the age of the oldest one.
type MetricsRegistry struct {
	clock clock.Clock
	lists [stageCount][3]watchList
}

// NewMetricsRegistry returns a registry using the given clock for
// scope timestamps. Pass clock.Real() in production.
func NewMetricsRegistry(c clock.Clock) *MetricsRegistry {
	return &MetricsRegistry{clock: c}
}

// NewScope registers a scope on the (stage, kind) watch list. The
// caller must Close it on every exit path; resolution of an import
// request closes its pending scope automatically.
func (m *MetricsRegistry) NewScope(stage Stage, kind Kind) *RequestMetricsScope {
	list := m.list(stage, kind)
	scope := &RequestMetricsScope{
		list:  list,
		clock: m.clock,
		start: m.clock.Now(),
	}
	list.add(scope)
	return scope
}

// Count returns the number of outstanding scopes on a watch list.
func (m *MetricsRegistry) Count(stage Stage, kind Kind) int {
	return m.list(stage, kind).count()
}

// OldestAge returns the age of the oldest outstanding scope on a
// watch list, or zero if the list is empty.
func (m *MetricsRegistry) OldestAge(stage Stage, kind Kind) time.Duration {
	return m.list(stage, kind).oldestAge(m.clock)
}

// Completed returns how many scopes have closed on a watch list and
// their cumulative wall-clock time.
func (m *MetricsRegistry) Completed(stage Stage, kind Kind) (int, time.Duration) {
	return m.list(stage, kind).completed()
}

// list maps (stage, kind) to its watch list. An out-of-range stage
// or kind is a programming bug, not an input error.
func (m *MetricsRegistry) list(stage Stage, kind Kind) *watchList {
	if stage >= stageCount {
		panic(fmt.Sprintf("importq: unknown metrics stage %d", stage))
	}
	if kind > KindPrefetch {
		panic(fmt.Sprintf("importq: unknown metrics kind %d", kind))
	}
	return &m.lists[stage][kind]
}

// RequestMetricsScope is one tracked request on a watch list. Close
// is idempotent so deferred and resolution-path closes can overlap.
type RequestMetricsScope struct {
	list  *watchList
	clock clock.Clock
	start time.Time

	mu     sync.Mutex
	closed bool
}

// Close removes the scope from its watch list and records its
// duration. The first call wins; later calls are no-ops.
func (s *RequestMetricsScope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.list.remove(s, s.clock.Since(s.start))
}

// watchList is one (stage, kind) bucket. Insertion order is
// preserved so the oldest outstanding scope is the front element.
type watchList struct {
	mu             sync.Mutex
	scopes         []*RequestMetricsScope
	completedCount int
	completedTotal time.Duration
}

func (l *watchList) add(scope *RequestMetricsScope) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scopes = append(l.scopes, scope)
}

func (l *watchList) remove(scope *RequestMetricsScope, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, s := range l.scopes {
		if s == scope {
			l.scopes = append(l.scopes[:i], l.scopes[i+1:]...)
			break
		}
	}
	l.completedCount++
	l.completedTotal += elapsed
}

func (l *watchList) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.scopes)
}

func (l *watchList) oldestAge(c clock.Clock) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.scopes) == 0 {
		return 0
	}
	return c.Since(l.scopes[0].start)
}

func (l *watchList) completed() (int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.completedCount, l.completedTotal
}
