// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"testing"
	"time"

	"github.com/bureau-foundation/burrow/lib/clock"
)

var metricsEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestScopeCountAndOldestAge(t *testing.T) {
	fake := clock.Fake(metricsEpoch)
	registry := NewMetricsRegistry(fake)

	first := registry.NewScope(StagePending, KindBlob)
	fake.Advance(2 * time.Second)
	second := registry.NewScope(StagePending, KindBlob)

	if got := registry.Count(StagePending, KindBlob); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if got := registry.OldestAge(StagePending, KindBlob); got != 2*time.Second {
		t.Errorf("OldestAge = %v, want 2s", got)
	}

	// Other lists are untouched.
	if got := registry.Count(StageLive, KindBlob); got != 0 {
		t.Errorf("live blob Count = %d, want 0", got)
	}
	if got := registry.Count(StagePending, KindTree); got != 0 {
		t.Errorf("pending tree Count = %d, want 0", got)
	}

	first.Close()
	if got := registry.OldestAge(StagePending, KindBlob); got != 0 {
		t.Errorf("OldestAge after closing the oldest = %v, want 0 (second scope just registered)", got)
	}
	second.Close()
	if got := registry.Count(StagePending, KindBlob); got != 0 {
		t.Errorf("Count after closing both = %d", got)
	}
}

func TestScopeRecordsDuration(t *testing.T) {
	fake := clock.Fake(metricsEpoch)
	registry := NewMetricsRegistry(fake)

	scope := registry.NewScope(StageLive, KindTree)
	fake.Advance(3 * time.Second)
	scope.Close()

	count, total := registry.Completed(StageLive, KindTree)
	if count != 1 || total != 3*time.Second {
		t.Errorf("Completed = %d, %v; want 1, 3s", count, total)
	}
}

func TestScopeCloseIdempotent(t *testing.T) {
	registry := NewMetricsRegistry(clock.Fake(metricsEpoch))

	scope := registry.NewScope(StagePending, KindPrefetch)
	scope.Close()
	scope.Close()

	count, _ := registry.Completed(StagePending, KindPrefetch)
	if count != 1 {
		t.Errorf("double Close recorded %d completions", count)
	}
}

func TestUnknownStagePanics(t *testing.T) {
	registry := NewMetricsRegistry(clock.Fake(metricsEpoch))

	defer func() {
		if recover() == nil {
			t.Error("lookup with an unknown stage did not panic")
		}
	}()
	registry.Count(Stage(99), KindBlob)
}

func TestUnknownKindPanics(t *testing.T) {
	registry := NewMetricsRegistry(clock.Fake(metricsEpoch))

	defer func() {
		if recover() == nil {
			t.Error("lookup with an unknown kind did not panic")
		}
	}()
	registry.Count(StagePending, Kind(99))
}
