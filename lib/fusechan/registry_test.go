// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"context"
	"testing"
)

func TestRegistryInsertFinish(t *testing.T) {
	registry := newRequestRegistry()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.insert(7, cancel); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if registry.empty() {
		t.Error("registry empty with a live request")
	}

	registry.finish(7)
	if !registry.empty() {
		t.Error("registry not empty after finish")
	}
}

func TestRegistryDuplicateInsertFails(t *testing.T) {
	registry := newRequestRegistry()

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registry.insert(1, cancel); err != nil {
		t.Fatal(err)
	}
	if err := registry.insert(1, cancel); err == nil {
		t.Error("duplicate unique id accepted")
	}
}

func TestRegistryCancelFlipsContext(t *testing.T) {
	registry := newRequestRegistry()

	ctx, cancel := context.WithCancel(context.Background())
	if err := registry.insert(3, cancel); err != nil {
		t.Fatal(err)
	}

	registry.cancel(3)
	select {
	case <-ctx.Done():
	default:
		t.Error("cancel did not flip the request context")
	}

	// Cancelling an unknown id is a harmless lost race.
	registry.cancel(99)
}

func TestRegistryCancelAll(t *testing.T) {
	registry := newRequestRegistry()

	contexts := make([]context.Context, 3)
	for i := range contexts {
		ctx, cancel := context.WithCancel(context.Background())
		contexts[i] = ctx
		if err := registry.insert(uint64(i+1), cancel); err != nil {
			t.Fatal(err)
		}
	}

	registry.cancelAll()
	for i, ctx := range contexts {
		select {
		case <-ctx.Done():
		default:
			t.Errorf("request %d not cancelled", i+1)
		}
	}
}
