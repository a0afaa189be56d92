// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/burrow/lib/object"
)

func TestBlobRequestResolvesOnce(t *testing.T) {
	request, future := NewBlobRequest(testHash(1), PriorityNormal, nil)

	blob := object.NewBlob([]byte("content"))
	request.ResolveBlob(blob, nil)

	got, err := future.Wait()
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if got != blob {
		t.Errorf("Wait returned %p, want %p", got, blob)
	}

	// Wait is repeatable.
	again, _ := future.Wait()
	if again != blob {
		t.Error("second Wait returned a different value")
	}
}

func TestDoubleResolvePanics(t *testing.T) {
	request, _ := NewBlobRequest(testHash(1), PriorityNormal, nil)
	request.ResolveBlob(nil, errors.New("first"))

	defer func() {
		if recover() == nil {
			t.Error("second resolve did not panic")
		}
	}()
	request.ResolveBlob(nil, errors.New("second"))
}

func TestResolveWrongKindPanics(t *testing.T) {
	request, _ := NewTreeRequest(testHash(1), PriorityNormal, nil)

	defer func() {
		if recover() == nil {
			t.Error("ResolveBlob on a tree request did not panic")
		}
	}()
	request.ResolveBlob(nil, nil)
}

func TestFailResolvesAnyKind(t *testing.T) {
	boom := errors.New("import failed")

	blobReq, blobFuture := NewBlobRequest(testHash(1), PriorityNormal, nil)
	treeReq, treeFuture := NewTreeRequest(testHash(2), PriorityNormal, nil)
	prefetchReq, prefetchFuture := NewPrefetchRequest([]object.Hash{testHash(3)}, PriorityLow, nil)

	blobReq.Fail(boom)
	treeReq.Fail(boom)
	prefetchReq.Fail(boom)

	if _, err := blobFuture.Wait(); !errors.Is(err, boom) {
		t.Errorf("blob future error = %v", err)
	}
	if _, err := treeFuture.Wait(); !errors.Is(err, boom) {
		t.Errorf("tree future error = %v", err)
	}
	if _, err := prefetchFuture.Wait(); !errors.Is(err, boom) {
		t.Errorf("prefetch future error = %v", err)
	}
}

func TestResolvedFuture(t *testing.T) {
	blob := object.NewBlob([]byte("cached"))
	future := Resolved(blob)

	select {
	case <-future.Done():
	default:
		t.Fatal("Resolved future is not done")
	}

	got, err := future.Wait()
	if err != nil || got != blob {
		t.Errorf("Wait = %v, %v", got, err)
	}
}
