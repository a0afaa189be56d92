// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"testing"
	"time"

	"github.com/bureau-foundation/burrow/lib/object"
)

func testHash(b byte) object.Hash {
	var h object.Hash
	h[0] = b
	return h
}

func TestDequeueBatchIsKindHomogeneous(t *testing.T) {
	q := NewQueue()

	blob1, _ := NewBlobRequest(testHash(1), PriorityNormal, nil)
	blob2, _ := NewBlobRequest(testHash(2), PriorityNormal, nil)
	tree1, _ := NewTreeRequest(testHash(3), PriorityNormal, nil)
	blob3, _ := NewBlobRequest(testHash(4), PriorityNormal, nil)

	q.Enqueue(blob1)
	q.Enqueue(blob2)
	q.Enqueue(tree1)
	q.Enqueue(blob3)

	batch := q.Dequeue(10)
	if len(batch) != 2 {
		t.Fatalf("first batch has %d requests, want 2 (blobs ahead of the tree)", len(batch))
	}
	for _, r := range batch {
		if r.Kind() != KindBlob {
			t.Errorf("first batch contains a %s request", r.Kind())
		}
	}

	batch = q.Dequeue(10)
	if len(batch) != 1 || batch[0].Kind() != KindTree {
		t.Fatalf("second batch = %d requests of kind %s, want the single tree", len(batch), batch[0].Kind())
	}

	batch = q.Dequeue(10)
	if len(batch) != 1 || batch[0].Kind() != KindBlob {
		t.Fatalf("third batch should hold the blob that was behind the tree")
	}
}

func TestDequeueRespectsMax(t *testing.T) {
	q := NewQueue()
	for i := range 5 {
		r, _ := NewBlobRequest(testHash(byte(i)), PriorityNormal, nil)
		q.Enqueue(r)
	}

	if batch := q.Dequeue(3); len(batch) != 3 {
		t.Errorf("Dequeue(3) returned %d requests", len(batch))
	}
	if batch := q.Dequeue(3); len(batch) != 2 {
		t.Errorf("second Dequeue(3) returned %d requests", len(batch))
	}
}

func TestDequeuePriorityOrder(t *testing.T) {
	q := NewQueue()

	low, _ := NewBlobRequest(testHash(1), PriorityLow, nil)
	high, _ := NewBlobRequest(testHash(2), PriorityHigh, nil)
	normal, _ := NewBlobRequest(testHash(3), PriorityNormal, nil)

	q.Enqueue(low)
	q.Enqueue(high)
	q.Enqueue(normal)

	batch := q.Dequeue(3)
	if len(batch) != 3 {
		t.Fatalf("batch has %d requests", len(batch))
	}
	want := []object.Hash{testHash(2), testHash(3), testHash(1)}
	for i, r := range batch {
		if r.Hash() != want[i] {
			t.Errorf("position %d: hash %s, want %s", i, r.Hash().Short(), want[i].Short())
		}
	}
}

func TestDequeueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	for i := range 4 {
		r, _ := NewBlobRequest(testHash(byte(i)), PriorityNormal, nil)
		q.Enqueue(r)
	}

	batch := q.Dequeue(4)
	for i, r := range batch {
		if r.Hash() != testHash(byte(i)) {
			t.Errorf("position %d: hash %s, want %s", i, r.Hash().Short(), testHash(byte(i)).Short())
		}
	}
}

func TestDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewQueue()

	result := make(chan []*Request)
	go func() { result <- q.Dequeue(1) }()

	select {
	case <-result:
		t.Fatal("Dequeue returned on an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	r, _ := NewBlobRequest(testHash(9), PriorityNormal, nil)
	q.Enqueue(r)

	select {
	case batch := <-result:
		if len(batch) != 1 || batch[0].Hash() != testHash(9) {
			t.Errorf("unexpected batch %v", batch)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Dequeue did not wake after Enqueue")
	}
}

func TestStopWakesWaitersAndStaysStopped(t *testing.T) {
	q := NewQueue()

	results := make(chan []*Request, 2)
	for range 2 {
		go func() { results <- q.Dequeue(1) }()
	}

	q.Stop()

	for range 2 {
		select {
		case batch := <-results:
			if batch != nil {
				t.Errorf("Dequeue after Stop returned %d requests, want nil", len(batch))
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Stop did not wake a blocked Dequeue")
		}
	}

	// Stopped queue never yields queued work.
	r, _ := NewBlobRequest(testHash(1), PriorityNormal, nil)
	q.Enqueue(r)
	if batch := q.Dequeue(1); batch != nil {
		t.Error("Dequeue returned work after Stop")
	}
}

func TestDrainReturnsLeftovers(t *testing.T) {
	q := NewQueue()
	for i := range 3 {
		r, _ := NewBlobRequest(testHash(byte(i)), PriorityNormal, nil)
		q.Enqueue(r)
	}
	q.Stop()

	leftover := q.Drain()
	if len(leftover) != 3 {
		t.Fatalf("Drain returned %d requests, want 3", len(leftover))
	}
	if len(q.Drain()) != 0 {
		t.Error("queue not empty after Drain")
	}
}
