// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"container/heap"
	"sync"
)

// Queue is the multi-producer multi-consumer import queue. Enqueue
// never blocks. Dequeue blocks until a request is available or Stop
// is called, then returns a batch of requests that all carry the
// same Kind, so downstream processors can amortize per-batch setup
// (one store round-trip for a whole blob batch).
//
// Ordering is by descending priority, FIFO within a priority band.
type Queue struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond
	heap     requestHeap
	nextSeq  uint64
	stopped  bool
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.nonEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a request. Safe from any goroutine; never blocks.
// Enqueueing after Stop is permitted but the request will never be
// dequeued — the caller observes a cancellation when the owning
// store shuts down.
func (q *Queue) Enqueue(request *Request) {
	q.mu.Lock()
	defer q.mu.Unlock()

	request.seq = q.nextSeq
	q.nextSeq++
	heap.Push(&q.heap, request)
	q.nonEmpty.Signal()
}

// Dequeue blocks until at least one request is queued or Stop has
// been called. It returns up to max requests of the same kind taken
// from the head of the queue; requests of other kinds keep their
// positions. After Stop, Dequeue returns nil, which is the worker
// exit signal.
func (q *Queue) Dequeue(max int) []*Request {
	if max < 1 {
		max = 1
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.heap) == 0 && !q.stopped {
		q.nonEmpty.Wait()
	}
	if q.stopped {
		return nil
	}

	batch := make([]*Request, 0, max)
	head := heap.Pop(&q.heap).(*Request)
	batch = append(batch, head)

	for len(batch) < max && len(q.heap) > 0 && q.heap[0].kind == head.kind {
		batch = append(batch, heap.Pop(&q.heap).(*Request))
	}
	return batch
}

// Stop wakes all blocked consumers. Subsequent Dequeue calls return
// nil even if requests remain queued; Drain collects the leftovers.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.stopped = true
	q.nonEmpty.Broadcast()
}

// Drain removes and returns every queued request. Called after Stop
// so the owner can fail outstanding futures instead of leaking them.
func (q *Queue) Drain() []*Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	leftover := make([]*Request, 0, len(q.heap))
	for len(q.heap) > 0 {
		leftover = append(leftover, heap.Pop(&q.heap).(*Request))
	}
	return leftover
}

// requestHeap orders by descending priority, then ascending seq
// (FIFO within a band).
type requestHeap []*Request

func (h requestHeap) Len() int { return len(h) }

func (h requestHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *requestHeap) Push(x any) { *h = append(*h, x.(*Request)) }

func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	request := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return request
}
