// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package importq

import (
	"fmt"

	"github.com/bureau-foundation/burrow/lib/object"
)

// Kind tags the variant carried by a Request.
type Kind uint8

const (
	// KindBlob is a single blob import.
	KindBlob Kind = iota
	// KindTree is a single tree import.
	KindTree
	// KindPrefetch is a bulk cache-warming request with no payload
	// returned.
	KindPrefetch
)

// String returns the metrics name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindPrefetch:
		return "prefetch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Priority orders requests in the import queue. Higher values
// dequeue first.
type Priority int

const (
	// PriorityLow is for background work (prefetching).
	PriorityLow Priority = 0
	// PriorityNormal is the default for dispatcher-driven imports.
	PriorityNormal Priority = 50
	// PriorityHigh is for imports a kernel request is blocked on.
	PriorityHigh Priority = 100
)

// Request is one queued import: a tagged variant over blob, tree,
// and prefetch payloads. The zero Request is invalid; use the New*
// constructors, which pair each request with the future its caller
// awaits.
type Request struct {
	kind     Kind
	priority Priority

	// seq is the FIFO tiebreak within a priority band, assigned by
	// the queue at enqueue time.
	seq uint64

	hash   object.Hash   // blob and tree imports
	hashes []object.Hash // prefetch

	blobDone     *completion[*object.Blob]
	treeDone     *completion[*object.Tree]
	prefetchDone *completion[struct{}]

	// scope tracks this request on the pending watch list from
	// construction until resolution.
	scope *RequestMetricsScope
}

// NewBlobRequest creates a blob import request and the future its
// caller awaits. The scope (may be nil in tests) is closed when the
// request resolves.
func NewBlobRequest(hash object.Hash, priority Priority, scope *RequestMetricsScope) (*Request, *Future[*object.Blob]) {
	done, future := newCompletion[*object.Blob]()
	return &Request{
		kind:     KindBlob,
		priority: priority,
		hash:     hash,
		blobDone: done,
		scope:    scope,
	}, future
}

// NewTreeRequest creates a tree import request and its future.
func NewTreeRequest(hash object.Hash, priority Priority, scope *RequestMetricsScope) (*Request, *Future[*object.Tree]) {
	done, future := newCompletion[*object.Tree]()
	return &Request{
		kind:     KindTree,
		priority: priority,
		hash:     hash,
		treeDone: done,
		scope:    scope,
	}, future
}

// NewPrefetchRequest creates a bulk prefetch request and its future.
// The future carries no payload; it resolves with the error passed
// to ResolvePrefetch or Fail.
func NewPrefetchRequest(hashes []object.Hash, priority Priority, scope *RequestMetricsScope) (*Request, *Future[struct{}]) {
	done, future := newCompletion[struct{}]()
	return &Request{
		kind:         KindPrefetch,
		priority:     priority,
		hashes:       hashes,
		prefetchDone: done,
		scope:        scope,
	}, future
}

// Kind returns the variant tag.
func (r *Request) Kind() Kind { return r.kind }

// Priority returns the queue priority.
func (r *Request) Priority() Priority { return r.priority }

// Hash returns the object hash of a blob or tree import. Panics for
// prefetch requests.
func (r *Request) Hash() object.Hash {
	if r.kind == KindPrefetch {
		panic("importq: Hash called on a prefetch request")
	}
	return r.hash
}

// Hashes returns the hash list of a prefetch request. Panics for
// other kinds.
func (r *Request) Hashes() []object.Hash {
	if r.kind != KindPrefetch {
		panic("importq: Hashes called on a " + r.kind.String() + " request")
	}
	return r.hashes
}

// ResolveBlob completes a blob import. Exactly one Resolve* call is
// permitted per request; a second panics. Panics if the request is
// not a blob import.
func (r *Request) ResolveBlob(blob *object.Blob, err error) {
	if r.kind != KindBlob {
		panic("importq: ResolveBlob called on a " + r.kind.String() + " request")
	}
	r.closeScope()
	r.blobDone.resolve(blob, err)
}

// ResolveTree completes a tree import.
func (r *Request) ResolveTree(tree *object.Tree, err error) {
	if r.kind != KindTree {
		panic("importq: ResolveTree called on a " + r.kind.String() + " request")
	}
	r.closeScope()
	r.treeDone.resolve(tree, err)
}

// ResolvePrefetch completes a prefetch.
func (r *Request) ResolvePrefetch(err error) {
	if r.kind != KindPrefetch {
		panic("importq: ResolvePrefetch called on a " + r.kind.String() + " request")
	}
	r.closeScope()
	r.prefetchDone.resolve(struct{}{}, err)
}

// Fail completes the request with err regardless of variant.
func (r *Request) Fail(err error) {
	switch r.kind {
	case KindBlob:
		r.ResolveBlob(nil, err)
	case KindTree:
		r.ResolveTree(nil, err)
	case KindPrefetch:
		r.ResolvePrefetch(err)
	}
}

func (r *Request) closeScope() {
	if r.scope != nil {
		r.scope.Close()
	}
}
