// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"context"
	"errors"

	"github.com/bureau-foundation/burrow/lib/object"
)

// ErrCancelled resolves futures whose requests were still queued
// when the store shut down.
var ErrCancelled = errors.New("backingstore: import cancelled")

// LocalStore is the persistent local key-value tier. Batch gets have
// wholesale failure semantics: either every key is answered (with
// nil for absent keys) or the whole call errors.
type LocalStore interface {
	// GetBatch returns one value per key, nil where the key is
	// absent. No partial results: an error means no key was
	// answered.
	GetBatch(ctx context.Context, keys [][]byte) ([][]byte, error)

	// PutBatch stores every pair or none.
	PutBatch(ctx context.Context, keys, values [][]byte) error
}

// RemoteImporter is the slow tier: the source-control server (or a
// stub in tests). Per-request errors propagate to the one future
// they belong to, never to batch siblings.
type RemoteImporter interface {
	// FetchBlob retrieves blob content by its proxy hash.
	FetchBlob(ctx context.Context, proxy object.ProxyHash) (*object.Blob, error)

	// FetchTree retrieves a tree by object hash. The fetch consults
	// any remote-side caching itself; there is no separate local
	// pass for trees.
	FetchTree(ctx context.Context, hash object.Hash) (*object.Tree, error)

	// Prefetch warms the local cache with the given blobs without
	// returning payloads.
	Prefetch(ctx context.Context, hashes []object.Hash) error
}
