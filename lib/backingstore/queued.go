// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bureau-foundation/burrow/lib/clock"
	"github.com/bureau-foundation/burrow/lib/importq"
	"github.com/bureau-foundation/burrow/lib/object"
)

// Options configures a QueuedStore.
type Options struct {
	// Local is the persistent key-value tier holding proxy-hash
	// records.
	Local LocalStore

	// Datapack is the on-disk blob cache consulted before the
	// remote importer.
	Datapack *Datapack

	// Remote is the slow tier.
	Remote RemoteImporter

	// Workers is the number of import workers (>= 1).
	Workers int

	// BatchSize is the maximum requests per dequeued batch (>= 1).
	// The default of 1 disables batching.
	BatchSize int

	// Compression selects how remote blobs are stored in the
	// datapack. Defaults to CompressionLZ4 (the zero value,
	// CompressionNone, is not selectable here — incompressible
	// entries fall back to it per blob).
	Compression CompressionTag

	// Metrics receives watch-list registrations. If nil, a private
	// registry is created.
	Metrics *importq.MetricsRegistry

	// Clock provides time for metrics. If nil, defaults to
	// clock.Real().
	Clock clock.Clock

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// QueuedStore coalesces content-addressed fetches against the
// backing store. Callers enqueue blob, tree, and prefetch imports;
// a fixed pool of workers drains the queue in kind-homogeneous
// batches and routes each batch through the two-tier fetch pipeline:
// the local datapack cache first, then the remote importer.
type QueuedStore struct {
	local       LocalStore
	datapack    *Datapack
	remote      RemoteImporter
	batchSize   int
	compression CompressionTag
	metrics     *importq.MetricsRegistry
	logger      *slog.Logger

	queue *importq.Queue

	// ctx bounds the store and remote calls issued by workers;
	// cancelled on Close after the queue drains.
	ctx    context.Context
	cancel context.CancelFunc

	workers sync.WaitGroup

	closeOnce sync.Once
}

// NewQueuedStore starts the worker pool and returns the store. The
// caller must Close it.
func NewQueuedStore(options Options) (*QueuedStore, error) {
	if options.Local == nil {
		return nil, fmt.Errorf("local store is required")
	}
	if options.Datapack == nil {
		return nil, fmt.Errorf("datapack is required")
	}
	if options.Remote == nil {
		return nil, fmt.Errorf("remote importer is required")
	}
	if options.Workers < 1 {
		return nil, fmt.Errorf("worker count must be >= 1, got %d", options.Workers)
	}
	if options.BatchSize == 0 {
		options.BatchSize = 1
	}
	if options.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", options.BatchSize)
	}
	if options.Compression == CompressionNone {
		options.Compression = CompressionLZ4
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Metrics == nil {
		options.Metrics = importq.NewMetricsRegistry(options.Clock)
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	ctx, cancel := context.WithCancel(context.Background())
	store := &QueuedStore{
		local:       options.Local,
		datapack:    options.Datapack,
		remote:      options.Remote,
		batchSize:   options.BatchSize,
		compression: options.Compression,
		metrics:     options.Metrics,
		logger:      options.Logger,
		queue:       importq.NewQueue(),
		ctx:         ctx,
		cancel:      cancel,
	}

	store.workers.Add(options.Workers)
	for i := range options.Workers {
		go store.processRequests(i)
	}
	return store, nil
}

// GetBlob fetches blob content by object hash. The fast path probes
// the datapack synchronously with a freshly derived proxy hash and
// returns an already-resolved future on a hit; otherwise the request
// is queued.
func (s *QueuedStore) GetBlob(hash object.Hash, priority importq.Priority) *importq.Future[*object.Blob] {
	proxy := object.DeriveProxyHash(hash)
	if blob, ok := s.datapack.GetLocal(hash, proxy); ok {
		return importq.Resolved(blob)
	}

	scope := s.metrics.NewScope(importq.StagePending, importq.KindBlob)
	request, future := importq.NewBlobRequest(hash, priority, scope)
	s.queue.Enqueue(request)
	return future
}

// GetTree fetches a tree by object hash.
func (s *QueuedStore) GetTree(hash object.Hash, priority importq.Priority) *importq.Future[*object.Tree] {
	scope := s.metrics.NewScope(importq.StagePending, importq.KindTree)
	request, future := importq.NewTreeRequest(hash, priority, scope)
	s.queue.Enqueue(request)
	return future
}

// PrefetchBlobs queues a low-priority prefetch that hands the given
// blobs to the remote importer's Prefetch. The store writes nothing
// to the datapack for a prefetch. The future resolves with the
// remote's result once the prefetch has been processed; no payloads
// are returned.
func (s *QueuedStore) PrefetchBlobs(hashes []object.Hash) *importq.Future[struct{}] {
	scope := s.metrics.NewScope(importq.StagePending, importq.KindPrefetch)
	request, future := importq.NewPrefetchRequest(hashes, importq.PriorityLow, scope)
	s.queue.Enqueue(request)
	return future
}

// Metrics exposes the watch-list registry for admin queries.
func (s *QueuedStore) Metrics() *importq.MetricsRegistry {
	return s.metrics
}

// Close stops the queue, joins the workers, and fails any request
// that was never dequeued with ErrCancelled.
func (s *QueuedStore) Close() error {
	s.closeOnce.Do(func() {
		s.queue.Stop()
		s.workers.Wait()
		for _, request := range s.queue.Drain() {
			request.Fail(ErrCancelled)
		}
		s.cancel()
	})
	return nil
}

// processRequests is the worker loop: dequeue one kind-homogeneous
// batch, route it by kind, repeat until the queue stops.
func (s *QueuedStore) processRequests(worker int) {
	defer s.workers.Done()

	for {
		batch := s.queue.Dequeue(s.batchSize)
		if batch == nil {
			return
		}

		switch batch[0].Kind() {
		case importq.KindBlob:
			s.processBlobBatch(batch)
		case importq.KindTree:
			s.processTreeBatch(batch)
		case importq.KindPrefetch:
			s.processPrefetchBatch(batch)
		default:
			s.logger.Error("dequeued batch of unknown kind",
				"worker", worker,
				"kind", batch[0].Kind().String(),
			)
			for _, request := range batch {
				request.Fail(fmt.Errorf("unknown import kind %s", batch[0].Kind()))
			}
		}
	}
}

// processBlobBatch runs the two-tier blob pipeline for one batch.
func (s *QueuedStore) processBlobBatch(requests []*importq.Request) {
	hashes := make([]object.Hash, len(requests))
	for i, request := range requests {
		hashes[i] = request.Hash()
	}

	s.logger.Debug("processing blob import batch", "size", len(requests))

	// One store round trip resolves the whole batch's proxy hashes.
	// Failure here is wholesale: every request gets the error.
	proxies, err := resolveProxyBatch(s.ctx, s.local, s.logger, hashes)
	if err != nil {
		s.logger.Warn("proxy hash batch lookup failed", "error", err)
		for _, request := range requests {
			request.Fail(err)
		}
		return
	}

	// Local-cache pass. Fulfilled requests are removed by swapping
	// with the last element of both slices in lockstep, keeping the
	// (request, proxy) pairing intact.
	if len(requests) != len(proxies) {
		panic("backingstore: request and proxy slices diverged")
	}
	hits := 0
	for i := 0; i < len(requests); {
		if blob, ok := s.datapack.GetLocal(requests[i].Hash(), proxies[i]); ok {
			requests[i].ResolveBlob(blob, nil)
			hits++

			last := len(requests) - 1
			requests[i], requests[last] = requests[last], requests[i]
			requests = requests[:last]
			proxies[i], proxies[last] = proxies[last], proxies[i]
			proxies = proxies[:last]
			continue
		}
		i++
	}
	if hits > 0 {
		s.logger.Debug("fulfilled blob imports from datapack", "count", hits)
	}

	// Remote pass: fan the misses out concurrently and join before
	// the worker moves on.
	var fetches sync.WaitGroup
	fetches.Add(len(requests))
	for i, request := range requests {
		go func(request *importq.Request, proxy object.ProxyHash) {
			defer fetches.Done()

			live := s.metrics.NewScope(importq.StageLive, importq.KindBlob)
			defer live.Close()

			blob, err := s.remote.FetchBlob(s.ctx, proxy)
			if err != nil {
				request.ResolveBlob(nil, err)
				return
			}
			if err := s.datapack.Put(proxy, blob, s.compression); err != nil {
				s.logger.Warn("caching fetched blob failed",
					"hash", request.Hash().Short(),
					"error", err,
				)
			}
			request.ResolveBlob(blob, nil)
		}(request, proxies[i])
	}
	fetches.Wait()
}

func (s *QueuedStore) processTreeBatch(requests []*importq.Request) {
	for _, request := range requests {
		live := s.metrics.NewScope(importq.StageLive, importq.KindTree)
		tree, err := s.remote.FetchTree(s.ctx, request.Hash())
		live.Close()
		request.ResolveTree(tree, err)
	}
}

func (s *QueuedStore) processPrefetchBatch(requests []*importq.Request) {
	for _, request := range requests {
		live := s.metrics.NewScope(importq.StageLive, importq.KindPrefetch)
		err := s.remote.Prefetch(s.ctx, request.Hashes())
		live.Close()
		request.ResolvePrefetch(err)
	}
}
