// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package importq holds the asynchronous import machinery of the
// backing store: tagged import requests with single-shot completion
// sinks, the multi-producer multi-consumer priority queue that
// batches requests of one kind, and the watch-list metrics that
// track pending and live imports per object kind.
package importq
