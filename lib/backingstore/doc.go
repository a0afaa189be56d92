// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package backingstore is the content-addressed import pipeline
// behind the filesystem: a pool of workers draining the import queue
// in kind-homogeneous batches, a two-tier blob fetch (local datapack
// cache, then remote importer), and the proxy-hash translation layer
// between burrow object identities and the source-control-native
// identities the remote side speaks.
package backingstore
