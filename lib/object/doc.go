// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package object defines the content-addressed data model of the
// burrow backing store: blobs (file contents), trees (directory
// listings), the 32-byte BLAKE3 hashes that identify them, and the
// proxy hashes that translate a burrow object identity into the
// source-control-native identity the remote importer speaks.
package object
