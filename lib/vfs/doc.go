// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package vfs is a read-only filesystem view over the backing
// store: a dispatcher that resolves names through tree objects and
// serves file content from blobs, pulling both through the queued
// import pipeline. It covers the read path (lookup, getattr, open,
// read, readdir, readlink, statfs); mutation opcodes report "not
// implemented" through the embedded dispatcher base.
package vfs
