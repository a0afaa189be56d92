// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fusechan implements the kernel channel: the owner of the
// FUSE device descriptor and the worker pool that multiplexes the
// kernel protocol over it. The channel decodes requests, routes them
// through a static handler table to a pluggable Dispatcher, encodes
// replies with a single gathered write, sends cache invalidation
// notifications, and tracks in-flight requests so a session can
// drain cleanly or hand its descriptor to a successor process.
package fusechan
