// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// burrow-daemon serves a content-addressed source-control tree over
// the kernel FUSE protocol. A privileged helper performs the mount
// and hands the daemon an open device descriptor (--device-fd); the
// daemon negotiates the kernel session, wires the read-only
// filesystem view to the queued backing store, and serves until the
// mount goes away or it is asked to exit.
//
// Graceful restart: with --takeover the daemon loads the takeover
// snapshot at the configured paths.takeover and resumes the kernel
// session on --device-fd without an INIT exchange or a remount. The
// daemon itself never steals its descriptor or writes a snapshot on
// exit; fusechan's StealDevice, TakeoverSnapshot and
// SaveTakeoverData produce one.
package main
