// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fusekernel defines the FUSE kernel wire ABI: the
// fixed-layout little-endian request and reply records exchanged with
// the kernel over the /dev/fuse descriptor, the opcode table, and the
// parse/encode helpers the channel uses on its hot path.
//
// Struct layouts are bit-exact with the kernel's fuse.h for protocol
// 7.31, the minor version burrow negotiates. Structs are decoded by
// casting into the read buffer, so every field is a fixed-size
// integer and the Go layout (no padding beyond what the C struct
// carries) matches the C layout exactly.
package fusekernel
