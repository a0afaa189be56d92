// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusekernel

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Wire sizes of the fixed-layout records. Guarded against the struct
// definitions by tests; the kernel rejects replies whose lengths
// disagree with these.
const (
	InHeaderSize  = 40
	OutHeaderSize = 16
	InitInSize    = 16
	InitOutSize   = 64

	// InitOutCompatSize is the INIT reply size for kernels older
	// than protocol 7.23 (FUSE_COMPAT_22_INIT_OUT_SIZE).
	InitOutCompatSize = 24

	DirentSize = 24

	// DirentAlign is the alignment of directory entry records in a
	// READDIR reply.
	DirentAlign = 8
)

// ParseHeader validates and decodes the request header at the start
// of buf. The returned header aliases buf.
func ParseHeader(buf []byte) (*InHeader, error) {
	if len(buf) < InHeaderSize {
		return nil, fmt.Errorf("request of %d bytes is shorter than the %d-byte header", len(buf), InHeaderSize)
	}
	header := (*InHeader)(unsafe.Pointer(&buf[0]))
	if int(header.Len) != len(buf) {
		return nil, fmt.Errorf("header length %d disagrees with read length %d", header.Len, len(buf))
	}
	return header, nil
}

// ParseAs decodes the fixed-layout payload T at the start of data.
// Returns false if data is too short. The returned value aliases
// data; callers must copy anything they retain past the request's
// lifetime.
func ParseAs[T any](data []byte) (*T, bool) {
	var zero T
	if uintptr(len(data)) < unsafe.Sizeof(zero) {
		return nil, false
	}
	return (*T)(unsafe.Pointer(&data[0])), true
}

// AsBytes returns the wire encoding of the fixed-layout record v as
// a byte slice aliasing v's memory.
func AsBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// ParseString extracts the NUL-terminated string at the start of
// data. Returns false if no NUL is present.
func ParseString(data []byte) (string, bool) {
	idx := bytes.IndexByte(data, 0)
	if idx < 0 {
		return "", false
	}
	return string(data[:idx]), true
}

// ParseTwoStrings extracts two consecutive NUL-terminated strings,
// as carried by RENAME requests.
func ParseTwoStrings(data []byte) (string, string, bool) {
	first, ok := ParseString(data)
	if !ok {
		return "", "", false
	}
	second, ok := ParseString(data[len(first)+1:])
	if !ok {
		return "", "", false
	}
	return first, second, true
}

// DirentType is the d_type value carried in a Dirent.
type DirentType uint32

// d_type values (from dirent.h).
const (
	DT_Unknown DirentType = 0
	DT_Fifo    DirentType = 1
	DT_Char    DirentType = 2
	DT_Dir     DirentType = 4
	DT_Block   DirentType = 6
	DT_Reg     DirentType = 8
	DT_Link    DirentType = 10
	DT_Sock    DirentType = 12
)

// AppendDirent appends one directory entry to a READDIR reply
// buffer: the fixed Dirent record, the name, and zero padding to an
// 8-byte boundary. Off is the offset the kernel passes back to
// resume the listing after this entry.
func AppendDirent(buf []byte, ino uint64, off uint64, typ DirentType, name string) []byte {
	entry := Dirent{
		Ino:     ino,
		Off:     off,
		NameLen: uint32(len(name)),
		Type:    uint32(typ),
	}
	buf = append(buf, AsBytes(&entry)...)
	buf = append(buf, name...)

	padded := direntRecordSize(len(name)) - DirentSize - len(name)
	for range padded {
		buf = append(buf, 0)
	}
	return buf
}

// DirentRecordSize returns the on-wire size of a directory entry
// with the given name length, including alignment padding.
func DirentRecordSize(nameLen int) int {
	return direntRecordSize(nameLen)
}

func direntRecordSize(nameLen int) int {
	return (DirentSize + nameLen + DirentAlign - 1) &^ (DirentAlign - 1)
}
