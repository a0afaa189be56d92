// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"context"
	"errors"
	"io/fs"

	"golang.org/x/sys/unix"
)

// Errno is a POSIX error number carried from a dispatcher to the
// kernel. The reply writer negates it into the reply status field.
type Errno = unix.Errno

// Errors a dispatcher returns to produce specific reply statuses.
var (
	// ErrNotImplemented yields ENOSYS, the reply for unimplemented
	// opcode families.
	ErrNotImplemented error = unix.ENOSYS

	// ErrInterrupted yields EINTR, the reply for requests cancelled
	// by the kernel.
	ErrInterrupted error = unix.EINTR
)

// errnoOf converts a dispatcher error into the errno for the reply
// status. Unrecognized errors map to EIO: something went wrong, but
// nothing the kernel can act on more precisely.
func errnoOf(err error) Errno {
	if err == nil {
		return 0
	}

	var errno Errno
	if errors.As(err, &errno) {
		return errno
	}
	if errors.Is(err, context.Canceled) {
		return unix.EINTR
	}

	// fs sentinel errors appear when dispatchers lean on the
	// standard library.
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return unix.ENOENT
	case errors.Is(err, fs.ErrPermission):
		return unix.EACCES
	case errors.Is(err, fs.ErrExist):
		return unix.EEXIST
	case errors.Is(err, errors.ErrUnsupported):
		return unix.ENOSYS
	}
	return unix.EIO
}
