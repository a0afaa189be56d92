// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/burrow/lib/fusekernel"
)

// replyError sends a status-only reply. errno 0 acknowledges success
// with no payload.
func (c *Channel) replyError(header *fusekernel.InHeader, errno Errno) {
	out := fusekernel.OutHeader{
		Len:    fusekernel.OutHeaderSize,
		Status: -int32(errno),
		Unique: header.Unique,
	}
	if _, err := unix.Write(c.fd(), fusekernel.AsBytes(&out)); err != nil {
		c.logger.Error("error reply write failed",
			"unique", header.Unique,
			"errno", uint32(errno),
			"error", err,
		)
	}
}

// sendReplyBytes sends a reply with a single contiguous payload.
func (c *Channel) sendReplyBytes(header *fusekernel.InHeader, payload []byte) error {
	if len(payload) == 0 {
		return c.sendReplyVec(header, nil)
	}
	return c.sendReplyVec(header, [][]byte{payload})
}

// sendReplyVec sends a success reply whose payload is scattered
// across buffers. The reply header length is the header size plus
// the sum of the buffer lengths, and header plus buffers go to the
// kernel in one gathered write — the kernel requires each reply to
// arrive whole.
func (c *Channel) sendReplyVec(header *fusekernel.InHeader, buffers [][]byte) error {
	total := fusekernel.OutHeaderSize
	for _, buffer := range buffers {
		total += len(buffer)
	}

	out := fusekernel.OutHeader{
		Len:    uint32(total),
		Status: 0,
		Unique: header.Unique,
	}

	iov := make([][]byte, 0, len(buffers)+1)
	iov = append(iov, fusekernel.AsBytes(&out))
	for _, buffer := range buffers {
		if len(buffer) > 0 {
			iov = append(iov, buffer)
		}
	}

	n, err := unix.Writev(c.fd(), iov)
	if err != nil {
		return fmt.Errorf("writing reply for request %d: %w", header.Unique, err)
	}
	if n != total {
		return fmt.Errorf("reply for request %d wrote %d of %d bytes", header.Unique, n, total)
	}
	return nil
}

// notify sends an out-of-band notification to the kernel. The
// notification code travels in the status field and the unique id is
// zero, which is how the kernel tells notifications from replies.
func (c *Channel) notify(code fusekernel.NotifyCode, payload [][]byte) error {
	total := fusekernel.OutHeaderSize
	for _, buffer := range payload {
		total += len(buffer)
	}

	out := fusekernel.OutHeader{
		Len:    uint32(total),
		Status: int32(code),
		Unique: 0,
	}

	iov := append([][]byte{fusekernel.AsBytes(&out)}, payload...)
	if _, err := unix.Writev(c.fd(), iov); err != nil {
		// ENOENT means the kernel had already dropped the cache
		// entry in question; the notification is moot.
		if err == unix.ENOENT {
			return nil
		}
		return fmt.Errorf("sending notification %d: %w", code, err)
	}
	return nil
}

// InvalidateInode tells the kernel to drop cached data for an
// inode. A negative offset invalidates only the attributes; offset
// with length covers a data range (length 0 meaning "to the end").
func (c *Channel) InvalidateInode(ino uint64, offset, length int64) error {
	payload := fusekernel.NotifyInvalInodeOut{
		Ino:    ino,
		Off:    offset,
		Length: length,
	}
	return c.notify(fusekernel.NotifyInvalInode, [][]byte{fusekernel.AsBytes(&payload)})
}

// InvalidateEntry tells the kernel to drop the dentry for name
// under the parent directory. The name is NUL-terminated on the
// wire.
func (c *Channel) InvalidateEntry(parent uint64, name string) error {
	payload := fusekernel.NotifyInvalEntryOut{
		Parent:  parent,
		NameLen: uint32(len(name)),
	}
	wireName := make([]byte, len(name)+1)
	copy(wireName, name)
	return c.notify(fusekernel.NotifyInvalEntry, [][]byte{fusekernel.AsBytes(&payload), wireName})
}
