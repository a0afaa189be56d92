// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"context"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/burrow/lib/fusekernel"
)

// handlerEntry is one row of the opcode table: how to parse the
// payload, which dispatcher method to invoke, and what reply shape
// to produce. invoke returns the reply payload as a buffer list for
// the gathered write, or an error whose errno becomes the reply
// status.
type handlerEntry struct {
	// expectsReply is false for the forget family: those requests
	// are fire-and-forget and are never registered or answered.
	expectsReply bool

	invoke func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error)
}

// handlerMap is the static opcode table. Adding an opcode means
// adding one row. Opcodes absent from the table are answered with
// ENOSYS and logged once per opcode value.
var handlerMap = map[fusekernel.Opcode]handlerEntry{
	fusekernel.OpLookup: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		name, ok := fusekernel.ParseString(payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Lookup(ctx, header, name)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpForget: {expectsReply: false, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.ForgetIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		c.dispatcher.Forget(header.NodeID, in.Nlookup)
		return nil, nil
	}},

	fusekernel.OpBatchForget: {expectsReply: false, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.BatchForgetIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		items := make([]fusekernel.ForgetOne, 0, in.Count)
		rest := payload[8:]
		for range in.Count {
			item, ok := fusekernel.ParseAs[fusekernel.ForgetOne](rest)
			if !ok {
				break
			}
			items = append(items, *item)
			rest = rest[16:]
		}
		c.dispatcher.BatchForget(items)
		return nil, nil
	}},

	fusekernel.OpGetattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.GetattrIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Getattr(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpSetattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.SetattrIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Setattr(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpReadlink: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		target, err := c.dispatcher.Readlink(ctx, header)
		if err != nil {
			return nil, err
		}
		return [][]byte{target}, nil
	}},

	fusekernel.OpSymlink: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		name, target, ok := fusekernel.ParseTwoStrings(payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Symlink(ctx, header, name, target)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpMknod: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.MknodIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[16:])
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Mknod(ctx, header, in, name)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpMkdir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.MkdirIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[8:])
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Mkdir(ctx, header, in, name)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpUnlink: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		name, ok := fusekernel.ParseString(payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Unlink(ctx, header, name)
	}},

	fusekernel.OpRmdir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		name, ok := fusekernel.ParseString(payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Rmdir(ctx, header, name)
	}},

	fusekernel.OpRename: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.RenameIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		oldName, newName, ok := fusekernel.ParseTwoStrings(payload[8:])
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Rename(ctx, header, in, oldName, newName)
	}},

	fusekernel.OpLink: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.LinkIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[8:])
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Link(ctx, header, in, name)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpOpen: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.OpenIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Open(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpRead: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.ReadIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		data, err := c.dispatcher.Read(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{data}, nil
	}},

	fusekernel.OpWrite: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.WriteIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		data := payload[40:]
		if uint32(len(data)) < in.Size {
			return nil, unix.EINVAL
		}
		written, err := c.dispatcher.Write(ctx, header, in, data[:in.Size])
		if err != nil {
			return nil, err
		}
		out := fusekernel.WriteOut{Size: written}
		return [][]byte{append([]byte(nil), fusekernel.AsBytes(&out)...)}, nil
	}},

	fusekernel.OpStatfs: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		out, err := c.dispatcher.Statfs(ctx, header)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpRelease: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.ReleaseIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Release(ctx, header, in)
	}},

	fusekernel.OpFsync: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.FsyncIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Fsync(ctx, header, in)
	}},

	fusekernel.OpSetxattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.SetxattrIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[8:])
		if !ok {
			return nil, unix.EINVAL
		}
		valueStart := 8 + len(name) + 1
		if len(payload) < valueStart+int(in.Size) {
			return nil, unix.EINVAL
		}
		value := payload[valueStart : valueStart+int(in.Size)]
		return nil, c.dispatcher.Setxattr(ctx, header, in, name, value)
	}},

	fusekernel.OpGetxattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.GetxattrIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[8:])
		if !ok {
			return nil, unix.EINVAL
		}
		value, err := c.dispatcher.Getxattr(ctx, header, name)
		if err != nil {
			return nil, err
		}
		return sizedXattrReply(in.Size, value)
	}},

	fusekernel.OpListxattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.GetxattrIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		names, err := c.dispatcher.Listxattr(ctx, header)
		if err != nil {
			return nil, err
		}
		return sizedXattrReply(in.Size, names)
	}},

	fusekernel.OpRemovexattr: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		name, ok := fusekernel.ParseString(payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Removexattr(ctx, header, name)
	}},

	fusekernel.OpFlush: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.FlushIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Flush(ctx, header, in)
	}},

	fusekernel.OpOpendir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.OpenIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Opendir(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},

	fusekernel.OpReaddir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.ReadIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		entries, err := c.dispatcher.Readdir(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{entries}, nil
	}},

	fusekernel.OpReleasedir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.ReleaseIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Releasedir(ctx, header, in)
	}},

	fusekernel.OpFsyncdir: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.FsyncIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Fsyncdir(ctx, header, in)
	}},

	fusekernel.OpAccess: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.AccessIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		return nil, c.dispatcher.Access(ctx, header, in)
	}},

	fusekernel.OpCreate: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.CreateIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		name, ok := fusekernel.ParseString(payload[16:])
		if !ok {
			return nil, unix.EINVAL
		}
		entry, open, err := c.dispatcher.Create(ctx, header, in, name)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(entry), fusekernel.AsBytes(open)}, nil
	}},

	fusekernel.OpBmap: {expectsReply: true, invoke: func(c *Channel, ctx context.Context, header *fusekernel.InHeader, payload []byte) ([][]byte, error) {
		in, ok := fusekernel.ParseAs[fusekernel.BmapIn](payload)
		if !ok {
			return nil, unix.EINVAL
		}
		out, err := c.dispatcher.Bmap(ctx, header, in)
		if err != nil {
			return nil, err
		}
		return [][]byte{fusekernel.AsBytes(out)}, nil
	}},
}

// sizedXattrReply implements the two-phase xattr read: a zero-size
// request probes for the value length, a sized request retrieves the
// value (ERANGE if it no longer fits).
func sizedXattrReply(requestSize uint32, value []byte) ([][]byte, error) {
	if requestSize == 0 {
		out := fusekernel.GetxattrOut{Size: uint32(len(value))}
		return [][]byte{append([]byte(nil), fusekernel.AsBytes(&out)...)}, nil
	}
	if uint32(len(value)) > requestSize {
		return nil, unix.ERANGE
	}
	return [][]byte{value}, nil
}
