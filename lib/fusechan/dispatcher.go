// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"context"

	"github.com/bureau-foundation/burrow/lib/fusekernel"
)

// Dispatcher implements filesystem semantics, one method per opcode
// family. The channel invokes exactly one method per decoded request
// from a worker goroutine; methods may block, and ctx is cancelled
// when the kernel interrupts the request or the session drains.
//
// The header gives the request's credentials (UID, GID, PID) and the
// target node. Methods return the reply payload or an error whose
// errno becomes the reply status; embed DispatcherBase to inherit
// "not implemented" for families a filesystem does not support.
type Dispatcher interface {
	Lookup(ctx context.Context, header *fusekernel.InHeader, name string) (*fusekernel.EntryOut, error)

	// Forget and BatchForget are reply-less: the kernel is dropping
	// its references to nodes and does not wait.
	Forget(nodeID uint64, nlookup uint64)
	BatchForget(items []fusekernel.ForgetOne)

	Getattr(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.GetattrIn) (*fusekernel.AttrOut, error)
	Setattr(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.SetattrIn) (*fusekernel.AttrOut, error)
	Readlink(ctx context.Context, header *fusekernel.InHeader) ([]byte, error)
	Symlink(ctx context.Context, header *fusekernel.InHeader, name, target string) (*fusekernel.EntryOut, error)
	Mknod(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.MknodIn, name string) (*fusekernel.EntryOut, error)
	Mkdir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.MkdirIn, name string) (*fusekernel.EntryOut, error)
	Unlink(ctx context.Context, header *fusekernel.InHeader, name string) error
	Rmdir(ctx context.Context, header *fusekernel.InHeader, name string) error
	Rename(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.RenameIn, oldName, newName string) error
	Link(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.LinkIn, name string) (*fusekernel.EntryOut, error)
	Open(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.OpenIn) (*fusekernel.OpenOut, error)
	Read(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReadIn) ([]byte, error)
	Write(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.WriteIn, data []byte) (uint32, error)
	Statfs(ctx context.Context, header *fusekernel.InHeader) (*fusekernel.StatfsOut, error)
	Release(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReleaseIn) error
	Fsync(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.FsyncIn) error
	Setxattr(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.SetxattrIn, name string, value []byte) error
	Getxattr(ctx context.Context, header *fusekernel.InHeader, name string) ([]byte, error)
	Listxattr(ctx context.Context, header *fusekernel.InHeader) ([]byte, error)
	Removexattr(ctx context.Context, header *fusekernel.InHeader, name string) error
	Flush(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.FlushIn) error
	Opendir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.OpenIn) (*fusekernel.OpenOut, error)

	// Readdir returns pre-encoded directory entries, built with
	// fusekernel.AppendDirent and at most in.Size bytes long.
	Readdir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReadIn) ([]byte, error)

	Releasedir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReleaseIn) error
	Fsyncdir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.FsyncIn) error
	Access(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.AccessIn) error
	Create(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.CreateIn, name string) (*fusekernel.EntryOut, *fusekernel.OpenOut, error)
	Bmap(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.BmapIn) (*fusekernel.BmapOut, error)
}

// DispatcherBase returns ErrNotImplemented from every method. Embed
// it and override the families the filesystem supports.
type DispatcherBase struct{}

var _ Dispatcher = (*DispatcherBase)(nil)

func (DispatcherBase) Lookup(context.Context, *fusekernel.InHeader, string) (*fusekernel.EntryOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Forget(uint64, uint64) {}

func (DispatcherBase) BatchForget([]fusekernel.ForgetOne) {}

func (DispatcherBase) Getattr(context.Context, *fusekernel.InHeader, *fusekernel.GetattrIn) (*fusekernel.AttrOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Setattr(context.Context, *fusekernel.InHeader, *fusekernel.SetattrIn) (*fusekernel.AttrOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Readlink(context.Context, *fusekernel.InHeader) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Symlink(context.Context, *fusekernel.InHeader, string, string) (*fusekernel.EntryOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Mknod(context.Context, *fusekernel.InHeader, *fusekernel.MknodIn, string) (*fusekernel.EntryOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Mkdir(context.Context, *fusekernel.InHeader, *fusekernel.MkdirIn, string) (*fusekernel.EntryOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Unlink(context.Context, *fusekernel.InHeader, string) error {
	return ErrNotImplemented
}

func (DispatcherBase) Rmdir(context.Context, *fusekernel.InHeader, string) error {
	return ErrNotImplemented
}

func (DispatcherBase) Rename(context.Context, *fusekernel.InHeader, *fusekernel.RenameIn, string, string) error {
	return ErrNotImplemented
}

func (DispatcherBase) Link(context.Context, *fusekernel.InHeader, *fusekernel.LinkIn, string) (*fusekernel.EntryOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Open(context.Context, *fusekernel.InHeader, *fusekernel.OpenIn) (*fusekernel.OpenOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Read(context.Context, *fusekernel.InHeader, *fusekernel.ReadIn) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Write(context.Context, *fusekernel.InHeader, *fusekernel.WriteIn, []byte) (uint32, error) {
	return 0, ErrNotImplemented
}

func (DispatcherBase) Statfs(context.Context, *fusekernel.InHeader) (*fusekernel.StatfsOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Release(context.Context, *fusekernel.InHeader, *fusekernel.ReleaseIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Fsync(context.Context, *fusekernel.InHeader, *fusekernel.FsyncIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Setxattr(context.Context, *fusekernel.InHeader, *fusekernel.SetxattrIn, string, []byte) error {
	return ErrNotImplemented
}

func (DispatcherBase) Getxattr(context.Context, *fusekernel.InHeader, string) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Listxattr(context.Context, *fusekernel.InHeader) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Removexattr(context.Context, *fusekernel.InHeader, string) error {
	return ErrNotImplemented
}

func (DispatcherBase) Flush(context.Context, *fusekernel.InHeader, *fusekernel.FlushIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Opendir(context.Context, *fusekernel.InHeader, *fusekernel.OpenIn) (*fusekernel.OpenOut, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Readdir(context.Context, *fusekernel.InHeader, *fusekernel.ReadIn) ([]byte, error) {
	return nil, ErrNotImplemented
}

func (DispatcherBase) Releasedir(context.Context, *fusekernel.InHeader, *fusekernel.ReleaseIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Fsyncdir(context.Context, *fusekernel.InHeader, *fusekernel.FsyncIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Access(context.Context, *fusekernel.InHeader, *fusekernel.AccessIn) error {
	return ErrNotImplemented
}

func (DispatcherBase) Create(context.Context, *fusekernel.InHeader, *fusekernel.CreateIn, string) (*fusekernel.EntryOut, *fusekernel.OpenOut, error) {
	return nil, nil, ErrNotImplemented
}

func (DispatcherBase) Bmap(context.Context, *fusekernel.InHeader, *fusekernel.BmapIn) (*fusekernel.BmapOut, error) {
	return nil, ErrNotImplemented
}
