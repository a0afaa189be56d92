// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/burrow/lib/backingstore"
	"github.com/bureau-foundation/burrow/lib/fusechan"
	"github.com/bureau-foundation/burrow/lib/fusekernel"
	"github.com/bureau-foundation/burrow/lib/importq"
	"github.com/bureau-foundation/burrow/lib/object"
)

// attrValidSec is how long the kernel may cache attributes and
// entries. The tree is immutable for the life of a mount, so a
// generous validity is safe.
const attrValidSec = 60

// Options configures the filesystem view.
type Options struct {
	// Store supplies trees and blobs.
	Store *backingstore.QueuedStore

	// Root is the tree object the mount point resolves to.
	Root object.Hash

	// UID and GID own every node in the view.
	UID uint32
	GID uint32

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// FS is a read-only dispatcher over a content-addressed tree. Inode
// numbers are allocated on first lookup and stay stable until the
// kernel forgets them.
type FS struct {
	fusechan.DispatcherBase

	store  *backingstore.QueuedStore
	uid    uint32
	gid    uint32
	logger *slog.Logger

	mu      sync.Mutex
	inodes  map[uint64]*inode
	nextIno uint64
}

// inode ties an allocated inode number to the object it names.
type inode struct {
	ino   uint64
	entry object.TreeEntry

	// nlookup counts kernel references; the inode is dropped when
	// forget brings it to zero.
	nlookup uint64
}

// New creates the filesystem view.
func New(options Options) (*FS, error) {
	if options.Store == nil {
		return nil, fmt.Errorf("backing store is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	fs := &FS{
		store:   options.Store,
		uid:     options.UID,
		gid:     options.GID,
		logger:  options.Logger,
		inodes:  make(map[uint64]*inode),
		nextIno: fusekernel.RootID + 1,
	}
	fs.inodes[fusekernel.RootID] = &inode{
		ino:     fusekernel.RootID,
		entry:   object.TreeEntry{Name: "", Type: object.EntryTree, Hash: options.Root},
		nlookup: 1,
	}
	return fs, nil
}

func (fs *FS) node(ino uint64) (*inode, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	node, ok := fs.inodes[ino]
	return node, ok
}

// intern returns the inode for entry, allocating a number on first
// sight. Identity is (type, hash): two directory entries
// naming the same object share an inode, which is exactly the
// hard-link semantics of a content-addressed tree.
func (fs *FS) intern(entry object.TreeEntry) *inode {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for _, node := range fs.inodes {
		if node.entry.Hash == entry.Hash && node.entry.Type == entry.Type {
			node.nlookup++
			return node
		}
	}

	node := &inode{ino: fs.nextIno, entry: entry, nlookup: 1}
	fs.nextIno++
	fs.inodes[node.ino] = node
	return node
}

func (fs *FS) attr(node *inode) fusekernel.Attr {
	attr := fusekernel.Attr{
		Ino:     node.ino,
		Size:    uint64(node.entry.Size),
		Nlink:   1,
		UID:     fs.uid,
		GID:     fs.gid,
		Blksize: 4096,
		Blocks:  (uint64(node.entry.Size) + 511) / 512,
	}
	switch node.entry.Type {
	case object.EntryTree:
		attr.Mode = unix.S_IFDIR | 0o555
		attr.Size = 0
		attr.Blocks = 0
	case object.EntryExecutable:
		attr.Mode = unix.S_IFREG | 0o555
	case object.EntrySymlink:
		attr.Mode = unix.S_IFLNK | 0o777
	default:
		attr.Mode = unix.S_IFREG | 0o444
	}
	return attr
}

func (fs *FS) loadTree(node *inode) (*object.Tree, error) {
	if node.entry.Type != object.EntryTree {
		return nil, unix.ENOTDIR
	}
	tree, err := fs.store.GetTree(node.entry.Hash, importq.PriorityHigh).Wait()
	if err != nil {
		fs.logger.Warn("tree import failed",
			"hash", node.entry.Hash.Short(),
			"error", err,
		)
		return nil, unix.EIO
	}
	return tree, nil
}

// Lookup resolves name under the parent directory.
func (fs *FS) Lookup(ctx context.Context, header *fusekernel.InHeader, name string) (*fusekernel.EntryOut, error) {
	parent, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	tree, err := fs.loadTree(parent)
	if err != nil {
		return nil, err
	}

	entry, found := tree.Lookup(name)
	if !found {
		return nil, unix.ENOENT
	}

	node := fs.intern(entry)
	return &fusekernel.EntryOut{
		NodeID:     node.ino,
		EntryValid: attrValidSec,
		AttrValid:  attrValidSec,
		Attr:       fs.attr(node),
	}, nil
}

// Forget drops kernel references to an inode. The root is never
// dropped.
func (fs *FS) Forget(nodeID uint64, nlookup uint64) {
	if nodeID == fusekernel.RootID {
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	node, ok := fs.inodes[nodeID]
	if !ok {
		return
	}
	if node.nlookup <= nlookup {
		delete(fs.inodes, nodeID)
	} else {
		node.nlookup -= nlookup
	}
}

// BatchForget drops a batch of references.
func (fs *FS) BatchForget(items []fusekernel.ForgetOne) {
	for _, item := range items {
		fs.Forget(item.NodeID, item.Nlookup)
	}
}

// Getattr reports attributes.
func (fs *FS) Getattr(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.GetattrIn) (*fusekernel.AttrOut, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	return &fusekernel.AttrOut{
		AttrValid: attrValidSec,
		Attr:      fs.attr(node),
	}, nil
}

// Open admits read-only opens.
func (fs *FS) Open(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.OpenIn) (*fusekernel.OpenOut, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	if node.entry.Type == object.EntryTree {
		return nil, unix.EISDIR
	}
	if in.Flags&uint32(unix.O_ACCMODE) != unix.O_RDONLY {
		return nil, unix.EROFS
	}
	return &fusekernel.OpenOut{
		Fh:        node.ino,
		OpenFlags: fusekernel.OpenKeepCache,
	}, nil
}

// Read serves file content from the blob store.
func (fs *FS) Read(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReadIn) ([]byte, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}

	blob, err := fs.store.GetBlob(node.entry.Hash, importq.PriorityHigh).Wait()
	if err != nil {
		fs.logger.Warn("blob import failed",
			"hash", node.entry.Hash.Short(),
			"error", err,
		)
		return nil, unix.EIO
	}

	offset := int64(in.Offset)
	if offset >= blob.Size() {
		return nil, nil
	}
	end := offset + int64(in.Size)
	if end > blob.Size() {
		end = blob.Size()
	}
	return blob.Data[offset:end], nil
}

// Release closes a file handle; nothing to tear down in a read-only
// view.
func (fs *FS) Release(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReleaseIn) error {
	return nil
}

// Flush is a no-op for read-only handles.
func (fs *FS) Flush(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.FlushIn) error {
	return nil
}

// Readlink serves a symlink target from its blob.
func (fs *FS) Readlink(ctx context.Context, header *fusekernel.InHeader) ([]byte, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	if node.entry.Type != object.EntrySymlink {
		return nil, unix.EINVAL
	}

	blob, err := fs.store.GetBlob(node.entry.Hash, importq.PriorityHigh).Wait()
	if err != nil {
		return nil, unix.EIO
	}
	return blob.Data, nil
}

// Opendir admits directory opens.
func (fs *FS) Opendir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.OpenIn) (*fusekernel.OpenOut, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	if node.entry.Type != object.EntryTree {
		return nil, unix.ENOTDIR
	}
	return &fusekernel.OpenOut{Fh: node.ino, OpenFlags: fusekernel.OpenCacheDir}, nil
}

// Readdir lists a directory. The offset is the index of the next
// entry, as encoded into each dirent's Off field.
func (fs *FS) Readdir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReadIn) ([]byte, error) {
	node, ok := fs.node(header.NodeID)
	if !ok {
		return nil, unix.ENOENT
	}
	tree, err := fs.loadTree(node)
	if err != nil {
		return nil, err
	}

	var buf []byte
	for i := int(in.Offset); i < len(tree.Entries); i++ {
		entry := tree.Entries[i]
		if len(buf)+fusekernel.DirentRecordSize(len(entry.Name)) > int(in.Size) {
			break
		}

		direntType := fusekernel.DT_Reg
		switch entry.Type {
		case object.EntryTree:
			direntType = fusekernel.DT_Dir
		case object.EntrySymlink:
			direntType = fusekernel.DT_Link
		}
		// Listing inodes without a lookup does not pin them; report
		// a hashed placeholder and let LOOKUP allocate for real.
		buf = fusekernel.AppendDirent(buf, entryIno(entry), uint64(i+1), direntType, entry.Name)
	}
	return buf, nil
}

// Releasedir closes a directory handle.
func (fs *FS) Releasedir(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.ReleaseIn) error {
	return nil
}

// Access rejects write access with EROFS and allows every other
// request without consulting the mode bits; the view is
// world-readable by construction.
func (fs *FS) Access(ctx context.Context, header *fusekernel.InHeader, in *fusekernel.AccessIn) error {
	if in.Mask&uint32(unix.W_OK) != 0 {
		return unix.EROFS
	}
	return nil
}

// Statfs reports a synthetic, read-only filesystem.
func (fs *FS) Statfs(ctx context.Context, header *fusekernel.InHeader) (*fusekernel.StatfsOut, error) {
	return &fusekernel.StatfsOut{
		St: fusekernel.Kstatfs{
			Bsize:   4096,
			Frsize:  4096,
			NameLen: 255,
		},
	}, nil
}

// entryIno derives the placeholder inode reported in directory
// listings before a LOOKUP pins the entry.
func entryIno(entry object.TreeEntry) uint64 {
	var ino uint64
	for i := range 8 {
		ino = ino<<8 | uint64(entry.Hash[i])
	}
	if ino == 0 {
		ino = 1
	}
	return ino
}
