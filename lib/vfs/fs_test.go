// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package vfs

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/burrow/lib/backingstore"
	"github.com/bureau-foundation/burrow/lib/fusekernel"
	"github.com/bureau-foundation/burrow/lib/object"
)

// memoryLocal is a minimal in-memory LocalStore.
type memoryLocal struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *memoryLocal) GetBatch(ctx context.Context, keys [][]byte) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, ok := s.data[string(key)]; ok {
			values[i] = value
		}
	}
	return values, nil
}

func (s *memoryLocal) PutBatch(ctx context.Context, keys, values [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, key := range keys {
		s.data[string(key)] = values[i]
	}
	return nil
}

// objectRemote serves blobs and trees from maps keyed the way the
// queued store addresses them.
type objectRemote struct {
	blobs map[object.ProxyHash]*object.Blob
	trees map[object.Hash]*object.Tree
}

func (r *objectRemote) FetchBlob(ctx context.Context, proxy object.ProxyHash) (*object.Blob, error) {
	if blob, ok := r.blobs[proxy]; ok {
		return blob, nil
	}
	return nil, errors.New("remote: blob not found")
}

func (r *objectRemote) FetchTree(ctx context.Context, hash object.Hash) (*object.Tree, error) {
	if tree, ok := r.trees[hash]; ok {
		return tree, nil
	}
	return nil, errors.New("remote: tree not found")
}

func (r *objectRemote) Prefetch(ctx context.Context, hashes []object.Hash) error {
	return nil
}

type fixture struct {
	fs   *FS
	root object.Hash
}

// newFixture builds a view over this namespace:
//
//	/hello.txt     "hello, burrow\n"
//	/link          -> hello.txt
//	/sub/inner.txt "inner content"
func newFixture(t *testing.T) *fixture {
	t.Helper()

	hello := object.NewBlob([]byte("hello, burrow\n"))
	inner := object.NewBlob([]byte("inner content"))
	linkTarget := object.NewBlob([]byte("hello.txt"))

	subTree, err := object.NewTree([]object.TreeEntry{
		{Name: "inner.txt", Type: object.EntryBlob, Hash: inner.Hash, Size: inner.Size()},
	})
	if err != nil {
		t.Fatal(err)
	}
	rootTree, err := object.NewTree([]object.TreeEntry{
		{Name: "hello.txt", Type: object.EntryBlob, Hash: hello.Hash, Size: hello.Size()},
		{Name: "link", Type: object.EntrySymlink, Hash: linkTarget.Hash, Size: linkTarget.Size()},
		{Name: "sub", Type: object.EntryTree, Hash: subTree.Hash},
	})
	if err != nil {
		t.Fatal(err)
	}

	remote := &objectRemote{
		blobs: map[object.ProxyHash]*object.Blob{
			object.DeriveProxyHash(hello.Hash):      hello,
			object.DeriveProxyHash(inner.Hash):      inner,
			object.DeriveProxyHash(linkTarget.Hash): linkTarget,
		},
		trees: map[object.Hash]*object.Tree{
			rootTree.Hash: rootTree,
			subTree.Hash:  subTree,
		},
	}

	datapack, err := backingstore.NewDatapack(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store, err := backingstore.NewQueuedStore(backingstore.Options{
		Local:    &memoryLocal{data: make(map[string][]byte)},
		Datapack: datapack,
		Remote:   remote,
		Workers:  2,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		store.Close()
		datapack.Close()
	})

	fs, err := New(Options{Store: store, Root: rootTree.Hash, UID: 1000, GID: 1000})
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{fs: fs, root: rootTree.Hash}
}

func rootHeader() *fusekernel.InHeader {
	return &fusekernel.InHeader{NodeID: fusekernel.RootID, UID: 1000, GID: 1000}
}

func headerFor(ino uint64) *fusekernel.InHeader {
	return &fusekernel.InHeader{NodeID: ino, UID: 1000, GID: 1000}
}

func (f *fixture) lookup(t *testing.T, parent uint64, name string) *fusekernel.EntryOut {
	t.Helper()
	out, err := f.fs.Lookup(context.Background(), headerFor(parent), name)
	if err != nil {
		t.Fatalf("Lookup(%d, %q) failed: %v", parent, name, err)
	}
	return out
}

func TestLookupAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entry := f.lookup(t, fusekernel.RootID, "hello.txt")
	if entry.NodeID == 0 || entry.NodeID == fusekernel.RootID {
		t.Fatalf("lookup allocated inode %d", entry.NodeID)
	}
	if entry.Attr.Mode != unix.S_IFREG|0o444 {
		t.Errorf("mode %o, want read-only regular file", entry.Attr.Mode)
	}
	if entry.Attr.Size != uint64(len("hello, burrow\n")) {
		t.Errorf("size %d", entry.Attr.Size)
	}

	open, err := f.fs.Open(ctx, headerFor(entry.NodeID), &fusekernel.OpenIn{Flags: unix.O_RDONLY})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	data, err := f.fs.Read(ctx, headerFor(entry.NodeID), &fusekernel.ReadIn{
		Fh:   open.Fh,
		Size: 4096,
	})
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(data, []byte("hello, burrow\n")) {
		t.Errorf("read %q", data)
	}

	// Ranged read.
	data, err = f.fs.Read(ctx, headerFor(entry.NodeID), &fusekernel.ReadIn{
		Fh:     open.Fh,
		Offset: 7,
		Size:   6,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("burrow")) {
		t.Errorf("ranged read %q, want \"burrow\"", data)
	}
}

func TestLookupMissingName(t *testing.T) {
	f := newFixture(t)

	_, err := f.fs.Lookup(context.Background(), rootHeader(), "absent")
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("Lookup error = %v, want ENOENT", err)
	}
}

func TestLookupSameObjectSharesInode(t *testing.T) {
	f := newFixture(t)

	first := f.lookup(t, fusekernel.RootID, "hello.txt")
	second := f.lookup(t, fusekernel.RootID, "hello.txt")
	if first.NodeID != second.NodeID {
		t.Errorf("repeated lookup allocated %d then %d", first.NodeID, second.NodeID)
	}
}

func TestOpenForWriteRejected(t *testing.T) {
	f := newFixture(t)

	entry := f.lookup(t, fusekernel.RootID, "hello.txt")
	_, err := f.fs.Open(context.Background(), headerFor(entry.NodeID), &fusekernel.OpenIn{Flags: unix.O_WRONLY})
	if !errors.Is(err, unix.EROFS) {
		t.Errorf("write open error = %v, want EROFS", err)
	}
}

func TestReaddir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buf, err := f.fs.Readdir(ctx, rootHeader(), &fusekernel.ReadIn{Size: 8192})
	if err != nil {
		t.Fatalf("Readdir failed: %v", err)
	}

	var names []string
	var types []uint32
	for len(buf) > 0 {
		entry, ok := fusekernel.ParseAs[fusekernel.Dirent](buf)
		if !ok {
			t.Fatal("truncated dirent")
		}
		names = append(names, string(buf[fusekernel.DirentSize:fusekernel.DirentSize+int(entry.NameLen)]))
		types = append(types, entry.Type)
		buf = buf[fusekernel.DirentRecordSize(int(entry.NameLen)):]
	}

	want := []string{"hello.txt", "link", "sub"}
	if len(names) != len(want) {
		t.Fatalf("listed %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, names[i], want[i])
		}
	}
	if types[1] != uint32(fusekernel.DT_Link) || types[2] != uint32(fusekernel.DT_Dir) {
		t.Errorf("dirent types = %v", types)
	}
}

func TestReaddirResumesFromOffset(t *testing.T) {
	f := newFixture(t)

	buf, err := f.fs.Readdir(context.Background(), rootHeader(), &fusekernel.ReadIn{Offset: 2, Size: 8192})
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := fusekernel.ParseAs[fusekernel.Dirent](buf)
	if !ok {
		t.Fatal("truncated dirent")
	}
	name := string(buf[fusekernel.DirentSize : fusekernel.DirentSize+int(entry.NameLen)])
	if name != "sub" {
		t.Errorf("entry at offset 2 = %q, want \"sub\"", name)
	}
}

func TestReadlink(t *testing.T) {
	f := newFixture(t)

	entry := f.lookup(t, fusekernel.RootID, "link")
	target, err := f.fs.Readlink(context.Background(), headerFor(entry.NodeID))
	if err != nil {
		t.Fatalf("Readlink failed: %v", err)
	}
	if string(target) != "hello.txt" {
		t.Errorf("target %q", target)
	}
}

func TestNestedLookup(t *testing.T) {
	f := newFixture(t)

	sub := f.lookup(t, fusekernel.RootID, "sub")
	if sub.Attr.Mode&unix.S_IFDIR == 0 {
		t.Fatalf("sub mode %o is not a directory", sub.Attr.Mode)
	}

	inner := f.lookup(t, sub.NodeID, "inner.txt")
	data, err := f.fs.Read(context.Background(), headerFor(inner.NodeID), &fusekernel.ReadIn{Size: 4096})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, []byte("inner content")) {
		t.Errorf("read %q", data)
	}
}

func TestForgetDropsInode(t *testing.T) {
	f := newFixture(t)

	entry := f.lookup(t, fusekernel.RootID, "hello.txt")
	f.fs.Forget(entry.NodeID, 1)

	_, err := f.fs.Getattr(context.Background(), headerFor(entry.NodeID), &fusekernel.GetattrIn{})
	if !errors.Is(err, unix.ENOENT) {
		t.Errorf("Getattr after forget = %v, want ENOENT", err)
	}
}

func TestAccessWriteRejected(t *testing.T) {
	f := newFixture(t)

	err := f.fs.Access(context.Background(), rootHeader(), &fusekernel.AccessIn{Mask: unix.W_OK})
	if !errors.Is(err, unix.EROFS) {
		t.Errorf("write access = %v, want EROFS", err)
	}
	if err := f.fs.Access(context.Background(), rootHeader(), &fusekernel.AccessIn{Mask: unix.R_OK}); err != nil {
		t.Errorf("read access = %v", err)
	}
}
