// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"fmt"
	"sort"

	"github.com/bureau-foundation/burrow/lib/codec"
)

// Blob is file content plus its identity. The hash is always the
// blob-domain hash of Data.
type Blob struct {
	Hash Hash
	Data []byte
}

// NewBlob hashes data and returns the blob. The data slice is
// retained, not copied.
func NewBlob(data []byte) *Blob {
	return &Blob{Hash: HashBlob(data), Data: data}
}

// Size returns the content length in bytes.
func (b *Blob) Size() int64 { return int64(len(b.Data)) }

// EntryType distinguishes the kinds of tree entry.
type EntryType uint8

const (
	// EntryBlob is a regular file.
	EntryBlob EntryType = 0
	// EntryExecutable is a regular file with the execute bit set.
	EntryExecutable EntryType = 1
	// EntrySymlink is a symbolic link whose target is the blob content.
	EntrySymlink EntryType = 2
	// EntryTree is a subdirectory.
	EntryTree EntryType = 3
)

// String returns the human-readable name of an entry type.
func (t EntryType) String() string {
	switch t {
	case EntryBlob:
		return "blob"
	case EntryExecutable:
		return "executable"
	case EntrySymlink:
		return "symlink"
	case EntryTree:
		return "tree"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// TreeEntry is one name in a directory listing.
type TreeEntry struct {
	Name string    `cbor:"1,keyasint"`
	Type EntryType `cbor:"2,keyasint"`
	Hash Hash      `cbor:"3,keyasint"`
	Size int64     `cbor:"4,keyasint"`
}

// Tree is a directory listing plus its identity. Entries are kept
// sorted by name; the hash is the tree-domain hash of the canonical
// CBOR serialization.
type Tree struct {
	Hash    Hash
	Entries []TreeEntry
}

// NewTree sorts entries by name, serializes them, and returns the
// tree with its computed hash.
func NewTree(entries []TreeEntry) (*Tree, error) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	data, err := codec.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("serializing tree: %w", err)
	}
	return &Tree{Hash: HashTree(data), Entries: entries}, nil
}

// Marshal returns the canonical CBOR serialization of the entries.
// The same listing always produces identical bytes, so the tree hash
// is reproducible.
func (t *Tree) Marshal() ([]byte, error) {
	return codec.Marshal(t.Entries)
}

// UnmarshalTree decodes a serialized listing. The tree's Hash is
// computed from data; it is not checked against any expected value.
func UnmarshalTree(data []byte) (*Tree, error) {
	var entries []TreeEntry
	if err := codec.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	return &Tree{Hash: HashTree(data), Entries: entries}, nil
}

// Lookup returns the entry with the given name, or false.
func (t *Tree) Lookup(name string) (TreeEntry, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool { return t.Entries[i].Name >= name })
	if i < len(t.Entries) && t.Entries[i].Name == name {
		return t.Entries[i], true
	}
	return TreeEntry{}, false
}
