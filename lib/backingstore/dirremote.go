// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/burrow/lib/object"
)

// DirRemote is a RemoteImporter backed by an exported object
// directory — the "file://" transport. Blobs live under
// blobs/<proxy-hex>, trees under trees/<hash-hex> as canonical CBOR
// listings. Useful for seeded deployments and tests; a network
// transport implements the same interface.
type DirRemote struct {
	root string
}

// NewDirRemote opens an export directory.
func NewDirRemote(root string) (*DirRemote, error) {
	for _, dir := range []string{
		filepath.Join(root, "blobs"),
		filepath.Join(root, "trees"),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating export directory %s: %w", dir, err)
		}
	}
	return &DirRemote{root: root}, nil
}

// FetchBlob reads a blob by proxy hash. The content hash is
// recomputed from the bytes read, so a caller comparing it against
// the identity it asked for detects corruption.
func (r *DirRemote) FetchBlob(ctx context.Context, proxy object.ProxyHash) (*object.Blob, error) {
	data, err := os.ReadFile(filepath.Join(r.root, "blobs", proxy.String()))
	if err != nil {
		return nil, fmt.Errorf("fetching blob %s: %w", proxy, err)
	}
	return object.NewBlob(data), nil
}

// FetchTree reads a tree listing and verifies its hash.
func (r *DirRemote) FetchTree(ctx context.Context, hash object.Hash) (*object.Tree, error) {
	data, err := os.ReadFile(filepath.Join(r.root, "trees", hash.String()))
	if err != nil {
		return nil, fmt.Errorf("fetching tree %s: %w", hash.Short(), err)
	}
	tree, err := object.UnmarshalTree(data)
	if err != nil {
		return nil, fmt.Errorf("fetching tree %s: %w", hash.Short(), err)
	}
	if tree.Hash != hash {
		return nil, fmt.Errorf("tree %s failed hash verification (got %s)", hash.Short(), tree.Hash.Short())
	}
	return tree, nil
}

// Prefetch verifies the requested blobs are present in the export.
// Reads through this remote land in the datapack via the normal
// fetch path, so presence is all a warm-up needs to establish.
func (r *DirRemote) Prefetch(ctx context.Context, hashes []object.Hash) error {
	for _, hash := range hashes {
		proxy := object.DeriveProxyHash(hash)
		if _, err := os.Stat(filepath.Join(r.root, "blobs", proxy.String())); err != nil {
			return fmt.Errorf("prefetch: blob %s: %w", hash.Short(), err)
		}
	}
	return nil
}

// ExportBlob writes a blob into the directory under its derived
// proxy hash. Used by seeding tools and tests.
func (r *DirRemote) ExportBlob(blob *object.Blob) (object.ProxyHash, error) {
	proxy := object.DeriveProxyHash(blob.Hash)
	path := filepath.Join(r.root, "blobs", proxy.String())
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return object.ProxyHash{}, fmt.Errorf("exporting blob %s: %w", blob.Hash.Short(), err)
	}
	return proxy, nil
}

// ExportTree writes a tree listing into the directory.
func (r *DirRemote) ExportTree(tree *object.Tree) error {
	data, err := tree.Marshal()
	if err != nil {
		return fmt.Errorf("exporting tree %s: %w", tree.Hash.Short(), err)
	}
	path := filepath.Join(r.root, "trees", tree.Hash.String())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("exporting tree %s: %w", tree.Hash.Short(), err)
	}
	return nil
}

var _ RemoteImporter = (*DirRemote)(nil)
