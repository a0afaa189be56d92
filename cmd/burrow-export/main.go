// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// burrow-export walks a directory and publishes it as a
// content-addressed object export: one blob per file, one tree per
// directory, rooted at a single tree hash. The export directory is
// what burrow-daemon serves via --remote-dir, and the printed root
// hash is what it mounts via --root.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bureau-foundation/burrow/lib/backingstore"
	"github.com/bureau-foundation/burrow/lib/object"
	"github.com/bureau-foundation/burrow/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		showVersion bool
		sourceDir   string
		exportDir   string
	)
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.StringVar(&sourceDir, "source", "", "directory to export (required)")
	flag.StringVar(&exportDir, "export", "", "object export directory to write (required)")
	flag.Parse()

	if showVersion {
		fmt.Printf("burrow-export %s\n", version.Info())
		return nil
	}
	if sourceDir == "" || exportDir == "" {
		return fmt.Errorf("--source and --export are required")
	}

	remote, err := backingstore.NewDirRemote(exportDir)
	if err != nil {
		return err
	}

	root, err := exportTree(remote, sourceDir)
	if err != nil {
		return err
	}
	fmt.Println(root.Hash)
	return nil
}

// exportTree publishes dir recursively and returns its tree.
func exportTree(remote *backingstore.DirRemote, dir string) (*object.Tree, error) {
	listing, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	sort.Slice(listing, func(i, j int) bool { return listing[i].Name() < listing[j].Name() })

	var entries []object.TreeEntry
	for _, item := range listing {
		path := filepath.Join(dir, item.Name())

		switch {
		case item.IsDir():
			subtree, err := exportTree(remote, path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, object.TreeEntry{
				Name: item.Name(),
				Type: object.EntryTree,
				Hash: subtree.Hash,
			})

		case item.Type()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return nil, err
			}
			blob := object.NewBlob([]byte(target))
			if _, err := remote.ExportBlob(blob); err != nil {
				return nil, err
			}
			entries = append(entries, object.TreeEntry{
				Name: item.Name(),
				Type: object.EntrySymlink,
				Hash: blob.Hash,
				Size: blob.Size(),
			})

		case item.Type().IsRegular():
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			info, err := item.Info()
			if err != nil {
				return nil, err
			}
			entryType := object.EntryBlob
			if info.Mode()&0o111 != 0 {
				entryType = object.EntryExecutable
			}
			blob := object.NewBlob(data)
			if _, err := remote.ExportBlob(blob); err != nil {
				return nil, err
			}
			entries = append(entries, object.TreeEntry{
				Name: item.Name(),
				Type: entryType,
				Hash: blob.Hash,
				Size: blob.Size(),
			})

		default:
			// Sockets, devices, and pipes have no object form.
			fmt.Fprintf(os.Stderr, "skipping special file %s\n", path)
		}
	}

	tree, err := object.NewTree(entries)
	if err != nil {
		return nil, err
	}
	if err := remote.ExportTree(tree); err != nil {
		return nil, err
	}
	return tree, nil
}
