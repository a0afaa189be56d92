// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "localstore.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreBatchRoundtrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	keys := [][]byte{[]byte("alpha"), []byte("beta")}
	values := [][]byte{[]byte("one"), []byte("two")}
	if err := store.PutBatch(ctx, keys, values); err != nil {
		t.Fatalf("PutBatch failed: %v", err)
	}

	got, err := store.GetBatch(ctx, [][]byte{[]byte("beta"), []byte("missing"), []byte("alpha")})
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("GetBatch returned %d values", len(got))
	}
	if !bytes.Equal(got[0], []byte("two")) {
		t.Errorf("got[0] = %q", got[0])
	}
	if got[1] != nil {
		t.Errorf("missing key returned %q, want nil", got[1])
	}
	if !bytes.Equal(got[2], []byte("one")) {
		t.Errorf("got[2] = %q", got[2])
	}
}

func TestSQLiteStorePutBatchOverwrites(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	key := [][]byte{[]byte("k")}
	if err := store.PutBatch(ctx, key, [][]byte{[]byte("first")}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutBatch(ctx, key, [][]byte{[]byte("second")}); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBatch(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got[0], []byte("second")) {
		t.Errorf("value = %q, want \"second\"", got[0])
	}
}

func TestSQLiteStorePutBatchLengthMismatch(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.PutBatch(context.Background(), [][]byte{[]byte("k")}, nil)
	if err == nil {
		t.Error("PutBatch accepted mismatched key/value lengths")
	}
}
