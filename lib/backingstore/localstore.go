// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"context"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/burrow/lib/sqlitepool"
)

const localStoreSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   BLOB PRIMARY KEY,
	value BLOB NOT NULL
) WITHOUT ROWID;
`

// SQLiteStore is the persistent LocalStore implementation: a single
// key-value table in a WAL-mode SQLite database shared through a
// connection pool.
type SQLiteStore struct {
	pool *sqlitepool.Pool
}

// OpenSQLiteStore opens (creating if needed) the local store at the
// given database path.
func OpenSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, localStoreSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	return &SQLiteStore{pool: pool}, nil
}

// GetBatch returns one value per key, nil where absent. A query
// error fails the whole batch with no partial results.
func (s *SQLiteStore) GetBatch(ctx context.Context, keys [][]byte) ([][]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	values := make([][]byte, len(keys))
	for i, key := range keys {
		err := sqlitex.Execute(conn, "SELECT value FROM kv WHERE key = ?", &sqlitex.ExecOptions{
			Args: []any{key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, value)
				values[i] = value
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("local store get: %w", err)
		}
	}
	return values, nil
}

// PutBatch stores every pair in one transaction, or none of them.
func (s *SQLiteStore) PutBatch(ctx context.Context, keys, values [][]byte) error {
	if len(keys) != len(values) {
		return fmt.Errorf("local store put: %d keys, %d values", len(keys), len(values))
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	endTx, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("local store put: %w", err)
	}
	defer endTx(&err)

	for i, key := range keys {
		err = sqlitex.Execute(conn, "INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", &sqlitex.ExecOptions{
			Args: []any{key, values[i]},
		})
		if err != nil {
			err = fmt.Errorf("local store put: %w", err)
			return err
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

var _ LocalStore = (*SQLiteStore)(nil)
