// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/burrow/lib/codec"
	"github.com/bureau-foundation/burrow/lib/object"
)

// proxyKeyPrefix namespaces proxy-hash records in the local store.
const proxyKeyPrefix = "proxy/"

// proxyRecord is the stored mapping from an object hash to its
// source-control-native identity.
type proxyRecord struct {
	Proxy object.ProxyHash `cbor:"1,keyasint"`
}

func proxyKey(hash object.Hash) []byte {
	key := make([]byte, 0, len(proxyKeyPrefix)+len(hash))
	key = append(key, proxyKeyPrefix...)
	return append(key, hash[:]...)
}

// resolveProxyBatch translates a batch of object hashes into proxy
// hashes with a single local-store round trip. Hashes with no stored
// record fall back to derivation, and the derived mappings are
// written back so the next batch hits the store. Failure is
// wholesale: on error no hash is resolved.
func resolveProxyBatch(ctx context.Context, store LocalStore, logger *slog.Logger, hashes []object.Hash) ([]object.ProxyHash, error) {
	keys := make([][]byte, len(hashes))
	for i, hash := range hashes {
		keys[i] = proxyKey(hash)
	}

	values, err := store.GetBatch(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("proxy hash batch lookup: %w", err)
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("proxy hash batch lookup returned %d values for %d keys", len(values), len(keys))
	}

	proxies := make([]object.ProxyHash, len(hashes))
	var missingKeys, missingValues [][]byte
	for i, value := range values {
		if value == nil {
			proxies[i] = object.DeriveProxyHash(hashes[i])
			record, err := codec.Marshal(proxyRecord{Proxy: proxies[i]})
			if err != nil {
				return nil, fmt.Errorf("encoding proxy record: %w", err)
			}
			missingKeys = append(missingKeys, keys[i])
			missingValues = append(missingValues, record)
			continue
		}

		var record proxyRecord
		if err := codec.Unmarshal(value, &record); err != nil {
			return nil, fmt.Errorf("decoding proxy record for %s: %w", hashes[i].Short(), err)
		}
		proxies[i] = record.Proxy
	}

	if len(missingKeys) > 0 {
		// Write-back is best-effort; a failure costs a re-derivation
		// on the next lookup, not correctness.
		if err := store.PutBatch(ctx, missingKeys, missingValues); err != nil {
			logger.Warn("recording derived proxy hashes failed",
				"count", len(missingKeys),
				"error", err,
			)
		}
	}
	return proxies, nil
}
