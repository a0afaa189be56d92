// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides burrow's standard CBOR encoding configuration.
//
// CBOR is burrow's internal serialization format: tree listings in
// the object model, proxy-hash records in the local store, and the
// takeover snapshot exchanged during graceful restart all encode
// through this package.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Same logical data always produces identical bytes — which is
// what makes content hashes over serialized trees reproducible.
//
// For buffer-oriented operations (store records, hashes):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (handoff files, sockets):
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
package codec
