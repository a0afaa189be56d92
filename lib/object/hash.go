// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest. All object hashes (blob, tree)
// are this size.
type Hash [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation ensures the same input bytes produce different hashes
// in different contexts.
type domainKey [32]byte

// Domain separation keys. These are protocol constants — changing
// them invalidates every hash in that domain. The byte values are
// the ASCII encoding of the domain name, zero-padded to 32 bytes, so
// the keys are inspectable in hex dumps.
var (
	blobDomainKey = domainKey{
		'b', 'u', 'r', 'r', 'o', 'w', '.', 'o', 'b', 'j', 'e', 'c', 't', '.',
		'b', 'l', 'o', 'b', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	treeDomainKey = domainKey{
		'b', 'u', 'r', 'r', 'o', 'w', '.', 'o', 'b', 'j', 'e', 'c', 't', '.',
		't', 'r', 'e', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	proxyDomainKey = domainKey{
		'b', 'u', 'r', 'r', 'o', 'w', '.', 'o', 'b', 'j', 'e', 'c', 't', '.',
		'p', 'r', 'o', 'x', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// HashBlob computes the blob-domain BLAKE3 keyed hash of the given
// content. This is the object identity used throughout the daemon.
func HashBlob(data []byte) Hash {
	return keyedHash(blobDomainKey, data)
}

// HashTree computes the tree-domain BLAKE3 keyed hash of a serialized
// tree listing.
func HashTree(data []byte) Hash {
	return keyedHash(treeDomainKey, data)
}

func keyedHash(key domainKey, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		// NewKeyed fails only on a key length other than 32 bytes.
		panic("object: invalid domain key: " + err.Error())
	}
	hasher.Write(data)

	var digest Hash
	hasher.Digest().Read(digest[:])
	return digest
}

// String returns the full lowercase hex encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, for log messages.
func (h Hash) Short() string {
	return hex.EncodeToString(h[:6])
}

// ParseHash decodes a 64-character hex string into a Hash.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != len(h)*2 {
		return Hash{}, fmt.Errorf("hash must be %d hex characters, got %d", len(h)*2, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("decoding hash %q: %w", s, err)
	}
	return h, nil
}

// ProxyHash is the source-control-native identity of an object: the
// key the remote importer and the datapack cache are addressed by.
// It is derived from the burrow object hash, or looked up from the
// local store when the mapping was recorded by a previous import.
type ProxyHash [32]byte

// DeriveProxyHash computes the proxy-domain keyed hash of an object
// hash. Used on the blob fast path, where no store round-trip has
// happened yet.
func DeriveProxyHash(h Hash) ProxyHash {
	digest := keyedHash(proxyDomainKey, h[:])
	return ProxyHash(digest)
}

// String returns the full lowercase hex encoding of the proxy hash.
func (p ProxyHash) String() string {
	return hex.EncodeToString(p[:])
}
