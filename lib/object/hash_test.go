// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package object

import (
	"strings"
	"testing"
)

func TestHashDomainSeparation(t *testing.T) {
	data := []byte("same input")
	if HashBlob(data) == HashTree(data) {
		t.Error("blob and tree domains produced the same hash")
	}
}

func TestHashDeterminism(t *testing.T) {
	if HashBlob([]byte("a")) != HashBlob([]byte("a")) {
		t.Error("HashBlob is not deterministic")
	}
	if HashBlob([]byte("a")) == HashBlob([]byte("b")) {
		t.Error("different inputs collided")
	}
}

func TestParseHashRoundtrip(t *testing.T) {
	hash := HashBlob([]byte("roundtrip"))

	parsed, err := ParseHash(hash.String())
	if err != nil {
		t.Fatalf("ParseHash failed: %v", err)
	}
	if parsed != hash {
		t.Error("parsed hash differs")
	}

	if len(hash.String()) != 64 {
		t.Errorf("String() length %d, want 64", len(hash.String()))
	}
	if !strings.HasPrefix(hash.String(), hash.Short()) {
		t.Error("Short() is not a prefix of String()")
	}
}

func TestParseHashRejectsBadInput(t *testing.T) {
	if _, err := ParseHash("abc"); err == nil {
		t.Error("ParseHash accepted a short string")
	}
	if _, err := ParseHash(strings.Repeat("zz", 32)); err == nil {
		t.Error("ParseHash accepted non-hex input")
	}
}

func TestDeriveProxyHashStable(t *testing.T) {
	hash := HashBlob([]byte("object"))

	first := DeriveProxyHash(hash)
	second := DeriveProxyHash(hash)
	if first != second {
		t.Error("proxy derivation is not deterministic")
	}
	if first == ProxyHash(hash) {
		t.Error("proxy hash equals the object hash; domains are not separated")
	}
}
