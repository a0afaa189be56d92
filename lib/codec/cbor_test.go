// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]int{"zebra": 1, "apple": 2, "mango": 3}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding produced different bytes:\n%x\n%x", first, again)
		}
	}
}

func TestRoundtripStruct(t *testing.T) {
	type record struct {
		Name  string `cbor:"1,keyasint"`
		Size  int64  `cbor:"2,keyasint"`
		Bytes []byte `cbor:"3,keyasint"`
	}

	in := record{Name: "pack-0001", Size: 4096, Bytes: []byte{0xde, 0xad}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var out record
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Name != in.Name || out.Size != in.Size || !bytes.Equal(out.Bytes, in.Bytes) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", out, in)
	}
}

func TestUnmarshalAnyMapType(t *testing.T) {
	data, err := Marshal(map[string]any{"outer": map[string]any{"inner": "value"}})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded type is %T, want map[string]any", decoded)
	}
	if _, ok := outer["outer"].(map[string]any); !ok {
		t.Errorf("nested map type is %T, want map[string]any", outer["outer"])
	}
}

func TestStreamEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	encoder := NewEncoder(&buf)
	for _, v := range []string{"one", "two", "three"} {
		if err := encoder.Encode(v); err != nil {
			t.Fatalf("Encode failed: %v", err)
		}
	}

	decoder := NewDecoder(&buf)
	for _, want := range []string{"one", "two", "three"} {
		var got string
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode failed: %v", err)
		}
		if got != want {
			t.Errorf("decoded %q, want %q", got, want)
		}
	}
}
