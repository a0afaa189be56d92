// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package fusechan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/burrow/lib/codec"
	"github.com/bureau-foundation/burrow/lib/fusekernel"
)

// TakeoverData is the negotiated session state a predecessor hands
// to its successor during graceful restart, alongside the stolen
// device descriptor itself (passed out-of-band, e.g. by fd
// inheritance). CBOR-encoded on the wire.
type TakeoverData struct {
	MountPath           string `cbor:"1,keyasint"`
	ProtoMajor          uint32 `cbor:"2,keyasint"`
	ProtoMinor          uint32 `cbor:"3,keyasint"`
	MaxReadahead        uint32 `cbor:"4,keyasint"`
	Flags               uint32 `cbor:"5,keyasint"`
	MaxBackground       uint16 `cbor:"6,keyasint"`
	CongestionThreshold uint16 `cbor:"7,keyasint"`
	MaxWrite            uint32 `cbor:"8,keyasint"`
}

// TakeoverSnapshot captures the channel's negotiated state for
// handoff. Call after StealDevice; fails if the session was never
// initialized.
func (c *Channel) TakeoverSnapshot() (TakeoverData, error) {
	connInfo := c.connInfo.Load()
	if connInfo == nil {
		return TakeoverData{}, fmt.Errorf("session not initialized, nothing to hand over")
	}
	return TakeoverData{
		MountPath:           c.mountPath,
		ProtoMajor:          connInfo.Major,
		ProtoMinor:          connInfo.Minor,
		MaxReadahead:        connInfo.MaxReadahead,
		Flags:               connInfo.Flags,
		MaxBackground:       connInfo.MaxBackground,
		CongestionThreshold: connInfo.CongestionThreshold,
		MaxWrite:            connInfo.MaxWrite,
	}, nil
}

// ConnInfo reconstructs the negotiated INIT reply for
// InitializeFromTakeover.
func (d TakeoverData) ConnInfo() fusekernel.InitOut {
	return fusekernel.InitOut{
		Major:               d.ProtoMajor,
		Minor:               d.ProtoMinor,
		MaxReadahead:        d.MaxReadahead,
		Flags:               d.Flags,
		MaxBackground:       d.MaxBackground,
		CongestionThreshold: d.CongestionThreshold,
		MaxWrite:            d.MaxWrite,
	}
}

// WriteTo serializes the snapshot.
func (d TakeoverData) WriteTo(w io.Writer) error {
	return codec.NewEncoder(w).Encode(d)
}

// ReadTakeoverData deserializes a snapshot written by WriteTo.
func ReadTakeoverData(r io.Reader) (TakeoverData, error) {
	var data TakeoverData
	if err := codec.NewDecoder(r).Decode(&data); err != nil {
		return TakeoverData{}, fmt.Errorf("decoding takeover data: %w", err)
	}
	return data, nil
}

// SaveTakeoverData writes the snapshot to path atomically.
func SaveTakeoverData(path string, data TakeoverData) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "takeover-*")
	if err != nil {
		return fmt.Errorf("creating takeover file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := data.WriteTo(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing takeover file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing takeover file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing takeover file: %w", err)
	}
	return nil
}

// LoadTakeoverData reads a snapshot saved by SaveTakeoverData and
// removes it, so a stale snapshot can never be adopted twice.
func LoadTakeoverData(path string) (TakeoverData, error) {
	file, err := os.Open(path)
	if err != nil {
		return TakeoverData{}, fmt.Errorf("opening takeover file: %w", err)
	}
	defer file.Close()

	data, err := ReadTakeoverData(file)
	if err != nil {
		return TakeoverData{}, err
	}
	if err := os.Remove(path); err != nil {
		return TakeoverData{}, fmt.Errorf("removing consumed takeover file: %w", err)
	}
	return data, nil
}
