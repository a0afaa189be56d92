// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package backingstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/burrow/lib/object"
)

// CompressionTag identifies the compression algorithm of a datapack
// entry. Tags are stored in entry headers (1 byte each); the values
// are format constants.
type CompressionTag uint8

const (
	// CompressionNone stores data uncompressed. Used for content
	// that is already compressed (packfiles, images).
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is the fast default for binary content.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd trades CPU for ratio; used for text-like
	// content.
	CompressionZstd CompressionTag = 2
)

// String returns the human-readable name of a compression tag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// datapackMagic opens every entry file.
var datapackMagic = [4]byte{'b', 'p', 'k', '1'}

// entryHeaderSize is the fixed header of an entry file: magic,
// compression tag, three reserved bytes, uncompressed length, and
// the blob-domain hash of the uncompressed content.
const entryHeaderSize = 4 + 1 + 3 + 8 + 32

// Datapack is the local blob cache tier: one file per blob, keyed by
// proxy hash and sharded across 256 directories by the first key
// byte. Reads verify content integrity against the stored hash;
// writes go through a temp file and rename so a crash never leaves
// a partial entry visible.
//
// The datapack is safe for concurrent use. Concurrent writes of the
// same entry are idempotent (same content, same key).
type Datapack struct {
	root string

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
}

// NewDatapack opens (creating if needed) a datapack rooted at dir.
func NewDatapack(dir string) (*Datapack, error) {
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("creating datapack directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Datapack{root: dir, zstdEncoder: encoder, zstdDecoder: decoder}, nil
}

func (d *Datapack) entryPath(proxy object.ProxyHash) string {
	hex := proxy.String()
	return filepath.Join(d.root, hex[:2], hex)
}

// GetLocal returns the cached blob for (hash, proxy), or false on a
// miss. Corrupt entries are removed and reported as misses; the
// remote tier will repopulate them.
func (d *Datapack) GetLocal(hash object.Hash, proxy object.ProxyHash) (*object.Blob, bool) {
	path := d.entryPath(proxy)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	data, err := d.decodeEntry(raw)
	if err != nil || object.HashBlob(data) != hash {
		os.Remove(path)
		return nil, false
	}
	return &object.Blob{Hash: hash, Data: data}, true
}

// Put stores a blob under its proxy hash. tag selects the on-disk
// compression.
func (d *Datapack) Put(proxy object.ProxyHash, blob *object.Blob, tag CompressionTag) error {
	compressed, tag, err := d.compress(blob.Data, tag)
	if err != nil {
		return err
	}

	header := make([]byte, 0, entryHeaderSize)
	header = append(header, datapackMagic[:]...)
	header = append(header, byte(tag), 0, 0, 0)
	header = binary.LittleEndian.AppendUint64(header, uint64(len(blob.Data)))
	header = append(header, blob.Hash[:]...)

	tmp, err := os.CreateTemp(filepath.Join(d.root, "tmp"), "entry-*")
	if err != nil {
		return fmt.Errorf("creating datapack temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing datapack entry: %w", err)
	}
	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return fmt.Errorf("writing datapack entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing datapack entry: %w", err)
	}

	path := d.entryPath(proxy)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating datapack shard: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing datapack entry: %w", err)
	}
	return nil
}

// compress returns the entry body and the tag actually used.
// Incompressible lz4 input falls back to the none tag.
func (d *Datapack) compress(data []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	switch tag {
	case CompressionNone:
		return data, tag, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, tag, fmt.Errorf("lz4 compression: %w", err)
		}
		if n == 0 {
			return data, CompressionNone, nil
		}
		return buf[:n], tag, nil
	case CompressionZstd:
		return d.zstdEncoder.EncodeAll(data, nil), tag, nil
	default:
		return nil, tag, fmt.Errorf("unknown compression tag %d", tag)
	}
}

func (d *Datapack) decodeEntry(raw []byte) ([]byte, error) {
	if len(raw) < entryHeaderSize {
		return nil, fmt.Errorf("datapack entry of %d bytes is shorter than the %d-byte header", len(raw), entryHeaderSize)
	}
	if !bytes.Equal(raw[:4], datapackMagic[:]) {
		return nil, fmt.Errorf("bad datapack magic %x", raw[:4])
	}
	tag := CompressionTag(raw[4])
	size := binary.LittleEndian.Uint64(raw[8:16])
	body := raw[entryHeaderSize:]

	switch tag {
	case CompressionNone:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("datapack entry length %d disagrees with header %d", len(body), size)
		}
		return body, nil
	case CompressionLZ4:
		data := make([]byte, size)
		n, err := lz4.UncompressBlock(body, data)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression: %w", err)
		}
		if uint64(n) != size {
			return nil, fmt.Errorf("lz4 decompressed %d bytes, header says %d", n, size)
		}
		return data, nil
	case CompressionZstd:
		data, err := d.zstdDecoder.DecodeAll(body, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompression: %w", err)
		}
		if uint64(len(data)) != size {
			return nil, fmt.Errorf("zstd decompressed %d bytes, header says %d", len(data), size)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unknown compression tag %d", tag)
	}
}

// Close releases the compressor state. The datapack must not be used
// afterwards.
func (d *Datapack) Close() error {
	d.zstdEncoder.Close()
	d.zstdDecoder.Close()
	return nil
}

var _ io.Closer = (*Datapack)(nil)
