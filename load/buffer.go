// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// buffer.go reads and writes LZ4 compressed buffer records used for
// cached typed arrays. A record is {u32 in_size, u32 out_size} followed
// by out_size bytes of LZ4 block data; in_size is the decompressed
// length in bytes.

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// WriteLZ4Buffer compresses data and writes one buffer record to w.
func WriteLZ4Buffer(w io.Writer, data []byte) error {
	bound := lz4.CompressBlockBound(len(data))
	dst := make([]byte, bound)
	var c lz4.Compressor
	n, err := c.CompressBlock(data, dst)
	if err != nil {
		return fmt.Errorf("load: lz4 compress: %w", err)
	}
	stored := dst[:n]
	if n == 0 || n >= len(data) {
		// Incompressible data is stored raw; in_size == out_size marks it.
		stored = data
	}

	var header [8]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(len(data)))
	binary.LittleEndian.PutUint32(header[4:8], uint32(len(stored)))
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("load: lz4 header: %w", err)
	}
	if _, err := w.Write(stored); err != nil {
		return fmt.Errorf("load: lz4 payload: %w", err)
	}
	return nil
}

// ReadLZ4Buffer reads one buffer record from r and returns the
// decompressed bytes.
func ReadLZ4Buffer(r io.Reader) ([]byte, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("load: lz4 header: %w", err)
	}
	inSize := binary.LittleEndian.Uint32(header[0:4])
	outSize := binary.LittleEndian.Uint32(header[4:8])

	payload := make([]byte, outSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("load: lz4 payload: %w", err)
	}
	if inSize == outSize {
		return payload, nil
	}

	out := make([]byte, inSize)
	n, err := lz4.UncompressBlock(payload, out)
	if err != nil {
		return nil, fmt.Errorf("load: lz4 decompress: %w", err)
	}
	if uint32(n) != inSize {
		return nil, fmt.Errorf("load: lz4 decompressed %d bytes, want %d", n, inSize)
	}
	return out, nil
}

// SkipLZ4Buffer advances r past one buffer record without decompressing.
func SkipLZ4Buffer(r io.Reader) error {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return fmt.Errorf("load: lz4 header: %w", err)
	}
	outSize := binary.LittleEndian.Uint32(header[4:8])
	if _, err := io.CopyN(io.Discard, r, int64(outSize)); err != nil {
		return fmt.Errorf("load: lz4 skip: %w", err)
	}
	return nil
}
