// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenedb

// serialize.go provides the little-endian writer used to fill table
// records, and the matching read-side views the CPU kernels use to walk
// serialized blobs without copying.

import (
	"encoding/binary"
	"io"
	"math"
	"unsafe"

	"github.com/ignis-render/ignis/math/lin"
)

// Serializer writes little-endian scalars into a table record. All
// methods append; alignment is relative to the record start handed out
// by AddLookup/AddEntry.
type Serializer struct {
	w       io.Writer
	written int
	scratch [8]byte
}

// NewSerializer wraps a record appender.
func NewSerializer(w io.Writer) *Serializer { return &Serializer{w: w} }

// Written returns the number of bytes written so far.
func (s *Serializer) Written() int { return s.written }

// WriteU32 writes one little-endian uint32.
func (s *Serializer) WriteU32(v uint32) {
	binary.LittleEndian.PutUint32(s.scratch[:4], v)
	s.write(s.scratch[:4])
}

// WriteI32 writes one little-endian int32.
func (s *Serializer) WriteI32(v int32) { s.WriteU32(uint32(v)) }

// WriteU64 writes one little-endian uint64.
func (s *Serializer) WriteU64(v uint64) {
	binary.LittleEndian.PutUint64(s.scratch[:8], v)
	s.write(s.scratch[:8])
}

// WriteF32 writes one little-endian float32.
func (s *Serializer) WriteF32(v float32) { s.WriteU32(math.Float32bits(v)) }

// WriteV3 writes the three vector elements.
func (s *Serializer) WriteV3(v lin.V3) {
	s.WriteF32(v.X)
	s.WriteF32(v.Y)
	s.WriteF32(v.Z)
}

// WriteV3Pad writes the vector followed by a zero pad to a 16 byte stride.
func (s *Serializer) WriteV3Pad(v lin.V3) {
	s.WriteV3(v)
	s.WriteF32(0)
}

// WriteV2 writes the two vector elements.
func (s *Serializer) WriteV2(v lin.V2) {
	s.WriteF32(v.X)
	s.WriteF32(v.Y)
}

// WriteBytes writes raw bytes.
func (s *Serializer) WriteBytes(p []byte) { s.write(p) }

// Align pads with zeros until the written size is a multiple of n.
func (s *Serializer) Align(n int) {
	if n <= 0 {
		return
	}
	if defect := s.written % n; defect != 0 {
		pad := make([]byte, n-defect)
		s.write(pad)
	}
}

func (s *Serializer) write(p []byte) {
	n, err := s.w.Write(p)
	if err != nil {
		// Table appenders never fail; any other writer misuse is a
		// programmer error.
		panic("scenedb: serializer write failed: " + err.Error())
	}
	s.written += n
}

// F32View reinterprets a byte blob as float32s. The blob must be 4 byte
// sized; blobs are always built by Serializer so this holds.
func F32View(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// U32View reinterprets a byte blob as uint32s.
func U32View(data []byte) []uint32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}

// I32View reinterprets a byte blob as int32s.
func I32View(data []byte) []int32 {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&data[0])), len(data)/4)
}
