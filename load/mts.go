// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// Mts loads serialized Mitsuba meshes. The container starts with a
// 0x041C ident and a version of at least 3, ends with a shape offset
// dictionary, and stores each shape as a zlib deflated stream. Version 4
// stores a zero terminated UTF-8 shape name right after the shape flags.

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
)

// Mitsuba mesh flags.
const (
	mtsVertexNormals = 0x0001
	mtsTexcoords     = 0x0002
	mtsVertexColors  = 0x0008
	mtsFaceNormals   = 0x0010
	mtsFloat         = 0x1000
	mtsDouble        = 0x2000
)

const mtsIdent = 0x041C

// Mts reads shape shapeIndex from a serialized Mitsuba container.
func Mts(data []byte, shapeIndex int) (*mesh.TriMesh, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("load: mts file too short")
	}
	ident := binary.LittleEndian.Uint16(data[0:2])
	version := binary.LittleEndian.Uint16(data[2:4])
	if ident != mtsIdent {
		return nil, fmt.Errorf("load: not a serialized mitsuba file (ident 0x%04X)", ident)
	}
	if version < 3 {
		return nil, fmt.Errorf("load: mts version %d < 3", version)
	}

	// Shape count lives in the last 4 bytes; offsets directly before.
	shapeCount := int(binary.LittleEndian.Uint32(data[len(data)-4:]))
	if shapeIndex < 0 || shapeIndex >= shapeCount {
		return nil, fmt.Errorf("load: mts shape index %d out of %d", shapeIndex, shapeCount)
	}

	var start, end uint64
	if version >= 4 {
		dict := len(data) - 4 - 8*shapeCount
		if dict < 0 {
			return nil, fmt.Errorf("load: mts dictionary truncated")
		}
		start = binary.LittleEndian.Uint64(data[dict+8*shapeIndex:])
		if shapeIndex == shapeCount-1 {
			end = uint64(dict)
		} else {
			end = binary.LittleEndian.Uint64(data[dict+8*(shapeIndex+1):])
		}
	} else {
		dict := len(data) - 4 - 4*shapeCount
		if dict < 0 {
			return nil, fmt.Errorf("load: mts dictionary truncated")
		}
		start = uint64(binary.LittleEndian.Uint32(data[dict+4*shapeIndex:]))
		if shapeIndex == shapeCount-1 {
			end = uint64(dict)
		} else {
			end = uint64(binary.LittleEndian.Uint32(data[dict+4*(shapeIndex+1):]))
		}
	}
	if start+4 > end || end > uint64(len(data)) {
		return nil, fmt.Errorf("load: mts shape range [%d, %d) invalid", start, end)
	}

	// Each shape repeats the 2x uint16 header before its deflate stream.
	body := data[start+4 : end]
	zr, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("load: mts inflate: %w", err)
	}
	defer zr.Close()
	return mtsShape(zr, version)
}

// mtsShape parses one inflated shape stream.
func mtsShape(r io.Reader, version uint16) (*mesh.TriMesh, error) {
	var flags uint32
	if err := binary.Read(r, binary.LittleEndian, &flags); err != nil {
		return nil, fmt.Errorf("load: mts flags: %w", err)
	}
	if version >= 4 {
		// Skip the zero terminated shape name.
		var c [1]byte
		for {
			if _, err := io.ReadFull(r, c[:]); err != nil {
				return nil, fmt.Errorf("load: mts name: %w", err)
			}
			if c[0] == 0 {
				break
			}
		}
	}

	var vertexCount, triCount uint64
	if err := binary.Read(r, binary.LittleEndian, &vertexCount); err != nil {
		return nil, fmt.Errorf("load: mts vertex count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &triCount); err != nil {
		return nil, fmt.Errorf("load: mts triangle count: %w", err)
	}
	if vertexCount == 0 || triCount == 0 {
		return nil, mesh.ErrEmptyMesh
	}

	out := &mesh.TriMesh{
		Vertices: make([]lin.V3, vertexCount),
		Indices:  make([]uint32, triCount*4),
	}

	double := flags&mtsDouble != 0
	readV3 := func() (lin.V3, error) {
		var v lin.V3
		if double {
			var d [3]float64
			if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
				return v, err
			}
			v = lin.V3{X: float32(d[0]), Y: float32(d[1]), Z: float32(d[2])}
		} else {
			var f [3]float32
			if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
				return v, err
			}
			v = lin.V3{X: f[0], Y: f[1], Z: f[2]}
		}
		return v, nil
	}

	for i := range out.Vertices {
		v, err := readV3()
		if err != nil {
			return nil, fmt.Errorf("load: mts vertices: %w", err)
		}
		out.Vertices[i] = v
	}
	if flags&mtsVertexNormals != 0 {
		out.Normals = make([]lin.V3, vertexCount)
		for i := range out.Normals {
			n, err := readV3()
			if err != nil {
				return nil, fmt.Errorf("load: mts normals: %w", err)
			}
			out.Normals[i] = n
		}
	}
	if flags&mtsTexcoords != 0 {
		out.Texcoords = make([]lin.V2, vertexCount)
		for i := range out.Texcoords {
			if double {
				var d [2]float64
				if err := binary.Read(r, binary.LittleEndian, &d); err != nil {
					return nil, fmt.Errorf("load: mts texcoords: %w", err)
				}
				out.Texcoords[i] = lin.V2{X: float32(d[0]), Y: float32(d[1])}
			} else {
				var f [2]float32
				if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
					return nil, fmt.Errorf("load: mts texcoords: %w", err)
				}
				out.Texcoords[i] = lin.V2{X: f[0], Y: f[1]}
			}
		}
	}
	if flags&mtsVertexColors != 0 {
		// Colors are not used; skip them.
		elem := 4
		if double {
			elem = 8
		}
		if _, err := io.CopyN(io.Discard, r, int64(vertexCount)*3*int64(elem)); err != nil {
			return nil, fmt.Errorf("load: mts colors: %w", err)
		}
	}

	// Indices are 64 bit only for gigantic meshes.
	if vertexCount > math.MaxUint32 {
		var tri [3]uint64
		for i := uint64(0); i < triCount; i++ {
			if err := binary.Read(r, binary.LittleEndian, &tri); err != nil {
				return nil, fmt.Errorf("load: mts indices: %w", err)
			}
			out.Indices[i*4+0] = uint32(tri[0])
			out.Indices[i*4+1] = uint32(tri[1])
			out.Indices[i*4+2] = uint32(tri[2])
		}
	} else {
		var tri [3]uint32
		for i := uint64(0); i < triCount; i++ {
			if err := binary.Read(r, binary.LittleEndian, &tri); err != nil {
				return nil, fmt.Errorf("load: mts indices: %w", err)
			}
			out.Indices[i*4+0] = tri[0]
			out.Indices[i*4+1] = tri[1]
			out.Indices[i*4+2] = tri[2]
		}
	}

	if len(out.Normals) == 0 {
		out.ComputeVertexNormals()
	} else {
		out.FixNormals()
	}
	if len(out.Texcoords) == 0 {
		out.MakeTexCoordsZero()
	}
	return out, nil
}
