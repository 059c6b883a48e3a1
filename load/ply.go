// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// Ply loads a Stanford polygon file. ASCII and binary little endian
// variants are supported; properties beyond position, normal and uv are
// skipped. Faces with more than three corners are fanned into triangles.

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
)

type plyProperty struct {
	name      string
	dtype     string // float, double, uchar, int, uint, ...
	list      bool
	countType string
}

type plyElement struct {
	name  string
	count int
	props []plyProperty
}

// Ply reads a polygon file from r.
func Ply(r io.Reader) (*mesh.TriMesh, error) {
	br := bufio.NewReader(r)

	magic, err := br.ReadString('\n')
	if err != nil || strings.TrimSpace(magic) != "ply" {
		return nil, fmt.Errorf("load: not a ply file")
	}

	format := ""
	var elements []*plyElement
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("load: ply header: %w", err)
		}
		tokens := strings.Fields(strings.TrimSpace(line))
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "comment", "obj_info":
		case "format":
			if len(tokens) < 2 {
				return nil, fmt.Errorf("load: ply bad format line")
			}
			format = tokens[1]
		case "element":
			if len(tokens) < 3 {
				return nil, fmt.Errorf("load: ply bad element line")
			}
			n, err := strconv.Atoi(tokens[2])
			if err != nil {
				return nil, fmt.Errorf("load: ply element count: %w", err)
			}
			elements = append(elements, &plyElement{name: tokens[1], count: n})
		case "property":
			if len(elements) == 0 {
				return nil, fmt.Errorf("load: ply property before element")
			}
			el := elements[len(elements)-1]
			if tokens[1] == "list" {
				if len(tokens) < 5 {
					return nil, fmt.Errorf("load: ply bad list property")
				}
				el.props = append(el.props, plyProperty{
					name: tokens[4], dtype: tokens[3], list: true, countType: tokens[2]})
			} else {
				if len(tokens) < 3 {
					return nil, fmt.Errorf("load: ply bad property")
				}
				el.props = append(el.props, plyProperty{name: tokens[2], dtype: tokens[1]})
			}
		case "end_header":
			goto body
		default:
			return nil, fmt.Errorf("load: ply unknown header token %q", tokens[0])
		}
	}

body:
	switch format {
	case "ascii":
		return plyBody(elements, &asciiPlyReader{br: br})
	case "binary_little_endian":
		return plyBody(elements, &binaryPlyReader{br: br})
	default:
		return nil, fmt.Errorf("load: ply format %q not supported", format)
	}
}

// plyValueReader abstracts the two body encodings.
type plyValueReader interface {
	value(dtype string) (float64, error)
}

type asciiPlyReader struct {
	br     *bufio.Reader
	tokens []string
}

func (a *asciiPlyReader) value(string) (float64, error) {
	for len(a.tokens) == 0 {
		line, err := a.br.ReadString('\n')
		if err != nil && len(strings.TrimSpace(line)) == 0 {
			return 0, err
		}
		a.tokens = strings.Fields(strings.TrimSpace(line))
	}
	tok := a.tokens[0]
	a.tokens = a.tokens[1:]
	return strconv.ParseFloat(tok, 64)
}

type binaryPlyReader struct {
	br *bufio.Reader
}

func (b *binaryPlyReader) value(dtype string) (float64, error) {
	size := plyTypeSize(dtype)
	var buf [8]byte
	if _, err := io.ReadFull(b.br, buf[:size]); err != nil {
		return 0, err
	}
	switch dtype {
	case "char", "int8":
		return float64(int8(buf[0])), nil
	case "uchar", "uint8":
		return float64(buf[0]), nil
	case "short", "int16":
		return float64(int16(binary.LittleEndian.Uint16(buf[:2]))), nil
	case "ushort", "uint16":
		return float64(binary.LittleEndian.Uint16(buf[:2])), nil
	case "int", "int32":
		return float64(int32(binary.LittleEndian.Uint32(buf[:4]))), nil
	case "uint", "uint32":
		return float64(binary.LittleEndian.Uint32(buf[:4])), nil
	case "float", "float32":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[:4]))), nil
	case "double", "float64":
		return math.Float64frombits(binary.LittleEndian.Uint64(buf[:8])), nil
	}
	return 0, fmt.Errorf("load: ply type %q not supported", dtype)
}

func plyTypeSize(dtype string) int {
	switch dtype {
	case "char", "int8", "uchar", "uint8":
		return 1
	case "short", "int16", "ushort", "uint16":
		return 2
	case "double", "float64":
		return 8
	default:
		return 4
	}
}

// plyBody walks the declared elements and collects vertex and face data.
func plyBody(elements []*plyElement, vr plyValueReader) (*mesh.TriMesh, error) {
	out := &mesh.TriMesh{}
	hasNormals, hasUV := false, false

	for _, el := range elements {
		switch el.name {
		case "vertex":
			for _, p := range el.props {
				switch p.name {
				case "nx":
					hasNormals = true
				case "u", "s":
					hasUV = true
				}
			}
			for i := 0; i < el.count; i++ {
				var v, n lin.V3
				var uv lin.V2
				for _, p := range el.props {
					val, err := vr.value(p.dtype)
					if err != nil {
						return nil, fmt.Errorf("load: ply vertex %d: %w", i, err)
					}
					f := float32(val)
					switch p.name {
					case "x":
						v.X = f
					case "y":
						v.Y = f
					case "z":
						v.Z = f
					case "nx":
						n.X = f
					case "ny":
						n.Y = f
					case "nz":
						n.Z = f
					case "u", "s":
						uv.X = f
					case "v", "t":
						uv.Y = f
					}
				}
				out.Vertices = append(out.Vertices, v)
				if hasNormals {
					out.Normals = append(out.Normals, n)
				}
				if hasUV {
					out.Texcoords = append(out.Texcoords, uv)
				}
			}
		case "face":
			for i := 0; i < el.count; i++ {
				for _, p := range el.props {
					if !p.list {
						if _, err := vr.value(p.dtype); err != nil {
							return nil, fmt.Errorf("load: ply face %d: %w", i, err)
						}
						continue
					}
					cnt, err := vr.value(p.countType)
					if err != nil {
						return nil, fmt.Errorf("load: ply face %d: %w", i, err)
					}
					ids := make([]uint32, int(cnt))
					for j := range ids {
						val, err := vr.value(p.dtype)
						if err != nil {
							return nil, fmt.Errorf("load: ply face %d: %w", i, err)
						}
						ids[j] = uint32(val)
					}
					if p.name != "vertex_indices" && p.name != "vertex_index" {
						continue
					}
					for j := 2; j < len(ids); j++ {
						out.Indices = append(out.Indices, ids[0], ids[j-1], ids[j], 0)
					}
				}
			}
		default:
			// skip unknown elements value by value.
			for i := 0; i < el.count; i++ {
				for _, p := range el.props {
					if p.list {
						cnt, err := vr.value(p.countType)
						if err != nil {
							return nil, err
						}
						for j := 0; j < int(cnt); j++ {
							if _, err := vr.value(p.dtype); err != nil {
								return nil, err
							}
						}
					} else if _, err := vr.value(p.dtype); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	if out.IsEmpty() {
		return nil, mesh.ErrEmptyMesh
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
