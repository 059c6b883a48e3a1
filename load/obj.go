// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

// Obj loads a Wavefront OBJ file into a TriMesh. A Wavefront OBJ file is
// a text representation of one or more 3D models. This reader supports
// triangle and quad faces with optional normals and texture coordinates
// and triangulates quads by fanning.
//    https://en.wikipedia.org/wiki/Wavefront_.obj_file#File_format

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
)

// Obj reads a wavefront object from r. When shapeIndex is negative all
// objects in the file are merged into one mesh; otherwise only the
// object with the given index is returned.
// The Reader r is expected to be opened and closed by the caller.
func Obj(r io.Reader, shapeIndex int) (*mesh.TriMesh, error) {
	// obj indices are global across objects; parse positions, normals
	// and texcoords into shared pools and faces per object.
	var verts []lin.V3
	var norms []lin.V3
	var coords []lin.V2
	type objFaces struct{ faces [][]string }
	objects := []*objFaces{{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		tokens := strings.Fields(line)
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "o", "g":
			if len(objects[len(objects)-1].faces) > 0 {
				objects = append(objects, &objFaces{})
			}
		case "v":
			v, err := parseFloats(tokens[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("load: bad vertex %q: %w", line, err)
			}
			verts = append(verts, lin.V3{X: v[0], Y: v[1], Z: v[2]})
		case "vn":
			v, err := parseFloats(tokens[1:], 3)
			if err != nil {
				return nil, fmt.Errorf("load: bad normal %q: %w", line, err)
			}
			norms = append(norms, lin.V3{X: v[0], Y: v[1], Z: v[2]})
		case "vt":
			v, err := parseFloats(tokens[1:], 2)
			if err != nil {
				return nil, fmt.Errorf("load: bad texture coord %q: %w", line, err)
			}
			coords = append(coords, lin.V2{X: v[0], Y: v[1]})
		case "f":
			if len(tokens) < 4 {
				return nil, fmt.Errorf("load: face with %d corners", len(tokens)-1)
			}
			objects[len(objects)-1].faces = append(objects[len(objects)-1].faces, tokens[1:])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load: obj read: %w", err)
	}

	out := &mesh.TriMesh{}
	// corner keys dedupe v/vt/vn triples into single output vertices.
	corner := map[string]uint32{}
	addCorner := func(spec string) (uint32, error) {
		if id, ok := corner[spec]; ok {
			return id, nil
		}
		vi, ti, ni, err := parseCorner(spec, len(verts), len(coords), len(norms))
		if err != nil {
			return 0, err
		}
		id := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, verts[vi])
		if ni >= 0 {
			out.Normals = append(out.Normals, norms[ni])
		}
		if ti >= 0 {
			out.Texcoords = append(out.Texcoords, coords[ti])
		}
		corner[spec] = id
		return id, nil
	}

	for oi, o := range objects {
		if shapeIndex >= 0 && oi != shapeIndex {
			continue
		}
		for _, face := range o.faces {
			ids := make([]uint32, 0, len(face))
			for _, spec := range face {
				id, err := addCorner(spec)
				if err != nil {
					return nil, err
				}
				ids = append(ids, id)
			}
			// fan triangulation for quads and beyond.
			for i := 2; i < len(ids); i++ {
				out.Indices = append(out.Indices, ids[0], ids[i-1], ids[i], 0)
			}
		}
	}
	if out.IsEmpty() {
		return nil, mesh.ErrEmptyMesh
	}
	// Mixed corner specs can leave partial attribute arrays; drop them
	// rather than serializing mismatched lengths.
	if len(out.Normals) != len(out.Vertices) {
		out.Normals = nil
		out.ComputeVertexNormals()
	}
	if len(out.Texcoords) != len(out.Vertices) {
		out.MakeTexCoordsZero()
	}
	return out, nil
}

// parseFloats converts n whitespace separated tokens.
func parseFloats(tokens []string, n int) ([]float32, error) {
	if len(tokens) < n {
		return nil, fmt.Errorf("want %d values, have %d", n, len(tokens))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseFloat(tokens[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(v)
	}
	return out, nil
}

// parseCorner splits a "v/vt/vn" face corner. OBJ indices are 1 based
// and may be negative (relative to the end).
func parseCorner(spec string, nv, nt, nn int) (vi, ti, ni int, err error) {
	ti, ni = -1, -1
	parts := strings.Split(spec, "/")
	resolve := func(s string, count int) (int, error) {
		id, err := strconv.Atoi(s)
		if err != nil {
			return 0, err
		}
		if id < 0 {
			id = count + id
		} else {
			id--
		}
		if id < 0 || id >= count {
			return 0, fmt.Errorf("index %s out of range (%d)", s, count)
		}
		return id, nil
	}

	if vi, err = resolve(parts[0], nv); err != nil {
		return 0, 0, 0, fmt.Errorf("load: face corner %q: %w", spec, err)
	}
	if len(parts) > 1 && parts[1] != "" {
		if ti, err = resolve(parts[1], nt); err != nil {
			return 0, 0, 0, fmt.Errorf("load: face corner %q: %w", spec, err)
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if ni, err = resolve(parts[2], nn); err != nil {
			return 0, 0, 0, fmt.Errorf("load: face corner %q: %w", spec, err)
		}
	}
	return vi, ti, ni, nil
}
