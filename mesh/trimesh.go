// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package mesh holds triangle mesh data in the layout the loader
// serializes and the kernels consume. A mesh is created by a shape
// provider, massaged (normals fixed, transformed, bounded) and then
// handed to the scene database. Analytic plane and sphere stand-ins are
// detected here so techniques can sample those shapes exactly.
package mesh

import (
	"errors"

	"github.com/ignis-render/ignis/math/lin"
)

// ErrEmptyMesh is returned when a provider produced no usable geometry.
var ErrEmptyMesh = errors.New("mesh: empty mesh")

// TriMesh is an indexed triangle mesh. The index buffer is laid out as
// quads of four values per face: three vertex indices plus the material
// slot carried from the source file. Normals and texcoords are either
// empty or sized like the vertices.
type TriMesh struct {
	Vertices  []lin.V3
	Normals   []lin.V3
	Texcoords []lin.V2
	Indices   []uint32 // i0, i1, i2, mat per face
}

// FaceCount returns the number of triangles.
func (m *TriMesh) FaceCount() int { return len(m.Indices) / 4 }

// IsEmpty returns true when the mesh carries no renderable geometry.
func (m *TriMesh) IsEmpty() bool { return len(m.Vertices) == 0 || len(m.Indices) == 0 }

// Validate panics when the structural invariants do not hold. These are
// programmer errors: providers must only ever emit well formed meshes.
func (m *TriMesh) Validate() {
	if len(m.Indices)%4 != 0 {
		panic("mesh: index buffer length must be a multiple of 4")
	}
	if len(m.Normals) != 0 && len(m.Normals) != len(m.Vertices) {
		panic("mesh: normals must be empty or match vertex count")
	}
	if len(m.Texcoords) != 0 && len(m.Texcoords) != len(m.Vertices) {
		panic("mesh: texcoords must be empty or match vertex count")
	}
}

// triangleNormal returns the unnormalized face normal.
func triangleNormal(v0, v1, v2 lin.V3) lin.V3 {
	return v1.Sub(v0).Cross(v2.Sub(v0))
}

// Face returns the three corner positions of face i.
func (m *TriMesh) Face(i int) (v0, v1, v2 lin.V3) {
	return m.Vertices[m.Indices[i*4]],
		m.Vertices[m.Indices[i*4+1]],
		m.Vertices[m.Indices[i*4+2]]
}

// FixNormals renormalizes the vertex normals, replacing degenerate or
// NaN entries with the unit Y axis. Returns true if any were bad.
func (m *TriMesh) FixNormals() (hadBad bool) {
	for i, n := range m.Normals {
		len2 := n.LenSqr()
		if len2 <= lin.Epsilon || lin.IsNaN(len2) {
			hadBad = true
			m.Normals[i] = lin.UnitY()
		} else {
			m.Normals[i] = n.Scale(1 / lin.Sqrt(len2))
		}
	}
	return hadBad
}

// FlipNormals changes the orientation of every triangle and negates the
// vertex normals.
func (m *TriMesh) FlipNormals() {
	for i := 0; i < len(m.Indices); i += 4 {
		m.Indices[i+1], m.Indices[i+2] = m.Indices[i+2], m.Indices[i+1]
	}
	for i, n := range m.Normals {
		m.Normals[i] = n.Neg()
	}
}

// ComputeVertexNormals rebuilds smooth vertex normals by summing the unit
// normals of the adjacent faces; every face counts equally, whatever its
// area.
func (m *TriMesh) ComputeVertexNormals() {
	m.Normals = make([]lin.V3, len(m.Vertices))
	for i := 0; i < len(m.Indices); i += 4 {
		v0, v1, v2 := m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]], m.Vertices[m.Indices[i+2]]
		n := triangleNormal(v0, v1, v2).Unit()
		m.Normals[m.Indices[i]] = m.Normals[m.Indices[i]].Add(n)
		m.Normals[m.Indices[i+1]] = m.Normals[m.Indices[i+1]].Add(n)
		m.Normals[m.Indices[i+2]] = m.Normals[m.Indices[i+2]].Add(n)
	}
	for i, n := range m.Normals {
		m.Normals[i] = n.Unit()
	}
}

// SetFaceNormals duplicates vertices per face and assigns the flat face
// normal to each corner, producing a faceted look.
func (m *TriMesh) SetFaceNormals() {
	faces := m.FaceCount()
	verts := make([]lin.V3, 0, faces*3)
	norms := make([]lin.V3, 0, faces*3)
	coords := make([]lin.V2, 0, faces*3)
	indices := make([]uint32, 0, faces*4)
	hasTex := len(m.Texcoords) > 0

	for f := 0; f < faces; f++ {
		i0, i1, i2 := m.Indices[f*4], m.Indices[f*4+1], m.Indices[f*4+2]
		n := triangleNormal(m.Vertices[i0], m.Vertices[i1], m.Vertices[i2]).Unit()
		base := uint32(len(verts))
		verts = append(verts, m.Vertices[i0], m.Vertices[i1], m.Vertices[i2])
		norms = append(norms, n, n, n)
		if hasTex {
			coords = append(coords, m.Texcoords[i0], m.Texcoords[i1], m.Texcoords[i2])
		}
		indices = append(indices, base, base+1, base+2, m.Indices[f*4+3])
	}
	m.Vertices, m.Normals, m.Indices = verts, norms, indices
	if hasTex {
		m.Texcoords = coords
	}
}

// MakeTexCoordsZero fills the texcoords with zeros.
func (m *TriMesh) MakeTexCoordsZero() {
	m.Texcoords = make([]lin.V2, len(m.Vertices))
}

// RemoveZeroAreaTriangles drops degenerate faces, keeping at least one
// face so downstream tables are never empty. Returns the removed count.
func (m *TriMesh) RemoveZeroAreaTriangles() int {
	good := func(i int) bool {
		v0, v1, v2 := m.Vertices[m.Indices[i]], m.Vertices[m.Indices[i+1]], m.Vertices[m.Indices[i+2]]
		return triangleNormal(v0, v1, v2).LenSqr() > lin.Epsilon
	}

	bad := 0
	for i := 0; i < len(m.Indices); i += 4 {
		if !good(i) {
			bad++
		}
	}
	if bad == 0 {
		return 0
	}

	kept := make([]uint32, 0, len(m.Indices)-bad*4)
	for i := 0; i < len(m.Indices); i += 4 {
		if good(i) {
			kept = append(kept, m.Indices[i], m.Indices[i+1], m.Indices[i+2], m.Indices[i+3])
		}
	}
	if len(kept) == 0 {
		bad--
		kept = append(kept, m.Indices[0], m.Indices[1], m.Indices[2], m.Indices[3])
	}
	m.Indices = kept
	return bad
}

// Transform applies the matrix to positions and the inverse transpose to
// normals. A negative determinant flips winding so orientation survives
// mirroring transforms.
func (m *TriMesh) Transform(t lin.M4) {
	if t.IsIdentity() {
		return
	}
	for i, v := range m.Vertices {
		m.Vertices[i] = t.MultPoint(v)
	}
	for i, n := range m.Normals {
		m.Normals[i] = t.MultNormal(n).Unit()
	}
	if t.Det3() < 0 {
		for i := 0; i < len(m.Indices); i += 4 {
			m.Indices[i+1], m.Indices[i+2] = m.Indices[i+2], m.Indices[i+1]
		}
	}
}

// ComputeBBox returns the bounding box over all vertices.
func (m *TriMesh) ComputeBBox() lin.Box {
	bbox := lin.EmptyBox()
	for _, v := range m.Vertices {
		bbox = bbox.Extend(v)
	}
	return bbox
}

// FaceArea returns the area of face i.
func (m *TriMesh) FaceArea(i int) float32 {
	v0, v1, v2 := m.Face(i)
	return triangleNormal(v0, v1, v2).Len() * 0.5
}

// SurfaceArea sums the area of every face. Area lights sample faces
// proportionally to this.
func (m *TriMesh) SurfaceArea() float32 {
	var area float32
	for i := 0; i < m.FaceCount(); i++ {
		area += m.FaceArea(i)
	}
	return area
}

// FaceAreaCDF returns the cumulative face area distribution, normalized
// to end at 1. Empty meshes return nil.
func (m *TriMesh) FaceAreaCDF() []float32 {
	faces := m.FaceCount()
	if faces == 0 {
		return nil
	}
	cdf := make([]float32, faces)
	var sum float32
	for i := 0; i < faces; i++ {
		sum += m.FaceArea(i)
		cdf[i] = sum
	}
	if sum > 0 {
		inv := 1 / sum
		for i := range cdf {
			cdf[i] *= inv
		}
	}
	cdf[faces-1] = 1
	return cdf
}

// Merge appends the geometry of other, offsetting its indices.
func (m *TriMesh) Merge(other *TriMesh) {
	off := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, other.Vertices...)
	m.Normals = append(m.Normals, other.Normals...)
	m.Texcoords = append(m.Texcoords, other.Texcoords...)
	for i := 0; i < len(other.Indices); i += 4 {
		m.Indices = append(m.Indices,
			other.Indices[i]+off, other.Indices[i+1]+off, other.Indices[i+2]+off, other.Indices[i+3])
	}
}
