// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mesh

// shapes.go generates the analytic primitive meshes the shape providers
// dispatch to: triangle, plane/rectangle, box, spheres, cylinder, cone
// and disk. Generated material slots are always 0.

import (
	"github.com/ignis-render/ignis/math/lin"
)

// addTriangle appends a single triangle spanned by two edge vectors.
func addTriangle(m *TriMesh, origin, xAxis, yAxis lin.V3, off uint32) {
	n := xAxis.Cross(yAxis).Unit()
	m.Vertices = append(m.Vertices, origin, origin.Add(xAxis), origin.Add(yAxis))
	m.Normals = append(m.Normals, n, n, n)
	m.Texcoords = append(m.Texcoords, lin.V2{}, lin.V2{X: 1}, lin.V2{Y: 1})
	m.Indices = append(m.Indices, off, off+1, off+2, 0)
}

// addPlane appends a quad as two triangles sharing four vertices.
func addPlane(m *TriMesh, origin, xAxis, yAxis lin.V3, off uint32) {
	n := xAxis.Cross(yAxis).Unit()
	m.Vertices = append(m.Vertices,
		origin, origin.Add(xAxis), origin.Add(xAxis).Add(yAxis), origin.Add(yAxis))
	m.Normals = append(m.Normals, n, n, n, n)
	m.Texcoords = append(m.Texcoords,
		lin.V2{}, lin.V2{X: 1}, lin.V2{X: 1, Y: 1}, lin.V2{Y: 1})
	m.Indices = append(m.Indices,
		off, off+1, off+2, 0,
		off, off+2, off+3, 0)
}

// addDisk appends a triangle fan disk in the plane spanned by nx, ny.
func addDisk(m *TriMesh, origin, n, nx, ny lin.V3, radius float32, sections uint32, off uint32, fillCap bool) {
	step := 1.0 / float32(sections)
	if fillCap {
		m.Vertices = append(m.Vertices, origin)
		m.Normals = append(m.Normals, n)
		m.Texcoords = append(m.Texcoords, lin.V2{})
	}
	for i := uint32(0); i < sections; i++ {
		x := lin.Cos(2 * lin.Pi * step * float32(i))
		y := lin.Sin(2 * lin.Pi * step * float32(i))
		m.Vertices = append(m.Vertices, nx.Scale(radius*x).Add(ny.Scale(radius*y)).Add(origin))
		m.Normals = append(m.Normals, n)
		m.Texcoords = append(m.Texcoords, lin.V2{X: 0.5 * (x + 1), Y: 0.5 * (y + 1)})
	}
	if !fillCap {
		return
	}
	const start = 1 // skip disk origin
	for i := uint32(0); i < sections; i++ {
		c := i + start
		nc := uint32(start)
		if i+1 < sections {
			nc = i + 1 + start
		}
		m.Indices = append(m.Indices, off, c+off, nc+off, 0)
	}
}

// MakeTriangle returns a single triangle through the three points.
func MakeTriangle(p0, p1, p2 lin.V3) *TriMesh {
	m := &TriMesh{}
	addTriangle(m, p0, p1.Sub(p0), p2.Sub(p0), 0)
	return m
}

// MakePlane returns a quad with origin at one corner and two spanning
// edge vectors.
func MakePlane(origin, xAxis, yAxis lin.V3) *TriMesh {
	m := &TriMesh{}
	addPlane(m, origin, xAxis, yAxis, 0)
	return m
}

// MakeRectangle returns the quad through four corner points as two
// independent triangles.
func MakeRectangle(p0, p1, p2, p3 lin.V3) *TriMesh {
	m := &TriMesh{}
	addTriangle(m, p0, p1.Sub(p0), p3.Sub(p0), 0)
	addTriangle(m, p1, p2.Sub(p1), p3.Sub(p1), 3)
	return m
}

// MakeBox returns a box from an origin corner and three edge vectors.
func MakeBox(origin, xAxis, yAxis, zAxis lin.V3) *TriMesh {
	lll := origin
	hhh := origin.Add(xAxis).Add(yAxis).Add(zAxis)
	m := &TriMesh{}
	addPlane(m, lll, yAxis, xAxis, 0)
	addPlane(m, lll, xAxis, zAxis, 4)
	addPlane(m, lll, zAxis, yAxis, 8)
	addPlane(m, hhh, xAxis.Neg(), yAxis.Neg(), 12)
	addPlane(m, hhh, zAxis.Neg(), xAxis.Neg(), 16)
	addPlane(m, hhh, yAxis.Neg(), zAxis.Neg(), 20)
	return m
}

// MakeUVSphere returns a latitude/longitude tessellated sphere.
func MakeUVSphere(center lin.V3, radius float32, stacks, slices uint32) *TriMesh {
	if stacks < 2 {
		stacks = 2
	}
	if slices < 3 {
		slices = 3
	}
	m := &TriMesh{}
	drho := lin.Pi / float32(stacks)
	dtheta := 2 * lin.Pi / float32(slices)

	for i := uint32(0); i <= stacks; i++ {
		rho := float32(i) * drho
		srho, crho := lin.Sin(rho), lin.Cos(rho)
		for j := uint32(0); j < slices; j++ {
			theta := float32(j) * dtheta
			stheta, ctheta := -lin.Sin(theta), lin.Cos(theta)
			n := lin.V3{X: stheta * srho, Y: ctheta * srho, Z: crho}
			m.Vertices = append(m.Vertices, n.Scale(radius).Add(center))
			m.Normals = append(m.Normals, n)
			m.Texcoords = append(m.Texcoords, lin.V2{X: 0.5 * theta / lin.Pi, Y: rho / lin.Pi})
		}
	}
	for i := uint32(0); i < stacks; i++ {
		curr := i * slices
		next := (i + 1) * slices
		for j := uint32(0); j < slices; j++ {
			nj := (j + 1) % slices
			id0, id1 := curr+j, curr+nj
			id2, id3 := next+j, next+nj
			m.Indices = append(m.Indices,
				id2, id3, id1, 0,
				id2, id1, id0, 0)
		}
	}
	return m
}

// MakeIcoSphere returns a subdivided icosahedron sphere. Subdivision k
// quadruples the face count each step.
func MakeIcoSphere(center lin.V3, radius float32, subdivisions uint32) *TriMesh {
	const goldenRatio = 1.618033989
	m := &TriMesh{}

	// Twelve vertices, four per axis plane.
	for d := 0; d < 3; d++ {
		for s1 := -1; s1 <= 1; s1 += 2 {
			for s2 := -1; s2 <= 1; s2 += 2 {
				var e [3]float32
				e[(d+1)%3] = goldenRatio * float32(s1)
				e[(d+2)%3] = float32(s2)
				m.Vertices = append(m.Vertices, lin.V3{X: e[0], Y: e[1], Z: e[2]}.Unit())
			}
		}
	}

	getIndex := func(d, s1, s2 int) uint32 {
		return uint32(d*4 + (s1 + 1) + ((s2 + 1) >> 1))
	}
	// Triangles with one point on each axis plane.
	for s1 := -1; s1 <= 1; s1 += 2 {
		for s2 := -1; s2 <= 1; s2 += 2 {
			for s3 := -1; s3 <= 1; s3 += 2 {
				rev := s1*s2*s3 == -1
				i1 := getIndex(0, s1, s2)
				i2 := getIndex(1, s2, s3)
				i3 := getIndex(2, s3, s1)
				if rev {
					i2, i3 = i3, i2
				}
				m.Indices = append(m.Indices, i1, i2, i3, 0)
			}
		}
	}
	// Triangles with two points on one axis plane.
	for d := 0; d < 3; d++ {
		for s1 := -1; s1 <= 1; s1 += 2 {
			for s2 := -1; s2 <= 1; s2 += 2 {
				rev := s1*s2 == 1
				i2 := getIndex(d, s1, -1)
				i1 := getIndex(d, s1, +1)
				i3 := getIndex((d+2)%3, s2, s1)
				if rev {
					i2, i3 = i3, i2
				}
				m.Indices = append(m.Indices, i1, i2, i3, 0)
			}
		}
	}

	// Refine by splitting each edge at its spherical midpoint.
	for s := uint32(0); s < subdivisions; s++ {
		prevSize := uint32(len(m.Vertices))
		edgeVertex := map[uint64]uint32{}
		for t := 0; t < len(m.Indices); t += 4 {
			for j := 0; j < 3; j++ {
				i1 := m.Indices[t+j]
				i2 := m.Indices[t+(j+1)%3]
				if i1 >= i2 {
					continue
				}
				edge := uint64(i1)*uint64(prevSize) + uint64(i2)
				if _, ok := edgeVertex[edge]; ok {
					continue
				}
				edgeVertex[edge] = uint32(len(m.Vertices))
				m.Vertices = append(m.Vertices, m.Vertices[i1].Add(m.Vertices[i2]).Unit())
			}
		}

		refined := make([]uint32, 0, len(m.Indices)*4)
		for t := 0; t < len(m.Indices); t += 4 {
			var mid [3]uint32
			for j := 0; j < 3; j++ {
				i1 := m.Indices[t+j]
				i2 := m.Indices[t+(j+1)%3]
				if i1 > i2 {
					i1, i2 = i2, i1
				}
				mid[j] = edgeVertex[uint64(i1)*uint64(prevSize)+uint64(i2)]
			}
			refined = append(refined, mid[0], mid[1], mid[2], 0)
			for j := 0; j < 3; j++ {
				refined = append(refined, m.Indices[t+j], mid[(j+0)%3], mid[(j+2)%3], 0)
			}
		}
		m.Indices = refined
	}

	// Unit sphere vertices double as normals.
	m.Normals = make([]lin.V3, len(m.Vertices))
	for i, v := range m.Vertices {
		m.Normals[i] = v.Unit()
	}
	m.Texcoords = make([]lin.V2, len(m.Vertices))
	for i, n := range m.Normals {
		theta := lin.Acos(n.Z)
		phi := lin.Atan2(-n.X, n.Y)
		if phi < 0 {
			phi += 2 * lin.Pi
		}
		m.Texcoords[i] = lin.V2{X: phi / (2 * lin.Pi), Y: theta / lin.Pi}
	}

	t := lin.M4Translate(center).Mult(lin.M4Scale(radius))
	m.Transform(t)
	return m
}

// MakeDisk returns a filled disk facing the given normal.
func MakeDisk(center, normal lin.V3, radius float32, sections uint32) *TriMesh {
	if sections < 3 {
		sections = 3
	}
	n := normal.Unit()
	nx, ny := n.Frame()
	m := &TriMesh{}
	addDisk(m, center, n, nx, ny, radius, sections, 0, true)
	return m
}

// MakeCylinder returns a tessellated open or capped cylinder/frustum.
func MakeCylinder(baseCenter lin.V3, baseRadius float32, topCenter lin.V3, topRadius float32, sections uint32, filled bool) *TriMesh {
	if sections < 3 {
		sections = 3
	}
	axis := topCenter.Sub(baseCenter).Unit()
	nx, ny := axis.Frame()

	m := &TriMesh{}
	step := 1.0 / float32(sections)
	for i := uint32(0); i < sections; i++ {
		x := lin.Cos(2 * lin.Pi * step * float32(i))
		y := lin.Sin(2 * lin.Pi * step * float32(i))
		dir := nx.Scale(x).Add(ny.Scale(y))
		m.Vertices = append(m.Vertices,
			dir.Scale(baseRadius).Add(baseCenter),
			dir.Scale(topRadius).Add(topCenter))
		m.Texcoords = append(m.Texcoords,
			lin.V2{X: step * float32(i)},
			lin.V2{X: step * float32(i), Y: 1})
	}
	for i := uint32(0); i < sections; i++ {
		b0 := 2 * i
		t0 := 2*i + 1
		b1 := 2 * ((i + 1) % sections)
		t1 := 2*((i+1)%sections) + 1
		m.Indices = append(m.Indices,
			b0, b1, t0, 0,
			t0, b1, t1, 0)
	}
	if filled {
		capOff := uint32(len(m.Vertices))
		addDisk(m, baseCenter, axis.Neg(), nx, ny, baseRadius, sections, capOff, true)
		capOff = uint32(len(m.Vertices))
		addDisk(m, topCenter, axis, nx, ny, topRadius, sections, capOff, true)
	}
	m.ComputeVertexNormals()
	return m
}

// MakeCone returns a cone from a base disk to a tip point.
func MakeCone(baseCenter lin.V3, radius float32, tip lin.V3, sections uint32, filled bool) *TriMesh {
	if sections < 3 {
		sections = 3
	}
	axis := tip.Sub(baseCenter).Unit()
	nx, ny := axis.Frame()

	m := &TriMesh{}
	m.Vertices = append(m.Vertices, tip)
	m.Texcoords = append(m.Texcoords, lin.V2{X: 0.5, Y: 1})
	step := 1.0 / float32(sections)
	for i := uint32(0); i < sections; i++ {
		x := lin.Cos(2 * lin.Pi * step * float32(i))
		y := lin.Sin(2 * lin.Pi * step * float32(i))
		m.Vertices = append(m.Vertices,
			nx.Scale(radius*x).Add(ny.Scale(radius*y)).Add(baseCenter))
		m.Texcoords = append(m.Texcoords, lin.V2{X: step * float32(i)})
	}
	for i := uint32(0); i < sections; i++ {
		c := i + 1
		nc := (i+1)%sections + 1
		m.Indices = append(m.Indices, 0, nc, c, 0)
	}
	if filled {
		capOff := uint32(len(m.Vertices))
		addDisk(m, baseCenter, axis.Neg(), nx, ny, radius, sections, capOff, true)
	}
	m.ComputeVertexNormals()
	return m
}
