// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mesh

// detect.go collapses suitable triangle meshes into compact analytic
// stand-ins. Techniques sample planes and spheres exactly, so loading
// registers these overrides whenever the strict geometric tests pass.

import (
	"github.com/ignis-render/ignis/math/lin"
)

// PlaneShape is the analytic quad a two-triangle mesh may collapse to.
type PlaneShape struct {
	Origin    lin.V3
	XAxis     lin.V3
	YAxis     lin.V3
	TexCoords [4]lin.V2
}

// Normal returns the plane normal from the two edge vectors.
func (p *PlaneShape) Normal() lin.V3 { return p.XAxis.Cross(p.YAxis).Unit() }

// Area returns the parallelogram area.
func (p *PlaneShape) Area() float32 { return p.XAxis.Cross(p.YAxis).Len() }

// SphereShape is the analytic sphere a tessellated mesh may collapse to.
type SphereShape struct {
	Origin lin.V3
	Radius float32
}

const detectEps = 1e-5

// AsPlane tests whether the mesh is exactly a quad of two coplanar
// triangles over four unique vertices with matching edge lengths.
func (m *TriMesh) AsPlane() (*PlaneShape, bool) {
	if m.FaceCount() != 2 {
		return nil, false
	}

	// Only planes given by four points qualify. Vertices may be
	// duplicated by the source file; dedupe up to six.
	var uniqueVerts [4]lin.V3
	var uniqueIDs [4]uint32
	switch {
	case len(m.Vertices) == 4:
		for i := 0; i < 4; i++ {
			uniqueVerts[i] = m.Vertices[i]
			uniqueIDs[i] = uint32(i)
		}
	case len(m.Vertices) > 4 && len(m.Vertices) <= 6:
		i := 0
		for id, v := range m.Vertices {
			found := false
			for _, u := range uniqueVerts[:i] {
				if v.AeqEps(u, detectEps) {
					found = true
					break
				}
			}
			if !found {
				if i >= 4 {
					return nil, false
				}
				uniqueIDs[i] = uint32(id)
				uniqueVerts[i] = v
				i++
			}
		}
		if i != 4 {
			return nil, false
		}
	default:
		return nil, false
	}

	// Both triangles have to face the same way.
	fn0 := triangleNormal(m.Vertices[m.Indices[0]], m.Vertices[m.Indices[1]], m.Vertices[m.Indices[2]]).Unit()
	fn1 := triangleNormal(m.Vertices[m.Indices[4]], m.Vertices[m.Indices[5]], m.Vertices[m.Indices[6]]).Unit()
	if !fn0.AeqEps(fn1, detectEps) {
		return nil, false
	}

	// The second triangle must reuse the first triangle's edges,
	// though possibly in another order.
	e1 := m.Vertices[m.Indices[0]].DistSqr(m.Vertices[m.Indices[1]])
	e2 := m.Vertices[m.Indices[1]].DistSqr(m.Vertices[m.Indices[2]])
	e3 := m.Vertices[m.Indices[2]].DistSqr(m.Vertices[m.Indices[0]])
	e4 := m.Vertices[m.Indices[4]].DistSqr(m.Vertices[m.Indices[5]])
	e5 := m.Vertices[m.Indices[5]].DistSqr(m.Vertices[m.Indices[6]])
	e6 := m.Vertices[m.Indices[6]].DistSqr(m.Vertices[m.Indices[4]])
	match := func(a, b float32) bool { return lin.Abs(a-b) <= detectEps }
	for _, e := range []float32{e4, e5, e6} {
		if !match(e1, e) && !match(e2, e) && !match(e3, e) {
			return nil, false
		}
	}

	// The two axes meet at the widest angle spanned from the origin.
	origin := uniqueVerts[0]
	angleAt := func(start int) float32 {
		x := uniqueVerts[(start+0)%3+1].Sub(origin).Unit()
		y := uniqueVerts[(start+1)%3+1].Sub(origin).Unit()
		return lin.Abs(lin.Acos(x.Dot(y)))
	}
	a12, a23, a31 := angleAt(0), angleAt(1), angleAt(2)
	sel := 0
	switch {
	case a12 >= a23 && a12 >= a31:
		sel = 0
	case a23 >= a31 && a23 >= a12:
		sel = 1
	default:
		sel = 2
	}

	shape := &PlaneShape{
		Origin: origin,
		XAxis:  uniqueVerts[(sel+0)%3+1].Sub(origin),
		YAxis:  uniqueVerts[(sel+1)%3+1].Sub(origin),
	}
	if fn0.Dot(shape.Normal()) < 0 {
		shape.XAxis, shape.YAxis = shape.YAxis, shape.XAxis
		uniqueVerts[1], uniqueVerts[2] = uniqueVerts[2], uniqueVerts[1]
		uniqueIDs[1], uniqueIDs[2] = uniqueIDs[2], uniqueIDs[1]
	}

	if len(m.Texcoords) > 0 {
		shape.TexCoords[0] = m.Texcoords[uniqueIDs[0]]
		shape.TexCoords[(0+sel)%3+1] = m.Texcoords[uniqueIDs[1]]
		shape.TexCoords[(1+sel)%3+1] = m.Texcoords[uniqueIDs[2]]
		shape.TexCoords[(2+sel)%3+1] = m.Texcoords[uniqueIDs[3]]
	} else {
		shape.TexCoords = [4]lin.V2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	}
	return shape, true
}

// AsSphere tests whether the mesh is a tessellated sphere: enough faces,
// a symmetric bounding box, every vertex at the same radius and geometry
// present in all eight octants.
func (m *TriMesh) AsSphere() (*SphereShape, bool) {
	// A sphere requires a sufficient amount of resolution. The cutoff
	// is empirical.
	if m.FaceCount() < 32 {
		return nil, false
	}

	bbox := m.ComputeBBox()
	origin := bbox.Center()
	if bbox.Volume() <= detectEps {
		return nil, false
	}

	d := bbox.Diameter()
	if lin.Abs(d.X-d.Y) > detectEps || lin.Abs(d.X-d.Z) > detectEps || lin.Abs(d.Y-d.Z) > detectEps {
		return nil, false
	}

	radius2 := origin.DistSqr(m.Vertices[0])
	if radius2 <= detectEps {
		return nil, false
	}
	for _, v := range m.Vertices[1:] {
		if lin.Abs(origin.DistSqr(v)-radius2) > detectEps {
			return nil, false
		}
	}

	// All eight octants need geometry. Not watertight proof, but it
	// rejects domes and cut spheres.
	var sectors [8]bool
	for _, v := range m.Vertices {
		dir := origin.Sub(v)
		id := 0
		if dir.X < 0 {
			id |= 1
		}
		if dir.Y < 0 {
			id |= 2
		}
		if dir.Z < 0 {
			id |= 4
		}
		sectors[id] = true
	}
	for _, populated := range sectors {
		if !populated {
			return nil, false
		}
	}

	return &SphereShape{Origin: origin, Radius: lin.Sqrt(radius2)}, true
}
