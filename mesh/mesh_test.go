// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package mesh

import (
	"testing"

	"github.com/ignis-render/ignis/math/lin"
)

func TestMakePlaneCollapses(t *testing.T) {
	origin := lin.NewV3(-1, -1, 0)
	xAxis := lin.NewV3(2, 0, 0)
	yAxis := lin.NewV3(0, 2, 0)
	m := MakePlane(origin, xAxis, yAxis)
	m.Validate()

	if m.FaceCount() != 2 {
		t.Fatalf("plane face count = %d", m.FaceCount())
	}

	p, ok := m.AsPlane()
	if !ok {
		t.Fatal("generated plane not detected as plane")
	}
	if !p.Origin.Aeq(origin) {
		t.Errorf("plane origin = %v, want %v", p.Origin, origin)
	}
	// The two detected axes span the same quad; order may differ.
	gotAxes := [2]lin.V3{p.XAxis, p.YAxis}
	for _, want := range []lin.V3{xAxis, yAxis} {
		if !gotAxes[0].Aeq(want) && !gotAxes[1].Aeq(want) {
			t.Errorf("axis %v missing from detected axes %v", want, gotAxes)
		}
	}
	if !p.Normal().Aeq(lin.UnitZ()) {
		t.Errorf("plane normal = %v, want unit z", p.Normal())
	}

	// The four corner uv values survive detection.
	wantUV := []lin.V2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	for _, uv := range wantUV {
		found := false
		for _, got := range p.TexCoords {
			if got.Aeq(uv) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("uv corner %v missing from %v", uv, p.TexCoords)
		}
	}
}

func TestMakeRectangleIsNotDetectedWhenSheared(t *testing.T) {
	// A non-planar quad must not collapse.
	m := MakeRectangle(
		lin.NewV3(-1, -1, 0), lin.NewV3(1, -1, 0),
		lin.NewV3(1, 1, 1), lin.NewV3(-1, 1, 0))
	if _, ok := m.AsPlane(); ok {
		t.Error("bent quad detected as plane")
	}
}

func TestMakeIcoSphereCollapses(t *testing.T) {
	center := lin.NewV3(1, 2, 3)
	const radius = 2.5
	m := MakeIcoSphere(center, radius, 2)
	m.Validate()

	if m.FaceCount() < 32 {
		t.Fatalf("icosphere subdiv 2 has %d faces, expected many", m.FaceCount())
	}
	s, ok := m.AsSphere()
	if !ok {
		t.Fatal("icosphere not detected as sphere")
	}
	if !s.Origin.AeqEps(center, 1e-4) {
		t.Errorf("sphere origin = %v, want %v", s.Origin, center)
	}
	if lin.Abs(s.Radius-radius) > 1e-4 {
		t.Errorf("sphere radius = %v, want %v", s.Radius, radius)
	}
}

func TestPlaneIsNotSphere(t *testing.T) {
	m := MakePlane(lin.NewV3(-1, -1, 0), lin.NewV3(2, 0, 0), lin.NewV3(0, 2, 0))
	if _, ok := m.AsSphere(); ok {
		t.Error("plane detected as sphere")
	}
}

func TestFixNormals(t *testing.T) {
	m := MakeTriangle(lin.V3{}, lin.UnitX(), lin.UnitY())
	m.Normals[1] = lin.V3{} // degenerate
	nan := lin.Sqrt(-1)
	m.Normals[2] = lin.V3{X: nan, Y: nan, Z: nan}

	if !m.FixNormals() {
		t.Error("bad normals not reported")
	}
	if !m.Normals[1].Aeq(lin.UnitY()) || !m.Normals[2].Aeq(lin.UnitY()) {
		t.Errorf("bad normals not replaced: %v %v", m.Normals[1], m.Normals[2])
	}
	if !lin.Aeq(m.Normals[0].Len(), 1) {
		t.Errorf("good normal not unit length: %v", m.Normals[0])
	}
}

func TestFlipNormals(t *testing.T) {
	m := MakeTriangle(lin.V3{}, lin.UnitX(), lin.UnitY())
	before := m.Normals[0]
	i1, i2 := m.Indices[1], m.Indices[2]
	m.FlipNormals()
	if !m.Normals[0].Aeq(before.Neg()) {
		t.Error("normal not negated")
	}
	if m.Indices[1] != i2 || m.Indices[2] != i1 {
		t.Error("winding not swapped")
	}
}

func TestTransformMirrorsWinding(t *testing.T) {
	m := MakeTriangle(lin.V3{}, lin.UnitX(), lin.UnitY())
	i1, i2 := m.Indices[1], m.Indices[2]
	mirror := lin.M4I()
	mirror.Xx = -1
	m.Transform(mirror)
	if m.Indices[1] != i2 || m.Indices[2] != i1 {
		t.Error("mirroring transform must flip winding")
	}
}

func TestSurfaceArea(t *testing.T) {
	m := MakePlane(lin.V3{}, lin.NewV3(2, 0, 0), lin.NewV3(0, 3, 0))
	if !lin.Aeq(m.SurfaceArea(), 6) {
		t.Errorf("2x3 quad area = %v, want 6", m.SurfaceArea())
	}
	cdf := m.FaceAreaCDF()
	if len(cdf) != 2 || cdf[1] != 1 {
		t.Errorf("cdf = %v", cdf)
	}
}

func TestRemoveZeroAreaTriangles(t *testing.T) {
	m := MakePlane(lin.V3{}, lin.NewV3(1, 0, 0), lin.NewV3(0, 1, 0))
	// Add a degenerate face reusing vertex 0 three times.
	m.Indices = append(m.Indices, 0, 0, 0, 0)
	if got := m.RemoveZeroAreaTriangles(); got != 1 {
		t.Errorf("removed %d, want 1", got)
	}
	if m.FaceCount() != 2 {
		t.Errorf("faces after cleanup = %d", m.FaceCount())
	}
}

func TestSetFaceNormals(t *testing.T) {
	m := MakePlane(lin.V3{}, lin.NewV3(1, 0, 0), lin.NewV3(0, 1, 0))
	m.SetFaceNormals()
	m.Validate()
	if len(m.Vertices) != m.FaceCount()*3 {
		t.Errorf("face normals should duplicate vertices: %d verts, %d faces",
			len(m.Vertices), m.FaceCount())
	}
	for _, n := range m.Normals {
		if !n.Aeq(lin.UnitZ()) {
			t.Errorf("flat quad face normal = %v", n)
		}
	}
}

func TestMergeOffsetsIndices(t *testing.T) {
	a := MakeTriangle(lin.V3{}, lin.UnitX(), lin.UnitY())
	b := MakeTriangle(lin.NewV3(5, 0, 0), lin.NewV3(6, 0, 0), lin.NewV3(5, 1, 0))
	verts := len(a.Vertices)
	a.Merge(b)
	a.Validate()
	if a.FaceCount() != 2 {
		t.Fatalf("merged face count = %d", a.FaceCount())
	}
	if int(a.Indices[4]) != verts {
		t.Errorf("merged indices not offset: %v", a.Indices[4:8])
	}
}

func TestUVSphereDetected(t *testing.T) {
	m := MakeUVSphere(lin.V3{}, 1, 32, 16)
	if _, ok := m.AsSphere(); !ok {
		t.Error("uv sphere not detected as sphere")
	}
}
