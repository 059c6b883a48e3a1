// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scene

import (
	"testing"

	"github.com/ignis-render/ignis/math/lin"
)

const testScene = `
technique:
  type: path
  max_depth: 16
camera:
  type: perspective
  fov: 60
film:
  size: [128, 96]
shapes:
  quad:
    type: rectangle
    p0: [-1, -1, 0]
    p1: [1, -1, 0]
    p2: [1, 1, 0]
    p3: [-1, 1, 0]
bsdfs:
  white:
    type: diffuse
    reflectance: 0.8
lights:
  env:
    type: constant
    radiance: [1, 1, 1]
entities:
  quad_inst:
    shape: quad
    bsdf: white
    transform:
      translate: [0, 0, 2]
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if s.Technique == nil || s.Technique.PluginType != "path" {
		t.Fatalf("technique not parsed: %+v", s.Technique)
	}
	if got := s.Technique.Property("max_depth").GetInteger(0); got != 16 {
		t.Errorf("max_depth = %d, want 16", got)
	}
	if got := s.Film.Property("size").GetVec2(lin.V2{}); got.X != 128 || got.Y != 96 {
		t.Errorf("film size = %v", got)
	}

	quad := s.Shapes["quad"]
	if quad == nil || quad.PluginType != "rectangle" {
		t.Fatalf("quad shape not parsed")
	}
	p2 := quad.Property("p2").GetVec3(lin.V3{})
	if !p2.Aeq(lin.NewV3(1, 1, 0)) {
		t.Errorf("p2 = %v", p2)
	}
}

func TestPropertyDefaults(t *testing.T) {
	var o *Object
	if got := o.Property("missing").GetNumber(2.5); got != 2.5 {
		t.Errorf("nil object property = %v, want default", got)
	}

	p := NewProperty(nil)
	if p.IsSet() {
		t.Error("nil property reports set")
	}
	if got := p.GetVec3(lin.NewV3(1, 2, 3)); !got.Aeq(lin.NewV3(1, 2, 3)) {
		t.Errorf("default vec3 = %v", got)
	}
}

func TestPropertyScalarBroadcast(t *testing.T) {
	s, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	refl := s.BSDFs["white"].Property("reflectance").GetVec3(lin.V3{})
	if !refl.Aeq(lin.NewV3(0.8, 0.8, 0.8)) {
		t.Errorf("scalar reflectance should broadcast, got %v", refl)
	}
}

func TestTransformProperty(t *testing.T) {
	s, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	m := s.Entities["quad_inst"].Property("transform").GetTransform(lin.M4I())
	p := m.MultPoint(lin.V3{})
	if !p.Aeq(lin.NewV3(0, 0, 2)) {
		t.Errorf("translated origin = %v, want (0,0,2)", p)
	}
}

func TestParseOrderDeterministic(t *testing.T) {
	a, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse([]byte(testScene))
	if err != nil {
		t.Fatal(err)
	}
	if len(a.ShapeOrder) != len(b.ShapeOrder) {
		t.Fatal("shape order length differs")
	}
	for i := range a.ShapeOrder {
		if a.ShapeOrder[i] != b.ShapeOrder[i] {
			t.Errorf("shape order differs at %d: %s vs %s", i, a.ShapeOrder[i], b.ShapeOrder[i])
		}
	}
}
