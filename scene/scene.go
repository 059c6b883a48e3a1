// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package scene is the parsed scene description consumed by the loader.
// Parsing syntax is a collaborator concern: this package owns only the
// in-memory object graph (objects with a plugin type and typed
// properties) and one carrier syntax, YAML. Everything downstream of the
// parser works on Scene values and never sees the carrier.
package scene

import (
	"github.com/ignis-render/ignis/math/lin"
)

// Object is one node of the scene graph: a shape, bsdf, light, medium,
// technique, camera or film description. The plugin type selects the
// provider that interprets the properties.
type Object struct {
	Name       string
	PluginType string
	Properties map[string]Property
}

// Property reads one property with a default fallback. Missing
// properties return the zero Property whose getters return the default.
func (o *Object) Property(key string) Property {
	if o == nil {
		return Property{}
	}
	return o.Properties[key]
}

// HasProperty returns true when the property was given in the scene file.
func (o *Object) HasProperty(key string) bool {
	if o == nil {
		return false
	}
	_, ok := o.Properties[key]
	return ok
}

// Scene is the complete parsed description.
type Scene struct {
	Technique *Object
	Camera    *Object
	Film      *Object

	// Named object groups. Iteration must be deterministic, so the
	// insertion order is kept alongside the maps.
	Shapes   map[string]*Object
	BSDFs    map[string]*Object
	Lights   map[string]*Object
	Media    map[string]*Object
	Entities map[string]*Object

	ShapeOrder  []string
	BSDFOrder   []string
	LightOrder  []string
	EntityOrder []string
}

// NewScene returns an empty scene with allocated groups.
func NewScene() *Scene {
	return &Scene{
		Shapes:   map[string]*Object{},
		BSDFs:    map[string]*Object{},
		Lights:   map[string]*Object{},
		Media:    map[string]*Object{},
		Entities: map[string]*Object{},
	}
}

// AddShape registers a shape object keeping insertion order.
func (s *Scene) AddShape(o *Object) {
	s.Shapes[o.Name] = o
	s.ShapeOrder = append(s.ShapeOrder, o.Name)
}

// AddBSDF registers a material object keeping insertion order.
func (s *Scene) AddBSDF(o *Object) {
	s.BSDFs[o.Name] = o
	s.BSDFOrder = append(s.BSDFOrder, o.Name)
}

// AddLight registers a light object keeping insertion order.
func (s *Scene) AddLight(o *Object) {
	s.Lights[o.Name] = o
	s.LightOrder = append(s.LightOrder, o.Name)
}

// AddEntity registers an entity object keeping insertion order.
func (s *Scene) AddEntity(o *Object) {
	s.Entities[o.Name] = o
	s.EntityOrder = append(s.EntityOrder, o.Name)
}

// Property is a loosely typed scene value with typed getters. The zero
// Property behaves as "not set": every getter returns its default.
type Property struct {
	value any
}

// NewProperty wraps a raw carrier value.
func NewProperty(v any) Property { return Property{value: v} }

// IsSet returns true if the property carries a value.
func (p Property) IsSet() bool { return p.value != nil }

// GetNumber returns the property as float32.
func (p Property) GetNumber(def float32) float32 {
	switch v := p.value.(type) {
	case float64:
		return float32(v)
	case float32:
		return v
	case int:
		return float32(v)
	case int64:
		return float32(v)
	default:
		return def
	}
}

// GetInteger returns the property as int.
func (p Property) GetInteger(def int) int {
	switch v := p.value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// GetBool returns the property as bool.
func (p Property) GetBool(def bool) bool {
	if v, ok := p.value.(bool); ok {
		return v
	}
	return def
}

// GetString returns the property as string.
func (p Property) GetString(def string) string {
	if v, ok := p.value.(string); ok {
		return v
	}
	return def
}

// numbers coerces a carrier list into floats.
func (p Property) numbers() []float32 {
	list, ok := p.value.([]any)
	if !ok {
		return nil
	}
	out := make([]float32, 0, len(list))
	for _, e := range list {
		out = append(out, NewProperty(e).GetNumber(0))
	}
	return out
}

// GetVec2 returns the property as a 2 element vector.
func (p Property) GetVec2(def lin.V2) lin.V2 {
	n := p.numbers()
	if len(n) < 2 {
		return def
	}
	return lin.V2{X: n[0], Y: n[1]}
}

// GetVec3 returns the property as a 3 element vector. A single number
// broadcasts to all three elements, matching how colors are written.
func (p Property) GetVec3(def lin.V3) lin.V3 {
	if !p.IsSet() {
		return def
	}
	if n := p.numbers(); len(n) >= 3 {
		return lin.V3{X: n[0], Y: n[1], Z: n[2]}
	}
	if s := p.GetNumber(lin.FltInf); s != lin.FltInf {
		return lin.V3{X: s, Y: s, Z: s}
	}
	return def
}

// GetVec4 returns the property as a 4 element vector. Three elements are
// accepted with W defaulting to 1.
func (p Property) GetVec4(def lin.V4) lin.V4 {
	n := p.numbers()
	switch {
	case len(n) >= 4:
		return lin.V4{X: n[0], Y: n[1], Z: n[2], W: n[3]}
	case len(n) == 3:
		return lin.V4{X: n[0], Y: n[1], Z: n[2], W: 1}
	default:
		return def
	}
}

// GetTransform returns the property as a 4x4 matrix. Accepted forms:
// a 16 element row-major list, or a map with optional translate (vec3),
// scale (number or vec3) and rotate (axis-angle, 4 numbers, degrees)
// applied in scale, rotate, translate order.
func (p Property) GetTransform(def lin.M4) lin.M4 {
	if n := p.numbers(); len(n) == 16 {
		return lin.M4{
			Xx: n[0], Xy: n[1], Xz: n[2], Xw: n[3],
			Yx: n[4], Yy: n[5], Yz: n[6], Yw: n[7],
			Zx: n[8], Zy: n[9], Zz: n[10], Zw: n[11],
			Wx: n[12], Wy: n[13], Wz: n[14], Ww: n[15],
		}
	}
	m, ok := p.value.(map[string]any)
	if !ok {
		return def
	}
	out := lin.M4I()
	if v, ok := m["scale"]; ok {
		sp := NewProperty(v)
		s := sp.GetVec3(lin.V3{X: 1, Y: 1, Z: 1})
		sm := lin.M4I()
		sm.Xx, sm.Yy, sm.Zz = s.X, s.Y, s.Z
		out = sm.Mult(out)
	}
	if v, ok := m["rotate"]; ok {
		n := NewProperty(v).numbers()
		if len(n) == 4 {
			out = rotate(lin.V3{X: n[0], Y: n[1], Z: n[2]}.Unit(), lin.Rad(n[3])).Mult(out)
		}
	}
	if v, ok := m["translate"]; ok {
		t := NewProperty(v).GetVec3(lin.V3{})
		out = lin.M4Translate(t).Mult(out)
	}
	return out
}

// rotate builds an axis-angle rotation matrix.
func rotate(axis lin.V3, rad float32) lin.M4 {
	c, s := lin.Cos(rad), lin.Sin(rad)
	t := 1 - c
	x, y, z := axis.X, axis.Y, axis.Z
	m := lin.M4I()
	m.Xx, m.Xy, m.Xz = t*x*x+c, t*x*y-s*z, t*x*z+s*y
	m.Yx, m.Yy, m.Yz = t*x*y+s*z, t*y*y+c, t*y*z-s*x
	m.Zx, m.Zy, m.Zz = t*x*z-s*y, t*y*z+s*x, t*z*z+c
	return m
}
