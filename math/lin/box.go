// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// Box is an axis aligned bounding box. The empty box has min at +infinity
// and max at -infinity so that extending it with any point works without
// special cases. This is also the padding value for unused BVH slots.
type Box struct {
	Min V3
	Max V3
}

// EmptyBox returns the inverted-infinity empty box.
func EmptyBox() Box {
	return Box{
		Min: V3{FltInf, FltInf, FltInf},
		Max: V3{-FltInf, -FltInf, -FltInf},
	}
}

// NewBox returns a box spanning the two corner points.
func NewBox(min, max V3) Box { return Box{Min: min, Max: max} }

// IsEmpty returns true if the box does not contain any point.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend grows the box to include point p.
func (b Box) Extend(p V3) Box {
	return Box{Min: b.Min.MinV(p), Max: b.Max.MaxV(p)}
}

// ExtendBox grows the box to include box a.
func (b Box) ExtendBox(a Box) Box {
	return Box{Min: b.Min.MinV(a.Min), Max: b.Max.MaxV(a.Max)}
}

// Center returns the box midpoint.
func (b Box) Center() V3 { return b.Min.Add(b.Max).Scale(0.5) }

// Diameter returns the box extents per axis.
func (b Box) Diameter() V3 { return b.Max.Sub(b.Min) }

// Volume returns the enclosed volume. Empty boxes report zero.
func (b Box) Volume() float32 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Diameter()
	return d.X * d.Y * d.Z
}

// HalfArea returns half the surface area. This is the SAH cost metric.
func (b Box) HalfArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	d := b.Diameter()
	return d.X*d.Y + d.Y*d.Z + d.Z*d.X
}

// Radius returns the distance from the center to a corner, ie: the radius
// of the bounding sphere.
func (b Box) Radius() float32 { return b.Diameter().Len() * 0.5 }

// Transform returns the axis aligned box covering b after applying m.
func (b Box) Transform(m M4) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for i := 0; i < 8; i++ {
		p := V3{b.Min.X, b.Min.Y, b.Min.Z}
		if i&1 != 0 {
			p.X = b.Max.X
		}
		if i&2 != 0 {
			p.Y = b.Max.Y
		}
		if i&4 != 0 {
			p.Z = b.Max.Z
		}
		out = out.Extend(m.MultPoint(p))
	}
	return out
}
