// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// Vector performs the 2, 3 and 4 element vector math needed by the mesh
// pipeline and the kernels.

// V2 is a 2 element vector. Used for texture coordinates.
type V2 struct {
	X float32
	Y float32
}

// V3 is a 3 element vector. This can also be used as a point.
type V3 struct {
	X float32 // increments as X moves to the right.
	Y float32 // increments as Y moves up from bottom left.
	Z float32 // increments as Z moves out of the screen (right handed view space).
}

// V4 is a 4 element vector. It can be used for points and directions where,
// as a point it would have W:1, and as a direction it would have W:0.
type V4 struct {
	X float32
	Y float32
	Z float32
	W float32
}

// NewV3 returns a vector from its elements.
func NewV3(x, y, z float32) V3 { return V3{x, y, z} }

// UnitX returns the positive x axis direction.
func UnitX() V3 { return V3{1, 0, 0} }

// UnitY returns the positive y axis direction.
func UnitY() V3 { return V3{0, 1, 0} }

// UnitZ returns the positive z axis direction.
func UnitZ() V3 { return V3{0, 0, 1} }

// Eq (==) returns true if each element in the vector v has the same value
// as the corresponding element in vector a.
func (v V3) Eq(a V3) bool { return v.X == a.X && v.Y == a.Y && v.Z == a.Z }

// Aeq (~=) almost-equals returns true if all the elements in vector v have
// essentially the same value as the corresponding elements in vector a.
// Used where a direct comparison is unlikely to return true due to floats.
func (v V3) Aeq(a V3) bool { return v.AeqEps(a, Epsilon) }

// AeqEps is Aeq with a caller supplied tolerance.
func (v V3) AeqEps(a V3, eps float32) bool {
	return Abs(v.X-a.X) <= eps && Abs(v.Y-a.Y) <= eps && Abs(v.Z-a.Z) <= eps
}

// AeqZ (~=) almost equals zero returns true if the square length of the
// vector is close enough to zero that it makes no difference.
func (v V3) AeqZ() bool { return v.Dot(v) < Epsilon }

// Add (+) returns the element sum of v and a.
func (v V3) Add(a V3) V3 { return V3{v.X + a.X, v.Y + a.Y, v.Z + a.Z} }

// Sub (-) returns the element difference of v and a.
func (v V3) Sub(a V3) V3 { return V3{v.X - a.X, v.Y - a.Y, v.Z - a.Z} }

// Mult (*) returns the element product of v and a.
func (v V3) Mult(a V3) V3 { return V3{v.X * a.X, v.Y * a.Y, v.Z * a.Z} }

// Scale (*) returns v with each element scaled by s.
func (v V3) Scale(s float32) V3 { return V3{v.X * s, v.Y * s, v.Z * s} }

// Neg (-) returns the negated vector.
func (v V3) Neg() V3 { return V3{-v.X, -v.Y, -v.Z} }

// Dot (•) returns the dot, or inner, product of vectors v and a.
func (v V3) Dot(a V3) float32 { return v.X*a.X + v.Y*a.Y + v.Z*a.Z }

// Len returns the length of vector v.
func (v V3) Len() float32 { return Sqrt(v.Dot(v)) }

// LenSqr returns the squared length of vector v, avoiding the square root.
func (v V3) LenSqr() float32 { return v.Dot(v) }

// Dist returns the distance between points v and a.
func (v V3) Dist(a V3) float32 { return v.Sub(a).Len() }

// DistSqr returns the squared distance between points v and a.
func (v V3) DistSqr(a V3) float32 { return v.Sub(a).LenSqr() }

// Unit returns v normalized to length 1. A zero vector is returned as is.
func (v V3) Unit() V3 {
	l2 := v.Dot(v)
	if l2 <= 0 || IsNaN(l2) {
		return v
	}
	return v.Scale(1 / Sqrt(l2))
}

// Cross (×) returns the cross product of vectors v and a.
func (v V3) Cross(a V3) V3 {
	return V3{
		v.Y*a.Z - v.Z*a.Y,
		v.Z*a.X - v.X*a.Z,
		v.X*a.Y - v.Y*a.X,
	}
}

// Lerp returns the vector linearly interpolated between v and a.
// Fraction 0 is v, fraction 1 is a.
func (v V3) Lerp(a V3, fraction float32) V3 {
	return v.Add(a.Sub(v).Scale(fraction))
}

// MinV returns the element minimum of v and a.
func (v V3) MinV(a V3) V3 { return V3{Min(v.X, a.X), Min(v.Y, a.Y), Min(v.Z, a.Z)} }

// MaxV returns the element maximum of v and a.
func (v V3) MaxV(a V3) V3 { return V3{Max(v.X, a.X), Max(v.Y, a.Y), Max(v.Z, a.Z)} }

// At returns element i of the vector, 0 is X.
func (v V3) At(i int) float32 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// MaxAxis returns the index of the largest element.
func (v V3) MaxAxis() int {
	axis := 0
	if v.Y > v.At(axis) {
		axis = 1
	}
	if v.Z > v.At(axis) {
		axis = 2
	}
	return axis
}

// Frame builds an orthonormal basis around unit normal v. Returns the two
// tangent directions.
func (v V3) Frame() (nx, ny V3) {
	if Abs(v.X) > Abs(v.Y) {
		inv := 1 / Sqrt(v.X*v.X+v.Z*v.Z)
		nx = V3{-v.Z * inv, 0, v.X * inv}
	} else {
		inv := 1 / Sqrt(v.Y*v.Y+v.Z*v.Z)
		nx = V3{0, v.Z * inv, -v.Y * inv}
	}
	ny = v.Cross(nx)
	return nx, ny
}

// Add (+) returns the element sum of v and a.
func (v V2) Add(a V2) V2 { return V2{v.X + a.X, v.Y + a.Y} }

// Sub (-) returns the element difference of v and a.
func (v V2) Sub(a V2) V2 { return V2{v.X - a.X, v.Y - a.Y} }

// Scale (*) returns v with each element scaled by s.
func (v V2) Scale(s float32) V2 { return V2{v.X * s, v.Y * s} }

// Aeq (~=) almost-equals for texture coordinates.
func (v V2) Aeq(a V2) bool { return Aeq(v.X, a.X) && Aeq(v.Y, a.Y) }
