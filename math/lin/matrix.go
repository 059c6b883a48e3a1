// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

// Matrix deals with the 4x4 transform matrices carried by entities.
// Matrices are row-major in memory; Xyz naming is row then column.

// M4 is a 4x4 matrix.
type M4 struct {
	Xx, Xy, Xz, Xw float32 // row 1
	Yx, Yy, Yz, Yw float32 // row 2
	Zx, Zy, Zz, Zw float32 // row 3
	Wx, Wy, Wz, Ww float32 // row 4
}

// M4I returns the identity matrix.
func M4I() M4 {
	return M4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// M4Translate returns a translation matrix for offset t.
func M4Translate(t V3) M4 {
	m := M4I()
	m.Xw, m.Yw, m.Zw = t.X, t.Y, t.Z
	return m
}

// M4Scale returns a uniform scale matrix.
func M4Scale(s float32) M4 {
	m := M4I()
	m.Xx, m.Yy, m.Zz = s, s, s
	return m
}

// IsIdentity returns true if m is exactly the identity matrix.
func (m M4) IsIdentity() bool { return m == M4I() }

// Mult (*) returns the matrix product m x a.
func (m M4) Mult(a M4) M4 {
	return M4{
		m.Xx*a.Xx + m.Xy*a.Yx + m.Xz*a.Zx + m.Xw*a.Wx,
		m.Xx*a.Xy + m.Xy*a.Yy + m.Xz*a.Zy + m.Xw*a.Wy,
		m.Xx*a.Xz + m.Xy*a.Yz + m.Xz*a.Zz + m.Xw*a.Wz,
		m.Xx*a.Xw + m.Xy*a.Yw + m.Xz*a.Zw + m.Xw*a.Ww,

		m.Yx*a.Xx + m.Yy*a.Yx + m.Yz*a.Zx + m.Yw*a.Wx,
		m.Yx*a.Xy + m.Yy*a.Yy + m.Yz*a.Zy + m.Yw*a.Wy,
		m.Yx*a.Xz + m.Yy*a.Yz + m.Yz*a.Zz + m.Yw*a.Wz,
		m.Yx*a.Xw + m.Yy*a.Yw + m.Yz*a.Zw + m.Yw*a.Ww,

		m.Zx*a.Xx + m.Zy*a.Yx + m.Zz*a.Zx + m.Zw*a.Wx,
		m.Zx*a.Xy + m.Zy*a.Yy + m.Zz*a.Zy + m.Zw*a.Wy,
		m.Zx*a.Xz + m.Zy*a.Yz + m.Zz*a.Zz + m.Zw*a.Wz,
		m.Zx*a.Xw + m.Zy*a.Yw + m.Zz*a.Zw + m.Zw*a.Ww,

		m.Wx*a.Xx + m.Wy*a.Yx + m.Wz*a.Zx + m.Ww*a.Wx,
		m.Wx*a.Xy + m.Wy*a.Yy + m.Wz*a.Zy + m.Ww*a.Wy,
		m.Wx*a.Xz + m.Wy*a.Yz + m.Wz*a.Zz + m.Ww*a.Wz,
		m.Wx*a.Xw + m.Wy*a.Yw + m.Wz*a.Zw + m.Ww*a.Ww,
	}
}

// MultPoint transforms point p by m, including translation.
func (m M4) MultPoint(p V3) V3 {
	return V3{
		m.Xx*p.X + m.Xy*p.Y + m.Xz*p.Z + m.Xw,
		m.Yx*p.X + m.Yy*p.Y + m.Yz*p.Z + m.Yw,
		m.Zx*p.X + m.Zy*p.Y + m.Zz*p.Z + m.Zw,
	}
}

// MultDir transforms direction d by m, ignoring translation.
func (m M4) MultDir(d V3) V3 {
	return V3{
		m.Xx*d.X + m.Xy*d.Y + m.Xz*d.Z,
		m.Yx*d.X + m.Yy*d.Y + m.Yz*d.Z,
		m.Zx*d.X + m.Zy*d.Y + m.Zz*d.Z,
	}
}

// MultNormal transforms normal n by the inverse transpose of the upper
// 3x3 of m. The result is not normalized.
func (m M4) MultNormal(n V3) V3 {
	inv, ok := m.upper3Inverse()
	if !ok {
		return n
	}
	// multiply by the transpose of the inverse.
	return V3{
		inv[0]*n.X + inv[3]*n.Y + inv[6]*n.Z,
		inv[1]*n.X + inv[4]*n.Y + inv[7]*n.Z,
		inv[2]*n.X + inv[5]*n.Y + inv[8]*n.Z,
	}
}

// Det3 returns the determinant of the upper 3x3 submatrix. A negative
// determinant flips triangle winding.
func (m M4) Det3() float32 {
	return m.Xx*(m.Yy*m.Zz-m.Yz*m.Zy) -
		m.Xy*(m.Yx*m.Zz-m.Yz*m.Zx) +
		m.Xz*(m.Yx*m.Zy-m.Yy*m.Zx)
}

// upper3Inverse inverts the upper 3x3 submatrix, returned row-major.
func (m M4) upper3Inverse() (inv [9]float32, ok bool) {
	det := m.Det3()
	if AeqZ(det) {
		return inv, false
	}
	id := 1 / det
	inv[0] = (m.Yy*m.Zz - m.Yz*m.Zy) * id
	inv[1] = (m.Xz*m.Zy - m.Xy*m.Zz) * id
	inv[2] = (m.Xy*m.Yz - m.Xz*m.Yy) * id
	inv[3] = (m.Yz*m.Zx - m.Yx*m.Zz) * id
	inv[4] = (m.Xx*m.Zz - m.Xz*m.Zx) * id
	inv[5] = (m.Xz*m.Yx - m.Xx*m.Yz) * id
	inv[6] = (m.Yx*m.Zy - m.Yy*m.Zx) * id
	inv[7] = (m.Xy*m.Zx - m.Xx*m.Zy) * id
	inv[8] = (m.Xx*m.Yy - m.Xy*m.Yx) * id
	return inv, true
}

// InvertAffine inverts a matrix whose last row is (0,0,0,1). Returns
// the identity when the upper 3x3 is singular.
func (m M4) InvertAffine() M4 {
	inv, ok := m.upper3Inverse()
	if !ok {
		return M4I()
	}
	out := M4I()
	out.Xx, out.Xy, out.Xz = inv[0], inv[1], inv[2]
	out.Yx, out.Yy, out.Yz = inv[3], inv[4], inv[5]
	out.Zx, out.Zy, out.Zz = inv[6], inv[7], inv[8]
	t := V3{X: m.Xw, Y: m.Yw, Z: m.Zw}
	it := out.MultDir(t)
	out.Xw, out.Yw, out.Zw = -it.X, -it.Y, -it.Z
	return out
}

// Col returns column i of the upper 3x4 part. Used when serializing the
// entity local transform as 4 column vectors.
func (m M4) Col(i int) V3 {
	switch i {
	case 0:
		return V3{m.Xx, m.Yx, m.Zx}
	case 1:
		return V3{m.Xy, m.Yy, m.Zy}
	case 2:
		return V3{m.Xz, m.Yz, m.Zz}
	default:
		return V3{m.Xw, m.Yw, m.Zw}
	}
}
