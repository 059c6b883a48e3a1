// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "testing"

func TestAeq(t *testing.T) {
	if !Aeq(1.0, 1.0+Epsilon/2) {
		t.Error("values within epsilon should be almost equal")
	}
	if Aeq(1.0, 1.0+Epsilon*2) {
		t.Error("values beyond epsilon should differ")
	}
}

func TestCross(t *testing.T) {
	got := UnitX().Cross(UnitY())
	if !got.Aeq(UnitZ()) {
		t.Errorf("x cross y = %v, want unit z", got)
	}
}

func TestUnitZeroVector(t *testing.T) {
	z := V3{}
	if got := z.Unit(); !got.Eq(z) {
		t.Errorf("normalizing zero vector changed it to %v", got)
	}
}

func TestFrameOrthonormal(t *testing.T) {
	for _, n := range []V3{UnitX(), UnitY(), UnitZ(), NewV3(1, 2, 3).Unit()} {
		nx, ny := n.Frame()
		if !AeqZ(nx.Dot(n)) || !AeqZ(ny.Dot(n)) || !AeqZ(nx.Dot(ny)) {
			t.Errorf("frame around %v is not orthogonal", n)
		}
		if !Aeq(nx.Len(), 1) || !Aeq(ny.Len(), 1) {
			t.Errorf("frame around %v is not normalized", n)
		}
	}
}

func TestM4MultPoint(t *testing.T) {
	m := M4Translate(NewV3(1, 2, 3)).Mult(M4Scale(2))
	got := m.MultPoint(NewV3(1, 1, 1))
	if !got.Aeq(NewV3(3, 4, 5)) {
		t.Errorf("translate(1,2,3)*scale(2) applied to (1,1,1) = %v, want (3,4,5)", got)
	}
}

func TestM4MultNormalUniformScale(t *testing.T) {
	// Uniform scale must keep normal direction.
	m := M4Scale(3)
	got := m.MultNormal(UnitY()).Unit()
	if !got.Aeq(UnitY()) {
		t.Errorf("normal after uniform scale = %v, want unit y", got)
	}
}

func TestBoxExtend(t *testing.T) {
	b := EmptyBox()
	if !b.IsEmpty() {
		t.Fatal("empty box reports non-empty")
	}
	b = b.Extend(NewV3(-1, 0, 0)).Extend(NewV3(1, 2, 3))
	if b.IsEmpty() {
		t.Fatal("extended box reports empty")
	}
	if !b.Center().Aeq(NewV3(0, 1, 1.5)) {
		t.Errorf("center = %v", b.Center())
	}
	if !Aeq(b.Volume(), 2*2*3) {
		t.Errorf("volume = %v", b.Volume())
	}
}

func TestBoxTransform(t *testing.T) {
	b := NewBox(NewV3(-1, -1, -1), NewV3(1, 1, 1))
	got := b.Transform(M4Translate(NewV3(5, 0, 0)))
	if !got.Min.Aeq(NewV3(4, -1, -1)) || !got.Max.Aeq(NewV3(6, 1, 1)) {
		t.Errorf("translated box = %v", got)
	}
}
