// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package load

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ignis-render/ignis/math/lin"
)

const cubeObj = `
o cube_face
v -1 -1 0
v 1 -1 0
v 1 1 0
v -1 1 0
vn 0 0 1
vt 0 0
vt 1 0
vt 1 1
vt 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
`

func TestObjQuadFan(t *testing.T) {
	m, err := Obj(strings.NewReader(cubeObj), -1)
	if err != nil {
		t.Fatalf("obj load failed: %v", err)
	}
	m.Validate()
	if m.FaceCount() != 2 {
		t.Errorf("quad should fan into 2 faces, got %d", m.FaceCount())
	}
	if len(m.Vertices) != 4 {
		t.Errorf("vertex count = %d, want 4", len(m.Vertices))
	}
	for _, n := range m.Normals {
		if !n.Aeq(lin.UnitZ()) {
			t.Errorf("normal = %v, want unit z", n)
		}
	}
}

func TestObjNegativeIndices(t *testing.T) {
	src := `
o tri
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`
	m, err := Obj(strings.NewReader(src), -1)
	if err != nil {
		t.Fatalf("obj load failed: %v", err)
	}
	if m.FaceCount() != 1 {
		t.Errorf("face count = %d", m.FaceCount())
	}
}

func TestObjEmpty(t *testing.T) {
	if _, err := Obj(strings.NewReader("o nothing\n"), -1); err == nil {
		t.Error("empty obj should fail")
	}
}

func TestPlyAscii(t *testing.T) {
	src := `ply
format ascii 1.0
element vertex 3
property float x
property float y
property float z
element face 1
property list uchar int vertex_indices
end_header
0 0 0
1 0 0
0 1 0
3 0 1 2
`
	m, err := Ply(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ply load failed: %v", err)
	}
	m.Validate()
	if m.FaceCount() != 1 || len(m.Vertices) != 3 {
		t.Errorf("faces=%d verts=%d", m.FaceCount(), len(m.Vertices))
	}
	// Normals computed since the file has none.
	if len(m.Normals) != 3 {
		t.Errorf("normals not computed: %d", len(m.Normals))
	}
}

func TestPlyBinary(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\n")
	buf.WriteString("element vertex 3\nproperty float x\nproperty float y\nproperty float z\n")
	buf.WriteString("element face 1\nproperty list uchar uint vertex_indices\nend_header\n")
	verts := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	for _, f := range verts {
		binary.Write(&buf, binary.LittleEndian, f)
	}
	buf.WriteByte(3)
	for _, id := range []uint32{0, 1, 2} {
		binary.Write(&buf, binary.LittleEndian, id)
	}

	m, err := Ply(&buf)
	if err != nil {
		t.Fatalf("binary ply load failed: %v", err)
	}
	if m.FaceCount() != 1 {
		t.Errorf("face count = %d", m.FaceCount())
	}
	if !m.Vertices[1].Aeq(lin.UnitX()) {
		t.Errorf("vertex 1 = %v", m.Vertices[1])
	}
}

// buildMts serializes a version 4 container with one triangle shape.
func buildMts(t *testing.T) []byte {
	t.Helper()
	var shape bytes.Buffer
	zw := zlib.NewWriter(&shape)
	binary.Write(zw, binary.LittleEndian, uint32(mtsVertexNormals|mtsFloat))
	zw.Write([]byte("tri\x00"))
	binary.Write(zw, binary.LittleEndian, uint64(3)) // vertices
	binary.Write(zw, binary.LittleEndian, uint64(1)) // triangles
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(zw, binary.LittleEndian, f)
	}
	for i := 0; i < 3; i++ { // unit z normals
		for _, f := range []float32{0, 0, 1} {
			binary.Write(zw, binary.LittleEndian, f)
		}
	}
	for _, id := range []uint32{0, 1, 2} {
		binary.Write(zw, binary.LittleEndian, id)
	}
	zw.Close()

	var file bytes.Buffer
	binary.Write(&file, binary.LittleEndian, uint16(mtsIdent))
	binary.Write(&file, binary.LittleEndian, uint16(4))
	file.Write(shape.Bytes())
	binary.Write(&file, binary.LittleEndian, uint64(0)) // shape 0 offset
	binary.Write(&file, binary.LittleEndian, uint32(1)) // shape count
	return file.Bytes()
}

func TestMts(t *testing.T) {
	m, err := Mts(buildMts(t), 0)
	if err != nil {
		t.Fatalf("mts load failed: %v", err)
	}
	m.Validate()
	if m.FaceCount() != 1 || len(m.Vertices) != 3 {
		t.Errorf("faces=%d verts=%d", m.FaceCount(), len(m.Vertices))
	}
	if !m.Normals[0].Aeq(lin.UnitZ()) {
		t.Errorf("normal = %v", m.Normals[0])
	}
}

func TestMtsBadIdent(t *testing.T) {
	data := buildMts(t)
	data[0] = 0
	if _, err := Mts(data, 0); err == nil {
		t.Error("corrupted ident should fail")
	}
}

func TestMtsBadIndex(t *testing.T) {
	if _, err := Mts(buildMts(t), 3); err == nil {
		t.Error("out of range shape index should fail")
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cases := [][]byte{
		{},
		[]byte("hello"),
		bytes.Repeat([]byte{0xAB}, 4096), // very compressible
	}
	random := make([]byte, 1023) // incompressible
	rng.Read(random)
	cases = append(cases, random)

	for i, data := range cases {
		var buf bytes.Buffer
		if err := WriteLZ4Buffer(&buf, data); err != nil {
			t.Fatalf("case %d write: %v", i, err)
		}
		got, err := ReadLZ4Buffer(&buf)
		if err != nil {
			t.Fatalf("case %d read: %v", i, err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("case %d round trip mismatch: %d bytes vs %d", i, len(got), len(data))
		}
	}
}

func TestLZ4FloatRoundTrip(t *testing.T) {
	// Typed array round trip as used for cached buffers.
	vals := make([]byte, 0, 400)
	for i := 0; i < 100; i++ {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(i)*0.5))
		vals = append(vals, b[:]...)
	}
	var buf bytes.Buffer
	if err := WriteLZ4Buffer(&buf, vals); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLZ4Buffer(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, vals) {
		t.Error("typed round trip mismatch")
	}
}

func TestSkipLZ4Buffer(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteLZ4Buffer(&buf, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := WriteLZ4Buffer(&buf, []byte("second record")); err != nil {
		t.Fatal(err)
	}
	if err := SkipLZ4Buffer(&buf); err != nil {
		t.Fatal(err)
	}
	got, err := ReadLZ4Buffer(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "second record" {
		t.Errorf("after skip read %q", got)
	}
}

func TestLocator(t *testing.T) {
	dir := t.TempDir()
	name := "shape.obj"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(cubeObj), 0o644); err != nil {
		t.Fatal(err)
	}
	l := NewLocator(dir)
	p, err := l.Resolve(name)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if p != filepath.Join(dir, name) {
		t.Errorf("resolved to %s", p)
	}
	if _, err := l.Resolve("missing.obj"); err == nil {
		t.Error("missing file should not resolve")
	}
}

func TestExt(t *testing.T) {
	if got := Ext("/a/b/Mesh.OBJ"); got != "obj" {
		t.Errorf("ext = %q", got)
	}
}
