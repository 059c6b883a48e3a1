// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bvh

// tri.go adapts triangle meshes into BVH input and writes the triangle
// packet leaves. Packets store M triangles SoA so the SIMD kernels load
// one lane per triangle.

import (
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
	"github.com/ignis-render/ignis/scenedb"
)

// TriangleProxy is the precomputed per-triangle record kept in leaves:
// one corner plus the two edges e1 = p2-p0 and e2 = p0-p1, the stable
// geometric normal, and the source primitive id.
type TriangleProxy struct {
	P0     lin.V3
	E1     lin.V3 // p2 - p0
	E2     lin.V3 // p0 - p1
	N      lin.V3
	PrimID int32
}

// NewTriangleProxy builds the proxy from the three corners.
func NewTriangleProxy(p0, p1, p2 lin.V3, primID int32) TriangleProxy {
	e1 := p2.Sub(p0)
	e2 := p0.Sub(p1)
	return TriangleProxy{
		P0:     p0,
		E1:     e1,
		E2:     e2,
		N:      stableTriangleNormal(e1, e2, p1.Sub(p2)),
		PrimID: primID,
	}
}

// stableTriangleNormal picks per component between the two cross
// products so the normal stays numerically stable for thin triangles.
func stableTriangleNormal(a, b, c lin.V3) lin.V3 {
	abX, abY, abZ := a.Z*b.Y, a.X*b.Z, a.Y*b.X
	bcX, bcY, bcZ := b.Z*c.Y, b.X*c.Z, b.Y*c.X
	crossAB := lin.V3{X: a.Y*b.Z - abX, Y: a.Z*b.X - abY, Z: a.X*b.Y - abZ}
	crossBC := lin.V3{X: b.Y*c.Z - bcX, Y: b.Z*c.X - bcY, Z: b.X*c.Y - bcZ}
	pick := func(ab, bc, ca, cb float32) float32 {
		if lin.Abs(ab) < lin.Abs(bc) {
			return ca
		}
		return cb
	}
	return lin.V3{
		X: pick(abX, bcX, crossAB.X, crossBC.X),
		Y: pick(abY, bcY, crossAB.Y, crossBC.Y),
		Z: pick(abZ, bcZ, crossAB.Z, crossBC.Z),
	}
}

// P1 returns the second corner.
func (t *TriangleProxy) P1() lin.V3 { return t.P0.Sub(t.E2) }

// P2 returns the third corner.
func (t *TriangleProxy) P2() lin.V3 { return t.P0.Add(t.E1) }

// BBox returns the triangle bounds.
func (t *TriangleProxy) BBox() lin.Box {
	return lin.EmptyBox().Extend(t.P0).Extend(t.P1()).Extend(t.P2())
}

// Center returns the triangle centroid.
func (t *TriangleProxy) Center() lin.V3 {
	return t.P0.Add(t.P1()).Add(t.P2()).Scale(1.0 / 3.0)
}

// Area returns the triangle area.
func (t *TriangleProxy) Area() float32 { return t.N.Len() * 0.5 }

// TriMeshBVH is a built and serialized triangle hierarchy.
type TriMeshBVH struct {
	Arity      int
	PacketSize int
	NodeCount  int
	TriCount   int // number of emitted packets
	Nodes      []NaryNode
	Tris       []byte // serialized packet stream
}

// padLane marks unused packet lanes.
const padLane = 0xFFFFFFFF

// triLeafWriter emits triangle packets of size M.
type triLeafWriter struct {
	packetSize int
	primitives []TriangleProxy
	out        []byte
	packets    int
}

// WriteLeaf groups the leaf's triangles into packets, marking the final
// primitive of the group with the terminator bit.
func (w *triLeafWriter) WriteLeaf(primIDs []int) int32 {
	ref := ^int32(w.packets)

	m := w.packetSize
	if m == 1 {
		for i, id := range primIDs {
			tri := &w.primitives[id]
			prim := uint32(tri.PrimID)
			if i == len(primIDs)-1 {
				prim |= LeafTerminator
			}
			w.out = appendTri1(w.out, tri, prim)
			w.packets++
		}
		return ref
	}

	for i := 0; i < len(primIDs); i += m {
		c := m
		if i+c > len(primIDs) {
			c = len(primIDs) - i
		}
		var lanes [4]*TriangleProxy
		var prims [4]uint32
		for j := 0; j < m; j++ {
			if j < c {
				lanes[j] = &w.primitives[primIDs[i+j]]
				prims[j] = uint32(lanes[j].PrimID)
			} else {
				prims[j] = padLane
			}
		}
		if i+c == len(primIDs) {
			prims[m-1] |= LeafTerminator
		}
		w.out = appendTriPacket(w.out, lanes[:m], prims[:m])
		w.packets++
	}
	return ref
}

// appendTri1 writes one single-triangle packet: v0, e1, e2, n then the
// primitive id.
func appendTri1(out []byte, tri *TriangleProxy, prim uint32) []byte {
	buf := &byteAppender{buf: out}
	s := scenedb.NewSerializer(buf)
	s.WriteV3(tri.P0)
	s.WriteV3(tri.E1)
	s.WriteV3(tri.E2)
	s.WriteV3(tri.N)
	s.WriteU32(prim)
	return buf.buf
}

// appendTriPacket writes one SoA packet: each of v0, e1, e2, n as three
// component groups of m lanes, then m primitive ids. Pad lanes carry
// zero geometry.
func appendTriPacket(out []byte, lanes []*TriangleProxy, prims []uint32) []byte {
	buf := &byteAppender{buf: out}
	s := scenedb.NewSerializer(buf)
	fields := []func(t *TriangleProxy) lin.V3{
		func(t *TriangleProxy) lin.V3 { return t.P0 },
		func(t *TriangleProxy) lin.V3 { return t.E1 },
		func(t *TriangleProxy) lin.V3 { return t.E2 },
		func(t *TriangleProxy) lin.V3 { return t.N },
	}
	for _, field := range fields {
		for comp := 0; comp < 3; comp++ {
			for _, tri := range lanes {
				var v lin.V3
				if tri != nil {
					v = field(tri)
				}
				switch comp {
				case 0:
					s.WriteF32(v.X)
				case 1:
					s.WriteF32(v.Y)
				default:
					s.WriteF32(v.Z)
				}
			}
		}
	}
	for _, p := range prims {
		s.WriteU32(p)
	}
	return buf.buf
}

// byteAppender adapts a byte slice to the serializer.
type byteAppender struct {
	buf []byte
}

func (b *byteAppender) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// TriPacketSize returns the serialized byte size of one packet.
func TriPacketSize(m int) int {
	if m == 1 {
		return 12*4 + 4
	}
	return 4*3*m*4 + m*4
}

// BuildTriMesh builds the (arity, packetSize) hierarchy over a mesh.
func BuildTriMesh(m *mesh.TriMesh, arity, packetSize int) *TriMeshBVH {
	faces := m.FaceCount()
	primitives := make([]TriangleProxy, faces)
	bboxes := make([]lin.Box, faces)
	centers := make([]lin.V3, faces)
	for i := 0; i < faces; i++ {
		v0, v1, v2 := m.Face(i)
		primitives[i] = NewTriangleProxy(v0, v1, v2, int32(i))
		bboxes[i] = primitives[i].BBox()
		centers[i] = primitives[i].Center()
	}

	bin := buildBinary(bboxes, centers, packetSize)
	nary := convertToNary(&bin, arity)
	lw := &triLeafWriter{packetSize: packetSize, primitives: primitives}
	nodes := nary.flatten(&bin, lw)

	return &TriMeshBVH{
		Arity:      arity,
		PacketSize: packetSize,
		NodeCount:  len(nodes),
		TriCount:   lw.packets,
		Nodes:      nodes,
		Tris:       lw.out,
	}
}

// Serialize writes the blob the shape provider stores in the fixed BVH
// pool: counts, padding, node stream, packet stream.
func (b *TriMeshBVH) Serialize(s *scenedb.Serializer) {
	s.WriteU32(uint32(b.NodeCount))
	s.WriteU32(uint32(b.TriCount))
	s.WriteU32(0)
	s.WriteU32(0)
	SerializeNodes(s, b.Nodes, b.Arity)
	s.WriteBytes(b.Tris)
}
