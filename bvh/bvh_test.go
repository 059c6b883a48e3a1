// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bvh

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
	"github.com/ignis-render/ignis/scenedb"
)

// randomMesh builds a soup of count triangles spread through a cube.
func randomMesh(count int, seed int64) *mesh.TriMesh {
	rng := rand.New(rand.NewSource(seed))
	m := &mesh.TriMesh{}
	rv := func() lin.V3 {
		return lin.NewV3(rng.Float32()*20-10, rng.Float32()*20-10, rng.Float32()*20-10)
	}
	for i := 0; i < count; i++ {
		base := rv()
		off := uint32(len(m.Vertices))
		m.Vertices = append(m.Vertices,
			base,
			base.Add(lin.NewV3(rng.Float32()+0.1, 0, 0)),
			base.Add(lin.NewV3(0, rng.Float32()+0.1, 0)))
		m.Indices = append(m.Indices, off, off+1, off+2, 0)
	}
	m.ComputeVertexNormals()
	return m
}

// checkNodeInvariants walks a node stream validating child references
// and empty slot padding.
func checkNodeInvariants(t *testing.T, nodes []NaryNode, arity, leafCount int) {
	t.Helper()
	for id, n := range nodes {
		for c := 0; c < arity; c++ {
			child := n.Child[c]
			switch {
			case child == 0: // empty slot: inverted infinity bounds
				b := n.Bounds[c]
				if b[0] != lin.FltInf || b[1] != -lin.FltInf {
					t.Fatalf("node %d slot %d: empty slot bounds %v", id, c, b)
				}
			case child > 0:
				if int(child) > len(nodes) {
					t.Fatalf("node %d slot %d: child %d beyond %d nodes", id, c, child, len(nodes))
				}
			default:
				off := int(^child)
				if off < 0 || off >= leafCount {
					t.Fatalf("node %d slot %d: leaf offset %d beyond %d leaves", id, c, off, leafCount)
				}
			}
		}
	}
}

func TestTriMeshBVHInvariants(t *testing.T) {
	m := randomMesh(300, 42)
	for _, shape := range []struct{ n, m int }{{2, 1}, {4, 4}, {8, 4}} {
		b := BuildTriMesh(m, shape.n, shape.m)
		if b.NodeCount == 0 || b.TriCount == 0 {
			t.Fatalf("(%d,%d): empty bvh", shape.n, shape.m)
		}
		checkNodeInvariants(t, b.Nodes, shape.n, b.TriCount)

		if len(b.Tris) != b.TriCount*TriPacketSize(shape.m) {
			t.Errorf("(%d,%d): tri stream %d bytes, want %d packets x %d",
				shape.n, shape.m, len(b.Tris), b.TriCount, TriPacketSize(shape.m))
		}
	}
}

func TestTriLeafTerminators(t *testing.T) {
	m := randomMesh(100, 7)
	b := BuildTriMesh(m, 8, 4)

	// Every leaf group referenced from a node must terminate exactly at
	// its last packet: scanning packets from the leaf offset, the first
	// packet whose last lane has the high bit set ends the group.
	prims := scenedb.U32View(b.Tris)
	lanes := 4
	stride := TriPacketSize(4) / 4
	seen := map[int]bool{}
	for _, n := range b.Nodes {
		for c := 0; c < 8; c++ {
			if n.Child[c] >= 0 {
				continue
			}
			off := int(^n.Child[c])
			if seen[off] {
				continue
			}
			seen[off] = true
			terminated := false
			for p := off; p < b.TriCount; p++ {
				last := prims[p*stride+stride-lanes+lanes-1]
				if last&LeafTerminator != 0 {
					terminated = true
					break
				}
			}
			if !terminated {
				t.Fatalf("leaf group at %d never terminates", off)
			}
		}
	}

	// All primitive ids must reference real faces once pad lanes and the
	// terminator bit are masked off.
	for p := 0; p < b.TriCount; p++ {
		for l := 0; l < lanes; l++ {
			id := prims[p*stride+stride-lanes+l]
			if id == 0xFFFFFFFF {
				continue // pad lane
			}
			id &^= LeafTerminator
			if int(id) >= m.FaceCount() {
				t.Fatalf("packet %d lane %d: prim id %d beyond %d faces", p, l, id, m.FaceCount())
			}
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	m := randomMesh(200, 99)
	a := BuildTriMesh(m, 4, 4)
	b := BuildTriMesh(m, 4, 4)
	if diff := cmp.Diff(a.Nodes, b.Nodes); diff != "" {
		t.Errorf("node stream differs between identical builds:\n%s", diff)
	}
	if diff := cmp.Diff(a.Tris, b.Tris); diff != "" {
		t.Errorf("leaf stream differs between identical builds:\n%s", diff)
	}
}

func TestSingleTriangleRootLeaf(t *testing.T) {
	m := mesh.MakeTriangle(lin.V3{}, lin.UnitX(), lin.UnitY())
	b := BuildTriMesh(m, 8, 4)
	if b.NodeCount != 1 {
		t.Fatalf("single triangle should produce one wrapper node, got %d", b.NodeCount)
	}
	if b.Nodes[0].Child[0] >= 0 {
		t.Fatal("wrapper node child 0 should reference a leaf")
	}
	for c := 1; c < 8; c++ {
		if b.Nodes[0].Child[c] != 0 {
			t.Fatalf("slot %d of wrapper should be empty", c)
		}
	}
	prims := scenedb.U32View(b.Tris)
	stride := TriPacketSize(4) / 4
	if prims[stride-1]&LeafTerminator == 0 {
		t.Error("sole packet missing terminator")
	}
}

func TestNodeSerializationSize(t *testing.T) {
	m := randomMesh(50, 3)
	for _, arity := range []int{2, 4, 8} {
		pkt := 4
		if arity == 2 {
			pkt = 1
		}
		b := BuildTriMesh(m, arity, pkt)
		buf := &byteAppender{}
		s := scenedb.NewSerializer(buf)
		SerializeNodes(s, b.Nodes, arity)
		if len(buf.buf) != b.NodeCount*NodeSize(arity) {
			t.Errorf("arity %d: serialized %d bytes, want %d nodes x %d",
				arity, len(buf.buf), b.NodeCount, NodeSize(arity))
		}
	}
}

func TestSceneBVH(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var objs []EntityObject
	for i := 0; i < 25; i++ {
		c := lin.NewV3(rng.Float32()*40-20, rng.Float32()*40-20, rng.Float32()*40-20)
		objs = append(objs, EntityObject{
			BBox:       lin.NewBox(c.Sub(lin.NewV3(1, 1, 1)), c.Add(lin.NewV3(1, 1, 1))),
			EntityID:   int32(i),
			ShapeID:    int32(i % 3),
			MaterialID: int32(i % 2),
			Local:      lin.M4Translate(c),
		})
	}
	b := BuildScene(objs, 2)
	checkNodeInvariants(t, b.Nodes, 2, b.LeafCount)

	if b.LeafCount != len(objs) {
		t.Errorf("leaf count = %d, want one per entity", b.LeafCount)
	}
	if len(b.Leaves) != b.LeafCount*EntityLeafSize {
		t.Errorf("leaf stream = %d bytes, want %d x %d", len(b.Leaves), b.LeafCount, EntityLeafSize)
	}

	// No entity appears twice: the scene build never splits.
	ids := map[int32]int{}
	words := scenedb.U32View(b.Leaves)
	for l := 0; l < b.LeafCount; l++ {
		id := int32(words[l*24+3] &^ LeafTerminator)
		ids[id]++
	}
	for id, n := range ids {
		if n != 1 {
			t.Errorf("entity %d appears %d times", id, n)
		}
	}

	ser := b.Serialize()
	if len(ser.Nodes) != b.NodeCount*NodeSize(2) {
		t.Errorf("serialized nodes = %d bytes", len(ser.Nodes))
	}
}
