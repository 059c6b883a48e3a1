// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bvh

// entity.go builds the top level scene hierarchy over entity bounding
// boxes. Entities must not be duplicated, so the scene build never uses
// splitting and keeps one entity per leaf record.

import (
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// EntityObject is the scene BVH input primitive: one placed shape.
type EntityObject struct {
	BBox       lin.Box // world space bounds
	EntityID   int32
	ShapeID    int32
	MaterialID int32
	User1ID    int32
	User2ID    int32
	Local      lin.M4 // local to world transform
	Flags      uint32
}

// EntityLeafSize is the serialized byte size of one entity leaf record.
const EntityLeafSize = 24 * 4

// SceneBVH is the built and serialized top level hierarchy.
type SceneBVH struct {
	Arity     int
	NodeCount int
	LeafCount int
	Nodes     []NaryNode
	Leaves    []byte
}

// entityLeafWriter emits one entity record per leaf primitive. The
// record interleaves the bounds with the ids, then the inverse-ready
// local matrix as four 3-element columns, then flags and material ids.
type entityLeafWriter struct {
	objects []EntityObject
	out     []byte
	leaves  int
}

func (w *entityLeafWriter) WriteLeaf(primIDs []int) int32 {
	ref := ^int32(w.leaves)
	for i, id := range primIDs {
		obj := &w.objects[id]
		entity := uint32(obj.EntityID)
		if i == len(primIDs)-1 {
			entity |= LeafTerminator
		}
		buf := &byteAppender{buf: w.out}
		s := scenedb.NewSerializer(buf)
		s.WriteV3(obj.BBox.Min)
		s.WriteU32(entity)
		s.WriteV3(obj.BBox.Max)
		s.WriteI32(obj.ShapeID)
		for col := 0; col < 4; col++ {
			s.WriteV3(obj.Local.Col(col))
		}
		s.WriteU32(obj.Flags)
		s.WriteI32(obj.MaterialID)
		s.WriteI32(obj.User1ID)
		s.WriteI32(obj.User2ID)
		w.out = buf.buf
		w.leaves++
	}
	return ref
}

// BuildScene builds the arity-wide hierarchy over the given entities.
// Leaf size one: every leaf record is a single entity.
func BuildScene(objects []EntityObject, arity int) *SceneBVH {
	bboxes := make([]lin.Box, len(objects))
	centers := make([]lin.V3, len(objects))
	for i := range objects {
		bboxes[i] = objects[i].BBox
		centers[i] = objects[i].BBox.Center()
	}

	bin := buildBinary(bboxes, centers, 1)
	nary := convertToNary(&bin, arity)
	lw := &entityLeafWriter{objects: objects}
	nodes := nary.flatten(&bin, lw)

	return &SceneBVH{
		Arity:     arity,
		NodeCount: len(nodes),
		LeafCount: lw.leaves,
		Nodes:     nodes,
		Leaves:    lw.out,
	}
}

// Serialize writes nodes and leaves into separate byte blobs for the
// scene database.
func (b *SceneBVH) Serialize() scenedb.SceneBVH {
	nodeBuf := &byteAppender{}
	s := scenedb.NewSerializer(nodeBuf)
	SerializeNodes(s, b.Nodes, b.Arity)
	return scenedb.SceneBVH{Nodes: nodeBuf.buf, Leaves: b.Leaves}
}
