// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bvh

// narity.go collapses the binary tree into N-ary nodes and emits the
// serialized node stream. Child index encoding: 0 is an empty slot,
// positive values are 1-based node indices, negative values bit-invert
// to an offset into the leaf stream.

import (
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// LeafTerminator marks the last primitive of a leaf group.
const LeafTerminator = 0x80000000

// NaryNode is one collapsed node with up to 8 child slots. Unused slots
// carry inverted infinity bounds and child index 0.
type NaryNode struct {
	Bounds [8][6]float32 // per slot: xmin, xmax, ymin, ymax, zmin, zmax
	Child  [8]int32
}

// naryBVH mirrors the binary tree with wider fan-out before the final
// depth-first flattening pass.
type naryBVH struct {
	arity int
	nodes []naryCluster
}

// naryCluster groups up to arity binary nodes under one parent.
type naryCluster struct {
	bbox      lin.Box
	children  int // number of used child slots, 0 for leaves
	firstID   int // first child cluster id, or first primitive offset
	primCount int // leaf: number of primitives
}

func (c *naryCluster) isLeaf() bool { return c.primCount > 0 }

// maxCollapseIter is how many interior expansions fill one N-ary node:
// the binary node contributes two children and every expansion replaces
// one child by its two, so arity-2 expansions reach arity children.
func maxCollapseIter(arity int) int {
	return arity - 2
}

// convertToNary folds pairs of binary levels into arity-wide clusters
// with the same BFS expansion the kernels were tuned for: repeatedly
// replace interior children with their own children until arity slots
// are filled or only leaves remain.
func convertToNary(bin *binaryBVH, arity int) *naryBVH {
	out := &naryBVH{arity: arity}
	if len(bin.nodes) == 0 {
		return out
	}
	root := &bin.nodes[0]
	out.nodes = append(out.nodes, clusterOf(root))
	if !root.isLeaf() {
		out.convertNode(bin, root, 0)
	}
	return out
}

func clusterOf(n *binaryNode) naryCluster {
	c := naryCluster{
		bbox:      n.bbox,
		children:  0,
		firstID:   n.firstChild,
		primCount: n.primCount,
	}
	if n.isLeaf() {
		c.firstID = n.firstPrim
	}
	return c
}

// convertNode expands one interior binary node into a cluster.
func (nb *naryBVH) convertNode(bin *binaryBVH, node *binaryNode, curID int) {
	if nb.arity == 2 {
		// Binary stays binary: copy the two children directly.
		nb.expand(bin, curID, []binaryNode{
			bin.nodes[node.firstChild], bin.nodes[node.firstChild+1]})
		return
	}

	maxIter := maxCollapseIter(nb.arity)
	queue := []binaryNode{bin.nodes[node.firstChild], bin.nodes[node.firstChild+1]}
	var children []binaryNode
	expansions := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.isLeaf() || expansions >= maxIter {
			children = append(children, cur)
		} else {
			queue = append(queue, bin.nodes[cur.firstChild], bin.nodes[cur.firstChild+1])
			expansions++
		}
	}
	nb.expand(bin, curID, children)
}

// expand records the children of cluster curID and recurses into the
// interior ones.
func (nb *naryBVH) expand(bin *binaryBVH, curID int, children []binaryNode) {
	first := len(nb.nodes)
	nb.nodes[curID].children = len(children)
	nb.nodes[curID].firstID = first
	for i := range children {
		nb.nodes = append(nb.nodes, clusterOf(&children[i]))
	}
	for i := range children {
		if !children[i].isLeaf() {
			nb.convertNode(bin, &children[i], first+i)
		}
	}
}

// LeafWriter serializes the primitives of one leaf and returns the
// encoded child index for the parent slot (already bit-inverted).
type LeafWriter interface {
	WriteLeaf(primIDs []int) int32
}

// flatten walks the N-ary clusters depth first, emitting final nodes
// and delegating leaves to the writer. Node ids handed to parents are
// 1-based.
func (nb *naryBVH) flatten(bin *binaryBVH, lw LeafWriter) []NaryNode {
	if len(nb.nodes) == 0 {
		return nil
	}
	var nodes []NaryNode

	var writeNode func(cluster *naryCluster, parent int, slot int)
	writeNode = func(cluster *naryCluster, parent int, slot int) {
		nodeID := len(nodes)
		if parent >= 0 {
			nodes[parent].Child[slot] = int32(nodeID) + 1 // ids are shifted by one
		}
		nodes = append(nodes, NaryNode{})

		for i := 0; i < cluster.children; i++ {
			src := &nb.nodes[cluster.firstID+i]
			setSlotBounds(&nodes[nodeID], i, src.bbox)
			if src.isLeaf() {
				ref := lw.WriteLeaf(bin.primIDs[src.firstID : src.firstID+src.primCount])
				nodes[nodeID].Child[i] = ref
			} else {
				writeNode(src, nodeID, i)
			}
		}
		for i := cluster.children; i < nb.arity; i++ {
			setSlotEmpty(&nodes[nodeID], i)
		}
	}

	root := &nb.nodes[0]
	if root.isLeaf() {
		// Root already a leaf: wrap it in a single node so traversal
		// always starts at a node record.
		nodeID := 0
		nodes = append(nodes, NaryNode{})
		setSlotBounds(&nodes[nodeID], 0, root.bbox)
		nodes[nodeID].Child[0] = lw.WriteLeaf(bin.primIDs[root.firstID : root.firstID+root.primCount])
		for i := 1; i < nb.arity; i++ {
			setSlotEmpty(&nodes[nodeID], i)
		}
		return nodes
	}
	writeNode(root, -1, 0)
	return nodes
}

func setSlotBounds(n *NaryNode, slot int, bbox lin.Box) {
	n.Bounds[slot] = [6]float32{
		bbox.Min.X, bbox.Max.X,
		bbox.Min.Y, bbox.Max.Y,
		bbox.Min.Z, bbox.Max.Z,
	}
}

func setSlotEmpty(n *NaryNode, slot int) {
	n.Bounds[slot] = [6]float32{
		lin.FltInf, -lin.FltInf,
		lin.FltInf, -lin.FltInf,
		lin.FltInf, -lin.FltInf,
	}
	n.Child[slot] = 0
}

// SerializeNodes writes the node stream in kernel layout. For arity
// above two each node is 6 groups of arity floats (per axis bound, all
// slots) followed by arity child ints; for arity two the two slot
// bounds are stored back to back followed by the two child ints.
func SerializeNodes(s *scenedb.Serializer, nodes []NaryNode, arity int) {
	for i := range nodes {
		n := &nodes[i]
		if arity > 2 {
			for k := 0; k < 6; k++ {
				for c := 0; c < arity; c++ {
					s.WriteF32(n.Bounds[c][k])
				}
			}
		} else {
			for c := 0; c < 2; c++ {
				for k := 0; k < 6; k++ {
					s.WriteF32(n.Bounds[c][k])
				}
			}
		}
		for c := 0; c < arity; c++ {
			s.WriteI32(n.Child[c])
		}
	}
}

// NodeSize returns the serialized byte size of one node: six bounds
// per slot plus one child index per slot.
func NodeSize(arity int) int { return arity*6*4 + arity*4 }
