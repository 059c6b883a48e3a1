// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package bvh builds the bounding volume hierarchies consumed by the
// traversal kernels. Construction is two staged: a binary SAH sweep
// builder runs over the primitive bounds, then pairs of binary levels
// are collapsed into N-ary nodes (N of 2, 4 or 8) and serialized into
// the exact node and leaf records the kernels read.
package bvh

import (
	"sort"

	"github.com/ignis-render/ignis/math/lin"
)

// binaryNode is one node of the intermediate binary tree. Leaves store
// their primitive range in the builder's primIDs array.
type binaryNode struct {
	bbox       lin.Box
	firstChild int // index of left child; right is firstChild+1
	firstPrim  int // leaf: offset into primIDs
	primCount  int // leaf: number of primitives, 0 for interior nodes
}

func (n *binaryNode) isLeaf() bool { return n.primCount > 0 }

// binaryBVH is the output of the sweep builder.
type binaryBVH struct {
	nodes   []binaryNode
	primIDs []int
}

// builder carries the immutable primitive data during construction.
type builder struct {
	bboxes      []lin.Box
	centers     []lin.V3
	maxLeafSize int
	out         binaryBVH
}

// buildBinary runs a full SAH sweep build. The returned tree is
// deterministic for identical input: sorts are stable and ties resolve
// to the lower index, which keeps leaf primitive order reproducible.
func buildBinary(bboxes []lin.Box, centers []lin.V3, maxLeafSize int) binaryBVH {
	if maxLeafSize < 1 {
		maxLeafSize = 1
	}
	b := &builder{bboxes: bboxes, centers: centers, maxLeafSize: maxLeafSize}
	b.out.primIDs = make([]int, len(bboxes))
	for i := range b.out.primIDs {
		b.out.primIDs[i] = i
	}
	if len(bboxes) == 0 {
		return b.out
	}
	b.out.nodes = append(b.out.nodes, binaryNode{})
	b.buildNode(0, 0, len(bboxes))
	return b.out
}

// buildNode recursively splits the primIDs range [begin, end).
func (b *builder) buildNode(nodeID, begin, end int) {
	bbox := lin.EmptyBox()
	for _, id := range b.out.primIDs[begin:end] {
		bbox = bbox.ExtendBox(b.bboxes[id])
	}
	b.out.nodes[nodeID].bbox = bbox

	count := end - begin
	if count <= b.maxLeafSize {
		b.makeLeaf(nodeID, begin, count)
		return
	}

	axis, mid, ok := b.findSplit(begin, end)
	if !ok {
		// SAH found no usable split. Ranges of coincident centers can
		// never split; accept the oversized leaf. Everything else
		// falls back to a median split on the widest axis.
		if !b.splittable(begin, end) {
			b.makeLeaf(nodeID, begin, count)
			return
		}
		b.sortRange(bbox.Diameter().MaxAxis(), begin, end)
		b.split(nodeID, begin, (begin+end)/2, end)
		return
	}

	b.sortRange(axis, begin, end)
	b.split(nodeID, begin, mid, end)
}

// splittable reports whether a range with a poor SAH split can still be
// divided. Ranges with identical centers cannot be usefully split.
func (b *builder) splittable(begin, end int) bool {
	first := b.centers[b.out.primIDs[begin]]
	for _, id := range b.out.primIDs[begin+1 : end] {
		if !b.centers[id].Eq(first) {
			return true
		}
	}
	return false
}

func (b *builder) makeLeaf(nodeID, begin, count int) {
	b.out.nodes[nodeID].firstPrim = begin
	b.out.nodes[nodeID].primCount = count
}

func (b *builder) split(nodeID, begin, mid, end int) {
	left := len(b.out.nodes)
	b.out.nodes = append(b.out.nodes, binaryNode{}, binaryNode{})
	b.out.nodes[nodeID].firstChild = left
	b.out.nodes[nodeID].primCount = 0
	b.buildNode(left, begin, mid)
	b.buildNode(left+1, mid, end)
}

// sortRange stably orders the id range by centroid along axis.
func (b *builder) sortRange(axis, begin, end int) {
	ids := b.out.primIDs[begin:end]
	sort.SliceStable(ids, func(i, j int) bool {
		ci := b.centers[ids[i]].At(axis)
		cj := b.centers[ids[j]].At(axis)
		if ci != cj {
			return ci < cj
		}
		return ids[i] < ids[j]
	})
}

// findSplit sweeps all three axes and returns the cheapest SAH split
// position, or ok=false when no split position has a finite cost. The
// cost of keeping the range as one leaf is not evaluated.
func (b *builder) findSplit(begin, end int) (axis, mid int, ok bool) {
	count := end - begin
	bestCost := lin.FltInf
	bestAxis, bestMid := -1, -1

	rightArea := make([]float32, count)
	for a := 0; a < 3; a++ {
		b.sortRange(a, begin, end)
		ids := b.out.primIDs[begin:end]

		// Suffix sweep accumulates right-side areas.
		acc := lin.EmptyBox()
		for i := count - 1; i > 0; i-- {
			acc = acc.ExtendBox(b.bboxes[ids[i]])
			rightArea[i] = acc.HalfArea()
		}
		// Prefix sweep evaluates every split position.
		acc = lin.EmptyBox()
		for i := 1; i < count; i++ {
			acc = acc.ExtendBox(b.bboxes[ids[i-1]])
			cost := acc.HalfArea()*float32(i) + rightArea[i]*float32(count-i)
			if cost < bestCost {
				bestCost = cost
				bestAxis = a
				bestMid = begin + i
			}
		}
	}
	if bestAxis < 0 || bestCost >= lin.FltInf {
		return 0, 0, false
	}
	return bestAxis, bestMid, true
}
