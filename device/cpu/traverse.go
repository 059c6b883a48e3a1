// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// traverse.go walks the serialized N-ary BVH streams. Both levels use
// the same node layout; the scene level resolves entity leaves and
// recurses into the per shape triangle level in local space.

import (
	"math"

	"github.com/ignis-render/ignis/math/lin"
)

// hit is the closest intersection found along a ray.
type hit struct {
	t        float32
	u, v     float32 // barycentrics of the triangle hit
	primID   int32   // face index inside the shape
	entityID int32
	valid    bool
}

// ray carries precomputed inverse directions for slab tests.
type ray struct {
	org  lin.V3
	dir  lin.V3
	inv  lin.V3
	tmin float32
	tmax float32
}

func newRay(org, dir lin.V3, tmin, tmax float32) ray {
	inv := lin.V3{X: safeInv(dir.X), Y: safeInv(dir.Y), Z: safeInv(dir.Z)}
	return ray{org: org, dir: dir, inv: inv, tmin: tmin, tmax: tmax}
}

func safeInv(v float32) float32 {
	if lin.Abs(v) < 1e-12 {
		if math.Signbit(float64(v)) {
			return float32(math.Inf(-1))
		}
		return float32(math.Inf(1))
	}
	return 1 / v
}

// nodeBounds reads slot c of node at word offset base.
func nodeBounds(nodes []float32, arity, base, c int) (bmin, bmax lin.V3) {
	if arity > 2 {
		// SoA: 6 groups of arity floats.
		return lin.NewV3(nodes[base+0*arity+c], nodes[base+2*arity+c], nodes[base+4*arity+c]),
			lin.NewV3(nodes[base+1*arity+c], nodes[base+3*arity+c], nodes[base+5*arity+c])
	}
	o := base + c*6
	return lin.NewV3(nodes[o], nodes[o+2], nodes[o+4]),
		lin.NewV3(nodes[o+1], nodes[o+3], nodes[o+5])
}

// nodeChild reads the child index of slot c.
func nodeChild(nodes []float32, arity, base, c int) int32 {
	return int32(math.Float32bits(nodes[base+6*arity+c]))
}

// slabTest intersects the ray with a bounding box, returning entry
// distance and whether it hits within [tmin, tmax].
func slabTest(r *ray, bmin, bmax lin.V3, tmax float32) (float32, bool) {
	t0 := (bmin.X - r.org.X) * r.inv.X
	t1 := (bmax.X - r.org.X) * r.inv.X
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	ty0 := (bmin.Y - r.org.Y) * r.inv.Y
	ty1 := (bmax.Y - r.org.Y) * r.inv.Y
	if ty0 > ty1 {
		ty0, ty1 = ty1, ty0
	}
	t0 = lin.Max(t0, ty0)
	t1 = lin.Min(t1, ty1)
	tz0 := (bmin.Z - r.org.Z) * r.inv.Z
	tz1 := (bmax.Z - r.org.Z) * r.inv.Z
	if tz0 > tz1 {
		tz0, tz1 = tz1, tz0
	}
	t0 = lin.Max(t0, tz0)
	t1 = lin.Min(t1, tz1)
	if t1 < t0 || t1 < r.tmin || t0 > tmax {
		return 0, false
	}
	return t0, true
}

// intersectScene finds the closest surface hit.
func (sv *sceneView) intersectScene(r ray) hit {
	var best hit
	best.t = r.tmax
	sv.walkScene(&r, func(ent *entityView, tmax float32) {
		local := newRay(
			ent.toLocal.MultPoint(r.org),
			ent.toLocal.MultDir(r.dir),
			r.tmin, tmax)
		sh := &sv.shapes[ent.shapeID]
		if h, ok := sv.intersectShape(sh, local); ok && h.t < best.t {
			best = h
			best.entityID = ent.entityID
			best.valid = true
		}
	}, func() float32 { return best.t })
	if !best.valid {
		best.t = r.tmax
	}
	return best
}

// occluded reports whether anything blocks [tmin, tmax] along the ray.
func (sv *sceneView) occluded(r ray) bool {
	blocked := false
	sv.walkScene(&r, func(ent *entityView, tmax float32) {
		if blocked {
			return
		}
		local := newRay(
			ent.toLocal.MultPoint(r.org),
			ent.toLocal.MultDir(r.dir),
			r.tmin, tmax)
		sh := &sv.shapes[ent.shapeID]
		if _, ok := sv.intersectShape(sh, local); ok {
			blocked = true
		}
	}, func() float32 {
		if blocked {
			return -1 // stop descending
		}
		return r.tmax
	})
	return blocked
}

// walkScene visits every entity leaf whose bounds the ray enters.
// tmaxFn rereads the current closest distance so pruning tightens as
// hits are found.
func (sv *sceneView) walkScene(r *ray, visit func(*entityView, float32), tmaxFn func() float32) {
	if len(sv.sceneNodes) == 0 || len(sv.entities) == 0 {
		return
	}
	arity := sv.arity
	stride := nodeSizeWords(arity)
	stack := make([]int32, 0, 64)
	stack = append(stack, 1) // 1-based root

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		tmax := tmaxFn()
		if tmax < 0 {
			return
		}
		base := int(cur-1) * stride
		for c := 0; c < arity; c++ {
			child := nodeChild(sv.sceneNodes, arity, base, c)
			if child == 0 {
				continue
			}
			bmin, bmax := nodeBounds(sv.sceneNodes, arity, base, c)
			if _, ok := slabTest(r, bmin, bmax, tmax); !ok {
				continue
			}
			if child > 0 {
				stack = append(stack, child)
				continue
			}
			// Leaf: entity records from offset until terminator.
			for off := int(^child); ; off++ {
				w := sv.sceneLeaves[off*24 : off*24+24]
				id := math.Float32bits(w[3])
				ent := &sv.entities[id&^0x80000000]
				visit(ent, tmaxFn())
				if id&0x80000000 != 0 {
					break
				}
			}
		}
	}
}

// intersectShape walks one triangle BVH in shape local space.
func (sv *sceneView) intersectShape(sh *shapeView, r ray) (hit, bool) {
	if sh.nodeCnt == 0 {
		return hit{}, false
	}
	arity := sv.arity
	stride := nodeSizeWords(arity)
	var best hit
	best.t = r.tmax
	found := false

	stack := make([]int32, 0, 64)
	stack = append(stack, 1)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		base := int(cur-1) * stride
		for c := 0; c < arity; c++ {
			child := nodeChild(sh.bvhNodes, arity, base, c)
			if child == 0 {
				continue
			}
			bmin, bmax := nodeBounds(sh.bvhNodes, arity, base, c)
			if _, ok := slabTest(&r, bmin, bmax, best.t); !ok {
				continue
			}
			if child > 0 {
				stack = append(stack, child)
				continue
			}
			sv.intersectLeaf(sh, &r, int(^child), &best, &found)
		}
	}
	return best, found
}

// intersectLeaf tests the packets of one leaf group.
func (sv *sceneView) intersectLeaf(sh *shapeView, r *ray, firstPacket int, best *hit, found *bool) {
	m := sv.packetSize
	stride := triPacketWords(m)
	for p := firstPacket; p < sh.triCnt; p++ {
		packet := sh.bvhTris[p*stride : (p+1)*stride]
		done := false
		if m == 1 {
			prim := math.Float32bits(packet[12])
			sv.intersectTri(packet[0:3], packet[3:6], packet[6:9], prim, r, best, found)
			done = prim&0x80000000 != 0
		} else {
			for l := 0; l < m; l++ {
				prim := math.Float32bits(packet[4*3*m+l])
				if prim == 0xFFFFFFFF {
					continue
				}
				v0 := []float32{packet[0*m+l], packet[1*m+l], packet[2*m+l]}
				e1 := []float32{packet[3*m+l], packet[4*m+l], packet[5*m+l]}
				e2 := []float32{packet[6*m+l], packet[7*m+l], packet[8*m+l]}
				sv.intersectTri(v0, e1, e2, prim, r, best, found)
			}
			done = math.Float32bits(packet[4*3*m+m-1])&0x80000000 != 0
		}
		if done {
			return
		}
	}
}

// intersectTri is Moeller-Trumbore over the packet representation:
// corners are p0, p1 = p0-e2 and p2 = p0+e1.
func (sv *sceneView) intersectTri(v0, e1, e2 []float32, prim uint32, r *ray, best *hit, found *bool) {
	p0 := lin.NewV3(v0[0], v0[1], v0[2])
	edge1 := lin.NewV3(-e2[0], -e2[1], -e2[2]) // p1 - p0
	edge2 := lin.NewV3(e1[0], e1[1], e1[2])    // p2 - p0

	pvec := r.dir.Cross(edge2)
	det := edge1.Dot(pvec)
	if lin.Abs(det) < 1e-9 {
		return
	}
	invDet := 1 / det
	tvec := r.org.Sub(p0)
	u := tvec.Dot(pvec) * invDet
	if u < 0 || u > 1 {
		return
	}
	qvec := tvec.Cross(edge1)
	v := r.dir.Dot(qvec) * invDet
	if v < 0 || u+v > 1 {
		return
	}
	t := edge2.Dot(qvec) * invDet
	if t < r.tmin || t >= best.t {
		return
	}
	best.t = t
	best.u = u
	best.v = v
	best.primID = int32(prim &^ 0x80000000)
	*found = true
}

// shapeNormal interpolates the shading normal of a face hit, in shape
// local space.
func (sh *shapeView) shapeNormal(primID int32, u, v float32) lin.V3 {
	i := primID * 4
	i0, i1, i2 := sh.indices[i], sh.indices[i+1], sh.indices[i+2]
	n0 := lin.NewV3(sh.normals[i0*4], sh.normals[i0*4+1], sh.normals[i0*4+2])
	n1 := lin.NewV3(sh.normals[i1*4], sh.normals[i1*4+1], sh.normals[i1*4+2])
	n2 := lin.NewV3(sh.normals[i2*4], sh.normals[i2*4+1], sh.normals[i2*4+2])
	return n0.Scale(1 - u - v).Add(n1.Scale(u)).Add(n2.Scale(v)).Unit()
}

// shapeFace returns the three local space corners of a face.
func (sh *shapeView) shapeFace(primID int32) (a, b, c lin.V3) {
	i := primID * 4
	i0, i1, i2 := sh.indices[i], sh.indices[i+1], sh.indices[i+2]
	return lin.NewV3(sh.vertices[i0*4], sh.vertices[i0*4+1], sh.vertices[i0*4+2]),
		lin.NewV3(sh.vertices[i1*4], sh.vertices[i1*4+1], sh.vertices[i1*4+2]),
		lin.NewV3(sh.vertices[i2*4], sh.vertices[i2*4+1], sh.vertices[i2*4+2])
}
