// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// kernels.go implements the native kernels the compiler device binds:
// camera ray generation, the integrators (path, direct, ambient
// occlusion, debug) and next event estimation against the decoded
// light records. Hit and miss dispatch follows the shader set layout,
// with hit kernels selected by the material id of the entity hit.

import (
	"math"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// rng is a splitmix64 generator; one instance per sample keeps pixels
// decorrelated and launches reproducible.
type rng struct {
	state uint64
}

func newRNG(pixel, iteration, sample int, seed uint64) *rng {
	s := seed ^ 0x9E3779B97F4A7C15
	s += uint64(pixel) * 0xBF58476D1CE4E5B9
	s += uint64(iteration) * 0x94D049BB133111EB
	s += uint64(sample) * 0xD6E8FEB86659FD93
	r := &rng{state: s}
	r.next() // decorrelate the seeding arithmetic
	return r
}

func (r *rng) next() uint64 {
	r.state += 0x9E3779B97F4A7C15
	z := r.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// float returns a uniform sample in [0, 1).
func (r *rng) float() float32 {
	return float32(r.next()>>40) * (1.0 / (1 << 24))
}

// camera is the pinhole model rebuilt per launch from the registry.
type camera struct {
	eye    lin.V3
	dir    lin.V3
	right  lin.V3
	up     lin.V3
	tanFov float32
	aspect float32
}

func newCamera(params *device.ParameterSet, width, height int) camera {
	eye := params.Vector("__camera_eye", lin.V3{})
	dir := params.Vector("__camera_dir", lin.UnitZ()).Unit()
	up := params.Vector("__camera_up", lin.UnitY())
	fov := params.Float("__camera_fov", 60)

	right := dir.Cross(up)
	if right.AeqZ() {
		up = lin.UnitX()
		right = dir.Cross(up)
	}
	right = right.Unit()
	return camera{
		eye:    eye,
		dir:    dir,
		right:  right,
		up:     right.Cross(dir).Unit(),
		tanFov: float32(math.Tan(float64(lin.Rad(fov)) / 2)),
		aspect: float32(width) / float32(height),
	}
}

// primary builds the camera ray through pixel (x, y) with jitter.
func (c *camera) primary(x, y int, width, height int, jx, jy float32) ray {
	sx := (2*(float32(x)+jx)/float32(width) - 1) * c.tanFov * c.aspect
	sy := (1 - 2*(float32(y)+jy)/float32(height)) * c.tanFov
	d := c.dir.Add(c.right.Scale(sx)).Add(c.up.Scale(sy)).Unit()
	return newRay(c.eye, d, 1e-4, lin.FltInf)
}

// surface is the shading point reconstructed from a hit.
type surface struct {
	point    lin.V3
	normal   lin.V3 // shading normal, world space
	geoN     lin.V3 // geometric normal, world space
	material int32
	emission lin.V3
	emissive bool
}

// resolveHit reconstructs the world space surface of a hit.
func (sv *sceneView) resolveHit(r ray, h hit) surface {
	ent := &sv.entities[h.entityID]
	sh := &sv.shapes[ent.shapeID]

	localN := sh.shapeNormal(h.primID, h.u, h.v)
	a, b, c := sh.shapeFace(h.primID)
	geoLocal := b.Sub(a).Cross(c.Sub(a))

	n := ent.toWorld.MultNormal(localN).Unit()
	geoN := ent.toWorld.MultNormal(geoLocal).Unit()

	return surface{
		point:    r.org.Add(r.dir.Scale(h.t)),
		normal:   n,
		geoN:     geoN,
		material: ent.materialID,
		emission: ent.emission,
		emissive: ent.emissive,
	}
}

// cosineSample draws a cosine weighted direction around n.
func cosineSample(n lin.V3, r *rng) lin.V3 {
	u1 := r.float()
	u2 := r.float()
	radius := lin.Sqrt(u1)
	phi := 2 * lin.Pi * u2
	x := radius * lin.Cos(phi)
	y := radius * lin.Sin(phi)
	z := lin.Sqrt(lin.Max(0, 1-u1))
	nx, ny := n.Frame()
	return nx.Scale(x).Add(ny.Scale(y)).Add(n.Scale(z)).Unit()
}

// launchContext bundles the per launch state shared by all pixels.
type launchContext struct {
	scene    *sceneView
	params   *device.ParameterSet
	shaders  device.ShaderSet
	info     device.VariantInfo
	renderer rendererKind
	maxDepth int
	clamp    float32
	aoRadius float32
	seed     uint64
	iter     int
}

// samplePixel runs one sample of the active integrator.
func (lc *launchContext) samplePixel(r ray, rnd *rng) lin.V3 {
	switch lc.renderer {
	case rendererDirect:
		return lc.integrateDirect(r, rnd)
	case rendererAO:
		return lc.integrateAO(r, rnd)
	case rendererDebug:
		return lc.integrateDebug(r)
	case rendererSgptPrepass:
		return lin.V3{} // guiding prepass writes no radiance
	default:
		return lc.integratePath(r, rnd)
	}
}

// integratePath is the iterative path tracer with next event
// estimation for finite lights; environment radiance arrives through
// the miss shader on the bsdf sampled path.
func (lc *launchContext) integratePath(r ray, rnd *rng) lin.V3 {
	sv := lc.scene
	throughput := lin.NewV3(1, 1, 1)
	var radiance lin.V3
	specularBounce := true // camera rays see emitters directly

	for depth := 1; depth <= lc.maxDepth; depth++ {
		h := sv.intersectScene(r)
		if !h.valid {
			// Miss shader: environment lights.
			if sv.hasEnv {
				radiance = radiance.Add(throughput.Mult(sv.env))
			}
			break
		}

		// Hit shader, dispatched by material id.
		surf := sv.resolveHit(r, h)
		if surf.emissive && specularBounce {
			radiance = radiance.Add(throughput.Mult(surf.emission))
		}

		mat := sv.bsdf(surf.material)
		if mat.kind == scenedb.BsdfNone {
			// Pass through nothing: path ends on black materials.
			break
		}

		if depth == lc.maxDepth {
			break
		}

		n := surf.normal
		if n.Dot(r.dir) > 0 {
			n = n.Neg()
		}

		switch mat.kind {
		case scenedb.BsdfMirror:
			d := r.dir.Sub(n.Scale(2 * r.dir.Dot(n)))
			throughput = throughput.Mult(mat.color)
			r = newRay(surf.point.Add(n.Scale(1e-4)), d.Unit(), 1e-4, lin.FltInf)
			specularBounce = true

		case scenedb.BsdfDielectric:
			d, reflected := refractSample(r.dir, n, mat.param, rnd)
			throughput = throughput.Mult(mat.color)
			offN := n
			if !reflected {
				offN = n.Neg()
			}
			r = newRay(surf.point.Add(offN.Scale(1e-4)), d, 1e-4, lin.FltInf)
			specularBounce = true

		default: // diffuse
			radiance = radiance.Add(throughput.Mult(lc.nextEvent(surf, n, rnd)))
			d := cosineSample(n, rnd)
			throughput = throughput.Mult(mat.color)
			r = newRay(surf.point.Add(n.Scale(1e-4)), d, 1e-4, lin.FltInf)
			specularBounce = false
		}

		// Russian roulette after a few bounces keeps long paths cheap.
		if depth > 4 {
			p := lin.Clamp(lin.Max(throughput.X, lin.Max(throughput.Y, throughput.Z)), 0.05, 1)
			if rnd.float() > p {
				break
			}
			throughput = throughput.Scale(1 / p)
		}
	}

	if lc.clamp > 0 {
		radiance = lin.NewV3(
			lin.Min(radiance.X, lc.clamp),
			lin.Min(radiance.Y, lc.clamp),
			lin.Min(radiance.Z, lc.clamp))
	}
	return radiance
}

// integrateDirect is emission plus one next event estimate.
func (lc *launchContext) integrateDirect(r ray, rnd *rng) lin.V3 {
	sv := lc.scene
	h := sv.intersectScene(r)
	if !h.valid {
		if sv.hasEnv {
			return sv.env
		}
		return lin.V3{}
	}
	surf := sv.resolveHit(r, h)
	var radiance lin.V3
	if surf.emissive {
		radiance = radiance.Add(surf.emission)
	}
	mat := sv.bsdf(surf.material)
	if mat.kind != scenedb.BsdfDiffuse {
		return radiance
	}
	n := surf.normal
	if n.Dot(r.dir) > 0 {
		n = n.Neg()
	}
	samples := lc.params.Int("light_samples", 1)
	if samples < 1 {
		samples = 1
	}
	var direct lin.V3
	for i := 0; i < samples; i++ {
		direct = direct.Add(lc.nextEvent(surf, n, rnd))
	}
	return radiance.Add(direct.Scale(1 / float32(samples)))
}

// integrateAO writes hemispherical visibility.
func (lc *launchContext) integrateAO(r ray, rnd *rng) lin.V3 {
	sv := lc.scene
	h := sv.intersectScene(r)
	if !h.valid {
		return lin.NewV3(1, 1, 1)
	}
	surf := sv.resolveHit(r, h)
	n := surf.normal
	if n.Dot(r.dir) > 0 {
		n = n.Neg()
	}
	radius := lc.aoRadius
	if radius <= 0 {
		radius = sv.diameter * 0.5
	}
	d := cosineSample(n, rnd)
	shadow := newRay(surf.point.Add(n.Scale(1e-4)), d, 1e-4, radius)
	if sv.occluded(shadow) {
		return lin.V3{}
	}
	return lin.NewV3(1, 1, 1)
}

// integrateDebug visualizes shading normals.
func (lc *launchContext) integrateDebug(r ray) lin.V3 {
	sv := lc.scene
	h := sv.intersectScene(r)
	if !h.valid {
		return lin.V3{}
	}
	surf := sv.resolveHit(r, h)
	return surf.normal.Scale(0.5).Add(lin.NewV3(0.5, 0.5, 0.5))
}

// nextEvent estimates direct lighting from one uniformly chosen finite
// light. The diffuse brdf albedo and the 1/pi lambert term are both
// applied here; the caller multiplies the result by the path throughput.
func (lc *launchContext) nextEvent(surf surface, n lin.V3, rnd *rng) lin.V3 {
	sv := lc.scene
	count := len(sv.sampleLights)
	if count == 0 {
		return lin.V3{}
	}
	light := &sv.lights[sv.sampleLights[int(rnd.float()*float32(count))%count]]
	mat := sv.bsdf(surf.material)
	albedo := mat.color

	switch light.kind {
	case scenedb.LightPoint:
		toLight := light.position.Sub(surf.point)
		dist2 := toLight.LenSqr()
		if dist2 <= 1e-8 {
			return lin.V3{}
		}
		dist := lin.Sqrt(dist2)
		dir := toLight.Scale(1 / dist)
		cos := n.Dot(dir)
		if cos <= 0 {
			return lin.V3{}
		}
		if lc.shadowed(surf, dir, dist) {
			return lin.V3{}
		}
		f := albedo.Scale(1 / lin.Pi)
		return f.Mult(light.color).Scale(cos / dist2 * float32(count))

	case scenedb.LightDirectional, scenedb.LightSun:
		dir := light.direction.Neg()
		cos := n.Dot(dir)
		if cos <= 0 {
			return lin.V3{}
		}
		if lc.shadowed(surf, dir, lin.FltInf) {
			return lin.V3{}
		}
		f := albedo.Scale(1 / lin.Pi)
		return f.Mult(light.color).Scale(cos * float32(count))

	case scenedb.LightArea:
		return lc.sampleAreaLight(surf, n, light, albedo, rnd).Scale(float32(count))
	}
	return lin.V3{}
}

// sampleAreaLight picks a point on the emitting entity's surface.
func (lc *launchContext) sampleAreaLight(surf surface, n lin.V3, light *lightView, albedo lin.V3, rnd *rng) lin.V3 {
	sv := lc.scene
	if int(light.entityID) >= len(sv.entities) {
		return lin.V3{}
	}
	ent := &sv.entities[light.entityID]
	sh := &sv.shapes[ent.shapeID]
	if sh.faceCount == 0 {
		return lin.V3{}
	}

	// Uniform face pick; fine for the evenly tessellated emitters the
	// generators produce.
	face := int32(rnd.float()*float32(sh.faceCount)) % int32(sh.faceCount)
	a, b, c := sh.shapeFace(face)
	u1, u2 := rnd.float(), rnd.float()
	su := lin.Sqrt(u1)
	bu := 1 - su
	bv := u2 * su
	local := a.Scale(bu).Add(b.Scale(bv)).Add(c.Scale(1 - bu - bv))
	lp := ent.toWorld.MultPoint(local)
	lnLocal := b.Sub(a).Cross(c.Sub(a))
	ln := ent.toWorld.MultNormal(lnLocal).Unit()

	// Face areas transform with the entity; approximate the emitter
	// area by the world space area of the sampled face times the face
	// count, falling back to the local area when that is zero.
	areaLocal := lnLocal.Len() * 0.5
	area := areaLocal * float32(sh.faceCount)
	wa := ent.toWorld.MultDir(b.Sub(a))
	wb := ent.toWorld.MultDir(c.Sub(a))
	areaWorld := wa.Cross(wb).Len() * 0.5 * float32(sh.faceCount)
	if areaWorld > 0 {
		area = areaWorld
	}

	toLight := lp.Sub(surf.point)
	dist2 := toLight.LenSqr()
	if dist2 <= 1e-8 {
		return lin.V3{}
	}
	dist := lin.Sqrt(dist2)
	dir := toLight.Scale(1 / dist)
	cos := n.Dot(dir)
	cosL := ln.Dot(dir.Neg())
	if cosL <= 0 {
		cosL = -cosL // emitters radiate from both faces
	}
	if cos <= 0 || cosL <= 0 {
		return lin.V3{}
	}
	if lc.shadowed(surf, dir, dist*0.999) {
		return lin.V3{}
	}
	f := albedo.Scale(1 / lin.Pi)
	// pdf over area: 1/area; convert to solid angle.
	g := cos * cosL / dist2 * area
	return f.Mult(light.color).Scale(g)
}

// shadowed runs the occlusion query, honoring the advanced shadow
// split when the variant carries it.
func (lc *launchContext) shadowed(surf surface, dir lin.V3, dist float32) bool {
	origin := surf.point.Add(surf.geoN.Scale(1e-4))
	if surf.geoN.Dot(dir) < 0 {
		origin = surf.point.Add(surf.geoN.Scale(-1e-4))
	}
	r := newRay(origin, dir, 1e-4, dist)

	if lc.info.ShadowMode == device.ShadowAdvanced && lc.shaders.AdvancedShadowHit != 0 {
		// Advanced shadows accumulate transmittance through
		// transparent surfaces instead of stopping at the first hit.
		transmittance := float32(1)
		for bounce := 0; bounce < 16; bounce++ {
			h := lc.scene.intersectScene(r)
			if !h.valid {
				return false // advanced shadow miss: fully visible
			}
			mat := lc.scene.bsdf(lc.scene.entities[h.entityID].materialID)
			if mat.kind != scenedb.BsdfDielectric && mat.kind != scenedb.BsdfNone {
				return true
			}
			transmittance *= 0.9 // surface passage loss
			if transmittance < 0.05 {
				return true
			}
			p := r.org.Add(r.dir.Scale(h.t + 1e-4))
			remaining := dist
			if dist < lin.FltInf {
				remaining = dist - h.t
				if remaining <= 1e-4 {
					return false
				}
			}
			r = newRay(p, dir, 1e-4, remaining)
		}
		return true
	}
	return lc.scene.occluded(r)
}

// refractSample picks between reflection and refraction with a
// Schlick fresnel estimate.
func refractSample(dir, n lin.V3, ior float32, rnd *rng) (out lin.V3, reflected bool) {
	if ior <= 0 {
		ior = 1.55
	}
	cosI := -dir.Dot(n)
	eta := 1 / ior
	sin2T := eta * eta * (1 - cosI*cosI)
	r0 := (1 - ior) / (1 + ior)
	r0 *= r0
	fres := r0 + (1-r0)*pow5(1-cosI)
	if sin2T >= 1 || rnd.float() < fres {
		return dir.Sub(n.Scale(2 * dir.Dot(n))).Unit(), true
	}
	cosT := lin.Sqrt(1 - sin2T)
	return dir.Scale(eta).Add(n.Scale(eta*cosI - cosT)).Unit(), false
}

func pow5(x float32) float32 {
	x2 := x * x
	return x2 * x2 * x
}
