// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/loader"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scene"
)

const quadSceneYAML = `
technique:
  type: path
camera:
  type: perspective
  eye: [0, 0, -3]
  lookat: [0, 0, 0]
  fov: 60
shapes:
  quad:
    type: rectangle
    p0: [-1, -1, 0]
    p1: [1, -1, 0]
    p2: [1, 1, 0]
    p3: [-1, 1, 0]
bsdfs:
  white:
    type: diffuse
    reflectance: [1, 1, 1]
lights:
  env:
    type: constant
    radiance: [1, 1, 1]
entities:
  quad_e:
    shape: quad
    bsdf: white
`

// setupDevice loads the scene, compiles its variant and returns the
// ready render device plus everything needed for launches.
func setupDevice(t *testing.T, yaml string, w, h int) (*renderDevice, device.ShaderSet, *loader.Result) {
	t.Helper()
	s, err := scene.Parse([]byte(yaml))
	require.NoError(t, err)

	target := device.Target{Architecture: device.Generic}
	res, err := loader.Load(loader.Options{
		Target:              target,
		TechniqueType:       "path",
		CameraType:          "perspective",
		FilmWidth:           w,
		FilmHeight:          h,
		SamplesPerIteration: 4,
	}, s)
	require.NoError(t, err)

	iface := NewInterface(device.Generic)
	rdI, err := iface.CreateRenderDevice(device.SetupSettings{Target: target, AcquireStats: true})
	require.NoError(t, err)
	rd := rdI.(*renderDevice)
	cd, err := iface.CreateCompilerDevice()
	require.NoError(t, err)

	variant := res.Technique.Variants[0]
	var set device.ShaderSet
	set.RayGeneration, err = cd.Compile(device.CompileSettings{}, variant.RayGeneration, "v0_rayGeneration")
	require.NoError(t, err)
	set.Miss, err = cd.Compile(device.CompileSettings{}, variant.Miss, "v0_missShader")
	require.NoError(t, err)
	for i, src := range variant.HitShaders {
		h, err := cd.Compile(device.CompileSettings{}, src, "v0_hitShader")
		require.NoError(t, err, "hit shader %d", i)
		set.HitShaders = append(set.HitShaders, h)
	}

	require.NoError(t, rd.AssignScene(device.SceneSettings{
		Database: res.Database,
		AOVs:     res.AOVs,
	}))
	rd.Resize(w, h)
	return rd, set, res
}

func renderOnce(t *testing.T, rd *renderDevice, set device.ShaderSet, res *loader.Result, iter int) {
	t.Helper()
	err := rd.Render(set, device.RenderSettings{
		SPI:       4,
		Width:     rd.FramebufferWidth(),
		Height:    rd.FramebufferHeight(),
		Iteration: iter,
		Info:      res.Technique.Variants[0].Info,
	}, res.Parameters)
	require.NoError(t, err)
}

func TestCompileCacheIdentity(t *testing.T) {
	iface := NewInterface(device.Generic)
	cd, err := iface.CreateCompilerDevice()
	require.NoError(t, err)

	script := "let renderer = make_path_tracing_renderer(8, 1, 0.0, light_selector);"
	h1, err := cd.Compile(device.CompileSettings{}, script, "v0_rayGeneration")
	require.NoError(t, err)
	h2, err := cd.Compile(device.CompileSettings{}, script, "v0_rayGeneration")
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "identical script text must return the identical handle")

	h3, err := cd.Compile(device.CompileSettings{}, script+" ", "v0_rayGeneration")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3, "edited script must compile to a new handle")
}

func TestCompileUnknownSymbol(t *testing.T) {
	iface := NewInterface(device.Generic)
	cd, err := iface.CreateCompilerDevice()
	require.NoError(t, err)
	_, err = cd.Compile(device.CompileSettings{}, "let x = 1;", "v0_bogusEntry")
	assert.ErrorIs(t, err, device.ErrSymbolNotFound)
}

func TestRenderAccumulatesIterations(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 16, 16)

	for i := 0; i < 3; i++ {
		renderOnce(t, rd, set, res, i)
	}
	acc, err := rd.GetFramebufferForHost(device.AOVColor)
	require.NoError(t, err)
	assert.Equal(t, 3, acc.IterationCount)
	assert.Len(t, acc.Data, 16*16*3)

	// Environment light fills the frame; accumulated values sit near
	// the iteration count.
	center := (8*16 + 8) * 3
	assert.Greater(t, acc.Data[center], float32(1.5))
}

func TestClearResetsIterationCount(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	renderOnce(t, rd, set, res, 0)
	require.NoError(t, rd.ClearFramebuffer(device.AOVColor))
	acc, err := rd.GetFramebufferForHost(device.AOVColor)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.IterationCount)
	for _, v := range acc.Data {
		assert.Zero(t, v)
	}
}

func TestResizeReallocates(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	renderOnce(t, rd, set, res, 0)

	rd.Resize(16, 16)
	acc, err := rd.GetFramebufferForHost(device.AOVColor)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.IterationCount, "resize resets counts")
	assert.Len(t, acc.Data, 16*16*3)
}

func TestUnknownAOV(t *testing.T) {
	rd, _, _ := setupDevice(t, quadSceneYAML, 8, 8)
	_, err := rd.GetFramebufferForHost("NoSuchPlane")
	assert.ErrorIs(t, err, device.ErrUnknownAOV)
	assert.ErrorIs(t, rd.ClearFramebuffer("NoSuchPlane"), device.ErrUnknownAOV)
}

func TestLockedVariantDoesNotAdvance(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	info := res.Technique.Variants[0].Info
	info.LockFramebuffer = true
	err := rd.Render(set, device.RenderSettings{
		SPI: 1, Width: 8, Height: 8, Info: info,
	}, res.Parameters)
	require.NoError(t, err)
	acc, err := rd.GetFramebufferForHost(device.AOVColor)
	require.NoError(t, err)
	assert.Equal(t, 0, acc.IterationCount)
}

func TestTonemapWritesOpaquePixels(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	renderOnce(t, rd, set, res, 0)

	out := make([]uint32, 8*8)
	require.NoError(t, rd.Tonemap(out, device.TonemapSettings{
		Method: device.TonemapACES, UseGamma: true, Scale: 1,
	}))
	for _, px := range out {
		assert.EqualValues(t, 0xFF, px>>24, "alpha must be opaque")
	}
	// A lit frame cannot be black everywhere.
	var any uint32
	for _, px := range out {
		any |= px & 0xFFFFFF
	}
	assert.NotZero(t, any)
}

func TestImageInfoStatistics(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	renderOnce(t, rd, set, res, 0)

	info, err := rd.ImageInfo(device.ImageInfoSettings{
		Scale: 1, Bins: 8, AcquireHistogram: true,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, info.Max, info.Min)
	assert.GreaterOrEqual(t, info.Average, info.Min)
	assert.LessOrEqual(t, info.Average, info.Max)
	assert.GreaterOrEqual(t, info.SoftMax, info.Median)
	assert.Zero(t, info.NaNCount)
	require.Len(t, info.Histogram, 8)
	total := 0
	for _, c := range info.Histogram {
		total += c
	}
	assert.Equal(t, 8*8, total)
}

func TestEvaluateGlareRuns(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 8, 8)
	renderOnce(t, rd, set, res, 0)
	out := make([]uint32, 8*8)
	g, err := rd.EvaluateGlare(out, device.GlareSettings{Scale: 1})
	require.NoError(t, err)
	assert.Greater(t, g.AvgLum, float32(0))
}

func TestTraceMode(t *testing.T) {
	rd, set, res := setupDevice(t, quadSceneYAML, 4, 4)
	rays := []device.Ray{
		{Origin: lin.NewV3(0, 0, -3), Direction: lin.UnitZ(), Range: lin.V2{Y: 0}},
		{Origin: lin.NewV3(0, 0, -3), Direction: lin.UnitX(), Range: lin.V2{Y: 0}},
	}
	err := rd.Render(set, device.RenderSettings{
		Rays: rays, SPI: 4, Iteration: 0,
		Info: res.Technique.Variants[0].Info,
	}, res.Parameters)
	require.NoError(t, err)

	acc, err := rd.GetFramebufferForHost(device.AOVColor)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(acc.Data), 6)
	// Both rays see energy here (the quad or the environment); the
	// forward ray hits the lit quad.
	assert.Greater(t, acc.Data[0], float32(0))
}

func TestDenoiseProducesPlane(t *testing.T) {
	s, err := scene.Parse([]byte(quadSceneYAML))
	require.NoError(t, err)
	target := device.Target{Architecture: device.Generic}
	res, err := loader.Load(loader.Options{
		Target: target, TechniqueType: "path", CameraType: "perspective",
		FilmWidth: 8, FilmHeight: 8, SamplesPerIteration: 2, Denoise: true,
	}, s)
	require.NoError(t, err)

	iface := NewInterface(device.Generic)
	rdI, err := iface.CreateRenderDevice(device.SetupSettings{Target: target})
	require.NoError(t, err)
	rd := rdI.(*renderDevice)
	cd, err := iface.CreateCompilerDevice()
	require.NoError(t, err)

	variant := res.Technique.Variants[0]
	var set device.ShaderSet
	set.RayGeneration, err = cd.Compile(device.CompileSettings{}, variant.RayGeneration, "v0_rayGeneration")
	require.NoError(t, err)
	set.Miss, err = cd.Compile(device.CompileSettings{}, variant.Miss, "v0_missShader")
	require.NoError(t, err)
	for _, src := range variant.HitShaders {
		h, err := cd.Compile(device.CompileSettings{}, src, "v0_hitShader")
		require.NoError(t, err)
		set.HitShaders = append(set.HitShaders, h)
	}
	require.NoError(t, rd.AssignScene(device.SceneSettings{Database: res.Database, AOVs: res.AOVs}))
	rd.Resize(8, 8)

	err = rd.Render(set, device.RenderSettings{
		SPI: 2, Width: 8, Height: 8, Info: variant.Info, Denoise: true,
	}, res.Parameters)
	require.NoError(t, err)

	den, err := rd.GetFramebufferForHost(device.AOVDenoised)
	require.NoError(t, err)
	var sum float32
	for _, v := range den.Data {
		sum += v
	}
	assert.Greater(t, sum, float32(0), "denoised plane should carry energy")
}
