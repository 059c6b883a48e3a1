// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ignis

import (
	"log/slog"
	"os"
	"testing"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
)

// TestMain is called by "go test" instead of running the tests
// individually. It configures the default logger for all tests.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: slog.LevelWarn})))
	os.Exit(m.Run())
}

// rectangleScene is a single quad in front of the camera under a
// uniform environment. The unit albedo makes every light path carry
// exactly the environment radiance.
const rectangleScene = `
technique:
  type: path
camera:
  type: perspective
  eye: [0, 0, 0]
  lookat: [0, 0, 2]
  fov: 60
film:
  size: [32, 32]
shapes:
  rect:
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
  rect_e:
    shape: rect
    bsdf: white
    transform:
      translate: [0, 0, 2]
`

// sphereScene is a lit icosphere with spatial variation across the
// frame.
const sphereScene = `
technique:
  type: path
camera:
  type: perspective
  eye: [0, 3, -1]
  lookat: [0, 0, 0]
  fov: 60
film:
  size: [64, 64]
shapes:
  ball:
    type: icosphere
    center: [0, 0, 0]
    radius: 1
    subdivisions: 4
bsdfs:
  gray:
    type: diffuse
    reflectance: [0.8, 0.8, 0.8]
lights:
  lamp:
    type: point
    position: [0, 2, 0]
    intensity: [10, 10, 10]
entities:
  ball_e:
    shape: ball
    bsdf: gray
`

// boxScene is a lambertian box under an area light for the depth
// comparison scenario.
const boxScene = `
technique:
  type: path
camera:
  type: perspective
  eye: [0, 3, -4]
  lookat: [0, 0, 0]
  fov: 60
film:
  size: [16, 16]
shapes:
  crate:
    type: cube
    width: 2
    height: 2
    depth: 2
  panel:
    type: rectangle
    p0: [-0.5, 2, -0.5]
    p1: [0.5, 2, -0.5]
    p2: [0.5, 2, 0.5]
    p3: [-0.5, 2, 0.5]
bsdfs:
  clay:
    type: diffuse
    reflectance: [0.7, 0.7, 0.7]
lights:
  ceiling:
    type: area
    entity: panel_e
    radiance: [5, 5, 5]
entities:
  crate_e:
    shape: crate
    bsdf: clay
  panel_e:
    shape: panel
    bsdf: clay
`

// traceScene is the rectangle without an environment so misses read
// back as zero.
const traceScene = `
technique:
  type: path
camera:
  type: perspective
shapes:
  rect:
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
  lamp:
    type: point
    position: [0, 0, 0]
    intensity: [10, 10, 10]
entities:
  rect_e:
    shape: rect
    bsdf: white
    transform:
      translate: [0, 0, 2]
`

func newTestRuntime(t *testing.T, opts Options) *Runtime {
	t.Helper()
	rt, err := NewRuntime(opts)
	if err != nil {
		t.Fatalf("runtime construction failed: %v", err)
	}
	return rt
}

func meanLuminance(frame []float32, iters int) float32 {
	if iters < 1 {
		iters = 1
	}
	var sum float32
	pixels := len(frame) / 3
	for p := 0; p < pixels; p++ {
		sum += 0.2126*frame[p*3] + 0.7152*frame[p*3+1] + 0.0722*frame[p*3+2]
	}
	return sum / float32(pixels) / float32(iters)
}

// A rectangle under a uniform environment integrates to the
// environment radiance at every pixel.
func TestScenarioRectangleUnderEnvironment(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 4})
	if err := rt.LoadFromString(rectangleScene); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer rt.Shutdown()

	if rt.SamplesPerIteration() != 4 {
		t.Fatalf("spi = %d, want 4", rt.SamplesPerIteration())
	}
	if err := rt.Step(); err != nil {
		t.Fatalf("step failed: %v", err)
	}

	frame, iters, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	if iters != 1 {
		t.Fatalf("iteration count = %d, want 1", iters)
	}
	for p := 0; p < len(frame); p++ {
		if frame[p] < 0.9 || frame[p] > 1.1 {
			t.Fatalf("pixel value %v at %d outside [0.9, 1.1]", frame[p], p)
		}
	}
}

// A lit sphere accumulates energy at the frame center and counts its
// iterations.
func TestScenarioLitSphere(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 8})
	if err := rt.LoadFromString(sphereScene); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer rt.Shutdown()

	for i := 0; i < 8; i++ {
		if err := rt.Step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
	}
	frame, iters, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	if iters != 8 {
		t.Errorf("iteration count = %d, want 8", iters)
	}

	w, h := rt.FilmWidth(), rt.FilmHeight()
	center := (h/2*w + w/2) * 3
	lum := (0.2126*frame[center] + 0.7152*frame[center+1] + 0.0722*frame[center+2]) / float32(iters)
	if lum <= 0.2 {
		t.Errorf("center luminance = %v, want > 0.2", lum)
	}
	if rt.SampleCount() != 8*8 {
		t.Errorf("sample count = %d, want 64", rt.SampleCount())
	}
}

// Resizing reallocates rather than copying: the new frame's sub-region
// differs from the old frame.
func TestScenarioResizeIsNotAMemcpy(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 2})
	if err := rt.LoadFromString(sphereScene); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer rt.Shutdown()

	if err := rt.Step(); err != nil {
		t.Fatal(err)
	}
	before, _, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	old := append([]float32{}, before...)

	rt.Resize(128, 128)
	_, iters, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	if iters != 0 {
		t.Fatalf("iteration count after resize = %d, want 0", iters)
	}

	if err := rt.Step(); err != nil {
		t.Fatal(err)
	}
	after, _, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != 128*128*3 {
		t.Fatalf("frame length = %d", len(after))
	}

	same := true
	for y := 0; y < 64 && same; y++ {
		for x := 0; x < 64*3; x++ {
			if after[(y*128*3)+x] != old[y*64*3+x] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("64x64 sub-region of resized frame is bitwise equal to the old frame")
	}
}

// Deeper paths gather strictly more light in a scene with indirect
// illumination.
func TestScenarioMaxDepthParameter(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 4})
	if err := rt.LoadFromString(boxScene); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer rt.Shutdown()

	rt.SetParameterInt("max_depth", 1)
	if err := rt.Step(); err != nil {
		t.Fatal(err)
	}
	frame, iters, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	shallow := meanLuminance(frame, iters)

	rt.SetParameterInt("max_depth", 8)
	rt.Reset()
	if err := rt.Step(); err != nil {
		t.Fatal(err)
	}
	frame, iters, err = rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	deep := meanLuminance(frame, iters)

	if deep <= shallow {
		t.Errorf("mean luminance: depth 8 = %v, depth 1 = %v, want strictly greater", deep, shallow)
	}
}

// Tracing explicit rays returns 3 floats per ray; hits carry energy,
// misses are zero.
func TestScenarioTraceRays(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 4, IsTracer: true})
	if err := rt.LoadFromString(traceScene); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	defer rt.Shutdown()

	rays := []device.Ray{
		{Origin: lin.V3{}, Direction: lin.UnitZ(), Range: lin.V2{X: 0, Y: 0}},
		{Origin: lin.V3{}, Direction: lin.UnitX(), Range: lin.V2{X: 0, Y: 0}},
	}
	data, err := rt.Trace(rays)
	if err != nil {
		t.Fatalf("trace failed: %v", err)
	}
	if len(data) != len(rays)*3 {
		t.Fatalf("trace returned %d floats, want %d", len(data), len(rays)*3)
	}
	if data[0] <= 0 || data[1] <= 0 || data[2] <= 0 {
		t.Errorf("forward ray should hit the lit rectangle, got %v", data[0:3])
	}
	if data[3] != 0 || data[4] != 0 || data[5] != 0 {
		t.Errorf("sideways ray should miss, got %v", data[3:6])
	}
}

// Identical script text compiles to the identical handle; an edit
// produces a new one.
func TestScenarioCompileCache(t *testing.T) {
	manager := device.GetManager()
	if err := manager.Init("", false, false); err != nil {
		t.Fatal(err)
	}
	target := manager.RecommendCPUTarget()
	iface, err := manager.GetDevice(target)
	if err != nil {
		t.Fatal(err)
	}
	cd, err := iface.CreateCompilerDevice()
	if err != nil {
		t.Fatal(err)
	}

	script := "let renderer = make_path_tracing_renderer(4, 1, 0.0, light_selector);"
	h1, err := cd.Compile(device.CompileSettings{}, script, "v0_rayGeneration")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := cd.Compile(device.CompileSettings{}, script, "v0_rayGeneration")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("identical scripts returned different handles")
	}
	h3, err := cd.Compile(device.CompileSettings{}, script[:len(script)-1]+" ", "v0_rayGeneration")
	if err != nil {
		t.Fatal(err)
	}
	if h3 == h1 {
		t.Error("edited script returned the cached handle")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 1})
	if err := rt.LoadFromString(rectangleScene); err != nil {
		t.Fatal(err)
	}
	defer rt.Shutdown()

	if err := rt.Step(); err != nil {
		t.Fatal(err)
	}
	rt.Reset()
	rt.Reset()
	if rt.Iteration() != 0 || rt.SampleCount() != 0 {
		t.Errorf("counters after double reset: iter=%d samples=%d", rt.Iteration(), rt.SampleCount())
	}
	_, iters, err := rt.Framebuffer("")
	if err != nil {
		t.Fatal(err)
	}
	if iters != 0 {
		t.Errorf("aov iteration count after reset = %d", iters)
	}
}

func TestDoubleLoadRejected(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true, SPI: 1})
	if err := rt.LoadFromString(rectangleScene); err != nil {
		t.Fatal(err)
	}
	if err := rt.LoadFromString(rectangleScene); err == nil {
		t.Error("second load without shutdown should fail")
	}
	rt.Shutdown()
	if err := rt.LoadFromString(sphereScene); err != nil {
		t.Errorf("load after shutdown failed: %v", err)
	}
	rt.Shutdown()
}

func TestStepWithoutSceneFails(t *testing.T) {
	rt := newTestRuntime(t, Options{RecommendCPU: true})
	if err := rt.Step(); err == nil {
		t.Error("step without a scene should fail")
	}
}

func TestSPIHeuristic(t *testing.T) {
	cpuT := device.Target{Architecture: device.Generic}
	gpuT := device.Target{Architecture: device.NVVM}

	if got := recommendSPI(cpuT, 1000, 1000); got != 2 {
		t.Errorf("cpu 1000x1000 spi = %d, want 2", got)
	}
	if got := recommendSPI(gpuT, 1000, 1000); got != 8 {
		t.Errorf("gpu 1000x1000 spi = %d, want 8", got)
	}
	if got := recommendSPI(cpuT, 8000, 8000); got != 1 {
		t.Errorf("huge film spi = %d, want clamp to 1", got)
	}
	if got := recommendSPI(gpuT, 50, 50); got != 64 {
		t.Errorf("tiny film spi = %d, want clamp to 64", got)
	}
}
