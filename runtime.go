// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package ignis is a physically based ray tracer built around a shader
// generation and dispatch core: scenes are lowered into a binary
// database plus generated kernel sources, the sources are compiled by a
// device specific compiler, and the runtime drives the compiled kernels
// iteration by iteration while the framebuffer accumulates.
//
// The Runtime is the user facing orchestrator:
//
//	rt, err := ignis.NewRuntime(ignis.Options{})
//	err = rt.LoadFromFile("scene.yaml")
//	for i := 0; i < 64; i++ { rt.Step() }
//	frame, iters, _ := rt.Framebuffer("")
package ignis

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ignis-render/ignis/device"
	_ "github.com/ignis-render/ignis/device/cpu" // built-in CPU backend
	"github.com/ignis-render/ignis/loader"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scene"
)

// runtimeState is the orchestrator lifecycle.
type runtimeState int

const (
	stateUninitialized runtimeState = iota
	stateReady
	stateShutdown
)

// Runtime owns the device collaborators, the loaded scene and the
// iteration counters. Step and Trace are serial calls; they must not
// overlap.
type Runtime struct {
	opts      Options
	sessionID uuid.UUID

	manager  *device.Manager
	target   device.Target
	iface    device.Interface
	render   device.RenderDevice
	compiler device.CompilerDevice

	state     runtimeState
	technique device.TechniqueInfo
	shaderSets []device.ShaderSet
	params    *device.ParameterSet

	samplesPerIteration int
	iteration           int
	sampleCount         int
	filmWidth           int
	filmHeight          int
	techniqueName       string
}

// NewRuntime initializes the device manager, resolves the target and
// creates the device pair.
func NewRuntime(opts Options) (*Runtime, error) {
	manager := device.GetManager()
	if err := manager.Init(opts.ModulePath, false, false); err != nil {
		return nil, fmt.Errorf("ignis: device discovery: %w", err)
	}

	target := opts.DesiredTarget
	if !target.IsValid() || (target == (device.Target{}) && (opts.RecommendCPU || opts.RecommendGPU)) {
		switch {
		case opts.RecommendCPU && !opts.RecommendGPU:
			target = manager.RecommendCPUTarget()
		case opts.RecommendGPU && !opts.RecommendCPU:
			target = manager.RecommendGPUTarget()
		default:
			target = manager.RecommendTarget()
		}
	}
	resolved := manager.ResolveTarget(target)
	if !resolved.IsValid() {
		return nil, device.ErrNoDevice
	}
	if resolved != target && target.IsValid() {
		slog.Warn("switched device target", "requested", target.String(), "using", resolved.String())
	}

	iface, err := manager.GetDevice(resolved)
	if err != nil {
		return nil, fmt.Errorf("ignis: load device: %w", err)
	}
	iface.MakeCurrent()

	rt := &Runtime{
		opts:      opts,
		sessionID: uuid.New(),
		manager:   manager,
		target:    resolved,
		iface:     iface,
		params:    device.NewParameterSet(),
	}
	if opts.ScriptDir != "" {
		slog.Info("loading standard library", "dir", opts.ScriptDir)
	}

	rt.render, err = iface.CreateRenderDevice(device.SetupSettings{
		Target:       resolved,
		AcquireStats: opts.AcquireStats,
	})
	if err != nil {
		return nil, fmt.Errorf("ignis: create render device: %w", err)
	}
	rt.compiler, err = iface.CreateCompilerDevice()
	if err != nil {
		return nil, fmt.Errorf("ignis: create compiler device: %w", err)
	}

	slog.Info("runtime ready", "target", resolved.String(), "session", rt.sessionID.String())
	return rt, nil
}

// Target returns the resolved device target.
func (rt *Runtime) Target() device.Target { return rt.target }

// SessionID identifies this runtime in logs and statistics dumps.
func (rt *Runtime) SessionID() string { return rt.sessionID.String() }

// recommendSPI derives samples per iteration from the target and film
// size: measured sweet spots at 1000x1000, scaled inversely with the
// pixel count and clamped to [1, 64].
func recommendSPI(target device.Target, width, height int) int {
	base := 2.0
	if target.IsGPU() {
		base = 8.0
	}
	spi := int(math.Ceil(base / ((float64(width) / 1000.0) * (float64(height) / 1000.0))))
	if spi < 1 {
		spi = 1
	}
	if spi > 64 {
		spi = 64
	}
	return spi
}

// LoadFromFile parses and loads a scene description file.
func (rt *Runtime) LoadFromFile(path string) error {
	start := time.Now()
	s, err := scene.ParseFile(path)
	if err != nil {
		return err
	}
	slog.Debug("scene parsed", "path", path, "elapsed", time.Since(start))
	return rt.load(path, s)
}

// LoadFromString parses and loads a scene description from memory.
func (rt *Runtime) LoadFromString(text string) error {
	s, err := scene.Parse([]byte(text))
	if err != nil {
		return err
	}
	return rt.load("", s)
}

// LoadFromScene loads an already parsed scene graph.
func (rt *Runtime) LoadFromScene(s *scene.Scene) error {
	return rt.load("", s)
}

// load lowers the scene, compiles every variant and uploads the result.
// A scene may not be loaded twice without an intervening Shutdown.
func (rt *Runtime) load(path string, s *scene.Scene) error {
	if rt.state == stateReady {
		return fmt.Errorf("ignis: scene already loaded, call Shutdown first")
	}
	if rt.state == stateShutdown {
		rt.state = stateUninitialized
	}

	lopts := loader.Options{
		FilePath:            path,
		Target:              rt.target,
		IsTracer:            rt.opts.IsTracer,
		Denoise:             rt.opts.Denoise,
		TechniqueType:       rt.opts.OverrideTechnique,
		CameraType:          rt.opts.OverrideCamera,
		SamplesPerIteration: rt.opts.SPI,
	}

	// Technique, film and camera resolve from the scene unless
	// overridden.
	if lopts.TechniqueType == "" {
		lopts.TechniqueType = "path"
		if s.Technique != nil && s.Technique.PluginType != "" {
			lopts.TechniqueType = s.Technique.PluginType
		}
	}
	if lopts.CameraType == "" {
		lopts.CameraType = "perspective"
		if s.Camera != nil && s.Camera.PluginType != "" {
			lopts.CameraType = s.Camera.PluginType
		}
	}
	filmSize := lin.V2{X: 800, Y: 600}
	if s.Film != nil {
		filmSize = s.Film.Property("size").GetVec2(filmSize)
	}
	lopts.FilmWidth = int(filmSize.X)
	lopts.FilmHeight = int(filmSize.Y)
	if rt.opts.OverrideFilmWidth > 0 {
		lopts.FilmWidth = rt.opts.OverrideFilmWidth
	}
	if rt.opts.OverrideFilmHeight > 0 {
		lopts.FilmHeight = rt.opts.OverrideFilmHeight
	}
	if lopts.FilmWidth < 1 {
		lopts.FilmWidth = 1
	}
	if lopts.FilmHeight < 1 {
		lopts.FilmHeight = 1
	}
	if lopts.SamplesPerIteration == 0 {
		lopts.SamplesPerIteration = recommendSPI(rt.target, lopts.FilmWidth, lopts.FilmHeight)
		slog.Debug("recommended samples per iteration", "spi", lopts.SamplesPerIteration)
	}

	start := time.Now()
	result, err := loader.Load(lopts, s)
	if err != nil {
		return fmt.Errorf("ignis: %w", err)
	}
	slog.Debug("scene loaded", "elapsed", time.Since(start))

	rt.filmWidth = lopts.FilmWidth
	rt.filmHeight = lopts.FilmHeight
	rt.samplesPerIteration = lopts.SamplesPerIteration
	rt.techniqueName = lopts.TechniqueType
	rt.technique = result.Technique
	rt.params = result.Parameters

	if rt.opts.DumpShader {
		rt.dumpShaders(path)
	}
	if err := rt.compileShaders(); err != nil {
		rt.state = stateUninitialized
		return err
	}

	if err := rt.render.AssignScene(device.SceneSettings{
		Database:          result.Database,
		AOVs:              result.AOVs,
		EntityPerMaterial: entityPerMaterial(result),
	}); err != nil {
		return fmt.Errorf("ignis: assign scene: %w", err)
	}
	rt.render.Resize(rt.filmWidth, rt.filmHeight)
	rt.render.ClearAllFramebuffer()
	rt.iteration = 0
	rt.sampleCount = 0
	rt.state = stateReady
	return nil
}

// entityPerMaterial counts entities per unique material id.
func entityPerMaterial(result *loader.Result) []int {
	counts := make([]int, result.Database.MaterialCount)
	for _, m := range result.Database.EntityToMaterial {
		if int(m) < len(counts) {
			counts[m]++
		}
	}
	return counts
}

// compileShaders compiles every variant's sources. Any failure aborts
// the load; shader failures are not retryable.
func (rt *Runtime) compileShaders() error {
	start := time.Now()
	settings := device.CompileSettings{OptimizationLevel: 3}
	rt.shaderSets = make([]device.ShaderSet, len(rt.technique.Variants))

	for i, variant := range rt.technique.Variants {
		set := &rt.shaderSets[i]
		var err error

		slog.Debug("compiling ray generation shader", "variant", i)
		set.RayGeneration, err = rt.compiler.Compile(settings, variant.RayGeneration,
			fmt.Sprintf("v%d_rayGeneration", i))
		if err != nil {
			return fmt.Errorf("ignis: variant %d ray generation: %w", i, err)
		}

		slog.Debug("compiling miss shader", "variant", i)
		set.Miss, err = rt.compiler.Compile(settings, variant.Miss,
			fmt.Sprintf("v%d_missShader", i))
		if err != nil {
			return fmt.Errorf("ignis: variant %d miss: %w", i, err)
		}

		for j, src := range variant.HitShaders {
			set.HitShaders = append(set.HitShaders, 0)
			set.HitShaders[j], err = rt.compiler.Compile(settings, src,
				fmt.Sprintf("v%d_hitShader", i))
			if err != nil {
				return fmt.Errorf("ignis: variant %d hit %d: %w", i, j, err)
			}
		}

		if variant.AdvancedShadowHit != "" {
			set.AdvancedShadowHit, err = rt.compiler.Compile(settings, variant.AdvancedShadowHit,
				fmt.Sprintf("v%d_advancedShadowHit", i))
			if err != nil {
				return fmt.Errorf("ignis: variant %d advanced shadow hit: %w", i, err)
			}
			set.AdvancedShadowMiss, err = rt.compiler.Compile(settings, variant.AdvancedShadowMiss,
				fmt.Sprintf("v%d_advancedShadowMiss", i))
			if err != nil {
				return fmt.Errorf("ignis: variant %d advanced shadow miss: %w", i, err)
			}
		}

		for j, src := range variant.Callbacks {
			set.Callbacks = append(set.Callbacks, 0)
			if src == "" {
				continue
			}
			set.Callbacks[j], err = rt.compiler.Compile(settings, src,
				fmt.Sprintf("v%d_callback%d", i, j))
			if err != nil {
				return fmt.Errorf("ignis: variant %d callback %d: %w", i, j, err)
			}
		}
	}
	slog.Debug("shaders compiled", "variants", len(rt.technique.Variants), "elapsed", time.Since(start))
	return nil
}

// dumpShaders writes the generated sources next to the scene file.
func (rt *Runtime) dumpShaders(scenePath string) {
	dir := "."
	if scenePath != "" {
		dir = filepath.Dir(scenePath)
	}
	for i, v := range rt.technique.Variants {
		write := func(kind, src string) {
			if src == "" {
				return
			}
			name := filepath.Join(dir, fmt.Sprintf("v%d_%s.art", i, kind))
			if err := os.WriteFile(name, []byte(src), 0o644); err != nil {
				slog.Warn("shader dump failed", "file", name, "error", err)
			}
		}
		write("rayGeneration", v.RayGeneration)
		write("miss", v.Miss)
		for j, h := range v.HitShaders {
			write(fmt.Sprintf("hit%d", j), h)
		}
		write("advancedShadowHit", v.AdvancedShadowHit)
		write("advancedShadowMiss", v.AdvancedShadowMiss)
	}
}

// Step renders one iteration across the selected variants.
func (rt *Runtime) Step() error {
	if rt.opts.IsTracer {
		return fmt.Errorf("ignis: step called on a trace runtime")
	}
	if rt.state != stateReady {
		return fmt.Errorf("ignis: no scene loaded")
	}

	if rt.technique.Selector != nil {
		for _, idx := range rt.technique.Selector(rt.iteration) {
			if err := rt.stepVariant(idx, nil); err != nil {
				return err
			}
		}
	} else {
		for i := range rt.technique.Variants {
			if err := rt.stepVariant(i, nil); err != nil {
				return err
			}
		}
	}
	rt.iteration++
	return nil
}

// Trace renders the supplied rays through the technique and returns
// 3 floats per ray from the primary plane.
func (rt *Runtime) Trace(rays []device.Ray) ([]float32, error) {
	if !rt.opts.IsTracer {
		return nil, fmt.Errorf("ignis: trace called on a camera runtime")
	}
	if rt.state != stateReady {
		return nil, fmt.Errorf("ignis: no scene loaded")
	}
	if len(rays) == 0 {
		return nil, nil
	}

	if rt.technique.Selector != nil {
		for _, idx := range rt.technique.Selector(rt.iteration) {
			if err := rt.stepVariant(idx, rays); err != nil {
				return nil, err
			}
		}
	} else {
		for i := range rt.technique.Variants {
			if err := rt.stepVariant(i, rays); err != nil {
				return nil, err
			}
		}
	}
	rt.iteration++

	acc, err := rt.render.GetFramebufferForHost(device.AOVColor)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(rays)*3)
	copy(out, acc.Data)
	return out, nil
}

// stepVariant launches one variant. Kernel failures roll the sample
// count back by not advancing it.
func (rt *Runtime) stepVariant(variant int, rays []device.Ray) error {
	if variant < 0 || variant >= len(rt.technique.Variants) {
		return fmt.Errorf("ignis: variant selector returned %d of %d", variant, len(rt.technique.Variants))
	}
	info := rt.technique.Variants[variant].Info
	settings := device.RenderSettings{
		Rays:      rays,
		SPI:       info.GetSPI(rt.samplesPerIteration),
		Width:     info.GetWidth(rt.filmWidth),
		Height:    info.GetHeight(rt.filmHeight),
		Iteration: rt.iteration,
		UserSeed:  rt.opts.Seed,
		Info:      info,
		Denoise:   rt.opts.Denoise,
	}
	if err := rt.render.Render(rt.shaderSets[variant], settings, rt.params); err != nil {
		slog.Error("render launch failed, dropping iteration",
			"variant", variant, "iteration", rt.iteration, "error", err)
		return err
	}
	if !info.LockFramebuffer {
		rt.sampleCount += settings.SPI
	}
	return nil
}

// Reset clears every AOV and zeroes the counters. Idempotent.
func (rt *Runtime) Reset() {
	if rt.render != nil {
		rt.render.ClearAllFramebuffer()
	}
	rt.iteration = 0
	rt.sampleCount = 0
}

// Resize changes the film size; counters reset with the planes.
func (rt *Runtime) Resize(width, height int) {
	rt.filmWidth = width
	rt.filmHeight = height
	rt.render.Resize(width, height)
	rt.Reset()
}

// Shutdown unloads the compiled code and forgets the scene. The
// runtime may load a new scene afterwards.
func (rt *Runtime) Shutdown() {
	if rt.state != stateReady {
		return
	}
	rt.compiler.Release()
	rt.render.ReleaseAll()
	rt.shaderSets = nil
	rt.technique = device.TechniqueInfo{}
	rt.state = stateShutdown
}

// SetParameterInt stores a launch parameter for the next iteration.
func (rt *Runtime) SetParameterInt(name string, v int) { rt.params.SetInt(name, v) }

// SetParameterFloat stores a launch parameter for the next iteration.
func (rt *Runtime) SetParameterFloat(name string, v float32) { rt.params.SetFloat(name, v) }

// SetParameterVector stores a launch parameter for the next iteration.
func (rt *Runtime) SetParameterVector(name string, v lin.V3) { rt.params.SetVector(name, v) }

// SetParameterColor stores a launch parameter for the next iteration.
func (rt *Runtime) SetParameterColor(name string, v lin.V4) { rt.params.SetColor(name, v) }

// Framebuffer returns the named plane and its iteration count.
func (rt *Runtime) Framebuffer(name string) ([]float32, int, error) {
	acc, err := rt.render.GetFramebufferForHost(name)
	if err != nil {
		return nil, 0, err
	}
	return acc.Data, acc.IterationCount, nil
}

// ClearFramebuffer zeroes one plane.
func (rt *Runtime) ClearFramebuffer(name string) error { return rt.render.ClearFramebuffer(name) }

// Tonemap forwards the post pass to the device.
func (rt *Runtime) Tonemap(out []uint32, settings device.TonemapSettings) error {
	return rt.render.Tonemap(out, settings)
}

// EvaluateGlare forwards the post pass to the device.
func (rt *Runtime) EvaluateGlare(out []uint32, settings device.GlareSettings) (device.GlareOutput, error) {
	return rt.render.EvaluateGlare(out, settings)
}

// ImageInfo forwards the post pass to the device.
func (rt *Runtime) ImageInfo(settings device.ImageInfoSettings) (device.ImageInfoOutput, error) {
	return rt.render.ImageInfo(settings)
}

// Statistics returns the device statistics, nil unless acquisition was
// requested.
func (rt *Runtime) Statistics() *device.Statistics {
	if !rt.opts.AcquireStats {
		return nil
	}
	return rt.render.Statistics()
}

// Iteration returns the number of completed iterations.
func (rt *Runtime) Iteration() int { return rt.iteration }

// SampleCount returns the accumulated samples per pixel.
func (rt *Runtime) SampleCount() int { return rt.sampleCount }

// SamplesPerIteration returns the configured SPI.
func (rt *Runtime) SamplesPerIteration() int { return rt.samplesPerIteration }

// FilmWidth returns the framebuffer width.
func (rt *Runtime) FilmWidth() int { return rt.filmWidth }

// FilmHeight returns the framebuffer height.
func (rt *Runtime) FilmHeight() int { return rt.filmHeight }

// TechniqueName returns the loaded technique type.
func (rt *Runtime) TechniqueName() string { return rt.techniqueName }
