// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// device.go is the CPU render device: scene upload, per launch pixel
// loops on a worker pool, framebuffer accumulation and the post passes.

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
)

// renderDevice implements device.RenderDevice.
type renderDevice struct {
	target   device.Target
	registry *kernelRegistry

	fb       *framebuffer
	scene    *sceneView
	aovNames []string

	stats       *device.Statistics
	interactive bool
	denoiser    Denoiser

	rendering sync.Mutex // render calls are serial by contract
}

func newRenderDevice(settings device.SetupSettings, registry *kernelRegistry) *renderDevice {
	rd := &renderDevice{
		target:      settings.Target,
		registry:    registry,
		fb:          newFramebuffer(0, 0, nil),
		interactive: settings.IsInteractive,
		denoiser:    &jointFilterDenoiser{},
	}
	if settings.AcquireStats {
		rd.stats = device.NewStatistics()
	}
	return rd
}

// AssignScene decodes the database into device resident views.
func (rd *renderDevice) AssignScene(settings device.SceneSettings) error {
	if settings.Database == nil {
		return fmt.Errorf("cpu: assign scene without database")
	}
	arity, packetSize := rd.target.BvhShape()
	sv, err := decodeScene(settings.Database, arity, packetSize, rd.target.String())
	if err != nil {
		return err
	}
	rd.scene = sv
	rd.aovNames = append([]string{}, settings.AOVs...)
	rd.fb.realloc(rd.fb.width, rd.fb.height, rd.aovNames)
	slog.Debug("scene assigned",
		"shapes", len(sv.shapes), "entities", len(sv.entities), "lights", len(sv.lights))
	return nil
}

// Resize reallocates every AOV and resets iteration counts.
func (rd *renderDevice) Resize(width, height int) {
	rd.fb.realloc(width, height, rd.aovNames)
}

// ReleaseAll drops the scene and framebuffer storage.
func (rd *renderDevice) ReleaseAll() {
	rd.scene = nil
	rd.fb = newFramebuffer(0, 0, nil)
}

func (rd *renderDevice) Target() device.Target  { return rd.target }
func (rd *renderDevice) FramebufferWidth() int  { return rd.fb.width }
func (rd *renderDevice) FramebufferHeight() int { return rd.fb.height }
func (rd *renderDevice) IsInteractive() bool    { return rd.interactive }

func (rd *renderDevice) Statistics() *device.Statistics { return rd.stats }

// GetFramebufferForHost returns the plane; the CPU device is host
// memory already so no copy happens.
func (rd *renderDevice) GetFramebufferForHost(name string) (device.AOVAccessor, error) {
	b, err := rd.fb.get(name)
	if err != nil {
		return device.AOVAccessor{}, err
	}
	return device.AOVAccessor{Data: b.data, IterationCount: b.iters}, nil
}

// GetFramebufferForDevice is the same memory on this backend.
func (rd *renderDevice) GetFramebufferForDevice(name string) (device.AOVAccessor, error) {
	return rd.GetFramebufferForHost(name)
}

func (rd *renderDevice) ClearFramebuffer(name string) error { return rd.fb.clear(name) }
func (rd *renderDevice) ClearAllFramebuffer()               { rd.fb.clearAll() }

// Render executes one (iteration, variant) launch.
func (rd *renderDevice) Render(shaders device.ShaderSet, settings device.RenderSettings, params *device.ParameterSet) error {
	rd.rendering.Lock()
	defer rd.rendering.Unlock()

	if rd.scene == nil {
		return fmt.Errorf("cpu: render without scene")
	}
	width, height := settings.Width, settings.Height
	if settings.Rays != nil {
		width, height = len(settings.Rays), 1
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("cpu: render with empty launch size %dx%d", width, height)
	}

	rg, ok := rd.registry.lookup(shaders.RayGeneration)
	if !ok || rg.kind != kernelRayGeneration {
		return fmt.Errorf("%w: ray generation handle %d", device.ErrKernelFailed, shaders.RayGeneration)
	}
	if _, ok := rd.registry.lookup(shaders.Miss); !ok {
		return fmt.Errorf("%w: miss handle", device.ErrKernelFailed)
	}
	for i, h := range shaders.HitShaders {
		if _, ok := rd.registry.lookup(h); !ok {
			return fmt.Errorf("%w: hit handle %d", device.ErrKernelFailed, i)
		}
	}

	lc := &launchContext{
		scene:    rd.scene,
		params:   params,
		shaders:  shaders,
		info:     settings.Info,
		renderer: rg.renderer,
		maxDepth: params.Int("max_depth", 64),
		clamp:    params.Float("clamp", 0),
		aoRadius: params.Float("ao_radius", 0),
		seed:     settings.UserSeed,
		iter:     settings.Iteration,
	}
	if lc.maxDepth < 1 {
		lc.maxDepth = 1
	}

	start := time.Now()
	var err error
	if settings.Rays != nil {
		err = rd.renderRays(lc, settings)
	} else {
		err = rd.renderFilm(lc, settings)
	}
	if err != nil {
		return err
	}
	rd.stats.Add(device.ShaderRayGeneration, time.Since(start),
		uint64(width*height*settings.SPI))

	if settings.Denoise {
		rd.denoise()
	}
	return nil
}

// renderFilm runs the pixel loop over the framebuffer, accumulating
// the per iteration mean into the color plane.
func (rd *renderDevice) renderFilm(lc *launchContext, settings device.RenderSettings) error {
	width := settings.Info.GetWidth(settings.Width)
	height := settings.Info.GetHeight(settings.Height)
	spi := settings.Info.GetSPI(settings.SPI)
	if spi < 1 {
		spi = 1
	}

	color, err := rd.fb.get(device.AOVColor)
	if err != nil {
		return err
	}
	if len(color.data) < width*height*3 {
		// Variant resolution beyond the framebuffer only happens for
		// locked helper variants; render into scratch storage then.
		color = &aovBuffer{data: make([]float32, width*height*3)}
	}
	var normals, albedo *aovBuffer
	if b, err := rd.fb.get(device.AOVNormals); err == nil && len(b.data) >= width*height*3 {
		normals = b
	}
	if b, err := rd.fb.get(device.AOVAlbedo); err == nil && len(b.data) >= width*height*3 {
		albedo = b
	}

	cam := newCamera(lc.params, width, height)
	nanCount := 0
	var nanMu sync.Mutex

	workers := runtime.NumCPU()
	rows := make(chan int, height)
	for y := 0; y < height; y++ {
		rows <- y
	}
	close(rows)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for y := range rows {
				badRow := rd.renderRow(lc, cam, color, normals, albedo, y, width, height, spi)
				if badRow > 0 {
					nanMu.Lock()
					nanCount += badRow
					nanMu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if nanCount > 0 {
		slog.Warn("kernel produced non-finite samples", "count", nanCount,
			"iteration", settings.Iteration)
	}
	if !settings.Info.LockFramebuffer {
		color.iters++
		if normals != nil {
			normals.iters++
		}
		if albedo != nil {
			albedo.iters++
		}
	}
	return nil
}

// renderRow shades one scanline. Returns the number of non-finite
// samples that were dropped.
func (rd *renderDevice) renderRow(lc *launchContext, cam camera, color, normals, albedo *aovBuffer, y, width, height, spi int) int {
	bad := 0
	inv := 1 / float32(spi)
	for x := 0; x < width; x++ {
		pixel := y*width + x
		var sum lin.V3
		for s := 0; s < spi; s++ {
			rnd := newRNG(pixel, lc.iter, s, lc.seed)
			r := cam.primary(x, y, width, height, rnd.float(), rnd.float())
			v := lc.samplePixel(r, rnd)
			if lin.IsNaN(v.X) || lin.IsNaN(v.Y) || lin.IsNaN(v.Z) ||
				lin.IsInf(v.X) || lin.IsInf(v.Y) || lin.IsInf(v.Z) {
				bad++
				continue
			}
			sum = sum.Add(v)
		}
		mean := sum.Scale(inv)
		color.data[pixel*3] += mean.X
		color.data[pixel*3+1] += mean.Y
		color.data[pixel*3+2] += mean.Z

		if normals != nil || albedo != nil {
			r := cam.primary(x, y, width, height, 0.5, 0.5)
			h := lc.scene.intersectScene(r)
			var n, a lin.V3
			if h.valid {
				surf := lc.scene.resolveHit(r, h)
				n = surf.normal
				a = lc.scene.bsdf(surf.material).color
			}
			if normals != nil {
				normals.data[pixel*3] += n.X
				normals.data[pixel*3+1] += n.Y
				normals.data[pixel*3+2] += n.Z
			}
			if albedo != nil {
				albedo.data[pixel*3] += a.X
				albedo.data[pixel*3+1] += a.Y
				albedo.data[pixel*3+2] += a.Z
			}
		}
	}
	return bad
}

// renderRays runs trace mode: one result per supplied ray, written to
// the color plane without accumulation.
func (rd *renderDevice) renderRays(lc *launchContext, settings device.RenderSettings) error {
	color, err := rd.fb.get(device.AOVColor)
	if err != nil {
		return err
	}
	need := len(settings.Rays) * 3
	if len(color.data) < need {
		color.data = make([]float32, need)
	}

	spi := settings.Info.GetSPI(settings.SPI)
	if spi < 1 {
		spi = 1
	}
	inv := 1 / float32(spi)
	for i, in := range settings.Rays {
		tmax := in.Range.Y
		if tmax <= 0 {
			tmax = lin.FltInf
		}
		var sum lin.V3
		for s := 0; s < spi; s++ {
			rnd := newRNG(i, lc.iter, s, lc.seed)
			r := newRay(in.Origin, in.Direction.Unit(), lin.Max(in.Range.X, 1e-5), tmax)
			sum = sum.Add(lc.samplePixel(r, rnd))
		}
		mean := sum.Scale(inv)
		color.data[i*3] = mean.X
		color.data[i*3+1] = mean.Y
		color.data[i*3+2] = mean.Z
	}
	if !settings.Info.LockFramebuffer {
		color.iters++
	}
	return nil
}
