// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// compiler.go is the CPU compiler device. It is the JIT boundary of
// this backend: script text goes in, a callable handle comes out. The
// cache is keyed by the script hash so identical text always yields the
// identical handle; the handle binds the generated entry point to the
// native kernel that implements it.

import (
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ignis-render/ignis/device"
)

// kernelKind classifies a compiled entry point.
type kernelKind int

const (
	kernelRayGeneration kernelKind = iota
	kernelMiss
	kernelHit
	kernelAdvancedShadowHit
	kernelAdvancedShadowMiss
	kernelCallback
)

// rendererKind is the integrator a ray generation script constructs.
type rendererKind int

const (
	rendererPath rendererKind = iota
	rendererDirect
	rendererAO
	rendererDebug
	rendererSgptPrepass
	rendererSgpt
)

// kernelInfo is what a handle resolves to at launch time.
type kernelInfo struct {
	kind     kernelKind
	renderer rendererKind
}

// kernelRegistry maps handles to their bound kernels. It is shared
// between the compiler and render devices of one interface instance.
type kernelRegistry struct {
	mu      sync.Mutex
	cache   map[[32]byte]device.Handle
	kernels map[device.Handle]kernelInfo
	next    device.Handle
}

func newKernelRegistry() *kernelRegistry {
	return &kernelRegistry{
		cache:   map[[32]byte]device.Handle{},
		kernels: map[device.Handle]kernelInfo{},
		next:    1,
	}
}

func (r *kernelRegistry) lookup(h device.Handle) (kernelInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.kernels[h]
	return info, ok
}

// compilerDevice implements device.CompilerDevice.
type compilerDevice struct {
	registry *kernelRegistry
}

// Compile resolves the entry function against the script and returns
// the cached or newly bound handle. Repeated calls with identical
// script text return the same handle; a changed script compiles anew.
func (c *compilerDevice) Compile(settings device.CompileSettings, script, function string) (device.Handle, error) {
	if script == "" {
		return 0, fmt.Errorf("%w: empty script", device.ErrCompileFailed)
	}
	info, err := classify(script, function)
	if err != nil {
		return 0, err
	}

	key := sha256.Sum256(append([]byte(script), []byte("\x00"+function)...))
	r := c.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.cache[key]; ok {
		return h, nil
	}
	h := r.next
	r.next++
	r.cache[key] = h
	r.kernels[h] = info
	if settings.Verbose {
		slog.Debug("compiled shader", "function", function, "handle", h,
			"opt", settings.OptimizationLevel, "bytes", len(script))
	}
	return h, nil
}

// Release drops all compiled code and invalidates handles.
func (c *compilerDevice) Release() {
	r := c.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = map[[32]byte]device.Handle{}
	r.kernels = map[device.Handle]kernelInfo{}
}

// classify binds the entry name to the native kernel implementing it.
// Unknown entry names are missing symbols.
func classify(script, function string) (kernelInfo, error) {
	var info kernelInfo
	switch {
	case strings.Contains(function, "rayGeneration"):
		info.kind = kernelRayGeneration
		switch {
		case strings.Contains(script, "make_path_tracing_renderer"):
			info.renderer = rendererPath
		case strings.Contains(script, "make_direct_renderer"):
			info.renderer = rendererDirect
		case strings.Contains(script, "make_ao_renderer"):
			info.renderer = rendererAO
		case strings.Contains(script, "make_debug_renderer"):
			info.renderer = rendererDebug
		case strings.Contains(script, "make_light_sgpt_prepass_renderer"):
			info.renderer = rendererSgptPrepass
		case strings.Contains(script, "make_light_sgpt_renderer"):
			info.renderer = rendererSgpt
		default:
			return info, fmt.Errorf("%w: no renderer constructed in %s", device.ErrCompileFailed, function)
		}
	case strings.Contains(function, "missShader"):
		info.kind = kernelMiss
	case strings.Contains(function, "hitShader"):
		info.kind = kernelHit
	case strings.Contains(function, "advancedShadowHit"):
		info.kind = kernelAdvancedShadowHit
	case strings.Contains(function, "advancedShadowMiss"):
		info.kind = kernelAdvancedShadowMiss
	case strings.Contains(function, "callback"):
		info.kind = kernelCallback
	default:
		return info, fmt.Errorf("%w: %s", device.ErrSymbolNotFound, function)
	}
	return info, nil
}
