// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// framebuffer.go owns the AOV planes. Every AOV is a dense float
// buffer, 3 floats per pixel, with its own iteration count. AOV "" is
// the primary color.

import (
	"sync"

	"github.com/ignis-render/ignis/device"
)

// aovBuffer is one named plane.
type aovBuffer struct {
	data  []float32
	iters int
}

// framebuffer is the set of planes at one resolution.
type framebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	aovs   map[string]*aovBuffer
}

func newFramebuffer(width, height int, names []string) *framebuffer {
	fb := &framebuffer{aovs: map[string]*aovBuffer{}}
	fb.realloc(width, height, names)
	return fb
}

// realloc sizes every plane for the new resolution and resets counts.
func (fb *framebuffer) realloc(width, height int, names []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.width = width
	fb.height = height
	planes := map[string]*aovBuffer{
		device.AOVColor: {data: make([]float32, width*height*3)},
	}
	for name := range fb.aovs {
		planes[name] = &aovBuffer{data: make([]float32, width*height*3)}
	}
	for _, name := range names {
		if _, ok := planes[name]; !ok {
			planes[name] = &aovBuffer{data: make([]float32, width*height*3)}
		}
	}
	fb.aovs = planes
}

// get returns a plane; unknown names report device.ErrUnknownAOV.
func (fb *framebuffer) get(name string) (*aovBuffer, error) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	b, ok := fb.aovs[name]
	if !ok {
		return nil, device.ErrUnknownAOV
	}
	return b, nil
}

// clear zeroes one plane and resets its count.
func (fb *framebuffer) clear(name string) error {
	b, err := fb.get(name)
	if err != nil {
		return err
	}
	for i := range b.data {
		b.data[i] = 0
	}
	b.iters = 0
	return nil
}

// clearAll zeroes every plane.
func (fb *framebuffer) clearAll() {
	fb.mu.Lock()
	names := make([]string, 0, len(fb.aovs))
	for name := range fb.aovs {
		names = append(names, name)
	}
	fb.mu.Unlock()
	for _, name := range names {
		_ = fb.clear(name)
	}
}
