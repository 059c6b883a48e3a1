// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

// params.go holds the typed user parameters forwarded into kernels at
// launch time. Kernels read them through the registry accessors emitted
// into the script; unset keys read as the default given at the read site.

import (
	"github.com/ignis-render/ignis/math/lin"
)

// ParameterSet carries launch time parameters in four type segregated
// maps. The set is read-only during a render; mutations between renders
// are picked up by the next launch.
type ParameterSet struct {
	IntParams    map[string]int
	FloatParams  map[string]float32
	VectorParams map[string]lin.V3
	ColorParams  map[string]lin.V4
}

// NewParameterSet returns an empty set with allocated maps.
func NewParameterSet() *ParameterSet {
	return &ParameterSet{
		IntParams:    map[string]int{},
		FloatParams:  map[string]float32{},
		VectorParams: map[string]lin.V3{},
		ColorParams:  map[string]lin.V4{},
	}
}

// SetInt stores an integer parameter.
func (p *ParameterSet) SetInt(name string, v int) { p.IntParams[name] = v }

// SetFloat stores a float parameter.
func (p *ParameterSet) SetFloat(name string, v float32) { p.FloatParams[name] = v }

// SetVector stores a vector parameter.
func (p *ParameterSet) SetVector(name string, v lin.V3) { p.VectorParams[name] = v }

// SetColor stores a color parameter.
func (p *ParameterSet) SetColor(name string, v lin.V4) { p.ColorParams[name] = v }

// Int reads an integer parameter, def when unset.
func (p *ParameterSet) Int(name string, def int) int {
	if p == nil {
		return def
	}
	if v, ok := p.IntParams[name]; ok {
		return v
	}
	return def
}

// Float reads a float parameter, def when unset.
func (p *ParameterSet) Float(name string, def float32) float32 {
	if p == nil {
		return def
	}
	if v, ok := p.FloatParams[name]; ok {
		return v
	}
	return def
}

// Vector reads a vector parameter, def when unset.
func (p *ParameterSet) Vector(name string, def lin.V3) lin.V3 {
	if p == nil {
		return def
	}
	if v, ok := p.VectorParams[name]; ok {
		return v
	}
	return def
}

// Color reads a color parameter, def when unset.
func (p *ParameterSet) Color(name string, def lin.V4) lin.V4 {
	if p == nil {
		return def
	}
	if v, ok := p.ColorParams[name]; ok {
		return v
	}
	return def
}

// Merge overlays other on top of p, other winning ties.
func (p *ParameterSet) Merge(other *ParameterSet) {
	if other == nil {
		return
	}
	for k, v := range other.IntParams {
		p.IntParams[k] = v
	}
	for k, v := range other.FloatParams {
		p.FloatParams[k] = v
	}
	for k, v := range other.VectorParams {
		p.VectorParams[k] = v
	}
	for k, v := range other.ColorParams {
		p.ColorParams[k] = v
	}
}
