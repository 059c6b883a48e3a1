// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package ignis

// options.go carries the runtime construction options and their
// optional YAML file form.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ignis-render/ignis/device"
)

// Options configure a Runtime. The zero value requests the Generic
// target and uses the scene's own film and technique.
type Options struct {
	// DesiredTarget requests a specific architecture. Set it to
	// device.InvalidTarget to let the manager recommend one.
	DesiredTarget device.Target

	// RecommendCPU and RecommendGPU bias the recommendation when no
	// explicit target is given; with either set, a zero DesiredTarget
	// counts as not given.
	RecommendCPU bool
	RecommendGPU bool

	// ModulePath is an extra directory scanned for device modules.
	ModulePath string

	// ScriptDir holds the standard library of script snippets loaded
	// before compilation.
	ScriptDir string

	// Overrides; zero values defer to the scene file.
	OverrideTechnique string
	OverrideCamera    string
	OverrideFilmWidth  int
	OverrideFilmHeight int

	// SPI forces the samples per iteration; 0 derives the heuristic.
	SPI int

	// Seed perturbs every launch's random streams.
	Seed uint64

	IsTracer     bool
	AcquireStats bool
	Denoise      bool

	// DumpShader writes each generated shader next to the scene file.
	DumpShader bool
}

// optionsFile is the YAML form of the user facing options.
type optionsFile struct {
	Target    string `yaml:"target"`
	Technique string `yaml:"technique"`
	Camera    string `yaml:"camera"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	SPI       int    `yaml:"spi"`
	Seed      uint64 `yaml:"seed"`
	Denoise   bool   `yaml:"denoise"`
	Stats     bool   `yaml:"stats"`
	ScriptDir string `yaml:"script_dir"`
	Modules   string `yaml:"module_path"`
}

// LoadOptions reads an options file, overlaying it on the defaults.
func LoadOptions(path string) (Options, error) {
	var opts Options
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("ignis: read options: %w", err)
	}
	var of optionsFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return opts, fmt.Errorf("ignis: parse options: %w", err)
	}

	opts.OverrideTechnique = of.Technique
	opts.OverrideCamera = of.Camera
	opts.OverrideFilmWidth = of.Width
	opts.OverrideFilmHeight = of.Height
	opts.SPI = of.SPI
	opts.Seed = of.Seed
	opts.Denoise = of.Denoise
	opts.AcquireStats = of.Stats
	opts.ScriptDir = of.ScriptDir
	opts.ModulePath = of.Modules

	switch of.Target {
	case "", "auto":
		opts.DesiredTarget = device.InvalidTarget
	case "cpu":
		opts.RecommendCPU = true
	case "gpu":
		opts.RecommendGPU = true
	default:
		arch, err := parseArchitecture(of.Target)
		if err != nil {
			return opts, err
		}
		opts.DesiredTarget = device.Target{Architecture: arch}
	}
	return opts, nil
}

func parseArchitecture(name string) (device.Architecture, error) {
	for arch := device.Generic; arch < device.InvalidArch; arch++ {
		if arch.String() == name {
			return arch, nil
		}
	}
	switch name {
	case "avx2":
		return device.AVX2, nil
	case "avx512":
		return device.AVX512, nil
	case "sse42":
		return device.SSE42, nil
	case "nvvm", "cuda":
		return device.NVVM, nil
	case "amdgpu", "hip":
		return device.AMDHSA, nil
	case "generic":
		return device.Generic, nil
	case "single":
		return device.Single, nil
	}
	return device.InvalidArch, fmt.Errorf("ignis: unknown target %q", name)
}
