// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package device abstracts the compute backends that execute compiled
// rendering kernels. A backend is discovered either as a built-in
// registration or as a shared module on disk, and vends two cooperating
// interfaces: a compiler device (script source to callable handle) and
// a render device (scene upload, per-iteration launches, framebuffer
// and post passes).
package device

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Architecture enumerates the kernel instruction targets.
type Architecture uint32

const (
	Generic Architecture = iota // portable scalar CPU
	Single                      // single threaded CPU, debugging
	SSE42
	AVX
	AVX2
	AVX512
	ASIMD  // 128 bit arm
	NVVM   // CUDA
	AMDHSA // HIP
	InvalidArch
)

// String returns the display name of the architecture.
func (a Architecture) String() string {
	switch a {
	case Generic:
		return "Generic"
	case Single:
		return "SingleThreaded"
	case SSE42:
		return "SSE4.2"
	case AVX:
		return "AVX"
	case AVX2:
		return "AVX2"
	case AVX512:
		return "AVX512"
	case ASIMD:
		return "ASIMD"
	case NVVM:
		return "NVVM"
	case AMDHSA:
		return "AMDHSA"
	default:
		return "Invalid"
	}
}

// Target is an architecture plus a device ordinal for machines with
// several accelerators.
type Target struct {
	Architecture Architecture
	Device       int // GPU ordinal, ignored for CPU targets
}

// InvalidTarget is the zero request: the manager picks for you.
var InvalidTarget = Target{Architecture: InvalidArch}

// IsValid reports whether the target names a real architecture.
func (t Target) IsValid() bool { return t.Architecture < InvalidArch }

// IsCPU reports whether kernels run on the host.
func (t Target) IsCPU() bool {
	return t.Architecture != NVVM && t.Architecture != AMDHSA && t.IsValid()
}

// IsGPU reports whether kernels run on an accelerator.
func (t Target) IsGPU() bool {
	return t.Architecture == NVVM || t.Architecture == AMDHSA
}

// VectorWidth returns the SIMD lane count of the architecture. The BVH
// fan-out is chosen from this.
func (t Target) VectorWidth() int {
	switch t.Architecture {
	case AVX512:
		return 16
	case AVX2, AVX:
		return 8
	case SSE42, ASIMD:
		return 4
	default:
		return 1
	}
}

// String returns a display name like "AVX2" or "NVVM:1".
func (t Target) String() string {
	if t.IsGPU() && t.Device > 0 {
		return t.Architecture.String() + ":" + itoa(t.Device)
	}
	return t.Architecture.String()
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// HostArchitecture probes the running CPU for the widest supported
// kernel architecture.
func HostArchitecture() Architecture {
	switch runtime.GOARCH {
	case "amd64":
		switch {
		case cpu.X86.HasAVX512F:
			return AVX512
		case cpu.X86.HasAVX2:
			return AVX2
		case cpu.X86.HasAVX:
			return AVX
		case cpu.X86.HasSSE42:
			return SSE42
		default:
			return Generic
		}
	case "arm64":
		return ASIMD
	default:
		return Generic
	}
}

// BvhShape returns the (fan-out, packet size) pair the target traverses
// fastest: GPUs use a flat binary layout with single triangle leaves,
// narrow CPUs 4-wide nodes, wide CPUs 8-wide nodes.
func (t Target) BvhShape() (arity, packetSize int) {
	switch {
	case t.IsGPU():
		return 2, 1
	case t.VectorWidth() < 8:
		return 4, 4
	default:
		return 8, 4
	}
}
