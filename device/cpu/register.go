// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package cpu

// register.go exposes the CPU backend as a device interface and
// registers it for every architecture the host supports, so a plain
// import of this package makes rendering possible without modules.

import (
	"github.com/ignis-render/ignis/device"
)

// cpuInterface implements device.Interface for one architecture.
type cpuInterface struct {
	arch     device.Architecture
	registry *kernelRegistry
}

// NewInterface returns a CPU device interface for the architecture.
func NewInterface(arch device.Architecture) device.Interface {
	return &cpuInterface{arch: arch, registry: newKernelRegistry()}
}

func (c *cpuInterface) Version() device.Version           { return device.CurrentVersion }
func (c *cpuInterface) Architecture() device.Architecture { return c.arch }

// MakeCurrent is a no-op: the CPU backend has no thread local state.
func (c *cpuInterface) MakeCurrent() {}

// CreateRenderDevice vends a render device sharing this interface's
// kernel registry with its compiler device.
func (c *cpuInterface) CreateRenderDevice(settings device.SetupSettings) (device.RenderDevice, error) {
	return newRenderDevice(settings, c.registry), nil
}

// CreateCompilerDevice vends the compiler half.
func (c *cpuInterface) CreateCompilerDevice() (device.CompilerDevice, error) {
	return &compilerDevice{registry: c.registry}, nil
}

func init() {
	host := device.HostArchitecture()
	device.Register(NewInterface(device.Generic))
	device.Register(NewInterface(device.Single))
	if host == device.ASIMD {
		device.Register(NewInterface(device.ASIMD))
		return
	}
	for _, arch := range []device.Architecture{
		device.SSE42, device.AVX, device.AVX2, device.AVX512,
	} {
		if arch <= host {
			device.Register(NewInterface(arch))
		}
	}
}
