// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

// manager.go discovers and loads device modules. Built-in devices
// register themselves at init; external modules are Go plugins named
// ig_device_* found in IG_DEVICE_PATH or next to the executable. One
// process wide manager instance exists behind a mutex.

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"sort"
	"strings"
	"sync"
)

// Environment variables controlling discovery.
const (
	EnvDevicePath     = "IG_DEVICE_PATH"
	EnvSkipSystemPath = "IG_DEVICE_SKIP_SYSTEM_PATH"

	modulePrefix = "ig_device_"
)

// builtin registry. The CPU device registers here from its init so the
// common path needs no module files at all.
var (
	builtinMu sync.Mutex
	builtins  = map[Architecture]Interface{}
)

// Register installs a built-in device. Later registrations for the same
// architecture win; tests use this to substitute fakes.
func Register(iface Interface) {
	builtinMu.Lock()
	defer builtinMu.Unlock()
	builtins[iface.Architecture()] = iface
}

// Manager discovers, loads and unloads device modules.
type Manager struct {
	mu        sync.Mutex
	available map[Architecture]string    // discovered module path per architecture
	loaded    map[Architecture]Interface // resolved interfaces
	inited    bool
}

// managerInstance is the process wide manager.
var (
	managerOnce     sync.Once
	managerInstance *Manager
)

// GetManager returns the process wide manager.
func GetManager() *Manager {
	managerOnce.Do(func() { managerInstance = &Manager{} })
	return managerInstance
}

// Init scans for device modules. Built-ins are always available. The
// scan covers IG_DEVICE_PATH entries, then the executable's ../lib
// directory unless IG_DEVICE_SKIP_SYSTEM_PATH is set, then dir. A
// second call is a no-op unless force is set.
func (m *Manager) Init(dir string, ignoreEnv, force bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inited && !force {
		return nil
	}
	m.available = map[Architecture]string{}
	m.loaded = map[Architecture]Interface{}

	var paths []string
	skipSystem := false
	if !ignoreEnv {
		if env := os.Getenv(EnvDevicePath); env != "" {
			paths = append(paths, filepath.SplitList(env)...)
		}
		if os.Getenv(EnvSkipSystemPath) != "" {
			skipSystem = true
		}
	}
	if !skipSystem {
		if exe, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(exe), "..", "lib"))
		}
	}
	if dir != "" {
		paths = append(paths, dir)
	}

	for _, p := range paths {
		slog.Debug("searching for devices", "path", p)
		for _, modPath := range modulesInDir(p) {
			slog.Debug("adding device", "path", modPath)
			if err := m.addModule(modPath); err != nil {
				slog.Warn("skipping device module", "path", modPath, "error", err)
			}
		}
	}

	m.inited = true
	if len(m.available) == 0 && len(builtins) == 0 {
		return ErrNoDevice
	}
	return nil
}

// modulesInDir lists plausible module files: regular files whose stem
// starts with ig_device_ and matches the build flavor suffix.
func modulesInDir(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if !strings.HasPrefix(stem, modulePrefix) {
			continue
		}
		if strings.HasSuffix(stem, "_d") != debugBuild {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out
}

// addModule loads one plugin file and indexes it by architecture.
// Version mismatches are skipped with a warning rather than failing the
// whole scan.
func (m *Manager) addModule(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		return fmt.Errorf("device: open module: %w", err)
	}
	sym, err := p.Lookup(InterfaceSymbol)
	if err != nil {
		return fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, InterfaceSymbol, path)
	}
	get, ok := sym.(func() Interface)
	if !ok {
		return fmt.Errorf("device: %s has wrong type in %s", InterfaceSymbol, path)
	}
	iface := get()
	if v := iface.Version(); v != CurrentVersion {
		slog.Warn("device module version mismatch",
			"path", path, "module", fmt.Sprintf("%d.%d", v.Major, v.Minor),
			"runtime", fmt.Sprintf("%d.%d", CurrentVersion.Major, CurrentVersion.Minor))
		return ErrVersionMismatch
	}
	arch := iface.Architecture()
	if _, exists := m.available[arch]; !exists {
		m.available[arch] = path
		m.loaded[arch] = iface
	}
	return nil
}

// GetDevice returns the interface for a target, loading it on demand.
func (m *Manager) GetDevice(target Target) (Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(target.Architecture)
}

func (m *Manager) getLocked(arch Architecture) (Interface, error) {
	if iface, ok := m.loaded[arch]; ok {
		return iface, nil
	}
	builtinMu.Lock()
	iface, ok := builtins[arch]
	builtinMu.Unlock()
	if ok {
		if m.loaded == nil {
			m.loaded = map[Architecture]Interface{}
		}
		m.loaded[arch] = iface
		return iface, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoDevice, arch)
}

// Unload drops the cached interface for a target.
func (m *Manager) Unload(target Target) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loaded, target.Architecture)
}

// UnloadAll drops every cached interface.
func (m *Manager) UnloadAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = map[Architecture]Interface{}
}

// AvailableTargets lists every architecture a device exists for.
func (m *Manager) AvailableTargets() []Target {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[Architecture]bool{}
	var out []Target
	add := func(arch Architecture) {
		if !seen[arch] {
			seen[arch] = true
			out = append(out, Target{Architecture: arch})
		}
	}
	builtinMu.Lock()
	for arch := range builtins {
		add(arch)
	}
	builtinMu.Unlock()
	for arch := range m.available {
		add(arch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Architecture < out[j].Architecture })
	return out
}

// RecommendCPUTarget picks the widest available host architecture.
func (m *Manager) RecommendCPUTarget() Target {
	host := HostArchitecture()
	best := InvalidTarget
	for _, t := range m.AvailableTargets() {
		if !t.IsCPU() {
			continue
		}
		if t.Architecture > host && t.Architecture != Single {
			continue // wider than the host supports
		}
		if !best.IsValid() || t.Architecture > best.Architecture {
			best = t
		}
	}
	return best
}

// RecommendGPUTarget picks the first available accelerator.
func (m *Manager) RecommendGPUTarget() Target {
	for _, t := range m.AvailableTargets() {
		if t.IsGPU() {
			return t
		}
	}
	return InvalidTarget
}

// RecommendTarget prefers a GPU, falling back to the CPU.
func (m *Manager) RecommendTarget() Target {
	if t := m.RecommendGPUTarget(); t.IsValid() {
		return t
	}
	return m.RecommendCPUTarget()
}

// ResolveTarget substitutes a compatible target when the requested one
// has no device. The substitution is logged by the caller.
func (m *Manager) ResolveTarget(target Target) Target {
	if target.IsValid() {
		if _, err := m.GetDevice(target); err == nil {
			return target
		}
	}
	if target.IsGPU() {
		if t := m.RecommendGPUTarget(); t.IsValid() {
			return t
		}
	}
	if t := m.RecommendCPUTarget(); t.IsValid() {
		return t
	}
	return m.RecommendTarget()
}
