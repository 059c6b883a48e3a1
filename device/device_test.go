// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignis-render/ignis/math/lin"
)

// fakeInterface is a do-nothing device for manager tests.
type fakeInterface struct {
	arch Architecture
}

func (f *fakeInterface) Version() Version           { return CurrentVersion }
func (f *fakeInterface) Architecture() Architecture { return f.arch }
func (f *fakeInterface) CreateRenderDevice(SetupSettings) (RenderDevice, error) {
	return nil, ErrNoDevice
}
func (f *fakeInterface) CreateCompilerDevice() (CompilerDevice, error) { return nil, ErrNoDevice }
func (f *fakeInterface) MakeCurrent()                                 {}

func TestTargetClassification(t *testing.T) {
	assert.True(t, Target{Architecture: AVX2}.IsCPU())
	assert.False(t, Target{Architecture: AVX2}.IsGPU())
	assert.True(t, Target{Architecture: NVVM}.IsGPU())
	assert.False(t, InvalidTarget.IsValid())
}

func TestBvhShapeSelection(t *testing.T) {
	n, m := Target{Architecture: NVVM}.BvhShape()
	assert.Equal(t, [2]int{2, 1}, [2]int{n, m}, "gpu shape")

	n, m = Target{Architecture: SSE42}.BvhShape()
	assert.Equal(t, [2]int{4, 4}, [2]int{n, m}, "narrow cpu shape")

	n, m = Target{Architecture: AVX2}.BvhShape()
	assert.Equal(t, [2]int{8, 4}, [2]int{n, m}, "wide cpu shape")

	n, m = Target{Architecture: AVX512}.BvhShape()
	assert.Equal(t, [2]int{8, 4}, [2]int{n, m})
}

func TestManagerBuiltinRegistration(t *testing.T) {
	Register(&fakeInterface{arch: Single})
	m := &Manager{}
	require.NoError(t, m.Init("", true, true))

	iface, err := m.GetDevice(Target{Architecture: Single})
	require.NoError(t, err)
	assert.Equal(t, Single, iface.Architecture())

	targets := m.AvailableTargets()
	found := false
	for _, tgt := range targets {
		if tgt.Architecture == Single {
			found = true
		}
	}
	assert.True(t, found, "registered builtin should be listed")
}

func TestManagerResolveSubstitutes(t *testing.T) {
	Register(&fakeInterface{arch: Single})
	m := &Manager{}
	require.NoError(t, m.Init("", true, true))

	// No GPU module exists, so a GPU request resolves to a CPU target.
	resolved := m.ResolveTarget(Target{Architecture: NVVM})
	assert.True(t, resolved.IsCPU(), "resolved = %v", resolved)
}

func TestManagerUnload(t *testing.T) {
	Register(&fakeInterface{arch: Single})
	m := &Manager{}
	require.NoError(t, m.Init("", true, true))
	_, err := m.GetDevice(Target{Architecture: Single})
	require.NoError(t, err)
	m.Unload(Target{Architecture: Single})
	// Builtin devices reload on demand after unload.
	_, err = m.GetDevice(Target{Architecture: Single})
	assert.NoError(t, err)
}

func TestParameterSetDefaults(t *testing.T) {
	p := NewParameterSet()
	assert.Equal(t, 8, p.Int("max_depth", 8))
	p.SetInt("max_depth", 2)
	assert.Equal(t, 2, p.Int("max_depth", 8))

	var nilSet *ParameterSet
	assert.Equal(t, float32(1.5), nilSet.Float("x", 1.5), "nil set reads defaults")

	p.SetVector("dir", lin.NewV3(1, 0, 0))
	assert.Equal(t, lin.NewV3(1, 0, 0), p.Vector("dir", lin.V3{}))
}

func TestParameterSetMerge(t *testing.T) {
	a := NewParameterSet()
	a.SetFloat("clamp", 10)
	b := NewParameterSet()
	b.SetFloat("clamp", 100)
	b.SetInt("max_depth", 4)
	a.Merge(b)
	assert.Equal(t, float32(100), a.Float("clamp", 0))
	assert.Equal(t, 4, a.Int("max_depth", 0))
}

func TestVariantInfoOverrides(t *testing.T) {
	v := VariantInfo{}
	assert.Equal(t, 800, v.GetWidth(800))
	assert.Equal(t, 4, v.GetSPI(4))

	v = VariantInfo{Width: 64, Height: 32, SPIOverride: 1}
	assert.Equal(t, 64, v.GetWidth(800))
	assert.Equal(t, 32, v.GetHeight(600))
	assert.Equal(t, 1, v.GetSPI(4))
}

func TestStatistics(t *testing.T) {
	s := NewStatistics()
	s.Add(ShaderHit, 10, 100)
	s.Add(ShaderHit, 5, 50)
	got := s.Get(ShaderHit)
	assert.Equal(t, 2, got.Count)
	assert.EqualValues(t, 150, got.Workload)
	assert.Contains(t, s.Dump(), "Hit")
}

func TestHostArchitectureValid(t *testing.T) {
	arch := HostArchitecture()
	assert.True(t, Target{Architecture: arch}.IsCPU())
}
