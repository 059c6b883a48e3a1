// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package device

// interface.go declares the shared module boundary: the version gate,
// the top level Interface every device module exports, and the compiler
// and render device contracts behind it.

import (
	"errors"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// Errors crossing the device boundary.
var (
	ErrVersionMismatch = errors.New("device: module version mismatch")
	ErrSymbolNotFound  = errors.New("device: symbol not found")
	ErrNoDevice        = errors.New("device: no device available")
	ErrCompileFailed   = errors.New("device: compile failed")
	ErrKernelFailed    = errors.New("device: kernel reported failure")
	ErrUnknownAOV      = errors.New("device: unknown framebuffer name")
)

// Version gates modules: a module whose version does not match the
// runtime's is skipped with a warning.
type Version struct {
	Major int
	Minor int
}

// CurrentVersion is the device interface version of this runtime.
var CurrentVersion = Version{Major: 0, Minor: 5}

// InterfaceSymbol is the exported symbol name device modules provide.
const InterfaceSymbol = "IgGetInterface"

// Interface is what a device module exports: identification plus the
// factories for the two device halves.
type Interface interface {
	Version() Version
	Architecture() Architecture
	CreateRenderDevice(settings SetupSettings) (RenderDevice, error)
	CreateCompilerDevice() (CompilerDevice, error)
	MakeCurrent() // bind thread local state (GPU contexts) to the caller
}

// CompileSettings tune one compilation.
type CompileSettings struct {
	OptimizationLevel int // 0..3
	Verbose           bool
}

// Handle is an opaque compiled function reference. Handles stay valid
// until the owning compiler device is released.
type Handle uintptr

// CompilerDevice turns script source into callable kernels. Compilation
// is blocking and not re-entrant. Identical script text returns the
// identical handle.
type CompilerDevice interface {
	// Compile compiles script and resolves the named entry function.
	// A missing entry reports ErrSymbolNotFound.
	Compile(settings CompileSettings, script, function string) (Handle, error)

	// Release drops all compiled code. Handles become invalid.
	Release()
}

// ShaderSet is one technique variant after compilation: the function
// handles the render device jumps through, in the same layout as the
// variant's sources.
type ShaderSet struct {
	RayGeneration      Handle
	Miss               Handle
	HitShaders         []Handle // indexed by material id
	AdvancedShadowHit  Handle   // 0 when the variant has no shadow split
	AdvancedShadowMiss Handle
	Callbacks          []Handle // 0 entries are unused slots
}

// ShadowHandlingMode tells the device how occlusion rays resolve.
type ShadowHandlingMode int

const (
	// ShadowSimple terminates shadow rays on any hit.
	ShadowSimple ShadowHandlingMode = iota
	// ShadowAdvanced runs the split hit and miss shadow kernels,
	// allowing transparency and participating media.
	ShadowAdvanced
)

// VariantInfo describes how one technique variant launches.
type VariantInfo struct {
	// Width and Height override the film size when non-zero; prepass
	// variants may render at reduced or fixed resolution.
	Width  int
	Height int

	// SPIOverride replaces the global samples per iteration when
	// non-zero.
	SPIOverride int

	// LockFramebuffer keeps the sample count untouched; used by bake
	// and guiding prepass variants that write helper AOVs.
	LockFramebuffer bool

	ShadowMode ShadowHandlingMode

	// AOVs the variant writes beyond the primary color.
	AOVs []string

	// PayloadSize hints the per-ray payload float count.
	PayloadSize int

	// EmitterPayloadInit is script text initializing the payload in
	// the ray emitter.
	EmitterPayloadInit string
}

// GetWidth returns the launch width for a film width.
func (v *VariantInfo) GetWidth(filmWidth int) int {
	if v.Width > 0 {
		return v.Width
	}
	return filmWidth
}

// GetHeight returns the launch height for a film height.
func (v *VariantInfo) GetHeight(filmHeight int) int {
	if v.Height > 0 {
		return v.Height
	}
	return filmHeight
}

// GetSPI returns the samples per iteration for this variant.
func (v *VariantInfo) GetSPI(globalSPI int) int {
	if v.SPIOverride > 0 {
		return v.SPIOverride
	}
	return globalSPI
}

// TechniqueVariant bundles the script sources of one variant before
// compilation. HitShaders are indexed by material id.
type TechniqueVariant struct {
	RayGeneration      string
	Miss               string
	HitShaders         []string
	AdvancedShadowHit  string // empty when unused
	AdvancedShadowMiss string
	Callbacks          []string // empty entries are unused slots
	Info               VariantInfo
}

// VariantSelector picks the active variant indices for an iteration.
// A nil selector runs every variant.
type VariantSelector func(iteration int) []int

// TechniqueInfo is everything the orchestrator needs to drive a
// technique: its variants and the optional per-iteration selection.
type TechniqueInfo struct {
	Variants    []TechniqueVariant
	Selector    VariantSelector
	EnabledAOVs []string
}

// Ray is one traced ray for the trace entry point.
type Ray struct {
	Origin    lin.V3
	Direction lin.V3
	Range     lin.V2 // tmin, tmax
}

// SetupSettings configure render device creation.
type SetupSettings struct {
	Target        Target
	AcquireStats  bool
	DebugTrace    bool
	IsInteractive bool
}

// SceneSettings hand the loaded scene to the device.
type SceneSettings struct {
	Database          *scenedb.Database
	AOVs              []string // deduplicated AOV names over all variants
	ResourceMap       []string // path per resource id, for bake shaders
	EntityPerMaterial []int    // entity count per unique material
}

// RenderSettings parameterize one (iteration, variant) launch.
type RenderSettings struct {
	Rays      []Ray // non-nil: trace mode, Width is the ray count
	SPI       int
	Width     int
	Height    int
	Iteration int
	Frame     int
	UserSeed  uint64
	Info      VariantInfo
	Denoise   bool
}

// AOVAccessor exposes one framebuffer plane.
type AOVAccessor struct {
	Data           []float32 // 3 floats per pixel
	IterationCount int
}

// TonemapMethod selects the tonemapping operator.
type TonemapMethod int

const (
	TonemapNone TonemapMethod = iota
	TonemapReinhard
	TonemapModifiedReinhard
	TonemapACES
)

// TonemapSettings parameterize the LDR conversion post pass.
type TonemapSettings struct {
	AOV            string
	Method         TonemapMethod
	UseGamma       bool
	Scale          float32
	ExposureFactor float32
	ExposureOffset float32
}

// GlareSettings parameterize the glare estimation post pass.
type GlareSettings struct {
	AOV             string
	Scale           float32
	LuminanceMax    float32
	LuminanceAvg    float32
	VerticalIllum   float32
	Multiplier      float32
}

// GlareOutput is the glare pass result.
type GlareOutput struct {
	DGPValue        float32
	VerticalIllum   float32
	AvgLum          float32
	AvgOmega        float32
	NumPixels       int
}

// ImageInfoSettings parameterize the statistics post pass.
type ImageInfoSettings struct {
	AOV             string
	Scale           float32
	Bins            int
	AcquireHistogram bool
}

// ImageInfoOutput is the statistics pass result.
type ImageInfoOutput struct {
	Min     float32
	Max     float32
	Average float32
	SoftMin float32
	SoftMax float32
	Median  float32
	InfCount int
	NaNCount int
	Histogram []int
}

// Reserved AOV names. The empty name is the primary color.
const (
	AOVColor    = ""
	AOVNormals  = "Normals"
	AOVAlbedo   = "Albedo"
	AOVDenoised = "Denoised"
	AOVDepth    = "Depth"
)

// RenderDevice executes compiled kernels against an uploaded scene. All
// methods are orchestrator thread only except the framebuffer getters,
// which may be called from other threads while no render is in flight.
type RenderDevice interface {
	AssignScene(settings SceneSettings) error
	Render(shaders ShaderSet, settings RenderSettings, params *ParameterSet) error
	Resize(width, height int)
	ReleaseAll()

	Target() Target
	FramebufferWidth() int
	FramebufferHeight() int
	IsInteractive() bool

	GetFramebufferForHost(name string) (AOVAccessor, error)
	GetFramebufferForDevice(name string) (AOVAccessor, error)
	ClearFramebuffer(name string) error
	ClearAllFramebuffer()

	Statistics() *Statistics

	Tonemap(out []uint32, settings TonemapSettings) error
	EvaluateGlare(out []uint32, settings GlareSettings) (GlareOutput, error)
	ImageInfo(settings ImageInfoSettings) (ImageInfoOutput, error)
	Bake(shader Handle, resourceMap []string, out []float32) error
}
