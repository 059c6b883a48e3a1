// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// technique.go asks the selected technique for its variants and emits
// the script sources: a device preamble, scene invariants, the camera
// and light setup, per material hit shaders and the renderer
// construction, closed by a uniform trailer that runs the renderer.

import (
	"fmt"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/shader"
)

// devicePreamble emits the device selection line for the target.
func devicePreamble(t device.Target) string {
	switch t.Architecture {
	case device.NVVM:
		return fmt.Sprintf("let device = make_nvvm_device(%d, true);", t.Device)
	case device.AMDHSA:
		return fmt.Sprintf("let device = make_amdgpu_device(%d);", t.Device)
	case device.AVX512:
		return "let device = make_avx512_device();"
	case device.AVX2:
		return "let device = make_avx2_device();"
	case device.AVX:
		return "let device = make_avx_device();"
	case device.SSE42:
		return "let device = make_sse42_device();"
	case device.ASIMD:
		return "let device = make_asimd_device();"
	case device.Single:
		return "let device = make_cpu_default_device(1);"
	default:
		return "let device = make_cpu_default_device(0);"
	}
}

// sceneSetup emits the invariants every shader shares: scene bounds,
// light count and the light selector.
func sceneSetup(ctx *Context, b *shader.Builder) {
	db := ctx.Database
	b.AddInclude("core")
	b.AddInclude("scene")
	b.AddStatement(devicePreamble(ctx.Options.Target))
	b.AddStatement(fmt.Sprintf("let scene_bbox = %s;", shader.BBox(db.SceneBBox)))
	b.AddStatement(fmt.Sprintf("let scene_diameter = %s;", shader.Float(db.SceneRadius*2)))
	b.AddStatement(fmt.Sprintf("let num_lights = %d;", lightCount(ctx)))
	b.AddStatement("let lights = load_lights(device, scene);")
	b.AddStatement("let light_selector = make_uniform_light_selector(lights, num_lights);")
}

// cameraSetup emits the camera construction. Position and orientation
// go through the registry so camera motion reuses the compiled kernel.
func cameraSetup(ctx *Context, b *shader.Builder) {
	cam := ctx.Scene.Camera
	camType := ctx.Options.CameraType
	b.AddInclude("camera")
	eye := shader.RegistryVec3("__camera_eye", lin.V3{})
	dir := shader.RegistryVec3("__camera_dir", lin.UnitZ())
	up := shader.RegistryVec3("__camera_up", lin.UnitY())
	switch camType {
	case "orthogonal":
		scale := cam.Property("scale").GetNumber(1)
		b.AddStatement(fmt.Sprintf(
			"let camera = make_orthogonal_camera(%s, %s, %s, %s, settings.width, settings.height);",
			eye, dir, up, shader.Float(scale)))
	case "fishlens", "fisheye":
		b.AddStatement(fmt.Sprintf(
			"let camera = make_fishlens_camera(%s, %s, %s, settings.width, settings.height);",
			eye, dir, up))
	default: // perspective
		fov := shader.RegistryF32("__camera_fov", 60)
		b.AddStatement(fmt.Sprintf(
			"let camera = make_perspective_camera(%s, %s, %s, rad(%s), settings.width, settings.height);",
			eye, dir, up, fov))
	}
}

// rayGenerationSource emits the full ray generation shader for one
// renderer construction statement.
func rayGenerationSource(ctx *Context, renderer string) string {
	b := shader.NewBuilder()
	sceneSetup(ctx, b)
	cameraSetup(ctx, b)
	b.AddStatement(renderer)
	b.AddStatement("let emitter = make_camera_emitter(camera, settings.iter, settings.spi, make_uniform_pixel_sampler());")
	b.AddStatement("device.generate_rays(emitter, renderer, settings)")
	return b.Build()
}

// missSource emits the miss shader evaluating the environment lights.
func missSource(ctx *Context) string {
	b := shader.NewBuilder()
	sceneSetup(ctx, b)
	b.AddInclude("light")
	b.AddStatement("let shader = make_miss_shader(lights, num_lights);")
	b.AddStatement("device.handle_miss_shader(shader, settings)")
	return b.Build()
}

// hitSource emits the hit shader for one material id.
func hitSource(ctx *Context, materialID int) string {
	b := shader.NewBuilder()
	sceneSetup(ctx, b)
	hitShaderBody(ctx, b, materialID)
	b.AddStatement(fmt.Sprintf("device.handle_hit_shader(%d, shader, settings)", materialID))
	return b.Build()
}

// advancedShadowSource emits the split shadow kernels.
func advancedShadowSource(ctx *Context, isHit bool) string {
	b := shader.NewBuilder()
	sceneSetup(ctx, b)
	which := "make_advanced_shadow_miss_shader()"
	if isHit {
		which = "make_advanced_shadow_hit_shader()"
	}
	b.AddStatement(fmt.Sprintf("let shader = %s;", which))
	b.AddStatement("device.handle_advanced_shadow_shader(shader, settings)")
	return b.Build()
}

// hasTransparentMaterials reports whether any material needs the split
// shadow path.
func hasTransparentMaterials(ctx *Context) bool {
	for _, name := range ctx.materials {
		obj := ctx.Scene.BSDFs[name]
		if obj != nil && (obj.PluginType == "dielectric" || obj.PluginType == "glass" ||
			obj.PluginType == "none" || obj.PluginType == "null") {
			return true
		}
	}
	return false
}

// buildTechnique assembles the TechniqueInfo for the selected technique
// and presets the technique's launch parameters.
func buildTechnique(ctx *Context, params *device.ParameterSet) (device.TechniqueInfo, error) {
	tech := ctx.Scene.Technique
	ttype := ctx.Options.TechniqueType

	shadowMode := device.ShadowSimple
	var shadowHit, shadowMiss string
	if hasTransparentMaterials(ctx) {
		shadowMode = device.ShadowAdvanced
		shadowHit = advancedShadowSource(ctx, true)
		shadowMiss = advancedShadowSource(ctx, false)
	}

	hitShaders := make([]string, ctx.Database.MaterialCount)
	for i := range hitShaders {
		hitShaders[i] = hitSource(ctx, i)
	}

	var aovs []string
	if ctx.Options.Denoise {
		aovs = append(aovs, device.AOVNormals, device.AOVAlbedo, device.AOVDenoised)
	}

	mkVariant := func(renderer string, info device.VariantInfo) device.TechniqueVariant {
		info.ShadowMode = shadowMode
		info.AOVs = append(info.AOVs, aovs...)
		return device.TechniqueVariant{
			RayGeneration:      rayGenerationSource(ctx, renderer),
			Miss:               missSource(ctx),
			HitShaders:         hitShaders,
			AdvancedShadowHit:  shadowHit,
			AdvancedShadowMiss: shadowMiss,
			Info:               info,
		}
	}

	switch ttype {
	case "path", "":
		maxDepth := tech.Property("max_depth").GetInteger(64)
		clamp := tech.Property("clamp").GetNumber(0)
		params.SetInt("max_depth", maxDepth)
		params.SetFloat("clamp", clamp)
		renderer := fmt.Sprintf(
			"let renderer = make_path_tracing_renderer(%s, 1, %s, light_selector);",
			shader.RegistryI32("max_depth", maxDepth), shader.RegistryF32("clamp", clamp))
		return device.TechniqueInfo{
			Variants:    []device.TechniqueVariant{mkVariant(renderer, device.VariantInfo{PayloadSize: 8})},
			EnabledAOVs: aovs,
		}, nil

	case "direct":
		lightSamples := tech.Property("light_samples").GetInteger(1)
		params.SetInt("light_samples", lightSamples)
		renderer := fmt.Sprintf(
			"let renderer = make_direct_renderer(%s, light_selector);",
			shader.RegistryI32("light_samples", lightSamples))
		return device.TechniqueInfo{
			Variants:    []device.TechniqueVariant{mkVariant(renderer, device.VariantInfo{PayloadSize: 4})},
			EnabledAOVs: aovs,
		}, nil

	case "ao", "ambient-occlusion", "ambientocclusion":
		radius := tech.Property("radius").GetNumber(0)
		params.SetFloat("ao_radius", radius)
		renderer := fmt.Sprintf(
			"let renderer = make_ao_renderer(%s);", shader.RegistryF32("ao_radius", radius))
		return device.TechniqueInfo{
			Variants:    []device.TechniqueVariant{mkVariant(renderer, device.VariantInfo{PayloadSize: 2})},
			EnabledAOVs: aovs,
		}, nil

	case "debug":
		renderer := "let renderer = make_debug_renderer(settings.debug_mode);"
		return device.TechniqueInfo{
			Variants:    []device.TechniqueVariant{mkVariant(renderer, device.VariantInfo{PayloadSize: 2})},
			EnabledAOVs: aovs,
		}, nil

	case "sgpt", "sun-guided-path":
		// A guiding prepass runs every eighth iteration at reduced
		// resolution with the framebuffer locked, then the main path
		// variant consumes the guiding table.
		maxDepth := tech.Property("max_depth").GetInteger(64)
		params.SetInt("max_depth", maxDepth)
		prepass := mkVariant(
			"let renderer = make_light_sgpt_prepass_renderer(light_selector);",
			device.VariantInfo{
				Width: 128, Height: 128, SPIOverride: 1,
				LockFramebuffer: true, PayloadSize: 4,
			})
		main := mkVariant(fmt.Sprintf(
			"let renderer = make_light_sgpt_renderer(%s, light_selector);",
			shader.RegistryI32("max_depth", maxDepth)),
			device.VariantInfo{PayloadSize: 10})
		return device.TechniqueInfo{
			Variants: []device.TechniqueVariant{prepass, main},
			Selector: func(iteration int) []int {
				if iteration%8 == 0 {
					return []int{0, 1}
				}
				return []int{1}
			},
			EnabledAOVs: aovs,
		}, nil

	default:
		return device.TechniqueInfo{}, fmt.Errorf("unknown technique type %q", ttype)
	}
}
