// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// bsdf.go lowers materials into the bsdfs table, one record per unique
// material id, and generates the per material hit shader bodies through
// the shading tree builder.

import (
	"fmt"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
	"github.com/ignis-render/ignis/shader"
)

// loadBSDFs writes one bsdf record per material id. Material ids were
// interned while lowering entities, so the table aligns with hit shader
// dispatch. Unnamed materials fall back to a neutral diffuse.
func loadBSDFs(ctx *Context) error {
	db := ctx.Database
	table := db.Table(scenedb.TableBSDFs)

	for _, bsdfName := range ctx.materials {
		obj := ctx.Scene.BSDFs[bsdfName]
		if bsdfName == "" || obj == nil {
			s := scenedb.NewSerializer(table.AddLookup(scenedb.BsdfDiffuse, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(lin.NewV3(0.8, 0.8, 0.8))
			continue
		}
		switch obj.PluginType {
		case "diffuse", "roughdiffuse":
			albedo := obj.Property("reflectance").GetVec3(lin.NewV3(0.8, 0.8, 0.8))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.BsdfDiffuse, 0, scenedb.DefaultAlignment))
			s.WriteV3(albedo)
			s.WriteF32(obj.Property("alpha").GetNumber(0))
		case "mirror", "conductor", "perfect_mirror":
			spec := obj.Property("specular_reflectance").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.BsdfMirror, 0, scenedb.DefaultAlignment))
			s.WriteV3(spec)
			s.WriteF32(0)
		case "dielectric", "glass":
			spec := obj.Property("specular_transmittance").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.BsdfDielectric, 0, scenedb.DefaultAlignment))
			s.WriteV3(spec)
			s.WriteF32(obj.Property("int_ior").GetNumber(1.55))
		case "none", "null":
			s := scenedb.NewSerializer(table.AddLookup(scenedb.BsdfNone, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(lin.V3{})
		default:
			return fmt.Errorf("bsdf %q: unknown plugin type %q", bsdfName, obj.PluginType)
		}
	}
	return nil
}

// hitShaderBody emits the script body of one material's hit shader. The
// shading tree memoizes texture closures on the builder so repeated
// references compile once.
func hitShaderBody(ctx *Context, b *shader.Builder, materialID int) {
	bsdfName := ctx.materials[materialID]
	obj := ctx.Scene.BSDFs[bsdfName]

	closure := fmt.Sprintf("mat_%d(surf: SurfaceElement) -> Bsdf", materialID)
	if !b.HasFunction(closure) {
		body := shader.NewBuilder()
		body.AddInclude("bsdf")
		switch {
		case obj == nil:
			body.AddStatement("make_diffuse_bsdf(surf, " + shader.Vec3(lin.NewV3(0.8, 0.8, 0.8)) + ")")
		case obj.PluginType == "mirror" || obj.PluginType == "conductor" || obj.PluginType == "perfect_mirror":
			spec := obj.Property("specular_reflectance").GetVec3(lin.NewV3(1, 1, 1))
			body.AddStatement("make_mirror_bsdf(surf, " + shader.Vec3(spec) + ")")
		case obj.PluginType == "dielectric" || obj.PluginType == "glass":
			ior := obj.Property("int_ior").GetNumber(1.55)
			body.AddStatement("make_dielectric_bsdf(surf, 1.0, " + shader.Float(ior) + ")")
		case obj.PluginType == "none" || obj.PluginType == "null":
			body.AddStatement("make_black_bsdf(surf)")
		default:
			albedo := obj.Property("reflectance").GetVec3(lin.NewV3(0.8, 0.8, 0.8))
			body.AddStatement("make_diffuse_bsdf(surf, " + shader.Vec3(albedo) + ")")
		}
		b.AddFunction(closure, body)
	}

	b.AddStatement(fmt.Sprintf("let shader : Shader = @|_ray, _hit, surf| @mat_%d(surf);", materialID))
}
