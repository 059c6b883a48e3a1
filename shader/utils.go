// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package shader

// utils.go holds the small text helpers shared by the source
// generators: literal formatting and the registry accessors that let one compiled kernel serve many launches.

import (
	"fmt"
	"strings"

	"github.com/ignis-render/ignis/math/lin"
)

// Float formats a float literal the script language accepts.
func Float(v float32) string {
	s := fmt.Sprintf("%g", v)
	if !strings.ContainsAny(s, ".einf") {
		s += ".0"
	}
	return s
}

// Vec3 formats a vector constructor.
func Vec3(v lin.V3) string {
	return fmt.Sprintf("make_vec3(%s, %s, %s)", Float(v.X), Float(v.Y), Float(v.Z))
}

// Vec4 formats a four element vector constructor.
func Vec4(v lin.V4) string {
	return fmt.Sprintf("make_vec4(%s, %s, %s, %s)", Float(v.X), Float(v.Y), Float(v.Z), Float(v.W))
}

// BBox formats a bounding box constructor.
func BBox(b lin.Box) string {
	return fmt.Sprintf("make_bbox(%s, %s)", Vec3(b.Min), Vec3(b.Max))
}

// Escape quotes a string literal.
func Escape(s string) string {
	r := strings.NewReplacer("\\", "\\\\", "\"", "\\\"", "\n", "\\n")
	return "\"" + r.Replace(s) + "\""
}

// RegistryF32 reads a launch time float parameter inside a kernel.
func RegistryF32(name string, def float32) string {
	return fmt.Sprintf("registry::get_global_parameter_f32(%s, %s)", Escape(name), Float(def))
}

// RegistryI32 reads a launch time int parameter inside a kernel.
func RegistryI32(name string, def int) string {
	return fmt.Sprintf("registry::get_global_parameter_i32(%s, %d)", Escape(name), def)
}

// RegistryVec3 reads a launch time vector parameter inside a kernel.
func RegistryVec3(name string, def lin.V3) string {
	return fmt.Sprintf("registry::get_global_parameter_vec3(%s, %s)", Escape(name), Vec3(def))
}

// RegistryColor reads a launch time color parameter inside a kernel.
func RegistryColor(name string, def lin.V4) string {
	return fmt.Sprintf("registry::get_global_parameter_color(%s, %s)", Escape(name), Vec4(def))
}
