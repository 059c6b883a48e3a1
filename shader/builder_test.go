// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package shader

import (
	"strings"
	"testing"

	"github.com/ignis-render/ignis/math/lin"
)

func TestBuilderIncludesDeduplicate(t *testing.T) {
	b := NewBuilder()
	b.AddInclude("core").AddInclude("math").AddInclude("core")
	b.AddStatement("let x = 1;")
	out := b.Build()
	if strings.Count(out, "include=\"core\"") != 1 {
		t.Errorf("core include duplicated:\n%s", out)
	}
	if !strings.Contains(out, "let x = 1;") {
		t.Errorf("statement missing:\n%s", out)
	}
}

func TestBuilderFunctionOrderAndFormat(t *testing.T) {
	body := NewBuilder()
	body.AddInclude("texture")
	body.AddStatement("make_constant_texture(color_builtins::white)")

	b := NewBuilder()
	b.AddFunction("tex_0(ctx: ShadingContext) -> Color", body)
	b.AddStatement("let c = @tex_0(ctx);")
	out := b.Build()

	if !strings.Contains(out, "fn @tex_0(ctx: ShadingContext) -> Color{") {
		t.Errorf("function header missing:\n%s", out)
	}
	// Function body includes must hoist to the top of the script.
	if strings.Index(out, "include=\"texture\"") > strings.Index(out, "fn @tex_0") {
		t.Errorf("body include not hoisted:\n%s", out)
	}
}

func TestBuilderDuplicateFunctionIgnored(t *testing.T) {
	b := NewBuilder()
	b.AddFunction("f()", NewBuilder().AddStatement("1"))
	b.AddFunction("f()", NewBuilder().AddStatement("2"))
	out := b.Build()
	if strings.Count(out, "fn @f()") != 1 {
		t.Errorf("duplicate function emitted:\n%s", out)
	}
	if !strings.Contains(out, "1") || strings.Contains(out, "2\n}") {
		t.Errorf("first registration should win:\n%s", out)
	}
}

func TestBuilderMerge(t *testing.T) {
	a := NewBuilder().AddInclude("core").AddStatement("a();")
	c := NewBuilder().AddInclude("core").AddInclude("extra").AddStatement("c();")
	a.Merge(c)
	out := a.Build()
	if strings.Count(out, "include=\"core\"") != 1 {
		t.Errorf("merge duplicated include:\n%s", out)
	}
	if strings.Index(out, "a();") > strings.Index(out, "c();") {
		t.Errorf("merge reordered statements:\n%s", out)
	}
}

func TestBuilderGrowthIsLinear(t *testing.T) {
	// Many materials referencing the same includes must not blow up
	// the output: includes stay deduplicated, one function each.
	b := NewBuilder()
	for i := 0; i < 200; i++ {
		body := NewBuilder().AddInclude("bsdf").AddStatement("make_diffuse_bsdf(surf, albedo)")
		b.AddFunction("mat_"+string(rune('a'+i%26))+Float(float32(i)), body)
	}
	out := b.Build()
	if strings.Count(out, "include=\"bsdf\"") != 1 {
		t.Error("shared include duplicated across materials")
	}
	if strings.Count(out, "fn @") != 200 {
		t.Errorf("function count = %d", strings.Count(out, "fn @"))
	}
}

func TestLiteralFormatting(t *testing.T) {
	if got := Float(1); got != "1.0" {
		t.Errorf("Float(1) = %q", got)
	}
	if got := Float(0.25); got != "0.25" {
		t.Errorf("Float(0.25) = %q", got)
	}
	if got := Vec3(lin.NewV3(1, 2, 3)); got != "make_vec3(1.0, 2.0, 3.0)" {
		t.Errorf("Vec3 = %q", got)
	}
	if got := RegistryI32("max_depth", 8); got != `registry::get_global_parameter_i32("max_depth", 8)` {
		t.Errorf("RegistryI32 = %q", got)
	}
}
