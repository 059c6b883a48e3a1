// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// loader.go drives one load: shapes in parallel on a worker pool, then
// entities, lights and materials serially, then the technique variants.

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scene"
)

// providers maps shape plugin types to their provider. All triangle
// mesh types share one provider; the registry stays open for external
// shape kinds.
var providers = map[string]ShapeProvider{}

// RegisterProvider installs a provider for a plugin type.
func RegisterProvider(pluginType string, p ShapeProvider) {
	providers[pluginType] = p
}

func init() {
	tri := &TriMeshProvider{}
	for _, t := range []string{
		"triangle", "rectangle", "cube", "box", "sphere", "icosphere",
		"uvsphere", "cylinder", "cone", "disk", "obj", "ply", "mitsuba", "external",
	} {
		RegisterProvider(t, tri)
	}
}

// Load lowers the parsed scene into a database and technique bundle.
func Load(opts Options, s *scene.Scene) (*Result, error) {
	start := time.Now()
	ctx := newContext(opts, s)
	acc := &Accessor{ctx: ctx}

	// Shapes are independent; build them on the worker pool. Appends
	// to the database serialize through the accessor, so the shape
	// table order follows completion order and ids are assigned under
	// the lock.
	g := &errgroup.Group{}
	g.SetLimit(runtime.NumCPU())
	names := make([]string, len(s.ShapeOrder))
	copy(names, s.ShapeOrder)
	for _, name := range names {
		name := name
		obj := s.Shapes[name]
		provider, ok := providers[obj.PluginType]
		if !ok {
			return nil, fmt.Errorf("loader: shape %q: unknown plugin type %q", name, obj.PluginType)
		}
		g.Go(func() error {
			return provider.Handle(ctx, acc, name, obj)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	slog.Debug("shapes loaded", "count", len(names), "elapsed", time.Since(start))

	if err := loadEntities(ctx); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if err := loadLights(ctx); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	if err := loadBSDFs(ctx); err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	params := device.NewParameterSet()
	loadCamera(ctx, params)

	tech, err := buildTechnique(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}

	// Area light emission reaches the kernels as per-entity colors.
	for entID, radiance := range ctx.emissiveEnts {
		params.SetVector(fmt.Sprintf("__entity_emission_%d", entID), radiance)
	}

	slog.Debug("scene lowered",
		"shapes", len(ctx.shapeIDs),
		"entities", len(ctx.Database.EntityToMaterial),
		"materials", ctx.Database.MaterialCount,
		"lights", lightCount(ctx),
		"elapsed", time.Since(start))

	aovs := dedupeAOVs(tech)
	return &Result{
		Database:   ctx.Database,
		Technique:  tech,
		Parameters: params,
		AOVs:       aovs,
	}, nil
}

// loadCamera presets the camera launch parameters. The camera object
// may give an explicit eye/lookat/up triple or a transform applied to
// the canonical frame.
func loadCamera(ctx *Context, params *device.ParameterSet) {
	cam := ctx.Scene.Camera

	eye := lin.V3{}
	dir := lin.UnitZ()
	up := lin.UnitY()

	if cam.HasProperty("eye") || cam.HasProperty("lookat") {
		eye = cam.Property("eye").GetVec3(eye)
		lookat := cam.Property("lookat").GetVec3(eye.Add(dir))
		up = cam.Property("up").GetVec3(up)
		d := lookat.Sub(eye)
		if !d.AeqZ() {
			dir = d.Unit()
		}
	} else if cam.HasProperty("transform") {
		t := cam.Property("transform").GetTransform(lin.M4I())
		eye = t.MultPoint(lin.V3{})
		dir = t.MultDir(lin.UnitZ()).Unit()
		up = t.MultDir(lin.UnitY()).Unit()
	}

	params.SetVector("__camera_eye", eye)
	params.SetVector("__camera_dir", dir)
	params.SetVector("__camera_up", up)
	params.SetFloat("__camera_fov", cam.Property("fov").GetNumber(60))
}

// dedupeAOVs collects the AOV names over every variant, order kept.
func dedupeAOVs(tech device.TechniqueInfo) []string {
	seen := map[string]bool{}
	var out []string
	for _, v := range tech.Variants {
		for _, name := range v.Info.AOVs {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
