// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// shape.go lowers shape objects into TriMesh geometry, builds the per
// shape triangle BVH and serializes both into the database. One
// provider call handles one shape; calls run on the worker pool.

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ignis-render/ignis/bvh"
	"github.com/ignis-render/ignis/load"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
	"github.com/ignis-render/ignis/scene"
	"github.com/ignis-render/ignis/scenedb"
)

// ShapeProvider lowers one parsed shape object into the database.
// Implementations must be safe for concurrent calls on distinct shapes.
type ShapeProvider interface {
	Handle(ctx *Context, acc *Accessor, name string, obj *scene.Object) error
}

// TriMeshProvider is the provider for every triangle mesh plugin type.
type TriMeshProvider struct{}

// Handle builds the mesh for obj, post-processes it, writes the shapes
// table entry plus the BVH pool blob and registers the shape.
func (p *TriMeshProvider) Handle(ctx *Context, acc *Accessor, name string, obj *scene.Object) error {
	m, err := setupMesh(ctx, name, obj)
	if err != nil {
		return err
	}
	if m == nil || m.IsEmpty() {
		return fmt.Errorf("shape %q: %w", name, mesh.ErrEmptyMesh)
	}

	// Post process in the documented order: flip, face normals,
	// transform, bounds, detection.
	if obj.Property("flip_normals").GetBool(false) {
		m.FlipNormals()
	}
	if obj.Property("face_normals").GetBool(false) {
		m.SetFaceNormals()
	}
	transform := obj.Property("transform").GetTransform(lin.M4I())
	m.Transform(transform)

	if m.IsEmpty() {
		return fmt.Errorf("shape %q: %w", name, mesh.ErrEmptyMesh)
	}
	m.Validate()
	if len(m.Normals) == 0 {
		m.ComputeVertexNormals()
	}
	if m.FixNormals() {
		slog.Warn("shape had invalid normals, replaced with defaults", "shape", name)
	}
	if len(m.Texcoords) == 0 {
		m.MakeTexCoordsZero()
	}

	bbox := m.ComputeBBox()
	info := &ShapeInfo{
		Name:      name,
		BBox:      bbox,
		Area:      m.SurfaceArea(),
		FaceCount: m.FaceCount(),
	}
	if plane, ok := m.AsPlane(); ok {
		info.Plane = plane
	} else if sphere, ok := m.AsSphere(); ok {
		info.Sphere = sphere
	}

	arity, packetSize := ctx.Options.Target.BvhShape()
	built := bvh.BuildTriMesh(m, arity, packetSize)

	// Serialization is the only shared mutation; the build above runs
	// lock free.
	acc.Lock()
	defer acc.Unlock()

	db := acc.Database()
	pool, offset := db.FixTable(scenedb.FixTableTriMeshBVH).AddEntry(scenedb.DefaultAlignment)
	built.Serialize(scenedb.NewSerializer(pool))
	info.BvhOffset = offset

	writeShapeEntry(db, m, bbox)
	lo, hi := scenedb.SplitU64(offset)
	mapping := db.Table(scenedb.TableShapeMappings).AddLookup(0, 0, 4)
	ms := scenedb.NewSerializer(mapping)
	ms.WriteU32(lo)
	ms.WriteU32(hi)

	ctx.registerShape(info)
	db.SceneBBox = db.SceneBBox.ExtendBox(bbox)
	return nil
}

// writeShapeEntry appends the shape record: header, vertices padded to
// 16 bytes, normals padded to 16 bytes, indices, texcoords.
func writeShapeEntry(db *scenedb.Database, m *mesh.TriMesh, bbox lin.Box) {
	blob := db.Table(scenedb.TableShapes).AddLookup(0, 0, scenedb.DefaultAlignment)
	s := scenedb.NewSerializer(blob)
	s.WriteU32(uint32(m.FaceCount()))
	s.WriteU32(uint32(len(m.Vertices)))
	s.WriteU32(uint32(len(m.Normals)))
	s.WriteU32(uint32(len(m.Texcoords)))
	s.WriteV3Pad(bbox.Min)
	s.WriteV3Pad(bbox.Max)
	for _, v := range m.Vertices {
		s.WriteV3Pad(v)
	}
	for _, n := range m.Normals {
		s.WriteV3Pad(n)
	}
	for _, idx := range m.Indices {
		s.WriteU32(idx)
	}
	for _, uv := range m.Texcoords {
		s.WriteV2(uv)
	}
}

// setupMesh dispatches on the shape plugin type.
func setupMesh(ctx *Context, name string, obj *scene.Object) (*mesh.TriMesh, error) {
	switch obj.PluginType {
	case "triangle":
		p0 := obj.Property("p0").GetVec3(lin.NewV3(0, 0, 0))
		p1 := obj.Property("p1").GetVec3(lin.NewV3(1, 0, 0))
		p2 := obj.Property("p2").GetVec3(lin.NewV3(0, 1, 0))
		return mesh.MakeTriangle(p0, p1, p2), nil
	case "rectangle":
		if !obj.HasProperty("p0") {
			width := obj.Property("width").GetNumber(2)
			height := obj.Property("height").GetNumber(2)
			origin := obj.Property("origin").GetVec3(lin.NewV3(-width/2, -height/2, 0))
			return mesh.MakePlane(origin, lin.UnitX().Scale(width), lin.UnitY().Scale(height)), nil
		}
		p0 := obj.Property("p0").GetVec3(lin.NewV3(-1, -1, 0))
		p1 := obj.Property("p1").GetVec3(lin.NewV3(1, -1, 0))
		p2 := obj.Property("p2").GetVec3(lin.NewV3(1, 1, 0))
		p3 := obj.Property("p3").GetVec3(lin.NewV3(-1, 1, 0))
		return mesh.MakeRectangle(p0, p1, p2, p3), nil
	case "cube", "box":
		width := obj.Property("width").GetNumber(2)
		height := obj.Property("height").GetNumber(2)
		depth := obj.Property("depth").GetNumber(2)
		origin := obj.Property("origin").GetVec3(lin.NewV3(-width/2, -height/2, -depth/2))
		return mesh.MakeBox(origin,
			lin.UnitX().Scale(width), lin.UnitY().Scale(height), lin.UnitZ().Scale(depth)), nil
	case "sphere", "icosphere":
		center := obj.Property("center").GetVec3(lin.V3{})
		radius := obj.Property("radius").GetNumber(1)
		subdivisions := obj.Property("subdivisions").GetInteger(4)
		return mesh.MakeIcoSphere(center, radius, uint32(subdivisions)), nil
	case "uvsphere":
		center := obj.Property("center").GetVec3(lin.V3{})
		radius := obj.Property("radius").GetNumber(1)
		stacks := obj.Property("stacks").GetInteger(32)
		slices := obj.Property("slices").GetInteger(16)
		return mesh.MakeUVSphere(center, radius, uint32(stacks), uint32(slices)), nil
	case "cylinder":
		base := obj.Property("p0").GetVec3(lin.V3{})
		tip := obj.Property("p1").GetVec3(lin.NewV3(0, 0, 1))
		sections := obj.Property("sections").GetInteger(32)
		filled := obj.Property("filled").GetBool(true)
		var baseRadius, tipRadius float32
		if obj.HasProperty("radius") {
			baseRadius = obj.Property("radius").GetNumber(1)
			tipRadius = baseRadius
		} else {
			baseRadius = obj.Property("bottom_radius").GetNumber(1)
			tipRadius = obj.Property("top_radius").GetNumber(baseRadius)
		}
		return mesh.MakeCylinder(base, baseRadius, tip, tipRadius, uint32(sections), filled), nil
	case "cone":
		base := obj.Property("p0").GetVec3(lin.V3{})
		tip := obj.Property("p1").GetVec3(lin.NewV3(0, 0, 1))
		radius := obj.Property("radius").GetNumber(1)
		sections := obj.Property("sections").GetInteger(32)
		filled := obj.Property("filled").GetBool(true)
		return mesh.MakeCone(base, radius, tip, uint32(sections), filled), nil
	case "disk":
		origin := obj.Property("origin").GetVec3(lin.V3{})
		normal := obj.Property("normal").GetVec3(lin.NewV3(0, 0, 1))
		radius := obj.Property("radius").GetNumber(1)
		sections := obj.Property("sections").GetInteger(32)
		return mesh.MakeDisk(origin, normal, radius, uint32(sections)), nil
	case "obj":
		return meshFromFile(ctx, name, obj, "obj")
	case "ply":
		return meshFromFile(ctx, name, obj, "ply")
	case "mitsuba":
		return meshFromFile(ctx, name, obj, "serialized")
	case "external":
		filename := obj.Property("filename").GetString("")
		if filename == "" {
			return nil, fmt.Errorf("shape %q: no filename given", name)
		}
		return meshFromFile(ctx, name, obj, load.Ext(filename))
	default:
		return nil, fmt.Errorf("shape %q: unknown plugin type %q", name, obj.PluginType)
	}
}

// meshFromFile loads external geometry through the locator.
func meshFromFile(ctx *Context, name string, obj *scene.Object, kind string) (*mesh.TriMesh, error) {
	filename := obj.Property("filename").GetString("")
	shapeIndex := obj.Property("shape_index").GetInteger(-1)

	switch kind {
	case "obj":
		r, err := ctx.Locator.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		defer r.Close()
		m, err := load.Obj(r, shapeIndex)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		return m, nil
	case "ply":
		r, err := ctx.Locator.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		defer r.Close()
		m, err := load.Ply(r)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		return m, nil
	case "mts", "serialized":
		path, err := ctx.Locator.Resolve(filename)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		if shapeIndex < 0 {
			shapeIndex = 0
		}
		m, err := load.Mts(data, shapeIndex)
		if err != nil {
			return nil, fmt.Errorf("shape %q: %w", name, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("shape %q: cannot determine mesh type of %q", name, filename)
	}
}
