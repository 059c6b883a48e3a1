// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package loader lowers a parsed scene into the binary scene database
// and the technique variant sources. Shapes are lowered in parallel by
// providers; entities, lights and materials follow; the result bundles
// the database, the technique info and the launch time parameters.
package loader

import (
	"path/filepath"
	"sync"

	"github.com/ignis-render/ignis/device"
	"github.com/ignis-render/ignis/load"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/mesh"
	"github.com/ignis-render/ignis/scene"
	"github.com/ignis-render/ignis/scenedb"
)

// Options parameterize one load.
type Options struct {
	FilePath            string // scene file location, roots relative mesh paths
	Target              device.Target
	TechniqueType       string
	CameraType          string
	FilmWidth           int
	FilmHeight          int
	SamplesPerIteration int
	IsTracer            bool
	Denoise             bool
}

// Result is everything the orchestrator needs after loading.
type Result struct {
	Database   *scenedb.Database
	Technique  device.TechniqueInfo
	Parameters *device.ParameterSet
	AOVs       []string
	ResourceMap []string
}

// ShapeInfo is the loader side registry entry for one lowered shape.
type ShapeInfo struct {
	Name        string
	ID          int32
	BBox        lin.Box
	BvhOffset   uint64 // byte offset into the trimesh BVH pool
	Area        float32
	FaceCount   int
	Plane       *mesh.PlaneShape
	Sphere      *mesh.SphereShape
}

// Context is shared by the providers during one load. The database
// accessor serializes appends; everything else is filled before the
// parallel phase or owned per shape.
type Context struct {
	Options Options
	Scene   *scene.Scene
	Locator *load.Locator

	Database *scenedb.Database

	mu       sync.Mutex
	shapes   map[string]*ShapeInfo
	shapeIDs []string // insertion order

	materials    []string // bsdf name per material id
	materialIDs  map[string]int32
	entityIDs    map[string]int32 // entity name -> id, for area lights
	emissiveEnts map[int32]lin.V3 // entity id -> radiance for area lights
}

// newContext prepares the shared state for one load.
func newContext(opts Options, s *scene.Scene) *Context {
	locator := load.NewLocator()
	if opts.FilePath != "" {
		locator.AddDir(filepath.Dir(opts.FilePath))
	}
	return &Context{
		Options:      opts,
		Scene:        s,
		Locator:      locator,
		Database:     scenedb.NewDatabase(),
		shapes:       map[string]*ShapeInfo{},
		materialIDs:  map[string]int32{},
		entityIDs:    map[string]int32{},
		emissiveEnts: map[int32]lin.V3{},
	}
}

// Accessor guards database appends from the shape worker pool.
type Accessor struct {
	ctx *Context
}

// Lock takes the append mutex. The caller must Unlock.
func (a *Accessor) Lock() { a.ctx.mu.Lock() }

// Unlock releases the append mutex.
func (a *Accessor) Unlock() { a.ctx.mu.Unlock() }

// Database returns the shared database. Only touch it while holding
// the accessor lock.
func (a *Accessor) Database() *scenedb.Database { return a.ctx.Database }

// registerShape records the lowered shape under the next free id.
// Called with the accessor lock held.
func (c *Context) registerShape(info *ShapeInfo) {
	info.ID = int32(len(c.shapeIDs))
	c.shapes[info.Name] = info
	c.shapeIDs = append(c.shapeIDs, info.Name)
}

// Shape returns the registry entry for a shape name.
func (c *Context) Shape(name string) (*ShapeInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	info, ok := c.shapes[name]
	return info, ok
}

// materialID interns a bsdf name, growing the material list.
func (c *Context) materialID(bsdf string) int32 {
	if id, ok := c.materialIDs[bsdf]; ok {
		return id
	}
	id := int32(len(c.materials))
	c.materials = append(c.materials, bsdf)
	c.materialIDs[bsdf] = id
	return id
}
