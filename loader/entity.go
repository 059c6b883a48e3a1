// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// entity.go places shapes into the world: one entity per scene entity
// object, each with a shape id, material id and local to world
// transform. Entities feed both the entities table and the scene BVH.

import (
	"fmt"
	"log/slog"

	"github.com/ignis-render/ignis/bvh"
	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// loadEntities lowers the entity objects, builds the top level BVH and
// fills the entity/material metadata of the database.
func loadEntities(ctx *Context) error {
	db := ctx.Database
	var objects []bvh.EntityObject

	addEntity := func(name, shapeName, bsdfName string, transform lin.M4, user1, user2, flags int) error {
		info, ok := ctx.Shape(shapeName)
		if !ok {
			return fmt.Errorf("entity %q: unknown shape %q", name, shapeName)
		}
		matID := ctx.materialID(bsdfName)
		id := int32(len(objects))

		world := info.BBox.Transform(transform)
		objects = append(objects, bvh.EntityObject{
			BBox:       world,
			EntityID:   id,
			ShapeID:    info.ID,
			MaterialID: matID,
			User1ID:    int32(user1),
			User2ID:    int32(user2),
			Local:      transform,
			Flags:      uint32(flags),
		})
		db.EntityToMaterial = append(db.EntityToMaterial, uint32(matID))

		blob := db.Table(scenedb.TableEntities).AddLookup(0, 0, scenedb.DefaultAlignment)
		s := scenedb.NewSerializer(blob)
		s.WriteI32(info.ID)
		s.WriteI32(matID)
		s.WriteI32(id)
		s.WriteU32(uint32(flags))
		s.WriteI32(int32(user1))
		s.WriteI32(int32(user2))
		s.WriteU32(0)
		s.WriteU32(0)
		for col := 0; col < 4; col++ {
			s.WriteV3(transform.Col(col))
		}
		db.SceneBBox = db.SceneBBox.ExtendBox(world)
		return nil
	}

	for _, name := range ctx.Scene.EntityOrder {
		obj := ctx.Scene.Entities[name]
		shapeName := obj.Property("shape").GetString("")
		if shapeName == "" {
			return fmt.Errorf("entity %q: no shape given", name)
		}
		bsdfName := obj.Property("bsdf").GetString("")
		transform := obj.Property("transform").GetTransform(lin.M4I())
		user1 := obj.Property("user1").GetInteger(0)
		user2 := obj.Property("user2").GetInteger(0)
		flags := obj.Property("camera_visible").GetBool(true)
		flagWord := 0
		if flags {
			flagWord |= 1
		}
		if err := addEntity(name, shapeName, bsdfName, transform, user1, user2, flagWord); err != nil {
			return err
		}
		ctx.entityIDs[name] = int32(len(objects) - 1)
	}

	// Scenes may omit entities entirely; shapes then stay unreferenced
	// and only lights render.
	if len(objects) == 0 {
		slog.Debug("scene has no entities")
	}

	db.MaterialCount = len(ctx.materials)
	if db.MaterialCount == 0 {
		// At least one material exists so hit shader dispatch always
		// has a slot.
		ctx.materialID("")
		db.MaterialCount = 1
	}

	arity, _ := ctx.Options.Target.BvhShape()
	built := bvh.BuildScene(objects, arity)
	db.SceneBVHs[ctx.Options.Target.String()] = built.Serialize()

	if db.SceneBBox.IsEmpty() {
		db.SceneBBox = lin.NewBox(lin.NewV3(-1, -1, -1), lin.NewV3(1, 1, 1))
	}
	db.SceneRadius = db.SceneBBox.Radius()
	return nil
}
