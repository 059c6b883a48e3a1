// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package loader

// light.go lowers light objects into the lights table. The record type
// id in the lookup entry selects the sampling routine; payloads are
// fixed small blocks. Sky and sun irradiance models are consumed as
// black box generators that reduce to these records.

import (
	"fmt"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// loadLights lowers every light object in scene order.
func loadLights(ctx *Context) error {
	db := ctx.Database
	table := db.Table(scenedb.TableLights)

	for _, name := range ctx.Scene.LightOrder {
		obj := ctx.Scene.Lights[name]
		switch obj.PluginType {
		case "point":
			pos := obj.Property("position").GetVec3(lin.V3{})
			intensity := obj.Property("intensity").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.LightPoint, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(pos)
			s.WriteV3Pad(intensity)

		case "area":
			entName := obj.Property("entity").GetString("")
			entID, ok := ctx.entityIDs[entName]
			if !ok {
				return fmt.Errorf("light %q: unknown entity %q", name, entName)
			}
			radiance := obj.Property("radiance").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.LightArea, 0, scenedb.DefaultAlignment))
			s.WriteI32(entID)
			s.WriteU32(0)
			s.WriteU32(0)
			s.WriteU32(0)
			s.WriteV3Pad(radiance)
			ctx.emissiveEnts[entID] = radiance

		case "constant", "env", "environment":
			radiance := obj.Property("radiance").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.LightConstantEnv, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(radiance)

		case "directional":
			dir := obj.Property("direction").GetVec3(lin.NewV3(0, 0, 1)).Unit()
			irradiance := obj.Property("irradiance").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.LightDirectional, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(dir)
			s.WriteV3Pad(irradiance)

		case "sun":
			// The sun irradiance model is an external collaborator; its
			// output reduces to a directional record tagged as sun.
			dir := obj.Property("direction").GetVec3(lin.NewV3(0, 0, 1)).Unit()
			irradiance := obj.Property("sun_scale").GetVec3(lin.NewV3(1, 1, 1))
			s := scenedb.NewSerializer(table.AddLookup(scenedb.LightSun, 0, scenedb.DefaultAlignment))
			s.WriteV3Pad(dir)
			s.WriteV3Pad(irradiance)

		default:
			return fmt.Errorf("light %q: unknown plugin type %q", name, obj.PluginType)
		}
	}
	return nil
}

// lightCount returns the number of lowered light records.
func lightCount(ctx *Context) int {
	return ctx.Database.Table(scenedb.TableLights).EntryCount()
}
