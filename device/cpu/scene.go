// Copyright © 2026 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package cpu is the built-in CPU device: a compiler device binding
// generated scripts to native kernels, and a render device that
// traverses the serialized scene database directly. It registers itself
// for every host architecture at init, so rendering needs no external
// device modules.
package cpu

import (
	"fmt"

	"github.com/ignis-render/ignis/math/lin"
	"github.com/ignis-render/ignis/scenedb"
)

// shapeView is the decoded read-only view over one shapes table record
// plus its BVH blob in the pool. Slices alias the table bytes.
type shapeView struct {
	faceCount int

	vertices  []float32 // 4 floats per vertex, 16 byte stride
	normals   []float32 // 4 floats per normal
	indices   []uint32  // 4 per face
	texcoords []float32 // 2 per vertex

	bbox lin.Box

	// Triangle BVH streams inside the pool blob.
	bvhNodes []float32 // node stream as floats (child ints bit cast)
	bvhTris  []float32 // packet stream
	nodeCnt  int
	triCnt   int
}

// entityView is one decoded scene BVH leaf.
type entityView struct {
	bbox       lin.Box
	entityID   int32
	shapeID    int32
	materialID int32
	flags      uint32
	toWorld    lin.M4
	toLocal    lin.M4
	emission   lin.V3
	emissive   bool
}

// lightView is one decoded light record.
type lightView struct {
	kind      uint32
	position  lin.V3 // point
	direction lin.V3 // directional, sun
	color     lin.V3 // intensity, radiance or irradiance
	entityID  int32  // area
}

// bsdfView is one decoded material record.
type bsdfView struct {
	kind  uint32
	color lin.V3
	param float32
}

// sceneView is the device resident decode of the database.
type sceneView struct {
	db *scenedb.Database

	arity      int
	packetSize int

	shapes   []shapeView
	entities []entityView
	lights   []lightView
	bsdfs    []bsdfView

	// env is the summed constant environment radiance; evaluated by
	// the miss shader.
	env    lin.V3
	hasEnv bool

	sceneNodes  []float32
	sceneLeaves []float32
	bbox        lin.Box
	diameter    float32

	// finite light indices for next event estimation.
	sampleLights []int
}

// decodeScene builds the view. It validates the wire format as it goes;
// malformed tables are load errors, not panics.
func decodeScene(db *scenedb.Database, arity, packetSize int, targetKey string) (*sceneView, error) {
	sv := &sceneView{
		db:         db,
		arity:      arity,
		packetSize: packetSize,
		bbox:       db.SceneBBox,
		diameter:   db.SceneRadius * 2,
	}

	if err := sv.decodeShapes(); err != nil {
		return nil, err
	}
	if err := sv.decodeEntities(targetKey); err != nil {
		return nil, err
	}
	sv.decodeLights()
	sv.decodeBSDFs()
	return sv, nil
}

func (sv *sceneView) decodeShapes() error {
	shapes, ok := sv.db.Tables[scenedb.TableShapes]
	if !ok {
		return nil // scenes without geometry are legal
	}
	mappings := sv.db.Tables[scenedb.TableShapeMappings]
	if mappings == nil || mappings.EntryCount() != shapes.EntryCount() {
		return fmt.Errorf("cpu: shape mapping table out of sync")
	}
	pool := sv.db.FixTables[scenedb.FixTableTriMeshBVH]
	if pool == nil {
		return fmt.Errorf("cpu: missing trimesh bvh pool")
	}
	poolF32 := scenedb.F32View(pool.Data())
	poolU32 := scenedb.U32View(pool.Data())
	mapWords := scenedb.U32View(mappings.Data())

	data := shapes.Data()
	for i, l := range shapes.Lookups() {
		entry := data[l.Offset:]
		words := scenedb.U32View(entry)
		floats := scenedb.F32View(entry)

		faceCount := int(words[scenedb.ShapeFaceCount])
		vertexCount := int(words[scenedb.ShapeVertexCount])
		normalCount := int(words[scenedb.ShapeNormalCount])
		texcoordCount := int(words[scenedb.ShapeTexcoordCount])

		need := scenedb.ShapeHeaderWords + vertexCount*4 + normalCount*4 + faceCount*4 + texcoordCount*2
		if need > len(words) {
			return fmt.Errorf("cpu: shape %d record truncated (%d words, need %d)", i, len(words), need)
		}

		view := shapeView{faceCount: faceCount}
		view.bbox = lin.NewBox(
			lin.NewV3(floats[scenedb.ShapeBBoxMin], floats[scenedb.ShapeBBoxMin+1], floats[scenedb.ShapeBBoxMin+2]),
			lin.NewV3(floats[scenedb.ShapeBBoxMax], floats[scenedb.ShapeBBoxMax+1], floats[scenedb.ShapeBBoxMax+2]))

		off := scenedb.ShapeHeaderWords
		view.vertices = floats[off : off+vertexCount*4]
		off += vertexCount * 4
		view.normals = floats[off : off+normalCount*4]
		off += normalCount * 4
		view.indices = words[off : off+faceCount*4]
		off += faceCount * 4
		view.texcoords = floats[off : off+texcoordCount*2]

		// Locate the shape's BVH blob through the mapping table.
		mo := mappings.Lookups()[i].Offset / 4
		byteOff := scenedb.JoinU32(mapWords[mo], mapWords[mo+1])
		wordOff := int(byteOff / 4)
		if wordOff+4 > len(poolU32) {
			return fmt.Errorf("cpu: shape %d bvh offset %d beyond pool", i, byteOff)
		}
		view.nodeCnt = int(poolU32[wordOff])
		view.triCnt = int(poolU32[wordOff+1])
		nodeWords := view.nodeCnt * nodeSizeWords(sv.arity)
		triWords := view.triCnt * triPacketWords(sv.packetSize)
		if wordOff+4+nodeWords+triWords > len(poolF32) {
			return fmt.Errorf("cpu: shape %d bvh blob truncated", i)
		}
		view.bvhNodes = poolF32[wordOff+4 : wordOff+4+nodeWords]
		view.bvhTris = poolF32[wordOff+4+nodeWords : wordOff+4+nodeWords+triWords]

		sv.shapes = append(sv.shapes, view)
	}
	return nil
}

func (sv *sceneView) decodeEntities(targetKey string) error {
	sb, ok := sv.db.SceneBVHs[targetKey]
	if !ok {
		// Fall back to any serialized variant; the layout only depends
		// on the arity which we know.
		for _, v := range sv.db.SceneBVHs {
			sb = v
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("cpu: no scene bvh in database")
	}
	sv.sceneNodes = scenedb.F32View(sb.Nodes)
	sv.sceneLeaves = scenedb.F32View(sb.Leaves)

	leafWords := scenedb.U32View(sb.Leaves)
	leafFloats := sv.sceneLeaves
	count := len(leafWords) / 24
	for l := 0; l < count; l++ {
		w := leafWords[l*24 : l*24+24]
		f := leafFloats[l*24 : l*24+24]
		var m lin.M4
		m = lin.M4I()
		// Columns were serialized in order.
		m.Xx, m.Yx, m.Zx = f[8], f[9], f[10]
		m.Xy, m.Yy, m.Zy = f[11], f[12], f[13]
		m.Xz, m.Yz, m.Zz = f[14], f[15], f[16]
		m.Xw, m.Yw, m.Zw = f[17], f[18], f[19]

		ent := entityView{
			bbox: lin.NewBox(
				lin.NewV3(f[0], f[1], f[2]),
				lin.NewV3(f[4], f[5], f[6])),
			entityID:   int32(w[3] &^ 0x80000000),
			shapeID:    int32(w[7]),
			flags:      w[20],
			materialID: int32(w[21]),
			toWorld:    m,
			toLocal:    m.InvertAffine(),
		}
		if int(ent.shapeID) >= len(sv.shapes) {
			return fmt.Errorf("cpu: entity %d references shape %d of %d", ent.entityID, ent.shapeID, len(sv.shapes))
		}
		sv.entities = append(sv.entities, ent)
	}

	// Leaves arrive in BVH order; index them by entity id for emission
	// and light sampling lookups.
	byID := make([]entityView, len(sv.entities))
	for _, e := range sv.entities {
		if int(e.entityID) < len(byID) {
			byID[e.entityID] = e
		}
	}
	sv.entities = byID
	return nil
}

func (sv *sceneView) decodeLights() {
	table, ok := sv.db.Tables[scenedb.TableLights]
	if !ok {
		return
	}
	floats := scenedb.F32View(table.Data())
	words := scenedb.U32View(table.Data())
	for _, l := range table.Lookups() {
		o := int(l.Offset / 4)
		lv := lightView{kind: l.TypeID}
		switch l.TypeID {
		case scenedb.LightPoint:
			lv.position = lin.NewV3(floats[o], floats[o+1], floats[o+2])
			lv.color = lin.NewV3(floats[o+4], floats[o+5], floats[o+6])
		case scenedb.LightArea:
			lv.entityID = int32(words[o])
			lv.color = lin.NewV3(floats[o+4], floats[o+5], floats[o+6])
			if int(lv.entityID) < len(sv.entities) {
				sv.entities[lv.entityID].emissive = true
				sv.entities[lv.entityID].emission = lv.color
			}
		case scenedb.LightConstantEnv, scenedb.LightEnvMap:
			lv.color = lin.NewV3(floats[o], floats[o+1], floats[o+2])
			sv.env = sv.env.Add(lv.color)
			sv.hasEnv = true
		case scenedb.LightDirectional, scenedb.LightSun:
			lv.direction = lin.NewV3(floats[o], floats[o+1], floats[o+2])
			lv.color = lin.NewV3(floats[o+4], floats[o+5], floats[o+6])
		}
		sv.lights = append(sv.lights, lv)
	}
	for i, lv := range sv.lights {
		if lv.kind != scenedb.LightConstantEnv && lv.kind != scenedb.LightEnvMap {
			sv.sampleLights = append(sv.sampleLights, i)
		}
	}
}

func (sv *sceneView) decodeBSDFs() {
	table, ok := sv.db.Tables[scenedb.TableBSDFs]
	if !ok {
		return
	}
	floats := scenedb.F32View(table.Data())
	for _, l := range table.Lookups() {
		o := int(l.Offset / 4)
		sv.bsdfs = append(sv.bsdfs, bsdfView{
			kind:  l.TypeID,
			color: lin.NewV3(floats[o], floats[o+1], floats[o+2]),
			param: floats[o+3],
		})
	}
}

// bsdf returns the material record for an id, defaulting to gray
// diffuse for out of range ids.
func (sv *sceneView) bsdf(id int32) bsdfView {
	if id >= 0 && int(id) < len(sv.bsdfs) {
		return sv.bsdfs[id]
	}
	return bsdfView{kind: scenedb.BsdfDiffuse, color: lin.NewV3(0.8, 0.8, 0.8)}
}

// nodeSizeWords is the node stride in 4 byte words.
func nodeSizeWords(arity int) int { return arity*6 + arity }

// triPacketWords is the packet stride in 4 byte words.
func triPacketWords(m int) int {
	if m == 1 {
		return 13
	}
	return 4*3*m + m
}
