package fbxbuilder

import (
	"io"

	"github.com/mogaika/fbx/builders/bfbx73"
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
)

// fbx EFbxRotationOrder values indexed by utils.RotateOrder
var fbxRotationOrder = [...]int32{
	utils.RotateXYZ: 0,
	utils.RotateYZX: 2,
	utils.RotateZXY: 4,
	utils.RotateXZY: 1,
	utils.RotateYXZ: 3,
	utils.RotateZYX: 5,
}

func vec(sc *memscene.Scene, n *memscene.Node, compound int, t float64) (float64, float64, float64) {
	var v [3]float64
	for axis := range v {
		v[axis] = sc.ChannelValue(n, scene.ChannelOf(compound, axis), t)
	}
	return v[0], v[1], v[2]
}

// AddPose adds every transform node of scene as Null model posed at frame t
func (f *FBXBuilder) AddPose(sc *memscene.Scene, t float64) error {
	for _, n := range sc.Nodes() {
		if !n.Kind.IsTransform() {
			continue
		}
		parentId := int64(0)
		if n.Parent != "" {
			id, ok := f.GetCached(n.Parent)
			if !ok {
				return errors.Errorf("Parent %q of %q is not exported", n.Parent, n.Name)
			}
			parentId = id
		}

		tx, ty, tz := vec(sc, n, 0, t)
		rx, ry, rz := vec(sc, n, 1, t)
		sx, sy, sz := vec(sc, n, 2, t)
		pivot := n.RotatePivot

		modelId := f.GenerateId()
		model := bfbx73.Model(modelId, n.Name+"\x00\x01Model", "Null").AddNodes(
			bfbx73.Version(232),
			bfbx73.Properties70().AddNodes(
				bfbx73.P("RotationActive", "bool", "", "", int32(1)),
				bfbx73.P("InheritType", "enum", "", "", int32(1)),
				bfbx73.P("RotationOrder", "enum", "", "", fbxRotationOrder[n.RotateOrder]),
				bfbx73.P("RotationPivot", "Vector3D", "Vector", "", pivot[0], pivot[1], pivot[2]),
				bfbx73.P("DefaultAttributeIndex", "int", "Integer", "", int32(0)),
				bfbx73.P("Lcl Translation", "Lcl Translation", "", "A", tx, ty, tz),
				bfbx73.P("Lcl Rotation", "Lcl Rotation", "", "A", rx, ry, rz),
				bfbx73.P("Lcl Scaling", "Lcl Scaling", "", "A", sx, sy, sz),
			),
			bfbx73.Shading(true),
			bfbx73.Culling("CullingOff"),
		)

		nodeAttribute := bfbx73.NodeAttribute(f.GenerateId(), n.Name+"\x00\x01NodeAttribute", "Null").AddNodes(
			bfbx73.TypeFlags("Null"),
		)

		f.AddObjects(model, nodeAttribute)
		f.AddConnections(
			bfbx73.C("OO", nodeAttribute.Properties[0].(int64), modelId),
			bfbx73.C("OO", modelId, parentId),
		)
		f.AddCache(n.Name, modelId)
	}
	return nil
}

// ExportPose writes binary fbx with scene pose at frame t
func ExportPose(w io.Writer, sc *memscene.Scene, filename string, t float64) error {
	f := NewFBXBuilder(filename)
	if err := f.AddPose(sc, t); err != nil {
		return err
	}
	return f.Write(w)
}
