package fbxbuilder_test

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
	"github.com/mogaika/anchor_transform/utils/fbxbuilder"
)

func poseScene(t *testing.T) *memscene.Scene {
	sc := memscene.New()
	_, err := sc.AddNode(memscene.NewTransform("hips", ""))
	require.NoError(t, err)

	foot := memscene.NewTransform("foot", "hips")
	foot.RotateOrder = utils.RotateZXY
	foot.RotatePivot = mgl64.Vec3{0, 0, 1}
	_, err = sc.AddNode(foot)
	require.NoError(t, err)

	shape := memscene.NewTransform("footShape", "foot")
	shape.Kind = scene.KindShape
	_, err = sc.AddNode(shape)
	require.NoError(t, err)
	return sc
}

func TestAddPose(t *testing.T) {
	f := fbxbuilder.NewFBXBuilder("pose.fbx")
	require.NoError(t, f.AddPose(poseScene(t), 1))

	objects := f.Root().GetNode("Objects")
	require.NotNil(t, objects)
	assert.Len(t, objects.GetNodes("Model"), 2)
	assert.Len(t, objects.GetNodes("NodeAttribute"), 2)
	assert.Len(t, f.Root().GetNode("Connections").GetNodes("C"), 4)

	hips, ok := f.GetCached("hips")
	require.True(t, ok)
	foot, ok := f.GetCached("foot")
	require.True(t, ok)
	assert.NotEqual(t, hips, foot)
	_, ok = f.GetCached("footShape")
	assert.False(t, ok)
}

func TestExportPose(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fbxbuilder.ExportPose(&buf, poseScene(t), "pose.fbx", 1))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("Kaydara FBX Binary")))
}

func TestWriteCountsDefinitions(t *testing.T) {
	f := fbxbuilder.NewFBXBuilder("pose.fbx")
	require.NoError(t, f.AddPose(poseScene(t), 1))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	definitions := f.Root().GetNode("Definitions")
	require.NotNil(t, definitions)
	assert.Equal(t, int32(5), definitions.GetNode("Count").Properties[0])

	counts := make(map[string]int32)
	for _, ot := range definitions.GetNodes("ObjectType") {
		counts[ot.Properties[0].(string)] = ot.GetNode("Count").Properties[0].(int32)
	}
	assert.Equal(t, map[string]int32{"GlobalSettings": 1, "Model": 2, "NodeAttribute": 2}, counts)

	assert.Nil(t, f.Root().GetNode("References"))
	assert.Nil(t, f.Root().GetNode("Takes"))
}
