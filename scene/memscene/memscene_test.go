package memscene_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
)

func plug(node, attr string) scene.Plug {
	return scene.Plug{Node: node, Attr: attr}
}

func TestCurveEvaluate(t *testing.T) {
	c := memscene.Curve{Keys: []memscene.Key{
		{Time: 1, Value: 0, In: "linear", Out: "linear"},
		{Time: 11, Value: 10, In: "linear", Out: "step"},
		{Time: 21, Value: 30, In: "flat", Out: "flat"},
	}}

	assert.Equal(t, 0.0, c.Evaluate(-5))
	assert.InDelta(t, 5.0, c.Evaluate(6), 1e-9)
	assert.Equal(t, 10.0, c.Evaluate(15))
	assert.Equal(t, 30.0, c.Evaluate(100))

	flat := memscene.Curve{Keys: []memscene.Key{
		{Time: 0, Value: 0, In: "flat", Out: "flat"},
		{Time: 10, Value: 10, In: "flat", Out: "flat"},
	}}
	assert.InDelta(t, 5.0, flat.Evaluate(5), 1e-9)
	assert.Less(t, flat.Evaluate(1), 1.0)

	next := memscene.Curve{Keys: []memscene.Key{
		{Time: 0, Value: 1, In: "stepnext", Out: "stepnext"},
		{Time: 10, Value: 2, In: "stepnext", Out: "stepnext"},
	}}
	assert.Equal(t, 2.0, next.Evaluate(0.5))
}

func TestCurveSetKey(t *testing.T) {
	c := memscene.Curve{}
	c.SetKey(memscene.Key{Time: 5, Value: 1})
	c.SetKey(memscene.Key{Time: 1, Value: 2})
	c.SetKey(memscene.Key{Time: 5, Value: 3})
	assert.Equal(t, []float64{1, 5}, c.Times())
	assert.Equal(t, 3.0, c.Keys[1].Value)
}

func buildParented(t *testing.T) *memscene.Scene {
	sc := memscene.New()
	parent := memscene.NewTransform("parent", "")
	parent.Translate = mgl64.Vec3{1, 2, 3}
	parent.Rotate = mgl64.Vec3{0, 90, 0}
	_, err := sc.AddNode(parent)
	require.NoError(t, err)

	child := memscene.NewTransform("child", "parent")
	child.Translate = mgl64.Vec3{1, 0, 0}
	_, err = sc.AddNode(child)
	require.NoError(t, err)
	return sc
}

func TestWorldMatrix(t *testing.T) {
	sc := buildParented(t)

	world, err := sc.Matrix("child", scene.WorldMatrix, 1)
	require.NoError(t, err)
	// +X of parent points to -Z after 90 degrees about Y
	assert.InDelta(t, 1.0, world.At(0, 3), 1e-9)
	assert.InDelta(t, 2.0, world.At(1, 3), 1e-9)
	assert.InDelta(t, 2.0, world.At(2, 3), 1e-9)

	parentInv, err := sc.Matrix("child", scene.ParentInverseMatrix, 1)
	require.NoError(t, err)
	local := parentInv.Mul4(world)
	n, _ := sc.Node("child")
	assert.InDeltaSlice(t, elems(sc.LocalMatrix(n, 1)), elems(local), 1e-9)

	rootInv, err := sc.Matrix("parent", scene.ParentInverseMatrix, 1)
	require.NoError(t, err)
	assert.InDeltaSlice(t, elems(mgl64.Ident4()), elems(rootInv), 1e-12)

	_, err = sc.Matrix("missing", scene.WorldMatrix, 1)
	assert.True(t, errors.Is(err, scene.ErrNodeNotFound))
}

func TestAddNodeValidation(t *testing.T) {
	sc := memscene.New()
	_, err := sc.AddNode(memscene.NewTransform("orphan", "nobody"))
	assert.Error(t, err)

	_, err = sc.AddNode(memscene.NewTransform("", ""))
	assert.Error(t, err)

	bad := memscene.NewTransform("bad", "")
	bad.RotateOrder = utils.RotateOrder(42)
	_, err = sc.AddNode(bad)
	assert.Error(t, err)

	_, err = sc.AddNode(memscene.NewTransform("a", ""))
	require.NoError(t, err)
	_, err = sc.AddNode(memscene.NewTransform("a", ""))
	assert.Error(t, err)
}

func TestNodeNamesNormalized(t *testing.T) {
	sc := memscene.New()
	_, err := sc.AddNode(memscene.NewTransform("pie\u0301", ""))
	require.NoError(t, err)

	_, ok := sc.Node("pi\u00e9")
	assert.True(t, ok)
}

func TestSetKeyframeCreatesCurve(t *testing.T) {
	sc := buildParented(t)
	p := plug("child", "translateX")

	require.NoError(t, sc.SetKeyframe(p, 1, 5, scene.DefaultTangents()))
	require.NoError(t, sc.SetKeyframe(p, 10, 15, scene.DefaultTangents()))

	curves, err := sc.Inputs(p, scene.SourceAnimCurve)
	require.NoError(t, err)
	require.Len(t, curves, 1)
	assert.Equal(t, "child_translateX", curves[0])

	times, err := sc.KeyTimes(curves[0])
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 10}, times)

	v, err := sc.GetAttr(p, 5.5)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, v[0], 1e-9)

	in, out, err := sc.KeyTangents(curves[0], 10)
	require.NoError(t, err)
	assert.Equal(t, "linear", in)
	assert.Equal(t, "linear", out)

	_, _, err = sc.KeyTangents(curves[0], 3)
	assert.Error(t, err)

	_, err = sc.KeyTimes("nope")
	assert.True(t, errors.Is(err, scene.ErrCurveNotFound))
}

func TestSetKeyframeRejects(t *testing.T) {
	sc := buildParented(t)

	require.NoError(t, sc.Lock(plug("child", "rotateY"), true))
	err := sc.SetKeyframe(plug("child", "rotateY"), 1, 0, scene.DefaultTangents())
	assert.True(t, errors.Is(err, scene.ErrLocked))

	require.NoError(t, sc.Connect(memscene.Source{Kind: scene.SourceConstraint, Name: "pc1"}, plug("child", "translate")))
	err = sc.SetKeyframe(plug("child", "translateZ"), 1, 0, scene.DefaultTangents())
	assert.True(t, errors.Is(err, scene.ErrConnected))

	require.NoError(t, sc.Connect(memscene.Source{Kind: scene.SourceExpression, Name: "expr1"}, plug("child", "scaleX")))
	err = sc.SetKeyframe(plug("child", "scaleX"), 1, 0, scene.DefaultTangents())
	assert.True(t, errors.Is(err, scene.ErrConnected))

	err = sc.SetKeyframe(plug("child", "rotateOrder"), 1, 0, scene.DefaultTangents())
	assert.True(t, errors.Is(err, scene.ErrUnknownAttribute))
}

func TestLockAndInputsQueries(t *testing.T) {
	sc := buildParented(t)
	require.NoError(t, sc.Lock(plug("child", "scaleX"), true))

	locked, err := sc.IsLocked(plug("child", "scaleX"))
	require.NoError(t, err)
	assert.True(t, locked)

	locked, err = sc.IsLocked(plug("child", "scale"))
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, sc.Connect(memscene.Source{Kind: scene.SourceConstraint, Name: "oc1"}, plug("child", "rotate")))
	inputs, err := sc.Inputs(plug("child", "rotate"), scene.SourceAny)
	require.NoError(t, err)
	assert.Equal(t, []string{"oc1"}, inputs)

	curves, err := sc.Inputs(plug("child", "rotate"), scene.SourceAnimCurve)
	require.NoError(t, err)
	assert.Empty(t, curves)

	require.NoError(t, sc.Disconnect(plug("child", "rotate")))
	inputs, err = sc.Inputs(plug("child", "rotate"), scene.SourceAny)
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func TestUndoChunkGroupsKeys(t *testing.T) {
	sc := buildParented(t)
	p := plug("child", "translateX")

	require.NoError(t, sc.SetKeyframe(p, 1, 1, scene.DefaultTangents()))

	require.NoError(t, sc.OpenUndoChunk("outer"))
	require.NoError(t, sc.OpenUndoChunk("inner"))
	require.NoError(t, sc.SetKeyframe(p, 1, 100, scene.DefaultTangents()))
	require.NoError(t, sc.SetKeyframe(p, 5, 200, scene.DefaultTangents()))
	require.NoError(t, sc.SetKeyframe(plug("child", "rotateZ"), 5, 45, scene.DefaultTangents()))
	require.NoError(t, sc.CloseUndoChunk())
	assert.Error(t, sc.Undo(), "undo inside open chunk")
	require.NoError(t, sc.CloseUndoChunk())
	assert.True(t, errors.Is(sc.CloseUndoChunk(), scene.ErrNoUndoChunk))

	assert.Equal(t, []string{"setKeyframe child.translateX", "outer"}, sc.UndoSteps())

	require.NoError(t, sc.Undo())
	times, err := sc.KeyTimes("child_translateX")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, times)
	v, err := sc.GetAttr(p, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, v[0])

	curves, err := sc.Inputs(plug("child", "rotateZ"), scene.SourceAnimCurve)
	require.NoError(t, err)
	assert.Empty(t, curves)
	_, ok := sc.Curve("child_rotateZ")
	assert.False(t, ok)

	require.NoError(t, sc.Undo())
	assert.Empty(t, sc.Curves())
	assert.Error(t, sc.Undo())
}

func TestSetAttrUndo(t *testing.T) {
	sc := buildParented(t)
	require.NoError(t, sc.SetAttr(plug("child", "translate"), 4, 5, 6))
	require.NoError(t, sc.SetAttr(plug("child", "rotateOrder"), float64(utils.RotateZXY)))
	assert.Error(t, sc.SetAttr(plug("child", "translate"), 1))

	v, err := sc.GetAttr(plug("child", "translate"), 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5, 6}, v)

	require.NoError(t, sc.Undo())
	order, err := sc.GetAttr(plug("child", "rotateOrder"), 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{float64(utils.RotateXYZ)}, order)

	require.NoError(t, sc.Undo())
	v, err = sc.GetAttr(plug("child", "translate"), 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, v)
}

func TestSelectionFiltersTransforms(t *testing.T) {
	sc := buildParented(t)
	shape := memscene.NewTransform("childShape", "child")
	shape.Kind = scene.KindShape
	_, err := sc.AddNode(shape)
	require.NoError(t, err)

	require.NoError(t, sc.Select("childShape", "parent"))
	sel, err := sc.Selection(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"parent"}, sel)

	sel, err = sc.Selection(false)
	require.NoError(t, err)
	assert.Equal(t, []string{"childShape", "parent"}, sel)

	assert.Error(t, sc.Select("ghost"))
}

func TestEulerFilterCrossing180(t *testing.T) {
	sc := buildParented(t)
	values := []float64{170, 179, -172, -160}
	for i, v := range values {
		require.NoError(t, sc.SetKeyframe(plug("child", "rotateZ"), float64(i+1), v, scene.DefaultTangents()))
		require.NoError(t, sc.SetKeyframe(plug("child", "rotateX"), float64(i+1), 0, scene.DefaultTangents()))
		require.NoError(t, sc.SetKeyframe(plug("child", "rotateY"), float64(i+1), 0, scene.DefaultTangents()))
	}
	n, _ := sc.Node("child")
	before := make([]mgl64.Mat4, len(values))
	for i := range values {
		before[i] = sc.LocalMatrix(n, float64(i+1))
	}

	require.NoError(t, sc.FilterCurves(scene.EulerFilter, "child_rotateX", "child_rotateY", "child_rotateZ"))

	c, ok := sc.Curve("child_rotateZ")
	require.True(t, ok)
	got := make([]float64, len(c.Keys))
	for i, k := range c.Keys {
		got[i] = k.Value
	}
	assert.InDeltaSlice(t, []float64{170, 179, 188, 200}, got, 1e-9)

	for i := range values {
		assert.InDeltaSlice(t, elems(sc.LocalMatrix(n, float64(i+1))), elems(before[i]), 1e-9, "orientation at key %d", i)
	}

	require.NoError(t, sc.Undo())
	assert.Equal(t, -172.0, c.Keys[2].Value)
}

func TestEulerFilterPartialCurves(t *testing.T) {
	sc := buildParented(t)
	for i, v := range []float64{-170, 175} {
		require.NoError(t, sc.SetKeyframe(plug("child", "rotateY"), float64(i), v, scene.DefaultTangents()))
	}
	require.NoError(t, sc.SetKeyframe(plug("child", "translateX"), 0, 3, scene.DefaultTangents()))

	require.NoError(t, sc.FilterCurves(scene.EulerFilter, "child_rotateY", "child_translateX"))
	c, _ := sc.Curve("child_rotateY")
	assert.Equal(t, -170.0, c.Keys[0].Value)
	assert.InDelta(t, -185.0, c.Keys[1].Value, 1e-9)

	assert.Error(t, sc.FilterCurves("smooth", "child_rotateY"))
}

func elems(m mgl64.Mat4) []float64 {
	return m[:]
}
