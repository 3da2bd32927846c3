package scenefile_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/scenefile"
	"github.com/mogaika/anchor_transform/utils"
)

const walk = `
time: 1001
selection: [foot_L]
nodes:
  - name: hips
    translate: [0, 90, 0]
  - name: foot_L
    parent: hips
    translate: [10, -85, 0]
    rotateOrder: zxy
    rotatePivot: [0, 0, 2]
    locked: [scaleX]
  - name: foot_LShape
    kind: shape
    parent: foot_L
  - name: prop
    connections:
      rotate: {kind: constraint, name: orient1}
curves:
  - name: hips_translateX
    output: hips.translateX
    keys: [{t: 1001, v: 0}, {t: 1010, v: 30, in: spline, out: spline}]
`

func TestLoad(t *testing.T) {
	sc, err := scenefile.Load(strings.NewReader(walk))
	require.NoError(t, err)

	assert.Equal(t, 1001.0, sc.CurrentTime())
	sel, err := sc.Selection(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"foot_L"}, sel)

	foot, ok := sc.Node("foot_L")
	require.True(t, ok)
	assert.Equal(t, "hips", foot.Parent)
	assert.Equal(t, utils.RotateZXY, foot.RotateOrder)
	assert.Equal(t, mgl64.Vec3{0, 0, 2}, foot.RotatePivot)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, foot.Scale)
	assert.True(t, foot.Locked.Has(scene.ScaleX))

	shape, _ := sc.Node("foot_LShape")
	assert.Equal(t, scene.KindShape, shape.Kind)

	inputs, err := sc.Inputs(scene.Plug{Node: "prop", Attr: "rotate"}, scene.SourceConstraint)
	require.NoError(t, err)
	assert.Equal(t, []string{"orient1"}, inputs)

	tx, err := sc.GetAttr(scene.Plug{Node: "hips", Attr: "translateX"}, 1010)
	require.NoError(t, err)
	assert.Equal(t, []float64{30}, tx)

	c, ok := sc.Curve("hips_translateX")
	require.True(t, ok)
	assert.Equal(t, "linear", c.Keys[0].In)
	assert.Equal(t, "spline", c.Keys[1].Out)
}

func TestSaveLoadKeepsScene(t *testing.T) {
	sc, err := scenefile.Load(strings.NewReader(walk))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, scenefile.Save(&buf, sc))

	again, err := scenefile.Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, scenefile.NewDocument(sc), scenefile.NewDocument(again))
}

func TestLoadErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"unknown field": "time: 1\nnodes: []\nspeed: 3\n",
		"orphan":        "nodes:\n  - name: a\n    parent: b\n",
		"short vector":  "nodes:\n  - name: a\n    translate: [1, 2]\n",
		"bad order":     "nodes:\n  - name: a\n    rotateOrder: abc\n",
		"bad lock":      "nodes:\n  - name: a\n    locked: [rotate]\n",
		"curve conn":    "nodes:\n  - name: a\n    connections:\n      translateX: {kind: animCurve, name: c}\n",
		"curve output":  "nodes: []\ncurves:\n  - name: c\n    output: ghost.translateX\n    keys: []\n",
		"bad selection": "nodes: []\nselection: [ghost]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := scenefile.Load(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
