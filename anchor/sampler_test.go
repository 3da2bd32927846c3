package anchor_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mogaika/anchor_transform/anchor"
	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
)

func TestMatrixAtWithoutNodeIsIdentity(t *testing.T) {
	s := anchor.NewSampler(memscene.New())
	for _, kind := range []scene.MatrixKind{scene.WorldMatrix, scene.WorldInverseMatrix, scene.ParentInverseMatrix} {
		pose, err := s.MatrixAt("", 42, kind)
		require.NoError(t, err)
		assert.Equal(t, mgl64.Ident4(), pose.Matrix)
		assert.Equal(t, kind, pose.Space)
	}
}

func TestSamplerUsesRequestedTime(t *testing.T) {
	sc := slidingParentScene(t)
	sc.SetCurrentTime(1)
	s := anchor.NewSampler(sc)

	pose, err := s.MatrixAt("N", 10, scene.WorldMatrix)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, pose.Matrix.At(0, 3), 1e-9)

	pose, err = s.Matrix("N", scene.ParentInverseMatrix)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pose.Matrix.At(0, 3), 1e-9)

	order, err := s.RotateOrder("N")
	require.NoError(t, err)
	assert.Equal(t, utils.RotateXYZ, order)

	pivot, err := s.RotatePivot("N", 1)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{}, pivot)
}

func TestDecomposeMatchesChannels(t *testing.T) {
	cases := []struct {
		name  string
		tr    anchor.Transform
		order utils.RotateOrder
		pivot mgl64.Vec3
	}{
		{"plain", anchor.Transform{Translate: mgl64.Vec3{1, 2, 3}, Rotate: mgl64.Vec3{10, -20, 30}, Scale: mgl64.Vec3{1, 1, 1}}, utils.RotateXYZ, mgl64.Vec3{}},
		{"pivot", anchor.Transform{Translate: mgl64.Vec3{-4, 0, 7}, Rotate: mgl64.Vec3{45, 15, -60}, Scale: mgl64.Vec3{2, 0.5, 3}}, utils.RotateYZX, mgl64.Vec3{1, -2, 0.5}},
		{"mirrored", anchor.Transform{Translate: mgl64.Vec3{0, 1, 0}, Rotate: mgl64.Vec3{-80, 5, 170}, Scale: mgl64.Vec3{-1, -2, -0.5}}, utils.RotateZYX, mgl64.Vec3{0, 3, 0}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := utils.ComposeTRS(c.tr.Translate, c.tr.Rotate, c.tr.Scale, c.pivot, c.order)
			got := anchor.Decompose(m, c.order, c.pivot)
			for ch := scene.Channel(0); ch < scene.NumChannels; ch++ {
				assert.InDelta(t, c.tr.Channel(ch), got.Channel(ch), 1e-9, "%v", ch)
			}
		})
	}
}
