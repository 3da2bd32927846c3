package anchor

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/utils"
)

// Transform holds channel values in host units, rotation in degrees
type Transform struct {
	Translate mgl64.Vec3
	Rotate    mgl64.Vec3
	Scale     mgl64.Vec3
}

func (t Transform) Channel(c scene.Channel) float64 {
	switch c.Compound() {
	case 0:
		return t.Translate[c.Axis()]
	case 1:
		return t.Rotate[c.Axis()]
	default:
		return t.Scale[c.Axis()]
	}
}

// Decompose splits local matrix into channel values the host would compose
// back into the same matrix for given rotate order and rotate pivot.
func Decompose(m mgl64.Mat4, order utils.RotateOrder, pivot mgl64.Vec3) Transform {
	t, r, s := utils.DecomposeTRS(m, order, pivot)
	return Transform{Translate: t, Rotate: r, Scale: s}
}

// SamplerHost is the part of scene.Host the sampler reads from
type SamplerHost interface {
	scene.Clock
	scene.MatrixSource
	scene.AttributeStore
	scene.ConnectionQuerier
}

type Sampler struct {
	host SamplerHost
}

func NewSampler(host SamplerHost) *Sampler {
	return &Sampler{host: host}
}

// MatrixAt samples node matrix at exact time t.
// Empty node means world space and yields identity.
func (s *Sampler) MatrixAt(node string, t float64, kind scene.MatrixKind) (scene.Pose, error) {
	if node == "" {
		return scene.IdentityPose(kind), nil
	}
	m, err := s.host.Matrix(node, kind, t)
	if err != nil {
		return scene.Pose{}, errors.Wrapf(err, "Failed to sample %s.%s at %v", node, kind, t)
	}
	return scene.Pose{Matrix: m, Space: kind}, nil
}

// Matrix samples at host current time
func (s *Sampler) Matrix(node string, kind scene.MatrixKind) (scene.Pose, error) {
	return s.MatrixAt(node, s.host.CurrentTime(), kind)
}

func (s *Sampler) RotateOrder(node string) (utils.RotateOrder, error) {
	v, err := s.host.GetAttr(scene.Plug{Node: node, Attr: scene.AttrRotateOrder}, s.host.CurrentTime())
	if err != nil {
		return 0, errors.Wrapf(err, "Failed to get rotate order of %q", node)
	}
	if len(v) != 1 || !utils.RotateOrder(v[0]).Valid() {
		return 0, errors.Errorf("Invalid rotate order %v on %q", v, node)
	}
	return utils.RotateOrder(v[0]), nil
}

func (s *Sampler) RotatePivot(node string, t float64) (mgl64.Vec3, error) {
	v, err := s.host.GetAttr(scene.Plug{Node: node, Attr: scene.AttrRotatePivot}, t)
	if err != nil {
		return mgl64.Vec3{}, errors.Wrapf(err, "Failed to get rotate pivot of %q", node)
	}
	if len(v) != 3 {
		return mgl64.Vec3{}, errors.Errorf("Invalid rotate pivot %v on %q", v, node)
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// InvalidChannels returns channels that cannot be keyed: channels under a
// connected compound, locked channels and channels driven by anything but an
// animation curve.
func (s *Sampler) InvalidChannels(node string) (scene.ChannelSet, error) {
	var invalid scene.ChannelSet
	for compound, attr := range scene.Compounds {
		inputs, err := s.host.Inputs(scene.Plug{Node: node, Attr: attr}, scene.SourceAny)
		if err != nil {
			return 0, errors.Wrapf(err, "Failed to query inputs of %s.%s", node, attr)
		}
		if len(inputs) != 0 {
			invalid = invalid.WithCompound(compound)
			continue
		}

		for axis := 0; axis < 3; axis++ {
			c := scene.ChannelOf(compound, axis)
			p := c.Plug(node)

			locked, err := s.host.IsLocked(p)
			if err != nil {
				return 0, errors.Wrapf(err, "Failed to query lock of %v", p)
			}
			if locked {
				invalid = invalid.With(c)
				continue
			}

			curves, err := s.host.Inputs(p, scene.SourceAnimCurve)
			if err != nil {
				return 0, errors.Wrapf(err, "Failed to query inputs of %v", p)
			}
			all, err := s.host.Inputs(p, scene.SourceAny)
			if err != nil {
				return 0, errors.Wrapf(err, "Failed to query inputs of %v", p)
			}
			if len(curves) == 0 && len(all) != 0 {
				invalid = invalid.With(c)
			}
		}
	}
	return invalid, nil
}
