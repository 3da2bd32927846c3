package memscene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/utils"
)

// Source is upstream end of a connection into node attribute
type Source struct {
	Kind scene.SourceKind
	Name string
}

type Node struct {
	Name   string
	Kind   scene.NodeKind
	Parent string

	// static channel values, used when channel has no curve
	Translate mgl64.Vec3
	Rotate    mgl64.Vec3
	Scale     mgl64.Vec3

	RotateOrder utils.RotateOrder
	RotatePivot mgl64.Vec3

	Locked scene.ChannelSet
	// keyed by attribute name, compound ("rotate") or channel ("rotateX")
	Inputs map[string]Source
}

func NewTransform(name, parent string) Node {
	return Node{
		Name:   name,
		Kind:   scene.KindTransform,
		Parent: parent,
		Scale:  mgl64.Vec3{1, 1, 1},
	}
}

func (n *Node) compound(i int) *mgl64.Vec3 {
	switch i {
	case 0:
		return &n.Translate
	case 1:
		return &n.Rotate
	default:
		return &n.Scale
	}
}

func (n *Node) static(c scene.Channel) float64 {
	return n.compound(c.Compound())[c.Axis()]
}

func (n *Node) setStatic(c scene.Channel, v float64) {
	n.compound(c.Compound())[c.Axis()] = v
}

func (n *Node) input(attr string) (Source, bool) {
	src, ok := n.Inputs[attr]
	return src, ok
}

// curveInput returns curve name driving channel
func (n *Node) curveInput(c scene.Channel) (string, bool) {
	if src, ok := n.Inputs[c.Attr()]; ok && src.Kind == scene.SourceAnimCurve {
		return src.Name, true
	}
	return "", false
}
