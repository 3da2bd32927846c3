// Package memscene is in-memory scene graph implementing scene.Host.
// It is not safe for concurrent use.
package memscene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/utils"
)

const timeEpsilon = 1e-6

type Scene struct {
	nodes      map[string]*Node
	order      []string
	curves     map[string]*Curve
	curveOrder []string
	selection  []string
	time       float64

	undo undoStack
}

var _ scene.Host = (*Scene)(nil)
var _ scene.Undoer = (*Scene)(nil)

func New() *Scene {
	return &Scene{
		nodes:  make(map[string]*Node),
		curves: make(map[string]*Curve),
		time:   1,
	}
}

func normName(name string) string {
	return norm.NFC.String(name)
}

func (s *Scene) node(name string) (*Node, error) {
	if n, ok := s.nodes[normName(name)]; ok {
		return n, nil
	}
	return nil, errors.Wrapf(scene.ErrNodeNotFound, "%q", name)
}

func (s *Scene) Node(name string) (*Node, bool) {
	n, ok := s.nodes[normName(name)]
	return n, ok
}

// Nodes returns nodes in insertion order, parents before children
func (s *Scene) Nodes() []*Node {
	result := make([]*Node, len(s.order))
	for i, name := range s.order {
		result[i] = s.nodes[name]
	}
	return result
}

func (s *Scene) Children(name string) []string {
	name = normName(name)
	result := make([]string, 0)
	for _, child := range s.order {
		if s.nodes[child].Parent == name {
			result = append(result, child)
		}
	}
	return result
}

// AddNode stores copy of n. Parent must already exist.
func (s *Scene) AddNode(n Node) (*Node, error) {
	n.Name = normName(n.Name)
	n.Parent = normName(n.Parent)
	if n.Name == "" {
		return nil, errors.New("Node name is empty")
	}
	if _, exists := s.nodes[n.Name]; exists {
		return nil, errors.Errorf("Node %q already exists", n.Name)
	}
	if n.Parent != "" {
		if _, err := s.node(n.Parent); err != nil {
			return nil, errors.Wrapf(err, "Parent of %q", n.Name)
		}
	}
	if n.Kind == "" {
		n.Kind = scene.KindTransform
	}
	if !n.RotateOrder.Valid() {
		return nil, errors.Errorf("Node %q has invalid rotate order %d", n.Name, n.RotateOrder)
	}
	inputs := make(map[string]Source, len(n.Inputs))
	for attr, src := range n.Inputs {
		inputs[attr] = src
	}
	n.Inputs = inputs

	node := &n
	s.nodes[n.Name] = node
	s.order = append(s.order, n.Name)
	return node, nil
}

// AddCurve stores curve and connects it into its output plug
func (s *Scene) AddCurve(c Curve) (*Curve, error) {
	if c.Name == "" {
		return nil, errors.New("Curve name is empty")
	}
	if _, exists := s.curves[c.Name]; exists {
		return nil, errors.Errorf("Curve %q already exists", c.Name)
	}
	curve := c.clone()
	curve.sort()
	if curve.Output.Node != "" {
		if err := s.Connect(Source{Kind: scene.SourceAnimCurve, Name: curve.Name}, curve.Output); err != nil {
			return nil, err
		}
		curve.Output.Node = normName(curve.Output.Node)
	}
	s.curves[curve.Name] = curve
	s.curveOrder = append(s.curveOrder, curve.Name)
	return curve, nil
}

func (s *Scene) Curve(name string) (*Curve, bool) {
	c, ok := s.curves[name]
	return c, ok
}

func (s *Scene) Curves() []*Curve {
	result := make([]*Curve, 0, len(s.curveOrder))
	for _, name := range s.curveOrder {
		if c, ok := s.curves[name]; ok {
			result = append(result, c)
		}
	}
	return result
}

func (s *Scene) uniqueCurveName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, exists := s.curves[name]; !exists {
			return name
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
}

func isTransformAttr(attr string) bool {
	if _, ok := scene.ParseChannel(attr); ok {
		return true
	}
	for _, c := range scene.Compounds {
		if c == attr {
			return true
		}
	}
	return false
}

func (s *Scene) Connect(src Source, dst scene.Plug) error {
	n, err := s.node(dst.Node)
	if err != nil {
		return err
	}
	if !isTransformAttr(dst.Attr) {
		return errors.Wrapf(scene.ErrUnknownAttribute, "%v", dst)
	}
	n.Inputs[dst.Attr] = src
	return nil
}

func (s *Scene) Disconnect(dst scene.Plug) error {
	n, err := s.node(dst.Node)
	if err != nil {
		return err
	}
	delete(n.Inputs, dst.Attr)
	return nil
}

func (s *Scene) Lock(p scene.Plug, locked bool) error {
	n, err := s.node(p.Node)
	if err != nil {
		return err
	}
	c, ok := scene.ParseChannel(p.Attr)
	if !ok {
		return errors.Wrapf(scene.ErrUnknownAttribute, "%v is not a channel", p)
	}
	if locked {
		n.Locked = n.Locked.With(c)
	} else {
		n.Locked &^= 1 << c
	}
	return nil
}

func (s *Scene) Select(names ...string) error {
	selection := make([]string, 0, len(names))
	for _, name := range names {
		n, err := s.node(name)
		if err != nil {
			return err
		}
		selection = append(selection, n.Name)
	}
	s.selection = selection
	return nil
}

func (s *Scene) Selection(transformsOnly bool) ([]string, error) {
	result := make([]string, 0, len(s.selection))
	for _, name := range s.selection {
		n, ok := s.nodes[name]
		if !ok {
			continue
		}
		if transformsOnly && !n.Kind.IsTransform() {
			continue
		}
		result = append(result, name)
	}
	return result, nil
}

func (s *Scene) CurrentTime() float64 {
	return s.time
}

func (s *Scene) SetCurrentTime(t float64) {
	s.time = t
}

// ChannelValue evaluates channel at t from its curve or static value
func (s *Scene) ChannelValue(n *Node, c scene.Channel, t float64) float64 {
	if name, ok := n.curveInput(c); ok {
		if curve, ok := s.curves[name]; ok && len(curve.Keys) != 0 {
			return curve.Evaluate(t)
		}
	}
	return n.static(c)
}

func (s *Scene) channelValues(n *Node, compound int, t float64) mgl64.Vec3 {
	var v mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		v[axis] = s.ChannelValue(n, scene.ChannelOf(compound, axis), t)
	}
	return v
}

func (s *Scene) LocalMatrix(n *Node, t float64) mgl64.Mat4 {
	return utils.ComposeTRS(
		s.channelValues(n, 0, t),
		s.channelValues(n, 1, t),
		s.channelValues(n, 2, t),
		n.RotatePivot, n.RotateOrder)
}

func (s *Scene) worldMatrix(n *Node, t float64) mgl64.Mat4 {
	m := s.LocalMatrix(n, t)
	for parent := n.Parent; parent != ""; {
		p := s.nodes[parent]
		m = s.LocalMatrix(p, t).Mul4(m)
		parent = p.Parent
	}
	return m
}

func (s *Scene) parentMatrix(n *Node, t float64) mgl64.Mat4 {
	if n.Parent == "" {
		return mgl64.Ident4()
	}
	return s.worldMatrix(s.nodes[n.Parent], t)
}

func (s *Scene) Matrix(name string, kind scene.MatrixKind, t float64) (mgl64.Mat4, error) {
	n, err := s.node(name)
	if err != nil {
		return mgl64.Mat4{}, err
	}
	switch kind {
	case scene.WorldMatrix:
		return s.worldMatrix(n, t), nil
	case scene.WorldInverseMatrix:
		return s.worldMatrix(n, t).Inv(), nil
	case scene.ParentInverseMatrix:
		return s.parentMatrix(n, t).Inv(), nil
	}
	return mgl64.Mat4{}, errors.Wrapf(scene.ErrUnknownAttribute, "%s.%s", name, kind)
}

func compoundIndex(attr string) int {
	for i, c := range scene.Compounds {
		if c == attr {
			return i
		}
	}
	return -1
}

func (s *Scene) GetAttr(p scene.Plug, t float64) ([]float64, error) {
	n, err := s.node(p.Node)
	if err != nil {
		return nil, err
	}
	if c, ok := scene.ParseChannel(p.Attr); ok {
		return []float64{s.ChannelValue(n, c, t)}, nil
	}
	if i := compoundIndex(p.Attr); i >= 0 {
		v := s.channelValues(n, i, t)
		return v[:], nil
	}
	switch p.Attr {
	case scene.AttrRotateOrder:
		return []float64{float64(n.RotateOrder)}, nil
	case scene.AttrRotatePivot:
		pivot := n.RotatePivot
		return pivot[:], nil
	}
	return nil, errors.Wrapf(scene.ErrUnknownAttribute, "%v", p)
}

func (s *Scene) checkWritable(n *Node, c scene.Channel) error {
	p := c.Plug(n.Name)
	if n.Locked.Has(c) {
		return errors.Wrapf(scene.ErrLocked, "%v", p)
	}
	if src, ok := n.input(c.CompoundAttr()); ok {
		return errors.Wrapf(scene.ErrConnected, "%v from %q", p, src.Name)
	}
	return nil
}

func (s *Scene) SetAttr(p scene.Plug, values ...float64) error {
	n, err := s.node(p.Node)
	if err != nil {
		return err
	}

	channels := make([]scene.Channel, 0, 3)
	if c, ok := scene.ParseChannel(p.Attr); ok {
		channels = append(channels, c)
	} else if i := compoundIndex(p.Attr); i >= 0 {
		for axis := 0; axis < 3; axis++ {
			channels = append(channels, scene.ChannelOf(i, axis))
		}
	}

	prev := *n
	revert := func() {
		n.Translate, n.Rotate, n.Scale = prev.Translate, prev.Rotate, prev.Scale
		n.RotateOrder, n.RotatePivot = prev.RotateOrder, prev.RotatePivot
	}

	switch {
	case len(channels) != 0:
		if len(values) != len(channels) {
			return errors.Errorf("%v expects %d values, got %d", p, len(channels), len(values))
		}
		for _, c := range channels {
			if err := s.checkWritable(n, c); err != nil {
				return err
			}
			if src, ok := n.input(c.Attr()); ok {
				return errors.Wrapf(scene.ErrConnected, "%v from %q", p, src.Name)
			}
		}
		for i, c := range channels {
			n.setStatic(c, values[i])
		}
	case p.Attr == scene.AttrRotateOrder:
		if len(values) != 1 || !utils.RotateOrder(values[0]).Valid() {
			return errors.Errorf("Invalid rotate order %v", values)
		}
		n.RotateOrder = utils.RotateOrder(values[0])
	case p.Attr == scene.AttrRotatePivot:
		if len(values) != 3 {
			return errors.Errorf("%v expects 3 values, got %d", p, len(values))
		}
		n.RotatePivot = mgl64.Vec3{values[0], values[1], values[2]}
	default:
		return errors.Wrapf(scene.ErrUnknownAttribute, "%v", p)
	}

	s.record("setAttr "+p.String(), revert)
	return nil
}

func (s *Scene) IsLocked(p scene.Plug) (bool, error) {
	n, err := s.node(p.Node)
	if err != nil {
		return false, err
	}
	if c, ok := scene.ParseChannel(p.Attr); ok {
		return n.Locked.Has(c), nil
	}
	if i := compoundIndex(p.Attr); i >= 0 {
		all := scene.ChannelSet(0).WithCompound(i)
		return n.Locked&all == all, nil
	}
	return false, nil
}

func (s *Scene) Inputs(p scene.Plug, kind scene.SourceKind) ([]string, error) {
	n, err := s.node(p.Node)
	if err != nil {
		return nil, err
	}
	src, ok := n.input(p.Attr)
	if !ok || (kind != scene.SourceAny && src.Kind != kind) {
		return nil, nil
	}
	return []string{src.Name}, nil
}

func (s *Scene) SetKeyframe(p scene.Plug, t float64, value float64, tangents scene.Tangents) error {
	n, err := s.node(p.Node)
	if err != nil {
		return err
	}
	c, ok := scene.ParseChannel(p.Attr)
	if !ok {
		return errors.Wrapf(scene.ErrUnknownAttribute, "%v is not keyable", p)
	}
	if err := s.checkWritable(n, c); err != nil {
		return err
	}
	if src, ok := n.input(c.Attr()); ok && src.Kind != scene.SourceAnimCurve {
		return errors.Wrapf(scene.ErrConnected, "%v from %s %q", p, src.Kind, src.Name)
	}

	key := Key{Time: t, Value: value, In: string(tangents.In), Out: string(tangents.Out)}

	if name, ok := n.curveInput(c); ok {
		if curve, ok := s.curves[name]; ok {
			prev := curve.clone()
			curve.SetKey(key)
			s.record("setKeyframe "+p.String(), func() { curve.Keys = prev.Keys })
			return nil
		}
	}

	curve := &Curve{
		Name:   s.uniqueCurveName(n.Name + "_" + c.Attr()),
		Output: c.Plug(n.Name),
		Keys:   []Key{key},
	}
	prevInput, hadInput := n.input(c.Attr())
	s.curves[curve.Name] = curve
	s.curveOrder = append(s.curveOrder, curve.Name)
	n.Inputs[c.Attr()] = Source{Kind: scene.SourceAnimCurve, Name: curve.Name}

	s.record("setKeyframe "+p.String(), func() {
		delete(s.curves, curve.Name)
		for i, name := range s.curveOrder {
			if name == curve.Name {
				s.curveOrder = append(s.curveOrder[:i], s.curveOrder[i+1:]...)
				break
			}
		}
		if hadInput {
			n.Inputs[c.Attr()] = prevInput
		} else {
			delete(n.Inputs, c.Attr())
		}
	})
	return nil
}

func (s *Scene) curve(name string) (*Curve, error) {
	if c, ok := s.curves[name]; ok {
		return c, nil
	}
	return nil, errors.Wrapf(scene.ErrCurveNotFound, "%q", name)
}

func (s *Scene) KeyTimes(name string) ([]float64, error) {
	c, err := s.curve(name)
	if err != nil {
		return nil, err
	}
	return c.Times(), nil
}

func (s *Scene) KeyTangents(name string, t float64) (string, string, error) {
	c, err := s.curve(name)
	if err != nil {
		return "", "", err
	}
	i := c.find(t)
	if i < 0 {
		return "", "", errors.Errorf("Curve %q has no key at %v", name, t)
	}
	return c.Keys[i].In, c.Keys[i].Out, nil
}
