// Package scenefile stores memscene scenes as YAML documents.
package scenefile

import (
	"io"
	"os"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
)

type Document struct {
	Time      float64    `yaml:"time"`
	Selection []string   `yaml:"selection,omitempty,flow"`
	Nodes     []NodeDoc  `yaml:"nodes"`
	Curves    []CurveDoc `yaml:"curves,omitempty"`
}

type SourceDoc struct {
	Kind scene.SourceKind `yaml:"kind"`
	Name string           `yaml:"name"`
}

type NodeDoc struct {
	Name        string               `yaml:"name"`
	Kind        scene.NodeKind       `yaml:"kind,omitempty"`
	Parent      string               `yaml:"parent,omitempty"`
	Translate   []float64            `yaml:"translate,omitempty,flow"`
	Rotate      []float64            `yaml:"rotate,omitempty,flow"`
	Scale       []float64            `yaml:"scale,omitempty,flow"`
	RotateOrder utils.RotateOrder    `yaml:"rotateOrder,omitempty"`
	RotatePivot []float64            `yaml:"rotatePivot,omitempty,flow"`
	Locked      []string             `yaml:"locked,omitempty,flow"`
	Connections map[string]SourceDoc `yaml:"connections,omitempty"`
}

type KeyDoc struct {
	Time  float64 `yaml:"t"`
	Value float64 `yaml:"v"`
	In    string  `yaml:"in,omitempty"`
	Out   string  `yaml:"out,omitempty"`
}

type CurveDoc struct {
	Name   string     `yaml:"name"`
	Output scene.Plug `yaml:"output"`
	Keys   []KeyDoc   `yaml:"keys,flow"`
}

func vec(name string, v []float64, def mgl64.Vec3) (mgl64.Vec3, error) {
	if len(v) == 0 {
		return def, nil
	}
	if len(v) != 3 {
		return def, errors.Errorf("%s expects 3 values, got %d", name, len(v))
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

func vecDoc(v mgl64.Vec3) []float64 {
	return []float64{v[0], v[1], v[2]}
}

func (nd *NodeDoc) node() (memscene.Node, error) {
	n := memscene.NewTransform(nd.Name, nd.Parent)
	if nd.Kind != "" {
		n.Kind = nd.Kind
	}
	n.RotateOrder = nd.RotateOrder

	var err error
	if n.Translate, err = vec("translate", nd.Translate, n.Translate); err != nil {
		return n, errors.Wrapf(err, "Node %q", nd.Name)
	}
	if n.Rotate, err = vec("rotate", nd.Rotate, n.Rotate); err != nil {
		return n, errors.Wrapf(err, "Node %q", nd.Name)
	}
	if n.Scale, err = vec("scale", nd.Scale, n.Scale); err != nil {
		return n, errors.Wrapf(err, "Node %q", nd.Name)
	}
	if n.RotatePivot, err = vec("rotatePivot", nd.RotatePivot, n.RotatePivot); err != nil {
		return n, errors.Wrapf(err, "Node %q", nd.Name)
	}

	for _, attr := range nd.Locked {
		c, ok := scene.ParseChannel(attr)
		if !ok {
			return n, errors.Errorf("Node %q locks unknown channel %q", nd.Name, attr)
		}
		n.Locked = n.Locked.With(c)
	}

	n.Inputs = make(map[string]memscene.Source, len(nd.Connections))
	for attr, src := range nd.Connections {
		if src.Kind == scene.SourceAnimCurve {
			return n, errors.Errorf("Node %q: curve connections are declared by curve outputs", nd.Name)
		}
		n.Inputs[attr] = memscene.Source{Kind: src.Kind, Name: src.Name}
	}
	return n, nil
}

// Build creates scene described by document
func (doc *Document) Build() (*memscene.Scene, error) {
	sc := memscene.New()
	for i := range doc.Nodes {
		n, err := doc.Nodes[i].node()
		if err != nil {
			return nil, err
		}
		if _, err := sc.AddNode(n); err != nil {
			return nil, err
		}
	}
	for _, cd := range doc.Curves {
		c := memscene.Curve{Name: cd.Name, Output: cd.Output, Keys: make([]memscene.Key, len(cd.Keys))}
		for i, k := range cd.Keys {
			c.Keys[i] = memscene.Key{Time: k.Time, Value: k.Value, In: k.In, Out: k.Out}
			if c.Keys[i].In == "" {
				c.Keys[i].In = string(scene.TangentLinear)
			}
			if c.Keys[i].Out == "" {
				c.Keys[i].Out = string(scene.TangentLinear)
			}
		}
		if _, err := sc.AddCurve(c); err != nil {
			return nil, errors.Wrapf(err, "Curve %q", cd.Name)
		}
	}
	if err := sc.Select(doc.Selection...); err != nil {
		return nil, errors.Wrapf(err, "Selection")
	}
	sc.SetCurrentTime(doc.Time)
	return sc, nil
}

func NewDocument(sc *memscene.Scene) *Document {
	doc := &Document{Time: sc.CurrentTime()}
	doc.Selection, _ = sc.Selection(false)

	for _, n := range sc.Nodes() {
		nd := NodeDoc{
			Name:        n.Name,
			Kind:        n.Kind,
			Parent:      n.Parent,
			Translate:   vecDoc(n.Translate),
			Rotate:      vecDoc(n.Rotate),
			Scale:       vecDoc(n.Scale),
			RotateOrder: n.RotateOrder,
		}
		if n.RotatePivot != (mgl64.Vec3{}) {
			nd.RotatePivot = vecDoc(n.RotatePivot)
		}
		for _, c := range n.Locked.Channels() {
			nd.Locked = append(nd.Locked, c.Attr())
		}
		for attr, src := range n.Inputs {
			if src.Kind == scene.SourceAnimCurve {
				continue
			}
			if nd.Connections == nil {
				nd.Connections = make(map[string]SourceDoc)
			}
			nd.Connections[attr] = SourceDoc{Kind: src.Kind, Name: src.Name}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}

	for _, c := range sc.Curves() {
		cd := CurveDoc{Name: c.Name, Output: c.Output, Keys: make([]KeyDoc, len(c.Keys))}
		for i, k := range c.Keys {
			cd.Keys[i] = KeyDoc{Time: k.Time, Value: k.Value, In: k.In, Out: k.Out}
		}
		doc.Curves = append(doc.Curves, cd)
	}
	sort.SliceStable(doc.Curves, func(i, j int) bool { return doc.Curves[i].Name < doc.Curves[j].Name })
	return doc
}

func Load(r io.Reader) (*memscene.Scene, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode scene")
	}
	return doc.Build()
}

func Save(w io.Writer, sc *memscene.Scene) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewDocument(sc)); err != nil {
		return errors.Wrapf(err, "Failed to encode scene")
	}
	return enc.Close()
}

func LoadFile(path string) (*memscene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open scene")
	}
	defer f.Close()
	sc, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%q", path)
	}
	return sc, nil
}

func SaveFile(path string, sc *memscene.Scene) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to create scene file")
	}
	defer f.Close()
	return Save(f, sc)
}
