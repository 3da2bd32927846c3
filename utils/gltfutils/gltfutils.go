package gltfutils

import (
	"io"
	"log"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/scene/memscene"
	"github.com/mogaika/anchor_transform/utils"
)

var identityMatrix = [16]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// Timing maps glTF seconds to scene frames: frame = seconds*FPS + StartFrame
type Timing struct {
	FPS        float64
	StartFrame float64
}

func (tm Timing) frame(seconds float32) float64 {
	f := float64(seconds)*tm.FPS + tm.StartFrame
	// float32 seconds lose exact frames
	if r := math.Round(f); math.Abs(f-r) < 1e-3 {
		return r
	}
	return f
}

func (tm Timing) seconds(frame float64) float32 {
	return float32((frame - tm.StartFrame) / tm.FPS)
}

func NewDocument() *gltf.Document {
	return gltf.NewDocument()
}

func Decode(r io.Reader) (*gltf.Document, error) {
	doc := &gltf.Document{}
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, errors.Wrapf(err, "Failed to read gltf")
	}
	return doc, nil
}

func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

// ExportText writes json document, buffers without uri get embedded
func ExportText(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = false
	return encoder.Encode(doc)
}

// readFloats flattens scalar, vec3 or vec4 accessor into float32, normalized
// integer components are mapped to [0, 1] or [-1, 1]
func readFloats(doc *gltf.Document, acr *gltf.Accessor) ([]float32, error) {
	data, err := modeler.ReadAccessor(doc, acr, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read accessor %q", acr.Name)
	}
	if data == nil {
		// no buffer view and no sparse storage: all zeros
		return make([]float32, int(acr.Count*acr.Type.Components())), nil
	}

	switch v := data.(type) {
	case []float32:
		return v, nil
	case [][3]float32:
		out := make([]float32, 0, len(v)*3)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	case [][4]float32:
		out := make([]float32, 0, len(v)*4)
		for _, e := range v {
			out = append(out, e[:]...)
		}
		return out, nil
	}

	if !acr.Normalized {
		return nil, errors.Errorf("Accessor %q has unnormalized integer components", acr.Name)
	}
	var out []float32
	switch v := data.(type) {
	case [][4]uint8:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(c)/math.MaxUint8)
			}
		}
	case [][4]int8:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(math.Max(float64(c)/math.MaxInt8, -1)))
			}
		}
	case [][4]uint16:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(c)/math.MaxUint16)
			}
		}
	case [][4]int16:
		for _, e := range v {
			for _, c := range e {
				out = append(out, float32(math.Max(float64(c)/math.MaxInt16, -1)))
			}
		}
	default:
		return nil, errors.Errorf("Accessor %q has unsupported layout %T", acr.Name, data)
	}
	return out, nil
}

func readVectors(doc *gltf.Document, acr *gltf.Accessor, width int) ([]float32, error) {
	if acr.Type.Components() != uint32(width) {
		return nil, errors.Errorf("Accessor %q has %v elements, expected %d components", acr.Name, acr.Type, width)
	}
	return readFloats(doc, acr)
}

func nodeTRS(node *gltf.Node) (t, rDeg, s mgl64.Vec3) {
	if node.Matrix != identityMatrix && node.Matrix != ([16]float32{}) {
		var m mgl64.Mat4
		for i, v := range node.Matrix {
			m[i] = float64(v)
		}
		return utils.DecomposeTRS(m, utils.RotateXYZ, mgl64.Vec3{})
	}
	r := node.Rotation
	q := mgl64.Quat{W: float64(r[3]), V: mgl64.Vec3{float64(r[0]), float64(r[1]), float64(r[2])}}
	if q.Len() == 0 {
		q = mgl64.QuatIdent()
	}
	s = mgl64.Vec3{float64(node.Scale[0]), float64(node.Scale[1]), float64(node.Scale[2])}
	if s == (mgl64.Vec3{}) {
		s = mgl64.Vec3{1, 1, 1}
	}
	return mgl64.Vec3{float64(node.Translation[0]), float64(node.Translation[1]), float64(node.Translation[2])},
		utils.RadiansToDegreeV3(utils.QuatToEuler(q, utils.RotateXYZ)),
		s
}

// ImportDocument builds scene from glTF node hierarchy and its first
// animation. Rotations become xyz Euler curves in degrees.
func ImportDocument(doc *gltf.Document, tm Timing) (*memscene.Scene, error) {
	if tm.FPS <= 0 {
		return nil, errors.Errorf("Invalid fps %v", tm.FPS)
	}
	sc := memscene.New()
	names := make([]string, len(doc.Nodes))
	namegen := utils.NewNameGenerator(0)

	parents := make([]int, len(doc.Nodes))
	for i := range parents {
		parents[i] = -1
	}
	for i, node := range doc.Nodes {
		for _, child := range node.Children {
			if int(child) >= len(doc.Nodes) {
				return nil, errors.Errorf("Node %d has invalid child %d", i, child)
			}
			parents[child] = i
		}
	}

	var addNode func(i int, parent string) error
	addNode = func(i int, parent string) error {
		if names[i] != "" {
			return errors.Errorf("Node %d has several parents", i)
		}
		node := doc.Nodes[i]
		name := namegen.Unique(node.Name)
		names[i] = name

		n := memscene.NewTransform(name, parent)
		n.Translate, n.Rotate, n.Scale = nodeTRS(node)
		if _, err := sc.AddNode(n); err != nil {
			return errors.Wrapf(err, "Failed to add node %d", i)
		}
		for _, child := range node.Children {
			if err := addNode(int(child), name); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range doc.Nodes {
		if parents[i] < 0 {
			if err := addNode(i, ""); err != nil {
				return nil, err
			}
		}
	}

	if len(doc.Animations) != 0 {
		if len(doc.Animations) > 1 {
			log.Printf("[gltf] Only first of %d animations is imported", len(doc.Animations))
		}
		if err := importAnimation(sc, doc, doc.Animations[0], names, tm); err != nil {
			return nil, errors.Wrapf(err, "Animation %q", doc.Animations[0].Name)
		}
	}
	return sc, nil
}

func Import(r io.Reader, tm Timing) (*memscene.Scene, error) {
	doc, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return ImportDocument(doc, tm)
}

func importAnimation(sc *memscene.Scene, doc *gltf.Document, anim *gltf.Animation, names []string, tm Timing) error {
	for _, channel := range anim.Channels {
		if channel.Sampler == nil || channel.Target.Node == nil {
			continue
		}
		sampler := anim.Samplers[*channel.Sampler]
		nodeName := names[*channel.Target.Node]
		if nodeName == "" || sampler.Input == nil || sampler.Output == nil {
			continue
		}

		input, err := readVectors(doc, doc.Accessors[*sampler.Input], 1)
		if err != nil {
			return err
		}
		outAcr := doc.Accessors[*sampler.Output]

		var compound int
		var values []mgl64.Vec3
		switch channel.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			compound = 0
			if channel.Target.Path == gltf.TRSScale {
				compound = 2
			}
			vecs, err := readVectors(doc, outAcr, 3)
			if err != nil {
				return errors.Wrapf(err, "Failed to read %v of %q", channel.Target.Path, nodeName)
			}
			values = make([]mgl64.Vec3, len(vecs)/3)
			for i := range values {
				values[i] = mgl64.Vec3{float64(vecs[i*3]), float64(vecs[i*3+1]), float64(vecs[i*3+2])}
			}
		case gltf.TRSRotation:
			compound = 1
			quats, err := readVectors(doc, outAcr, 4)
			if err != nil {
				return errors.Wrapf(err, "Failed to read rotation of %q", nodeName)
			}
			values = make([]mgl64.Vec3, len(quats)/4)
			for i := range values {
				q := mgl64.Quat{W: float64(quats[i*4+3]), V: mgl64.Vec3{float64(quats[i*4]), float64(quats[i*4+1]), float64(quats[i*4+2])}}
				values[i] = utils.RadiansToDegreeV3(utils.QuatToEuler(q, utils.RotateXYZ))
			}
		default:
			log.Printf("[gltf] Skipping %v animation of %q", channel.Target.Path, nodeName)
			continue
		}

		tangent := scene.TangentLinear
		switch sampler.Interpolation {
		case gltf.InterpolationStep:
			tangent = scene.TangentStep
		case gltf.InterpolationCubicSpline:
			// in-tangent, value, out-tangent per key
			tangent = scene.TangentSpline
			if len(values) != 3*len(input) {
				return errors.Errorf("Cubic spline of %q has %d values for %d keys", nodeName, len(values), len(input))
			}
			keyed := make([]mgl64.Vec3, len(input))
			for i := range keyed {
				keyed[i] = values[i*3+1]
			}
			values = keyed
		}
		if len(values) != len(input) {
			return errors.Errorf("Animation of %q has %d values for %d keys", nodeName, len(values), len(input))
		}
		if compound == 1 {
			values = utils.FilterEulerSequence(values, utils.RotateXYZ)
		}

		in, out := tangent, tangent
		if tangent == scene.TangentStep {
			in = scene.TangentLinear
		}
		for axis := 0; axis < 3; axis++ {
			c := scene.ChannelOf(compound, axis)
			curve := memscene.Curve{Name: nodeName + "_" + c.Attr(), Output: c.Plug(nodeName)}
			for i, t := range input {
				curve.Keys = append(curve.Keys, memscene.Key{
					Time:  tm.frame(t),
					Value: values[i][axis],
					In:    string(in),
					Out:   string(out),
				})
			}
			if _, err := sc.AddCurve(curve); err != nil {
				return err
			}
		}
	}
	return nil
}

func float32v(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

func quat32(q mgl64.Quat) [4]float32 {
	return [4]float32{float32(q.V[0]), float32(q.V[1]), float32(q.V[2]), float32(q.W)}
}

// localTRS folds rotate order and pivot into plain TRS glTF understands
func localTRS(sc *memscene.Scene, n *memscene.Node, t float64) ([3]float32, [4]float32, [3]float32) {
	tr, rDeg, s := utils.DecomposeTRS(sc.LocalMatrix(n, t), utils.RotateXYZ, mgl64.Vec3{})
	q := utils.EulerToQuat(utils.DegreeToRadiansV3(rDeg), utils.RotateXYZ)
	return float32v(tr), quat32(q), float32v(s)
}

func isAnimated(n *memscene.Node) bool {
	for _, src := range n.Inputs {
		if src.Kind == scene.SourceAnimCurve {
			return true
		}
	}
	return false
}

// ExportDocument writes transform hierarchy posed at current time and bakes
// every animated node over [start, end] into one animation.
func ExportDocument(sc *memscene.Scene, tm Timing, start, end int) (*gltf.Document, error) {
	if tm.FPS <= 0 {
		return nil, errors.Errorf("Invalid fps %v", tm.FPS)
	}
	doc := NewDocument()
	indices := make(map[string]uint32)
	animated := make([]*memscene.Node, 0)

	for _, n := range sc.Nodes() {
		if !n.Kind.IsTransform() {
			continue
		}
		parent, hasParent := indices[n.Parent]
		if n.Parent != "" && !hasParent {
			continue
		}
		tr, r, s := localTRS(sc, n, sc.CurrentTime())
		index := uint32(len(doc.Nodes))
		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name:        n.Name,
			Matrix:      identityMatrix,
			Translation: tr,
			Rotation:    r,
			Scale:       s,
		})
		indices[n.Name] = index
		if hasParent {
			doc.Nodes[parent].Children = append(doc.Nodes[parent].Children, index)
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, index)
		}
		if isAnimated(n) {
			animated = append(animated, n)
		}
	}

	if len(animated) == 0 || start >= end {
		return doc, nil
	}

	times := make([]float32, 0, end-start+1)
	for f := start; f <= end; f++ {
		times = append(times, tm.seconds(float64(f)))
	}
	input := modeler.WriteAccessor(doc, gltf.TargetNone, times)
	doc.Accessors[input].Min = []float32{times[0]}
	doc.Accessors[input].Max = []float32{times[len(times)-1]}

	anim := &gltf.Animation{Name: "anchored"}
	for _, n := range animated {
		translations := make([][3]float32, 0, len(times))
		rotations := make([][4]float32, 0, len(times))
		scales := make([][3]float32, 0, len(times))
		for f := start; f <= end; f++ {
			tr, r, s := localTRS(sc, n, float64(f))
			// keep quaternion hemisphere continuous
			if k := len(rotations); k != 0 {
				p := rotations[k-1]
				if p[0]*r[0]+p[1]*r[1]+p[2]*r[2]+p[3]*r[3] < 0 {
					r = [4]float32{-r[0], -r[1], -r[2], -r[3]}
				}
			}
			translations = append(translations, tr)
			rotations = append(rotations, r)
			scales = append(scales, s)
		}

		node := indices[n.Name]
		for _, track := range []struct {
			path gltf.TRSProperty
			data interface{}
		}{
			{gltf.TRSTranslation, translations},
			{gltf.TRSRotation, rotations},
			{gltf.TRSScale, scales},
		} {
			output := modeler.WriteAccessor(doc, gltf.TargetNone, track.data)
			anim.Samplers = append(anim.Samplers, &gltf.AnimationSampler{
				Input:         gltf.Index(input),
				Output:        gltf.Index(output),
				Interpolation: gltf.InterpolationLinear,
			})
			anim.Channels = append(anim.Channels, &gltf.Channel{
				Sampler: gltf.Index(uint32(len(anim.Samplers) - 1)),
				Target: gltf.ChannelTarget{
					Node: gltf.Index(node),
					Path: track.path,
				},
			})
		}
	}
	doc.Animations = append(doc.Animations, anim)
	log.Printf("[gltf] Baked %d nodes over [%d, %d]", len(animated), start, end)
	return doc, nil
}
