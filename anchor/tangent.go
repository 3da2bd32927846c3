package anchor

import (
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
)

// boundaryTangents are tangent types the range edges inherit from keys
// that existed on the curve before anchoring started
type boundaryTangents struct {
	startIn scene.TangentType
	endOut  scene.TangentType
}

type tangentHost interface {
	scene.ConnectionQuerier
	scene.CurveReader
}

// snapshotTangents reads neighbour keys of the range edges. Key right after
// start donates its in tangent, key right before end donates its out tangent.
// Unknown or missing types fall back to linear.
func snapshotTangents(host tangentHost, node string, start, end float64) (map[scene.Channel]boundaryTangents, error) {
	result := make(map[scene.Channel]boundaryTangents)
	for c := scene.Channel(0); c < scene.NumChannels; c++ {
		p := c.Plug(node)
		curves, err := host.Inputs(p, scene.SourceAnimCurve)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to query curves of %v", p)
		}
		if len(curves) == 0 {
			continue
		}
		curve := curves[0]

		times, err := host.KeyTimes(curve)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read key times of %q", curve)
		}

		bt := boundaryTangents{startIn: scene.TangentLinear, endOut: scene.TangentLinear}

		after, before := -1, -1
		for i, t := range times {
			if t > start && (after < 0 || t < times[after]) {
				after = i
			}
			if t < end && (before < 0 || t > times[before]) {
				before = i
			}
		}

		if after >= 0 {
			in, _, err := host.KeyTangents(curve, times[after])
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read tangents of %q", curve)
			}
			if tt, ok := scene.ParseTangentType(in); ok {
				bt.startIn = tt
			}
		}
		if before >= 0 {
			_, out, err := host.KeyTangents(curve, times[before])
			if err != nil {
				return nil, errors.Wrapf(err, "Failed to read tangents of %q", curve)
			}
			if tt, ok := scene.ParseTangentType(out); ok {
				bt.endOut = tt
			}
		}
		result[c] = bt
	}
	return result, nil
}

// tangentsAt picks tangent pair for key at frame
func tangentsAt(snapshot map[scene.Channel]boundaryTangents, c scene.Channel, frame, start, end int) scene.Tangents {
	tangents := scene.DefaultTangents()
	bt, ok := snapshot[c]
	if !ok {
		return tangents
	}
	if frame == start {
		tangents.In = bt.startIn
	}
	if frame == end {
		tangents.Out = bt.endOut
	}
	return tangents
}
