// Package anchor keys per-frame local transform channels so a node keeps its
// start-frame pose fixed in world space or relative to a driver node.
package anchor

import (
	"log"

	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/utils"
)

// ProgressFunc is notified after every keyed frame
type ProgressFunc func(node string, frame, start, end int)

type Solver struct {
	host    scene.Host
	sampler *Sampler

	Progress ProgressFunc
	Debug    bool
}

func NewSolver(host scene.Host) *Solver {
	return &Solver{host: host, sampler: NewSampler(host)}
}

func (s *Solver) Sampler() *Sampler { return s.sampler }

// Report describes keys written for one node
type Report struct {
	Node    string
	Driver  string
	Start   int
	End     int
	Skipped scene.ChannelSet
	Keys    int
	Curves  []string
}

// AnchorTransform keys target node over [start, end] inclusive so its world
// pose at start stays fixed, or fixed relative to driver when driver is set.
// All keys of the call form one undo step.
func (s *Solver) AnchorTransform(node, driver string, start, end int) (report *Report, err error) {
	if err := CheckRange(start, end); err != nil {
		return nil, err
	}

	chunk, err := OpenUndoChunk(s.host, "anchorTransform "+node)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := chunk.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	report = &Report{Node: node, Driver: driver, Start: start, End: end}

	order, err := s.sampler.RotateOrder(node)
	if err != nil {
		return nil, err
	}

	driverInvStart, err := s.sampler.MatrixAt(driver, float64(start), scene.WorldInverseMatrix)
	if err != nil {
		return nil, err
	}
	anchorPose, err := s.sampler.MatrixAt(node, float64(start), scene.WorldMatrix)
	if err != nil {
		return nil, err
	}

	invalid, err := s.sampler.InvalidChannels(node)
	if err != nil {
		return nil, err
	}
	report.Skipped = invalid
	if invalid.Len() != 0 {
		log.Printf("[anchor] %q skips channels %v", node, invalid)
	}

	tangents, err := snapshotTangents(s.host, node, float64(start), float64(end))
	if err != nil {
		return nil, err
	}

	for frame := start; frame <= end; frame++ {
		t := float64(frame)

		parentInv, err := s.sampler.MatrixAt(node, t, scene.ParentInverseMatrix)
		if err != nil {
			return nil, err
		}
		// driver motion since start carries anchored pose along
		world := anchorPose.Matrix
		if driver != "" {
			driverWorld, err := s.sampler.MatrixAt(driver, t, scene.WorldMatrix)
			if err != nil {
				return nil, err
			}
			world = driverWorld.Matrix.Mul4(driverInvStart.Matrix).Mul4(world)
		}
		local := parentInv.Matrix.Mul4(world)

		pivot, err := s.sampler.RotatePivot(node, t)
		if err != nil {
			return nil, err
		}
		tr := Decompose(local, order, pivot)
		if s.Debug {
			utils.LogDump(node, frame, tr)
		}

		for c := scene.Channel(0); c < scene.NumChannels; c++ {
			if invalid.Has(c) {
				continue
			}
			p := c.Plug(node)
			if err := s.host.SetKeyframe(p, t, tr.Channel(c), tangentsAt(tangents, c, frame, start, end)); err != nil {
				return nil, errors.Wrapf(err, "Failed to key %v at %d", p, frame)
			}
			report.Keys++
		}

		if s.Progress != nil {
			s.Progress(node, frame, start, end)
		}
	}

	curves, err := s.rotateCurves(node)
	if err != nil {
		return nil, err
	}
	if len(curves) != 0 {
		if err := s.host.FilterCurves(scene.EulerFilter, curves...); err != nil {
			return nil, errors.Wrapf(err, "Failed to filter rotation of %q", node)
		}
	}

	for c := scene.Channel(0); c < scene.NumChannels; c++ {
		names, err := s.host.Inputs(c.Plug(node), scene.SourceAnimCurve)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to query curves of %q", node)
		}
		report.Curves = append(report.Curves, names...)
	}

	log.Printf("[anchor] %q anchored over [%d, %d] driver %q: %d keys", node, start, end, driver, report.Keys)
	return report, nil
}

func (s *Solver) rotateCurves(node string) ([]string, error) {
	curves := make([]string, 0, 3)
	for axis := 0; axis < 3; axis++ {
		p := scene.ChannelOf(1, axis).Plug(node)
		names, err := s.host.Inputs(p, scene.SourceAnimCurve)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to query curves of %v", p)
		}
		curves = append(curves, names...)
	}
	return curves, nil
}
