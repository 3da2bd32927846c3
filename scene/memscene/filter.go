package memscene

import (
	"log"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"github.com/mogaika/anchor_transform/scene"
	"github.com/mogaika/anchor_transform/utils"
)

func (s *Scene) FilterCurves(filter scene.CurveFilter, curves ...string) error {
	if filter != scene.EulerFilter {
		return errors.Errorf("Unsupported curve filter %q", filter)
	}

	// rotate curves grouped per node, indexed by axis
	groups := make(map[string]*[3]*Curve)
	groupOrder := make([]string, 0)
	for _, name := range curves {
		c, err := s.curve(name)
		if err != nil {
			return err
		}
		ch, ok := scene.ParseChannel(c.Output.Attr)
		if !ok || ch.Compound() != 1 {
			log.Printf("[memscene] euler filter skips %q: drives %v", name, c.Output)
			continue
		}
		g, ok := groups[c.Output.Node]
		if !ok {
			g = new([3]*Curve)
			groups[c.Output.Node] = g
			groupOrder = append(groupOrder, c.Output.Node)
		}
		g[ch.Axis()] = c
	}

	for _, nodeName := range groupOrder {
		n, err := s.node(nodeName)
		if err != nil {
			return err
		}
		s.filterEuler(n, groups[nodeName])
	}
	return nil
}

func (s *Scene) filterEuler(n *Node, group *[3]*Curve) {
	timeSet := make(map[float64]struct{})
	for _, c := range group {
		if c == nil {
			continue
		}
		for _, k := range c.Keys {
			timeSet[k.Time] = struct{}{}
		}
	}
	times := make([]float64, 0, len(timeSet))
	for t := range timeSet {
		times = append(times, t)
	}
	sort.Float64s(times)

	values := make([]mgl64.Vec3, len(times))
	for i, t := range times {
		for axis := 0; axis < 3; axis++ {
			if c := group[axis]; c != nil {
				values[i][axis] = c.Evaluate(t)
			} else {
				values[i][axis] = n.static(scene.ChannelOf(1, axis))
			}
		}
	}
	var filtered []mgl64.Vec3
	if group[0] != nil && group[1] != nil && group[2] != nil {
		filtered = utils.FilterEulerSequence(values, n.RotateOrder)
	} else {
		// flipped solution would need keys on every axis
		filtered = utils.UnwrapEulerSequence(values)
	}

	for axis, c := range group {
		if c == nil {
			continue
		}
		prev := c.clone()
		changed := false
		for i, t := range times {
			if ki := c.find(t); ki >= 0 && c.Keys[ki].Value != filtered[i][axis] {
				c.Keys[ki].Value = filtered[i][axis]
				changed = true
			}
		}
		if changed {
			curve := c
			s.record("filterCurve "+c.Name, func() { curve.Keys = prev.Keys })
		}
	}
}
