package memscene

import (
	"math"
	"sort"

	"github.com/mogaika/anchor_transform/scene"
)

type Key struct {
	Time  float64
	Value float64
	In    string
	Out   string
}

// Curve is time to value animation curve driving one plug
type Curve struct {
	Name   string
	Output scene.Plug
	Keys   []Key
}

func (c *Curve) clone() *Curve {
	cc := *c
	cc.Keys = append([]Key(nil), c.Keys...)
	return &cc
}

func (c *Curve) sort() {
	sort.SliceStable(c.Keys, func(i, j int) bool { return c.Keys[i].Time < c.Keys[j].Time })
}

// find returns index of key at t or -1
func (c *Curve) find(t float64) int {
	i := sort.Search(len(c.Keys), func(i int) bool { return c.Keys[i].Time >= t-timeEpsilon })
	if i < len(c.Keys) && math.Abs(c.Keys[i].Time-t) <= timeEpsilon {
		return i
	}
	return -1
}

// SetKey inserts key or replaces key at same time
func (c *Curve) SetKey(k Key) {
	if i := c.find(k.Time); i >= 0 {
		c.Keys[i] = k
		return
	}
	c.Keys = append(c.Keys, k)
	c.sort()
}

func (c *Curve) Times() []float64 {
	times := make([]float64, len(c.Keys))
	for i, k := range c.Keys {
		times[i] = k.Time
	}
	return times
}

func (c *Curve) isExtremum(i int) bool {
	if i == 0 || i == len(c.Keys)-1 {
		return true
	}
	prev, cur, next := c.Keys[i-1].Value, c.Keys[i].Value, c.Keys[i+1].Value
	return (cur >= prev && cur >= next) || (cur <= prev && cur <= next)
}

// slope of key i on one side, in value per frame
func (c *Curve) slope(i int, tangent string, outgoing bool) float64 {
	k := c.Keys[i]
	switch scene.TangentType(tangent) {
	case scene.TangentFlat:
		return 0
	case scene.TangentLinear:
		if outgoing && i+1 < len(c.Keys) {
			n := c.Keys[i+1]
			return (n.Value - k.Value) / (n.Time - k.Time)
		}
		if !outgoing && i > 0 {
			p := c.Keys[i-1]
			return (k.Value - p.Value) / (k.Time - p.Time)
		}
		return 0
	case scene.TangentClamped, scene.TangentAuto, scene.TangentPlateau:
		if c.isExtremum(i) {
			return 0
		}
	}

	// spline family uses neighbour secant
	lo, hi := i, i
	if i > 0 {
		lo = i - 1
	}
	if i+1 < len(c.Keys) {
		hi = i + 1
	}
	if lo == hi {
		return 0
	}
	s := (c.Keys[hi].Value - c.Keys[lo].Value) / (c.Keys[hi].Time - c.Keys[lo].Time)
	switch scene.TangentType(tangent) {
	case scene.TangentFast:
		s *= 1.5
	case scene.TangentSlow:
		s *= 0.5
	}
	return s
}

// Evaluate samples curve at t with constant extrapolation
func (c *Curve) Evaluate(t float64) float64 {
	n := len(c.Keys)
	if n == 0 {
		return 0
	}
	if t <= c.Keys[0].Time {
		return c.Keys[0].Value
	}
	if t >= c.Keys[n-1].Time {
		return c.Keys[n-1].Value
	}

	i := sort.Search(n, func(i int) bool { return c.Keys[i].Time > t }) - 1
	k0, k1 := c.Keys[i], c.Keys[i+1]
	dt := k1.Time - k0.Time
	u := (t - k0.Time) / dt

	switch scene.TangentType(k0.Out) {
	case scene.TangentStep:
		return k0.Value
	case scene.TangentStepNext:
		return k1.Value
	}
	if scene.TangentType(k0.Out) == scene.TangentLinear && scene.TangentType(k1.In) == scene.TangentLinear {
		return k0.Value + (k1.Value-k0.Value)*u
	}

	m0 := c.slope(i, k0.Out, true) * dt
	m1 := c.slope(i+1, k1.In, false) * dt
	u2 := u * u
	u3 := u2 * u
	return (2*u3-3*u2+1)*k0.Value + (u3-2*u2+u)*m0 + (-2*u3+3*u2)*k1.Value + (u3-u2)*m1
}
