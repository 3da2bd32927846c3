package scene

import (
	"strings"

	"github.com/pkg/errors"
)

// Plug addresses one attribute of a node, printed as "node.attr".
type Plug struct {
	Node string
	Attr string
}

func (p Plug) String() string {
	return p.Node + "." + p.Attr
}

func ParsePlug(s string) (Plug, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Plug{}, errors.Errorf("Invalid plug %q", s)
	}
	return Plug{Node: s[:i], Attr: s[i+1:]}, nil
}

func (p Plug) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Plug) UnmarshalText(text []byte) error {
	v, err := ParsePlug(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Compound transform attributes, each holding three channels
const (
	AttrTranslate   = "translate"
	AttrRotate      = "rotate"
	AttrScale       = "scale"
	AttrRotateOrder = "rotateOrder"
	AttrRotatePivot = "rotatePivot"
)

var Compounds = [...]string{AttrTranslate, AttrRotate, AttrScale}

var axisNames = [...]string{"X", "Y", "Z"}

// Channel is one of nine keyable scalar transform channels
type Channel uint8

const (
	TranslateX Channel = iota
	TranslateY
	TranslateZ
	RotateX
	RotateY
	RotateZ
	ScaleX
	ScaleY
	ScaleZ

	NumChannels
)

func ChannelOf(compound int, axis int) Channel {
	return Channel(compound*3 + axis)
}

func (c Channel) Valid() bool { return c < NumChannels }

// Compound returns index into Compounds
func (c Channel) Compound() int { return int(c) / 3 }
func (c Channel) Axis() int     { return int(c) % 3 }

func (c Channel) CompoundAttr() string {
	return Compounds[c.Compound()]
}

func (c Channel) Attr() string {
	return Compounds[c.Compound()] + axisNames[c.Axis()]
}

func (c Channel) String() string {
	if !c.Valid() {
		return "invalid"
	}
	return c.Attr()
}

func (c Channel) Plug(node string) Plug {
	return Plug{Node: node, Attr: c.Attr()}
}

func ParseChannel(attr string) (Channel, bool) {
	for c := Channel(0); c < NumChannels; c++ {
		if c.Attr() == attr {
			return c, true
		}
	}
	return 0, false
}

// ChannelSet is bitmask of channels
type ChannelSet uint16

func (s ChannelSet) Has(c Channel) bool { return s&(1<<c) != 0 }

func (s ChannelSet) With(c Channel) ChannelSet { return s | 1<<c }

func (s ChannelSet) WithCompound(compound int) ChannelSet {
	for axis := 0; axis < 3; axis++ {
		s = s.With(ChannelOf(compound, axis))
	}
	return s
}

func (s ChannelSet) Len() int {
	n := 0
	for c := Channel(0); c < NumChannels; c++ {
		if s.Has(c) {
			n++
		}
	}
	return n
}

func (s ChannelSet) Channels() []Channel {
	result := make([]Channel, 0, s.Len())
	for c := Channel(0); c < NumChannels; c++ {
		if s.Has(c) {
			result = append(result, c)
		}
	}
	return result
}

func (s ChannelSet) Plugs(node string) []Plug {
	result := make([]Plug, 0, s.Len())
	for _, c := range s.Channels() {
		result = append(result, c.Plug(node))
	}
	return result
}

func (s ChannelSet) String() string {
	names := make([]string, 0, s.Len())
	for _, c := range s.Channels() {
		names = append(names, c.Attr())
	}
	return "[" + strings.Join(names, " ") + "]"
}
