// Package scene describes the capabilities anchoring needs from a host
// animation system: sampling matrices, reading and keying channels, querying
// connections and curves, filtering curves and grouping undo.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrCurveNotFound    = errors.New("animation curve not found")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrLocked           = errors.New("attribute is locked")
	ErrConnected        = errors.New("attribute is driven by a connection")
	ErrNoUndoChunk      = errors.New("no open undo chunk")
)

// MatrixKind names matrix attribute and the space pose was sampled in
type MatrixKind string

const (
	WorldMatrix         MatrixKind = "worldMatrix"
	WorldInverseMatrix  MatrixKind = "worldInverseMatrix"
	ParentInverseMatrix MatrixKind = "parentInverseMatrix"
)

// Pose is immutable matrix snapshot tagged with its space.
// Matrices use column vectors, world = parentWorld * local.
type Pose struct {
	Matrix mgl64.Mat4
	Space  MatrixKind
}

func IdentityPose(kind MatrixKind) Pose {
	return Pose{Matrix: mgl64.Ident4(), Space: kind}
}

// SourceKind filters incoming connections
type SourceKind string

const (
	SourceAny        SourceKind = ""
	SourceAnimCurve  SourceKind = "animCurve"
	SourceConstraint SourceKind = "constraint"
	SourceExpression SourceKind = "expression"
)

type NodeKind string

const (
	KindTransform NodeKind = "transform"
	KindJoint     NodeKind = "joint"
	KindShape     NodeKind = "shape"
)

// IsTransform reports whether nodes of kind carry transform channels
func (k NodeKind) IsTransform() bool {
	return k == KindTransform || k == KindJoint
}

type CurveFilter string

// EulerFilter unwraps 360 degree jumps between rotation keys
const EulerFilter CurveFilter = "euler"

type Selector interface {
	// Selection lists selected nodes in selection order, only transforms
	// when transformsOnly is set
	Selection(transformsOnly bool) ([]string, error)
}

type Clock interface {
	CurrentTime() float64
}

type MatrixSource interface {
	Matrix(node string, kind MatrixKind, t float64) (mgl64.Mat4, error)
}

type AttributeStore interface {
	GetAttr(p Plug, t float64) ([]float64, error)
	SetAttr(p Plug, values ...float64) error
	IsLocked(p Plug) (bool, error)
}

type ConnectionQuerier interface {
	// Inputs lists source names connected into p, SourceAny for every kind
	Inputs(p Plug, kind SourceKind) ([]string, error)
}

type Keyer interface {
	SetKeyframe(p Plug, t float64, value float64, tangents Tangents) error
}

type CurveReader interface {
	KeyTimes(curve string) ([]float64, error)
	// KeyTangents returns raw host tangent type names of key at t
	KeyTangents(curve string, t float64) (in string, out string, err error)
}

type CurveFilterer interface {
	FilterCurves(filter CurveFilter, curves ...string) error
}

// UndoQueue groups mutations between open and close into one undo step.
// Chunks nest; only outermost close commits.
type UndoQueue interface {
	OpenUndoChunk(name string) error
	CloseUndoChunk() error
}

// Undoer is optional host capability to revert last undo step
type Undoer interface {
	Undo() error
}

type Host interface {
	Selector
	Clock
	MatrixSource
	AttributeStore
	ConnectionQuerier
	Keyer
	CurveReader
	CurveFilterer
	UndoQueue
}
