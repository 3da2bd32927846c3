package scene

// TangentType is interpolation shape entering or leaving a key
type TangentType string

const (
	TangentAuto     TangentType = "auto"
	TangentClamped  TangentType = "clamped"
	TangentFast     TangentType = "fast"
	TangentFlat     TangentType = "flat"
	TangentLinear   TangentType = "linear"
	TangentPlateau  TangentType = "plateau"
	TangentSlow     TangentType = "slow"
	TangentSpline   TangentType = "spline"
	TangentStepNext TangentType = "stepnext"

	// host-only types, never written by anchoring
	TangentStep  TangentType = "step"
	TangentFixed TangentType = "fixed"
)

// KeyableTangents is the closed set accepted when inheriting tangents
var KeyableTangents = [...]TangentType{
	TangentAuto, TangentClamped, TangentFast,
	TangentFlat, TangentLinear, TangentPlateau,
	TangentSlow, TangentSpline, TangentStepNext,
}

// ParseTangentType reports whether s belongs to KeyableTangents
func ParseTangentType(s string) (TangentType, bool) {
	for _, t := range KeyableTangents {
		if string(t) == s {
			return t, true
		}
	}
	return TangentLinear, false
}

type Tangents struct {
	In  TangentType
	Out TangentType
}

func DefaultTangents() Tangents {
	return Tangents{In: TangentLinear, Out: TangentLinear}
}
