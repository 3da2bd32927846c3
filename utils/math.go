package utils

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// RotateOrder follows the host enum: xyz=0 yzx=1 zxy=2 xzy=3 yxz=4 zyx=5.
// Order xyz rotates about X first, then Y, then Z.
type RotateOrder int

const (
	RotateXYZ RotateOrder = iota
	RotateYZX
	RotateZXY
	RotateXZY
	RotateYXZ
	RotateZYX
)

var rotateOrderNames = [...]string{"xyz", "yzx", "zxy", "xzy", "yxz", "zyx"}

var rotateOrderAxes = [...][3]int{
	{0, 1, 2},
	{1, 2, 0},
	{2, 0, 1},
	{0, 2, 1},
	{1, 0, 2},
	{2, 1, 0},
}

func (o RotateOrder) Valid() bool {
	return o >= RotateXYZ && o <= RotateZYX
}

func (o RotateOrder) String() string {
	if !o.Valid() {
		return "invalid"
	}
	return rotateOrderNames[o]
}

// Axes returns axis indices in application order
func (o RotateOrder) Axes() [3]int {
	return rotateOrderAxes[o]
}

// even permutations of xyz (cyclic orders)
func (o RotateOrder) parity() float64 {
	if o <= RotateZXY {
		return 1
	}
	return -1
}

func ParseRotateOrder(s string) (RotateOrder, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range rotateOrderNames {
		if name == s {
			return RotateOrder(i), nil
		}
	}
	return RotateXYZ, errors.Errorf("Unknown rotate order %q", s)
}

func (o RotateOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *RotateOrder) UnmarshalText(text []byte) error {
	v, err := ParseRotateOrder(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

func axisRotation(axis int, angle float64) mgl64.Mat4 {
	switch axis {
	case 0:
		return mgl64.HomogRotate3DX(angle)
	case 1:
		return mgl64.HomogRotate3DY(angle)
	default:
		return mgl64.HomogRotate3DZ(angle)
	}
}

// EulerToMat4 builds rotation matrix (column vectors) from angles in radians
func EulerToMat4(e mgl64.Vec3, order RotateOrder) mgl64.Mat4 {
	axes := order.Axes()
	m := mgl64.Ident4()
	for _, axis := range axes {
		m = axisRotation(axis, e[axis]).Mul4(m)
	}
	return m
}

// Mat3ToEuler extracts angles in radians from pure rotation matrix.
// Middle axis stays within [-pi/2, pi/2], on gimbal lock last axis is zero.
func Mat3ToEuler(m mgl64.Mat3, order RotateOrder) (e mgl64.Vec3) {
	axes := order.Axes()
	i, j, k := axes[0], axes[1], axes[2]
	sign := order.parity()

	sj := -sign * m.At(k, i)
	if sj > 1 {
		sj = 1
	} else if sj < -1 {
		sj = -1
	}
	e[j] = math.Asin(sj)

	if math.Abs(sj) < 1-1e-12 {
		e[i] = math.Atan2(sign*m.At(k, j), m.At(k, k))
		e[k] = math.Atan2(sign*m.At(j, i), m.At(i, i))
	} else {
		e[i] = math.Atan2(-sign*m.At(j, k), m.At(j, j))
		e[k] = 0
	}
	return e
}

// result in radians
func QuatToEuler(q mgl64.Quat, order RotateOrder) mgl64.Vec3 {
	return Mat3ToEuler(q.Normalize().Mat4().Mat3(), order)
}

// input in radians
func EulerToQuat(e mgl64.Vec3, order RotateOrder) mgl64.Quat {
	return mgl64.Mat4ToQuat(EulerToMat4(e, order)).Normalize()
}

func DegreeToRadiansV3(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.DegToRad(v[0]), mgl64.DegToRad(v[1]), mgl64.DegToRad(v[2])}
}

func RadiansToDegreeV3(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.RadToDeg(v[0]), mgl64.RadToDeg(v[1]), mgl64.RadToDeg(v[2])}
}

// ComposeTRS returns local matrix T * Rp * R * Rp^-1 * S for channel values,
// rotation in degrees.
func ComposeTRS(t, rDeg, s, pivot mgl64.Vec3, order RotateOrder) mgl64.Mat4 {
	r := EulerToMat4(DegreeToRadiansV3(rDeg), order)
	m := mgl64.Translate3D(t[0], t[1], t[2])
	m = m.Mul4(mgl64.Translate3D(pivot[0], pivot[1], pivot[2]))
	m = m.Mul4(r)
	m = m.Mul4(mgl64.Translate3D(-pivot[0], -pivot[1], -pivot[2]))
	return m.Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}

// DecomposeTRS is inverse of ComposeTRS. Shear is ignored, negative
// determinant is folded into all three scale axes.
func DecomposeTRS(m mgl64.Mat4, order RotateOrder, pivot mgl64.Vec3) (t, rDeg, s mgl64.Vec3) {
	m3 := m.Mat3()
	for i := 0; i < 3; i++ {
		s[i] = m3.Col(i).Len()
	}
	if m3.Det() < 0 {
		s = s.Mul(-1)
	}

	var r mgl64.Mat3
	for i := 0; i < 3; i++ {
		col := m3.Col(i)
		if s[i] != 0 {
			col = col.Mul(1 / s[i])
		}
		r.SetCol(i, col)
	}

	rDeg = RadiansToDegreeV3(Mat3ToEuler(r, order))

	// rotate pivot translation with balance
	rpt := r.Mul3x1(pivot).Sub(pivot)
	t = m.Col(3).Vec3().Add(rpt)
	return t, rDeg, s
}

// UnwrapDegrees shifts angle by whole turns to be closest to prev
func UnwrapDegrees(prev, angle float64) float64 {
	return angle + 360*math.Round((prev-angle)/360)
}

func eulerDistance(a, b mgl64.Vec3) float64 {
	return math.Abs(a[0]-b[0]) + math.Abs(a[1]-b[1]) + math.Abs(a[2]-b[2])
}

func unwrapV3(prev, v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{UnwrapDegrees(prev[0], v[0]), UnwrapDegrees(prev[1], v[1]), UnwrapDegrees(prev[2], v[2])}
}

// EquivalentEuler returns the second Euler solution for the same orientation
// (first and last axes turned half way, middle axis mirrored), degrees.
func EquivalentEuler(v mgl64.Vec3, order RotateOrder) mgl64.Vec3 {
	axes := order.Axes()
	var r mgl64.Vec3
	r[axes[0]] = v[axes[0]] + 180
	r[axes[1]] = 180 - v[axes[1]]
	r[axes[2]] = v[axes[2]] + 180
	return r
}

// FilterEulerSequence removes 360 degree jumps and gimbal flips from sequence
// of Euler rotations in degrees. Orientation of every element is preserved.
func FilterEulerSequence(values []mgl64.Vec3, order RotateOrder) []mgl64.Vec3 {
	result := make([]mgl64.Vec3, len(values))
	for i, v := range values {
		if i == 0 {
			result[i] = v
			continue
		}
		prev := result[i-1]
		a := unwrapV3(prev, v)
		b := unwrapV3(prev, EquivalentEuler(v, order))
		if eulerDistance(b, prev) < eulerDistance(a, prev)-1e-9 {
			result[i] = b
		} else {
			result[i] = a
		}
	}
	return result
}

// UnwrapEulerSequence only removes whole turn jumps per axis
func UnwrapEulerSequence(values []mgl64.Vec3) []mgl64.Vec3 {
	result := make([]mgl64.Vec3, len(values))
	for i, v := range values {
		if i == 0 {
			result[i] = v
		} else {
			result[i] = unwrapV3(result[i-1], v)
		}
	}
	return result
}

func FloatArray32to64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func FloatArray64to32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
