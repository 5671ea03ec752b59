package transform

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"
)

// Rotation2D rotates Cartesian (x, y) pairs about the origin. Positive angles
// rotate counter-clockwise.
type Rotation2D struct {
	angle unit.Angle
}

// NewRotation2D builds a planar rotation from an angle in degrees.
func NewRotation2D(angle float64) Rotation2D {
	return Rotation2D{angle: unit.AngleFromDeg(angle)}
}

// Kind implements Transform.
func (Rotation2D) Kind() Kind { return KindRotation2D }

// Spec implements Transform.
func (r Rotation2D) Spec() Spec {
	return Spec{
		Kind:   KindRotation2D,
		Params: map[string]float64{ParamAngle: r.angle.Deg()},
	}
}

// Inverse returns the rotation by the negated angle.
func (r Rotation2D) Inverse() Transform {
	return Rotation2D{angle: -r.angle}
}

// Matrix returns the counter-clockwise rotation matrix.
func (r Rotation2D) Matrix() *mat.Dense {
	s, c := math.Sincos(r.angle.Rad())
	return mat.NewDense(2, 2, []float64{
		c, -s,
		s, c,
	})
}

// Evaluate rotates every (x, y) pair. x and y must share a shape; the outputs
// keep it, so a scalar pair comes back as a scalar pair.
func (r Rotation2D) Evaluate(x, y Array) (Array, Array, error) {
	return evaluatePair(x, y, func(x, y []float64) ([]float64, []float64) {
		n := len(x)
		if n == 0 {
			return []float64{}, []float64{}
		}

		in := mat.NewDense(2, n, nil)
		in.SetRow(0, x)
		in.SetRow(1, y)

		var out mat.Dense
		out.Mul(r.Matrix(), in)
		return mat.Row(nil, 0, &out), mat.Row(nil, 1, &out)
	})
}
