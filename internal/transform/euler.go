package transform

import (
	"fmt"
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/mat"
)

// EulerAngleRotation rotates (alpha, delta) on the sphere by up to three
// elementary rotations about the x, y or z axes.
//
// Angles pair with the axis order positionally: phi with order[0], theta with
// order[1], psi with order[2]. With a two-axis order psi is carried but unused.
type EulerAngleRotation struct {
	phi, theta, psi unit.Angle
	order           string
}

// NewEulerAngleRotation builds an Euler rotation from angles in degrees and an
// axis order of two or three characters drawn from x, y and z.
func NewEulerAngleRotation(phi, theta, psi float64, order string) (EulerAngleRotation, error) {
	if err := validateOrder(order); err != nil {
		return EulerAngleRotation{}, err
	}
	return EulerAngleRotation{
		phi:   unit.AngleFromDeg(phi),
		theta: unit.AngleFromDeg(theta),
		psi:   unit.AngleFromDeg(psi),
		order: order,
	}, nil
}

func validateOrder(order string) error {
	if len(order) < 2 || len(order) > 3 {
		return fmt.Errorf("%w: expected order to be a character sequence of 2 or 3, got %q", ErrInvalidParameter, order)
	}
	for _, c := range order {
		if c != 'x' && c != 'y' && c != 'z' {
			return fmt.Errorf("%w: expected order to be a combination of 'x', 'y' and 'z', got %q", ErrInvalidParameter, order)
		}
	}
	return nil
}

// Kind implements Transform.
func (EulerAngleRotation) Kind() Kind { return KindEuler }

// Order returns the axis order.
func (r EulerAngleRotation) Order() string { return r.order }

// Spec implements Transform.
func (r EulerAngleRotation) Spec() Spec {
	return Spec{
		Kind: KindEuler,
		Params: map[string]float64{
			ParamPhi:   r.phi.Deg(),
			ParamTheta: r.theta.Deg(),
			ParamPsi:   r.psi.Deg(),
		},
		Order: r.order,
	}
}

// Inverse reverses the axis order and negates the angles. For three axes the
// result is (-psi, -theta, -phi); for two axes it is (-theta, -phi, -psi) so
// each used angle stays on its axis.
func (r EulerAngleRotation) Inverse() Transform {
	reversed := []byte(r.order)
	for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
		reversed[i], reversed[j] = reversed[j], reversed[i]
	}
	inv := EulerAngleRotation{order: string(reversed)}
	if len(r.order) == 3 {
		inv.phi, inv.theta, inv.psi = -r.psi, -r.theta, -r.phi
	} else {
		inv.phi, inv.theta, inv.psi = -r.theta, -r.phi, -r.psi
	}
	return inv
}

// Matrix returns the composite rotation M = M_psi * M_theta * M_phi.
func (r EulerAngleRotation) Matrix() *mat.Dense {
	angles := [3]unit.Angle{r.phi, r.theta, r.psi}
	m := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	for i := 0; i < len(r.order); i++ {
		var next mat.Dense
		next.Mul(elementaryRotation(angles[i].Rad(), r.order[i]), m)
		m = &next
	}
	return m
}

// elementaryRotation embeds the clockwise 2x2 rotation
//
//	[ cos  sin]
//	[-sin  cos]
//
// into the two axes orthogonal to axis.
func elementaryRotation(angle float64, axis byte) *mat.Dense {
	s, c := math.Sincos(angle)
	switch axis {
	case 'x':
		return mat.NewDense(3, 3, []float64{
			1, 0, 0,
			0, c, s,
			0, -s, c,
		})
	case 'y':
		return mat.NewDense(3, 3, []float64{
			c, 0, s,
			0, 1, 0,
			-s, 0, c,
		})
	default:
		return mat.NewDense(3, 3, []float64{
			c, s, 0,
			-s, c, 0,
			0, 0, 1,
		})
	}
}

// directionCosines stacks the unit vectors of (alpha, delta) in degrees as
// the columns of a 3xN matrix.
func directionCosines(alpha, delta []float64) *mat.Dense {
	v := mat.NewDense(3, len(alpha), nil)
	for i := range alpha {
		sinA, cosA := math.Sincos(toRad(alpha[i]))
		sinD, cosD := math.Sincos(toRad(delta[i]))
		v.Set(0, i, cosD*cosA)
		v.Set(1, i, cosD*sinA)
		v.Set(2, i, sinD)
	}
	return v
}

// Evaluate rotates (alpha, delta) in degrees and returns the rotated
// (alpha, delta) in degrees. Output longitude is in (-180, 180].
func (r EulerAngleRotation) Evaluate(alpha, delta Array) (Array, Array, error) {
	return evaluatePair(alpha, delta, func(alpha, delta []float64) ([]float64, []float64) {
		outA := make([]float64, len(alpha))
		outD := make([]float64, len(alpha))
		if len(alpha) == 0 {
			return outA, outD
		}

		var rotated mat.Dense
		rotated.Mul(r.Matrix(), directionCosines(alpha, delta))

		for i := range alpha {
			outA[i] = toDeg(math.Atan2(rotated.At(1, i), rotated.At(0, i)))
			outD[i] = toDeg(math.Asin(clampUnit(rotated.At(2, i))))
		}
		return outA, outD
	})
}
