package transform

import (
	"math"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats/scalar"
)

const tol = 1e-9

// lonDiff returns the smallest angular separation between two longitudes in degrees.
func lonDiff(a, b float64) float64 {
	return math.Abs(unit.PMod(a-b+180, 360) - 180)
}

func near(a, b float64) bool {
	return scalar.EqualWithinAbs(a, b, tol)
}

func scalarNear(a, b, eps float64) bool {
	return scalar.EqualWithinAbs(a, b, eps)
}
