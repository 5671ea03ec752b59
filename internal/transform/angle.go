package transform

import (
	"math"

	"github.com/soniakeys/unit"
)

// toRad converts a boundary value in degrees to radians.
func toRad(deg float64) float64 {
	return unit.AngleFromDeg(deg).Rad()
}

// toDeg converts an internal radian value back to degrees.
func toDeg(rad float64) float64 {
	return unit.Angle(rad).Deg()
}

// clampUnit keeps asin/acos arguments inside [-1, 1]. Rounding can push a
// mathematically valid argument a few ulps past the boundary.
func clampUnit(x float64) float64 {
	return math.Max(-1, math.Min(1, x))
}

// wrap360 maps a longitude in degrees into [0, 360).
// In-range values are returned untouched.
func wrap360(deg float64) float64 {
	if deg >= 0 && deg < 360 {
		return deg
	}
	if deg < 0 && deg >= -360 {
		deg += 360
	} else {
		deg = unit.PMod(deg, 360)
	}
	// -1e-15 + 360 rounds to 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// wrap180 maps a longitude in degrees into (-180, 180].
// In-range values are returned untouched.
func wrap180(deg float64) float64 {
	if deg > -180 && deg <= 180 {
		return deg
	}
	if deg > 180 && deg <= 540 {
		deg -= 360
	} else {
		deg = 180 - unit.PMod(180-deg, 360)
	}
	if deg <= -180 {
		deg = 180
	}
	return deg
}
