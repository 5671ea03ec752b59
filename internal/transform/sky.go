package transform

import "github.com/soniakeys/unit"

// skyParams are the three ZXZ rotation angles shared by both directions of
// the native/celestial rotation, stored in radians.
type skyParams struct {
	lon     unit.Angle // celestial longitude of the fiducial point
	lat     unit.Angle // celestial latitude of the fiducial point
	lonPole unit.Angle // longitude of the celestial pole in the native system
}

func newSkyParams(lonDeg, latDeg, lonPoleDeg float64) skyParams {
	return skyParams{
		lon:     unit.AngleFromDeg(lonDeg),
		lat:     unit.AngleFromDeg(latDeg),
		lonPole: unit.AngleFromDeg(lonPoleDeg),
	}
}

func (p skyParams) spec(kind Kind) Spec {
	return Spec{
		Kind: kind,
		Params: map[string]float64{
			ParamLon:     p.lon.Deg(),
			ParamLat:     p.lat.Deg(),
			ParamLonPole: p.lonPole.Deg(),
		},
	}
}

// Native2Celestial rotates native spherical coordinates (phi_N, theta_N) into
// celestial coordinates (alpha_C, delta_C). Output longitude is in [0, 360).
type Native2Celestial struct {
	p skyParams
}

// NewNative2Celestial builds the native-to-celestial rotation. All angles are
// in degrees.
func NewNative2Celestial(lon, lat, lonPole float64) Native2Celestial {
	return Native2Celestial{p: newSkyParams(lon, lat, lonPole)}
}

// Kind implements Transform.
func (Native2Celestial) Kind() Kind { return KindNative2Celestial }

// Spec implements Transform.
func (r Native2Celestial) Spec() Spec { return r.p.spec(KindNative2Celestial) }

// Inverse returns the celestial-to-native rotation with the same parameters.
func (r Native2Celestial) Inverse() Transform {
	return Celestial2Native{p: r.p}
}

// Evaluate converts native (phi, theta) in degrees to celestial (alpha, delta)
// in degrees.
func (r Native2Celestial) Evaluate(phi, theta Array) (Array, Array, error) {
	return evaluatePair(phi, theta, func(phi, theta []float64) ([]float64, []float64) {
		alpha := make([]float64, len(phi))
		delta := make([]float64, len(phi))
		for i := range phi {
			a, d := rotateZXZ(toRad(phi[i]), toRad(theta[i]),
				r.p.lon.Rad(), r.p.lat.Rad(), r.p.lonPole.Rad())
			alpha[i] = wrap360(toDeg(a))
			delta[i] = toDeg(d)
		}
		return alpha, delta
	})
}

// Celestial2Native rotates celestial coordinates (alpha_C, delta_C) into
// native coordinates (phi_N, theta_N). Output longitude is in (-180, 180].
type Celestial2Native struct {
	p skyParams
}

// NewCelestial2Native builds the celestial-to-native rotation. All angles are
// in degrees.
func NewCelestial2Native(lon, lat, lonPole float64) Celestial2Native {
	return Celestial2Native{p: newSkyParams(lon, lat, lonPole)}
}

// Kind implements Transform.
func (Celestial2Native) Kind() Kind { return KindCelestial2Native }

// Spec implements Transform.
func (r Celestial2Native) Spec() Spec { return r.p.spec(KindCelestial2Native) }

// Inverse returns the native-to-celestial rotation with the same parameters.
func (r Celestial2Native) Inverse() Transform {
	return Native2Celestial{p: r.p}
}

// Evaluate converts celestial (alpha, delta) in degrees to native (phi, theta)
// in degrees. lon and lon_pole trade places in the ZXZ sequence.
func (r Celestial2Native) Evaluate(alpha, delta Array) (Array, Array, error) {
	return evaluatePair(alpha, delta, func(alpha, delta []float64) ([]float64, []float64) {
		phi := make([]float64, len(alpha))
		theta := make([]float64, len(alpha))
		for i := range alpha {
			p, t := rotateZXZ(toRad(alpha[i]), toRad(delta[i]),
				r.p.lonPole.Rad(), r.p.lat.Rad(), r.p.lon.Rad())
			phi[i] = wrap180(toDeg(p))
			theta[i] = toDeg(t)
		}
		return phi, theta
	})
}
