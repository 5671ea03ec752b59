// Package transform provides the rotations used to move astronomical
// coordinates between reference frames.
//
// Three families are supported:
//
//   - Native2Celestial / Celestial2Native: the ZXZ spherical rotation between
//     a projection's native sphere and the celestial sphere, following
//     Calabretta & Greisen 2002 (WCS Paper II).
//   - EulerAngleRotation: up to three elementary rotations about the x, y and
//     z axes, applied to direction cosines.
//   - Rotation2D: a counter-clockwise rotation of Cartesian (x, y) pairs.
//
// Angles cross the package boundary in degrees and are held in radians.
// Every transform is an immutable value; Inverse builds a new one.
package transform

// Kind names a transform family.
type Kind string

const (
	KindNative2Celestial Kind = "native2celestial"
	KindCelestial2Native Kind = "celestial2native"
	KindEuler            Kind = "euler"
	KindRotation2D       Kind = "rotation2d"
)

// Parameter names used in Spec.Params. Values are degrees.
const (
	ParamLon     = "lon"
	ParamLat     = "lat"
	ParamLonPole = "lon_pole"
	ParamPhi     = "phi"
	ParamTheta   = "theta"
	ParamPsi     = "psi"
	ParamAngle   = "angle"
)

// Transform is a reversible mapping between two coordinate pairs.
type Transform interface {
	Kind() Kind
	// Evaluate maps an input pair to an output pair of the same shape.
	Evaluate(a, b Array) (Array, Array, error)
	// Inverse returns a new transform undoing this one.
	Inverse() Transform
	// Spec describes the transform with its parameters in degrees.
	Spec() Spec
}

var (
	_ Transform = Native2Celestial{}
	_ Transform = Celestial2Native{}
	_ Transform = EulerAngleRotation{}
	_ Transform = Rotation2D{}
)
