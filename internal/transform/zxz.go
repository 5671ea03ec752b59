package transform

import "math"

// rotateZXZ rotates spherical coordinates (phiI, thetaI) through the ZXZ Euler
// sequence fixed by (lon, lat, lonPole), following Calabretta & Greisen 2002
// (WCS Paper II, eq. 2). All angles are radians.
//
// The returned longitude is not normalized; callers pick the branch.
func rotateZXZ(phiI, thetaI, lon, lat, lonPole float64) (phiF, thetaF float64) {
	sinThetaI, cosThetaI := math.Sincos(thetaI)
	sinLat, cosLat := math.Sincos(lat)
	sinDelta, cosDelta := math.Sincos(phiI - lonPole)

	phiF = lon + math.Atan2(-cosThetaI*sinDelta,
		sinThetaI*cosLat-cosThetaI*sinLat*cosDelta)
	thetaF = math.Asin(clampUnit(sinThetaI*sinLat + cosThetaI*cosLat*cosDelta))

	return phiF, thetaF
}
