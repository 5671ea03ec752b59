package transform

import (
	"math"
	"testing"
)

func TestRotateZXZPoleAlignedIsLongitudeShift(t *testing.T) {
	// With lat = 90 deg the rotation reduces to a longitude shift:
	// phi_f = lon + (phi_i - lon_pole) + pi, theta_f = theta_i.
	lon, lat, lonPole := 0.3, math.Pi/2, 0.1
	phiI, thetaI := 0.7, 0.4

	phiF, thetaF := rotateZXZ(phiI, thetaI, lon, lat, lonPole)

	wantPhi := lon + (phiI - lonPole) - math.Pi
	if d := math.Remainder(phiF-wantPhi, 2*math.Pi); math.Abs(d) > tol {
		t.Errorf("phi_f = %v, want %v (mod 2pi)", phiF, wantPhi)
	}
	if !near(thetaF, thetaI) {
		t.Errorf("theta_f = %v, want %v", thetaF, thetaI)
	}
}

func TestRotateZXZNeverNaN(t *testing.T) {
	// Poles and the lat = +/-90 degenerate cases push the asin argument to
	// exactly +/-1, where rounding can overshoot.
	angles := []float64{-math.Pi / 2, -math.Pi / 4, 0, math.Pi / 4, math.Pi / 2}
	for _, theta := range angles {
		for _, lat := range angles {
			for _, phi := range []float64{-math.Pi, 0, 1, math.Pi} {
				phiF, thetaF := rotateZXZ(phi, theta, 0.2, lat, math.Pi)
				if math.IsNaN(phiF) || math.IsNaN(thetaF) {
					t.Fatalf("rotateZXZ(%v, %v, lat=%v) produced NaN: (%v, %v)", phi, theta, lat, phiF, thetaF)
				}
				if thetaF < -math.Pi/2 || thetaF > math.Pi/2 {
					t.Errorf("theta_f = %v outside [-pi/2, pi/2]", thetaF)
				}
			}
		}
	}
}
