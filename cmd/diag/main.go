package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/soniakeys/unit"
	"gonum.org/v1/gonum/floats"

	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/config"
	"github.com/star/skyrot/internal/transform"
)

// builtin is swept when no config file is given.
var builtin = []transform.Spec{
	{Name: "zenithal-smc", Kind: transform.KindNative2Celestial, Params: map[string]float64{"lon": 5.63, "lat": -72.05, "lon_pole": 180}},
	{Name: "equatorial", Kind: transform.KindNative2Celestial, Params: map[string]float64{"lon": 120, "lat": 0, "lon_pole": 180}},
	{Name: "oblique-inv", Kind: transform.KindCelestial2Native, Params: map[string]float64{"lon": 266.4, "lat": -28.9, "lon_pole": 64.3}},
	{Name: "euler-zxz", Kind: transform.KindEuler, Order: "zxz", Params: map[string]float64{"phi": 10, "theta": 20, "psi": 30}},
	{Name: "euler-xyz", Kind: transform.KindEuler, Order: "xyz", Params: map[string]float64{"phi": -45, "theta": 60, "psi": 135}},
	{Name: "euler-yx", Kind: transform.KindEuler, Order: "yx", Params: map[string]float64{"phi": 33, "theta": -12, "psi": 0}},
	{Name: "planar-37", Kind: transform.KindRotation2D, Params: map[string]float64{"angle": 37}},
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	specs := builtin
	if path := os.Getenv("SKYROT_CONFIG"); path != "" {
		cfg, err := config.Load(path, logger)
		if err != nil {
			fmt.Println("ERROR loading config:", err)
			os.Exit(1)
		}
		if len(cfg.Transforms) > 0 {
			specs = cfg.Transforms
		}
	}

	cat, err := catalog.New(specs)
	if err != nil {
		fmt.Println("ERROR building catalog:", err)
		os.Exit(1)
	}

	lon, lat := grid()
	fmt.Printf("Sweeping %d transforms over %d points\n", cat.Len(), lon.Len())

	failed := 0
	for _, e := range cat.Entries() {
		fwdA, fwdB, err := e.Transform.Evaluate(lon, lat)
		if err != nil {
			fmt.Printf("  %-16s ERROR forward: %v\n", e.Name, err)
			failed++
			continue
		}
		backA, backB, err := e.Transform.Inverse().Evaluate(fwdA, fwdB)
		if err != nil {
			fmt.Printf("  %-16s ERROR inverse: %v\n", e.Name, err)
			failed++
			continue
		}

		errs := make([]float64, lon.Len())
		for i := range errs {
			errs[i] = roundTripError(e.Transform.Kind(), lon.At(i), lat.At(i), backA.At(i), backB.At(i))
		}
		worst := floats.Max(errs)
		status := "ok"
		if worst > 1e-9 {
			status = "DRIFT"
			failed++
		}
		fmt.Printf("  %-16s %-17s max=%.3e deg mean=%.3e deg %s\n",
			e.Name, e.Transform.Kind(), worst, floats.Sum(errs)/float64(len(errs)), status)
	}

	fmt.Printf("\n%d of %d transforms exceeded tolerance\n", failed, cat.Len())
	if failed > 0 {
		os.Exit(1)
	}
}

// grid returns lon/lat points that stay clear of the poles, where longitude
// is undefined.
func grid() (transform.Array, transform.Array) {
	var lon, lat []float64
	for l := -175.0; l < 360; l += 12.5 {
		for b := -85.0; b <= 85; b += 10 {
			lon = append(lon, l)
			lat = append(lat, b)
		}
	}
	return transform.Vector(lon...), transform.Vector(lat...)
}

// roundTripError is the angular separation for sphere rotations and the
// planar distance for 2D rotations.
func roundTripError(kind transform.Kind, a0, b0, a1, b1 float64) float64 {
	if kind == transform.KindRotation2D {
		return math.Hypot(a1-a0, b1-b0)
	}
	// Haversine, stable at small separations.
	lat0, lat1 := unit.AngleFromDeg(b0), unit.AngleFromDeg(b1)
	dLat := (lat1 - lat0).Rad()
	dLon := unit.AngleFromDeg(a1 - a0).Rad()
	h := math.Pow(math.Sin(dLat/2), 2) + lat0.Cos()*lat1.Cos()*math.Pow(math.Sin(dLon/2), 2)
	return unit.Angle(2 * math.Asin(math.Sqrt(math.Min(1, h)))).Deg()
}
