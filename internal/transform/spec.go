package transform

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// Spec is the serializable description of a transform. Params are in degrees.
type Spec struct {
	Name   string             `yaml:"name,omitempty" json:"name,omitempty"`
	Kind   Kind               `yaml:"kind" json:"kind"`
	Params map[string]float64 `yaml:"params" json:"params"`
	Order  string             `yaml:"order,omitempty" json:"order,omitempty"`
}

// paramNames lists the exact parameter set each kind takes.
var paramNames = map[Kind][]string{
	KindNative2Celestial: {ParamLon, ParamLat, ParamLonPole},
	KindCelestial2Native: {ParamLon, ParamLat, ParamLonPole},
	KindEuler:            {ParamPhi, ParamTheta, ParamPsi},
	KindRotation2D:       {ParamAngle},
}

// Kinds returns every supported kind, sorted.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(paramNames))
	for k := range paramNames {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Build validates spec and constructs the transform it describes.
func Build(spec Spec) (Transform, error) {
	names, ok := paramNames[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidParameter, spec.Kind)
	}
	if err := checkParams(spec.Params, names); err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Kind, err)
	}
	if spec.Kind != KindEuler && spec.Order != "" {
		return nil, fmt.Errorf("%w: %s takes no axis order", ErrInvalidParameter, spec.Kind)
	}

	p := spec.Params
	switch spec.Kind {
	case KindNative2Celestial:
		return NewNative2Celestial(p[ParamLon], p[ParamLat], p[ParamLonPole]), nil
	case KindCelestial2Native:
		return NewCelestial2Native(p[ParamLon], p[ParamLat], p[ParamLonPole]), nil
	case KindEuler:
		r, err := NewEulerAngleRotation(p[ParamPhi], p[ParamTheta], p[ParamPsi], spec.Order)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return NewRotation2D(p[ParamAngle]), nil
	}
}

func checkParams(params map[string]float64, names []string) error {
	var missing []string
	for _, n := range names {
		v, ok := params[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParameter, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidParameter, strings.Join(missing, ", "))
	}
	if len(params) != len(names) {
		var extra []string
		for k := range params {
			if !slices.Contains(names, k) {
				extra = append(extra, k)
			}
		}
		slices.Sort(extra)
		return fmt.Errorf("%w: unexpected %s", ErrInvalidParameter, strings.Join(extra, ", "))
	}
	return nil
}
