package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/transform"
)

type evalOutput struct {
	Name    string            `json:"name,omitempty"`
	Kind    transform.Kind    `json:"kind"`
	Inverse bool              `json:"inverse,omitempty"`
	Outputs []transform.Array `json:"outputs"`
}

func evalCmd(opts *rootOptions) *cobra.Command {
	var (
		name    string
		kind    string
		params  []string
		order   string
		inverse bool
		xs, ys  []float64
	)

	c := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate a transform on coordinate pairs",
		Example: `  skyrot eval --kind native2celestial --param lon=5.63 --param lat=-72.05 --param lon_pole=180 --x 10 --y 40
  skyrot eval --kind euler --order zxz --param phi=10 --param theta=20 --param psi=30 --x 1,2 --y 3,4 --inverse
  skyrot eval -c skyrot.yaml --name smc --x 0 --y 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			var t transform.Transform
			switch {
			case name != "" && kind != "":
				return errors.New("--name and --kind are mutually exclusive")
			case name != "":
				cat, err := catalog.New(cfg.Transforms)
				if err != nil {
					return err
				}
				e, err := cat.Get(name)
				if err != nil {
					return err
				}
				t = e.Transform
			case kind != "":
				p, err := parseParams(params)
				if err != nil {
					return err
				}
				t, err = transform.Build(transform.Spec{Kind: transform.Kind(kind), Params: p, Order: order})
				if err != nil {
					return err
				}
			default:
				return errors.New("one of --name or --kind is required")
			}

			if inverse {
				t = t.Inverse()
			}

			a, b, err := coordinates(xs, ys)
			if err != nil {
				return err
			}
			outA, outB, err := t.Evaluate(a, b)
			if err != nil {
				return err
			}
			logger.Debug("evaluated", "kind", t.Kind(), "points", a.Len())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(evalOutput{
				Name:    name,
				Kind:    t.Kind(),
				Inverse: inverse,
				Outputs: []transform.Array{outA, outB},
			})
		},
	}

	c.Flags().StringVarP(&name, "name", "n", "", "catalog transform name")
	c.Flags().StringVarP(&kind, "kind", "k", "", "inline transform kind: "+kindList())
	c.Flags().StringArrayVarP(&params, "param", "p", nil, "inline parameter in degrees, as name=value (repeatable)")
	c.Flags().StringVar(&order, "order", "", "Euler axis order, e.g. zxz")
	c.Flags().BoolVar(&inverse, "inverse", false, "evaluate the inverse transform")
	c.Flags().Float64SliceVar(&xs, "x", nil, "first coordinates in degrees (comma separated)")
	c.Flags().Float64SliceVar(&ys, "y", nil, "second coordinates in degrees (comma separated)")

	_ = c.MarkFlagRequired("x")
	_ = c.MarkFlagRequired("y")
	return c
}

// parseParams turns name=value pairs into a parameter map.
func parseParams(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --param %q: want name=value", kv)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid --param %q: %w", kv, err)
		}
		if _, dup := out[k]; dup {
			return nil, fmt.Errorf("duplicate --param %q", k)
		}
		out[k] = f
	}
	return out, nil
}

// coordinates pairs the flag values. A single value on each side is a scalar.
func coordinates(xs, ys []float64) (transform.Array, transform.Array, error) {
	if len(xs) != len(ys) {
		return transform.Array{}, transform.Array{}, fmt.Errorf("%w: %d x values, %d y values", transform.ErrShapeMismatch, len(xs), len(ys))
	}
	if len(xs) == 1 {
		return transform.Scalar(xs[0]), transform.Scalar(ys[0]), nil
	}
	return transform.Vector(xs...), transform.Vector(ys...), nil
}

func kindList() string {
	kinds := transform.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
