package cli

import (
	"fmt"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/transform"
)

func listCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the configured transforms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			cat, err := catalog.New(cfg.Transforms)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cat.Len() == 0 {
				fmt.Fprintln(out, "(no transforms configured)")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tORDER\tPARAMS")
			for _, e := range cat.Entries() {
				s := e.Spec()
				order := s.Order
				if order == "" {
					order = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Kind, order, formatParams(s))
			}
			return tw.Flush()
		},
	}
}

// formatParams renders params sorted by name.
func formatParams(s transform.Spec) string {
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%g", k, s.Params[k])
	}
	return strings.Join(parts, " ")
}
