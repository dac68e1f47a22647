package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsCmd(rc *RootConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List journaled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			j, err := rc.OpenSQLite(cfg)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tSTRATEGY\tBENCHMARK\tSTART\tEND\tINITIAL\tFINAL")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID,
					r.Created.Format("2006-01-02 15:04"),
					r.Strategy,
					r.Benchmark,
					r.Start,
					r.End,
					r.InitialBalance.StringFixed(2),
					r.FinalValue.StringFixed(2),
				)
			}
			return tw.Flush()
		},
	}
}
