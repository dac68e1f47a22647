package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rustyeddy/backtester/journal"
	"github.com/spf13/cobra"
)

// Export writes the signal or order table of a run as CSV.
func Export(j *journal.SQLite, table, runID string, w io.Writer) error {
	switch table {
	case "signals":
		signals, err := j.ListSignals(runID)
		if err != nil {
			return err
		}
		return journal.WriteSignalsCSV(w, signals)
	case "orders":
		orders, err := j.ListOrders(runID)
		if err != nil {
			return err
		}
		return journal.WriteOrdersCSV(w, orders)
	default:
		return fmt.Errorf("unknown table %q (signals|orders)", table)
	}
}

func newExportCmd(rc *RootConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a run's signal or order table as CSV",
	}

	for _, table := range []string{"orders", "signals"} {
		var runID, out string
		sub := &cobra.Command{
			Use:   table,
			Short: fmt.Sprintf("Export the %s of a run", table),
			RunE: func(cmd *cobra.Command, args []string) error {
				if runID == "" {
					return fmt.Errorf("--run is required")
				}
				cfg, err := rc.Config()
				if err != nil {
					return err
				}
				j, err := rc.OpenSQLite(cfg)
				if err != nil {
					return err
				}
				defer j.Close()

				if _, err := j.GetRun(runID); err != nil {
					return fmt.Errorf("run %s: %w", runID, err)
				}

				w := cmd.OutOrStdout()
				if out != "" {
					fh, err := os.Create(out)
					if err != nil {
						return err
					}
					defer fh.Close()
					w = fh
				}
				return Export(j, cmd.Name(), runID, w)
			},
		}
		sub.Flags().StringVar(&runID, "run", "", "Run ID")
		sub.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
		cmd.AddCommand(sub)
	}

	return cmd
}
