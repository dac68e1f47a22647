package cli

import (
	"encoding/json"
	"fmt"

	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/performance"
	"github.com/spf13/cobra"
)

// ReportOptions picks the run and the comparison inputs. Empty or nil fields
// fall back, each on its own, to the configuration the run was journaled with.
type ReportOptions struct {
	RunID     string
	Benchmark string
	BarsPath  string
	RatesPath string
	Alpha     *float64
	Mean0     *float64
}

// runConfig recovers the configuration stored with a run, or fallback when
// the run carries none.
func runConfig(run journal.Run, fallback *config.Config) *config.Config {
	if len(run.Config) == 0 {
		return fallback
	}
	cfg := &config.Config{}
	if err := json.Unmarshal(run.Config, cfg); err != nil {
		return fallback
	}
	return cfg
}

// Report computes the performance summary of a journaled run.
func Report(j *journal.SQLite, cfg *config.Config, opts ReportOptions) (performance.Summary, error) {
	run, err := j.GetRun(opts.RunID)
	if err != nil {
		return performance.Summary{}, err
	}
	rcfg := runConfig(run, cfg)

	benchmark := opts.Benchmark
	if benchmark == "" {
		benchmark = run.Benchmark
	}
	if benchmark == "" {
		return performance.Summary{}, fmt.Errorf("report %s: no benchmark", run.RunID)
	}
	barsPath := opts.BarsPath
	if barsPath == "" {
		barsPath = rcfg.Data.Bars[benchmark]
	}
	if barsPath == "" {
		return performance.Summary{}, fmt.Errorf("report %s: no bars file for %s", run.RunID, benchmark)
	}
	ratesPath := opts.RatesPath
	if ratesPath == "" {
		ratesPath = rcfg.Data.RiskFree
	}

	h, err := rcfg.Backtest.Horizon()
	if err != nil || !h.Contains(run.Start) {
		if h, err = date.Daily(run.Start, run.End); err != nil {
			return performance.Summary{}, err
		}
	}

	in := performance.Input{
		Horizon:   h,
		Portfolio: performance.Series{},
		Benchmark: performance.Series{},
		AUM:       performance.Series{},
	}
	vals, err := j.ListValuations(run.RunID)
	if err != nil {
		return performance.Summary{}, err
	}
	for _, v := range vals {
		in.Portfolio[v.Date] = v.TotalValue.InexactFloat64()
		in.AUM[v.Date] = v.AssetsUnderManagement.InexactFloat64()
		if v.Date.After(in.LastCaptured) {
			in.LastCaptured = v.Date
		}
	}

	bars, err := market.LoadBarsFile(barsPath)
	if err != nil {
		return performance.Summary{}, err
	}
	for _, b := range bars {
		in.Benchmark[b.Date] = b.Close
	}
	if ratesPath != "" {
		rates, err := market.LoadRatesFile(ratesPath)
		if err != nil {
			return performance.Summary{}, err
		}
		for _, r := range rates {
			in.RiskFree = append(in.RiskFree, r.Rate)
		}
	}

	a, err := performance.New(in)
	if err != nil {
		return performance.Summary{}, fmt.Errorf("report %s: %w", run.RunID, err)
	}

	alpha, mean0 := rcfg.Analytics.Alpha, rcfg.Analytics.Mean0
	if opts.Alpha != nil {
		alpha = *opts.Alpha
	}
	if opts.Mean0 != nil {
		mean0 = *opts.Mean0
	}
	s := a.Summarize(alpha, mean0)
	s.RunID = run.RunID
	s.Strategy = run.Strategy
	s.Benchmark = benchmark
	s.Created = run.Created
	return s, nil
}

func newReportCmd(rc *RootConfig) *cobra.Command {
	var (
		opts         ReportOptions
		alpha, mean0 float64
		org          string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the performance summary of a journaled run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.RunID == "" {
				return fmt.Errorf("--run is required")
			}
			if cmd.Flags().Changed("alpha") {
				opts.Alpha = &alpha
			}
			if cmd.Flags().Changed("mean0") {
				opts.Mean0 = &mean0
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

			s, err := Report(j, cfg, opts)
			if err != nil {
				return err
			}
			s.Print(cmd.OutOrStdout())
			if org != "" {
				if err := s.WriteOrg(org); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", org)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.RunID, "run", "", "Run ID")
	cmd.Flags().StringVar(&opts.Benchmark, "benchmark", "", "Benchmark ticker (default: the run's)")
	cmd.Flags().StringVar(&opts.BarsPath, "bars", "", "Benchmark bars CSV (default: from the run's config)")
	cmd.Flags().StringVar(&opts.RatesPath, "rates", "", "Monthly risk free rates CSV")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "Significance level (default: from config)")
	cmd.Flags().Float64Var(&mean0, "mean0", 0, "Null hypothesis mean excess return (default: from config)")
	cmd.Flags().StringVar(&org, "org", "", "Also write an Org-mode report to this path")

	return cmd
}
