package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/rustyeddy/backtester/backtest"
	"github.com/rustyeddy/backtester/broker/sim"
	"github.com/rustyeddy/backtester/config"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategies"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// loadMarket builds the store for cfg's horizon from the configured CSVs.
func loadMarket(cfg *config.Config) (*market.Store, error) {
	h, err := cfg.Backtest.Horizon()
	if err != nil {
		return nil, err
	}
	store := market.NewStore(h)
	for ticker, path := range cfg.Data.Bars {
		bars, err := market.LoadBarsFile(path)
		if err != nil {
			return nil, fmt.Errorf("bars for %s: %w", ticker, err)
		}
		store.AddBars(ticker, bars...)
	}
	if cfg.Data.RiskFree != "" {
		rates, err := market.LoadRatesFile(cfg.Data.RiskFree)
		if err != nil {
			return nil, fmt.Errorf("risk free rates: %w", err)
		}
		store.SetRiskFreeRates(market.Monthly, rates)
	}
	return store, nil
}

func openJournal(cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "csv":
		return journal.NewCSV(cfg.Dir)
	default:
		return journal.NewSQLite(cfg.DBPath)
	}
}

func newRunCmd(rc *RootConfig) *cobra.Command {
	var (
		runID  string
		noLog  bool
		report bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a backtest from the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.Config()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			log := rc.Logger(cfg)

			store, err := loadMarket(cfg)
			if err != nil {
				return err
			}
			strat, err := strategies.ByName(cfg.Strategy)
			if err != nil {
				return err
			}
			ex := sim.NewExchange(store, cfg.Exchange, log)
			p, err := portfolio.New(store, ex, strat,
				decimal.NewFromFloat(cfg.Portfolio.InitialBalance),
				portfolio.WithLogger(log),
				portfolio.WithInitialMarginRequirement(cfg.Portfolio.InitialMarginRequirement),
				portfolio.WithMaintenanceMarginRequirement(cfg.Portfolio.MaintenanceMarginRequirement),
			)
			if err != nil {
				return err
			}

			raw, err := json.Marshal(cfg)
			if err != nil {
				return err
			}
			r := &backtest.Runner{
				Market:    store,
				Exchange:  ex,
				Portfolio: p,
				Options: backtest.RunnerOptions{
					RunID:        runID,
					StrategyName: cfg.Strategy.Name,
					Benchmark:    cfg.Analytics.Benchmark,
					Config:       raw,
					CloseEnd:     cfg.Backtest.CloseEnd,
					Log:          log,
				},
			}
			if !noLog {
				j, err := openJournal(cfg.Journal)
				if err != nil {
					return err
				}
				defer j.Close()
				r.Journal = j
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := r.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			backtest.PrintResult(out, res)
			if !report || cfg.Analytics.Benchmark == "" {
				return nil
			}

			a, err := p.Performance(cfg.Analytics.Benchmark)
			if err != nil {
				log.Warn().Err(err).Msg("no performance report")
				return nil
			}
			s := a.Summarize(cfg.Analytics.Alpha, cfg.Analytics.Mean0)
			s.RunID = res.RunID
			s.Strategy = cfg.Strategy.Name
			s.Benchmark = cfg.Analytics.Benchmark
			s.Print(out)
			if cfg.Analytics.OrgReport != "" {
				return s.WriteOrg(cfg.Analytics.OrgReport)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "Run ID (default: new ULID)")
	cmd.Flags().BoolVar(&noLog, "no-journal", false, "Do not journal the run")
	cmd.Flags().BoolVar(&report, "report", true, "Print the performance summary")

	return cmd
}
