// Package backtest drives a portfolio through its horizon one day at a time.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/internal/id"
	"github.com/rustyeddy/backtester/journal"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

// Clock is market data whose current date the runner advances.
type Clock interface {
	market.Data
	SetCurrentDate(d date.Date) error
}

// Exchange fills a day's orders against the account and reports what
// happened as events.
type Exchange interface {
	broker.Broker
	Execute(ctx context.Context, d date.Date, batch *strategy.OrderBatch, acct broker.Account) ([]strategy.Event, error)
	CloseAll(ctx context.Context, d date.Date, acct broker.Account) ([]strategy.Event, error)
}

// RunnerOptions controls how the backtest runner behaves.
type RunnerOptions struct {
	// RunID identifies the run in the journal. Empty assigns a ULID.
	RunID        string
	StrategyName string
	Benchmark    string
	Config       []byte

	// If true, close all open positions on the last day of the horizon.
	CloseEnd bool

	Log zerolog.Logger
}

// Runner drives a portfolio through the market's horizon.
type Runner struct {
	Market    Clock
	Exchange  Exchange
	Portfolio *portfolio.Portfolio
	Journal   journal.Journal // optional
	Options   RunnerOptions
}

// Run executes the daily loop. For every horizon date, in order:
//  1. advance the market clock
//  2. generate and archive signals, then orders
//  3. execute the orders
//  4. hand every event to the portfolio
//  5. capture the day's valuation
//
// Cancellation is checked between days. The returned Result covers the
// days completed so far even when an error is returned.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Market == nil {
		return Result{}, fmt.Errorf("backtest: Market is required")
	}
	if r.Exchange == nil {
		return Result{}, fmt.Errorf("backtest: Exchange is required")
	}
	if r.Portfolio == nil {
		return Result{}, fmt.Errorf("backtest: Portfolio is required")
	}

	opts := r.Options
	if opts.RunID == "" {
		opts.RunID = id.New()
	}
	log := opts.Log.With().Str("run_id", opts.RunID).Logger()

	p := r.Portfolio
	h := p.Horizon()
	res := Result{
		RunID:          opts.RunID,
		Start:          h.Start(),
		InitialBalance: p.InitialBalance(),
	}

	log.Info().Str("start", h.Start().String()).Str("end", h.End().String()).
		Int("days", h.Len()).Str("strategy", opts.StrategyName).Msg("backtest started")

	for i, d := range h.Dates() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := r.day(ctx, d, opts.CloseEnd && i == h.Len()-1, &res, log); err != nil {
			return res, fmt.Errorf("backtest %s: %w", d, err)
		}
	}

	res.Signals = len(p.Signals())
	res.Orders = len(p.Orders())
	if err := r.journalRun(opts, res); err != nil {
		return res, err
	}

	log.Info().Int("captured", res.Captured).Int("gaps", len(res.Gaps)).
		Str("final_value", res.FinalValue.String()).Msg("backtest finished")
	return res, nil
}

func (r *Runner) day(ctx context.Context, d date.Date, closeAll bool, res *Result, log zerolog.Logger) error {
	p := r.Portfolio

	if err := r.Market.SetCurrentDate(d); err != nil {
		return err
	}
	signals, err := p.GenerateSignals(d)
	if err != nil {
		return err
	}
	orders, err := p.GenerateOrdersFromSignals(d, signals)
	if err != nil {
		return err
	}
	events, err := r.Exchange.Execute(ctx, d, orders, p)
	if err != nil {
		return err
	}
	if err := handle(p, events); err != nil {
		return err
	}

	if closeAll {
		events, err := r.Exchange.CloseAll(ctx, d, p)
		if err != nil {
			log.Warn().Err(err).Str("date", d.String()).Msg("close all left trades open")
		}
		if err := handle(p, events); err != nil {
			return err
		}
	}

	res.Days++
	res.End = d
	v, ok, err := p.CaptureDailyState(d)
	if err != nil {
		return err
	}
	if !ok {
		res.Gaps = append(res.Gaps, d)
		return nil
	}
	res.Captured++
	res.Final = v
	res.FinalValue = v.TotalValue

	log.Debug().Str("date", d.String()).Str("total_value", v.TotalValue.String()).
		Int("trades", v.NumTrades).Msg("day captured")

	if r.Journal == nil {
		return nil
	}
	return r.Journal.RecordValuation(journal.ValuationRecord{
		RunID:                 res.RunID,
		Date:                  v.Date,
		Balance:               v.Balance,
		MarginAccount:         v.MarginAccount,
		MarketValue:           v.MarketValue,
		TotalValue:            v.TotalValue,
		AssetsUnderManagement: v.AssetsUnderManagement,
		NumTrades:             v.NumTrades,
		NumShortTrades:        v.NumShortTrades,
	})
}

func handle(p *portfolio.Portfolio, events []strategy.Event) error {
	for _, e := range events {
		if err := p.HandleEvent(e); err != nil {
			return err
		}
	}
	return nil
}

// journalRun writes the ledger, the archives and finally the run header.
func (r *Runner) journalRun(opts RunnerOptions, res Result) error {
	if r.Journal == nil {
		return nil
	}
	p := r.Portfolio

	var errs []error
	for _, e := range p.Ledger().Entries() {
		errs = append(errs, r.Journal.RecordLedger(journal.LedgerRecord{
			RunID: res.RunID, Date: e.Date, Costs: e.Costs, Receipts: e.Receipts,
		}))
	}
	for _, s := range p.SignalTable() {
		errs = append(errs, r.Journal.RecordSignal(journal.SignalRecord{RunID: res.RunID, Signal: s}))
	}
	for _, o := range p.OrderTable() {
		errs = append(errs, r.Journal.RecordOrder(journal.OrderRecord{RunID: res.RunID, Order: o}))
	}

	end := res.End
	if last, ok := p.LastCaptured(); ok {
		end = last
	}
	errs = append(errs, r.Journal.RecordRun(journal.Run{
		RunID:          res.RunID,
		Created:        time.Now().UTC(),
		Strategy:       opts.StrategyName,
		Benchmark:      opts.Benchmark,
		Start:          res.Start,
		End:            end,
		InitialBalance: res.InitialBalance,
		FinalValue:     res.finalValue(),
		Config:         opts.Config,
	}))

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("backtest journal: %w", err)
	}
	return nil
}

// finalValue is the last captured total, or the initial balance when no
// day could be valued.
func (r Result) finalValue() decimal.Decimal {
	if r.Captured == 0 {
		return r.InitialBalance
	}
	return r.FinalValue
}
