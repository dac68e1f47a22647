// Package journal persists backtest runs: the run header, the daily
// valuations, the ledger and the signal and order archives.
package journal

import (
	"errors"
	"time"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Run is the header of one backtest.
type Run struct {
	RunID     string
	Created   time.Time
	Strategy  string
	Benchmark string

	Start date.Date
	End   date.Date

	InitialBalance decimal.Decimal
	FinalValue     decimal.Decimal

	// Config is the configuration the run was started with.
	Config []byte
}

type ValuationRecord struct {
	RunID                 string
	Date                  date.Date
	Balance               decimal.Decimal
	MarginAccount         decimal.Decimal
	MarketValue           decimal.Decimal
	TotalValue            decimal.Decimal
	AssetsUnderManagement decimal.Decimal
	NumTrades             int
	NumShortTrades        int
}

type LedgerRecord struct {
	RunID    string
	Date     date.Date
	Costs    ledger.Costs
	Receipts ledger.Receipts
}

type SignalRecord struct {
	RunID string
	strategy.Signal
}

type OrderRecord struct {
	RunID string
	strategy.Order
}

type Journal interface {
	RecordRun(Run) error
	RecordValuation(ValuationRecord) error
	RecordLedger(LedgerRecord) error
	RecordSignal(SignalRecord) error
	RecordOrder(OrderRecord) error
	Close() error
}
