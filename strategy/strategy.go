// Package strategy defines what a trading strategy looks like to the
// portfolio: signals, orders and the callbacks it receives.
package strategy

import (
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/market"
	"github.com/shopspring/decimal"
)

// Event is anything that happened on a simulated date and may interest a
// strategy: signal and order batches, settled trades, cancelled orders.
type Event interface {
	Date() date.Date
}

// Account is the read-only view of the portfolio a strategy sizes orders with.
type Account interface {
	Balance() decimal.Decimal
	MarginAccount() decimal.Decimal
	InitialMarginRequirement() float64
	MaintenanceMarginRequirement() float64
	NumTrades() int
	NumShortTrades() int
}

// Strategy turns market data into signals and signals into orders. A nil
// batch with a nil error means there was nothing to do.
type Strategy interface {
	GenerateSignals(d date.Date, md market.Data) (*SignalBatch, error)
	GenerateOrdersFromSignals(acct Account, batch *SignalBatch) (*OrderBatch, error)
	HandleEvent(acct Account, e Event) error
}

// Noop never trades.
type Noop struct{}

var _ Strategy = Noop{}

func (Noop) GenerateSignals(date.Date, market.Data) (*SignalBatch, error) { return nil, nil }

func (Noop) GenerateOrdersFromSignals(Account, *SignalBatch) (*OrderBatch, error) { return nil, nil }

func (Noop) HandleEvent(Account, Event) error { return nil }
