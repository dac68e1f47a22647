// Package portfolio is the bookkeeping core of a backtest. A Portfolio owns
// the cash balance, the margin account, the ledger of costs and receipts,
// the archives of signals and orders, and the daily valuation series.
//
// Every operation takes the simulated date explicitly. The caller drives the
// day in a fixed order (signals, orders, trade settlement, margin
// reconciliation, state capture) and never re-enters a finished day.
// A Portfolio is not safe for concurrent use.
package portfolio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = broker.ErrInsufficientFunds
	ErrAlreadyCaptured   = errors.New("daily state already captured")
	ErrOutOfOrder        = errors.New("date precedes last captured date")
)

const (
	DefaultInitialMarginRequirement     = 0.5
	DefaultMaintenanceMarginRequirement = 0.3
)

type Portfolio struct {
	market   market.Data
	broker   broker.Broker
	strategy strategy.Strategy
	log      zerolog.Logger

	initialBalance decimal.Decimal
	balance        decimal.Decimal
	marginAccount  decimal.Decimal

	initialMarginRequirement     float64
	maintenanceMarginRequirement float64

	ledger *ledger.Ledger

	valuations   []DailyValuation
	captured     []bool
	lastCaptured date.Date

	signals     []strategy.Signal
	seenSignals map[int]struct{}
	orders      []strategy.Order
}

var (
	_ strategy.Account = (*Portfolio)(nil)
	_ broker.Account   = (*Portfolio)(nil)
)

type Option func(*Portfolio)

func WithLogger(log zerolog.Logger) Option {
	return func(p *Portfolio) { p.log = log }
}

func WithInitialMarginRequirement(r float64) Option {
	return func(p *Portfolio) { p.initialMarginRequirement = r }
}

func WithMaintenanceMarginRequirement(r float64) Option {
	return func(p *Portfolio) { p.maintenanceMarginRequirement = r }
}

// New creates a portfolio holding balance in cash and an empty margin
// account. Ledger and valuation rows are allocated for every date of the
// market data horizon.
func New(md market.Data, b broker.Broker, s strategy.Strategy, balance decimal.Decimal, opts ...Option) (*Portfolio, error) {
	if md == nil {
		return nil, fmt.Errorf("portfolio: market data is required")
	}
	if b == nil {
		return nil, fmt.Errorf("portfolio: broker is required")
	}
	if s == nil {
		return nil, fmt.Errorf("portfolio: strategy is required")
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("portfolio: initial balance %s: %w", balance, ErrInvalidAmount)
	}

	h := md.Horizon()
	p := &Portfolio{
		market:                       md,
		broker:                       b,
		strategy:                     s,
		log:                          zerolog.Nop(),
		initialBalance:               balance,
		balance:                      balance,
		initialMarginRequirement:     DefaultInitialMarginRequirement,
		maintenanceMarginRequirement: DefaultMaintenanceMarginRequirement,
		ledger:                       ledger.New(h),
		valuations:                   make([]DailyValuation, h.Len()),
		captured:                     make([]bool, h.Len()),
		seenSignals:                  make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Portfolio) InitialBalance() decimal.Decimal { return p.initialBalance }
func (p *Portfolio) Balance() decimal.Decimal        { return p.balance }
func (p *Portfolio) MarginAccount() decimal.Decimal  { return p.marginAccount }
func (p *Portfolio) Ledger() *ledger.Ledger          { return p.ledger }
func (p *Portfolio) Horizon() *date.Horizon          { return p.ledger.Horizon() }

func (p *Portfolio) InitialMarginRequirement() float64 { return p.initialMarginRequirement }

func (p *Portfolio) MaintenanceMarginRequirement() float64 {
	return p.maintenanceMarginRequirement
}

// NumTrades is the number of trades the broker has open.
func (p *Portfolio) NumTrades() int { return len(p.broker.ActiveTrades()) }

// NumShortTrades is the number of open short trades.
func (p *Portfolio) NumShortTrades() int {
	n := 0
	for _, t := range p.broker.ActiveTrades() {
		if t.Direction == strategy.Short {
			n++
		}
	}
	return n
}

func validAmount(op string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%s: amount %s: %w", op, amount, ErrInvalidAmount)
	}
	return nil
}
