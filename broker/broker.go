// Package broker describes the broker as the portfolio sees it: a registry
// of open trades, the events it emits and the account it settles against.
package broker

import (
	"errors"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

// ErrInsufficientFunds is returned by an Account that refuses a debit it
// cannot cover.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Broker exposes the trades currently open. The returned slice is a snapshot
// the caller may not mutate.
type Broker interface {
	ActiveTrades() []Trade
}

// Trade is a filled position. Amount is negative for shorts.
type Trade struct {
	ID        string
	OrderID   int
	SignalID  int
	Ticker    string
	Direction strategy.Direction
	Amount    float64
	FillPrice float64
	Date      date.Date

	// Exit triggers. Zero values are unset.
	StopLoss   float64
	TakeProfit float64
	Timeout    date.Date

	// Slippage is the total slippage cost of the fill in account currency.
	Slippage decimal.Decimal
}

// Account is the money surface a broker settles fills, costs and margin
// against. All amounts are non-negative.
type Account interface {
	strategy.Account

	ReceiveProceeds(d date.Date, amount decimal.Decimal) error
	ReceiveDividends(d date.Date, amount decimal.Decimal) error
	ReceiveInterest(d date.Date, amount decimal.Decimal) error

	Charge(d date.Date, amount decimal.Decimal) error
	ChargeCommission(d date.Date, amount decimal.Decimal) error
	ChargeMarginInterest(d date.Date, amount decimal.Decimal) error
	ChargeAccountInterest(d date.Date, amount decimal.Decimal) error
	ChargeMarginAccount(d date.Date, amount decimal.Decimal) error
	ChargeForDividends(d date.Date, amount decimal.Decimal) error

	UpdateMarginAccount(d date.Date, target decimal.Decimal) error
}

// TradesSettled is emitted after the broker fills orders.
type TradesSettled struct {
	On     date.Date
	Trades []Trade
}

func (e *TradesSettled) Date() date.Date { return e.On }

// OrdersCancelled is emitted for orders the broker refused or timed out.
type OrdersCancelled struct {
	On     date.Date
	Orders []strategy.Order
	Reason string
}

func (e *OrdersCancelled) Date() date.Date { return e.On }

// MarginRequirement carries the margin account size the broker requires at
// the end of a day given the open short positions.
type MarginRequirement struct {
	On       date.Date
	Required decimal.Decimal
}

func (e *MarginRequirement) Date() date.Date { return e.On }
