// Package sim is a simulated exchange that fills market orders at the daily
// close and settles every fill against a broker.Account.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

// Cancellation reasons carried by broker.OrdersCancelled.
const (
	ReasonNoPrice           = "no price"
	ReasonInsufficientFunds = "insufficient funds"
	ReasonZeroAmount        = "zero amount"
	ReasonTimedOut          = "timed out"
	ReasonNothingToClose    = "nothing to close"
)

// Exit reasons logged when an open trade is closed by one of its triggers.
const (
	ExitStopLoss   = "stop loss"
	ExitTakeProfit = "take profit"
	ExitTimeout    = "timeout"
	ExitClose      = "close all"
)

// Config holds the exchange's cost model. Rates are fractions, e.g. 0.001
// is 10 basis points. Interest rates are annual and accrue per calendar day.
type Config struct {
	CommissionRate     float64 `json:"commission_rate" yaml:"commission_rate" toml:"commission_rate"`
	SlippageRate       float64 `json:"slippage_rate" yaml:"slippage_rate" toml:"slippage_rate"`
	MarginInterestRate float64 `json:"margin_interest_rate" yaml:"margin_interest_rate" toml:"margin_interest_rate"`
	CashInterestRate   float64 `json:"cash_interest_rate" yaml:"cash_interest_rate" toml:"cash_interest_rate"`
}

// Exchange fills orders against a market.Data at the close of the day they
// are executed on. Long fills pay close plus slippage and short fills
// receive close minus slippage; exits are the reverse.
type Exchange struct {
	mu      sync.Mutex
	market  market.Data
	blotter *broker.Blotter
	cfg     Config
	log     zerolog.Logger
}

var _ broker.Broker = (*Exchange)(nil)

func NewExchange(md market.Data, cfg Config, log zerolog.Logger) *Exchange {
	return &Exchange{
		market:  md,
		blotter: broker.NewBlotter(),
		cfg:     cfg,
		log:     log.With().Str("component", "exchange").Logger(),
	}
}

func (e *Exchange) ActiveTrades() []broker.Trade {
	return e.blotter.ActiveTrades()
}

// Execute runs one simulated day. Open trades whose exit triggers fired are
// closed first, then the batch is filled in order and interest accrues.
// The returned events are, in order: the settled trades, one cancellation
// per refused order and the end of day margin requirement. A nil batch is
// a day without orders.
func (e *Exchange) Execute(ctx context.Context, d date.Date, batch *strategy.OrderBatch, acct broker.Account) ([]strategy.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var settled []broker.Trade
	var events []strategy.Event

	exits, err := e.exitTriggeredLocked(d, acct)
	if err != nil {
		return nil, err
	}
	settled = append(settled, exits...)

	if batch != nil {
		for _, o := range batch.Orders {
			fill, reason, err := e.fillLocked(d, o, acct)
			if err != nil {
				return nil, fmt.Errorf("execute order %d: %w", o.OrderID, err)
			}
			if reason != "" {
				e.log.Info().Str("date", d.String()).Int("order_id", o.OrderID).
					Str("ticker", o.Ticker).Str("reason", reason).Msg("order cancelled")
				events = append(events, &broker.OrdersCancelled{On: d, Orders: []strategy.Order{o}, Reason: reason})
				continue
			}
			settled = append(settled, fill)
		}
	}

	if err := e.accrueInterestLocked(d, acct); err != nil {
		return nil, err
	}

	if len(settled) > 0 {
		events = append([]strategy.Event{&broker.TradesSettled{On: d, Trades: settled}}, events...)
	}
	if req, ok := e.marginRequirementLocked(d, acct); ok {
		events = append(events, &broker.MarginRequirement{On: d, Required: req})
	}
	return events, nil
}

// CloseAll closes every open trade at d's close. Trades without a price on
// d stay open and are reported in the returned error.
func (e *Exchange) CloseAll(ctx context.Context, d date.Date, acct broker.Account) ([]strategy.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var settled []broker.Trade
	var missing []error
	for _, t := range e.blotter.ActiveTrades() {
		bar, err := e.market.PriceFor(t.Ticker, d)
		if err != nil {
			missing = append(missing, fmt.Errorf("close %s: %w", t.ID, err))
			continue
		}
		fill, err := e.closeLocked(d, t, bar.Close, ExitClose, acct)
		if err != nil {
			return nil, err
		}
		settled = append(settled, fill)
	}

	var events []strategy.Event
	if len(settled) > 0 {
		events = append(events, &broker.TradesSettled{On: d, Trades: settled})
	}
	if req, ok := e.marginRequirementLocked(d, acct); ok {
		events = append(events, &broker.MarginRequirement{On: d, Required: req})
	}
	return events, errors.Join(missing...)
}

func (e *Exchange) exitTriggeredLocked(d date.Date, acct broker.Account) ([]broker.Trade, error) {
	var out []broker.Trade
	for _, t := range e.blotter.ActiveTrades() {
		bar, err := e.market.PriceFor(t.Ticker, d)
		if err != nil {
			continue
		}
		reason := exitReason(t, d, bar.Close)
		if reason == "" {
			continue
		}
		fill, err := e.closeLocked(d, t, bar.Close, reason, acct)
		if err != nil {
			return nil, err
		}
		out = append(out, fill)
	}
	return out, nil
}

func exitReason(t broker.Trade, d date.Date, px float64) string {
	if !t.Timeout.IsZero() && !d.Before(t.Timeout) {
		return ExitTimeout
	}
	if t.Amount > 0 {
		if t.StopLoss > 0 && px <= t.StopLoss {
			return ExitStopLoss
		}
		if t.TakeProfit > 0 && px >= t.TakeProfit {
			return ExitTakeProfit
		}
		return ""
	}
	if t.StopLoss > 0 && px >= t.StopLoss {
		return ExitStopLoss
	}
	if t.TakeProfit > 0 && px <= t.TakeProfit {
		return ExitTakeProfit
	}
	return ""
}

// fillLocked returns the settled trade, or a non-empty reason when the
// order is cancelled. An error means the account rejected a booking for
// something other than funds and the day cannot continue.
func (e *Exchange) fillLocked(d date.Date, o strategy.Order, acct broker.Account) (broker.Trade, string, error) {
	if o.Amount == 0 {
		return broker.Trade{}, ReasonZeroAmount, nil
	}
	if !o.Timeout.IsZero() && d.After(o.Timeout) {
		return broker.Trade{}, ReasonTimedOut, nil
	}
	bar, err := e.market.PriceFor(o.Ticker, d)
	if err != nil {
		return broker.Trade{}, ReasonNoPrice, nil
	}

	if open, ok := e.opposingLocked(o); ok {
		fill, err := e.closeLocked(d, open, bar.Close, "order", acct)
		if err != nil {
			return broker.Trade{}, "", err
		}
		fill.OrderID, fill.SignalID = o.OrderID, o.SignalID
		return fill, "", nil
	}
	if o.Type == strategy.CloseOrder {
		return broker.Trade{}, ReasonNothingToClose, nil
	}

	qty := math.Abs(o.Amount)
	slip := bar.Close * e.cfg.SlippageRate
	t := broker.Trade{
		OrderID:    o.OrderID,
		SignalID:   o.SignalID,
		Ticker:     o.Ticker,
		Amount:     o.Amount,
		Date:       d,
		StopLoss:   o.StopLoss,
		TakeProfit: o.TakeProfit,
		Timeout:    o.Timeout,
		Slippage:   money(qty * slip),
	}

	if o.Amount > 0 {
		t.Direction = strategy.Long
		t.FillPrice = bar.Close + slip
		if err := acct.Charge(d, money(qty*t.FillPrice)); err != nil {
			if errors.Is(err, broker.ErrInsufficientFunds) {
				return broker.Trade{}, ReasonInsufficientFunds, nil
			}
			return broker.Trade{}, "", err
		}
	} else {
		t.Direction = strategy.Short
		t.FillPrice = bar.Close - slip
		required := money(qty * t.FillPrice * acct.InitialMarginRequirement())
		if err := acct.UpdateMarginAccount(d, decimal.Max(acct.MarginAccount(), decimal.Zero).Add(required)); err != nil {
			if errors.Is(err, broker.ErrInsufficientFunds) {
				return broker.Trade{}, ReasonInsufficientFunds, nil
			}
			return broker.Trade{}, "", err
		}
	}

	if err := e.chargeCommission(d, qty*t.FillPrice, acct); err != nil {
		return broker.Trade{}, "", err
	}

	id, err := e.blotter.Open(t)
	if err != nil {
		return broker.Trade{}, "", err
	}
	t.ID = id

	e.log.Debug().Str("date", d.String()).Str("trade_id", id).Str("ticker", t.Ticker).
		Str("direction", t.Direction.String()).Float64("amount", t.Amount).
		Float64("price", t.FillPrice).Msg("trade opened")
	return t, "", nil
}

// opposingLocked finds the oldest open trade on o's ticker pointing the
// other way.
func (e *Exchange) opposingLocked(o strategy.Order) (broker.Trade, bool) {
	for _, t := range e.blotter.ActiveTrades() {
		if t.Ticker == o.Ticker && (t.Amount > 0) != (o.Amount > 0) {
			return t, true
		}
	}
	return broker.Trade{}, false
}

// closeLocked exits t at close and books the result. Long exits receive the
// sale proceeds. Short exits realize their profit into balance or their
// loss out of the margin account, then release margin no longer needed by
// the remaining shorts.
func (e *Exchange) closeLocked(d date.Date, t broker.Trade, px float64, reason string, acct broker.Account) (broker.Trade, error) {
	if _, err := e.blotter.Close(t.ID); err != nil {
		return broker.Trade{}, err
	}

	qty := math.Abs(t.Amount)
	slip := px * e.cfg.SlippageRate
	fill := t
	fill.Date = d
	fill.Amount = -t.Amount
	fill.Slippage = money(qty * slip)

	if t.Amount > 0 {
		fill.Direction = strategy.Short
		fill.FillPrice = px - slip
		if err := acct.ReceiveProceeds(d, money(qty*fill.FillPrice)); err != nil {
			return broker.Trade{}, err
		}
	} else {
		fill.Direction = strategy.Long
		fill.FillPrice = px + slip
		pnl := money(qty * (t.FillPrice - fill.FillPrice))
		if pnl.IsNegative() {
			if err := acct.ChargeMarginAccount(d, pnl.Neg()); err != nil {
				return broker.Trade{}, err
			}
		} else if pnl.IsPositive() {
			if err := acct.ReceiveProceeds(d, pnl); err != nil {
				return broker.Trade{}, err
			}
		}
		if err := e.releaseMarginLocked(d, acct); err != nil {
			return broker.Trade{}, err
		}
	}

	if err := e.chargeCommission(d, qty*fill.FillPrice, acct); err != nil {
		return broker.Trade{}, err
	}

	e.log.Debug().Str("date", d.String()).Str("trade_id", t.ID).Str("ticker", t.Ticker).
		Str("reason", reason).Float64("price", fill.FillPrice).Msg("trade closed")
	return fill, nil
}

// releaseMarginLocked shrinks the margin account to what the open shorts
// still require at their fill prices. It never grows it.
func (e *Exchange) releaseMarginLocked(d date.Date, acct broker.Account) error {
	var notional float64
	for _, t := range e.blotter.ActiveTrades() {
		if t.Amount < 0 {
			notional += -t.Amount * t.FillPrice
		}
	}
	target := money(notional * acct.MaintenanceMarginRequirement())
	if !target.LessThan(acct.MarginAccount()) {
		return nil
	}
	return acct.UpdateMarginAccount(d, target)
}

func (e *Exchange) chargeCommission(d date.Date, notional float64, acct broker.Account) error {
	c := money(notional * e.cfg.CommissionRate)
	if !c.IsPositive() {
		return nil
	}
	return acct.ChargeCommission(d, c)
}

// accrueInterestLocked charges one day of interest on the short notional
// and pays one day of interest on a positive cash balance.
func (e *Exchange) accrueInterestLocked(d date.Date, acct broker.Account) error {
	if e.cfg.MarginInterestRate > 0 {
		var notional float64
		for _, t := range e.blotter.ActiveTrades() {
			if t.Amount < 0 {
				notional += -t.Amount * t.FillPrice
			}
		}
		if c := money(notional * e.cfg.MarginInterestRate / 365); c.IsPositive() {
			if err := acct.ChargeMarginInterest(d, c); err != nil {
				return err
			}
		}
	}
	if e.cfg.CashInterestRate > 0 && acct.Balance().IsPositive() {
		daily := decimal.NewFromFloat(e.cfg.CashInterestRate / 365)
		if r := acct.Balance().Mul(daily).Round(moneyPlaces); r.IsPositive() {
			if err := acct.ReceiveInterest(d, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// marginRequirementLocked values the open shorts at d's close. Without
// shorts the requirement is zero, reported only when there is margin left
// to release. A short without a price on d makes the requirement unknown.
func (e *Exchange) marginRequirementLocked(d date.Date, acct broker.Account) (decimal.Decimal, bool) {
	var notional float64
	shorts := 0
	for _, t := range e.blotter.ActiveTrades() {
		if t.Amount >= 0 {
			continue
		}
		bar, err := e.market.PriceFor(t.Ticker, d)
		if err != nil {
			e.log.Warn().Str("date", d.String()).Str("ticker", t.Ticker).Msg("no price for margin requirement")
			return decimal.Zero, false
		}
		notional += -t.Amount * bar.Close
		shorts++
	}
	if shorts == 0 {
		return decimal.Zero, !acct.MarginAccount().IsZero()
	}
	return money(notional * acct.MaintenanceMarginRequirement()), true
}

const moneyPlaces = 6

func money(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x).Round(moneyPlaces)
}
