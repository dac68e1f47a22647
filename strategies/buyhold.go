package strategies

import (
	"math"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/strategy"
)

// BuyAndHold goes long every ticker on the first day it has a price and
// never sells. Cancelled orders are retried the next day.
type BuyAndHold struct {
	Tickers    []string
	Allocation float64 // fraction of balance invested; 0 means all of it

	held    map[string]bool
	pending map[string]bool
	closes  map[string]float64
	nextID  int
}

var _ strategy.Strategy = (*BuyAndHold)(nil)

func NewBuyAndHold(allocation float64, tickers ...string) *BuyAndHold {
	if allocation <= 0 || allocation > 1 {
		allocation = 1
	}
	return &BuyAndHold{
		Tickers:    tickers,
		Allocation: allocation,
		held:       make(map[string]bool),
		pending:    make(map[string]bool),
		closes:     make(map[string]float64),
	}
}

func (s *BuyAndHold) GenerateSignals(d date.Date, md market.Data) (*strategy.SignalBatch, error) {
	var signals []strategy.Signal
	for _, ticker := range s.Tickers {
		if s.held[ticker] || s.pending[ticker] {
			continue
		}
		bar, err := md.PriceFor(ticker, d)
		if err != nil {
			continue
		}
		s.closes[ticker] = bar.Close
		s.nextID++
		signals = append(signals, strategy.Signal{
			SignalID:     s.nextID,
			Ticker:       ticker,
			Direction:    strategy.Long,
			Certainty:    1,
			FeaturesDate: d,
		})
	}
	if len(signals) == 0 {
		return nil, nil
	}
	return &strategy.SignalBatch{On: d, Signals: signals}, nil
}

// GenerateOrdersFromSignals splits the allocated balance evenly across the
// tickers not yet bought and orders whole units of each.
func (s *BuyAndHold) GenerateOrdersFromSignals(acct strategy.Account, batch *strategy.SignalBatch) (*strategy.OrderBatch, error) {
	if batch == nil || len(batch.Signals) == 0 {
		return nil, nil
	}

	remaining := 0
	for _, ticker := range s.Tickers {
		if !s.held[ticker] {
			remaining++
		}
	}
	budget := acct.Balance().InexactFloat64() * s.Allocation / float64(max(remaining, 1))

	var orders []strategy.Order
	for _, sig := range batch.Signals {
		px := s.closes[sig.Ticker]
		if px <= 0 {
			continue
		}
		units := math.Floor(budget / px)
		if units <= 0 {
			continue
		}
		s.pending[sig.Ticker] = true
		orders = append(orders, strategy.Order{
			OrderID:   sig.SignalID,
			Date:      batch.On,
			Ticker:    sig.Ticker,
			Amount:    units,
			Direction: strategy.Long,
			Type:      strategy.MarketOrder,
			SignalID:  sig.SignalID,
		})
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &strategy.OrderBatch{On: batch.On, Orders: orders}, nil
}

func (s *BuyAndHold) HandleEvent(_ strategy.Account, e strategy.Event) error {
	switch ev := e.(type) {
	case *broker.TradesSettled:
		for _, t := range ev.Trades {
			s.held[t.Ticker] = t.Amount > 0
			delete(s.pending, t.Ticker)
		}
	case *broker.OrdersCancelled:
		for _, o := range ev.Orders {
			delete(s.pending, o.Ticker)
		}
	}
	return nil
}
