package portfolio

import (
	"fmt"
	"slices"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/rustyeddy/backtester/strategy"
)

// GenerateSignals asks the strategy for the signals of d and archives the
// ones not seen before. A signal id is archived at most once; the batch is
// returned unfiltered. A nil batch means the strategy had nothing to say.
func (p *Portfolio) GenerateSignals(d date.Date) (*strategy.SignalBatch, error) {
	batch, err := p.strategy.GenerateSignals(d, p.market)
	if err != nil {
		return nil, fmt.Errorf("generate signals %s: %w", d, err)
	}
	if batch == nil {
		return nil, nil
	}

	added := 0
	for _, s := range batch.Signals {
		if _, seen := p.seenSignals[s.SignalID]; seen {
			continue
		}
		p.seenSignals[s.SignalID] = struct{}{}
		p.signals = append(p.signals, s)
		added++
	}
	p.log.Debug().Str("date", d.String()).Int("signals", len(batch.Signals)).Int("archived", added).Msg("signals generated")
	return batch, nil
}

// GenerateOrdersFromSignals asks the strategy to size orders for batch and
// archives every order it returns. Orders are not deduplicated.
func (p *Portfolio) GenerateOrdersFromSignals(d date.Date, batch *strategy.SignalBatch) (*strategy.OrderBatch, error) {
	orders, err := p.strategy.GenerateOrdersFromSignals(p, batch)
	if err != nil {
		return nil, fmt.Errorf("generate orders %s: %w", d, err)
	}
	if orders == nil {
		return nil, nil
	}
	p.orders = append(p.orders, orders.Orders...)

	p.log.Debug().Str("date", d.String()).Int("orders", len(orders.Orders)).Msg("orders generated")
	return orders, nil
}

// HandleTradesEvent books the slippage of every settled trade on the
// trade's own date, then lets the strategy see the event. Either all
// slippage is booked or none is.
func (p *Portfolio) HandleTradesEvent(e *broker.TradesSettled) error {
	h := p.ledger.Horizon()
	for _, t := range e.Trades {
		if !h.Contains(t.Date) {
			return fmt.Errorf("trades event: trade %s on %s: %w", t.ID, t.Date, ledger.ErrDateOutOfRange)
		}
		if t.Slippage.IsNegative() {
			return fmt.Errorf("trades event: trade %s slippage %s: %w", t.ID, t.Slippage, ErrInvalidAmount)
		}
	}
	for _, t := range e.Trades {
		// cost recorded only; the fill price already carries slippage, no balance change.
		if err := p.ledger.AddCost(t.Date, ledger.Slippage, t.Slippage); err != nil {
			return fmt.Errorf("trades event: %w", err)
		}
	}

	if err := p.strategy.HandleEvent(p, e); err != nil {
		return fmt.Errorf("trades event %s: %w", e.On, err)
	}
	return nil
}

// HandleCancelledOrdersEvent forwards the event to the strategy.
func (p *Portfolio) HandleCancelledOrdersEvent(e *broker.OrdersCancelled) error {
	p.log.Info().Str("date", e.On.String()).Int("orders", len(e.Orders)).Str("reason", e.Reason).Msg("orders cancelled")
	if err := p.strategy.HandleEvent(p, e); err != nil {
		return fmt.Errorf("cancelled orders event %s: %w", e.On, err)
	}
	return nil
}

// HandleEvent dispatches a broker event to its handler. Events the
// portfolio has no use for go straight to the strategy.
func (p *Portfolio) HandleEvent(e strategy.Event) error {
	switch ev := e.(type) {
	case *broker.TradesSettled:
		return p.HandleTradesEvent(ev)
	case *broker.OrdersCancelled:
		return p.HandleCancelledOrdersEvent(ev)
	case *broker.MarginRequirement:
		return p.HandleMarginAccountUpdate(ev.On, ev.Required)
	default:
		return p.strategy.HandleEvent(p, e)
	}
}

// Signals returns the archived signals in the order they were first seen.
func (p *Portfolio) Signals() []strategy.Signal { return slices.Clone(p.signals) }

// Orders returns the archived orders in the order they were generated.
func (p *Portfolio) Orders() []strategy.Order { return slices.Clone(p.orders) }

// SignalTable returns the archived signals sorted by signal id.
func (p *Portfolio) SignalTable() []strategy.Signal {
	out := slices.Clone(p.signals)
	slices.SortStableFunc(out, func(a, b strategy.Signal) int { return a.SignalID - b.SignalID })
	return out
}

// OrderTable returns the archived orders sorted by order id. Orders
// sharing an id keep their generation order.
func (p *Portfolio) OrderTable() []strategy.Order {
	out := slices.Clone(p.orders)
	slices.SortStableFunc(out, func(a, b strategy.Order) int { return a.OrderID - b.OrderID })
	return out
}
