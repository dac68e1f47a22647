package portfolio

import (
	"fmt"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
)

// DailyValuation is the end-of-day snapshot of the portfolio.
type DailyValuation struct {
	Date                  date.Date
	Balance               decimal.Decimal
	MarginAccount         decimal.Decimal
	MarketValue           decimal.Decimal
	TotalValue            decimal.Decimal
	AssetsUnderManagement decimal.Decimal
	NumTrades             int
	NumShortTrades        int
}

// positionValue is what an open trade contributes to the portfolio at
// close. A long is worth its mark. A short contributes its loss so far,
// since the sale proceeds are already in balance.
func positionValue(t broker.Trade, close decimal.Decimal) decimal.Decimal {
	amount := decimal.NewFromFloat(t.Amount)
	switch t.Direction {
	case strategy.Long:
		return amount.Mul(close)
	case strategy.Short:
		return amount.Abs().Mul(decimal.NewFromFloat(t.FillPrice).Sub(close))
	}
	return decimal.Zero
}

// markTrades sums fn over every open trade marked at the close of d. It
// reports false if any ticker has no price on d.
func (p *Portfolio) markTrades(d date.Date, fn func(broker.Trade, decimal.Decimal) decimal.Decimal) (decimal.Decimal, bool) {
	total := decimal.Zero
	for _, t := range p.broker.ActiveTrades() {
		bar, err := p.market.PriceFor(t.Ticker, d)
		if err != nil {
			p.log.Warn().Err(err).Str("date", d.String()).Str("ticker", t.Ticker).Msg("valuation undetermined")
			return decimal.Zero, false
		}
		total = total.Add(fn(t, decimal.NewFromFloat(bar.Close)))
	}
	return total, true
}

// ValueOfOpenPositions marks every open trade at the close of d.
func (p *Portfolio) ValueOfOpenPositions(d date.Date) (decimal.Decimal, bool) {
	return p.markTrades(d, positionValue)
}

// AssetsUnderManagement is the gross exposure of the open trades at the
// close of d, shorts counted at their absolute value.
func (p *Portfolio) AssetsUnderManagement(d date.Date) (decimal.Decimal, bool) {
	return p.markTrades(d, func(t broker.Trade, close decimal.Decimal) decimal.Decimal {
		return decimal.NewFromFloat(t.Amount).Abs().Mul(close)
	})
}

// TotalPortfolioValue is balance plus margin account plus the value of the
// open positions at the close of d.
func (p *Portfolio) TotalPortfolioValue(d date.Date) (decimal.Decimal, bool) {
	mv, ok := p.ValueOfOpenPositions(d)
	if !ok {
		return decimal.Zero, false
	}
	return p.balance.Add(p.marginAccount).Add(mv), true
}

// CaptureDailyState records the valuation of d. Dates must be captured in
// order and only once. When a price is missing nothing is recorded, false
// is returned and d may be captured again later.
func (p *Portfolio) CaptureDailyState(d date.Date) (DailyValuation, bool, error) {
	i, ok := p.ledger.Horizon().Index(d)
	if !ok {
		return DailyValuation{}, false, fmt.Errorf("capture %s: %w", d, ledger.ErrDateOutOfRange)
	}
	if p.captured[i] {
		return DailyValuation{}, false, fmt.Errorf("capture %s: %w", d, ErrAlreadyCaptured)
	}
	if !p.lastCaptured.IsZero() && d.Before(p.lastCaptured) {
		return DailyValuation{}, false, fmt.Errorf("capture %s after %s: %w", d, p.lastCaptured, ErrOutOfOrder)
	}

	mv, ok := p.ValueOfOpenPositions(d)
	if !ok {
		return DailyValuation{}, false, nil
	}
	aum, ok := p.AssetsUnderManagement(d)
	if !ok {
		return DailyValuation{}, false, nil
	}

	v := DailyValuation{
		Date:                  d,
		Balance:               p.balance,
		MarginAccount:         p.marginAccount,
		MarketValue:           mv,
		TotalValue:            p.balance.Add(p.marginAccount).Add(mv),
		AssetsUnderManagement: aum,
		NumTrades:             p.NumTrades(),
		NumShortTrades:        p.NumShortTrades(),
	}
	p.valuations[i] = v
	p.captured[i] = true
	p.lastCaptured = d

	p.log.Debug().Str("date", d.String()).Str("total", v.TotalValue.String()).
		Str("balance", v.Balance.String()).Str("aum", aum.String()).Msg("daily state captured")
	return v, true, nil
}

// Valuation returns the captured state of d.
func (p *Portfolio) Valuation(d date.Date) (DailyValuation, bool) {
	i, ok := p.ledger.Horizon().Index(d)
	if !ok || !p.captured[i] {
		return DailyValuation{}, false
	}
	return p.valuations[i], true
}

// Valuations returns every captured state in date order.
func (p *Portfolio) Valuations() []DailyValuation {
	var out []DailyValuation
	for i, ok := range p.captured {
		if ok {
			out = append(out, p.valuations[i])
		}
	}
	return out
}

// LastCaptured is the latest captured date. It reports false before the
// first capture.
func (p *Portfolio) LastCaptured() (date.Date, bool) {
	return p.lastCaptured, !p.lastCaptured.IsZero()
}
