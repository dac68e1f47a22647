package portfolio

import (
	"errors"
	"testing"

	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/ledger"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/performance"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(d date.Date, close float64) market.Bar {
	return market.Bar{Date: d, Open: close, High: close, Low: close, Close: close}
}

func TestValueOfOpenPositionsLongAndShort(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "0")
	f.store.AddBars("LONG", bar(day1, 105))
	f.store.AddBars("SHORT", bar(day1, 95))

	f.brk.trades = []broker.Trade{{Ticker: "LONG", Direction: strategy.Long, Amount: 10, FillPrice: 100}}
	v, ok := f.p.ValueOfOpenPositions(day1)
	require.True(t, ok)
	assertDecimal(t, "1050", v)

	f.brk.trades = []broker.Trade{{Ticker: "SHORT", Direction: strategy.Short, Amount: -10, FillPrice: 100}}
	v, ok = f.p.ValueOfOpenPositions(day1)
	require.True(t, ok)
	assertDecimal(t, "50", v)

	f.brk.trades = []broker.Trade{
		{Ticker: "LONG", Direction: strategy.Long, Amount: 10, FillPrice: 100},
		{Ticker: "SHORT", Direction: strategy.Short, Amount: -10, FillPrice: 100},
	}
	v, ok = f.p.ValueOfOpenPositions(day1)
	require.True(t, ok)
	assertDecimal(t, "1100", v)

	aum, ok := f.p.AssetsUnderManagement(day1)
	require.True(t, ok)
	assertDecimal(t, "2000", aum)
}

func TestValuationUndeterminedOnMissingPrice(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "100")
	f.store.AddBars("AAA", bar(day1, 10))
	f.brk.trades = []broker.Trade{
		{Ticker: "AAA", Direction: strategy.Long, Amount: 1},
		{Ticker: "ZZZ", Direction: strategy.Long, Amount: 1},
	}

	_, ok := f.p.ValueOfOpenPositions(day1)
	assert.False(t, ok)
	_, ok = f.p.AssetsUnderManagement(day1)
	assert.False(t, ok)
	_, ok = f.p.TotalPortfolioValue(day1)
	assert.False(t, ok)

	v, ok, err := f.p.CaptureDailyState(day1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, DailyValuation{}, v)
	assert.Empty(t, f.p.Valuations())
	_, captured := f.p.LastCaptured()
	assert.False(t, captured)

	// the gap can be filled once the price shows up
	f.store.AddBars("ZZZ", bar(day1, 5))
	v, ok, err = f.p.CaptureDailyState(day1)
	require.NoError(t, err)
	require.True(t, ok)
	assertDecimal(t, "115", v.TotalValue)
}

func TestCaptureDailyStateRecordsTotal(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1000")
	f.store.AddBars("AAA", bar(day1, 20), bar(day2, 22))
	f.store.AddBars("BBB", bar(day1, 50), bar(day2, 45))
	f.brk.trades = []broker.Trade{
		{Ticker: "AAA", Direction: strategy.Long, Amount: 10, FillPrice: 20},
		{Ticker: "BBB", Direction: strategy.Short, Amount: -4, FillPrice: 50},
	}
	require.NoError(t, f.p.UpdateMarginAccount(day1, dec("100")))

	for _, d := range []date.Date{day1, day2} {
		v, ok, err := f.p.CaptureDailyState(d)
		require.NoError(t, err)
		require.True(t, ok)

		mv, ok := f.p.ValueOfOpenPositions(d)
		require.True(t, ok)
		assert.True(t, v.TotalValue.Equal(f.p.Balance().Add(f.p.MarginAccount()).Add(mv)))
		assert.Equal(t, 2, v.NumTrades)
		assert.Equal(t, 1, v.NumShortTrades)
	}

	v2, ok := f.p.Valuation(day2)
	require.True(t, ok)
	assertDecimal(t, "900", v2.Balance)
	assertDecimal(t, "100", v2.MarginAccount)
	assertDecimal(t, "240", v2.MarketValue)
	assertDecimal(t, "1240", v2.TotalValue)
	assertDecimal(t, "400", v2.AssetsUnderManagement)

	_, ok = f.p.Valuation(day3)
	assert.False(t, ok)

	last, ok := f.p.LastCaptured()
	require.True(t, ok)
	assert.Equal(t, day2, last)
	assert.Len(t, f.p.Valuations(), 2)
}

func TestCaptureDailyStateOrdering(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1000")

	_, ok, err := f.p.CaptureDailyState(day2)
	require.NoError(t, err)
	require.True(t, ok)

	_, _, err = f.p.CaptureDailyState(day2)
	assert.True(t, errors.Is(err, ErrAlreadyCaptured))

	_, _, err = f.p.CaptureDailyState(day1)
	assert.True(t, errors.Is(err, ErrOutOfOrder))

	_, _, err = f.p.CaptureDailyState(date.MustParse("2025-01-01"))
	assert.True(t, errors.Is(err, ledger.ErrDateOutOfRange))

	_, ok, err = f.p.CaptureDailyState(day3)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPerformanceInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1000")
	f.store.AddBars("SPY", bar(day1, 400), bar(day2, 404))
	f.store.SetRiskFreeRates(market.Monthly, []market.Rate{{Date: day1, Rate: 0.001}})

	_, err := f.p.Performance("SPY")
	assert.True(t, errors.Is(err, performance.ErrNoValuation))

	for _, d := range []date.Date{day1, day2} {
		_, ok, err := f.p.CaptureDailyState(d)
		require.NoError(t, err)
		require.True(t, ok)
	}

	in, err := f.p.PerformanceInput("SPY")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, in.Portfolio[day2])
	assert.Equal(t, 404.0, in.Benchmark[day2])
	assert.Equal(t, []float64{0.001}, in.RiskFree)
	assert.Equal(t, day2, in.LastCaptured)

	_, err = f.p.PerformanceInput("NOPE")
	assert.True(t, errors.Is(err, market.ErrUnknownTicker))

	a, err := f.p.Performance("SPY")
	require.NoError(t, err)
	r, err := a.ReturnOverPeriod(day1, day2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, r)
}
