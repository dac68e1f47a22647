package sim

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/backtester/broker"
	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/market"
	"github.com/rustyeddy/backtester/portfolio"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = date.MustParse("2024-05-01")
	day2 = date.MustParse("2024-05-02")
	day3 = date.MustParse("2024-05-03")
)

type harness struct {
	ex    *Exchange
	p     *portfolio.Portfolio
	store *market.Store
}

func newHarness(t *testing.T, cfg Config, balance string, closes map[string][]float64) harness {
	t.Helper()

	h, err := date.Daily(day1, day3)
	require.NoError(t, err)
	store := market.NewStore(h)
	for ticker, cs := range closes {
		for i, c := range cs {
			store.AddBars(ticker, market.Bar{Date: h.At(i), Open: c, High: c, Low: c, Close: c})
		}
	}

	ex := NewExchange(store, cfg, zerolog.Nop())
	p, err := portfolio.New(store, ex, strategy.Noop{}, decimal.RequireFromString(balance))
	require.NoError(t, err)
	return harness{ex: ex, p: p, store: store}
}

func orders(d date.Date, os ...strategy.Order) *strategy.OrderBatch {
	return &strategy.OrderBatch{On: d, Orders: os}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s got %s", want, got)
}

func settledIn(t *testing.T, events []strategy.Event) []broker.Trade {
	t.Helper()
	for _, e := range events {
		if ts, ok := e.(*broker.TradesSettled); ok {
			return ts.Trades
		}
	}
	return nil
}

func TestLongRoundTrip(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 110, 110}})
	ctx := context.Background()

	events, err := h.ex.Execute(ctx, day1, orders(day1, strategy.Order{OrderID: 1, SignalID: 7, Ticker: "AAA", Amount: 10}), h.p)
	require.NoError(t, err)
	require.Len(t, events, 1)

	fills := settledIn(t, events)
	require.Len(t, fills, 1)
	assert.Equal(t, strategy.Long, fills[0].Direction)
	assert.Equal(t, 7, fills[0].SignalID)
	assert.Equal(t, 100.0, fills[0].FillPrice)
	assert.NotEmpty(t, fills[0].ID)
	assertDecimal(t, "9000", h.p.Balance())
	assert.Equal(t, 1, h.p.NumTrades())

	v, ok := h.p.TotalPortfolioValue(day2)
	require.True(t, ok)
	assertDecimal(t, "10100", v)

	events, err = h.ex.Execute(ctx, day2, orders(day2, strategy.Order{OrderID: 2, Ticker: "AAA", Amount: -10}), h.p)
	require.NoError(t, err)
	fills = settledIn(t, events)
	require.Len(t, fills, 1)
	assert.Equal(t, 2, fills[0].OrderID)
	assert.Equal(t, -10.0, fills[0].Amount)
	assertDecimal(t, "10100", h.p.Balance())
	assert.Empty(t, h.ex.ActiveTrades())

	e, err := h.p.Ledger().Entry(day2)
	require.NoError(t, err)
	assertDecimal(t, "1100", e.Receipts.Proceeds)
}

func TestCommissionAndSlippage(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{CommissionRate: 0.01, SlippageRate: 0.01}, "10000",
		map[string][]float64{"AAA": {100, 100, 100}})

	events, err := h.ex.Execute(context.Background(), day1,
		orders(day1, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 10}), h.p)
	require.NoError(t, err)

	fills := settledIn(t, events)
	require.Len(t, fills, 1)
	assert.InDelta(t, 101.0, fills[0].FillPrice, 1e-9)
	assertDecimal(t, "10", fills[0].Slippage)

	e, err := h.p.Ledger().Entry(day1)
	require.NoError(t, err)
	assertDecimal(t, "1010", e.Costs.Charged)
	assertDecimal(t, "10.1", e.Costs.Commission)
	assertDecimal(t, "8979.9", h.p.Balance())

	require.NoError(t, h.p.HandleEvent(events[0]))
	e, err = h.p.Ledger().Entry(day1)
	require.NoError(t, err)
	assertDecimal(t, "10", e.Costs.Slippage)
}

func TestShortProfit(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 90, 90}})
	ctx := context.Background()

	events, err := h.ex.Execute(ctx, day1, orders(day1, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: -10}), h.p)
	require.NoError(t, err)
	require.Len(t, events, 2)

	fills := settledIn(t, events)
	require.Len(t, fills, 1)
	assert.Equal(t, strategy.Short, fills[0].Direction)
	assertDecimal(t, "9500", h.p.Balance())
	assertDecimal(t, "500", h.p.MarginAccount())
	assert.Equal(t, 1, h.p.NumShortTrades())

	req, ok := events[1].(*broker.MarginRequirement)
	require.True(t, ok)
	assertDecimal(t, "300", req.Required)

	_, err = h.ex.Execute(ctx, day2, orders(day2, strategy.Order{OrderID: 2, Ticker: "AAA", Amount: 10}), h.p)
	require.NoError(t, err)
	assertDecimal(t, "10100", h.p.Balance())
	assert.True(t, h.p.MarginAccount().IsZero())
	assert.Empty(t, h.ex.ActiveTrades())
}

func TestShortLossComesOutOfMargin(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 120, 120}})
	ctx := context.Background()

	_, err := h.ex.Execute(ctx, day1, orders(day1, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: -10}), h.p)
	require.NoError(t, err)

	v, ok := h.p.TotalPortfolioValue(day2)
	require.True(t, ok)
	assertDecimal(t, "9800", v)

	_, err = h.ex.Execute(ctx, day2, orders(day2, strategy.Order{OrderID: 2, Ticker: "AAA", Amount: 10}), h.p)
	require.NoError(t, err)

	e, err := h.p.Ledger().Entry(day2)
	require.NoError(t, err)
	assertDecimal(t, "200", e.Costs.ShortLosses)
	assertDecimal(t, "9800", h.p.Balance())
	assert.True(t, h.p.MarginAccount().IsZero())
}

func TestCancellations(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "500", map[string][]float64{"AAA": {100, 100, 100}})

	events, err := h.ex.Execute(context.Background(), day2, orders(day2,
		strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 10},
		strategy.Order{OrderID: 2, Ticker: "ZZZ", Amount: 1},
		strategy.Order{OrderID: 3, Ticker: "AAA", Amount: 0},
		strategy.Order{OrderID: 4, Ticker: "AAA", Amount: 1, Timeout: day1},
		strategy.Order{OrderID: 5, Ticker: "AAA", Amount: -20},
	), h.p)
	require.NoError(t, err)
	require.Len(t, events, 5)

	want := map[int]string{
		1: ReasonInsufficientFunds,
		2: ReasonNoPrice,
		3: ReasonZeroAmount,
		4: ReasonTimedOut,
		5: ReasonInsufficientFunds,
	}
	for _, e := range events {
		c, ok := e.(*broker.OrdersCancelled)
		require.True(t, ok)
		require.Len(t, c.Orders, 1)
		assert.Equal(t, want[c.Orders[0].OrderID], c.Reason)
		assert.Equal(t, day2, c.Date())
	}
	assertDecimal(t, "500", h.p.Balance())
	assert.True(t, h.p.MarginAccount().IsZero())
	assert.Empty(t, h.ex.ActiveTrades())
}

func TestCloseOrderWithoutOpposingTradeIsCancelled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 94, 94}})
	ctx := context.Background()

	_, err := h.ex.Execute(ctx, day1, orders(day1,
		strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 10, StopLoss: 95}), h.p)
	require.NoError(t, err)

	// the stop exits the long before the close order is looked at
	events, err := h.ex.Execute(ctx, day2, orders(day2,
		strategy.Order{OrderID: 2, Ticker: "AAA", Amount: -10, Type: strategy.CloseOrder}), h.p)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Len(t, settledIn(t, events), 1)
	c, ok := events[1].(*broker.OrdersCancelled)
	require.True(t, ok)
	assert.Equal(t, ReasonNothingToClose, c.Reason)
	assert.Equal(t, 2, c.Orders[0].OrderID)

	assert.Empty(t, h.ex.ActiveTrades())
	assertDecimal(t, "9940", h.p.Balance())
	assert.True(t, h.p.MarginAccount().IsZero())
}

func TestCloseOrderClosesOpposingTrade(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 110, 110}})
	ctx := context.Background()

	_, err := h.ex.Execute(ctx, day1, orders(day1, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 10}), h.p)
	require.NoError(t, err)

	events, err := h.ex.Execute(ctx, day2, orders(day2,
		strategy.Order{OrderID: 2, Ticker: "AAA", Amount: -10, Type: strategy.CloseOrder}), h.p)
	require.NoError(t, err)
	fills := settledIn(t, events)
	require.Len(t, fills, 1)
	assert.Equal(t, 2, fills[0].OrderID)
	assert.Empty(t, h.ex.ActiveTrades())
	assertDecimal(t, "10100", h.p.Balance())
}

func TestExitTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		order strategy.Order
		day2  float64
		exits bool
	}{
		{"long stop loss", strategy.Order{Amount: 1, StopLoss: 95}, 94, true},
		{"long stop not hit", strategy.Order{Amount: 1, StopLoss: 95}, 96, false},
		{"long take profit", strategy.Order{Amount: 1, TakeProfit: 105}, 105, true},
		{"short stop loss", strategy.Order{Amount: -1, StopLoss: 105}, 106, true},
		{"short take profit", strategy.Order{Amount: -1, TakeProfit: 95}, 95, true},
		{"short take profit not hit", strategy.Order{Amount: -1, TakeProfit: 95}, 96, false},
		{"timeout", strategy.Order{Amount: 1, Timeout: day2}, 100, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, tt.day2, tt.day2}})
			o := tt.order
			o.OrderID, o.Ticker = 1, "AAA"

			_, err := h.ex.Execute(context.Background(), day1, orders(day1, o), h.p)
			require.NoError(t, err)
			require.Len(t, h.ex.ActiveTrades(), 1)

			events, err := h.ex.Execute(context.Background(), day2, nil, h.p)
			require.NoError(t, err)
			if tt.exits {
				assert.Empty(t, h.ex.ActiveTrades())
				assert.Len(t, settledIn(t, events), 1)
			} else {
				assert.Len(t, h.ex.ActiveTrades(), 1)
				assert.Empty(t, settledIn(t, events))
			}
		})
	}
}

func TestInterestAccrual(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{CashInterestRate: 0.365, MarginInterestRate: 0.365}, "10000",
		map[string][]float64{"AAA": {100, 100, 100}})

	_, err := h.ex.Execute(context.Background(), day1, nil, h.p)
	require.NoError(t, err)
	e, err := h.p.Ledger().Entry(day1)
	require.NoError(t, err)
	assertDecimal(t, "10", e.Receipts.Interest)
	assert.True(t, e.Costs.MarginInterest.IsZero())

	_, err = h.ex.Execute(context.Background(), day2,
		orders(day2, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: -10}), h.p)
	require.NoError(t, err)
	e, err = h.p.Ledger().Entry(day2)
	require.NoError(t, err)
	assertDecimal(t, "1", e.Costs.MarginInterest)
	assert.True(t, e.Receipts.Interest.IsPositive())
}

func TestCloseAll(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{
		"AAA": {100, 100, 110},
		"BBB": {50, 50, 40},
	})
	ctx := context.Background()

	_, err := h.ex.Execute(ctx, day1, orders(day1,
		strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 10},
		strategy.Order{OrderID: 2, Ticker: "BBB", Amount: -10},
	), h.p)
	require.NoError(t, err)
	require.Len(t, h.ex.ActiveTrades(), 2)

	events, err := h.ex.CloseAll(ctx, day3, h.p)
	require.NoError(t, err)
	assert.Len(t, settledIn(t, events), 2)
	assert.Empty(t, h.ex.ActiveTrades())

	// long +100, short +100
	assertDecimal(t, "10200", h.p.Balance().Add(h.p.MarginAccount()))
}

func TestCloseAllMissingPrice(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", map[string][]float64{"AAA": {100, 100}})
	_, err := h.ex.Execute(context.Background(), day1,
		orders(day1, strategy.Order{OrderID: 1, Ticker: "AAA", Amount: 1}), h.p)
	require.NoError(t, err)

	_, err = h.ex.CloseAll(context.Background(), day3, h.p)
	assert.ErrorIs(t, err, market.ErrMarketDataUnavailable)
	assert.Len(t, h.ex.ActiveTrades(), 1)
}

func TestExecuteCancelledContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t, Config{}, "10000", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.ex.Execute(ctx, day1, nil, h.p)
	assert.ErrorIs(t, err, context.Canceled)
}
