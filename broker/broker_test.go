package broker

import (
	"testing"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlotterOpenClose(t *testing.T) {
	t.Parallel()

	b := NewBlotter()
	d := date.MustParse("2024-01-02")

	id1, err := b.Open(Trade{Ticker: "AAPL", Direction: strategy.Long, Amount: 10, FillPrice: 100, Date: d})
	require.NoError(t, err)
	assert.NotEmpty(t, id1)

	id2, err := b.Open(Trade{ID: "T2", Ticker: "MSFT", Direction: strategy.Short, Amount: -5, FillPrice: 50, Date: d})
	require.NoError(t, err)
	assert.Equal(t, "T2", id2)

	_, err = b.Open(Trade{ID: "T2"})
	assert.Error(t, err)

	active := b.ActiveTrades()
	require.Len(t, active, 2)
	assert.Equal(t, "AAPL", active[0].Ticker)
	assert.Equal(t, "MSFT", active[1].Ticker)

	closed, err := b.Close(id1)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", closed.Ticker)

	active = b.ActiveTrades()
	require.Len(t, active, 1)
	assert.Equal(t, "T2", active[0].ID)

	_, err = b.Close(id1)
	assert.Error(t, err)
}

func TestActiveTradesIsSnapshot(t *testing.T) {
	t.Parallel()

	b := NewBlotter()
	_, err := b.Open(Trade{ID: "T1", Amount: 1})
	require.NoError(t, err)

	snap := b.ActiveTrades()
	snap[0].Amount = 99

	assert.Equal(t, 1.0, b.ActiveTrades()[0].Amount)
}

func TestEventsCarryDate(t *testing.T) {
	t.Parallel()

	d := date.MustParse("2024-06-28")
	events := []strategy.Event{
		&TradesSettled{On: d},
		&OrdersCancelled{On: d},
		&MarginRequirement{On: d},
	}
	for _, e := range events {
		assert.Equal(t, d, e.Date())
	}
}
