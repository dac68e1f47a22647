package strategy

import (
	"testing"

	"github.com/rustyeddy/backtester/date"
	"github.com/stretchr/testify/assert"
)

func TestNoopStrategy(t *testing.T) {
	t.Parallel()

	var s Strategy = Noop{}
	d := date.MustParse("2024-01-02")

	signals, err := s.GenerateSignals(d, nil)
	assert.NoError(t, err)
	assert.Nil(t, signals)

	orders, err := s.GenerateOrdersFromSignals(nil, &SignalBatch{On: d})
	assert.NoError(t, err)
	assert.Nil(t, orders)

	assert.NoError(t, s.HandleEvent(nil, &OrderBatch{On: d}))
}

func TestDirectionString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "short", Short.String())
	assert.Equal(t, "flat", Direction(0).String())
}

func TestBatchesAreEvents(t *testing.T) {
	t.Parallel()

	d := date.MustParse("2024-03-04")
	for _, e := range []Event{&SignalBatch{On: d}, &OrderBatch{On: d}} {
		assert.Equal(t, d, e.Date())
	}
}
