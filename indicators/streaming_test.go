package indicators

import (
	"math"
	"testing"

	"github.com/rustyeddy/backtester/date"
	"github.com/rustyeddy/backtester/market"
	"github.com/stretchr/testify/assert"
)

func closes(cs ...float64) []market.Bar {
	d := date.MustParse("2024-01-01")
	out := make([]market.Bar, len(cs))
	for i, c := range cs {
		out[i] = market.Bar{Date: d.AddDays(i), Open: c, High: c, Low: c, Close: c}
	}
	return out
}

func TestSimpleMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108, 110)

	t.Run("basic functionality", func(t *testing.T) {
		ma := NewMA(3)
		assert.Equal(t, "MA(3)", ma.Name())
		assert.Equal(t, 3, ma.Warmup())
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())

		ma.Update(bars[0])
		ma.Update(bars[1])
		assert.False(t, ma.Ready())

		ma.Update(bars[2])
		assert.True(t, ma.Ready())
		assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma.Value(), 0.001)

		// Should use the last 3
		ma.Update(bars[3])
		assert.InDelta(t, (105.0+106.0+108.0)/3.0, ma.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ma := NewMA(2)
		ma.Update(bars[0])
		ma.Update(bars[1])
		assert.True(t, ma.Ready())

		ma.Reset()
		assert.False(t, ma.Ready())
		assert.Equal(t, 0.0, ma.Value())
	})
}

func TestExponentialMAStreaming(t *testing.T) {
	bars := closes(102, 105, 106, 108, 110, 111, 113)

	t.Run("basic functionality", func(t *testing.T) {
		ema := NewEMA(3)
		assert.Equal(t, "EMA(3)", ema.Name())
		assert.Equal(t, 3, ema.Warmup())
		assert.False(t, ema.Ready())
		assert.Equal(t, 0.0, ema.Value())

		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.False(t, ema.Ready())

		// Seeded with the SMA
		ema.Update(bars[2])
		assert.True(t, ema.Ready())
		sma := (102.0 + 105.0 + 106.0) / 3.0
		assert.InDelta(t, sma, ema.Value(), 0.001)

		// multiplier = 2/(3+1) = 0.5
		ema.Update(bars[3])
		assert.InDelta(t, (108.0-sma)*0.5+sma, ema.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ema := NewEMA(2)
		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.True(t, ema.Ready())

		ema.Reset()
		assert.False(t, ema.Ready())
		assert.Equal(t, 0.0, ema.Value())
	})
}

func TestAverageTrueRangeStreaming(t *testing.T) {
	bars := []market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	}

	t.Run("basic functionality", func(t *testing.T) {
		atr := NewATR(3)
		assert.Equal(t, "ATR(3)", atr.Name())
		assert.Equal(t, 4, atr.Warmup())
		assert.False(t, atr.Ready())
		assert.Equal(t, 0.0, atr.Value())

		atr.Update(bars[0])
		atr.Update(bars[1])
		atr.Update(bars[2])
		assert.False(t, atr.Ready())

		atr.Update(bars[3])
		assert.True(t, atr.Ready())
		// every true range is 2
		assert.InDelta(t, 2.0, atr.Value(), 0.001)

		atr.Update(bars[4])
		atr.Update(bars[5])
		assert.InDelta(t, 2.0, atr.Value(), 0.001)
	})

	t.Run("gap uses previous close", func(t *testing.T) {
		atr := NewATR(1)
		atr.Update(market.Bar{High: 10, Low: 9, Close: 10})
		atr.Update(market.Bar{High: 15, Low: 14, Close: 14})
		assert.InDelta(t, 5.0, atr.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		atr := NewATR(2)
		for _, b := range bars[:3] {
			atr.Update(b)
		}
		assert.True(t, atr.Ready())

		atr.Reset()
		assert.False(t, atr.Ready())
		assert.Equal(t, 0.0, atr.Value())
	})
}

func TestEWMStd(t *testing.T) {
	t.Run("constant growth has no dispersion", func(t *testing.T) {
		s := NewEWMStd(3)
		assert.Equal(t, "EWMStd(3)", s.Name())
		assert.Equal(t, 4, s.Warmup())

		c := 100.0
		for i := 0; i < 4; i++ {
			assert.False(t, s.Ready())
			s.Update(market.Bar{Close: c})
			c *= 1.01
		}
		assert.True(t, s.Ready())
		assert.InDelta(t, 0, s.Value(), 1e-12)
	})

	t.Run("alternating returns", func(t *testing.T) {
		s := NewEWMStd(1)
		for _, b := range closes(100, 110, 100) {
			s.Update(b)
		}
		// alpha = 1 discards history
		assert.InDelta(t, 0, s.Value(), 1e-12)

		s = NewEWMStd(3)
		for _, b := range closes(100, 110, 100, 110, 100, 110) {
			s.Update(b)
		}
		assert.True(t, s.Ready())
		assert.Greater(t, s.Value(), 0.05)
		assert.Less(t, s.Value(), 2*math.Log(1.1))
	})

	t.Run("non-positive close restarts the return chain", func(t *testing.T) {
		s := NewEWMStd(1)
		s.Update(market.Bar{Close: 0})
		s.Update(market.Bar{Close: 100})
		assert.False(t, s.Ready())
		s.Update(market.Bar{Close: 101})
		assert.True(t, s.Ready())
	})
}

func TestIndicatorInterface(t *testing.T) {
	bars := []market.Bar{
		{High: 105, Low: 99, Close: 102},
		{High: 107, Low: 101, Close: 105},
		{High: 108, Low: 104, Close: 106},
		{High: 110, Low: 105, Close: 108},
		{High: 112, Low: 107, Close: 104},
	}

	for _, ind := range []Indicator{NewMA(3), NewEMA(3), NewATR(2), NewEWMStd(2)} {
		assert.False(t, ind.Ready(), "indicator %s should not be ready initially", ind.Name())

		for _, b := range bars {
			ind.Update(b)
		}
		assert.True(t, ind.Ready(), "indicator %s should be ready after warmup", ind.Name())
		assert.Greater(t, ind.Value(), 0.0, "indicator %s should have positive value", ind.Name())

		ind.Reset()
		assert.False(t, ind.Ready(), "indicator %s should not be ready after reset", ind.Name())
	}
}
