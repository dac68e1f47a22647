package market

import (
	"errors"
	"strings"
	"testing"

	"github.com/rustyeddy/backtester/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	h, err := date.Daily(date.MustParse("2024-01-01"), date.MustParse("2024-01-05"))
	require.NoError(t, err)
	return NewStore(h)
}

func TestStorePriceFor(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	d := date.MustParse("2024-01-02")
	s.AddBars("AAPL", Bar{Date: d, Close: 105})

	b, err := s.PriceFor("AAPL", d)
	require.NoError(t, err)
	assert.Equal(t, 105.0, b.Close)

	_, err = s.PriceFor("AAPL", date.MustParse("2024-01-03"))
	assert.True(t, errors.Is(err, ErrMarketDataUnavailable))

	_, err = s.PriceFor("MSFT", d)
	assert.True(t, errors.Is(err, ErrMarketDataUnavailable))
}

func TestStoreSeriesForIsOrdered(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.AddBars("SPX",
		Bar{Date: date.MustParse("2024-01-03"), Close: 3},
		Bar{Date: date.MustParse("2024-01-01"), Close: 1},
		Bar{Date: date.MustParse("2024-01-02"), Close: 2},
	)

	series, err := s.SeriesFor("SPX")
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{series[0].Close, series[1].Close, series[2].Close})

	_, err = s.SeriesFor("NOPE")
	assert.True(t, errors.Is(err, ErrUnknownTicker))
}

func TestStoreCurrentDate(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	assert.Equal(t, s.Start(), s.CurrentDate())

	require.NoError(t, s.SetCurrentDate(date.MustParse("2024-01-04")))
	assert.Equal(t, date.MustParse("2024-01-04"), s.CurrentDate())

	assert.Error(t, s.SetCurrentDate(date.MustParse("2024-02-01")))
	assert.Equal(t, date.MustParse("2024-01-04"), s.CurrentDate())
}

func TestStoreRiskFreeRates(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	s.SetRiskFreeRates(Monthly, []Rate{
		{Date: date.MustParse("2024-02-01"), Rate: 0.002},
		{Date: date.MustParse("2024-01-01"), Rate: 0.001},
	})

	rates := s.RiskFreeRates(Monthly)
	require.Len(t, rates, 2)
	assert.Equal(t, 0.001, rates[0].Rate)
	assert.Empty(t, s.RiskFreeRates(Daily))
}

func TestReadBars(t *testing.T) {
	t.Parallel()

	in := "date,open,high,low,close,volume\n" +
		"2024-01-02,1,2,0.5,1.5,100\n" +
		"2024-01-03,1.5,2.5,1,2\n"

	bars, err := ReadBars(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, Bar{Date: date.MustParse("2024-01-02"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100}, bars[0])
	assert.Equal(t, 2.0, bars[1].Close)
	assert.Equal(t, 0.0, bars[1].Volume)

	_, err = ReadBars(strings.NewReader("2024-01-02,1,2\n"))
	assert.Error(t, err)

	_, err = ReadBars(strings.NewReader("2024-01-02,1,2,x,4\n"))
	assert.Error(t, err)
}

func TestReadRates(t *testing.T) {
	t.Parallel()

	rates, err := ReadRates(strings.NewReader("date,rate\n2024-01-31,0.0015\n"))
	require.NoError(t, err)
	assert.Equal(t, []Rate{{Date: date.MustParse("2024-01-31"), Rate: 0.0015}}, rates)
}
