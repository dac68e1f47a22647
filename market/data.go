package market

import (
	"errors"

	"github.com/rustyeddy/backtester/date"
)

var (
	// ErrMarketDataUnavailable is returned when no bar exists for a ticker on a date.
	ErrMarketDataUnavailable = errors.New("market data unavailable")
	ErrUnknownTicker         = errors.New("unknown ticker")
)

// Data is the market data a backtest runs against. The horizon is fixed at
// construction; the current date is owned by the implementation and
// advanced by whoever drives the simulation loop.
type Data interface {
	CurrentDate() date.Date
	Horizon() *date.Horizon
	Start() date.Date

	// PriceFor returns the bar for ticker on d or an error wrapping
	// ErrMarketDataUnavailable.
	PriceFor(ticker string, d date.Date) (Bar, error)

	// SeriesFor returns every bar of ticker in date order.
	SeriesFor(ticker string) ([]Bar, error)

	// RiskFreeRates returns the risk-free series quoted at freq, in date order.
	RiskFreeRates(freq Frequency) []Rate
}
