package market

import "github.com/rustyeddy/backtester/date"

// Bar is one daily OHLC observation for a ticker.
type Bar struct {
	Date   date.Date
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Rate is a risk-free rate observation. Rates are per period of the
// Frequency they were requested for, e.g. a monthly rate of 0.002 is 0.2%.
type Rate struct {
	Date date.Date
	Rate float64
}

type Frequency string

const (
	Daily   Frequency = "daily"
	Monthly Frequency = "monthly"
)
