package strategy

import "github.com/rustyeddy/backtester/date"

// Direction is +1 for long and -1 for short.
type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

// Signal is a strategy's prediction for a ticker. Signals are immutable once
// produced.
type Signal struct {
	SignalID     int
	Ticker       string
	Direction    Direction
	Certainty    float64
	EWMStd       float64
	FeaturesDate date.Date
}

// SignalBatch is the set of signals a strategy produced on one date. It may
// repeat signals produced on earlier dates.
type SignalBatch struct {
	On      date.Date
	Signals []Signal
}

func (b *SignalBatch) Date() date.Date { return b.On }
