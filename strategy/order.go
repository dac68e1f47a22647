package strategy

import "github.com/rustyeddy/backtester/date"

type OrderType string

const (
	MarketOrder OrderType = "market"
	LimitOrder  OrderType = "limit"
	// CloseOrder only reduces an open position; the broker cancels it when
	// no open trade points the other way.
	CloseOrder OrderType = "close"
)

// Order is an instruction for the broker derived from a signal.
type Order struct {
	OrderID    int
	Date       date.Date
	Ticker     string
	Amount     float64
	Direction  Direction
	StopLoss   float64
	TakeProfit float64
	Timeout    date.Date
	Type       OrderType
	SignalID   int
}

type OrderBatch struct {
	On     date.Date
	Orders []Order
}

func (b *OrderBatch) Date() date.Date { return b.On }
