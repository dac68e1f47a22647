// Package ledger records every cost paid and every receipt collected by a
// portfolio, one row per simulated date.
//
// Rows are pre-allocated over the whole simulation horizon and addressed by
// the date's ordinal, so a write never grows the ledger. Fields only ever
// accumulate: a refund is a receipt, not a negative cost.
package ledger

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/backtester/date"
	"github.com/shopspring/decimal"
)

var (
	ErrDateOutOfRange = errors.New("date outside simulation horizon")
	ErrNegativeAmount = errors.New("negative ledger amount")
	ErrUnknownKind    = errors.New("unknown ledger kind")
)

type CostKind int

const (
	Commission CostKind = iota
	Slippage
	Charged
	MarginInterest
	AccountInterest
	ShortDividends
	ShortLosses
)

var costNames = [...]string{
	Commission:      "commission",
	Slippage:        "slippage",
	Charged:         "charged",
	MarginInterest:  "margin_interest",
	AccountInterest: "account_interest",
	ShortDividends:  "short_dividends",
	ShortLosses:     "short_losses",
}

func (k CostKind) String() string {
	if k < 0 || int(k) >= len(costNames) {
		return fmt.Sprintf("cost(%d)", int(k))
	}
	return costNames[k]
}

type ReceiptKind int

const (
	Dividends ReceiptKind = iota
	Interest
	Proceeds
)

var receiptNames = [...]string{
	Dividends: "dividends",
	Interest:  "interest",
	Proceeds:  "proceeds",
}

func (k ReceiptKind) String() string {
	if k < 0 || int(k) >= len(receiptNames) {
		return fmt.Sprintf("receipt(%d)", int(k))
	}
	return receiptNames[k]
}

type Costs struct {
	Commission      decimal.Decimal
	Slippage        decimal.Decimal
	Charged         decimal.Decimal
	MarginInterest  decimal.Decimal
	AccountInterest decimal.Decimal
	ShortDividends  decimal.Decimal
	ShortLosses     decimal.Decimal
}

func (c *Costs) field(k CostKind) *decimal.Decimal {
	switch k {
	case Commission:
		return &c.Commission
	case Slippage:
		return &c.Slippage
	case Charged:
		return &c.Charged
	case MarginInterest:
		return &c.MarginInterest
	case AccountInterest:
		return &c.AccountInterest
	case ShortDividends:
		return &c.ShortDividends
	case ShortLosses:
		return &c.ShortLosses
	}
	return nil
}

// Get returns the accumulated amount of kind k.
func (c Costs) Get(k CostKind) decimal.Decimal {
	if f := c.field(k); f != nil {
		return *f
	}
	return decimal.Zero
}

func (c Costs) Total() decimal.Decimal {
	return decimal.Sum(c.Commission, c.Slippage, c.Charged, c.MarginInterest,
		c.AccountInterest, c.ShortDividends, c.ShortLosses)
}

func (c Costs) add(o Costs) Costs {
	for k := range costNames {
		f := c.field(CostKind(k))
		*f = f.Add(o.Get(CostKind(k)))
	}
	return c
}

type Receipts struct {
	Dividends decimal.Decimal
	Interest  decimal.Decimal
	Proceeds  decimal.Decimal
}

func (r *Receipts) field(k ReceiptKind) *decimal.Decimal {
	switch k {
	case Dividends:
		return &r.Dividends
	case Interest:
		return &r.Interest
	case Proceeds:
		return &r.Proceeds
	}
	return nil
}

// Get returns the accumulated amount of kind k.
func (r Receipts) Get(k ReceiptKind) decimal.Decimal {
	if f := r.field(k); f != nil {
		return *f
	}
	return decimal.Zero
}

func (r Receipts) Total() decimal.Decimal {
	return decimal.Sum(r.Dividends, r.Interest, r.Proceeds)
}

func (r Receipts) add(o Receipts) Receipts {
	r.Dividends = r.Dividends.Add(o.Dividends)
	r.Interest = r.Interest.Add(o.Interest)
	r.Proceeds = r.Proceeds.Add(o.Proceeds)
	return r
}

// Entry is the ledger row of one date.
type Entry struct {
	Date     date.Date
	Costs    Costs
	Receipts Receipts
}

type Ledger struct {
	horizon *date.Horizon
	entries []Entry
}

// New allocates one zeroed row per horizon date.
func New(h *date.Horizon) *Ledger {
	entries := make([]Entry, h.Len())
	for i := range entries {
		entries[i].Date = h.At(i)
	}
	return &Ledger{horizon: h, entries: entries}
}

func (l *Ledger) Horizon() *date.Horizon { return l.horizon }

func (l *Ledger) row(d date.Date) (*Entry, error) {
	i, ok := l.horizon.Index(d)
	if !ok {
		return nil, fmt.Errorf("ledger %s: %w", d, ErrDateOutOfRange)
	}
	return &l.entries[i], nil
}

// AddCost accumulates amount into the cost of kind k on d.
func (l *Ledger) AddCost(d date.Date, k CostKind, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("ledger %s %s %s: %w", d, k, amount, ErrNegativeAmount)
	}
	e, err := l.row(d)
	if err != nil {
		return err
	}
	f := e.Costs.field(k)
	if f == nil {
		return fmt.Errorf("ledger %s: %w", k, ErrUnknownKind)
	}
	*f = f.Add(amount)
	return nil
}

// AddReceipt accumulates amount into the receipt of kind k on d.
func (l *Ledger) AddReceipt(d date.Date, k ReceiptKind, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("ledger %s %s %s: %w", d, k, amount, ErrNegativeAmount)
	}
	e, err := l.row(d)
	if err != nil {
		return err
	}
	f := e.Receipts.field(k)
	if f == nil {
		return fmt.Errorf("ledger %s: %w", k, ErrUnknownKind)
	}
	*f = f.Add(amount)
	return nil
}

// Entry returns a copy of the row for d.
func (l *Ledger) Entry(d date.Date) (Entry, error) {
	e, err := l.row(d)
	if err != nil {
		return Entry{}, err
	}
	return *e, nil
}

// Entries returns a copy of every row in date order.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Totals sums every row.
func (l *Ledger) Totals() (Costs, Receipts) {
	var c Costs
	var r Receipts
	for _, e := range l.entries {
		c = c.add(e.Costs)
		r = r.add(e.Receipts)
	}
	return c, r
}
