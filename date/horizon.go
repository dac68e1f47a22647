package date

import (
	"fmt"
	"slices"
	"time"
)

// Horizon is the fixed, ordered set of dates a simulation runs over. Ledger
// and valuation rows are pre-allocated against it and addressed by ordinal.
type Horizon struct {
	dates []Date
	index map[Date]int
}

// NewHorizon builds a horizon from dates in any order. Duplicates are dropped.
func NewHorizon(dates ...Date) (*Horizon, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("horizon: no dates")
	}
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, Date.Compare)
	sorted = slices.Compact(sorted)

	h := &Horizon{
		dates: sorted,
		index: make(map[Date]int, len(sorted)),
	}
	for i, d := range sorted {
		h.index[d] = i
	}
	return h, nil
}

// Daily returns every calendar day in [from, to].
func Daily(from, to Date) (*Horizon, error) {
	return build(from, to, func(Date) bool { return true })
}

// BusinessDays returns every Monday to Friday in [from, to].
func BusinessDays(from, to Date) (*Horizon, error) {
	return build(from, to, func(d Date) bool {
		wd := d.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	})
}

func build(from, to Date, keep func(Date) bool) (*Horizon, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("horizon: end %s before start %s", to, from)
	}
	var dates []Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		if keep(d) {
			dates = append(dates, d)
		}
	}
	return NewHorizon(dates...)
}

// Index returns the ordinal of d, or false when d is not in the horizon.
func (h *Horizon) Index(d Date) (int, bool) {
	i, ok := h.index[d]
	return i, ok
}

func (h *Horizon) Contains(d Date) bool {
	_, ok := h.index[d]
	return ok
}

func (h *Horizon) At(i int) Date { return h.dates[i] }
func (h *Horizon) Len() int { return len(h.dates) }
func (h *Horizon) Start() Date { return h.dates[0] }
func (h *Horizon) End() Date { return h.dates[len(h.dates)-1] }

// Dates returns a copy of the ordered dates.
func (h *Horizon) Dates() []Date { return slices.Clone(h.dates) }
