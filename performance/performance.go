// Package performance derives risk and return statistics from the daily
// valuation series of a backtest and the benchmark it is compared with.
//
// Returns are forward returns over ForwardShift horizon steps, sampled once
// per calendar month. Statistics over monthly returns use gonum.
package performance

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rustyeddy/backtester/date"
)

var (
	ErrOutOfRange       = errors.New("date range outside captured data")
	ErrInsufficientData = errors.New("insufficient data")
	ErrNoValuation      = errors.New("no valuation captured")
	ErrZeroVariance     = errors.New("zero variance")
	ErrInvalidAlpha     = errors.New("alpha must be in (0, 1)")
)

// ForwardShift is the number of horizon steps a monthly return looks ahead.
const ForwardShift = 30

// Series holds one value per date. Missing dates are gaps.
type Series map[date.Date]float64

// Dates returns the series dates in order.
func (s Series) Dates() []date.Date {
	out := make([]date.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	slices.SortFunc(out, date.Date.Compare)
	return out
}

type Input struct {
	Horizon *date.Horizon

	// Portfolio holds the captured daily total portfolio value.
	Portfolio Series
	// Benchmark holds the daily close of the benchmark.
	Benchmark Series
	// AUM holds the captured daily assets under management.
	AUM Series

	// RiskFree holds monthly risk-free rates.
	RiskFree []float64

	LastCaptured date.Date
}

type Analyzer struct {
	in      Input
	monthly []MonthlyReturn
	done    bool
}

func New(in Input) (*Analyzer, error) {
	if in.Horizon == nil {
		return nil, fmt.Errorf("performance: horizon is required")
	}
	if in.LastCaptured.IsZero() || len(in.Portfolio) == 0 {
		return nil, fmt.Errorf("performance: %w", ErrNoValuation)
	}
	return &Analyzer{in: in}, nil
}

// MonthlyReturn is one sampled pair of forward returns.
type MonthlyReturn struct {
	Date      date.Date
	Portfolio float64
	Benchmark float64
}

// MonthlyReturns samples the last priced horizon date of each calendar month
// and computes the return of the portfolio and the benchmark from there over
// the next ForwardShift steps. A month whose forward return is undefined is
// dropped; it never falls back to an earlier date.
func (a *Analyzer) MonthlyReturns() []MonthlyReturn {
	if a.done {
		return slices.Clone(a.monthly)
	}

	dates := a.in.Horizon.Dates()
	var out []MonthlyReturn
	for i := 0; i < len(dates); {
		end := i
		for end+1 < len(dates) && dates[end+1].SameMonth(dates[i]) {
			end++
		}
		k := end
		for k >= i && !a.priced(dates[k]) {
			k--
		}
		if k >= i && k+ForwardShift < len(dates) {
			d, ahead := dates[k], dates[k+ForwardShift]
			pr, pok := forwardReturn(a.in.Portfolio, d, ahead)
			br, bok := forwardReturn(a.in.Benchmark, d, ahead)
			if pok && bok {
				out = append(out, MonthlyReturn{Date: d, Portfolio: pr, Benchmark: br})
			}
		}
		i = end + 1
	}

	a.monthly, a.done = out, true
	return slices.Clone(out)
}

// priced reports whether both series carry a value on d.
func (a *Analyzer) priced(d date.Date) bool {
	_, pok := a.in.Portfolio[d]
	_, bok := a.in.Benchmark[d]
	return pok && bok
}

func forwardReturn(s Series, from, to date.Date) (float64, bool) {
	v0, ok := s[from]
	if !ok || v0 == 0 {
		return 0, false
	}
	v1, ok := s[to]
	if !ok {
		return 0, false
	}
	return v1/v0 - 1, true
}

func (a *Analyzer) returns() (portfolio, benchmark []float64) {
	for _, r := range a.MonthlyReturns() {
		portfolio = append(portfolio, r.Portfolio)
		benchmark = append(benchmark, r.Benchmark)
	}
	return portfolio, benchmark
}
