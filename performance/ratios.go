package performance

import (
	"fmt"
	"math"

	"github.com/rustyeddy/backtester/date"
	"gonum.org/v1/gonum/stat"
)

func need(op string, n, min int) error {
	if n < min {
		return fmt.Errorf("%s: %d observations, need %d: %w", op, n, min, ErrInsufficientData)
	}
	return nil
}

// SharpeRatio is the mean monthly excess return over the sample standard
// deviation of monthly returns.
func (a *Analyzer) SharpeRatio() (float64, error) {
	r, _ := a.returns()
	if err := need("sharpe ratio", len(r), 2); err != nil {
		return 0, err
	}
	sd := stat.StdDev(r, nil)
	if sd == 0 {
		return 0, fmt.Errorf("sharpe ratio: %w", ErrZeroVariance)
	}

	rf := 0.0
	if len(a.in.RiskFree) > 0 {
		rf = stat.Mean(a.in.RiskFree, nil)
	}
	return (stat.Mean(r, nil) - rf) / sd, nil
}

// AdjustedSharpeRatio corrects the Sharpe ratio for skewness and excess
// kurtosis of the monthly returns.
func (a *Analyzer) AdjustedSharpeRatio() (float64, error) {
	sr, err := a.SharpeRatio()
	if err != nil {
		return 0, err
	}
	r, _ := a.returns()
	skew, kurt := moments(r)
	return sr + skew/6*sr*sr - kurt/24*sr*sr*sr, nil
}

// moments returns the population skewness and excess kurtosis of x.
func moments(x []float64) (skew, kurt float64) {
	m2 := stat.Moment(2, x, nil)
	if m2 == 0 {
		return 0, 0
	}
	m3 := stat.Moment(3, x, nil)
	m4 := stat.Moment(4, x, nil)
	return m3 / math.Pow(m2, 1.5), m4/(m2*m2) - 3
}

// Correlation is the Pearson correlation of monthly portfolio and
// benchmark returns.
func (a *Analyzer) Correlation() (float64, error) {
	r, b := a.returns()
	if err := need("correlation", len(r), 2); err != nil {
		return 0, err
	}
	if stat.StdDev(r, nil) == 0 || stat.StdDev(b, nil) == 0 {
		return 0, fmt.Errorf("correlation: %w", ErrZeroVariance)
	}
	return stat.Correlation(r, b, nil), nil
}

func (a *Analyzer) PortfolioVolatility() (float64, error) {
	r, _ := a.returns()
	if err := need("portfolio volatility", len(r), 2); err != nil {
		return 0, err
	}
	return stat.StdDev(r, nil), nil
}

func (a *Analyzer) BenchmarkVolatility() (float64, error) {
	_, b := a.returns()
	if err := need("benchmark volatility", len(b), 2); err != nil {
		return 0, err
	}
	return stat.StdDev(b, nil), nil
}

func (a *Analyzer) checkRange(op string, start, end date.Date) error {
	if start.Before(a.in.Horizon.Start()) || end.After(a.in.LastCaptured) || end.Before(start) {
		return fmt.Errorf("%s %s..%s: data covers %s..%s: %w",
			op, start, end, a.in.Horizon.Start(), a.in.LastCaptured, ErrOutOfRange)
	}
	return nil
}

func endpoints(op string, s Series, start, end date.Date) (float64, float64, error) {
	v0, ok := s[start]
	if !ok {
		return 0, 0, fmt.Errorf("%s: no value on %s: %w", op, start, ErrNoValuation)
	}
	v1, ok := s[end]
	if !ok {
		return 0, 0, fmt.Errorf("%s: no value on %s: %w", op, end, ErrNoValuation)
	}
	if v0 == 0 {
		return 0, 0, fmt.Errorf("%s: zero value on %s: %w", op, start, ErrInsufficientData)
	}
	return v0, v1, nil
}

func (a *Analyzer) annualized(op string, s Series, start, end date.Date) (float64, error) {
	if err := a.checkRange(op, start, end); err != nil {
		return 0, err
	}
	days := end.Sub(start)
	if days <= 0 {
		return 0, fmt.Errorf("%s %s..%s: empty period: %w", op, start, end, ErrOutOfRange)
	}
	v0, v1, err := endpoints(op, s, start, end)
	if err != nil {
		return 0, err
	}
	return math.Pow(v1/v0, 365/float64(days)) - 1, nil
}

// AnnualizedReturn compounds the portfolio return between start and end
// to a 365 day year.
func (a *Analyzer) AnnualizedReturn(start, end date.Date) (float64, error) {
	return a.annualized("annualized return", a.in.Portfolio, start, end)
}

func (a *Analyzer) AnnualizedBenchmarkReturn(start, end date.Date) (float64, error) {
	return a.annualized("annualized benchmark return", a.in.Benchmark, start, end)
}

// ReturnOverPeriod is the simple portfolio return between start and end.
func (a *Analyzer) ReturnOverPeriod(start, end date.Date) (float64, error) {
	const op = "return over period"
	if err := a.checkRange(op, start, end); err != nil {
		return 0, err
	}
	v0, v1, err := endpoints(op, a.in.Portfolio, start, end)
	if err != nil {
		return 0, err
	}
	return v1/v0 - 1, nil
}

// AverageAUM is the mean assets under management over captured dates.
func (a *Analyzer) AverageAUM() (float64, error) {
	if len(a.in.AUM) == 0 {
		return 0, fmt.Errorf("average aum: %w", ErrInsufficientData)
	}
	sum := 0.0
	for _, v := range a.in.AUM {
		sum += v
	}
	return sum / float64(len(a.in.AUM)), nil
}
