package performance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TTestResult is the outcome of a one-sided one-sample t-test of
// H0: mean <= Mean0 against H1: mean > Mean0.
type TTestResult struct {
	N             int
	DF            int
	Mean0         float64
	Alpha         float64
	Statistic     float64
	CriticalValue float64
	PValue        float64
	Reject        bool
}

func (r TTestResult) String() string {
	verdict := "Fail to reject H0"
	if r.Reject {
		verdict = "Reject H0"
	}
	return fmt.Sprintf("%s with t_statistic=%.4f, p-value=%.4f, critical_value=%.4f and alpha=%.2f",
		verdict, r.Statistic, r.PValue, r.CriticalValue, r.Alpha)
}

// OneSampleTTest tests whether the mean of sample exceeds mean0.
func OneSampleTTest(sample []float64, mean0, alpha float64) (TTestResult, error) {
	if !(alpha > 0 && alpha < 1) {
		return TTestResult{}, fmt.Errorf("t-test: alpha %v: %w", alpha, ErrInvalidAlpha)
	}
	n := len(sample)
	if err := need("t-test", n, 2); err != nil {
		return TTestResult{}, err
	}
	sd := stat.StdDev(sample, nil)
	if sd == 0 {
		return TTestResult{}, fmt.Errorf("t-test: %w", ErrZeroVariance)
	}

	t := (stat.Mean(sample, nil) - mean0) / (sd / math.Sqrt(float64(n)))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	crit := dist.Quantile(1 - alpha)

	return TTestResult{
		N:             n,
		DF:            n - 1,
		Mean0:         mean0,
		Alpha:         alpha,
		Statistic:     t,
		CriticalValue: crit,
		PValue:        1 - dist.CDF(t),
		Reject:        t > crit,
	}, nil
}

// OutperformanceTest tests whether the portfolio beats the benchmark by
// more than mean0 per month on average.
func (a *Analyzer) OutperformanceTest(mean0, alpha float64) (TTestResult, error) {
	r, b := a.returns()
	diff := make([]float64, len(r))
	for i := range r {
		diff[i] = r[i] - b[i]
	}
	return OneSampleTTest(diff, mean0, alpha)
}
