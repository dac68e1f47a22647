package performance

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// Royston (1995) polynomial approximations, AS R94.
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.07119, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.544, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

func poly(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

// swCoefficients returns the first n/2 Shapiro-Wilk weights. The full
// weight vector is antisymmetric and has unit norm.
func swCoefficients(n int) []float64 {
	half := n / 2
	a := make([]float64, half)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	an := float64(n)
	m := make([]float64, half)
	summ2 := 0.0
	for i := range m {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (an + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(an)

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	first := 1
	var fac float64
	if n > 5 {
		first = 2
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
	}
	a[0] = a1
	for i := first; i < half; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

// ShapiroWilk computes the W statistic of sample and its p-value under
// the null hypothesis that sample is drawn from a normal distribution.
// It needs at least three observations that are not all equal.
func ShapiroWilk(sample []float64) (w, p float64, err error) {
	n := len(sample)
	if err := need("shapiro-wilk", n, 3); err != nil {
		return 0, 0, err
	}
	x := slices.Clone(sample)
	slices.Sort(x)
	if x[0] == x[n-1] {
		return 0, 0, fmt.Errorf("shapiro-wilk: %w", ErrZeroVariance)
	}

	mean := 0.0
	for _, v := range x {
		mean += v
	}
	mean /= float64(n)
	ss := 0.0
	for _, v := range x {
		ss += (v - mean) * (v - mean)
	}

	a := swCoefficients(n)
	num := 0.0
	for i, ai := range a {
		num += ai * (x[n-1-i] - x[i])
	}
	w = math.Min(num*num/ss, 1)

	return w, swPValue(w, n), nil
}

func swPValue(w float64, n int) float64 {
	if n == 3 {
		p := 1.90985931710274 * (math.Asin(math.Sqrt(w)) - 1.04719755119660)
		return math.Max(0, math.Min(1, p))
	}
	if w >= 1 {
		return 1
	}

	an := float64(n)
	y := math.Log(1 - w)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, an)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, an)
		s = math.Exp(poly(swC4, an))
	} else {
		ln := math.Log(an)
		m = poly(swC5, ln)
		s = math.Exp(poly(swC6, ln))
	}
	return distuv.Normal{Mu: m, Sigma: s}.Survival(y)
}

// NormalityResult is the outcome of a Shapiro-Wilk test at level Alpha.
type NormalityResult struct {
	N      int
	Alpha  float64
	W      float64
	PValue float64
	Normal bool
}

func (r NormalityResult) String() string {
	verdict := "Sample does not look Gaussian (reject H0)"
	if r.Normal {
		verdict = "Sample looks Gaussian (fail to reject H0)"
	}
	return fmt.Sprintf("%s with W=%.4f, p-value=%.4f and alpha=%.2f", verdict, r.W, r.PValue, r.Alpha)
}

// NormalityTest runs Shapiro-Wilk on the monthly portfolio returns.
func (a *Analyzer) NormalityTest(alpha float64) (NormalityResult, error) {
	if !(alpha > 0 && alpha < 1) {
		return NormalityResult{}, fmt.Errorf("normality test: alpha %v: %w", alpha, ErrInvalidAlpha)
	}
	r, _ := a.returns()
	w, p, err := ShapiroWilk(r)
	if err != nil {
		return NormalityResult{}, err
	}
	return NormalityResult{N: len(r), Alpha: alpha, W: w, PValue: p, Normal: p > alpha}, nil
}
