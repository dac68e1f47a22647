package performance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat/distuv"
)

func TestOneSampleTTest(t *testing.T) {
	t.Parallel()

	r, err := OneSampleTTest([]float64{0.01, 0.02, 0.03}, 0, 0.05)
	require.NoError(t, err)
	assert.Equal(t, 3, r.N)
	assert.Equal(t, 2, r.DF)
	assert.InDelta(t, 3.4641016, r.Statistic, 1e-6)
	assert.InDelta(t, 2.9199856, r.CriticalValue, 1e-5)
	assert.InDelta(t, 0.0370901, r.PValue, 1e-5)
	assert.True(t, r.Reject)
	assert.Contains(t, r.String(), "Reject H0 with t_statistic=3.4641")

	r, err = OneSampleTTest([]float64{0.01, 0.02, 0.03}, 0.05, 0.05)
	require.NoError(t, err)
	assert.Less(t, r.Statistic, 0.0)
	assert.Greater(t, r.PValue, 0.5)
	assert.False(t, r.Reject)
	assert.Contains(t, r.String(), "Fail to reject H0")
}

func TestOneSampleTTestErrors(t *testing.T) {
	t.Parallel()

	_, err := OneSampleTTest([]float64{0.01}, 0, 0.05)
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, err = OneSampleTTest([]float64{0.01, 0.01}, 0, 0.05)
	assert.True(t, errors.Is(err, ErrZeroVariance))

	for _, alpha := range []float64{0, 1, -0.1, 1.5} {
		_, err = OneSampleTTest([]float64{0.01, 0.02}, 0, alpha)
		assert.True(t, errors.Is(err, ErrInvalidAlpha), "alpha %v", alpha)
	}
}

func TestOutperformanceTest(t *testing.T) {
	t.Parallel()

	a := monthlyAnalyzer(t, []float64{0.02, 0.04, 0.06}, []float64{0.01, 0.02, 0.03}, nil)
	r, err := a.OutperformanceTest(0, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 3.4641016, r.Statistic, 1e-6)
	assert.True(t, r.Reject)
}

func TestSWCoefficients(t *testing.T) {
	t.Parallel()

	a := swCoefficients(10)
	require.Len(t, a, 5)
	assert.InDelta(t, 0.5739, a[0], 1e-3)
	assert.InDelta(t, 0.3291, a[1], 1e-3)

	for _, n := range []int{4, 5, 10, 25, 100} {
		sum := 0.0
		for _, v := range swCoefficients(n) {
			sum += 2 * v * v
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "n=%d", n)
	}
}

func TestShapiroWilkThreePoints(t *testing.T) {
	t.Parallel()

	w, p, err := ShapiroWilk([]float64{3, 1, 2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, w, 1e-12)
	assert.InDelta(t, 1.0, p, 1e-4)
}

func TestShapiroWilkNormalScores(t *testing.T) {
	t.Parallel()

	x := make([]float64, 20)
	for i := range x {
		x[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / 20.25)
	}
	w, p, err := ShapiroWilk(x)
	require.NoError(t, err)
	assert.Greater(t, w, 0.97)
	assert.Greater(t, p, 0.5)
}

func TestShapiroWilkSkewed(t *testing.T) {
	t.Parallel()

	w, p, err := ShapiroWilk([]float64{1, 1, 1, 1, 1, 1, 1, 1, 2, 50})
	require.NoError(t, err)
	assert.Less(t, w, 0.5)
	assert.Less(t, p, 0.01)
}

func TestShapiroWilkErrors(t *testing.T) {
	t.Parallel()

	_, _, err := ShapiroWilk([]float64{1, 2})
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, _, err = ShapiroWilk([]float64{4, 4, 4, 4})
	assert.True(t, errors.Is(err, ErrZeroVariance))
}

func TestNormalityTest(t *testing.T) {
	t.Parallel()

	a := monthlyAnalyzer(t, []float64{0.01, 0.02, 0.03}, []float64{0, 0, 0}, nil)
	r, err := a.NormalityTest(0.05)
	require.NoError(t, err)
	assert.True(t, r.Normal)
	assert.Equal(t, 3, r.N)
	assert.Contains(t, r.String(), "looks Gaussian")

	_, err = a.NormalityTest(0)
	assert.True(t, errors.Is(err, ErrInvalidAlpha))
}
