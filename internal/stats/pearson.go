package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Pearson returns the correlation coefficient of x and y and its two-sided
// p-value under the null of no correlation (Student t, n-2 degrees of
// freedom). Both are NaN for fewer than two pairs or a constant input; with
// exactly two pairs the p-value is 1.
func Pearson(x, y []float64) (r, p float64) {
	n := len(x)
	if n != len(y) || n < 2 {
		return math.NaN(), math.NaN()
	}
	r = stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return math.NaN(), math.NaN()
	}
	r = math.Max(-1, math.Min(1, r))

	switch {
	case n == 2:
		return r, 1
	case math.Abs(r) == 1:
		return r, 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return r, 2 * dist.Survival(math.Abs(t))
}

// mean is stat.Mean that yields NaN for an empty slice.
func mean(x []float64) float64 {
	if len(x) == 0 {
		return math.NaN()
	}
	return stat.Mean(x, nil)
}

// stdDev is the sample standard deviation, NaN below two values.
func stdDev(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.StdDev(x, nil)
}
