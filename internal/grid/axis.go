package grid

import (
	"math"

	"github.com/rotisserie/eris"
)

// orientationOf checks strict monotonicity. A single label counts as ascending.
func orientationOf(axis []float64) (Orientation, error) {
	for _, v := range axis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, eris.New("non-finite coordinate")
		}
	}
	if len(axis) < 2 {
		return Ascending, nil
	}
	order := Ascending
	if axis[1] < axis[0] {
		order = Descending
	}
	for i := 1; i < len(axis); i++ {
		d := axis[i] - axis[i-1]
		if (order == Ascending && d <= 0) || (order == Descending && d >= 0) {
			return 0, eris.Errorf("coordinates not strictly monotonic at index %d", i)
		}
	}
	return order, nil
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

func axisRange(axis []float64) (float64, float64) {
	a, b := axis[0], axis[len(axis)-1]
	if a > b {
		return b, a
	}
	return a, b
}

func reverse(s []float64) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

// sameAxis compares two label sequences with a tolerance relative to the
// axis spacing.
func sameAxis(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	tol := 1e-9
	if len(a) > 1 {
		tol = math.Abs(a[1]-a[0]) * 1e-6
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
