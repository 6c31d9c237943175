package grid

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
)

// Lattice returns ascending target axes spanning g's extent with factor
// times as many labels per axis.
func Lattice(g *ScalarGrid, factor int) (lat, lon []float64, err error) {
	if factor < 1 {
		return nil, nil, eris.Errorf("grid: upsample factor %d must be >= 1", factor)
	}
	latMin, latMax := g.LatRange()
	lonMin, lonMax := g.LonRange()
	return Linspace(latMin, latMax, g.Rows()*factor), Linspace(lonMin, lonMax, g.Cols()*factor), nil
}

// Interpolate samples g bilinearly at every (lat[i], lon[j]). Points outside
// the source hull are NaN. A NaN corner poisons the result only when it has
// non-zero weight, so samples that land exactly on a valid source cell stay
// valid next to a null one.
func Interpolate(g *ScalarGrid, lat, lon []float64) (*ScalarGrid, error) {
	if len(lat) == 0 || len(lon) == 0 {
		return nil, eris.New("grid: empty interpolation target")
	}
	src := g.Ascending()

	type bracket struct {
		i0, i1 int
		w      float64
		ok     bool
	}
	colB := make([]bracket, len(lon))
	for j, x := range lon {
		i0, i1, w, ok := locate(src.lon, x)
		colB[j] = bracket{i0, i1, w, ok}
	}

	values := make([]float64, len(lat)*len(lon))
	for i, y := range lat {
		r0, r1, wy, rowOK := locate(src.lat, y)
		for j := range lon {
			cb := colB[j]
			if !rowOK || !cb.ok {
				values[i*len(lon)+j] = math.NaN()
				continue
			}
			values[i*len(lon)+j] = blend(
				[4]float64{src.At(r0, cb.i0), src.At(r0, cb.i1), src.At(r1, cb.i0), src.At(r1, cb.i1)},
				[4]float64{(1 - wy) * (1 - cb.w), (1 - wy) * cb.w, wy * (1 - cb.w), wy * cb.w},
			)
		}
	}
	return New(lat, lon, values)
}

// locate finds the two labels of an ascending axis bracketing x and the
// weight of the upper one.
func locate(axis []float64, x float64) (int, int, float64, bool) {
	n := len(axis)
	tol := 1e-9
	if n > 1 {
		tol = (axis[n-1] - axis[0]) * 1e-9
	}
	if math.IsNaN(x) || x < axis[0]-tol || x > axis[n-1]+tol {
		return 0, 0, 0, false
	}
	if n == 1 {
		return 0, 0, 0, true
	}
	i := sort.SearchFloat64s(axis, x)
	switch {
	case i == 0:
		return 0, 1, 0, true
	case i >= n:
		return n - 2, n - 1, 1, true
	}
	w := (x - axis[i-1]) / (axis[i] - axis[i-1])
	return i - 1, i, w, true
}

func blend(v, w [4]float64) float64 {
	var sum, total float64
	for k := range v {
		if w[k] == 0 {
			continue
		}
		if math.IsNaN(v[k]) {
			return math.NaN()
		}
		sum += v[k] * w[k]
		total += w[k]
	}
	if total == 0 {
		return math.NaN()
	}
	return sum / total
}
