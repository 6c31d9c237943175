// Package grid holds the immutable scalar field type shared by the
// temperature and vegetation inputs, together with the operations that put
// two fields on one lattice: clipping, interpolation, average-resampling
// reprojection and orientation reconciliation.
package grid

import (
	"math"

	"github.com/rotisserie/eris"
)

// Orientation tags the direction an axis is stored in. It is set from the
// coordinate labels when the grid is built and never inferred from how an
// array happens to be indexed.
type Orientation int

const (
	Ascending Orientation = iota + 1
	Descending
)

func (o Orientation) String() string {
	switch o {
	case Ascending:
		return "ascending"
	case Descending:
		return "descending"
	default:
		return "unknown"
	}
}

// ScalarGrid is an immutable 2-D field addressed by latitude (rows) and
// longitude (columns). NaN marks a null cell.
type ScalarGrid struct {
	lat      []float64
	lon      []float64
	values   []float64
	latOrder Orientation
	lonOrder Orientation
}

// New builds a grid from row-major values. Both axes must be strictly
// monotonic and len(values) must equal len(lat)*len(lon). Inputs are copied.
func New(lat, lon, values []float64) (*ScalarGrid, error) {
	if len(lat) == 0 || len(lon) == 0 {
		return nil, eris.New("grid: empty axis")
	}
	if len(values) != len(lat)*len(lon) {
		return nil, eris.Errorf("grid: %d values for a %dx%d grid", len(values), len(lat), len(lon))
	}
	latOrder, err := orientationOf(lat)
	if err != nil {
		return nil, eris.Wrap(err, "grid: latitude")
	}
	lonOrder, err := orientationOf(lon)
	if err != nil {
		return nil, eris.Wrap(err, "grid: longitude")
	}
	return &ScalarGrid{
		lat:      clone(lat),
		lon:      clone(lon),
		values:   clone(values),
		latOrder: latOrder,
		lonOrder: lonOrder,
	}, nil
}

// Filled returns a grid with every cell set to v.
func Filled(lat, lon []float64, v float64) (*ScalarGrid, error) {
	values := make([]float64, len(lat)*len(lon))
	for i := range values {
		values[i] = v
	}
	return New(lat, lon, values)
}

func (g *ScalarGrid) Rows() int { return len(g.lat) }
func (g *ScalarGrid) Cols() int { return len(g.lon) }

// Lat returns a copy of the latitude labels.
func (g *ScalarGrid) Lat() []float64 { return clone(g.lat) }

// Lon returns a copy of the longitude labels.
func (g *ScalarGrid) Lon() []float64 { return clone(g.lon) }

// Values returns a copy of the row-major values.
func (g *ScalarGrid) Values() []float64 { return clone(g.values) }

func (g *ScalarGrid) LatOrientation() Orientation { return g.latOrder }
func (g *ScalarGrid) LonOrientation() Orientation { return g.lonOrder }

// At returns the value at row i, column j.
func (g *ScalarGrid) At(i, j int) float64 {
	return g.values[i*len(g.lon)+j]
}

// WithValues returns a grid on the same axes holding values.
func (g *ScalarGrid) WithValues(values []float64) (*ScalarGrid, error) {
	if len(values) != len(g.values) {
		return nil, eris.Errorf("grid: %d values for a %dx%d grid", len(values), g.Rows(), g.Cols())
	}
	out := *g
	out.values = clone(values)
	return &out, nil
}

// Map returns a grid with f applied to every cell.
func (g *ScalarGrid) Map(f func(float64) float64) *ScalarGrid {
	out := *g
	out.values = make([]float64, len(g.values))
	for i, v := range g.values {
		out.values[i] = f(v)
	}
	return &out
}

// LatRange returns the smallest and largest latitude label.
func (g *ScalarGrid) LatRange() (float64, float64) { return axisRange(g.lat) }

// LonRange returns the smallest and largest longitude label.
func (g *ScalarGrid) LonRange() (float64, float64) { return axisRange(g.lon) }

// Ascending returns the grid with both axes in ascending order, reordering
// rows and columns as needed. A grid that is already ascending is returned
// as is.
func (g *ScalarGrid) Ascending() *ScalarGrid {
	if g.latOrder == Ascending && g.lonOrder == Ascending {
		return g
	}
	rows, cols := g.Rows(), g.Cols()
	out := &ScalarGrid{
		lat:      clone(g.lat),
		lon:      clone(g.lon),
		values:   make([]float64, len(g.values)),
		latOrder: Ascending,
		lonOrder: Ascending,
	}
	flipRows := g.latOrder == Descending
	flipCols := g.lonOrder == Descending
	if flipRows {
		reverse(out.lat)
	}
	if flipCols {
		reverse(out.lon)
	}
	for i := 0; i < rows; i++ {
		si := i
		if flipRows {
			si = rows - 1 - i
		}
		for j := 0; j < cols; j++ {
			sj := j
			if flipCols {
				sj = cols - 1 - j
			}
			out.values[i*cols+j] = g.values[si*cols+sj]
		}
	}
	return out
}

// CountValid returns the number of non-NaN cells.
func (g *ScalarGrid) CountValid() int {
	n := 0
	for _, v := range g.values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

func clone(s []float64) []float64 {
	return append([]float64(nil), s...)
}
