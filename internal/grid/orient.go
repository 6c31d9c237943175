package grid

import (
	"github.com/rotisserie/eris"
)

// ErrMisaligned is returned when two grids cannot be put on one lattice.
var ErrMisaligned = eris.New("grid: grids are not aligned")

// FromNorthUp labels a north-up raster block (row 0 is the northernmost
// row) with the lattice it was resampled onto. latAscending and lon are the
// lattice axes in ascending order; the returned grid carries descending
// latitude labels so each row keeps the latitude it actually holds.
func FromNorthUp(values []float64, latAscending, lon []float64) (*ScalarGrid, error) {
	order, err := orientationOf(latAscending)
	if err != nil || order != Ascending {
		return nil, eris.New("grid: north-up labels need an ascending latitude lattice")
	}
	lat := clone(latAscending)
	reverse(lat)
	return New(lat, lon, values)
}

// AlignedPair is a temperature grid and a vegetation grid on one lattice
// with both axes ascending. Reconcile is the only way to build one.
type AlignedPair struct {
	temperature *ScalarGrid
	vegetation  *ScalarGrid
}

// Reconcile normalizes both grids to ascending axes and checks they share
// the same labels. Orientation is resolved from each grid's own tags, so a
// north-up vegetation raster and a south-up temperature grid line up cell
// for cell.
func Reconcile(temperature, vegetation *ScalarGrid) (*AlignedPair, error) {
	if temperature == nil || vegetation == nil {
		return nil, eris.Wrap(ErrMisaligned, "grid: missing grid")
	}
	t := temperature.Ascending()
	v := vegetation.Ascending()
	if t.Rows() != v.Rows() || t.Cols() != v.Cols() {
		return nil, eris.Wrapf(ErrMisaligned, "grid: shapes %dx%d and %dx%d differ", t.Rows(), t.Cols(), v.Rows(), v.Cols())
	}
	if !sameAxis(t.lat, v.lat) {
		return nil, eris.Wrap(ErrMisaligned, "grid: latitude labels differ")
	}
	if !sameAxis(t.lon, v.lon) {
		return nil, eris.Wrap(ErrMisaligned, "grid: longitude labels differ")
	}
	// Share one set of labels so the pair is identical, not just close.
	v = &ScalarGrid{lat: t.lat, lon: t.lon, values: v.values, latOrder: Ascending, lonOrder: Ascending}
	return &AlignedPair{temperature: t, vegetation: v}, nil
}

func (p *AlignedPair) Temperature() *ScalarGrid { return p.temperature }
func (p *AlignedPair) Vegetation() *ScalarGrid  { return p.vegetation }
func (p *AlignedPair) Lat() []float64           { return p.temperature.Lat() }
func (p *AlignedPair) Lon() []float64           { return p.temperature.Lon() }
func (p *AlignedPair) Rows() int                { return p.temperature.Rows() }
func (p *AlignedPair) Cols() int                { return p.temperature.Cols() }

// WithTemperature returns a pair whose temperature grid is replaced by t,
// which must sit on the same lattice.
func (p *AlignedPair) WithTemperature(t *ScalarGrid) (*AlignedPair, error) {
	return Reconcile(t, p.vegetation)
}
