package grid

import (
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/uhi-cli/internal/model"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		lat    []float64
		lon    []float64
		values []float64
	}{
		{"empty lat", nil, []float64{0}, nil},
		{"shape mismatch", []float64{0, 1}, []float64{0, 1}, []float64{1, 2, 3}},
		{"not monotonic", []float64{0, 2, 1}, []float64{0}, []float64{1, 2, 3}},
		{"repeated label", []float64{0, 0}, []float64{0}, []float64{1, 2}},
		{"nan label", []float64{0, math.NaN()}, []float64{0}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.lat, tt.lon, tt.values)
			assert.Error(t, err)
		})
	}
}

func TestNew_Orientation(t *testing.T) {
	g, err := New([]float64{3, 2, 1}, []float64{10, 11}, make([]float64, 6))
	require.NoError(t, err)
	assert.Equal(t, Descending, g.LatOrientation())
	assert.Equal(t, Ascending, g.LonOrientation())

	single, err := New([]float64{5}, []float64{1}, []float64{0})
	require.NoError(t, err)
	assert.Equal(t, Ascending, single.LatOrientation())
}

func TestNew_CopiesInputs(t *testing.T) {
	lat := []float64{0, 1}
	values := []float64{1, 2}
	g, err := New(lat, []float64{0}, values)
	require.NoError(t, err)
	lat[0] = 99
	values[0] = 99
	assert.Equal(t, 0.0, g.Lat()[0])
	assert.Equal(t, 1.0, g.At(0, 0))
}

func TestAscending_FlipsBothAxes(t *testing.T) {
	// rows: lat 2, 1, 0; cols: lon 11, 10
	g, err := New([]float64{2, 1, 0}, []float64{11, 10}, []float64{
		21, 20,
		11, 10,
		1, 0,
	})
	require.NoError(t, err)

	asc := g.Ascending()
	assert.Equal(t, []float64{0, 1, 2}, asc.Lat())
	assert.Equal(t, []float64{10, 11}, asc.Lon())
	assert.Equal(t, []float64{0, 1, 10, 11, 20, 21}, asc.Values())
	assert.Equal(t, Ascending, asc.LatOrientation())

	assert.Same(t, asc, asc.Ascending())
}

func TestMapAndCountValid(t *testing.T) {
	g, err := New([]float64{0, 1}, []float64{0, 1}, []float64{1, math.NaN(), 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 3, g.CountValid())

	doubled := g.Map(func(v float64) float64 { return v * 2 })
	assert.Equal(t, 8.0, doubled.At(1, 1))
	assert.True(t, math.IsNaN(doubled.At(0, 1)))
	assert.Equal(t, 4.0, g.At(1, 1), "source untouched")
}

func TestWithValues(t *testing.T) {
	g, err := New([]float64{0, 1}, []float64{0}, []float64{1, 2})
	require.NoError(t, err)
	_, err = g.WithValues([]float64{1})
	assert.Error(t, err)

	h, err := g.WithValues([]float64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, 6.0, h.At(1, 0))
	assert.Equal(t, 2.0, g.At(1, 0))
}

func TestLinspace(t *testing.T) {
	assert.Nil(t, Linspace(0, 1, 0))
	assert.Equal(t, []float64{3}, Linspace(3, 5, 1))
	got := Linspace(0, 1, 5)
	assert.InDeltaSlice(t, []float64{0, 0.25, 0.5, 0.75, 1}, got, 1e-12)
	assert.Equal(t, 1.0, got[4])
}

func TestClip_KeepsOrientation(t *testing.T) {
	g, err := New([]float64{44, 43, 42, 41}, []float64{10, 11, 12}, []float64{
		1, 2, 3,
		4, 5, 6,
		7, 8, 9,
		10, 11, 12,
	})
	require.NoError(t, err)

	c, err := Clip(g, model.BBox{MinLng: 10.5, MinLat: 41.5, MaxLng: 12, MaxLat: 43})
	require.NoError(t, err)
	assert.Equal(t, []float64{43, 42}, c.Lat())
	assert.Equal(t, []float64{11, 12}, c.Lon())
	assert.Equal(t, []float64{5, 6, 8, 9}, c.Values())
	assert.Equal(t, Descending, c.LatOrientation())
}

func TestClip_Empty(t *testing.T) {
	g, err := New([]float64{0, 1}, []float64{0, 1}, make([]float64, 4))
	require.NoError(t, err)
	_, err = Clip(g, model.BBox{MinLng: 5, MinLat: 5, MaxLng: 6, MaxLat: 6})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrEmptyClip))
}

func TestWrapLongitude(t *testing.T) {
	g, err := New([]float64{0}, []float64{0, 90, 180, 270}, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	w := WrapLongitude(g)
	assert.Equal(t, []float64{-90, 0, 90, 180}, w.Lon())
	assert.Equal(t, []float64{4, 1, 2, 3}, w.Values())

	plain, err := New([]float64{0}, []float64{-10, 10}, []float64{1, 2})
	require.NoError(t, err)
	assert.Same(t, plain, WrapLongitude(plain))
}

func TestLattice(t *testing.T) {
	g, err := New([]float64{43, 42}, []float64{10, 10.5, 11}, make([]float64, 6))
	require.NoError(t, err)

	lat, lon, err := Lattice(g, 3)
	require.NoError(t, err)
	assert.Len(t, lat, 6)
	assert.Len(t, lon, 9)
	assert.Equal(t, 42.0, lat[0])
	assert.Equal(t, 43.0, lat[5])
	assert.Equal(t, 10.0, lon[0])
	assert.Equal(t, 11.0, lon[8])

	_, _, err = Lattice(g, 0)
	assert.Error(t, err)
}

// plane builds a grid holding 2*lat + 3*lon, which bilinear interpolation
// reproduces exactly.
func plane(t *testing.T, lat, lon []float64) *ScalarGrid {
	t.Helper()
	values := make([]float64, 0, len(lat)*len(lon))
	for _, y := range lat {
		for _, x := range lon {
			values = append(values, 2*y+3*x)
		}
	}
	g, err := New(lat, lon, values)
	require.NoError(t, err)
	return g
}

func TestInterpolate_Plane(t *testing.T) {
	for _, lat := range [][]float64{{40, 41, 42}, {42, 41, 40}} {
		g := plane(t, lat, []float64{10, 11})
		out, err := Interpolate(g, []float64{40, 40.25, 41.5, 42}, []float64{10, 10.5, 11})
		require.NoError(t, err)

		for i, y := range out.Lat() {
			for j, x := range out.Lon() {
				assert.InDelta(t, 2*y+3*x, out.At(i, j), 1e-9, "lat %v lon %v", y, x)
			}
		}
	}
}

func TestInterpolate_OutsideIsNaN(t *testing.T) {
	g := plane(t, []float64{40, 41}, []float64{10, 11})
	out, err := Interpolate(g, []float64{39.5, 40.5}, []float64{10.5, 11.5})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.At(0, 0)))
	assert.True(t, math.IsNaN(out.At(1, 1)))
	assert.InDelta(t, 2*40.5+3*10.5, out.At(1, 0), 1e-9)
}

func TestInterpolate_NullCorners(t *testing.T) {
	g, err := New([]float64{0, 1}, []float64{0, 1}, []float64{
		1, math.NaN(),
		3, 5,
	})
	require.NoError(t, err)

	out, err := Interpolate(g, []float64{0, 0.5, 1}, []float64{0, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.At(0, 0), "exact hit ignores the null neighbour")
	assert.True(t, math.IsNaN(out.At(0, 1)), "half weight on a null corner")
	assert.InDelta(t, 2.0, out.At(1, 0), 1e-12)
	assert.InDelta(t, 4.0, out.At(2, 1), 1e-12)
}

func TestFromNorthUp(t *testing.T) {
	g, err := FromNorthUp([]float64{
		2, 2,
		1, 1,
		0, 0,
	}, []float64{0, 1, 2}, []float64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, Descending, g.LatOrientation())
	assert.Equal(t, []float64{2, 1, 0}, g.Lat())
	assert.Equal(t, 2.0, g.At(0, 0))

	_, err = FromNorthUp(make([]float64, 6), []float64{2, 1, 0}, []float64{5, 6})
	assert.Error(t, err)
}

// A north-up vegetation block and a south-up temperature grid, both holding
// their own latitude as value, must land cell for cell on one lattice.
func TestReconcile_MixedOrientation(t *testing.T) {
	latAsc := []float64{45, 45.5, 46, 46.5}
	lon := []float64{7, 7.5, 8}

	var southUp, northUp []float64
	for _, y := range latAsc {
		for range lon {
			southUp = append(southUp, y)
		}
	}
	for i := len(latAsc) - 1; i >= 0; i-- {
		for range lon {
			northUp = append(northUp, latAsc[i])
		}
	}

	temp, err := New(latAsc, lon, southUp)
	require.NoError(t, err)
	veg, err := FromNorthUp(northUp, latAsc, lon)
	require.NoError(t, err)

	pair, err := Reconcile(temp, veg)
	require.NoError(t, err)
	assert.Equal(t, latAsc, pair.Lat())
	assert.Equal(t, lon, pair.Lon())
	assert.Equal(t, Ascending, pair.Vegetation().LatOrientation())
	for i := 0; i < pair.Rows(); i++ {
		for j := 0; j < pair.Cols(); j++ {
			assert.Equal(t, pair.Temperature().At(i, j), pair.Vegetation().At(i, j))
			assert.Equal(t, latAsc[i], pair.Vegetation().At(i, j))
		}
	}
	assert.Equal(t, pair.Temperature().Lat(), pair.Vegetation().Lat())
}

func TestReconcile_Mismatch(t *testing.T) {
	a, err := New([]float64{0, 1}, []float64{0, 1}, make([]float64, 4))
	require.NoError(t, err)
	shifted, err := New([]float64{0, 1}, []float64{0.5, 1.5}, make([]float64, 4))
	require.NoError(t, err)
	wide, err := New([]float64{0, 1}, []float64{0, 1, 2}, make([]float64, 6))
	require.NoError(t, err)

	for _, other := range []*ScalarGrid{shifted, wide, nil} {
		_, err := Reconcile(a, other)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrMisaligned))
	}
}

func TestWithTemperature(t *testing.T) {
	a, err := New([]float64{0, 1}, []float64{0, 1}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	pair, err := Reconcile(a, a)
	require.NoError(t, err)

	masked, err := pair.WithTemperature(a.Map(func(float64) float64 { return math.NaN() }))
	require.NoError(t, err)
	assert.Equal(t, 0, masked.Temperature().CountValid())
	assert.Equal(t, 4, masked.Vegetation().CountValid())
}
