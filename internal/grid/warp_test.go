package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/uhi-cli/internal/model"
)

// degreeRaster is a 4x4 WGS84 raster of 1 degree pixels covering
// lon [0, 4], lat [0, 4], valued row*4 + col.
func degreeRaster() *Raster {
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i)
	}
	return &Raster{
		Width:     4,
		Height:    4,
		Values:    values,
		Transform: Affine{OriginX: 0, OriginY: 4, PixelWidth: 1, PixelHeight: -1},
		CRS:       WGS84,
	}
}

func TestWarpAverage_Identity(t *testing.T) {
	res, err := WarpAverage(degreeRaster(), Target{
		Bounds: model.BBox{MinLng: 0, MinLat: 0, MaxLng: 4, MaxLat: 4},
		Rows:   2,
		Cols:   2,
	})
	require.NoError(t, err)

	// north-up: first output row averages source rows 0-1
	assert.InDeltaSlice(t, []float64{2.5, 4.5, 10.5, 12.5}, res.Values, 1e-9)
	assert.Equal(t, 4, res.Covered)
	assert.Equal(t, 1.0, res.Coverage())
}

func TestWarpAverage_PartialPixels(t *testing.T) {
	res, err := WarpAverage(degreeRaster(), Target{
		Bounds: model.BBox{MinLng: 0.5, MinLat: 3, MaxLng: 1.5, MaxLat: 4},
		Rows:   1,
		Cols:   1,
	})
	require.NoError(t, err)
	// half of pixel 0 and half of pixel 1
	assert.InDelta(t, 0.5, res.Values[0], 1e-9)
}

func TestWarpAverage_NoData(t *testing.T) {
	src := degreeRaster()
	src.HasNoData = true
	src.NoData = 0

	res, err := WarpAverage(src, Target{
		Bounds: model.BBox{MinLng: 0, MinLat: 2, MaxLng: 2, MaxLat: 4},
		Rows:   1,
		Cols:   1,
	})
	require.NoError(t, err)
	assert.InDelta(t, 10.0/3, res.Values[0], 1e-9)
}

func TestWarpAverage_OutsideExtent(t *testing.T) {
	res, err := WarpAverage(degreeRaster(), Target{
		Bounds: model.BBox{MinLng: 2, MinLat: 0, MaxLng: 6, MaxLat: 4},
		Rows:   1,
		Cols:   2,
	})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(res.Values[0]))
	assert.True(t, math.IsNaN(res.Values[1]))
	assert.Equal(t, 1, res.Covered)
	assert.Equal(t, 0.5, res.Coverage())
}

func TestWarpAverage_Projected(t *testing.T) {
	const merc = "+proj=merc +a=6378137 +b=6378137 +lat_ts=0.0 +lon_0=0.0 +x_0=0.0 +y_0=0 +k=1.0 +units=m +nadgrids=@null +no_defs"
	values := make([]float64, 100*100)
	for i := range values {
		values[i] = 7
	}
	src := &Raster{
		Width:     100,
		Height:    100,
		Values:    values,
		Transform: Affine{OriginX: -1e6, OriginY: 1e6, PixelWidth: 2e4, PixelHeight: -2e4},
		CRS:       merc,
	}

	res, err := WarpAverage(src, Target{
		Bounds: model.BBox{MinLng: 1, MinLat: 1, MaxLng: 3, MaxLat: 3},
		Rows:   4,
		Cols:   4,
	})
	require.NoError(t, err)
	assert.Equal(t, 16, res.Covered)
	for _, v := range res.Values {
		assert.InDelta(t, 7.0, v, 1e-9)
	}
}

func TestWarpAverage_BadInput(t *testing.T) {
	src := degreeRaster()
	src.Values = src.Values[:3]
	_, err := WarpAverage(src, Target{Bounds: model.BBox{MaxLng: 1, MaxLat: 1}, Rows: 1, Cols: 1})
	assert.Error(t, err)

	_, err = WarpAverage(degreeRaster(), Target{Bounds: model.BBox{MaxLng: 1, MaxLat: 1}})
	assert.Error(t, err)

	flat := degreeRaster()
	flat.Transform.PixelHeight = 0
	_, err = WarpAverage(flat, Target{Bounds: model.BBox{MaxLng: 1, MaxLat: 1}, Rows: 1, Cols: 1})
	assert.Error(t, err)
}

func TestIsWGS84(t *testing.T) {
	assert.True(t, IsWGS84(""))
	assert.True(t, IsWGS84("+proj=longlat +datum=WGS84 +no_defs"))
	assert.True(t, IsWGS84("+proj=longlat"))
	assert.False(t, IsWGS84("+proj=longlat +ellps=intl"))
	assert.False(t, IsWGS84("+proj=utm +zone=32 +datum=WGS84"))
}
