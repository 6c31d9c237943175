package grid

import (
	"math"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/model"
)

// WGS84 is the proj4 definition of the geographic CRS the lattice lives in.
const WGS84 = "+proj=longlat +datum=WGS84 +no_defs"

// Affine maps pixel (col, row) to CRS coordinates of the pixel's top-left
// corner: x = OriginX + col*PixelWidth, y = OriginY + row*PixelHeight.
// PixelHeight is negative for north-up rasters.
type Affine struct {
	OriginX     float64
	OriginY     float64
	PixelWidth  float64
	PixelHeight float64
}

// Raster is a single-band georeferenced image in its native CRS.
type Raster struct {
	Width     int
	Height    int
	Values    []float64 // row-major, row 0 first
	Transform Affine
	CRS       string // proj4
	NoData    float64
	HasNoData bool
}

// Valid reports whether v is a usable sample.
func (r *Raster) Valid(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	return !r.HasNoData || v != r.NoData
}

// Target is a north-up output lattice in WGS84: Rows x Cols cells covering
// Bounds, row 0 at Bounds.MaxLat.
type Target struct {
	Bounds model.BBox
	Rows   int
	Cols   int
}

// WarpResult is the resampled block and how much of it got data.
type WarpResult struct {
	Values  []float64 // north-up, row-major, NaN where no source pixel contributed
	Covered int
}

// Coverage is the fraction of output cells that received data.
func (w *WarpResult) Coverage() float64 {
	if len(w.Values) == 0 {
		return 0
	}
	return float64(w.Covered) / float64(len(w.Values))
}

// WarpAverage resamples src onto dst by area-weighted averaging. Each output
// cell's corners are projected into the source CRS; every source pixel
// overlapping that footprint contributes in proportion to the overlap.
// Nodata pixels are ignored.
func WarpAverage(src *Raster, dst Target) (*WarpResult, error) {
	if src.Width <= 0 || src.Height <= 0 || len(src.Values) != src.Width*src.Height {
		return nil, eris.Errorf("grid: raster %dx%d holds %d values", src.Width, src.Height, len(src.Values))
	}
	if src.Transform.PixelWidth == 0 || src.Transform.PixelHeight == 0 {
		return nil, eris.New("grid: raster has a degenerate geotransform")
	}
	if dst.Rows <= 0 || dst.Cols <= 0 {
		return nil, eris.Errorf("grid: empty warp target %dx%d", dst.Rows, dst.Cols)
	}

	toSource, err := transformer(src.CRS)
	if err != nil {
		return nil, err
	}

	// Project the (rows+1) x (cols+1) cell corners once, into source pixel space.
	dx := (dst.Bounds.MaxLng - dst.Bounds.MinLng) / float64(dst.Cols)
	dy := (dst.Bounds.MaxLat - dst.Bounds.MinLat) / float64(dst.Rows)
	stride := dst.Cols + 1
	px := make([]float64, (dst.Rows+1)*stride)
	py := make([]float64, len(px))
	for r := 0; r <= dst.Rows; r++ {
		lat := dst.Bounds.MaxLat - float64(r)*dy
		for c := 0; c <= dst.Cols; c++ {
			lng := dst.Bounds.MinLng + float64(c)*dx
			x, y, err := toSource(lng, lat)
			if err != nil {
				return nil, eris.Wrapf(err, "grid: project corner (%f, %f)", lng, lat)
			}
			k := r*stride + c
			px[k] = (x - src.Transform.OriginX) / src.Transform.PixelWidth
			py[k] = (y - src.Transform.OriginY) / src.Transform.PixelHeight
		}
	}

	res := &WarpResult{Values: make([]float64, dst.Rows*dst.Cols)}
	for r := 0; r < dst.Rows; r++ {
		for c := 0; c < dst.Cols; c++ {
			corners := [4]int{r*stride + c, r*stride + c + 1, (r+1)*stride + c, (r+1)*stride + c + 1}
			c0, c1 := math.Inf(1), math.Inf(-1)
			r0, r1 := math.Inf(1), math.Inf(-1)
			for _, k := range corners {
				c0, c1 = math.Min(c0, px[k]), math.Max(c1, px[k])
				r0, r1 = math.Min(r0, py[k]), math.Max(r1, py[k])
			}
			v := src.average(c0, c1, r0, r1)
			res.Values[r*dst.Cols+c] = v
			if !math.IsNaN(v) {
				res.Covered++
			}
		}
	}
	return res, nil
}

// minOverlap drops slivers produced by floating point error at pixel edges.
const minOverlap = 1e-9

// average is the overlap-weighted mean of valid pixels in the pixel-space
// window [c0, c1) x [r0, r1).
func (r *Raster) average(c0, c1, r0, r1 float64) float64 {
	c0, c1 = math.Max(c0, 0), math.Min(c1, float64(r.Width))
	r0, r1 = math.Max(r0, 0), math.Min(r1, float64(r.Height))
	if c1-c0 <= minOverlap || r1-r0 <= minOverlap {
		return math.NaN()
	}

	var sum, weight float64
	for row := int(math.Floor(r0)); row < int(math.Ceil(r1)); row++ {
		wy := math.Min(float64(row+1), r1) - math.Max(float64(row), r0)
		if wy <= minOverlap {
			continue
		}
		for col := int(math.Floor(c0)); col < int(math.Ceil(c1)); col++ {
			wx := math.Min(float64(col+1), c1) - math.Max(float64(col), c0)
			if wx <= minOverlap {
				continue
			}
			v := r.Values[row*r.Width+col]
			if !r.Valid(v) {
				continue
			}
			sum += v * wx * wy
			weight += wx * wy
		}
	}
	if weight == 0 {
		return math.NaN()
	}
	return sum / weight
}

// transformer returns the WGS84 -> crs coordinate transform. Geographic
// WGS84 sources get the identity.
func transformer(crs string) (proj.Transformer, error) {
	if IsWGS84(crs) {
		return func(x, y float64) (float64, float64, error) { return x, y, nil }, nil
	}
	from, err := proj.Parse(WGS84)
	if err != nil {
		return nil, eris.Wrap(err, "grid: parse WGS84")
	}
	to, err := proj.Parse(crs)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: parse raster CRS %q", crs)
	}
	t, err := from.NewTransform(to)
	if err != nil {
		return nil, eris.Wrapf(err, "grid: transform to %q", crs)
	}
	return t, nil
}

// IsWGS84 reports whether a proj4 string describes geographic WGS84. An
// empty string is taken as WGS84.
func IsWGS84(crs string) bool {
	s := strings.ToLower(strings.TrimSpace(crs))
	if s == "" {
		return true
	}
	if !strings.Contains(s, "+proj=longlat") && !strings.Contains(s, "+proj=latlong") {
		return false
	}
	return strings.Contains(s, "wgs84") || (!strings.Contains(s, "+datum=") && !strings.Contains(s, "+ellps="))
}
