// Package era5 reads the coarse daily temperature reanalysis stored as
// NetCDF classic files, one file per year.
package era5

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/cdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/grid"
	"github.com/sells-group/uhi-cli/internal/model"
)

// KelvinOffset converts Kelvin to degrees Celsius.
const KelvinOffset = 273.15

// Options names the variables inside each file.
type Options struct {
	Variable     string
	TimeVar      string
	LatVar       string
	LonVar       string
	AssumeKelvin bool // when the variable carries no units attribute
}

// Reader produces seasonal mean temperature grids from a directory of
// yearly files.
type Reader struct {
	dir     string
	pattern string
	opts    Options
	log     *zap.Logger

	cached struct {
		window model.SeasonWindow
		grid   *grid.ScalarGrid
	}
}

// NewReader creates a Reader. pattern is a file name with a {year} placeholder.
func NewReader(dir, pattern string, opts Options) *Reader {
	return &Reader{
		dir:     dir,
		pattern: pattern,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "era5")),
	}
}

// Path returns the file holding the given year.
func (r *Reader) Path(year int) string {
	return filepath.Join(r.dir, strings.ReplaceAll(r.pattern, "{year}", strconv.Itoa(year)))
}

// SeasonalMean averages the variable over the time steps inside window,
// skipping nulls per cell, and returns it in degrees Celsius on the file's
// native axes with longitudes wrapped to [-180, 180]. The last result is
// cached, so consecutive cities of one batch read the file once.
func (r *Reader) SeasonalMean(ctx context.Context, window model.SeasonWindow) (*grid.ScalarGrid, error) {
	if r.cached.grid != nil && r.cached.window == window {
		return r.cached.grid, nil
	}

	path := r.Path(window.Year())
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(model.ErrDataUnavailable, "era5: no temperature file %s", path)
		}
		return nil, eris.Wrapf(err, "era5: open %s", path)
	}
	defer func() { _ = fh.Close() }()

	f, err := cdf.Open(fh)
	if err != nil {
		return nil, eris.Wrapf(err, "era5: read NetCDF header %s", path)
	}

	g, err := r.seasonalMean(ctx, f, window)
	if err != nil {
		return nil, eris.Wrapf(err, "era5: %s", filepath.Base(path))
	}
	g = grid.WrapLongitude(g)

	r.cached.window = window
	r.cached.grid = g
	r.log.Info("seasonal mean computed",
		zap.String("file", path),
		zap.String("start", window.StartDate()),
		zap.String("end", window.EndDate()),
		zap.Int("rows", g.Rows()),
		zap.Int("cols", g.Cols()),
	)
	return g, nil
}

func (r *Reader) seasonalMean(ctx context.Context, f *cdf.File, window model.SeasonWindow) (*grid.ScalarGrid, error) {
	h := f.Header
	layout, err := r.layout(h)
	if err != nil {
		return nil, err
	}

	times, err := readTimes(f, r.opts.TimeVar)
	if err != nil {
		return nil, err
	}
	lat, err := readFloats(f, r.opts.LatVar)
	if err != nil {
		return nil, err
	}
	lon, err := readFloats(f, r.opts.LonVar)
	if err != nil {
		return nil, err
	}
	if len(lat) != layout.nlat || len(lon) != layout.nlon {
		return nil, eris.Errorf("coordinate lengths %d/%d do not match %s shape", len(lat), len(lon), r.opts.Variable)
	}

	pk := readPacking(h, r.opts.Variable)
	offset := 0.0
	if r.isKelvin(h) {
		offset = KelvinOffset
	}

	cells := layout.nlat * layout.nlon
	sum := make([]float64, cells)
	count := make([]int, cells)
	steps := 0
	for t, ts := range times {
		if !window.Contains(ts) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slab, err := readSlab(f, r.opts.Variable, layout.begin(t), layout.end(t))
		if err != nil {
			return nil, err
		}
		for k, raw := range slab {
			v, ok := pk.unpack(raw)
			if !ok {
				continue
			}
			idx := k
			if layout.lonFirst {
				idx = (k%layout.nlat)*layout.nlon + k/layout.nlat
			}
			sum[idx] += v
			count[idx]++
		}
		steps++
	}
	if steps == 0 {
		return nil, eris.Wrapf(model.ErrDataUnavailable, "no time steps in [%s, %s)", window.StartDate(), window.EndDate())
	}

	means := make([]float64, cells)
	for i := range means {
		if count[i] == 0 {
			means[i] = math.NaN()
			continue
		}
		means[i] = sum[i]/float64(count[i]) - offset
	}
	r.log.Debug("time steps averaged", zap.Int("steps", steps), zap.Int("available", len(times)))

	return grid.New(lat, lon, means)
}

// isKelvin decides the unit from the units attribute, falling back to
// AssumeKelvin when there is none.
func (r *Reader) isKelvin(h *cdf.Header) bool {
	units, ok := h.GetAttribute(r.opts.Variable, "units").(string)
	if !ok || strings.TrimSpace(units) == "" {
		return r.opts.AssumeKelvin
	}
	switch strings.ToLower(strings.TrimSpace(units)) {
	case "k", "kelvin", "degk", "deg_k":
		return true
	}
	return false
}

// layout locates the time, latitude and longitude dimensions of the variable.
type layout struct {
	nlat     int
	nlon     int
	lonFirst bool
}

func (r *Reader) layout(h *cdf.Header) (*layout, error) {
	dims := h.Dimensions(r.opts.Variable)
	if dims == nil {
		return nil, eris.Errorf("variable %q not found", r.opts.Variable)
	}
	if len(dims) != 3 {
		return nil, eris.Errorf("variable %q has %d dimensions, want 3", r.opts.Variable, len(dims))
	}
	lengths := h.Lengths(r.opts.Variable)

	dimOf := func(coord string) (string, error) {
		d := h.Dimensions(coord)
		if len(d) != 1 {
			return "", eris.Errorf("coordinate %q must be one-dimensional", coord)
		}
		return d[0], nil
	}
	timeName, err := dimOf(r.opts.TimeVar)
	if err != nil {
		return nil, err
	}
	latName, err := dimOf(r.opts.LatVar)
	if err != nil {
		return nil, err
	}
	lonName, err := dimOf(r.opts.LonVar)
	if err != nil {
		return nil, err
	}

	if dims[0] != timeName {
		return nil, eris.Errorf("variable %q must have %q as its first dimension, got %v", r.opts.Variable, timeName, dims)
	}
	l := &layout{}
	switch {
	case dims[1] == latName && dims[2] == lonName:
		l.nlat, l.nlon = lengths[1], lengths[2]
	case dims[1] == lonName && dims[2] == latName:
		l.nlat, l.nlon, l.lonFirst = lengths[2], lengths[1], true
	default:
		return nil, eris.Errorf("variable %q dimensions %v do not match %s/%s", r.opts.Variable, dims, latName, lonName)
	}
	return l, nil
}

func (l *layout) begin(t int) []int { return []int{t, 0, 0} }

func (l *layout) end(t int) []int {
	if l.lonFirst {
		return []int{t + 1, l.nlon, l.nlat}
	}
	return []int{t + 1, l.nlat, l.nlon}
}

// packing holds CF packing and null conventions of a variable.
type packing struct {
	scale  float64
	offset float64
	fills  []float64
}

func readPacking(h *cdf.Header, v string) packing {
	p := packing{scale: 1}
	if s, ok := firstFloat(h.GetAttribute(v, "scale_factor")); ok {
		p.scale = s
	}
	if o, ok := firstFloat(h.GetAttribute(v, "add_offset")); ok {
		p.offset = o
	}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if f, ok := firstFloat(h.GetAttribute(v, name)); ok {
			p.fills = append(p.fills, f)
		}
	}
	return p
}

// unpack applies the packing to a stored value. ok is false for nulls.
func (p packing) unpack(raw float64) (float64, bool) {
	if math.IsNaN(raw) {
		return 0, false
	}
	for _, f := range p.fills {
		if raw == f {
			return 0, false
		}
	}
	return raw*p.scale + p.offset, true
}

func readFloats(f *cdf.File, v string) ([]float64, error) {
	lengths := f.Header.Lengths(v)
	if lengths == nil {
		return nil, eris.Errorf("variable %q not found", v)
	}
	end := append([]int(nil), lengths...)
	return readSlab(f, v, make([]int, len(end)), end)
}

// readSlab reads the hyperslab [begin, end) of v as float64.
func readSlab(f *cdf.File, v string, begin, end []int) ([]float64, error) {
	n := 1
	for i := range end {
		n *= end[i] - begin[i]
	}
	if n <= 0 {
		return nil, nil
	}
	r := f.Reader(v, begin, end)
	buf := r.Zero(n)
	if _, err := r.Read(buf); err != nil {
		return nil, eris.Wrapf(err, "read %s", v)
	}
	out, ok := toFloat64s(buf)
	if !ok {
		return nil, eris.Errorf("variable %q has a non-numeric type", v)
	}
	return out, nil
}

func toFloat64s(buf interface{}) ([]float64, bool) {
	switch b := buf.(type) {
	case []float64:
		return append([]float64(nil), b...), true
	case []float32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, true
	case []int32:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, true
	case []int16:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, true
	case []int8:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, true
	case []uint8:
		out := make([]float64, len(b))
		for i, v := range b {
			out[i] = float64(v)
		}
		return out, true
	}
	return nil, false
}

func firstFloat(attr interface{}) (float64, bool) {
	vals, ok := toFloat64s(attr)
	if !ok || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

func readTimes(f *cdf.File, v string) ([]time.Time, error) {
	units, _ := f.Header.GetAttribute(v, "units").(string)
	step, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, eris.Wrapf(err, "time variable %q", v)
	}
	raw, err := readFloats(f, v)
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, len(raw))
	for i, x := range raw {
		out[i] = ref.Add(time.Duration(math.Round(x * float64(step))))
	}
	return out, nil
}
