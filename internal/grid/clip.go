package grid

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/model"
)

// ErrEmptyClip is returned when a bounding box selects no labels on an axis.
var ErrEmptyClip = eris.New("grid: clip selects no cells")

// Clip keeps the rows and columns whose labels fall inside box, inclusive.
// Selection is by value, so it works whichever way an axis is stored; the
// result keeps the source orientation.
func Clip(g *ScalarGrid, box model.BBox) (*ScalarGrid, error) {
	rows := selectRange(g.lat, box.MinLat, box.MaxLat)
	cols := selectRange(g.lon, box.MinLng, box.MaxLng)
	if len(rows) == 0 || len(cols) == 0 {
		return nil, eris.Wrapf(ErrEmptyClip, "grid: %s outside lat [%g, %g] lon [%g, %g]",
			box, g.lat[0], g.lat[len(g.lat)-1], g.lon[0], g.lon[len(g.lon)-1])
	}

	lat := make([]float64, len(rows))
	for k, i := range rows {
		lat[k] = g.lat[i]
	}
	lon := make([]float64, len(cols))
	for k, j := range cols {
		lon[k] = g.lon[j]
	}
	values := make([]float64, 0, len(rows)*len(cols))
	for _, i := range rows {
		for _, j := range cols {
			values = append(values, g.At(i, j))
		}
	}
	return &ScalarGrid{lat: lat, lon: lon, values: values, latOrder: g.latOrder, lonOrder: g.lonOrder}, nil
}

func selectRange(axis []float64, lo, hi float64) []int {
	var idx []int
	for i, v := range axis {
		if v >= lo && v <= hi {
			idx = append(idx, i)
		}
	}
	return idx
}

// WrapLongitude maps longitudes in (180, 360) to (-180, 0) and reorders the
// columns so the axis is ascending again. Grids already in [-180, 180] are
// returned unchanged.
func WrapLongitude(g *ScalarGrid) *ScalarGrid {
	needs := false
	for _, v := range g.lon {
		if v > 180 {
			needs = true
			break
		}
	}
	if !needs {
		return g
	}

	type column struct {
		lon float64
		src int
	}
	cols := make([]column, len(g.lon))
	for j, v := range g.lon {
		if v > 180 {
			v -= 360
		}
		cols[j] = column{lon: v, src: j}
	}
	sort.SliceStable(cols, func(a, b int) bool { return cols[a].lon < cols[b].lon })

	// 0 and 360 collapse onto one label; keep the first.
	kept := cols[:0]
	for _, c := range cols {
		if len(kept) > 0 && kept[len(kept)-1].lon == c.lon {
			continue
		}
		kept = append(kept, c)
	}

	lon := make([]float64, len(kept))
	for k, c := range kept {
		lon[k] = c.lon
	}
	values := make([]float64, 0, g.Rows()*len(kept))
	for i := 0; i < g.Rows(); i++ {
		for _, c := range kept {
			values = append(values, g.At(i, c.src))
		}
	}
	return &ScalarGrid{lat: clone(g.lat), lon: lon, values: values, latOrder: g.latOrder, lonOrder: Ascending}
}
