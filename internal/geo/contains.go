package geo

import (
	planar "github.com/ctessum/geom"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/sells-group/uhi-cli/internal/model"
)

// ringContains reports whether (x, y) lies inside or on the ring.
func ringContains(ring []float64, x, y float64) bool {
	return xy.IsPointInRing(geom.XY, geom.Coord{x, y}, ring)
}

// Planar converts an admin geometry to the polygon type the overlay
// operations work on. The rings of every part share one polygon and are read
// even-odd, so holes keep their meaning whatever their winding.
func Planar(mp *geom.MultiPolygon) planar.Polygon {
	if mp == nil {
		return nil
	}
	var out planar.Polygon
	for i := 0; i < mp.NumPolygons(); i++ {
		p := mp.Polygon(i)
		for j := 0; j < p.NumLinearRings(); j++ {
			flat := p.LinearRing(j).FlatCoords()
			ring := make(planar.Path, 0, len(flat)/2)
			for k := 0; k+1 < len(flat); k += 2 {
				ring = append(ring, planar.Point{X: flat[k], Y: flat[k+1]})
			}
			out = append(out, ring)
		}
	}
	return out
}

// Contains reports whether (x, y) lies inside g or on its boundary.
func Contains(g planar.Polygonal, x, y float64) bool {
	if g == nil {
		return false
	}
	return planar.Point{X: x, Y: y}.Within(g) != planar.Outside
}

// IsEmpty reports whether g covers no area.
func IsEmpty(g planar.Polygonal) bool {
	return g == nil || g.Area() == 0
}

// Rings counts the rings of g.
func Rings(g planar.Polygonal) int {
	if g == nil {
		return 0
	}
	n := 0
	for _, p := range g.Polygons() {
		n += len(p)
	}
	return n
}

var emptyBox = model.BBox{MinLng: 1, MinLat: 1, MaxLng: -1, MaxLat: -1}

// boundsOf returns the envelope of g as a BBox.
func boundsOf(g planar.Geom) model.BBox {
	if g == nil {
		return emptyBox
	}
	b := g.Bounds()
	if b == nil || b.Empty() {
		return emptyBox
	}
	return model.BBox{MinLng: b.Min.X, MinLat: b.Min.Y, MaxLng: b.Max.X, MaxLat: b.Max.Y}
}

func toBounds(b model.BBox) *planar.Bounds {
	return &planar.Bounds{
		Min: planar.Point{X: b.MinLng, Y: b.MinLat},
		Max: planar.Point{X: b.MaxLng, Y: b.MaxLat},
	}
}
