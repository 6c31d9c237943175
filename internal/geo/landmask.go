package geo

import (
	planar "github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/model"
)

// LandMask is the set of admin polygons clipped to a study envelope. A point
// not covered by any part is water.
type LandMask struct {
	Envelope model.BBox
	SRID     int
	Parts    []planar.Polygonal
	index    *rtree.Rtree
}

// landPart is the rtree entry for one clipped record.
type landPart struct {
	planar.Polygonal
}

// BuildLandMask intersects every record of ds with env and indexes the
// non-empty pieces.
func BuildLandMask(ds *Dataset, env model.BBox) *LandMask {
	m := &LandMask{Envelope: env, SRID: ds.SRID, index: rtree.NewTree(25, 50)}
	clip := toBounds(env)
	for _, rec := range ds.Records {
		p := Planar(rec.Geometry)
		if len(p) == 0 {
			continue
		}
		clipped := ClipPolygon(p, clip)
		if IsEmpty(clipped) {
			continue
		}
		m.Parts = append(m.Parts, clipped)
		m.index.Insert(&landPart{Polygonal: clipped})
	}
	zap.L().Debug("geo: land mask built",
		zap.Int("records", len(ds.Records)),
		zap.Int("parts", len(m.Parts)),
	)
	return m
}

// Empty reports whether the mask holds no land at all.
func (m *LandMask) Empty() bool {
	return m == nil || len(m.Parts) == 0
}

// Contains reports whether (lng, lat) is land.
func (m *LandMask) Contains(lng, lat float64) bool {
	if m.Empty() {
		return false
	}
	pt := planar.Point{X: lng, Y: lat}
	for _, g := range m.index.SearchIntersect(pt.Bounds()) {
		if pt.Within(g.(*landPart).Polygonal) != planar.Outside {
			return true
		}
	}
	return false
}

// ClipPolygon returns the part of p inside clip, or nil when they do not
// overlap.
func ClipPolygon(p planar.Polygonal, clip *planar.Bounds) planar.Polygonal {
	if p == nil {
		return nil
	}
	return clip.Intersection(p)
}
