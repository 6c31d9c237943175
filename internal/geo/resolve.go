// Package geo resolves places to administrative polygons and derives the
// study area and land mask used to bound and filter the raster analysis.
package geo

import (
	planar "github.com/ctessum/geom"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/uhi-cli/internal/model"
)

// AdminLevels is the search order, most specific first.
var AdminLevels = []int{5, 4, 3, 2, 1}

// DefaultBufferDegrees pads the study area by roughly 20 km at mid-latitudes.
const DefaultBufferDegrees = 0.2

// Region is a resolved place: the dissolve of every record matching the
// name at the most specific level where a match exists.
type Region struct {
	Country  string
	Name     string
	Level    int
	Records  int
	Geometry planar.Polygonal
}

// Bounds returns the envelope of the dissolved geometry.
func (r *Region) Bounds() model.BBox {
	return boundsOf(r.Geometry)
}

// Contains reports whether (lng, lat) lies inside the region.
func (r *Region) Contains(lng, lat float64) bool {
	return Contains(r.Geometry, lng, lat)
}

// Resolver looks places up in a boundary dataset.
type Resolver struct {
	ds *Dataset
}

// NewResolver creates a Resolver over ds.
func NewResolver(ds *Dataset) *Resolver {
	return &Resolver{ds: ds}
}

// Resolve finds country/name at the most specific admin level. It returns
// an error wrapping model.ErrRegionNotFound when no level matches.
func (r *Resolver) Resolve(country, name string) (*Region, error) {
	target := norm.NFC.String(name)
	if target == "" {
		return nil, eris.Wrap(model.ErrRegionNotFound, "geo: empty place name")
	}

	for _, level := range AdminLevels {
		var matches []*AdminRecord
		for _, rec := range r.ds.Records {
			if rec.Country == country && norm.NFC.String(rec.Name(level)) == target {
				matches = append(matches, rec)
			}
		}
		if len(matches) == 0 {
			continue
		}

		zap.L().Debug("geo: place resolved",
			zap.String("country", country),
			zap.String("name", name),
			zap.Int("level", level),
			zap.Int("records", len(matches)),
		)
		return &Region{
			Country:  country,
			Name:     name,
			Level:    level,
			Records:  len(matches),
			Geometry: Dissolve(matches),
		}, nil
	}

	return nil, eris.Wrapf(model.ErrRegionNotFound, "geo: %s not found in %s at levels %v", name, country, AdminLevels)
}

// Dissolve unions the geometries of records. Shared edges between
// neighbouring units disappear and overlaps are counted once. It returns nil
// when no record carries a geometry.
func Dissolve(records []*AdminRecord) planar.Polygonal {
	var out planar.Polygonal
	for _, rec := range records {
		p := Planar(rec.Geometry)
		if len(p) == 0 {
			continue
		}
		if out == nil {
			out = p
			continue
		}
		out = out.Union(p)
	}
	if out != nil {
		zap.L().Debug("geo: dissolved records",
			zap.Int("records", len(records)),
			zap.Int("rings", Rings(out)),
		)
	}
	return out
}

// StudyArea is the buffered envelope around a region that bounds every
// raster read.
type StudyArea struct {
	Region        *Region
	BufferDegrees float64
	Envelope      model.BBox
}

// NewStudyArea buffers the region by bufferDegrees. The buffer is in
// degrees, not metres; the envelope of a round-joined buffer is exactly the
// region envelope grown by the buffer distance on each side.
func NewStudyArea(region *Region, bufferDegrees float64) (*StudyArea, error) {
	if region == nil || IsEmpty(region.Geometry) {
		return nil, eris.New("geo: study area needs a non-empty region")
	}
	if bufferDegrees < 0 {
		return nil, eris.Errorf("geo: negative buffer %f", bufferDegrees)
	}
	return &StudyArea{
		Region:        region,
		BufferDegrees: bufferDegrees,
		Envelope:      region.Bounds().Grow(bufferDegrees),
	}, nil
}
