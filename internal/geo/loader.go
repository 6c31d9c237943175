package geo

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/unicode/norm"
)

// SRIDWGS84 is the geographic CRS every grid in the pipeline is expressed in.
const SRIDWGS84 = 4326

// MaxAdminLevel is the most specific GADM level carried on a record.
const MaxAdminLevel = 5

// AdminRecord is one administrative polygon from the boundary dataset.
type AdminRecord struct {
	Country  string                // GID_0
	Names    [MaxAdminLevel]string // Names[i] holds NAME_{i+1}
	Geometry *geom.MultiPolygon
}

// Name returns the record's name at the given level (1..5), or "".
func (r *AdminRecord) Name(level int) string {
	if level < 1 || level > MaxAdminLevel {
		return ""
	}
	return r.Names[level-1]
}

// Dataset is the read-only boundary reference loaded once per batch.
type Dataset struct {
	Records []*AdminRecord
	SRID    int // 0 when the CRS could not be identified as geographic
}

// NewDataset builds a dataset from in-memory records.
func NewDataset(records []*AdminRecord, srid int) *Dataset {
	return &Dataset{Records: records, SRID: srid}
}

// LoadShapefiles reads every GADM shapefile named in paths. Directory entries
// are expanded to the .shp files they contain.
func LoadShapefiles(paths []string) (*Dataset, error) {
	log := zap.L().With(zap.String("component", "geo.loader"))

	files, err := expandShapefiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, eris.Errorf("geo: no shapefiles found in %s", strings.Join(paths, ", "))
	}

	ds := &Dataset{SRID: -1}
	for _, f := range files {
		records, srid, err := loadShapefile(f)
		if err != nil {
			return nil, err
		}
		switch {
		case ds.SRID == -1:
			ds.SRID = srid
		case ds.SRID != srid:
			log.Warn("geo: shapefiles disagree on CRS", zap.String("file", f), zap.Int("srid", srid), zap.Int("dataset_srid", ds.SRID))
			ds.SRID = 0
		}
		ds.Records = append(ds.Records, records...)
		log.Info("boundary shapefile loaded", zap.String("file", f), zap.Int("records", len(records)))
	}

	return ds, nil
}

func expandShapefiles(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(p, "*.shp"))
		if err != nil {
			return nil, eris.Wrapf(err, "geo: glob %s", p)
		}
		sort.Strings(matches)
		files = append(files, matches...)
	}
	return files, nil
}

// loadShapefile reads one shapefile into admin records.
func loadShapefile(shpPath string) ([]*AdminRecord, int, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "geo: open shapefile %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	dec, err := attributeDecoder(shpPath)
	if err != nil {
		return nil, 0, err
	}

	countryIdx := fieldIndex(reader, "GID_0")
	if countryIdx < 0 {
		return nil, 0, eris.Errorf("geo: %s has no GID_0 field", shpPath)
	}
	var nameIdx [MaxAdminLevel]int
	for level := 1; level <= MaxAdminLevel; level++ {
		nameIdx[level-1] = fieldIndex(reader, "NAME_"+strconv.Itoa(level))
	}

	var records []*AdminRecord
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		mp := shapeToMultiPolygon(shape)
		if mp == nil {
			skipped++
			continue
		}

		rec := &AdminRecord{
			Country:  attribute(reader, dec, countryIdx),
			Geometry: mp,
		}
		for i, idx := range nameIdx {
			if idx >= 0 {
				rec.Names[i] = attribute(reader, dec, idx)
			}
		}
		records = append(records, rec)
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped shapefile records without polygon geometry",
			zap.String("file", shpPath),
			zap.Int("skipped", skipped),
		)
	}

	return records, detectSRID(shpPath), nil
}

// attributeDecoder picks the DBF charset from the .cpg sidecar, defaulting to UTF-8.
func attributeDecoder(shpPath string) (*encoding.Decoder, error) {
	cpg, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".cpg")
	if err != nil {
		return nil, nil
	}
	name := strings.TrimSpace(string(cpg))
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: unsupported shapefile charset %q", name)
	}
	return enc.NewDecoder(), nil
}

func attribute(reader *shp.Reader, dec *encoding.Decoder, idx int) string {
	val := strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
	if dec != nil {
		if s, err := dec.String(val); err == nil {
			val = s
		}
	}
	return norm.NFC.String(val)
}

// detectSRID inspects the .prj sidecar. GADM ships WGS84 geographic
// coordinates; a projected CRS is reported as 0 so masking can refuse it.
func detectSRID(shpPath string) int {
	prj, err := os.ReadFile(strings.TrimSuffix(shpPath, filepath.Ext(shpPath)) + ".prj")
	if err != nil {
		return SRIDWGS84
	}
	wkt := strings.ToUpper(string(prj))
	if strings.Contains(wkt, "PROJCS") || strings.Contains(wkt, "PROJCRS") {
		return 0
	}
	return SRIDWGS84
}

// fieldIndex returns the index of a named field in the shapefile, or -1 if not found.
func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}

// shapeToMultiPolygon converts a shapefile polygon (plain, M or Z) to a
// MultiPolygon. Returns nil for unsupported or empty shapes.
func shapeToMultiPolygon(shape shp.Shape) *geom.MultiPolygon {
	switch s := shape.(type) {
	case *shp.Polygon:
		return partsToMultiPolygon(s.Parts, s.Points)
	case *shp.PolygonZ:
		return partsToMultiPolygon(s.Parts, s.Points)
	case *shp.PolygonM:
		return partsToMultiPolygon(s.Parts, s.Points)
	default:
		return nil
	}
}

// partsToMultiPolygon groups rings into polygons. Shapefiles store outer
// rings clockwise and holes counter-clockwise; a hole is attached to the
// outer ring that contains it, and a ring contained by no outer ring becomes
// an outer ring itself.
func partsToMultiPolygon(parts []int32, points []shp.Point) *geom.MultiPolygon {
	if len(parts) == 0 || len(points) == 0 {
		return nil
	}

	var polys []*geom.Polygon
	var holes [][]float64
	for i := range parts {
		start := parts[i]
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || end > int32(len(points)) || end-start < 3 {
			continue
		}

		flat := make([]float64, 0, 2*(end-start+1))
		for j := start; j < end; j++ {
			flat = append(flat, points[j].X, points[j].Y)
		}
		flat = closeRing(flat)
		if len(flat) < 8 {
			continue
		}

		if !xy.IsRingCounterClockwise(geom.XY, flat) {
			polys = append(polys, newPolygon(flat))
		} else {
			holes = append(holes, flat)
		}
	}

	for _, h := range holes {
		owner := -1
		for i, p := range polys {
			if ringContains(p.LinearRing(0).FlatCoords(), h[0], h[1]) {
				owner = i
				break
			}
		}
		if owner < 0 {
			polys = append(polys, newPolygon(h))
			continue
		}
		if err := polys[owner].Push(geom.NewLinearRingFlat(geom.XY, h)); err != nil {
			zap.L().Debug("geo: skipping malformed hole", zap.Error(err))
		}
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(SRIDWGS84)
	for i, p := range polys {
		if err := mp.Push(p); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

func newPolygon(outer []float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, outer, []int{len(outer)})
}

// closeRing appends the first vertex when the ring is open.
func closeRing(flat []float64) []float64 {
	n := len(flat)
	if n >= 4 && (flat[0] != flat[n-2] || flat[1] != flat[n-1]) {
		flat = append(flat, flat[0], flat[1])
	}
	return flat
}
