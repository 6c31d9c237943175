package ndvi

import (
	"bytes"
	"encoding/binary"
	"image"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	gtiff "github.com/google/tiff"
	"github.com/rotisserie/eris"
	"golang.org/x/image/tiff"

	"github.com/sells-group/uhi-cli/internal/grid"
)

// GeoTIFF tags and keys read from the first IFD.
const (
	tagModelPixelScale   = 33550
	tagModelTiepoint     = 33922
	tagGeoKeyDirectory   = 34735
	tagGDALNoData        = 42113
	keyModelType         = 1024
	keyRasterType        = 1025
	keyGeographicType    = 2048
	keyProjectedCSType   = 3072
	modelTypeProjected   = 1
	modelTypeGeographic  = 2
	rasterPixelIsPoint   = 2
	userDefinedGeoKey    = 32767
	classicTIFFMagic     = 42
	ifdEntrySize         = 12
	inlineValueSizeBytes = 4
)

// ReadGeoTIFF loads band 1 of a GeoTIFF as a raster in its native CRS.
// proj4 overrides the CRS declared by the file's geokeys when non-empty.
func ReadGeoTIFF(path, proj4 string) (*grid.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: open %s", path)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: stat %s", path)
	}

	tags, err := readGeoTags(f, info.Size())
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: %s", path)
	}

	img, err := tiff.Decode(io.NewSectionReader(f, 0, info.Size()))
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: decode %s", path)
	}
	width, height, values, err := band(img)
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: %s", path)
	}

	transform, err := tags.affine()
	if err != nil {
		return nil, eris.Wrapf(err, "ndvi: %s", path)
	}

	crs := proj4
	if crs == "" {
		code, err := tags.epsg()
		if err != nil {
			return nil, eris.Wrapf(err, "ndvi: %s", path)
		}
		if crs, err = Proj4ForEPSG(code); err != nil {
			return nil, err
		}
	}

	r := &grid.Raster{
		Width:     width,
		Height:    height,
		Values:    values,
		Transform: transform,
		CRS:       crs,
	}
	if tags.noData != "" {
		nd, err := strconv.ParseFloat(tags.noData, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "ndvi: %s: nodata %q", path, tags.noData)
		}
		r.NoData, r.HasNoData = nd, true
	}
	return r, nil
}

func band(img image.Image) (int, int, []float64, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	values := make([]float64, 0, w*h)
	switch m := img.(type) {
	case *image.Gray:
		for y := 0; y < h; y++ {
			row := m.Pix[y*m.Stride : y*m.Stride+w]
			for _, p := range row {
				values = append(values, float64(p))
			}
		}
	case *image.Gray16:
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				i := y*m.Stride + 2*x
				values = append(values, float64(uint16(m.Pix[i])<<8|uint16(m.Pix[i+1])))
			}
		}
	default:
		return 0, 0, nil, eris.Errorf("unsupported pixel layout %T, want single-band gray", img)
	}
	return w, h, values, nil
}

// geoTags holds the georeferencing tags of the first IFD.
type geoTags struct {
	pixelScale []float64
	tiepoints  []float64
	geoKeys    []float64
	noData     string
}

func (g *geoTags) affine() (grid.Affine, error) {
	if len(g.pixelScale) < 2 || len(g.tiepoints) < 6 {
		return grid.Affine{}, eris.New("missing ModelPixelScale or ModelTiepoint tag")
	}
	sx, sy := g.pixelScale[0], g.pixelScale[1]
	if sx == 0 || sy == 0 {
		return grid.Affine{}, eris.New("zero pixel scale")
	}
	i, j, x, y := g.tiepoints[0], g.tiepoints[1], g.tiepoints[3], g.tiepoints[4]
	a := grid.Affine{
		OriginX:     x - i*sx,
		OriginY:     y + j*sy,
		PixelWidth:  sx,
		PixelHeight: -sy,
	}
	if v, ok := g.key(keyRasterType); ok && v == rasterPixelIsPoint {
		a.OriginX -= sx / 2
		a.OriginY += sy / 2
	}
	return a, nil
}

// key returns an inline geokey value.
func (g *geoTags) key(id int) (int, bool) {
	if len(g.geoKeys) < 4 {
		return 0, false
	}
	n := int(g.geoKeys[3])
	for k := 0; k < n && 4+4*k+3 < len(g.geoKeys); k++ {
		e := g.geoKeys[4+4*k : 8+4*k]
		if int(e[0]) == id && e[1] == 0 {
			return int(e[3]), true
		}
	}
	return 0, false
}

func (g *geoTags) epsg() (int, error) {
	modelType, ok := g.key(keyModelType)
	if !ok {
		return 0, eris.New("no GeoKeyDirectory model type")
	}
	var code int
	switch modelType {
	case modelTypeGeographic:
		code, ok = g.key(keyGeographicType)
	case modelTypeProjected:
		code, ok = g.key(keyProjectedCSType)
	default:
		return 0, eris.Errorf("unsupported model type %d", modelType)
	}
	if !ok || code == userDefinedGeoKey {
		return 0, eris.New("user-defined CRS, set ndvi.proj4")
	}
	return code, nil
}

// readGeoTags collects the georeferencing tags of the first IFD.
func readGeoTags(r io.ReaderAt, size int64) (*geoTags, error) {
	if err := checkExtents(r, size); err != nil {
		return nil, err
	}
	t, err := gtiff.Parse(io.NewSectionReader(r, 0, size), nil, nil)
	if err != nil {
		return nil, eris.Wrap(err, "parse TIFF")
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, eris.New("TIFF has no IFD")
	}
	ifd := ifds[0]

	tags := &geoTags{}
	for _, id := range []uint16{tagModelPixelScale, tagModelTiepoint, tagGeoKeyDirectory, tagGDALNoData} {
		if !ifd.HasField(id) {
			continue
		}
		f := ifd.GetField(id)
		switch id {
		case tagModelPixelScale:
			tags.pixelScale, err = numbers(f)
		case tagModelTiepoint:
			tags.tiepoints, err = numbers(f)
		case tagGeoKeyDirectory:
			tags.geoKeys, err = numbers(f)
		case tagGDALNoData:
			tags.noData = strings.TrimSpace(string(bytes.TrimRight(f.Value().Bytes(), "\x00")))
		}
		if err != nil {
			return nil, eris.Wrapf(err, "decode tag %d", id)
		}
	}
	return tags, nil
}

var typeSizes = map[uint16]int64{1: 1, 2: 1, 3: 2, 4: 4, 5: 8, 6: 1, 7: 1, 8: 2, 9: 4, 10: 8, 11: 4, 12: 8}

// checkExtents rejects IFD chains whose entry values reach past the end of
// the file, so no tag buffer is sized from an unchecked count.
func checkExtents(r io.ReaderAt, size int64) error {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return eris.Wrap(err, "read TIFF header")
	}
	var order binary.ByteOrder
	switch string(hdr[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return eris.New("not a TIFF file")
	}
	if order.Uint16(hdr[2:4]) != classicTIFFMagic {
		return eris.New("only classic TIFF is supported")
	}

	seen := map[int64]bool{}
	for off := int64(order.Uint32(hdr[4:8])); off != 0; {
		if seen[off] || off+2 > size {
			return eris.Errorf("bad IFD offset %d", off)
		}
		seen[off] = true
		var cnt [2]byte
		if _, err := r.ReadAt(cnt[:], off); err != nil {
			return eris.Wrap(err, "read IFD")
		}
		n := int64(order.Uint16(cnt[:]))
		if off+2+n*ifdEntrySize+4 > size {
			return eris.Errorf("IFD at %d runs past end of file", off)
		}
		entries := make([]byte, n*ifdEntrySize+4)
		if _, err := r.ReadAt(entries, off+2); err != nil {
			return eris.Wrap(err, "read IFD entries")
		}
		for k := int64(0); k < n; k++ {
			e := entries[k*ifdEntrySize : (k+1)*ifdEntrySize]
			total := typeSizes[order.Uint16(e[2:4])] * int64(order.Uint32(e[4:8]))
			if total > inlineValueSizeBytes && int64(order.Uint32(e[8:12]))+total > size {
				return eris.Errorf("tag %d value (%d bytes) runs past end of file", order.Uint16(e[0:2]), total)
			}
		}
		off = int64(order.Uint32(entries[n*ifdEntrySize:]))
	}
	return nil
}

func numbers(f gtiff.Field) ([]float64, error) {
	v := f.Value()
	order, data := v.Order(), v.Bytes()
	typ := f.Type().ID()
	size := int(typeSizes[typ])
	if size == 0 {
		return nil, eris.Errorf("unknown field type %d", typ)
	}
	out := make([]float64, 0, len(data)/size)
	for i := 0; i+size <= len(data); i += size {
		b := data[i : i+size]
		switch typ {
		case 1:
			out = append(out, float64(b[0]))
		case 3:
			out = append(out, float64(order.Uint16(b)))
		case 4:
			out = append(out, float64(order.Uint32(b)))
		case 8:
			out = append(out, float64(int16(order.Uint16(b))))
		case 9:
			out = append(out, float64(int32(order.Uint32(b))))
		case 11:
			out = append(out, float64(math.Float32frombits(order.Uint32(b))))
		case 12:
			out = append(out, math.Float64frombits(order.Uint64(b)))
		default:
			return nil, eris.Errorf("field type %d is not numeric", typ)
		}
	}
	return out, nil
}
