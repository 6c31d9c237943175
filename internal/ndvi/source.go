package ndvi

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/grid"
	"github.com/sells-group/uhi-cli/internal/model"
)

// Source loads the vegetation composite for a season from a directory.
type Source struct {
	dir   string
	proj4 string
	log   *zap.Logger
}

// NewSource creates a Source. proj4 overrides the CRS read from the files.
func NewSource(dir, proj4 string) *Source {
	return &Source{
		dir:   dir,
		proj4: proj4,
		log:   zap.L().With(zap.String("component", "ndvi")),
	}
}

// Load locates and reads the composite for window. The raster holds
// digital numbers; decoding happens after resampling.
func (s *Source) Load(ctx context.Context, window model.SeasonWindow) (*grid.Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := Locate(s.dir, window)
	if err != nil {
		return nil, err
	}
	r, err := ReadGeoTIFF(path, s.proj4)
	if err != nil {
		return nil, err
	}
	s.log.Info("composite loaded",
		zap.String("file", path),
		zap.Int("width", r.Width),
		zap.Int("height", r.Height),
		zap.String("crs", r.CRS),
	)
	return r, nil
}
