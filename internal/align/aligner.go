// Package align puts the coarse temperature field and the fine vegetation
// raster on one lattice over a study area.
package align

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/geo"
	"github.com/sells-group/uhi-cli/internal/grid"
	"github.com/sells-group/uhi-cli/internal/model"
	"github.com/sells-group/uhi-cli/internal/ndvi"
)

// Warning stages.
const (
	StageReproject = "reproject"
	StageMask      = "mask"
)

// DefaultUpsampleFactor multiplies the clipped temperature grid's label
// count on each axis.
const DefaultUpsampleFactor = 10

// TemperatureSource yields the seasonal mean temperature in Celsius.
type TemperatureSource interface {
	SeasonalMean(ctx context.Context, window model.SeasonWindow) (*grid.ScalarGrid, error)
}

// VegetationSource yields the vegetation composite as digital numbers.
type VegetationSource interface {
	Load(ctx context.Context, window model.SeasonWindow) (*grid.Raster, error)
}

// Result is an aligned pair plus the degradations met on the way.
type Result struct {
	Pair     *grid.AlignedPair
	Warnings []model.AlignmentWarning
}

func (r *Result) warn(log *zap.Logger, stage, format string, args ...interface{}) {
	w := model.AlignmentWarning{Stage: stage, Message: fmt.Sprintf(format, args...)}
	r.Warnings = append(r.Warnings, w)
	log.Warn("alignment degraded", zap.String("stage", w.Stage), zap.String("detail", w.Message))
}

// Aligner runs the temporal summary, clip, upsample, reprojection and
// orientation steps for one study area.
type Aligner struct {
	temperature TemperatureSource
	vegetation  VegetationSource
	factor      int
	log         *zap.Logger
}

// New creates an Aligner. A factor below 1 selects DefaultUpsampleFactor.
func New(temperature TemperatureSource, vegetation VegetationSource, factor int) *Aligner {
	if factor < 1 {
		factor = DefaultUpsampleFactor
	}
	return &Aligner{
		temperature: temperature,
		vegetation:  vegetation,
		factor:      factor,
		log:         zap.L().With(zap.String("component", "align")),
	}
}

// Align produces the aligned temperature/vegetation pair over area for
// window. Missing inputs surface as model.ErrDataUnavailable.
func (a *Aligner) Align(ctx context.Context, area *geo.StudyArea, window model.SeasonWindow) (*Result, error) {
	log := a.log.With(zap.String("place", area.Region.Name))
	res := &Result{}

	coarse, err := a.temperature.SeasonalMean(ctx, window)
	if err != nil {
		return nil, eris.Wrap(err, "align: temperature")
	}

	clipped, err := grid.Clip(coarse, area.Envelope)
	if err != nil {
		if eris.Is(err, grid.ErrEmptyClip) {
			return nil, eris.Wrapf(model.ErrDataUnavailable, "align: temperature grid does not cover %s", area.Envelope)
		}
		return nil, eris.Wrap(err, "align: clip temperature")
	}
	if clipped.Rows() < 2 || clipped.Cols() < 2 {
		return nil, eris.Wrapf(model.ErrDataUnavailable,
			"align: %dx%d temperature cells inside %s, need at least 2x2", clipped.Rows(), clipped.Cols(), area.Envelope)
	}

	lat, lon, err := grid.Lattice(clipped, a.factor)
	if err != nil {
		return nil, eris.Wrap(err, "align: lattice")
	}
	temperature, err := grid.Interpolate(clipped, lat, lon)
	if err != nil {
		return nil, eris.Wrap(err, "align: interpolate temperature")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raster, err := a.vegetation.Load(ctx, window)
	if err != nil {
		return nil, eris.Wrap(err, "align: vegetation")
	}
	warped, err := grid.WarpAverage(raster, grid.Target{
		Bounds: model.BBox{MinLng: lon[0], MinLat: lat[0], MaxLng: lon[len(lon)-1], MaxLat: lat[len(lat)-1]},
		Rows:   len(lat),
		Cols:   len(lon),
	})
	if err != nil {
		return nil, eris.Wrap(err, "align: reproject vegetation")
	}
	switch {
	case warped.Covered == 0:
		return nil, eris.Wrapf(model.ErrDataUnavailable, "align: vegetation composite does not cover %s", area.Envelope)
	case warped.Covered < len(warped.Values):
		res.warn(log, StageReproject, "%d of %d lattice cells have no vegetation coverage", len(warped.Values)-warped.Covered, len(warped.Values))
	}

	decoded := make([]float64, len(warped.Values))
	for i, dn := range warped.Values {
		if math.IsNaN(dn) {
			decoded[i] = dn
			continue
		}
		decoded[i] = ndvi.Decode(dn)
	}

	vegetation, err := grid.FromNorthUp(decoded, lat, lon)
	if err != nil {
		return nil, eris.Wrap(err, "align: label vegetation")
	}
	pair, err := grid.Reconcile(temperature, vegetation)
	if err != nil {
		return nil, eris.Wrap(err, "align: reconcile")
	}
	res.Pair = pair

	log.Debug("grids aligned",
		zap.Int("rows", pair.Rows()),
		zap.Int("cols", pair.Cols()),
		zap.Int("coarse_rows", clipped.Rows()),
		zap.Int("coarse_cols", clipped.Cols()),
		zap.Float64("coverage", warped.Coverage()),
	)
	return res, nil
}
