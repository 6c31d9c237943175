// Package analysis runs the per-city pipeline: resolve the place, align the
// two rasters over its study area, mask water and summarize.
package analysis

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/align"
	"github.com/sells-group/uhi-cli/internal/geo"
	"github.com/sells-group/uhi-cli/internal/grid"
	"github.com/sells-group/uhi-cli/internal/model"
	"github.com/sells-group/uhi-cli/internal/stats"
)

// Options are the per-run knobs that do not belong to the aligner.
type Options struct {
	SeasonStart   string // MM-DD, inclusive
	SeasonEnd     string // MM-DD, exclusive
	BufferDegrees float64
	Params        stats.Params
}

// DefaultOptions returns the June through August season, a 0.2 degree
// buffer and the stock statistics parameters.
func DefaultOptions() Options {
	return Options{
		SeasonStart:   "06-01",
		SeasonEnd:     "09-01",
		BufferDegrees: geo.DefaultBufferDegrees,
		Params:        stats.DefaultParams(),
	}
}

// Aligner is what the Analyzer needs from align.Aligner.
type Aligner interface {
	Align(ctx context.Context, area *geo.StudyArea, window model.SeasonWindow) (*align.Result, error)
}

// Analyzer holds the boundary dataset shared by every city of a batch.
type Analyzer struct {
	dataset  *geo.Dataset
	resolver *geo.Resolver
	aligner  Aligner
	opts     Options
}

// New creates an Analyzer over a loaded boundary dataset.
func New(ds *geo.Dataset, aligner Aligner, opts Options) *Analyzer {
	return &Analyzer{
		dataset:  ds,
		resolver: geo.NewResolver(ds),
		aligner:  aligner,
		opts:     opts,
	}
}

// Alignment is a resolved study area with its masked, aligned grids.
type Alignment struct {
	Study    *geo.StudyArea
	Mask     *geo.LandMask
	Pair     *grid.AlignedPair
	Warnings []model.AlignmentWarning
}

// Window returns the season window of year.
func (a *Analyzer) Window(year int) (model.SeasonWindow, error) {
	return model.SeasonForYear(year, a.opts.SeasonStart, a.opts.SeasonEnd)
}

// Study resolves city and buffers it into a study area.
func (a *Analyzer) Study(city model.City) (*geo.StudyArea, error) {
	region, err := a.resolver.Resolve(city.Country, city.Name)
	if err != nil {
		return nil, err
	}
	return geo.NewStudyArea(region, a.opts.BufferDegrees)
}

// ResolveAndAlign resolves city, aligns both rasters over its study area
// for window and masks water out of the temperature field. Errors wrap
// model.ErrRegionNotFound or model.ErrDataUnavailable.
func (a *Analyzer) ResolveAndAlign(ctx context.Context, city model.City, window model.SeasonWindow) (*Alignment, error) {
	study, err := a.Study(city)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: resolve %s", city)
	}

	res, err := a.aligner.Align(ctx, study, window)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: align %s", city)
	}

	out := &Alignment{
		Study:    study,
		Mask:     geo.BuildLandMask(a.dataset, study.Envelope),
		Warnings: append([]model.AlignmentWarning(nil), res.Warnings...),
	}
	pair, warning, err := align.MaskPair(res.Pair, out.Mask)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: mask %s", city)
	}
	if warning != nil {
		out.Warnings = append(out.Warnings, *warning)
		zap.L().Warn("analysis: land mask skipped",
			zap.String("city", city.String()),
			zap.String("detail", warning.Message),
		)
	}
	out.Pair = pair
	return out, nil
}

// ComputeStatistics flattens pair and summarizes it for mode.
func ComputeStatistics(pair *grid.AlignedPair, mode model.Mode, params stats.Params) *model.CityStatistics {
	return stats.Compute(stats.Flatten(pair), mode, params)
}

// AnalyzeCity runs the whole pipeline for one city. Failures are returned
// as *model.CityError.
func (a *Analyzer) AnalyzeCity(ctx context.Context, city model.City, mode model.Mode, year int) (*model.CityStatistics, error) {
	log := zap.L().With(zap.String("city", city.String()), zap.String("mode", string(mode)))
	start := time.Now()

	window, err := a.Window(year)
	if err != nil {
		return nil, model.NewCityError(city, err)
	}

	aligned, err := a.ResolveAndAlign(ctx, city, window)
	if err != nil {
		return nil, model.NewCityError(city, err)
	}

	s := ComputeStatistics(aligned.Pair, mode, a.opts.Params)
	s.City = city
	s.Level = aligned.Study.Region.Level
	s.Year = year
	s.Warnings = aligned.Warnings

	if s.InsufficientSamples {
		log.Warn("analysis: insufficient samples", zap.Int("n_pixels", s.NPixels))
	}
	log.Info("analysis: city complete",
		zap.Int("level", s.Level),
		zap.Int("n_pixels", s.NPixels),
		zap.Int("warnings", len(s.Warnings)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}
