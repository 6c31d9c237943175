package analysis

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/model"
)

// BatchResult holds one statistics record per city that completed and one
// error per city that was skipped.
type BatchResult struct {
	Mode       model.Mode
	Year       int
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []*model.CityStatistics
	Failures   []*model.CityError
}

// RunBatch analyzes cities one after another. A city that fails is logged
// and skipped; only cancellation stops the batch, in which case the
// partial result is returned with the context error.
func (a *Analyzer) RunBatch(ctx context.Context, cities []model.City, mode model.Mode, year int) (*BatchResult, error) {
	log := zap.L().With(zap.String("component", "analysis.batch"))
	br := &BatchResult{Mode: mode, Year: year, StartedAt: time.Now()}
	defer func() { br.FinishedAt = time.Now() }()

	log.Info("batch starting", zap.Int("cities", len(cities)), zap.String("mode", string(mode)), zap.Int("year", year))

	for i, city := range cities {
		if err := ctx.Err(); err != nil {
			log.Warn("batch cancelled", zap.Int("done", i), zap.Int("total", len(cities)))
			return br, err
		}

		s, err := a.AnalyzeCity(ctx, city, mode, year)
		if err != nil {
			if !model.IsSkippable(err) {
				return br, err
			}
			var ce *model.CityError
			if !errors.As(err, &ce) {
				ce = model.NewCityError(city, err)
			}
			br.Failures = append(br.Failures, ce)
			log.Warn("city skipped",
				zap.String("city", city.String()),
				zap.String("kind", string(ce.Kind)),
				zap.Error(ce.Err),
			)
			continue
		}
		br.Results = append(br.Results, s)
	}

	log.Info("batch complete",
		zap.Int("analyzed", len(br.Results)),
		zap.Int("skipped", len(br.Failures)),
	)
	return br, nil
}
