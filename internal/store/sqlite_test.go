package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/uhi-cli/internal/analysis"
	"github.com/sells-group/uhi-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleBatch(mode model.Mode, year int, started time.Time) *analysis.BatchResult {
	cs := model.NewCityStatistics(mode)
	cs.City = model.City{Country: "ITA", Name: "Perugia"}
	cs.Level = 3
	cs.Year = year
	cs.NPixels = 48
	cs.MeanDiscrepancy = 0.375
	cs.RMSE = 0.5
	cs.Categories = []model.CategoryStat{
		{Label: "Urban", Count: 2, MeanTemperature: math.NaN(), MeanAbsDifference: 0.625, MeanVegetation: 0.1},
		{Label: "Dense", Count: 0, MeanTemperature: math.NaN(), MeanAbsDifference: math.NaN(), MeanVegetation: math.NaN()},
	}
	cs.Warnings = []model.AlignmentWarning{{Stage: "mask", Message: "land mask is empty"}}

	return &analysis.BatchResult{
		Mode:       mode,
		Year:       year,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Results:    []*model.CityStatistics{cs},
		Failures: []*model.CityError{
			model.NewCityError(model.City{Country: "ITA", Name: "Atlantis"}, eris.Wrap(model.ErrRegionNotFound, "geo")),
		},
	}
}

func TestSQLite_SaveBatch_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	run, err := st.SaveBatch(ctx, sampleBatch(model.ModeDiscrepancy, 2022, started))
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 1, run.Analyzed)
	assert.Equal(t, 1, run.Skipped)

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ModeDiscrepancy, got.Mode)
	assert.Equal(t, 2022, got.Year)
	assert.True(t, got.StartedAt.Equal(started))

	results, err := st.CityResults(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	cs := results[0]
	assert.Equal(t, "Perugia", cs.City.Name)
	assert.Equal(t, 3, cs.Level)
	assert.Equal(t, 48, cs.NPixels)
	assert.Equal(t, 2022, cs.Year)
	assert.InDelta(t, 0.375, cs.MeanDiscrepancy, 1e-12)
	assert.InDelta(t, 0.5, cs.RMSE, 1e-12)
	assert.True(t, math.IsNaN(cs.Correlation))
	assert.True(t, math.IsNaN(cs.CorrelationDiscrepancyNDVI))
	require.Len(t, cs.Warnings, 1)
	assert.Equal(t, "mask", cs.Warnings[0].Stage)

	require.Len(t, cs.Categories, 2)
	assert.Equal(t, "Urban", cs.Categories[0].Label)
	assert.Equal(t, 2, cs.Categories[0].Count)
	assert.InDelta(t, 0.625, cs.Categories[0].MeanAbsDifference, 1e-12)
	assert.True(t, math.IsNaN(cs.Categories[0].MeanTemperature))
	assert.True(t, math.IsNaN(cs.Categories[1].MeanVegetation))

	failures, err := st.Failures(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "Atlantis", failures[0].City.Name)
	assert.Equal(t, model.KindRegionNotFound, failures[0].Kind)
	assert.Contains(t, failures[0].Message, "region not found")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	first, err := st.SaveBatch(ctx, sampleBatch(model.ModeCorrelation, 2021, base))
	require.NoError(t, err)
	second, err := st.SaveBatch(ctx, sampleBatch(model.ModeDiscrepancy, 2022, base.Add(time.Hour)))
	require.NoError(t, err)

	runs, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Mode: model.ModeCorrelation})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, first.ID, runs[0].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Year: 2022})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second.ID, runs[0].ID)

	runs, err = st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, first.ID, runs[0].ID)
}

func TestSQLite_EmptyBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.SaveBatch(ctx, &analysis.BatchResult{Mode: model.ModeCorrelation, Year: 2022, StartedAt: time.Now(), FinishedAt: time.Now()})
	require.NoError(t, err)

	results, err := st.CityResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	failures, err := st.Failures(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestSQLite_NilBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.SaveBatch(context.Background(), nil)
	assert.Error(t, err)
}

func TestSQLite_GetRun_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetRun(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")

	_, err = st.CityResults(context.Background(), "nope")
	assert.Error(t, err)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	require.NoError(t, st.Migrate(context.Background()))
}

func TestNullFloat(t *testing.T) {
	assert.Nil(t, nullFloat(math.NaN()))
	assert.Nil(t, nullFloat(math.Inf(-1)))
	assert.Equal(t, 1.5, nullFloat(1.5))
}
