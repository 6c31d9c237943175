package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/uhi-cli/internal/analysis"
	"github.com/sells-group/uhi-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	year        INTEGER NOT NULL,
	analyzed    INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS city_results (
	id                           TEXT PRIMARY KEY,
	run_id                       TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	position                     INTEGER NOT NULL,
	country                      TEXT NOT NULL,
	name                         TEXT NOT NULL,
	level                        INTEGER NOT NULL,
	n_pixels                     INTEGER NOT NULL,
	insufficient_samples         INTEGER NOT NULL DEFAULT 0,
	correlation                  REAL,
	p_value                      REAL,
	avg_temp_urban               REAL,
	avg_temp_rural               REAL,
	uhi_intensity                REAL,
	mean_satellite_temp          REAL,
	mean_reference_temp          REAL,
	mean_discrepancy             REAL,
	rmse                         REAL,
	max_discrepancy              REAL,
	std_discrepancy              REAL,
	correlation_sat_ground       REAL,
	correlation_discrepancy_ndvi REAL,
	warnings                     TEXT
);

CREATE TABLE IF NOT EXISTS city_categories (
	result_id           TEXT NOT NULL REFERENCES city_results(id) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	label               TEXT NOT NULL,
	count               INTEGER NOT NULL,
	mean_temperature    REAL,
	mean_abs_difference REAL,
	mean_vegetation     REAL,
	PRIMARY KEY (result_id, position)
);

CREATE TABLE IF NOT EXISTS city_failures (
	id      TEXT PRIMARY KEY,
	run_id  TEXT NOT NULL REFERENCES analysis_runs(id) ON DELETE CASCADE,
	country TEXT NOT NULL,
	name    TEXT NOT NULL,
	kind    TEXT NOT NULL,
	message TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analysis_runs_started_at ON analysis_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_city_results_run_id ON city_results(run_id);
CREATE INDEX IF NOT EXISTS idx_city_failures_run_id ON city_failures(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveBatch stores a batch and every city in it in one transaction.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batch *analysis.BatchResult) (*Run, error) {
	if batch == nil {
		return nil, eris.New("sqlite: nil batch")
	}
	run := &Run{
		ID:         uuid.New().String(),
		Mode:       batch.Mode,
		Year:       batch.Year,
		StartedAt:  batch.StartedAt.UTC(),
		FinishedAt: batch.FinishedAt.UTC(),
		Analyzed:   len(batch.Results),
		Skipped:    len(batch.Failures),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analysis_runs (id, mode, year, analyzed, skipped, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, string(run.Mode), run.Year, run.Analyzed, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	for i, cs := range batch.Results {
		if err := insertCityResult(ctx, tx, run.ID, i, cs); err != nil {
			return nil, err
		}
	}

	for _, ce := range batch.Failures {
		msg := ""
		if ce.Err != nil {
			msg = ce.Err.Error()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO city_failures (id, run_id, country, name, kind, message) VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), run.ID, ce.City.Country, ce.City.Name, string(ce.Kind), msg,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert failure %s", ce.City)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit batch")
	}
	return run, nil
}

func insertCityResult(ctx context.Context, tx *sql.Tx, runID string, position int, cs *model.CityStatistics) error {
	id := uuid.New().String()

	var warnings any
	if len(cs.Warnings) > 0 {
		b, err := json.Marshal(cs.Warnings)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal warnings")
		}
		warnings = string(b)
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO city_results (
			id, run_id, position, country, name, level, n_pixels, insufficient_samples,
			correlation, p_value, avg_temp_urban, avg_temp_rural, uhi_intensity,
			mean_satellite_temp, mean_reference_temp, mean_discrepancy, rmse,
			max_discrepancy, std_discrepancy, correlation_sat_ground, correlation_discrepancy_ndvi,
			warnings
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, runID, position, cs.City.Country, cs.City.Name, cs.Level, cs.NPixels, cs.InsufficientSamples,
		nullFloat(cs.Correlation), nullFloat(cs.PValue), nullFloat(cs.AvgTempUrban), nullFloat(cs.AvgTempRural), nullFloat(cs.UHIIntensity),
		nullFloat(cs.MeanSatelliteTemp), nullFloat(cs.MeanReferenceTemp), nullFloat(cs.MeanDiscrepancy), nullFloat(cs.RMSE),
		nullFloat(cs.MaxDiscrepancy), nullFloat(cs.StdDiscrepancy), nullFloat(cs.CorrelationSatReference), nullFloat(cs.CorrelationDiscrepancyNDVI),
		warnings,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert city result %s", cs.City)
	}

	for i, c := range cs.Categories {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO city_categories (result_id, position, label, count, mean_temperature, mean_abs_difference, mean_vegetation)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, i, c.Label, c.Count, nullFloat(c.MeanTemperature), nullFloat(c.MeanAbsDifference), nullFloat(c.MeanVegetation),
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert category %s for %s", c.Label, cs.City)
		}
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, mode, year, analyzed, skipped, started_at, finished_at FROM analysis_runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, mode, year, analyzed, skipped, started_at, finished_at FROM analysis_runs WHERE 1=1`
	var args []any

	if filter.Mode != "" {
		query += ` AND mode = ?`
		args = append(args, string(filter.Mode))
	}
	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// CityResults returns the stored statistics of a run in batch order.
// Metrics stored as NULL come back as NaN.
func (s *SQLiteStore) CityResults(ctx context.Context, runID string) ([]*model.CityStatistics, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, country, name, level, n_pixels, insufficient_samples,
			correlation, p_value, avg_temp_urban, avg_temp_rural, uhi_intensity,
			mean_satellite_temp, mean_reference_temp, mean_discrepancy, rmse,
			max_discrepancy, std_discrepancy, correlation_sat_ground, correlation_discrepancy_ndvi,
			warnings
		 FROM city_results WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query city results")
	}
	defer rows.Close()

	var ids []string
	var out []*model.CityStatistics
	for rows.Next() {
		cs := model.NewCityStatistics(run.Mode)
		cs.Year = run.Year
		var id string
		var metrics [13]sql.NullFloat64
		var warnings sql.NullString
		dest := []any{&id, &cs.City.Country, &cs.City.Name, &cs.Level, &cs.NPixels, &cs.InsufficientSamples}
		for i := range metrics {
			dest = append(dest, &metrics[i])
		}
		dest = append(dest, &warnings)
		if err := rows.Scan(dest...); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan city result")
		}

		targets := []*float64{
			&cs.Correlation, &cs.PValue, &cs.AvgTempUrban, &cs.AvgTempRural, &cs.UHIIntensity,
			&cs.MeanSatelliteTemp, &cs.MeanReferenceTemp, &cs.MeanDiscrepancy, &cs.RMSE,
			&cs.MaxDiscrepancy, &cs.StdDiscrepancy, &cs.CorrelationSatReference, &cs.CorrelationDiscrepancyNDVI,
		}
		for i, t := range targets {
			*t = fromNull(metrics[i])
		}
		if warnings.Valid {
			if err := json.Unmarshal([]byte(warnings.String), &cs.Warnings); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal warnings")
			}
		}
		ids = append(ids, id)
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: city results iterate")
	}

	for i, id := range ids {
		cats, err := s.categories(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Categories = cats
	}
	return out, nil
}

func (s *SQLiteStore) categories(ctx context.Context, resultID string) ([]model.CategoryStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, count, mean_temperature, mean_abs_difference, mean_vegetation
		 FROM city_categories WHERE result_id = ? ORDER BY position`,
		resultID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query categories")
	}
	defer rows.Close()

	var cats []model.CategoryStat
	for rows.Next() {
		var c model.CategoryStat
		var temp, diff, veg sql.NullFloat64
		if err := rows.Scan(&c.Label, &c.Count, &temp, &diff, &veg); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		c.MeanTemperature = fromNull(temp)
		c.MeanAbsDifference = fromNull(diff)
		c.MeanVegetation = fromNull(veg)
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "sqlite: categories iterate")
}

// Failures returns the skipped cities of a run.
func (s *SQLiteStore) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT country, name, kind, message FROM city_failures WHERE run_id = ? ORDER BY rowid`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query failures")
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.City.Country, &f.City.Name, &f.Kind, &f.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, f)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: failures iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.Mode, &r.Year, &r.Analyzed, &r.Skipped, &r.StartedAt, &r.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	return &r, nil
}

// nullFloat stores undefined metrics as NULL.
func nullFloat(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fromNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
