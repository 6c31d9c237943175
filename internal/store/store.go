// Package store persists analysis batches so runs can be listed and
// compared without re-reading the rasters.
package store

import (
	"context"
	"time"

	"github.com/sells-group/uhi-cli/internal/analysis"
	"github.com/sells-group/uhi-cli/internal/model"
)

// Run is one stored batch.
type Run struct {
	ID         string     `json:"id"`
	Mode       model.Mode `json:"mode"`
	Year       int        `json:"year"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Analyzed   int        `json:"analyzed"`
	Skipped    int        `json:"skipped"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Mode   model.Mode `json:"mode,omitempty"`
	Year   int        `json:"year,omitempty"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}

// Failure is a skipped city as stored.
type Failure struct {
	City    model.City      `json:"city"`
	Kind    model.ErrorKind `json:"kind"`
	Message string          `json:"message"`
}

// Store defines the persistence interface for analysis batches.
type Store interface {
	SaveBatch(ctx context.Context, batch *analysis.BatchResult) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	CityResults(ctx context.Context, runID string) ([]*model.CityStatistics, error)
	Failures(ctx context.Context, runID string) ([]Failure, error)

	Migrate(ctx context.Context) error
	Close() error
}
