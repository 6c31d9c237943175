package stats

import (
	"github.com/sells-group/uhi-cli/internal/model"
)

// Vegetation density category bounds. They are part of the report
// contract and do not change with configuration.
const (
	SparseMin   = 0.2
	ModerateMin = 0.4
	DenseMin    = 0.6
)

// Category is one vegetation density band [Min, Max).
type Category struct {
	Min              float64
	Max              float64
	CorrelationLabel string
	DiscrepancyLabel string
}

// Categories in ascending density. The first and last bands are open-ended.
var Categories = []Category{
	{Min: -1, Max: SparseMin, CorrelationLabel: "Urban/Water (<0.2)", DiscrepancyLabel: "Urban/Concrete"},
	{Min: SparseMin, Max: ModerateMin, CorrelationLabel: "Sparse Veg (0.2-0.4)", DiscrepancyLabel: "Sparse Vegetation"},
	{Min: ModerateMin, Max: DenseMin, CorrelationLabel: "Moderate Veg (0.4-0.6)", DiscrepancyLabel: "Moderate Vegetation"},
	{Min: DenseMin, Max: 1, CorrelationLabel: "Dense Veg (>0.6)", DiscrepancyLabel: "Dense Vegetation"},
}

// Label returns the category name used by mode.
func (c Category) Label(mode model.Mode) string {
	if mode == model.ModeDiscrepancy {
		return c.DiscrepancyLabel
	}
	return c.CorrelationLabel
}

// CategoryIndex assigns a vegetation value to exactly one category.
func CategoryIndex(v float64) int {
	switch {
	case v < SparseMin:
		return 0
	case v < ModerateMin:
		return 1
	case v < DenseMin:
		return 2
	default:
		return 3
	}
}

// Labels lists the category names of mode in ascending density.
func Labels(mode model.Mode) []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = c.Label(mode)
	}
	return out
}
