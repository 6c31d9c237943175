// Package stats turns an aligned temperature/vegetation pair into the
// per-city summary: correlation and heat-island intensity, or the modelled
// satellite discrepancy.
package stats

import (
	"math"

	"github.com/sells-group/uhi-cli/internal/grid"
)

// PixelSample is one lattice cell where both fields are defined. Reference
// and Difference are only set in discrepancy mode.
type PixelSample struct {
	Temperature float64
	Vegetation  float64
	Reference   float64
	Difference  float64
}

// Flatten pairs the two fields cell by cell, dropping cells where either is
// null and cells whose vegetation index falls outside [-1, 1].
func Flatten(pair *grid.AlignedPair) []PixelSample {
	temp := pair.Temperature().Values()
	veg := pair.Vegetation().Values()
	samples := make([]PixelSample, 0, len(temp))
	for i := range temp {
		t, v := temp[i], veg[i]
		if math.IsNaN(t) || math.IsNaN(v) || v < -1 || v > 1 {
			continue
		}
		samples = append(samples, PixelSample{
			Temperature: t,
			Vegetation:  v,
			Reference:   math.NaN(),
			Difference:  math.NaN(),
		})
	}
	return samples
}

func column(samples []PixelSample, f func(PixelSample) float64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = f(s)
	}
	return out
}
