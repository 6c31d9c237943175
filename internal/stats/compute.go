package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/sells-group/uhi-cli/internal/model"
)

// DefaultCorrectionFactor scales the modelled satellite bias: the reference
// sits c*(1-NDVI) below the satellite value.
const DefaultCorrectionFactor = 0.5

// UHIThresholds split samples into urban and rural for heat-island
// intensity. They are independent of the density categories.
type UHIThresholds struct {
	UrbanMax float64 // NDVI strictly below is urban
	RuralMin float64 // NDVI strictly above is rural
}

// DefaultUHIThresholds are the urban/rural cut-offs used by the analyses.
var DefaultUHIThresholds = UHIThresholds{UrbanMax: 0.3, RuralMin: 0.6}

// Params holds the numeric knobs of a statistics run.
type Params struct {
	CorrectionFactor float64
	UHI              UHIThresholds
}

// DefaultParams returns the stock parameters.
func DefaultParams() Params {
	return Params{CorrectionFactor: DefaultCorrectionFactor, UHI: DefaultUHIThresholds}
}

// Compute summarizes samples for mode. Fewer than two samples never fail:
// the record is flagged InsufficientSamples and undefined metrics stay NaN.
// In discrepancy mode Reference and Difference are filled in on samples.
func Compute(samples []PixelSample, mode model.Mode, p Params) *model.CityStatistics {
	s := model.NewCityStatistics(mode)
	s.NPixels = len(samples)
	s.InsufficientSamples = len(samples) < 2

	if mode == model.ModeDiscrepancy {
		discrepancy(s, samples, p.CorrectionFactor)
	} else {
		correlation(s, samples, p.UHI)
	}
	return s
}

func correlation(s *model.CityStatistics, samples []PixelSample, th UHIThresholds) {
	temp := column(samples, func(p PixelSample) float64 { return p.Temperature })
	veg := column(samples, func(p PixelSample) float64 { return p.Vegetation })
	s.Correlation, s.PValue = Pearson(temp, veg)

	var urban, rural []float64
	for _, p := range samples {
		switch {
		case p.Vegetation < th.UrbanMax:
			urban = append(urban, p.Temperature)
		case p.Vegetation > th.RuralMin:
			rural = append(rural, p.Temperature)
		}
	}
	s.AvgTempUrban = mean(urban)
	s.AvgTempRural = mean(rural)
	s.UHIIntensity = s.AvgTempUrban - s.AvgTempRural

	s.Categories = categorize(samples, model.ModeCorrelation, func(c *model.CategoryStat, members []PixelSample) {
		c.MeanTemperature = mean(column(members, func(p PixelSample) float64 { return p.Temperature }))
	})
}

// Reference applies the vegetation-dependent correction to a satellite
// temperature.
func Reference(temperature, vegetation, c float64) float64 {
	return temperature - c*(1-vegetation)
}

func discrepancy(s *model.CityStatistics, samples []PixelSample, c float64) {
	for i := range samples {
		p := &samples[i]
		p.Reference = Reference(p.Temperature, p.Vegetation, c)
		p.Difference = p.Temperature - p.Reference
	}

	sat := column(samples, func(p PixelSample) float64 { return p.Temperature })
	ref := column(samples, func(p PixelSample) float64 { return p.Reference })
	veg := column(samples, func(p PixelSample) float64 { return p.Vegetation })
	diff := column(samples, func(p PixelSample) float64 { return p.Difference })
	abs := column(samples, func(p PixelSample) float64 { return math.Abs(p.Difference) })

	s.MeanSatelliteTemp = mean(sat)
	s.MeanReferenceTemp = mean(ref)
	s.MeanDiscrepancy = mean(diff)
	s.StdDiscrepancy = stdDev(diff)
	if len(samples) > 0 {
		sq := make([]float64, len(diff))
		floats.MulTo(sq, diff, diff)
		s.RMSE = math.Sqrt(floats.Sum(sq) / float64(len(sq)))
		s.MaxDiscrepancy = floats.Max(abs)
	}
	s.CorrelationSatReference, _ = Pearson(sat, ref)
	s.CorrelationDiscrepancyNDVI, _ = Pearson(abs, veg)

	s.Categories = categorize(samples, model.ModeDiscrepancy, func(c *model.CategoryStat, members []PixelSample) {
		c.MeanAbsDifference = mean(column(members, func(p PixelSample) float64 { return math.Abs(p.Difference) }))
	})
}

// categorize buckets samples and fills count and mean vegetation; fill adds
// the mode-specific aggregate. Empty categories are reported with NaN means.
func categorize(samples []PixelSample, mode model.Mode, fill func(*model.CategoryStat, []PixelSample)) []model.CategoryStat {
	buckets := make([][]PixelSample, len(Categories))
	for _, p := range samples {
		i := CategoryIndex(p.Vegetation)
		buckets[i] = append(buckets[i], p)
	}

	out := make([]model.CategoryStat, len(Categories))
	for i, cat := range Categories {
		members := buckets[i]
		out[i] = model.CategoryStat{
			Label:             cat.Label(mode),
			Count:             len(members),
			MeanTemperature:   math.NaN(),
			MeanAbsDifference: math.NaN(),
			MeanVegetation:    mean(column(members, func(p PixelSample) float64 { return p.Vegetation })),
		}
		fill(&out[i], members)
	}
	return out
}
