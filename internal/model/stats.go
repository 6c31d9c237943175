package model

import "math"

// CategoryStat aggregates the samples that fall in one vegetation-density category.
type CategoryStat struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	// MeanTemperature is filled in correlation mode.
	MeanTemperature float64 `json:"mean_temperature"`
	// MeanAbsDifference is filled in discrepancy mode.
	MeanAbsDifference float64 `json:"mean_abs_difference"`
	MeanVegetation    float64 `json:"mean_vegetation"`
}

// CityStatistics is the summary record handed to the reporting layer.
// Undefined values are NaN.
type CityStatistics struct {
	City  City `json:"city"`
	Level int  `json:"level"`
	Mode  Mode `json:"mode"`
	Year  int  `json:"year"`

	NPixels             int  `json:"n_pixels"`
	InsufficientSamples bool `json:"insufficient_samples"`

	// Correlation mode.
	Correlation  float64 `json:"correlation"`
	PValue       float64 `json:"p_value"`
	AvgTempUrban float64 `json:"avg_temp_urban"`
	AvgTempRural float64 `json:"avg_temp_rural"`
	UHIIntensity float64 `json:"uhi_intensity"`

	// Discrepancy mode.
	MeanSatelliteTemp          float64 `json:"mean_satellite_temp"`
	MeanReferenceTemp          float64 `json:"mean_reference_temp"`
	MeanDiscrepancy            float64 `json:"mean_discrepancy"`
	RMSE                       float64 `json:"rmse"`
	MaxDiscrepancy             float64 `json:"max_discrepancy"`
	StdDiscrepancy             float64 `json:"std_discrepancy"`
	CorrelationSatReference    float64 `json:"correlation_sat_ground"`
	CorrelationDiscrepancyNDVI float64 `json:"correlation_discrepancy_ndvi"`

	Categories []CategoryStat      `json:"categories"`
	Warnings   []AlignmentWarning `json:"warnings,omitempty"`
}

// NewCityStatistics returns a record with every metric set to NaN.
func NewCityStatistics(mode Mode) *CityStatistics {
	nan := math.NaN()
	return &CityStatistics{
		Mode:                       mode,
		Correlation:                nan,
		PValue:                     nan,
		AvgTempUrban:               nan,
		AvgTempRural:               nan,
		UHIIntensity:               nan,
		MeanSatelliteTemp:          nan,
		MeanReferenceTemp:          nan,
		MeanDiscrepancy:            nan,
		RMSE:                       nan,
		MaxDiscrepancy:             nan,
		StdDiscrepancy:             nan,
		CorrelationSatReference:    nan,
		CorrelationDiscrepancyNDVI: nan,
	}
}

// Category returns the named category, or nil.
func (s *CityStatistics) Category(label string) *CategoryStat {
	for i := range s.Categories {
		if s.Categories[i].Label == label {
			return &s.Categories[i]
		}
	}
	return nil
}
