// Package report writes the batch summary table, one row per analyzed city.
package report

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/model"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// correlationColumns defines the ordered correlation-mode summary columns.
var correlationColumns = []string{
	"City",
	"Country",
	"Level",
	"N_Pixels",
	"Correlation",
	"P_Value",
	"Avg_Temp_Urban",
	"Avg_Temp_Rural",
	"UHI_Intensity",
}

// discrepancyColumns defines the ordered discrepancy-mode summary columns.
var discrepancyColumns = []string{
	"City",
	"Country",
	"Level",
	"N_Pixels",
	"Mean_Discrepancy",
	"RMSE",
	"Max_Discrepancy",
	"Std_Discrepancy",
	"Correlation_Sat_Ground",
	"Correlation_Discrepancy_NDVI",
}

// Columns returns the summary header for mode.
func Columns(mode model.Mode) []string {
	if mode == model.ModeDiscrepancy {
		return append([]string(nil), discrepancyColumns...)
	}
	return append([]string(nil), correlationColumns...)
}

// Row maps a statistics record to a summary row matching Columns(mode).
func Row(mode model.Mode, s *model.CityStatistics) []string {
	head := []string{
		s.City.Name,
		s.City.Country,
		strconv.Itoa(s.Level),
		strconv.Itoa(s.NPixels),
	}
	if mode == model.ModeDiscrepancy {
		return append(head,
			FormatFloat(s.MeanDiscrepancy),
			FormatFloat(s.RMSE),
			FormatFloat(s.MaxDiscrepancy),
			FormatFloat(s.StdDiscrepancy),
			FormatFloat(s.CorrelationSatReference),
			FormatFloat(s.CorrelationDiscrepancyNDVI),
		)
	}
	return append(head,
		FormatFloat(s.Correlation),
		FormatFloat(s.PValue),
		FormatFloat(s.AvgTempUrban),
		FormatFloat(s.AvgTempRural),
		FormatFloat(s.UHIIntensity),
	)
}

// FormatFloat renders v at full precision; undefined values are empty cells.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FileName is the default summary file name for a batch.
func FileName(mode model.Mode, year int, format string) string {
	return fmt.Sprintf("%s_summary_%d.%s", mode, year, format)
}

// Write writes the batch summary to dir in format and returns the path.
func Write(dir, format string, mode model.Mode, year int, results []*model.CityStatistics, failures []*model.CityError) (string, error) {
	path := filepath.Join(dir, FileName(mode, year, format))
	var err error
	switch format {
	case FormatCSV:
		err = WriteCSV(path, mode, results)
	case FormatXLSX:
		err = WriteXLSX(path, mode, results, failures)
	default:
		return "", eris.Errorf("report: unknown format %q", format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
