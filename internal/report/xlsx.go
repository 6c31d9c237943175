package report

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/uhi-cli/internal/model"
)

// Sheet names of the workbook.
const (
	SheetSummary    = "Summary"
	SheetCategories = "Categories"
	SheetSkipped    = "Skipped"
)

var categoryColumns = []string{"City", "Country", "Category", "Count", "Mean_Temperature", "Mean_Abs_Discrepancy", "Mean_NDVI"}

var skippedColumns = []string{"City", "Country", "Kind", "Error"}

// WriteXLSX writes a workbook with the summary table, the per-category
// breakdown and the skipped cities. Numeric cells are stored as numbers.
func WriteXLSX(path string, mode model.Mode, results []*model.CityStatistics, failures []*model.CityError) error {
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}
	addStrings(summary, Columns(mode))
	for _, s := range results {
		row := summary.AddRow()
		row.AddCell().SetString(s.City.Name)
		row.AddCell().SetString(s.City.Country)
		row.AddCell().SetInt(s.Level)
		row.AddCell().SetInt(s.NPixels)
		for _, v := range metrics(mode, s) {
			addFloat(row, v)
		}
	}

	cats, err := f.AddSheet(SheetCategories)
	if err != nil {
		return eris.Wrap(err, "report: add categories sheet")
	}
	addStrings(cats, categoryColumns)
	for _, s := range results {
		for _, c := range s.Categories {
			row := cats.AddRow()
			row.AddCell().SetString(s.City.Name)
			row.AddCell().SetString(s.City.Country)
			row.AddCell().SetString(c.Label)
			row.AddCell().SetInt(c.Count)
			addFloat(row, c.MeanTemperature)
			addFloat(row, c.MeanAbsDifference)
			addFloat(row, c.MeanVegetation)
		}
	}

	skipped, err := f.AddSheet(SheetSkipped)
	if err != nil {
		return eris.Wrap(err, "report: add skipped sheet")
	}
	addStrings(skipped, skippedColumns)
	for _, ce := range failures {
		addStrings(skipped, []string{ce.City.Name, ce.City.Country, string(ce.Kind), ce.Err.Error()})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "report: save xlsx")
	}
	return nil
}

func metrics(mode model.Mode, s *model.CityStatistics) []float64 {
	if mode == model.ModeDiscrepancy {
		return []float64{
			s.MeanDiscrepancy,
			s.RMSE,
			s.MaxDiscrepancy,
			s.StdDiscrepancy,
			s.CorrelationSatReference,
			s.CorrelationDiscrepancyNDVI,
		}
	}
	return []float64{s.Correlation, s.PValue, s.AvgTempUrban, s.AvgTempRural, s.UHIIntensity}
}

func addStrings(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// addFloat leaves undefined values as empty cells.
func addFloat(row *xlsx.Row, v float64) {
	cell := row.AddCell()
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	cell.SetFloat(v)
}
