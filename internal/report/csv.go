package report

import (
	"encoding/csv"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/model"
)

// WriteCSV writes the summary table as CSV.
func WriteCSV(path string, mode model.Mode, results []*model.CityStatistics) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "report: create csv")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns(mode)); err != nil {
		return eris.Wrap(err, "report: write header")
	}
	for _, s := range results {
		if err := w.Write(Row(mode, s)); err != nil {
			return eris.Wrap(err, "report: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}
