package ndvi

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/uhi-cli/internal/model"
)

// FileName is the canonical composite name for a season window.
func FileName(window model.SeasonWindow) string {
	return fmt.Sprintf("ndvi_%s_%s.tif", window.StartDate(), window.EndDate())
}

// Locate finds the composite for window in dir: the canonical file name
// first, then the first (sorted) .tif whose name contains the year. It
// returns an error wrapping model.ErrDataUnavailable when neither exists.
func Locate(dir string, window model.SeasonWindow) (string, error) {
	exact := filepath.Join(dir, FileName(window))
	if info, err := os.Stat(exact); err == nil && !info.IsDir() {
		return exact, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*"+strconv.Itoa(window.Year())+"*.tif"))
	if err != nil {
		return "", eris.Wrapf(err, "ndvi: glob %s", dir)
	}
	sort.Strings(matches)
	if len(matches) > 0 {
		return matches[0], nil
	}
	return "", eris.Wrapf(model.ErrDataUnavailable, "ndvi: no composite for %d in %s", window.Year(), dir)
}
