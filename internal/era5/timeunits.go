package era5

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
}

// ParseTimeUnits parses CF time units such as "hours since 1900-01-01
// 00:00:00.0" into a step duration and a UTC reference time.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	unit, since, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return 0, time.Time{}, eris.Errorf("era5: unsupported time units %q", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "seconds", "second", "secs", "sec", "s":
		step = time.Second
	case "minutes", "minute", "mins", "min":
		step = time.Minute
	case "hours", "hour", "hrs", "hr", "h":
		step = time.Hour
	case "days", "day", "d":
		step = 24 * time.Hour
	default:
		return 0, time.Time{}, eris.Errorf("era5: unsupported time step %q", unit)
	}

	s := strings.TrimSpace(since)
	s = strings.TrimSuffix(s, " UTC")
	s = strings.TrimSuffix(s, "Z")
	if i := strings.Index(s, "."); i > 0 {
		s = s[:i]
	}
	for _, layout := range referenceLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return step, t, nil
		}
	}
	return 0, time.Time{}, eris.Errorf("era5: unparseable reference time %q", since)
}
