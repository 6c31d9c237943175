package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Mode selects which statistics are computed for a city.
type Mode string

const (
	ModeCorrelation Mode = "correlation"
	ModeDiscrepancy Mode = "discrepancy"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCorrelation:
		return ModeCorrelation, nil
	case ModeDiscrepancy:
		return ModeDiscrepancy, nil
	}
	return "", eris.Errorf("model: unknown mode %q (want correlation or discrepancy)", s)
}

// City identifies a place to analyze.
type City struct {
	Country string `json:"country" yaml:"country"` // ISO 3166-1 alpha-3, as used by GID_0
	Name    string `json:"name" yaml:"name"`
}

func (c City) String() string {
	return c.Country + ":" + c.Name
}

// ParseCity parses "FRA:Paris".
func ParseCity(s string) (City, error) {
	country, name, ok := strings.Cut(s, ":")
	country = strings.ToUpper(strings.TrimSpace(country))
	name = strings.TrimSpace(name)
	if !ok || country == "" || name == "" {
		return City{}, eris.Errorf("model: invalid city %q (want COUNTRY:Name)", s)
	}
	return City{Country: country, Name: name}, nil
}

// SeasonWindow is a date range: Start inclusive, End exclusive.
type SeasonWindow struct {
	Start time.Time
	End   time.Time
}

// SeasonForYear builds a window from month-day strings ("06-01") for the given year.
func SeasonForYear(year int, startMD, endMD string) (SeasonWindow, error) {
	start, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s", year, startMD))
	if err != nil {
		return SeasonWindow{}, eris.Wrapf(err, "model: parse season start %q", startMD)
	}
	end, err := time.Parse("2006-01-02", fmt.Sprintf("%04d-%s", year, endMD))
	if err != nil {
		return SeasonWindow{}, eris.Wrapf(err, "model: parse season end %q", endMD)
	}
	if !end.After(start) {
		return SeasonWindow{}, eris.Errorf("model: season end %s is not after start %s", endMD, startMD)
	}
	return SeasonWindow{Start: start, End: end}, nil
}

// Contains reports whether t falls in [Start, End).
func (w SeasonWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Year returns the calendar year of the window start.
func (w SeasonWindow) Year() int {
	return w.Start.Year()
}

// StartDate and EndDate format the bounds as used in file names.
func (w SeasonWindow) StartDate() string { return w.Start.Format("2006-01-02") }
func (w SeasonWindow) EndDate() string   { return w.End.Format("2006-01-02") }

// BBox represents a geographic bounding box in degrees.
type BBox struct {
	MinLng float64 `json:"min_lng"`
	MinLat float64 `json:"min_lat"`
	MaxLng float64 `json:"max_lng"`
	MaxLat float64 `json:"max_lat"`
}

// Grow returns the box expanded by d on every side.
func (b BBox) Grow(d float64) BBox {
	return BBox{MinLng: b.MinLng - d, MinLat: b.MinLat - d, MaxLng: b.MaxLng + d, MaxLat: b.MaxLat + d}
}

// Contains reports whether (lng, lat) lies inside the box, edges included.
func (b BBox) Contains(lng, lat float64) bool {
	return lng >= b.MinLng && lng <= b.MaxLng && lat >= b.MinLat && lat <= b.MaxLat
}

// ContainsBox reports whether o lies fully inside b.
func (b BBox) ContainsBox(o BBox) bool {
	return o.MinLng >= b.MinLng && o.MaxLng <= b.MaxLng && o.MinLat >= b.MinLat && o.MaxLat <= b.MaxLat
}

func (b BBox) String() string {
	return fmt.Sprintf("%.4f, %.4f, %.4f, %.4f", b.MinLng, b.MinLat, b.MaxLng, b.MaxLat)
}
