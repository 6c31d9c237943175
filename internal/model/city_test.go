package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("Correlation")
	require.NoError(t, err)
	assert.Equal(t, ModeCorrelation, m)

	m, err = ParseMode(" discrepancy ")
	require.NoError(t, err)
	assert.Equal(t, ModeDiscrepancy, m)

	_, err = ParseMode("heat")
	assert.Error(t, err)
}

func TestParseCity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    City
		wantErr bool
	}{
		{"FRA:Paris", City{Country: "FRA", Name: "Paris"}, false},
		{"ita: Roma ", City{Country: "ITA", Name: "Roma"}, false},
		{"Paris", City{}, true},
		{"FRA:", City{}, true},
		{":Paris", City{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseCity(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.Country+":"+tt.want.Name, got.String())
		})
	}
}

func TestSeasonForYear(t *testing.T) {
	t.Parallel()

	w, err := SeasonForYear(2022, "06-01", "09-01")
	require.NoError(t, err)
	assert.Equal(t, "2022-06-01", w.StartDate())
	assert.Equal(t, "2022-09-01", w.EndDate())
	assert.Equal(t, 2022, w.Year())

	assert.True(t, w.Contains(time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2022, 8, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2022, 9, 1, 0, 0, 0, 0, time.UTC)), "end is exclusive")
	assert.False(t, w.Contains(time.Date(2022, 5, 31, 0, 0, 0, 0, time.UTC)))

	_, err = SeasonForYear(2022, "09-01", "06-01")
	assert.Error(t, err)
	_, err = SeasonForYear(2022, "13-01", "14-01")
	assert.Error(t, err)
}

func TestBBox(t *testing.T) {
	t.Parallel()

	b := BBox{MinLng: 2.2, MinLat: 48.8, MaxLng: 2.5, MaxLat: 48.9}
	g := b.Grow(0.2)
	assert.InDelta(t, 2.0, g.MinLng, 1e-12)
	assert.InDelta(t, 48.6, g.MinLat, 1e-12)
	assert.InDelta(t, 2.7, g.MaxLng, 1e-12)
	assert.InDelta(t, 49.1, g.MaxLat, 1e-12)
	assert.True(t, g.ContainsBox(b))
	assert.False(t, b.ContainsBox(g))
	assert.True(t, b.Contains(2.2, 48.9))
	assert.False(t, b.Contains(2.6, 48.85))
}
