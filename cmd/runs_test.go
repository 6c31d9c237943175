package main

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/uhi-cli/internal/geo"
	"github.com/sells-group/uhi-cli/internal/model"
	"github.com/sells-group/uhi-cli/internal/store"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []store.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			Mode:       model.ModeDiscrepancy,
			Year:       2022,
			StartedAt:  now,
			FinishedAt: now.Add(2 * time.Minute),
			Analyzed:   3,
			Skipped:    1,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ANALYZED")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "discrepancy")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "2m0s")
}

func TestFormatRunDetail(t *testing.T) {
	run := &store.Run{ID: "run-1", Mode: model.ModeCorrelation, Year: 2022, Analyzed: 1, Skipped: 1}
	cs := model.NewCityStatistics(model.ModeCorrelation)
	cs.City = model.City{Country: "ITA", Name: "Perugia"}
	cs.Level = 3
	cs.NPixels = 48
	cs.Correlation = -0.5
	cs.PValue = math.NaN()

	var buf bytes.Buffer
	formatRunDetail(&buf, run, []*model.CityStatistics{cs}, []store.Failure{
		{City: model.City{Country: "ITA", Name: "Atlantis"}, Kind: model.KindRegionNotFound, Message: "region not found"},
	})

	output := buf.String()
	assert.Contains(t, output, "Run run-1: correlation 2022")
	assert.Contains(t, output, "UHI_Intensity")
	assert.Contains(t, output, "Perugia")
	assert.Contains(t, output, "-0.5")
	assert.Contains(t, output, "Skipped:")
	assert.Contains(t, output, "ITA:Atlantis (region_not_found)")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatResolution(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, []float64{12, 42, 13, 42, 13, 43, 12, 43, 12, 42}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	assert.NoError(t, mp.Push(poly))
	rec := &geo.AdminRecord{Country: "ITA", Geometry: mp}
	rec.Names[2] = "Perugia"
	ds := geo.NewDataset([]*geo.AdminRecord{rec}, geo.SRIDWGS84)

	region, err := geo.NewResolver(ds).Resolve("ITA", "Perugia")
	assert.NoError(t, err)
	study, err := geo.NewStudyArea(region, 0.2)
	assert.NoError(t, err)

	var buf bytes.Buffer
	formatResolution(&buf, study, geo.BuildLandMask(ds, study.Envelope))

	output := buf.String()
	assert.Contains(t, output, "Perugia (ITA)")
	assert.Contains(t, output, "Level:")
	assert.Contains(t, output, "3")
	assert.Contains(t, output, "11.8000, 41.8000, 13.2000, 43.2000")
	assert.Contains(t, output, "Land polygons:")
	assert.Regexp(t, `Rings:\s+1\n`, output)
	assert.Regexp(t, `Land polygons:\s+1\n`, output)
}
