package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/uhi-cli/internal/geo"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a place to its administrative boundary",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("resolve"); err != nil {
			return err
		}
		country, _ := cmd.Flags().GetString("country")
		place, _ := cmd.Flags().GetString("place")

		ds, err := geo.LoadShapefiles(cfg.Data.BoundaryPaths)
		if err != nil {
			return eris.Wrap(err, "resolve: load boundaries")
		}

		region, err := geo.NewResolver(ds).Resolve(country, place)
		if err != nil {
			return err
		}
		study, err := geo.NewStudyArea(region, cfg.Analysis.BufferDegrees)
		if err != nil {
			return err
		}
		mask := geo.BuildLandMask(ds, study.Envelope)

		formatResolution(os.Stdout, study, mask)
		return nil
	},
}

func init() {
	resolveCmd.Flags().String("country", "", "ISO 3166-1 alpha-3 country code (GID_0)")
	resolveCmd.Flags().String("place", "", "place name as spelled in the boundary dataset")
	_ = resolveCmd.MarkFlagRequired("country")
	_ = resolveCmd.MarkFlagRequired("place")
	rootCmd.AddCommand(resolveCmd)
}

// formatResolution writes the resolved region and its study area to out.
func formatResolution(out io.Writer, study *geo.StudyArea, mask *geo.LandMask) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	r := study.Region
	_, _ = fmt.Fprintf(w, "Place:\t%s (%s)\n", r.Name, r.Country)
	_, _ = fmt.Fprintf(w, "Level:\t%d\n", r.Level)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", r.Records)
	_, _ = fmt.Fprintf(w, "Bounds:\t%s\n", r.Bounds())
	_, _ = fmt.Fprintf(w, "Rings:\t%d\n", geo.Rings(r.Geometry))
	_, _ = fmt.Fprintf(w, "Envelope:\t%s (buffer %g deg)\n", study.Envelope, study.BufferDegrees)
	polygons := 0
	if !mask.Empty() {
		polygons = len(mask.Parts)
	}
	_, _ = fmt.Fprintf(w, "Land polygons:\t%d\n", polygons)
	_ = w.Flush()
}
