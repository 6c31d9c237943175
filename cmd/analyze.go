package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/align"
	"github.com/sells-group/uhi-cli/internal/analysis"
	"github.com/sells-group/uhi-cli/internal/config"
	"github.com/sells-group/uhi-cli/internal/era5"
	"github.com/sells-group/uhi-cli/internal/geo"
	"github.com/sells-group/uhi-cli/internal/model"
	"github.com/sells-group/uhi-cli/internal/ndvi"
	"github.com/sells-group/uhi-cli/internal/report"
	"github.com/sells-group/uhi-cli/internal/stats"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a batch of cities and write the summary table",
	Long: `Resolves every city, aligns the seasonal mean temperature and NDVI rasters over
its study area and computes correlation or discrepancy statistics. Cities that
cannot be resolved or lack data are skipped and listed at the end.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		modeName, _ := cmd.Flags().GetString("mode")
		mode, err := model.ParseMode(modeName)
		if err != nil {
			return err
		}
		applyAnalyzeFlags(cmd, cfg)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		cityFlags, _ := cmd.Flags().GetStringSlice("city")
		citiesFile, _ := cmd.Flags().GetString("cities")
		cities, err := selectCities(cityFlags, citiesFile, cfg.Analysis.Cities)
		if err != nil {
			return err
		}

		ds, err := geo.LoadShapefiles(cfg.Data.BoundaryPaths)
		if err != nil {
			return eris.Wrap(err, "analyze: load boundaries")
		}

		analyzer := newAnalyzer(cfg, ds)
		batch, runErr := analyzer.RunBatch(ctx, cities, mode, cfg.Analysis.Year)
		if batch == nil {
			return runErr
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "analyze: create output dir")
		}
		path, err := report.Write(cfg.Output.Dir, cfg.Output.Format, mode, cfg.Analysis.Year, batch.Results, batch.Failures)
		if err != nil {
			return err
		}
		zap.L().Info("summary written", zap.String("path", path), zap.Int("cities", len(batch.Results)))

		if save, _ := cmd.Flags().GetBool("save"); save && runErr == nil {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			run, err := st.SaveBatch(ctx, batch)
			if err != nil {
				return eris.Wrap(err, "analyze: save batch")
			}
			zap.L().Info("batch saved", zap.String("run_id", run.ID))
		}

		printSkipped(batch.Failures)
		return runErr
	},
}

func init() {
	f := analyzeCmd.Flags()
	f.String("mode", string(model.ModeCorrelation), "statistics to compute (correlation or discrepancy)")
	f.Int("year", 0, "season year (default analysis.year)")
	f.StringSlice("city", nil, "city as COUNTRY:Name (repeatable)")
	f.String("cities", "", "YAML file listing cities")
	f.String("output", "", "output directory (default output.dir)")
	f.String("format", "", "summary format, csv or xlsx (default output.format)")
	f.Bool("save", false, "persist the batch to the run database")
	rootCmd.AddCommand(analyzeCmd)
}

// applyAnalyzeFlags overrides config values with the flags that were set.
func applyAnalyzeFlags(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("year") {
		c.Analysis.Year, _ = cmd.Flags().GetInt("year")
	}
	if cmd.Flags().Changed("output") {
		c.Output.Dir, _ = cmd.Flags().GetString("output")
	}
	if cmd.Flags().Changed("format") {
		c.Output.Format, _ = cmd.Flags().GetString("format")
	}
}

// selectCities picks the batch: --city flags first, then a cities file,
// then the configured list.
func selectCities(flags []string, file string, configured []string) ([]model.City, error) {
	switch {
	case len(flags) > 0:
		return analysis.ParseCities(flags)
	case file != "":
		return analysis.LoadCities(file)
	case len(configured) > 0:
		return analysis.ParseCities(configured)
	default:
		return nil, eris.New("analyze: no cities given (use --city, --cities or analysis.cities)")
	}
}

// analysisOptions maps the analysis config onto analyzer options.
func analysisOptions(a config.AnalysisConfig) analysis.Options {
	return analysis.Options{
		SeasonStart:   a.SeasonStart,
		SeasonEnd:     a.SeasonEnd,
		BufferDegrees: a.BufferDegrees,
		Params: stats.Params{
			CorrectionFactor: a.CorrectionFactor,
			UHI: stats.UHIThresholds{
				UrbanMax: a.UHI.UrbanMax,
				RuralMin: a.UHI.RuralMin,
			},
		},
	}
}

func newAnalyzer(c *config.Config, ds *geo.Dataset) *analysis.Analyzer {
	temperature := era5.NewReader(c.Data.ERA5Dir, c.ERA5.FilePattern, era5.Options{
		Variable:     c.ERA5.Variable,
		TimeVar:      c.ERA5.TimeVar,
		LatVar:       c.ERA5.LatVar,
		LonVar:       c.ERA5.LonVar,
		AssumeKelvin: c.ERA5.AssumeKelvin,
	})
	vegetation := ndvi.NewSource(c.Data.NDVIDir, c.NDVI.Proj4)
	return analysis.New(ds, align.New(temperature, vegetation, c.Analysis.UpsampleFactor), analysisOptions(c.Analysis))
}

func printSkipped(failures []*model.CityError) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(os.Stderr, "Skipped %d cities:\n", len(failures))
	for _, ce := range failures {
		fmt.Fprintf(os.Stderr, "  %s (%s): %v\n", ce.City, ce.Kind, ce.Err)
	}
}
