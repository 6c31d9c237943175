package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/uhi-cli/internal/config"
	"github.com/sells-group/uhi-cli/internal/model"
)

var cfg *config.Config

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "uhi-cli",
	Short:   "Urban heat island analysis over reanalysis temperature and NDVI",
	Long:    "Resolves cities to administrative boundaries, aligns seasonal ERA5 temperature with Sentinel-2 NDVI over each study area, and reports vegetation/temperature statistics.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadFile(path)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := applyGlobalFlags(cmd, c); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("config", path),
			zap.Strings("boundaries", cfg.Data.BoundaryPaths),
			zap.String("era5_dir", cfg.Data.ERA5Dir),
			zap.String("ndvi_dir", cfg.Data.NDVIDir),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	addGlobalFlags(rootCmd)
}

func addGlobalFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.String("config", "", "config file (default ./config.yaml)")
	f.StringSlice("boundaries", nil, "GADM shapefiles or directories, overrides data.boundary_paths")
	f.String("era5-dir", "", "ERA5 NetCDF directory, overrides data.era5_dir")
	f.String("ndvi-dir", "", "NDVI GeoTIFF directory, overrides data.ndvi_dir")
	f.String("log-level", "", "debug|info|warn|error, overrides log.level")
}

// applyGlobalFlags copies explicitly set persistent flags over c.
func applyGlobalFlags(cmd *cobra.Command, c *config.Config) error {
	f := cmd.Flags()
	if f.Changed("boundaries") {
		paths, err := f.GetStringSlice("boundaries")
		if err != nil {
			return eris.Wrap(err, "flag --boundaries")
		}
		c.Data.BoundaryPaths = paths
	}
	for flag, dst := range map[string]*string{
		"era5-dir":  &c.Data.ERA5Dir,
		"ndvi-dir":  &c.Data.NDVIDir,
		"log-level": &c.Log.Level,
	} {
		if !f.Changed(flag) {
			continue
		}
		v, err := f.GetString(flag)
		if err != nil {
			return eris.Wrapf(err, "flag --%s", flag)
		}
		*dst = v
	}
	return nil
}

// exitCode maps a command error to the process status: 2 when the inputs
// never resolved to data, 1 otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case eris.Is(err, model.ErrRegionNotFound), eris.Is(err, model.ErrDataUnavailable):
		return 2
	default:
		return 1
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
