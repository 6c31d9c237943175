package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Data     DataConfig     `yaml:"data" mapstructure:"data"`
	ERA5     ERA5Config     `yaml:"era5" mapstructure:"era5"`
	NDVI     NDVIConfig     `yaml:"ndvi" mapstructure:"ndvi"`
	Analysis AnalysisConfig `yaml:"analysis" mapstructure:"analysis"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Output   OutputConfig   `yaml:"output" mapstructure:"output"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// DataConfig points at the input datasets.
type DataConfig struct {
	// BoundaryPaths lists GADM shapefiles or directories holding them.
	BoundaryPaths []string `yaml:"boundary_paths" mapstructure:"boundary_paths"`
	ERA5Dir       string   `yaml:"era5_dir" mapstructure:"era5_dir"`
	NDVIDir       string   `yaml:"ndvi_dir" mapstructure:"ndvi_dir"`
}

// ERA5Config describes the layout of the coarse temperature NetCDF files.
type ERA5Config struct {
	FilePattern  string `yaml:"file_pattern" mapstructure:"file_pattern"` // {year} is substituted
	Variable     string `yaml:"variable" mapstructure:"variable"`
	TimeVar      string `yaml:"time_var" mapstructure:"time_var"`
	LatVar       string `yaml:"lat_var" mapstructure:"lat_var"`
	LonVar       string `yaml:"lon_var" mapstructure:"lon_var"`
	AssumeKelvin bool   `yaml:"assume_kelvin" mapstructure:"assume_kelvin"`
}

// NDVIConfig configures the vegetation raster reader.
type NDVIConfig struct {
	// Proj4 overrides the CRS read from the GeoTIFF keys.
	Proj4 string `yaml:"proj4" mapstructure:"proj4"`
}

// AnalysisConfig holds the numeric parameters of a run.
type AnalysisConfig struct {
	Year             int       `yaml:"year" mapstructure:"year"`
	SeasonStart      string    `yaml:"season_start" mapstructure:"season_start"` // MM-DD, inclusive
	SeasonEnd        string    `yaml:"season_end" mapstructure:"season_end"`     // MM-DD, exclusive
	BufferDegrees    float64   `yaml:"buffer_degrees" mapstructure:"buffer_degrees"`
	UpsampleFactor   int       `yaml:"upsample_factor" mapstructure:"upsample_factor"`
	CorrectionFactor float64   `yaml:"correction_factor" mapstructure:"correction_factor"`
	UHI              UHIConfig `yaml:"uhi" mapstructure:"uhi"`
	Cities           []string  `yaml:"cities" mapstructure:"cities"` // COUNTRY:Name
}

// UHIConfig holds the two-bucket urban/rural split used for heat-island intensity.
type UHIConfig struct {
	UrbanMax float64 `yaml:"urban_max" mapstructure:"urban_max"`
	RuralMin float64 `yaml:"rural_min" mapstructure:"rural_min"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OutputConfig configures the summary table writer.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from an optional ./config.yaml and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from path and environment. An empty path
// falls back to an optional config.yaml in the working directory; an
// explicit path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
	}
	v.SetConfigType("yaml")

	// Environment
	v.SetEnvPrefix("UHI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.boundary_paths", []string{"data/gadm"})
	v.SetDefault("data.era5_dir", "data/derived-era5-land-daily-statistics")
	v.SetDefault("data.ndvi_dir", "data/sentinel2_ndvi")
	v.SetDefault("era5.file_pattern", "{year}_2m_temperature_daily_maximum.nc")
	v.SetDefault("era5.variable", "t2m")
	v.SetDefault("era5.time_var", "valid_time")
	v.SetDefault("era5.lat_var", "latitude")
	v.SetDefault("era5.lon_var", "longitude")
	v.SetDefault("era5.assume_kelvin", true)
	v.SetDefault("ndvi.proj4", "")
	v.SetDefault("analysis.year", 2022)
	v.SetDefault("analysis.season_start", "06-01")
	v.SetDefault("analysis.season_end", "09-01")
	v.SetDefault("analysis.buffer_degrees", 0.2)
	v.SetDefault("analysis.upsample_factor", 10)
	v.SetDefault("analysis.correction_factor", 0.5)
	v.SetDefault("analysis.uhi.urban_max", 0.3)
	v.SetDefault("analysis.uhi.rural_min", 0.6)
	v.SetDefault("analysis.cities", []string{"FRA:Paris", "ITA:Roma", "FRA:Nantes", "ITA:Perugia"})
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "uhi.db")
	v.SetDefault("output.dir", "reports")
	v.SetDefault("output.format", "csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrapf(err, "config: read file %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. Mode is one of
// "analyze", "resolve" or "store".
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "analyze":
		problems = append(problems, c.validateBoundaries()...)
		if c.Data.ERA5Dir == "" {
			problems = append(problems, "data.era5_dir is required")
		}
		if c.Data.NDVIDir == "" {
			problems = append(problems, "data.ndvi_dir is required")
		}
		if c.ERA5.Variable == "" || c.ERA5.TimeVar == "" || c.ERA5.LatVar == "" || c.ERA5.LonVar == "" {
			problems = append(problems, "era5 variable names are required")
		}
		a := c.Analysis
		if a.BufferDegrees < 0 {
			problems = append(problems, "analysis.buffer_degrees must be >= 0")
		}
		if a.UpsampleFactor < 1 {
			problems = append(problems, "analysis.upsample_factor must be >= 1")
		}
		if a.CorrectionFactor < 0 {
			problems = append(problems, "analysis.correction_factor must be >= 0")
		}
		if a.UHI.UrbanMax > a.UHI.RuralMin {
			problems = append(problems, "analysis.uhi.urban_max must not exceed analysis.uhi.rural_min")
		}
		if a.SeasonStart == "" || a.SeasonEnd == "" {
			problems = append(problems, "analysis.season_start and analysis.season_end are required")
		}
		if f := c.Output.Format; f != "csv" && f != "xlsx" {
			problems = append(problems, "output.format must be csv or xlsx")
		}
	case "resolve":
		problems = append(problems, c.validateBoundaries()...)
		if c.Analysis.BufferDegrees < 0 {
			problems = append(problems, "analysis.buffer_degrees must be >= 0")
		}
	case "store":
		if c.Store.Driver != "sqlite" {
			problems = append(problems, "store.driver must be sqlite")
		}
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateBoundaries() []string {
	if len(c.Data.BoundaryPaths) == 0 {
		return []string{"data.boundary_paths is required"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
