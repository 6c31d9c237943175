package main

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/uhi-cli/internal/config"
	"github.com/sells-group/uhi-cli/internal/model"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"analyze", "resolve", "runs"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "uhi-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotEmpty(t, rootCmd.Version)
	for _, name := range []string{"config", "boundaries", "era5-dir", "ndvi-dir", "log-level"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "root should have --%s flag", name)
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addGlobalFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{
		"--boundaries", "gadm/ita,gadm/fra",
		"--ndvi-dir", "/srv/ndvi",
		"--log-level", "debug",
	}))

	c := &config.Config{
		Data: config.DataConfig{BoundaryPaths: []string{"data/gadm"}, ERA5Dir: "data/era5", NDVIDir: "data/ndvi"},
		Log:  config.LogConfig{Level: "info", Format: "json"},
	}
	require.NoError(t, applyGlobalFlags(cmd, c))

	assert.Equal(t, []string{"gadm/ita", "gadm/fra"}, c.Data.BoundaryPaths)
	assert.Equal(t, "/srv/ndvi", c.Data.NDVIDir)
	assert.Equal(t, "data/era5", c.Data.ERA5Dir, "unset flag keeps the configured value")
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(eris.Wrap(model.ErrRegionNotFound, "geo: Atlantis")))
	assert.Equal(t, 2, exitCode(eris.Wrap(model.ErrDataUnavailable, "era5: no file")))
	assert.Equal(t, 1, exitCode(eris.New("flag parse")))
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"mode", "year", "city", "cities", "output", "format", "save"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s flag", name)
	}
	assert.Equal(t, "correlation", analyzeCmd.Flags().Lookup("mode").DefValue)
	assert.Equal(t, "false", analyzeCmd.Flags().Lookup("save").DefValue)
}

func TestResolveCommand_Flags(t *testing.T) {
	for _, name := range []string{"country", "place"} {
		flag := resolveCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "resolve should have --%s flag", name)
		assert.Equal(t, []string{"true"}, flag.Annotations["cobra_annotation_bash_completion_one_required_flag"])
	}
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	flag := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)
}
