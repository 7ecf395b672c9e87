package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "render", "meta", "warm", "terms"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "mapviz", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
	assert.Equal(t, "p", flag.Shorthand)

	for _, name := range []string{"cache-size", "cache-ttl"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(name), "serve should have --%s flag", name)
	}
}

func TestRenderCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range renderCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["density"])
	assert.True(t, names["cloud"])
}

func TestRenderDensityCommand_Flags(t *testing.T) {
	for _, name := range []string{"bins", "out", "zoom", "meta", "min", "max"} {
		assert.NotNil(t, renderDensityCmd.Flags().Lookup(name), "render density should have --%s flag", name)
	}
	assert.Equal(t, "tile.png", renderDensityCmd.Flags().Lookup("out").DefValue)
}

func TestRenderCloudCommand_Flags(t *testing.T) {
	for _, name := range []string{"counts", "out", "linear", "highlight"} {
		assert.NotNil(t, renderCloudCmd.Flags().Lookup(name), "render cloud should have --%s flag", name)
	}
	assert.Equal(t, "false", renderCloudCmd.Flags().Lookup("linear").DefValue)
}

func TestMetaBuildCommand_Flags(t *testing.T) {
	flag := metaBuildCmd.Flags().Lookup("concurrency")
	require.NotNil(t, flag)
	assert.Equal(t, "4", flag.DefValue)
	assert.NotNil(t, metaBuildCmd.Flags().Lookup("dir"))
	assert.NotNil(t, metaBuildCmd.Flags().Lookup("out"))
}

func TestWarmCommand_Flags(t *testing.T) {
	for _, name := range []string{"zoom", "x-min", "x-max", "y-min", "y-max", "layer", "out", "concurrency"} {
		assert.NotNil(t, warmCmd.Flags().Lookup(name), "warm should have --%s flag", name)
	}
	assert.Equal(t, "-1", warmCmd.Flags().Lookup("x-max").DefValue)
}

func TestTermsIngestCommand_Flags(t *testing.T) {
	assert.NotNil(t, termsIngestCmd.Flags().Lookup("dir"))
	assert.NotNil(t, termsIngestCmd.Flags().Lookup("db"))
}

func TestRootCommand_LogFlags(t *testing.T) {
	for _, name := range []string{"log-level", "log-format"} {
		flag := rootCmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, "root should have --%s flag", name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestApplyLogFlags(t *testing.T) {
	require.NoError(t, rootCmd.ParseFlags(nil))

	lc := config.LogConfig{Level: "info", Format: "json"}
	applyLogFlags(rootCmd, &lc)
	assert.Equal(t, config.LogConfig{Level: "info", Format: "json"}, lc)

	require.NoError(t, rootCmd.PersistentFlags().Set("log-level", "debug"))
	t.Cleanup(func() { _ = rootCmd.PersistentFlags().Set("log-level", "") })

	applyLogFlags(rootCmd, &lc)
	assert.Equal(t, "debug", lc.Level)
	assert.Equal(t, "json", lc.Format)
}
