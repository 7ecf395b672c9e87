package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/config"
	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/layer"
	"github.com/sells-group/mapviz/internal/tile"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}, ShutdownTimeout: time.Second},
		Tiles:  config.TilesConfig{CacheSize: 100, CacheTTL: time.Minute},
		Density: config.DensityConfig{
			BaseURL: filepath.Join(dir, "bins"),
			MetaURL: filepath.Join(dir, "meta"),
			Timeout: time.Second,
		},
		WordCloud: config.WordCloudConfig{SizeFunction: "log"},
		Terms:     config.TermsConfig{Driver: "json", Dir: filepath.Join(dir, "topics")},
		Layers:    config.LayersConfig{File: filepath.Join(dir, "layers.yaml")},
	}
}

func TestLoadLayers_MissingFileUsesDefaults(t *testing.T) {
	configs, err := loadLayers(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, layer.DefaultLayers(), configs)

	configs, err = loadLayers("")
	require.NoError(t, err)
	assert.Equal(t, layer.DefaultLayers(), configs)
}

func TestLoadLayers_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers:\n  - name: rides\n    kind: density\n    max_zoom: 12\n"), 0o644))

	configs, err := loadLayers(path)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "rides", configs[0].Name)
	assert.Equal(t, "rides", configs[0].Label)
}

func TestInitApp_Defaults(t *testing.T) {
	c := testConfig(t)
	require.NoError(t, writeMeta(extrema.Meta{3: {Min: 1, Max: 9}}, c.Density.MetaURL))

	env, err := initApp(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	require.Contains(t, env.Density, "pickups")
	require.Contains(t, env.WordClouds, "topics")
	assert.Equal(t, extrema.Meta{3: {Min: 1, Max: 9}}, env.Density["pickups"].Meta())
	assert.Equal(t, "topics", env.WordClouds["topics"].Layer().Name())
}

func TestInitApp_MissingMetaFallsBack(t *testing.T) {
	env, err := initApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer env.Close()

	assert.Empty(t, env.Density["pickups"].Meta())
}

func TestInitApp_SQLiteDriver(t *testing.T) {
	c := testConfig(t)
	c.Terms.Driver = "sqlite"
	c.Terms.SQLitePath = filepath.Join(t.TempDir(), "terms.db")

	env, err := initApp(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, env.closers, 1)
	env.Close()
}

func TestInitApp_Errors(t *testing.T) {
	c := testConfig(t)
	c.Terms.Driver = "mongo"
	_, err := initApp(context.Background(), c)
	assert.ErrorContains(t, err, "unknown driver")

	c = testConfig(t)
	c.WordCloud.FontFile = filepath.Join(t.TempDir(), "missing.ttf")
	_, err = initApp(context.Background(), c)
	assert.Error(t, err)

	c = testConfig(t)
	c.WordCloud.SizeFunction = "cubic"
	_, err = initApp(context.Background(), c)
	assert.Error(t, err)

	c = testConfig(t)
	require.NoError(t, os.WriteFile(c.Layers.File, []byte("layers:\n  - name: a\n    kind: density\n  - name: a\n    kind: density\n"), 0o644))
	_, err = initApp(context.Background(), c)
	assert.Error(t, err)
}

func TestBuildHandler_ServesTiles(t *testing.T) {
	c := testConfig(t)
	bins := make([]float64, tile.Size*tile.Size)
	bins[10] = 3
	writeTestBins(t, filepath.Join(c.Density.BaseURL, "2", "1", "1.bins"), bins)
	writeTestCounts(t, c.Terms.Dir, tile.Coord{Z: 2, X: 1, Y: 1}, `{"taxi": 4, "bus": 2}`)

	env, err := initApp(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	h, err := buildHandler(c, env)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/pickups/2/1/1.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tiles/topics/2/1/1.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-word="taxi"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
