package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/terms"
	"github.com/sells-group/mapviz/internal/tile"
)

func writeTestCounts(t *testing.T, dir string, c tile.Coord, body string) {
	t.Helper()
	path := terms.NewJSONSource(dir).Path(c)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestIngestTerms(t *testing.T) {
	dir := t.TempDir()
	writeTestCounts(t, dir, tile.Coord{Z: 4, X: 1, Y: 2}, `{"taxi": 10, "bus": 3}`)
	writeTestCounts(t, dir, tile.Coord{Z: 4, X: 1, Y: 3}, `{"ferry": 1}`)
	dbPath := filepath.Join(t.TempDir(), "terms.db")

	n, err := ingestTerms(context.Background(), dir, dbPath)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := terms.NewSQLite(dbPath)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()

	counts, err := st.Counts(context.Background(), tile.Coord{Z: 4, X: 1, Y: 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"taxi": 10, "bus": 3}, counts)

	coords, err := st.Tiles(context.Background(), 4)
	require.NoError(t, err)
	assert.Len(t, coords, 2)
}

func TestIngestTerms_BadFile(t *testing.T) {
	dir := t.TempDir()
	writeTestCounts(t, dir, tile.Coord{Z: 1, X: 0, Y: 0}, `not json`)

	_, err := ingestTerms(context.Background(), dir, filepath.Join(t.TempDir(), "terms.db"))
	assert.Error(t, err)
}

func TestIngestTerms_BadDB(t *testing.T) {
	_, err := ingestTerms(context.Background(), t.TempDir(), "/nonexistent/dir/subdir/terms.db")
	assert.Error(t, err)
}
