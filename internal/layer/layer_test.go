package layer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layers:
  - name: pickups
    label: Taxi pickups
    kind: density
    min_zoom: 2
    max_zoom: 16
    bins_url: https://tiles.example.com/pickups
  - name: topics
    kind: wordcloud
    max_zoom: 14
    hidden: true
    size_function: linear
`), 0o644))

	got, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Config{
		Name: "pickups", Label: "Taxi pickups", Kind: KindDensity,
		MinZoom: 2, MaxZoom: 16, BinsURL: "https://tiles.example.com/pickups",
	}, got[0])
	assert.Equal(t, "topics", got[1].Label)
	assert.True(t, got[1].Hidden)
	assert.Equal(t, "linear", got[1].SizeFunction)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("layers: [unterminated"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}

func TestConfig_InZoom(t *testing.T) {
	c := Config{MinZoom: 3, MaxZoom: 10}
	assert.False(t, c.InZoom(2))
	assert.True(t, c.InZoom(3))
	assert.True(t, c.InZoom(10))
	assert.False(t, c.InZoom(11))
}

func TestState(t *testing.T) {
	s := NewState(false)
	assert.False(t, s.IsHidden())
	s.Hide()
	assert.True(t, s.IsHidden())
	s.Show()
	assert.False(t, s.IsHidden())
}

func TestRegistry(t *testing.T) {
	r, err := NewRegistry(DefaultLayers())
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "pickups", list[0].Config.Name)
	assert.Equal(t, KindWordCloud, list[1].Config.Kind)

	e, err := r.Get("topics")
	require.NoError(t, err)
	assert.True(t, r.Visible("topics"))
	e.State.Hide()
	assert.False(t, r.Visible("topics"))

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownLayer)
	assert.False(t, r.Visible("nope"))
}

func TestNewRegistry_Invalid(t *testing.T) {
	cases := map[string][]Config{
		"no name":   {{Kind: KindDensity}},
		"bad kind":  {{Name: "a", Kind: "vector"}},
		"bad zoom":  {{Name: "a", Kind: KindDensity, MinZoom: 5, MaxZoom: 2}},
		"negative":  {{Name: "a", Kind: KindDensity, MinZoom: -1}},
		"duplicate": {{Name: "a", Kind: KindDensity}, {Name: "a", Kind: KindWordCloud}},
	}
	for name, configs := range cases {
		_, err := NewRegistry(configs)
		assert.Error(t, err, name)
	}
}
