package wordcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/tile"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Counts(ctx context.Context, c tile.Coord) (map[string]int, error) {
	args := m.Called(ctx, c)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

func TestRenderer_Tile(t *testing.T) {
	c := tile.Coord{Z: 12, X: 1205, Y: 1539}
	src := new(mockSource)
	src.On("Counts", mock.Anything, c).Return(map[string]int{"taxi": 40, "airport": 12}, nil)

	r := NewRenderer(newTestLayer(), src)
	out, err := r.Tile(context.Background(), c)
	require.NoError(t, err)
	assert.Contains(t, out, `data-word="taxi"`)
	assert.Contains(t, out, `data-word="airport"`)
	assert.Equal(t, "topics", r.Layer().Name())
	src.AssertExpectations(t)
}

func TestRenderer_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := new(mockSource)
	src.On("Counts", mock.Anything, mock.Anything).Return(nil, boom)

	_, err := NewRenderer(newTestLayer(), src).Tile(context.Background(), tile.Coord{})
	assert.ErrorIs(t, err, boom)
}
