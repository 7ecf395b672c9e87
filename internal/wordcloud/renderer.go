package wordcloud

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/tile"
)

// Source supplies the word counts of a tile. An empty map means no words.
type Source interface {
	Counts(ctx context.Context, c tile.Coord) (map[string]int, error)
}

// Renderer produces word-cloud fragments for one layer from a Source.
type Renderer struct {
	layer  *Layer
	source Source
}

// NewRenderer creates a Renderer.
func NewRenderer(layer *Layer, source Source) *Renderer {
	return &Renderer{layer: layer, source: source}
}

// Layer returns the renderer's layer.
func (r *Renderer) Layer() *Layer { return r.layer }

// Tile returns the HTML fragment for c. The fragment is empty when the tile
// has no words or none could be placed.
func (r *Renderer) Tile(ctx context.Context, c tile.Coord) (string, error) {
	counts, err := r.source.Counts(ctx, c)
	if err != nil {
		return "", eris.Wrapf(err, "wordcloud: counts for %s", c)
	}
	return r.layer.Render(counts)
}
