package density

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/tile"
)

// ErrNoData is returned when a tile has no bins. It is a valid sparse-tile
// state, not a failure.
var ErrNoData = eris.New("density: tile has no data")

// Renderer produces PNG density tiles for one layer.
type Renderer struct {
	source BinSource
	meta   extrema.Meta
}

// NewRenderer creates a Renderer reading bins from source and scaling colours
// by the per-zoom extrema in meta.
func NewRenderer(source BinSource, meta extrema.Meta) *Renderer {
	return &Renderer{source: source, meta: meta}
}

// Meta returns the renderer's per-zoom extrema.
func (r *Renderer) Meta() extrema.Meta {
	return r.meta
}

// Extrema returns the colour scale used for zoom z. When meta has no entry for
// z the range of the tile's own non-zero bins is used.
func (r *Renderer) Extrema(z int, bins []float64) extrema.Extrema {
	if ext, ok := r.meta.At(z); ok {
		return ext
	}
	ext, _ := extrema.Of(nonZero(bins))
	zap.L().Debug("density: no meta for zoom, using tile extrema",
		zap.Int("z", z), zap.Float64("min", ext.Min), zap.Float64("max", ext.Max))
	return ext
}

// Tile renders the PNG for c. It returns ErrNoData when the source has no bins.
func (r *Renderer) Tile(ctx context.Context, c tile.Coord) ([]byte, error) {
	bins, err := r.source.Bins(ctx, c)
	if err != nil {
		return nil, err
	}
	if bins == nil {
		return nil, ErrNoData
	}
	return EncodePNG(Render(bins, r.Extrema(c.Z, bins)))
}

func nonZero(bins []float64) []float64 {
	out := make([]float64, 0, len(bins))
	for _, b := range bins {
		if b != 0 {
			out = append(out, b)
		}
	}
	return out
}
