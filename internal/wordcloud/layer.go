package wordcloud

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/measure"
)

// ErrRescale is returned when a tile widened the layer's extrema. The tile is
// not rendered and every tile already rendered for the layer is stale.
var ErrRescale = eris.New("wordcloud: layer extrema changed, rescale required")

// LayerOptions configures a Layer.
type LayerOptions struct {
	Name         string
	SizeFunction SizeFunction
	Measurer     measure.TextMeasurer
}

// Layer is the word-cloud state of one map layer: the running extrema that
// keep font sizes consistent across its tiles and the highlighted word.
// It is safe for concurrent use.
type Layer struct {
	name     string
	size     SizeFunction
	measurer measure.TextMeasurer
	tracker  extrema.Tracker

	mu        sync.RWMutex
	highlight string
}

// NewLayer creates a Layer.
func NewLayer(opts LayerOptions) *Layer {
	return &Layer{
		name:     opts.Name,
		size:     opts.SizeFunction,
		measurer: opts.Measurer,
	}
}

// Name returns the layer name.
func (l *Layer) Name() string { return l.name }

// SizeFunction returns the layer's size function.
func (l *Layer) SizeFunction() SizeFunction { return l.size }

// Cloud folds the tile's counts into the layer extrema and lays out the
// cloud. It returns ErrRescale when the extrema widened and nil when counts
// is empty.
func (l *Layer) Cloud(counts map[string]int) ([]PlacedWord, error) {
	local, ok := extrema.OfCounts(counts)
	if !ok {
		return nil, nil
	}
	if l.tracker.Update(local) {
		ext, _ := l.tracker.Get()
		zap.L().Info("wordcloud: extrema changed",
			zap.String("layer", l.name),
			zap.Float64("min", ext.Min),
			zap.Float64("max", ext.Max))
		return nil, ErrRescale
	}
	ext, _ := l.tracker.Get()
	return Build(counts, ext, l.size, l.measurer), nil
}

// Render returns the HTML fragment for a tile's counts, or ErrRescale.
func (l *Layer) Render(counts map[string]int) (string, error) {
	cloud, err := l.Cloud(counts)
	if err != nil {
		return "", err
	}
	return RenderHTML(cloud, l.Highlighted()), nil
}

// Extrema returns the layer's running extrema.
func (l *Layer) Extrema() (extrema.Extrema, bool) {
	return l.tracker.Get()
}

// ResetExtrema forgets the running extrema.
func (l *Layer) ResetExtrema() {
	l.tracker.Reset()
}

// Highlight marks word as highlighted. An empty word clears the highlight.
func (l *Layer) Highlight(word string) {
	l.mu.Lock()
	l.highlight = word
	l.mu.Unlock()
}

// ClearHighlight removes the highlight.
func (l *Layer) ClearHighlight() {
	l.Highlight("")
}

// Highlighted returns the highlighted word, or "" if none.
func (l *Layer) Highlighted() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.highlight
}
