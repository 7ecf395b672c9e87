// Package wordcloud lays out the most frequent words of a tile as a cloud of
// labels placed along an outward spiral, and renders the result as HTML.
package wordcloud

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/measure"
)

const (
	TileSize         = 256
	HalfSize         = TileSize / 2
	VerticalOffset   = 24
	HorizontalOffset = 10
	MaxNumWords      = 15
	MinFontSize      = 10
	MaxFontSize      = 20
	// NumAttempts is the number of boundary violations a word may suffer
	// before it is dropped.
	NumAttempts = 1
)

// SizeFunction maps a word count onto [0,1] given the layer extrema.
type SizeFunction int

const (
	Log SizeFunction = iota
	Linear
)

// ParseSizeFunction parses "log" or "linear". The empty string is Log.
func ParseSizeFunction(s string) (SizeFunction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "log":
		return Log, nil
	case "linear":
		return Linear, nil
	}
	return Log, eris.Errorf("wordcloud: unknown size function %q", s)
}

func (f SizeFunction) String() string {
	if f == Linear {
		return "linear"
	}
	return "log"
}

// WordCount is one word and its frequency within a tile.
type WordCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// MeasuredWord is a WordCount with its size scale and rendered box.
type MeasuredWord struct {
	WordCount
	Percent  float64 `json:"percent"`
	FontSize float64 `json:"font_size"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// PlacedWord is a MeasuredWord with the centre of its box relative to the
// tile centre.
type PlacedWord struct {
	MeasuredWord
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bucket is the percent scaled to [0,100] and rounded to the nearest 10,
// used for styling only.
func (w PlacedWord) Bucket() int {
	return int(math.Floor(w.Percent*100/10+0.5)) * 10
}

// Select returns the MaxNumWords most frequent words, most frequent first.
// Equal counts are ordered by text.
func Select(counts map[string]int) []WordCount {
	words := make([]WordCount, 0, len(counts))
	for text, count := range counts {
		words = append(words, WordCount{Text: text, Count: count})
	}
	slices.SortFunc(words, func(a, b WordCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Text, b.Text)
	})
	if len(words) > MaxNumWords {
		words = words[:MaxNumWords]
	}
	return words
}

// TransformValue scales count into [0,1] against min and max. In Log mode
// values are compared in log10 space with min, max and count floored at 1 and
// a zero range treated as 1. A zero range in Linear mode yields 0.
func TransformValue(count, min, max float64, fn SizeFunction) float64 {
	clamped := math.Max(math.Min(count, max), min)
	if fn == Log {
		logMin := math.Log10(math.Max(min, 1))
		logMax := math.Log10(math.Max(max, 1))
		logRange := logMax - logMin
		if logRange == 0 {
			logRange = 1
		}
		return (math.Log10(math.Max(clamped, 1)) - logMin) / logRange
	}
	if max == min {
		return 0
	}
	return (clamped - min) / (max - min)
}

// FontSize returns the font size for a percent in [0,1].
func FontSize(percent float64) float64 {
	return MinFontSize + percent*(MaxFontSize-MinFontSize)
}

// Measure sizes and measures words in order. Words that measure zero in
// either dimension are dropped.
func Measure(words []WordCount, ext extrema.Extrema, fn SizeFunction, m measure.TextMeasurer) []MeasuredWord {
	out := make([]MeasuredWord, 0, len(words))
	for _, w := range words {
		percent := TransformValue(float64(w.Count), ext.Min, ext.Max, fn)
		size := FontSize(percent)
		width, height := m.Measure(w.Text, size)
		if width <= 0 || height <= 0 {
			continue
		}
		out = append(out, MeasuredWord{
			WordCount: w,
			Percent:   percent,
			FontSize:  size,
			Width:     width,
			Height:    height,
		})
	}
	return out
}

// Build selects, measures and places the words of counts.
func Build(counts map[string]int, ext extrema.Extrema, fn SizeFunction, m measure.TextMeasurer) []PlacedWord {
	return Layout(Measure(Select(counts), ext, fn, m))
}
