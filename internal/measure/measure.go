// Package measure computes the rendered pixel size of word-cloud labels.
package measure

import (
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// TextMeasurer returns the width and height in pixels of text set at fontSize.
type TextMeasurer interface {
	Measure(text string, fontSize float64) (width, height float64)
}

// FontMeasurer measures text with an OpenType font at 72 DPI, so one point is
// one pixel. Sizes are rounded to the nearest FaceStep and faces are cached
// per rounded size. It is safe for concurrent use.
type FontMeasurer struct {
	font *opentype.Font

	mu    sync.Mutex
	faces map[float64]font.Face
}

// FaceStep is the font size granularity of FontMeasurer, in pixels.
const FaceStep = 0.5

// NewFontMeasurer parses ttf. A nil ttf selects the bundled Go Regular font.
func NewFontMeasurer(ttf []byte) (*FontMeasurer, error) {
	if ttf == nil {
		ttf = goregular.TTF
	}
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, eris.Wrap(err, "measure: parse font")
	}
	return &FontMeasurer{font: f, faces: make(map[float64]font.Face)}, nil
}

// Measure implements TextMeasurer. Width is the advance of the string and
// height is the face's line height, both rounded up to whole pixels. A size
// no face can be built for measures as zero.
func (m *FontMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	face, err := m.face(math.Round(fontSize/FaceStep) * FaceStep)
	if err != nil {
		zap.L().Error("measure: no face for label",
			zap.String("text", text), zap.Float64("font_size", fontSize), zap.Error(err))
		return 0, 0
	}
	w := font.MeasureString(face, text).Ceil()
	h := face.Metrics().Height.Ceil()
	return float64(w), float64(h)
}

// face must be called with mu held; opentype faces are not safe for
// concurrent use.
func (m *FontMeasurer) face(size float64) (font.Face, error) {
	if face, ok := m.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(m.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "measure: new face size %v", size)
	}
	m.faces[size] = face
	return face, nil
}

// FixedMeasurer assigns every rune the same width scaled by font size. It is
// deterministic and useful where font metrics are not wanted.
type FixedMeasurer struct {
	// CharWidth is the width of one rune as a fraction of the font size.
	CharWidth float64
	// LineHeight is the height of a line as a multiple of the font size.
	LineHeight float64
}

// Measure implements TextMeasurer.
func (m FixedMeasurer) Measure(text string, fontSize float64) (float64, float64) {
	n := float64(len([]rune(text)))
	return n * m.CharWidth * fontSize, m.LineHeight * fontSize
}
