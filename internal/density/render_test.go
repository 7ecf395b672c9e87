package density

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/tile"
)

func TestRenderInto_OverwritesInPlace(t *testing.T) {
	dst := []uint8{9, 9, 9, 9, 9, 9, 9, 9, 7, 7, 7, 7}
	RenderInto(dst, []float64{0, 100}, extrema.Extrema{Min: 1, Max: 100})

	assert.Equal(t, []uint8{255, 255, 255, 0}, dst[0:4])
	assert.Equal(t, []uint8{255, 255, 50, 255}, dst[4:8])
	// No bin for the third pixel, so it is left alone.
	assert.Equal(t, []uint8{7, 7, 7, 7}, dst[8:12])
}

func TestRenderInto_IgnoresExtraBins(t *testing.T) {
	dst := make([]uint8, 4)
	assert.NotPanics(t, func() {
		RenderInto(dst, []float64{1, 2, 3}, extrema.Extrema{Min: 1, Max: 3})
	})
	assert.Equal(t, []uint8{150, 0, 0, 150}, dst)
}

func TestRender_RowMajor(t *testing.T) {
	bins := make([]float64, tile.Size*tile.Size)
	// Pixel (x=3, y=2).
	bins[2*tile.Size+3] = 100

	img := Render(bins, extrema.Extrema{Min: 1, Max: 100})
	assert.Equal(t, tile.Size, img.Bounds().Dx())
	assert.Equal(t, tile.Size, img.Bounds().Dy())

	px := img.NRGBAAt(3, 2)
	assert.Equal(t, uint8(255), px.A)
	assert.Equal(t, uint8(50), px.B)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
}

func TestEncodePNG(t *testing.T) {
	bins := make([]float64, tile.Size*tile.Size)
	bins[0] = 10
	img := Render(bins, extrema.Extrema{Min: 1, Max: 100})

	data, err := EncodePNG(img)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	r, _, _, a := decoded.At(0, 0).RGBA()
	assert.NotZero(t, r)
	assert.NotZero(t, a)
}
