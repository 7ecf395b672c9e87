package density

import (
	"bytes"
	"image"
	"image/png"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/tile"
)

// RenderInto writes the colour of each bin into dst as 4 bytes (RGBA) per bin,
// overwriting what was there. Bins beyond the end of dst are ignored and pixels
// without a bin are left untouched.
func RenderInto(dst []uint8, bins []float64, ext extrema.Extrema) {
	for i, bin := range bins {
		off := i * 4
		if off+3 >= len(dst) {
			return
		}
		px := InterpolateColor(bin, ext.Min, ext.Max).NRGBA()
		dst[off] = px.R
		dst[off+1] = px.G
		dst[off+2] = px.B
		dst[off+3] = px.A
	}
}

// Render draws bins into a new transparent tile-sized image.
func Render(bins []float64, ext extrema.Extrema) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, tile.Size, tile.Size))
	RenderInto(img.Pix, bins, ext)
	return img
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "density: encode png")
	}
	return buf.Bytes(), nil
}
