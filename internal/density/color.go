// Package density renders density heatmap tiles: flat arrays of per-pixel bin
// counts mapped through a logarithmic colour ramp into RGBA images.
package density

import (
	"image/color"
	"math"
)

// Color is an RGBA colour with unbounded float channels. Interpolated values
// may fall outside [0,255] and are only clamped when written to a pixel.
type Color struct {
	R, G, B, A float64
}

var (
	// FromColor is the colour of the lowest non-zero bins: dark red, semi-transparent.
	FromColor = Color{R: 150, G: 0, B: 0, A: 150}
	// ToColor is the colour of the highest bins: bright yellow, opaque.
	ToColor = Color{R: 255, G: 255, B: 50, A: 255}
	// NoData is written for zero-valued bins.
	NoData = Color{R: 255, G: 255, B: 255, A: 0}
)

// LogTransform maps a bin value to a blend factor between FromColor and
// ToColor. The logarithm is taken of (value - logMin), not of value.
func LogTransform(value, min, max float64) float64 {
	logMin := math.Log(math.Max(1, min))
	logMax := math.Log(math.Max(1, max))
	oneOverLogRange := 1 / (logMax - logMin)
	return math.Log(value-logMin) * oneOverLogRange
}

// InterpolateColor returns the colour for a bin value given the layer's
// extrema. Zero is the no-data sentinel. The blend factor is not clamped.
func InterpolateColor(value, min, max float64) Color {
	if value == 0 {
		return NoData
	}
	alpha := LogTransform(value, min, max)
	return Color{
		R: ToColor.R*alpha + FromColor.R*(1-alpha),
		G: ToColor.G*alpha + FromColor.G*(1-alpha),
		B: ToColor.B*alpha + FromColor.B*(1-alpha),
		A: ToColor.A*alpha + FromColor.A*(1-alpha),
	}
}

// ToByte stores a channel value the way a canvas pixel buffer does: NaN
// becomes 0, values are clamped to [0,255] and rounded half to even.
func ToByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.RoundToEven(v))
}

// NRGBA converts c to a non-premultiplied pixel.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: ToByte(c.R), G: ToByte(c.G), B: ToByte(c.B), A: ToByte(c.A)}
}
