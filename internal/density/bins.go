package density

import (
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
)

// BinSize is the encoded size of one bin: a little-endian IEEE-754 float64.
const BinSize = 8

// DecodeBins decodes a .bins payload into one value per pixel, row-major.
func DecodeBins(data []byte) ([]float64, error) {
	if len(data)%BinSize != 0 {
		return nil, eris.Errorf("density: bins payload of %d bytes is not a multiple of %d", len(data), BinSize)
	}
	bins := make([]float64, len(data)/BinSize)
	for i := range bins {
		bins[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*BinSize:]))
	}
	return bins, nil
}

// EncodeBins is the inverse of DecodeBins.
func EncodeBins(bins []float64) []byte {
	data := make([]byte, len(bins)*BinSize)
	for i, v := range bins {
		binary.LittleEndian.PutUint64(data[i*BinSize:], math.Float64bits(v))
	}
	return data
}
