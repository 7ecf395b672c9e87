// Package tile provides tile addressing, caching, and request coalescing
// shared by the density and word-cloud layers.
package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

const (
	// Size is the width and height of a tile in logical pixels.
	Size = 256
	// HalfSize is half of Size; word positions are relative to the tile center.
	HalfSize = Size / 2
	// MaxZoom is the deepest zoom level accepted by ParseCoord.
	MaxZoom = 24
)

// ErrInvalidCoord is returned when a tile coordinate is malformed or out of range.
var ErrInvalidCoord = eris.New("tile: invalid coordinate")

// Coord addresses a single tile by zoom, column, and row.
type Coord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

// String returns the z/x/y form of the coordinate.
func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// ParseCoord parses z, x and y path segments. A trailing extension on y
// (e.g. "12.png") is stripped before parsing.
func ParseCoord(z, x, y string) (Coord, error) {
	if i := strings.IndexByte(y, '.'); i >= 0 {
		y = y[:i]
	}
	zi, err := strconv.Atoi(z)
	if err != nil {
		return Coord{}, eris.Wrapf(ErrInvalidCoord, "z %q", z)
	}
	xi, err := strconv.Atoi(x)
	if err != nil {
		return Coord{}, eris.Wrapf(ErrInvalidCoord, "x %q", x)
	}
	yi, err := strconv.Atoi(y)
	if err != nil {
		return Coord{}, eris.Wrapf(ErrInvalidCoord, "y %q", y)
	}
	c := Coord{Z: zi, X: xi, Y: yi}
	if err := c.Validate(); err != nil {
		return Coord{}, err
	}
	return c, nil
}

// Validate reports whether the coordinate names a tile that exists at its zoom.
func (c Coord) Validate() error {
	if c.Z < 0 || c.Z > MaxZoom || c.X < 0 || c.Y < 0 {
		return eris.Wrapf(ErrInvalidCoord, "%s", c)
	}
	// Checked before the uint32 conversion in maptile so large values cannot wrap.
	if n := 1 << c.Z; c.X >= n || c.Y >= n {
		return eris.Wrapf(ErrInvalidCoord, "%s out of range", c)
	}
	if !c.maptile().Valid() {
		return eris.Wrapf(ErrInvalidCoord, "%s out of range", c)
	}
	return nil
}

func (c Coord) maptile() maptile.Tile {
	return maptile.New(uint32(c.X), uint32(c.Y), maptile.Zoom(c.Z))
}

// Bound returns the lon/lat bound of the tile.
func (c Coord) Bound() orb.Bound {
	return c.maptile().Bound()
}

// Envelope returns the tile bound as a closed WGS84 polygon.
func (c Coord) Envelope() *geom.Polygon {
	b := c.Bound()
	minX, minY := b.Min.Lon(), b.Min.Lat()
	maxX, maxY := b.Max.Lon(), b.Max.Lat()
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{minX, minY},
		{maxX, minY},
		{maxX, maxY},
		{minX, maxY},
		{minX, minY},
	}}).SetSRID(4326)
}

// EnvelopeEWKB returns the tile envelope encoded as little-endian EWKB, suitable
// for ST_GeomFromEWKB.
func (c Coord) EnvelopeEWKB() ([]byte, error) {
	data, err := ewkb.Marshal(c.Envelope(), ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tile: encode envelope")
	}
	return data, nil
}

// Key builds the cache key for a tile in a layer.
func Key(layer string, c Coord) string {
	return layer + "/" + c.String()
}
