package wordcloud

import "math"

// bounds is the interior box words must stay within, centred on the tile.
var bounds = box{
	w: TileSize - HorizontalOffset*2,
	h: TileSize - VerticalOffset*2,
}

type box struct {
	x, y, w, h float64
}

// intersects reports whether a and b overlap.
func (a box) intersects(b box) bool {
	return math.Abs(a.x-b.x)*2 < a.w+b.w && math.Abs(a.y-b.y)*2 < a.h+b.h
}

// escapes reports whether a is not fully contained in b.
func (a box) escapes(b box) bool {
	return a.x+a.w/2 > b.x+b.w/2 ||
		a.x-a.w/2 < b.x-b.w/2 ||
		a.y+a.h/2 > b.y+b.h/2 ||
		a.y-a.h/2 < b.y-b.h/2
}

func (w PlacedWord) box() box {
	return box{x: w.X, y: w.Y, w: w.Width, h: w.Height}
}

// spiral is the placement cursor of one word.
type spiral struct {
	radius     float64
	radiusInc  float64
	arcLength  float64
	x, y, t    float64
	collisions int
}

func newSpiral() *spiral {
	return &spiral{radius: 1, radiusInc: 5, arcLength: 10}
}

// next advances the cursor along an Archimedean spiral. The step is the arc
// length capped at a tenth of the current circumference; each full turn grows
// the radius.
func (s *spiral) next() {
	circ := 2 * math.Pi * s.radius
	inc := math.Min(s.arcLength, circ/10)
	t := s.t + inc/s.radius
	if t > 2*math.Pi {
		t = math.Mod(t, 2*math.Pi)
		s.radius += s.radiusInc
	}
	s.t = t
	s.x = s.radius * math.Cos(t)
	s.y = s.radius * math.Sin(t)
}

// collides tests the cursor position for word against the cloud and the
// bounds. Only a boundary violation counts as a collision; it also lengthens
// the arc to the current radius.
func (s *spiral) collides(word MeasuredWord, cloud []PlacedWord) bool {
	b := box{x: s.x, y: s.y, w: word.Width, h: word.Height}
	for _, placed := range cloud {
		if b.intersects(placed.box()) {
			return true
		}
	}
	if b.escapes(bounds) {
		s.collisions++
		s.arcLength = s.radius
		return true
	}
	return false
}

// Layout places words in order. A word that violates the bounds NumAttempts
// times before finding a free spot is dropped.
func Layout(words []MeasuredWord) []PlacedWord {
	cloud := make([]PlacedWord, 0, len(words))
	for _, word := range words {
		pos := newSpiral()
		for pos.collisions < NumAttempts {
			pos.next()
			if !pos.collides(word, cloud) {
				cloud = append(cloud, PlacedWord{MeasuredWord: word, X: pos.x, Y: pos.y})
				break
			}
		}
	}
	return cloud
}
