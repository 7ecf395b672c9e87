// Package extrema tracks running minimum and maximum values used to normalize
// colour and size scales consistently across the tiles of a layer.
package extrema

import (
	"math"
	"sync"
)

// Extrema is the minimum and maximum of a data series.
type Extrema struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Of returns the extrema of values. ok is false when values is empty.
func Of(values []float64) (ext Extrema, ok bool) {
	if len(values) == 0 {
		return Extrema{}, false
	}
	ext = Extrema{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		ext.Min = math.Min(ext.Min, v)
		ext.Max = math.Max(ext.Max, v)
	}
	return ext, true
}

// OfCounts returns the extrema of the counts in a word-count map.
func OfCounts(counts map[string]int) (Extrema, bool) {
	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		values = append(values, float64(c))
	}
	return Of(values)
}

// Union returns the smallest range covering both e and o.
func (e Extrema) Union(o Extrema) Extrema {
	return Extrema{Min: math.Min(e.Min, o.Min), Max: math.Max(e.Max, o.Max)}
}

// Contains reports whether o lies within e.
func (e Extrema) Contains(o Extrema) bool {
	return o.Min >= e.Min && o.Max <= e.Max
}

// Tracker holds the running extrema of one layer. It is safe for concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	ext   Extrema
	valid bool
}

// Update widens the tracked range to include local. It returns true when an
// existing range changed, in which case tiles already rendered against the
// previous range are stale. The first call creates the range and returns false.
func (t *Tracker) Update(local Extrema) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.valid {
		t.ext = local
		t.valid = true
		return false
	}
	if t.ext.Contains(local) {
		return false
	}
	t.ext = t.ext.Union(local)
	return true
}

// Get returns the tracked extrema. ok is false before the first Update.
func (t *Tracker) Get() (ext Extrema, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ext, t.valid
}

// Reset forgets the tracked range.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ext = Extrema{}
	t.valid = false
}
