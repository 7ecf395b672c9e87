// Package terms supplies per-tile word counts for word-cloud layers.
package terms

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/tile"
)

// Source returns the word counts of a tile. An empty map means no words.
type Source interface {
	Counts(ctx context.Context, c tile.Coord) (map[string]int, error)
}

// MemorySource serves fixed counts. It is safe for concurrent use.
type MemorySource struct {
	mu     sync.RWMutex
	counts map[tile.Coord]map[string]int
}

// NewMemorySource creates a MemorySource seeded with counts.
func NewMemorySource(counts map[tile.Coord]map[string]int) *MemorySource {
	if counts == nil {
		counts = make(map[tile.Coord]map[string]int)
	}
	return &MemorySource{counts: counts}
}

// Set replaces the counts of c.
func (s *MemorySource) Set(c tile.Coord, counts map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[c] = counts
}

// Counts implements Source.
func (s *MemorySource) Counts(_ context.Context, c tile.Coord) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.counts[c]))
	for k, v := range s.counts[c] {
		out[k] = v
	}
	return out, nil
}

// JSONSource reads {dir}/{z}/{x}/{y}.json files holding {"word": count}.
type JSONSource struct {
	dir string
}

// NewJSONSource creates a JSONSource rooted at dir.
func NewJSONSource(dir string) *JSONSource {
	return &JSONSource{dir: dir}
}

// Path returns the file holding the counts of c.
func (s *JSONSource) Path(c tile.Coord) string {
	return filepath.Join(s.dir, strconv.Itoa(c.Z), strconv.Itoa(c.X), strconv.Itoa(c.Y)+".json")
}

// Counts implements Source. A missing file is a tile without words.
func (s *JSONSource) Counts(_ context.Context, c tile.Coord) (map[string]int, error) {
	counts, err := readCounts(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]int{}, nil
	}
	return counts, err
}

// Walk calls fn for every tile file under the source directory.
func (s *JSONSource) Walk(ctx context.Context, fn func(c tile.Coord, counts map[string]int) error) error {
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		c, ok := s.coordOf(path)
		if !ok {
			return nil
		}
		counts, err := readCounts(path)
		if err != nil {
			return err
		}
		return fn(c, counts)
	})
}

func (s *JSONSource) coordOf(path string) (tile.Coord, bool) {
	rel, err := filepath.Rel(s.dir, path)
	if err != nil {
		return tile.Coord{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return tile.Coord{}, false
	}
	c, err := tile.ParseCoord(parts[0], parts[1], parts[2])
	if err != nil {
		return tile.Coord{}, false
	}
	return c, true
}

func readCounts(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "terms: read %s", path)
	}
	counts := make(map[string]int)
	if err := json.Unmarshal(data, &counts); err != nil {
		return nil, eris.Wrapf(err, "terms: decode %s", path)
	}
	return counts, nil
}
