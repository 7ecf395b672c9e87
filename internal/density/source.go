package density

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/mapviz/internal/tile"
)

// BinSource loads the raw bins of a tile. A nil slice with a nil error means
// the tile has no data.
type BinSource interface {
	Bins(ctx context.Context, c tile.Coord) ([]float64, error)
}

// HTTPSource fetches bins from {baseURL}/{z}/{x}/{y}.bins.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPSourceOptions configures an HTTPSource.
type HTTPSourceOptions struct {
	Timeout time.Duration
	// RateLimit caps upstream requests per second. Zero disables limiting.
	RateLimit float64
	Burst     int
}

// NewHTTPSource creates an HTTPSource for baseURL.
func NewHTTPSource(baseURL string, opts HTTPSourceOptions) *HTTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = int(opts.RateLimit)
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(burst, 1))
	}
	return &HTTPSource{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: limiter,
	}
}

// URL returns the upstream URL of a tile's bins.
func (s *HTTPSource) URL(c tile.Coord) string {
	return fmt.Sprintf("%s/%d/%d/%d.bins", s.baseURL, c.Z, c.X, c.Y)
}

// Bins implements BinSource. Any status other than 200, and any transport
// failure, is reported as a tile without data. Fetches are never retried.
func (s *HTTPSource) Bins(ctx context.Context, c tile.Coord) ([]float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "density: rate limiter wait")
	}

	url := s.URL(c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "density: create bins request")
	}
	req.Header.Set("User-Agent", "mapviz/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "density: fetch bins")
		}
		zap.L().Warn("density: bins fetch failed, treating tile as empty",
			zap.String("url", url), zap.Error(err))
		return nil, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("density: no bins for tile",
			zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "density: read bins body")
	}
	return DecodeBins(data)
}

// FileSource reads bins from {dir}/{z}/{x}/{y}.bins.
type FileSource struct {
	dir string
}

// NewFileSource creates a FileSource rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Path returns the file path of a tile's bins.
func (s *FileSource) Path(c tile.Coord) string {
	return filepath.Join(s.dir, strconv.Itoa(c.Z), strconv.Itoa(c.X), strconv.Itoa(c.Y)+".bins")
}

// Bins implements BinSource. A missing file is a tile without data.
func (s *FileSource) Bins(_ context.Context, c tile.Coord) ([]float64, error) {
	data, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "density: read bins %s", c)
	}
	return DecodeBins(data)
}

// NewSource returns an HTTPSource for http(s) locations and a FileSource otherwise.
func NewSource(location string, opts HTTPSourceOptions) BinSource {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, opts)
	}
	return NewFileSource(location)
}
