package extrema

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/mapviz/internal/resilience"
)

// MetaFile is the name of the layer metadata document.
const MetaFile = "meta.json"

// Meta maps a zoom level to the extrema of all tiles at that zoom. It encodes
// as {"11": {"min": 1, "max": 4096}, ...}.
type Meta map[int]Extrema

// At returns the extrema for zoom z.
func (m Meta) At(z int) (Extrema, bool) {
	ext, ok := m[z]
	return ext, ok
}

// ParseMeta decodes a meta.json document.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "extrema: parse meta")
	}
	return m, nil
}

// LoadMeta loads meta.json from src. An http(s) src is fetched as
// <src>/meta.json and retried on transient failures; anything else is treated
// as a directory on disk.
func LoadMeta(ctx context.Context, client *http.Client, src string) (Meta, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(filepath.Join(src, MetaFile))
		if err != nil {
			return nil, eris.Wrapf(err, "extrema: read %s", src)
		}
		return ParseMeta(data)
	}

	if client == nil {
		client = http.DefaultClient
	}
	url := strings.TrimSuffix(src, "/") + "/" + MetaFile

	data, err := resilience.Retry(ctx, resilience.DefaultBackoff("load meta"), func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrap(err, "extrema: create meta request")
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "extrema: fetch meta")
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{URL: url, StatusCode: resp.StatusCode}
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "extrema: load %s", url)
	}
	return ParseMeta(data)
}
