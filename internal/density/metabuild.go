package density

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/mapviz/internal/extrema"
)

// BuildMeta scans a {dir}/{z}/{x}/{y}.bins tree and returns, per zoom, the
// extrema of all non-zero bins. Zoom directories are scanned concurrently,
// at most concurrency at a time.
func BuildMeta(ctx context.Context, dir string, concurrency int) (extrema.Meta, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "density: read tile dir %s", dir)
	}

	var (
		mu   sync.Mutex
		meta = make(extrema.Meta)
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for _, e := range entries {
		z, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		zdir := filepath.Join(dir, e.Name())
		g.Go(func() error {
			ext, ok, err := scanZoom(ctx, zdir)
			if err != nil || !ok {
				return err
			}
			mu.Lock()
			meta[z] = ext
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return meta, nil
}

func scanZoom(ctx context.Context, zdir string) (extrema.Extrema, bool, error) {
	var (
		acc   extrema.Extrema
		found bool
	)
	err := filepath.WalkDir(zdir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !strings.HasSuffix(path, ".bins") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		bins, err := DecodeBins(data)
		if err != nil {
			return eris.Wrapf(err, "density: decode %s", path)
		}
		ext, ok := extrema.Of(nonZero(bins))
		if !ok {
			return nil
		}
		if !found {
			acc, found = ext, true
		} else {
			acc = acc.Union(ext)
		}
		return nil
	})
	if err != nil {
		return extrema.Extrema{}, false, eris.Wrapf(err, "density: scan %s", zdir)
	}
	return acc, found, nil
}
