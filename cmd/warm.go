package main

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/layer"
	"github.com/sells-group/mapviz/internal/tile"
	"github.com/sells-group/mapviz/internal/wordcloud"
)

const (
	// maxWarmPasses bounds how often a word-cloud layer is re-rendered after
	// its extrema grow.
	maxWarmPasses = 5
	// maxWarmTiles bounds the tiles in one warm block.
	maxWarmTiles = 1 << 20
)

var warmCmd = &cobra.Command{
	Use:   "warm",
	Short: "Pre-render a block of tiles to disk",
	Long:  "Renders every tile of a zoom level (optionally limited to an x/y range) for each layer and writes them under {out}/{layer}/{z}/{x}/{y}.{png|html}.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("warm"); err != nil {
			return err
		}
		opts, err := warmOptionsFromFlags(cmd)
		if err != nil {
			return err
		}

		env, err := initApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := warmTiles(cmd.Context(), env, opts)
		if err != nil {
			return err
		}
		zap.L().Info("warm complete",
			zap.Int64("written", stats.Written),
			zap.Int64("empty", stats.Empty),
			zap.Int("passes", stats.Passes))
		return nil
	},
}

func init() {
	warmCmd.Flags().Int("zoom", 0, "zoom level to render")
	warmCmd.Flags().Int("x-min", 0, "first tile column")
	warmCmd.Flags().Int("x-max", -1, "last tile column (default last column of the zoom)")
	warmCmd.Flags().Int("y-min", 0, "first tile row")
	warmCmd.Flags().Int("y-max", -1, "last tile row (default last row of the zoom)")
	warmCmd.Flags().String("layer", "", "only warm this layer")
	warmCmd.Flags().String("out", "./warm", "output directory")
	warmCmd.Flags().Int("concurrency", 8, "tiles rendered in parallel")
	rootCmd.AddCommand(warmCmd)
}

type warmOptions struct {
	Zoom        int
	XMin, XMax  int
	YMin, YMax  int
	Layer       string
	Out         string
	Concurrency int
}

type warmStats struct {
	Written int64
	Empty   int64
	Passes  int
}

func warmOptionsFromFlags(cmd *cobra.Command) (warmOptions, error) {
	var o warmOptions
	o.Zoom, _ = cmd.Flags().GetInt("zoom")
	o.XMin, _ = cmd.Flags().GetInt("x-min")
	o.XMax, _ = cmd.Flags().GetInt("x-max")
	o.YMin, _ = cmd.Flags().GetInt("y-min")
	o.YMax, _ = cmd.Flags().GetInt("y-max")
	o.Layer, _ = cmd.Flags().GetString("layer")
	o.Out, _ = cmd.Flags().GetString("out")
	o.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	return o, o.normalize()
}

// normalize fills open-ended ranges and checks them against the zoom.
func (o *warmOptions) normalize() error {
	if o.Zoom < 0 || o.Zoom > tile.MaxZoom {
		return eris.Errorf("warm: zoom %d out of range [0, %d]", o.Zoom, tile.MaxZoom)
	}
	last := 1<<o.Zoom - 1
	if o.XMax < 0 {
		o.XMax = last
	}
	if o.YMax < 0 {
		o.YMax = last
	}
	if o.XMin < 0 || o.YMin < 0 || o.XMax > last || o.YMax > last || o.XMin > o.XMax || o.YMin > o.YMax {
		return eris.Errorf("warm: range x[%d,%d] y[%d,%d] invalid at zoom %d",
			o.XMin, o.XMax, o.YMin, o.YMax, o.Zoom)
	}
	if n := o.size(); n > maxWarmTiles {
		return eris.Errorf("warm: block of %d tiles at zoom %d exceeds %d, narrow it with --x-min/--x-max/--y-min/--y-max",
			n, o.Zoom, maxWarmTiles)
	}
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	return nil
}

// size is the number of tiles in the block.
func (o warmOptions) size() int64 {
	return int64(o.XMax-o.XMin+1) * int64(o.YMax-o.YMin+1)
}

// coords yields the block column by column.
func (o warmOptions) coords() iter.Seq[tile.Coord] {
	return func(yield func(tile.Coord) bool) {
		for x := o.XMin; x <= o.XMax; x++ {
			for y := o.YMin; y <= o.YMax; y++ {
				if !yield(tile.Coord{Z: o.Zoom, X: x, Y: y}) {
					return
				}
			}
		}
	}
}

// warmTiles renders the configured block for every matching layer.
func warmTiles(ctx context.Context, env *appEnv, o warmOptions) (warmStats, error) {
	var stats warmStats

	for _, e := range env.Registry.List() {
		lc := e.Config
		if o.Layer != "" && lc.Name != o.Layer {
			continue
		}
		if !lc.InZoom(o.Zoom) {
			zap.L().Debug("warm: zoom outside layer range", zap.String("layer", lc.Name), zap.Int("z", o.Zoom))
			continue
		}

		switch lc.Kind {
		case layer.KindDensity:
			r := env.Density[lc.Name]
			s, err := warmPass(ctx, o, func(ctx context.Context, c tile.Coord) ([]byte, error) {
				return r.Tile(ctx, c)
			}, tilePath(o.Out, lc.Name, "png"))
			stats.add(s, 1)
			if err != nil {
				return stats, err
			}

		case layer.KindWordCloud:
			s, passes, err := warmCloud(ctx, o, lc.Name, env.WordClouds[lc.Name])
			stats.add(s, passes)
			if err != nil {
				return stats, err
			}
		}
	}
	return stats, nil
}

// warmCloud repeats passes over the block until one completes without the
// layer's extrema growing, so every written tile shares one size scale.
func warmCloud(ctx context.Context, o warmOptions, name string, r *wordcloud.Renderer) (warmStats, int, error) {
	var rescaled atomic.Bool
	render := func(ctx context.Context, c tile.Coord) ([]byte, error) {
		fragment, err := r.Tile(ctx, c)
		if errors.Is(err, wordcloud.ErrRescale) {
			rescaled.Store(true)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []byte(fragment), nil
	}

	var last warmStats
	for pass := 1; pass <= maxWarmPasses; pass++ {
		rescaled.Store(false)
		s, err := warmPass(ctx, o, render, tilePath(o.Out, name, "html"))
		last = s
		if err != nil {
			return last, pass, err
		}
		if !rescaled.Load() {
			return last, pass, nil
		}
		zap.L().Info("warm: word-cloud extrema changed, re-rendering", zap.String("layer", name), zap.Int("pass", pass))
	}
	return last, maxWarmPasses, eris.Errorf("warm: layer %q did not settle after %d passes", name, maxWarmPasses)
}

// warmPass renders the block concurrently and writes non-empty tiles to path(c).
func warmPass(ctx context.Context, o warmOptions,
	render func(context.Context, tile.Coord) ([]byte, error), path func(tile.Coord) string) (warmStats, error) {
	var written, empty atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Concurrency)
	for c := range o.coords() {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := render(gctx, c)
			if errors.Is(err, density.ErrNoData) || (err == nil && len(data) == 0) {
				empty.Add(1)
				return nil
			}
			if err != nil {
				return eris.Wrapf(err, "warm: render %s", c)
			}
			p := path(c)
			if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
				return eris.Wrapf(err, "warm: create dir for %s", p)
			}
			if err := os.WriteFile(p, data, 0o644); err != nil {
				return eris.Wrapf(err, "warm: write %s", p)
			}
			written.Add(1)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return warmStats{Written: written.Load(), Empty: empty.Load()}, err
}

func tilePath(out, name, ext string) func(tile.Coord) string {
	return func(c tile.Coord) string {
		return filepath.Join(out, name, strconv.Itoa(c.Z), strconv.Itoa(c.X), strconv.Itoa(c.Y)+"."+ext)
	}
}

func (s *warmStats) add(o warmStats, passes int) {
	s.Written += o.Written
	s.Empty += o.Empty
	s.Passes += passes
}
