package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/config"
	"github.com/sells-group/mapviz/internal/db"
	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/extrema"
	"github.com/sells-group/mapviz/internal/layer"
	"github.com/sells-group/mapviz/internal/measure"
	"github.com/sells-group/mapviz/internal/terms"
	"github.com/sells-group/mapviz/internal/wordcloud"
)

// appEnv holds the layers and renderers built from config.
type appEnv struct {
	Registry   *layer.Registry
	Density    map[string]*density.Renderer
	WordClouds map[string]*wordcloud.Renderer

	closers []func()
}

// Close releases the terms backend.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// initApp loads the layer catalogue and builds a renderer per layer.
func initApp(ctx context.Context, cfg *config.Config) (*appEnv, error) {
	configs, err := loadLayers(cfg.Layers.File)
	if err != nil {
		return nil, err
	}
	reg, err := layer.NewRegistry(configs)
	if err != nil {
		return nil, err
	}

	env := &appEnv{
		Registry:   reg,
		Density:    make(map[string]*density.Renderer),
		WordClouds: make(map[string]*wordcloud.Renderer),
	}

	var (
		source   wordcloud.Source
		measurer measure.TextMeasurer
	)
	for _, e := range reg.List() {
		switch e.Config.Kind {
		case layer.KindDensity:
			r, err := newDensityRenderer(ctx, cfg, e.Config)
			if err != nil {
				env.Close()
				return nil, err
			}
			env.Density[e.Config.Name] = r

		case layer.KindWordCloud:
			if source == nil {
				if source, err = openTerms(ctx, cfg, env); err != nil {
					env.Close()
					return nil, err
				}
				if measurer, err = newMeasurer(cfg.WordCloud.FontFile); err != nil {
					env.Close()
					return nil, err
				}
			}
			fnName := e.Config.SizeFunction
			if fnName == "" {
				fnName = cfg.WordCloud.SizeFunction
			}
			fn, err := wordcloud.ParseSizeFunction(fnName)
			if err != nil {
				env.Close()
				return nil, err
			}
			l := wordcloud.NewLayer(wordcloud.LayerOptions{
				Name:         e.Config.Name,
				SizeFunction: fn,
				Measurer:     measurer,
			})
			env.WordClouds[e.Config.Name] = wordcloud.NewRenderer(l, source)
		}
	}
	return env, nil
}

// loadLayers reads the layer catalogue, falling back to the default layers
// when the file does not exist.
func loadLayers(path string) ([]layer.Config, error) {
	if path == "" {
		return layer.DefaultLayers(), nil
	}
	configs, err := layer.LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		zap.L().Info("layer catalogue not found, using default layers", zap.String("file", path))
		return layer.DefaultLayers(), nil
	}
	return configs, err
}

func newDensityRenderer(ctx context.Context, cfg *config.Config, lc layer.Config) (*density.Renderer, error) {
	binsURL := lc.BinsURL
	if binsURL == "" {
		binsURL = cfg.Density.BaseURL
	}
	metaURL := lc.MetaURL
	if metaURL == "" {
		metaURL = cfg.Density.MetaURL
	}

	meta, err := extrema.LoadMeta(ctx, &http.Client{Timeout: cfg.Density.Timeout}, metaURL)
	if err != nil {
		zap.L().Warn("density: meta unavailable, tiles will use their own extrema",
			zap.String("layer", lc.Name), zap.String("meta_url", metaURL), zap.Error(err))
		meta = extrema.Meta{}
	}

	source := density.NewSource(binsURL, density.HTTPSourceOptions{
		Timeout:   cfg.Density.Timeout,
		RateLimit: cfg.Density.RateLimit,
	})
	zap.L().Info("density layer ready",
		zap.String("layer", lc.Name), zap.String("bins", binsURL), zap.Int("zooms", len(meta)))
	return density.NewRenderer(source, meta), nil
}

// openTerms opens the configured word-count backend and registers its
// cleanup on env.
func openTerms(ctx context.Context, cfg *config.Config, env *appEnv) (wordcloud.Source, error) {
	tc := cfg.Terms
	switch tc.Driver {
	case "", "json":
		return terms.NewJSONSource(tc.Dir), nil

	case "sqlite":
		st, err := terms.NewSQLite(tc.SQLitePath)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, func() { _ = st.Close() })
		if err := st.Migrate(ctx); err != nil {
			return nil, err
		}
		return st, nil

	case "postgres":
		pool, err := db.Connect(ctx, tc.DatabaseURL)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, pool.Close)
		return terms.NewPostgresSource(pool, terms.PostgresConfig{
			Table:       tc.Table,
			TermsColumn: tc.TermsColumn,
			GeomColumn:  tc.GeomColumn,
			Limit:       tc.Limit,
			Terms:       tc.Targets,
		})
	}
	return nil, eris.Errorf("terms: unknown driver %q", tc.Driver)
}

func newMeasurer(fontFile string) (measure.TextMeasurer, error) {
	if fontFile == "" {
		return measure.NewFontMeasurer(nil)
	}
	ttf, err := os.ReadFile(fontFile)
	if err != nil {
		return nil, eris.Wrapf(err, "measure: read font %s", fontFile)
	}
	return measure.NewFontMeasurer(ttf)
}
