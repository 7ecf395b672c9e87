// Package server exposes density tiles, word-cloud tiles, layer metadata and
// layer menus over HTTP.
package server

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/layer"
	"github.com/sells-group/mapviz/internal/menu"
	"github.com/sells-group/mapviz/internal/tile"
	"github.com/sells-group/mapviz/internal/wordcloud"
)

// Options configures a Server.
type Options struct {
	Registry   *layer.Registry
	Density    map[string]*density.Renderer
	WordClouds map[string]*wordcloud.Renderer
	// Cache may be nil to disable caching.
	Cache       *tile.Cache
	CORSOrigins []string
}

// Server serves the tiles and menus of a layer registry.
type Server struct {
	registry    *layer.Registry
	density     map[string]*density.Renderer
	clouds      map[string]*wordcloud.Renderer
	menus       map[string]*menu.Menu
	cache       *tile.Cache
	gens        map[string]*atomic.Uint64 // invalidations per layer
	group       tile.Group
	corsOrigins []string
}

// New creates a Server. Every registered layer must have a renderer of its
// kind; each gets a menu.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, eris.New("server: no layer registry")
	}
	s := &Server{
		registry:    opts.Registry,
		density:     opts.Density,
		clouds:      opts.WordClouds,
		menus:       make(map[string]*menu.Menu),
		cache:       opts.Cache,
		gens:        make(map[string]*atomic.Uint64),
		corsOrigins: opts.CORSOrigins,
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}

	for _, e := range opts.Registry.List() {
		name := e.Config.Name
		switch e.Config.Kind {
		case layer.KindDensity:
			if s.density[name] == nil {
				return nil, eris.Errorf("server: no density renderer for layer %q", name)
			}
		case layer.KindWordCloud:
			if s.clouds[name] == nil {
				return nil, eris.Errorf("server: no word-cloud renderer for layer %q", name)
			}
		}
		m, err := menu.New(menu.Options{Label: e.Config.Label, Layer: e.State})
		if err != nil {
			return nil, eris.Wrapf(err, "server: menu for layer %q", name)
		}
		s.menus[name] = m
		s.gens[name] = new(atomic.Uint64)
	}
	return s, nil
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"X-Cache", "X-Rescale"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Get("/layers", s.handleLayers)
	r.Get("/tiles/{layer}/{z}/{x}/{tile}", s.handleTile)
	r.Get("/meta/{layer}/meta.json", s.handleMeta)
	r.Get("/meta/{layer}/extrema", s.handleExtrema)
	r.Post("/wordcloud/{layer}/highlight", s.handleHighlight)
	r.Route("/menus/{layer}", func(r chi.Router) {
		r.Get("/", s.handleMenu)
		r.Post("/toggle", s.handleMenuToggle)
		r.Post("/minimize", s.handleMenuMinimize)
	})
	return r
}

// requestLogger logs each request at debug level.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("server: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// generation returns the invalidation count of layer name.
func (s *Server) generation(name string) uint64 {
	if g, ok := s.gens[name]; ok {
		return g.Load()
	}
	return 0
}

func (s *Server) invalidate(name string) {
	if g, ok := s.gens[name]; ok {
		g.Add(1)
	}
	if s.cache == nil {
		return
	}
	n := s.cache.Invalidate(name)
	zap.L().Debug("server: invalidated layer tiles", zap.String("layer", name), zap.Int("tiles", n))
}
