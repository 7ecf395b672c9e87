package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/mapviz/internal/density"
	"github.com/sells-group/mapviz/internal/layer"
	"github.com/sells-group/mapviz/internal/menu"
	"github.com/sells-group/mapviz/internal/tile"
	"github.com/sells-group/mapviz/internal/wordcloud"
)

const (
	contentTypePNG  = "image/png"
	contentTypeHTML = "text/html; charset=utf-8"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStats returns cache statistics as plain text.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		_, _ = w.Write([]byte("cache disabled"))
		return
	}
	stats := s.cache.Stats()
	_, _ = fmt.Fprintf(w, "entries=%d max=%d hits=%d misses=%d rate=%.2f%%\n",
		stats.Entries, stats.MaxEntries, stats.Hits, stats.Misses, stats.HitRate*100)
}

type layerView struct {
	layer.Config
	Visible bool `json:"visible"`
}

func (s *Server) handleLayers(w http.ResponseWriter, _ *http.Request) {
	entries := s.registry.List()
	out := make([]layerView, 0, len(entries))
	for _, e := range entries {
		out = append(out, layerView{Config: e.Config, Visible: !e.State.IsHidden()})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleTile serves /tiles/{layer}/{z}/{x}/{y}.png for density layers and
// /tiles/{layer}/{z}/{x}/{y}.html for word-cloud layers.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "layer")
	entry, err := s.registry.Get(name)
	if err != nil {
		http.Error(w, "unknown layer", http.StatusNotFound)
		return
	}

	file := chi.URLParam(r, "tile")
	c, err := tile.ParseCoord(chi.URLParam(r, "z"), chi.URLParam(r, "x"), file)
	if err != nil {
		http.Error(w, "invalid tile coordinate", http.StatusBadRequest)
		return
	}

	var (
		kind        layer.Kind
		contentType string
	)
	switch path.Ext(file) {
	case ".png":
		kind, contentType = layer.KindDensity, contentTypePNG
	case ".html":
		kind, contentType = layer.KindWordCloud, contentTypeHTML
	}
	if kind != entry.Config.Kind {
		http.Error(w, "unsupported tile format for layer", http.StatusNotFound)
		return
	}

	// Check zoom bounds and visibility.
	if !entry.Config.InZoom(c.Z) || entry.State.IsHidden() {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Check cache.
	if s.cache != nil {
		if cached := s.cache.Get(name, c); cached != nil {
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("X-Cache", "hit")
			_, _ = w.Write(cached)
			return
		}
	}

	gen := s.generation(name)
	key := tile.Key(name, c) + "#" + strconv.FormatUint(gen, 10)
	data, _, err := s.group.Do(r.Context(), key, func(ctx context.Context) ([]byte, error) {
		data, err := s.render(ctx, entry.Config, c)
		if err == nil && len(data) > 0 && s.cache != nil && s.generation(name) == gen {
			s.cache.Put(name, c, data)
		}
		return data, err
	})
	switch {
	case errors.Is(err, density.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case errors.Is(err, wordcloud.ErrRescale):
		s.invalidate(name)
		w.Header().Set("X-Rescale", "true")
		http.Error(w, "layer rescaled, reload tiles", http.StatusConflict)
		return
	case err != nil && r.Context().Err() != nil:
		return
	case err != nil:
		zap.L().Error("server: tile generation failed",
			zap.String("layer", name),
			zap.Int("z", c.Z), zap.Int("x", c.X), zap.Int("y", c.Y),
			zap.Error(err),
		)
		http.Error(w, "tile generation failed", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", "miss")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(data)
}

func (s *Server) render(ctx context.Context, cfg layer.Config, c tile.Coord) ([]byte, error) {
	if cfg.Kind == layer.KindDensity {
		return s.density[cfg.Name].Tile(ctx, c)
	}
	fragment, err := s.clouds[cfg.Name].Tile(ctx, c)
	return []byte(fragment), err
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	renderer, ok := s.density[chi.URLParam(r, "layer")]
	if !ok {
		http.Error(w, "unknown density layer", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, renderer.Meta())
}

func (s *Server) handleExtrema(w http.ResponseWriter, r *http.Request) {
	renderer, ok := s.clouds[chi.URLParam(r, "layer")]
	if !ok {
		http.Error(w, "unknown word-cloud layer", http.StatusNotFound)
		return
	}
	ext, ok := renderer.Layer().Extrema()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, ext)
}

type highlightRequest struct {
	Word string `json:"word"`
}

// handleHighlight sets or, with an empty word, clears the highlighted word.
// Cached fragments carry the old highlight and are dropped.
func (s *Server) handleHighlight(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "layer")
	renderer, ok := s.clouds[name]
	if !ok {
		http.Error(w, "unknown word-cloud layer", http.StatusNotFound)
		return
	}
	var req highlightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	renderer.Layer().Highlight(req.Word)
	s.invalidate(name)
	writeJSON(w, http.StatusOK, map[string]string{"layer": name, "highlight": req.Word})
}

func (s *Server) lookupMenu(w http.ResponseWriter, r *http.Request) (*menu.Menu, bool) {
	m, ok := s.menus[chi.URLParam(r, "layer")]
	if !ok {
		http.Error(w, "unknown layer", http.StatusNotFound)
	}
	return m, ok
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	if m, ok := s.lookupMenu(w, r); ok {
		writeJSON(w, http.StatusOK, m.View())
	}
}

func (s *Server) handleMenuToggle(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupMenu(w, r)
	if !ok {
		return
	}
	m.ToggleEnabled()
	zap.L().Info("server: layer toggled",
		zap.String("layer", chi.URLParam(r, "layer")), zap.Bool("enabled", m.View().Enabled))
	writeJSON(w, http.StatusOK, m.View())
}

type minimizeRequest struct {
	BodyHeight *float64 `json:"body_height"`
}

// handleMenuMinimize toggles the minimized state. The body may report the
// current body height so a later maximize can restore it.
func (s *Server) handleMenuMinimize(w http.ResponseWriter, r *http.Request) {
	m, ok := s.lookupMenu(w, r)
	if !ok {
		return
	}
	var req minimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.BodyHeight != nil {
		m.SetBodyHeight(*req.BodyHeight)
	}
	m.ToggleMinimized()
	writeJSON(w, http.StatusOK, m.View())
}
