// Package layer holds the catalogue of map layers and their visibility.
package layer

import (
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// ErrUnknownLayer is returned for a layer name not in the registry.
var ErrUnknownLayer = eris.New("layer: unknown layer")

// Kind is the rendering kind of a layer.
type Kind string

const (
	KindDensity   Kind = "density"
	KindWordCloud Kind = "wordcloud"
)

// Config describes one layer.
type Config struct {
	Name    string `yaml:"name" json:"name"`
	Label   string `yaml:"label" json:"label"`
	Kind    Kind   `yaml:"kind" json:"kind"`
	MinZoom int    `yaml:"min_zoom" json:"min_zoom"`
	MaxZoom int    `yaml:"max_zoom" json:"max_zoom"`
	Hidden  bool   `yaml:"hidden" json:"hidden"`

	// Density layers. Empty values fall back to the density config.
	BinsURL string `yaml:"bins_url,omitempty" json:"-"`
	MetaURL string `yaml:"meta_url,omitempty" json:"-"`

	// Word-cloud layers. Empty falls back to the wordcloud config.
	SizeFunction string `yaml:"size_function,omitempty" json:"size_function,omitempty"`
}

// InZoom reports whether z is within the layer's zoom range.
func (c Config) InZoom(z int) bool {
	return z >= c.MinZoom && z <= c.MaxZoom
}

func (c Config) validate() error {
	if c.Name == "" {
		return eris.New("layer: missing name")
	}
	switch c.Kind {
	case KindDensity, KindWordCloud:
	default:
		return eris.Errorf("layer: %s has unknown kind %q", c.Name, c.Kind)
	}
	if c.MinZoom < 0 || c.MaxZoom < c.MinZoom {
		return eris.Errorf("layer: %s has invalid zoom range [%d,%d]", c.Name, c.MinZoom, c.MaxZoom)
	}
	return nil
}

// DefaultLayers returns the pickups density layer and the topics word-cloud layer.
func DefaultLayers() []Config {
	return []Config{
		{Name: "pickups", Label: "Pickups", Kind: KindDensity, MinZoom: 0, MaxZoom: 18},
		{Name: "topics", Label: "Topics", Kind: KindWordCloud, MinZoom: 0, MaxZoom: 18},
	}
}

// LoadFile reads layer configs from a YAML file with a top-level "layers" list.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "layer: read config %s", path)
	}
	var wrapper struct {
		Layers []Config `yaml:"layers"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "layer: parse config")
	}
	for i := range wrapper.Layers {
		if wrapper.Layers[i].Label == "" {
			wrapper.Layers[i].Label = wrapper.Layers[i].Name
		}
	}
	return wrapper.Layers, nil
}

// State is the shown/hidden state of a layer. It is safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	hidden bool
}

// NewState creates a State.
func NewState(hidden bool) *State {
	return &State{hidden: hidden}
}

// IsHidden reports whether the layer is hidden.
func (s *State) IsHidden() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hidden
}

// Show makes the layer visible.
func (s *State) Show() {
	s.mu.Lock()
	s.hidden = false
	s.mu.Unlock()
}

// Hide hides the layer.
func (s *State) Hide() {
	s.mu.Lock()
	s.hidden = true
	s.mu.Unlock()
}

// Entry is a registered layer.
type Entry struct {
	Config Config
	State  *State
}

// Registry is an ordered set of layers.
type Registry struct {
	order  []*Entry
	byName map[string]*Entry
}

// NewRegistry validates configs and registers them in order.
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Entry, len(configs))}
	for _, cfg := range configs {
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byName[cfg.Name]; dup {
			return nil, eris.Errorf("layer: duplicate layer %q", cfg.Name)
		}
		e := &Entry{Config: cfg, State: NewState(cfg.Hidden)}
		r.order = append(r.order, e)
		r.byName[cfg.Name] = e
	}
	return r, nil
}

// Get returns the named layer or ErrUnknownLayer.
func (r *Registry) Get(name string) (*Entry, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, eris.Wrapf(ErrUnknownLayer, "%q", name)
	}
	return e, nil
}

// List returns the layers in registration order.
func (r *Registry) List() []*Entry {
	return append([]*Entry(nil), r.order...)
}

// Visible reports whether the named layer exists and is shown.
func (r *Registry) Visible(name string) bool {
	e, ok := r.byName[name]
	return ok && !e.State.IsHidden()
}
