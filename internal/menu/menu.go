// Package menu is the view model of the layer menu: a toggle that shows or
// hides a layer and a title that minimizes or maximizes the menu body.
package menu

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultLabel is used when a menu is created without a label.
const DefaultLabel = "missing-layer-name"

// Icon and class names rendered by the host.
const (
	IconEnabled   = "fa-check-square-o"
	IconDisabled  = "fa-square-o"
	IconMinimize  = "fa-minus"
	IconMaximize  = "fa-plus"
	BodyClass     = "layer-control-body"
	DisabledClass = "disabled"
)

// ErrMissingLayer is returned by New when Options has no layer.
var ErrMissingLayer = eris.New("menu: LayerMenu constructor must be passed a layer")

// Layer is the capability a menu controls.
type Layer interface {
	IsHidden() bool
	Show()
	Hide()
}

// Options configures a Menu.
type Options struct {
	Label string
	Layer Layer
}

// Menu is the menu of one layer. It is safe for concurrent use.
type Menu struct {
	id    string
	label string
	layer Layer

	mu             sync.Mutex
	minimized      bool
	bodyHeight     float64
	originalHeight *float64
}

// New creates a Menu for opts.Layer. A nil layer is logged and rejected.
func New(opts Options) (*Menu, error) {
	if opts.Layer == nil {
		zap.L().Error("LayerMenu constructor must be passed a layer", zap.String("label", opts.Label))
		return nil, ErrMissingLayer
	}
	label := opts.Label
	if label == "" {
		label = DefaultLabel
	}
	return &Menu{
		id:    uuid.New().String(),
		label: label,
		layer: opts.Layer,
	}, nil
}

// ID returns the menu's unique id.
func (m *Menu) ID() string { return m.id }

// Label returns the menu label.
func (m *Menu) Label() string { return m.label }

// ToggleEnabled shows a hidden layer and hides a shown one.
func (m *Menu) ToggleEnabled() {
	if m.layer.IsHidden() {
		m.Enable()
	} else {
		m.Disable()
	}
}

// Enable shows the layer.
func (m *Menu) Enable() { m.layer.Show() }

// Disable hides the layer.
func (m *Menu) Disable() { m.layer.Hide() }

// ToggleMinimized flips between minimized and maximized.
func (m *Menu) ToggleMinimized() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.minimized {
		m.maximize()
	} else {
		m.minimize()
	}
}

// Minimize collapses the body, remembering its height for Maximize.
func (m *Menu) Minimize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minimize()
}

// Maximize restores the body.
func (m *Menu) Maximize() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maximize()
}

func (m *Menu) minimize() {
	h := m.bodyHeight
	m.originalHeight = &h
	m.minimized = true
}

func (m *Menu) maximize() {
	m.minimized = false
}

// SetBodyHeight records the rendered outer height of the body in pixels.
func (m *Menu) SetBodyHeight(px float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bodyHeight = px
}

// View is a snapshot of the menu's visual state.
type View struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Enabled      bool   `json:"enabled"`
	Minimized    bool   `json:"minimized"`
	ToggleIcon   string `json:"toggle_icon"`
	MinimizeIcon string `json:"minimize_icon"`
	BodyClass    string `json:"body_class"`
	// Inline styles. An empty value leaves the stylesheet in charge.
	BodyHeight  string `json:"body_height"`
	BodyBorder  string `json:"body_border"`
	HeadPadding string `json:"head_padding"`
}

// View returns the current visual state.
func (m *Menu) View() View {
	enabled := !m.layer.IsHidden()

	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		ID:           m.id,
		Label:        m.label,
		Enabled:      enabled,
		Minimized:    m.minimized,
		ToggleIcon:   IconEnabled,
		MinimizeIcon: IconMinimize,
		BodyClass:    BodyClass,
	}
	if !enabled {
		v.ToggleIcon = IconDisabled
		v.BodyClass += " " + DisabledClass
	}
	switch {
	case m.minimized:
		v.MinimizeIcon = IconMaximize
		v.BodyHeight = "0px"
		v.BodyBorder = "none"
		v.HeadPadding = "initial"
	case m.originalHeight != nil:
		v.BodyHeight = strconv.FormatFloat(*m.originalHeight, 'f', -1, 64) + "px"
	}
	return v
}
