// Package viewport fits the fixed logical canvas into a variable container
// and maps points between stage (container) and canvas space.
package viewport

import (
	"math"

	"github.com/sublimart/studio/internal/canvas/geom"
)

// Config describes the logical canvas and the zoom limits.
type Config struct {
	Canvas   geom.Size `json:"canvas" yaml:"canvas"`
	Margin   float64   `json:"margin" yaml:"margin"`
	MinZoom  float64   `json:"minZoom" yaml:"min_zoom"`
	MaxZoom  float64   `json:"maxZoom" yaml:"max_zoom"`
	ZoomStep float64   `json:"zoomStep" yaml:"zoom_step"`
}

// DefaultConfig is the 800x600 canvas used by the storefront editor.
func DefaultConfig() Config {
	return Config{
		Canvas:   geom.Size{Width: 800, Height: 600},
		Margin:   0.9,
		MinZoom:  0.1,
		MaxZoom:  5,
		ZoomStep: 1.2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Canvas.Empty() {
		c.Canvas = d.Canvas
	}
	if c.Margin <= 0 || c.Margin > 1 {
		c.Margin = d.Margin
	}
	if c.MinZoom <= 0 {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom < c.MinZoom {
		c.MaxZoom = math.Max(d.MaxZoom, c.MinZoom)
	}
	if c.ZoomStep <= 1 {
		c.ZoomStep = d.ZoomStep
	}
	return c
}

// State is the view transform: stage = canvas*Scale + Position.
type State struct {
	Scale     float64    `json:"scale"`
	Position  geom.Point `json:"position"`
	Container geom.Size  `json:"containerSize"`
}

// Viewport owns the view transform of one editor. It is not safe for
// concurrent use.
type Viewport struct {
	cfg   Config
	state State
}

// New returns a viewport at scale 1 with no container.
func New(cfg Config) *Viewport {
	cfg = cfg.withDefaults()
	return &Viewport{cfg: cfg, state: State{Scale: 1}}
}

// Config returns the effective configuration.
func (v *Viewport) Config() Config { return v.cfg }

// State returns the current transform.
func (v *Viewport) State() State { return v.state }

// Restore replaces the transform, clamping the scale.
func (v *Viewport) Restore(s State) {
	if !geom.Finite(s.Scale) || s.Scale <= 0 {
		s.Scale = v.cfg.MinZoom
	}
	s.Scale = v.clamp(s.Scale)
	v.state = s
}

// Fit recomputes scale and offset for a container of the given size and
// returns the new state. Containers with a zero or negative side fall back
// to MinZoom.
func (v *Viewport) Fit(container geom.Size) State {
	v.state.Container = container
	scale := v.fitScale(container)
	v.state.Scale = scale
	v.state.Position = v.centred(scale)
	return v.state
}

// ResetZoom fits the current container again.
func (v *Viewport) ResetZoom() State {
	return v.Fit(v.state.Container)
}

// ZoomIn multiplies the scale by ZoomStep, keeping the container centre fixed.
func (v *Viewport) ZoomIn() State {
	return v.zoomAt(v.containerCentre(), v.state.Scale*v.cfg.ZoomStep)
}

// ZoomOut divides the scale by ZoomStep, keeping the container centre fixed.
func (v *Viewport) ZoomOut() State {
	return v.zoomAt(v.containerCentre(), v.state.Scale/v.cfg.ZoomStep)
}

// Wheel zooms toward the pointer: a negative deltaY zooms in. The canvas
// point under the pointer stays under it.
func (v *Viewport) Wheel(pointer geom.Point, deltaY float64) State {
	switch {
	case deltaY < 0:
		return v.zoomAt(pointer, v.state.Scale*v.cfg.ZoomStep)
	case deltaY > 0:
		return v.zoomAt(pointer, v.state.Scale/v.cfg.ZoomStep)
	}
	return v.state
}

// Pan moves the canvas by dx, dy stage pixels.
func (v *Viewport) Pan(dx, dy float64) State {
	v.state.Position = v.state.Position.Add(geom.Point{X: dx, Y: dy})
	return v.state
}

// ToCanvas maps a stage point into canvas space.
func (v *Viewport) ToCanvas(p geom.Point) geom.Point {
	return p.Sub(v.state.Position).Mul(1 / v.state.Scale)
}

// ToStage maps a canvas point into stage space.
func (v *Viewport) ToStage(p geom.Point) geom.Point {
	return p.Mul(v.state.Scale).Add(v.state.Position)
}

func (v *Viewport) zoomAt(pivot geom.Point, next float64) State {
	old := v.state.Scale
	next = v.clamp(next)
	if next == old {
		return v.state
	}
	// newPos = pivot - (pivot - oldPos) * next/old
	v.state.Position = pivot.Sub(pivot.Sub(v.state.Position).Mul(next / old))
	v.state.Scale = next
	return v.state
}

func (v *Viewport) fitScale(container geom.Size) float64 {
	if container.Empty() {
		return v.cfg.MinZoom
	}
	s := math.Min(container.Width/v.cfg.Canvas.Width, container.Height/v.cfg.Canvas.Height) * v.cfg.Margin
	if !geom.Finite(s) {
		return v.cfg.MinZoom
	}
	return v.clamp(s)
}

func (v *Viewport) centred(scale float64) geom.Point {
	c := v.state.Container
	return geom.Point{
		X: (c.Width - v.cfg.Canvas.Width*scale) / 2,
		Y: (c.Height - v.cfg.Canvas.Height*scale) / 2,
	}
}

func (v *Viewport) containerCentre() geom.Point {
	return geom.Point{X: v.state.Container.Width / 2, Y: v.state.Container.Height / 2}
}

func (v *Viewport) clamp(s float64) float64 {
	return geom.Clamp(s, v.cfg.MinZoom, v.cfg.MaxZoom)
}

// FitRect places a src-sized box inside dst, scaled uniformly by the
// limiting ratio times margin and centred. It returns the placed rectangle
// and the scale used.
func FitRect(src geom.Size, dst geom.Rect, margin float64) (geom.Rect, float64) {
	if src.Empty() || dst.Width <= 0 || dst.Height <= 0 {
		return geom.Rect{X: dst.X, Y: dst.Y}, 0
	}
	if margin <= 0 {
		margin = 1
	}
	s := math.Min(dst.Width/src.Width, dst.Height/src.Height) * margin
	w, h := src.Width*s, src.Height*s
	return geom.Rect{
		X:      dst.X + (dst.Width-w)/2,
		Y:      dst.Y + (dst.Height-h)/2,
		Width:  w,
		Height: h,
	}, s
}
