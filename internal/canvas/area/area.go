// Package area models the customization areas of a product canvas: the
// rectangles that accept design elements, their capacity and containment
// rules.
package area

import (
	"fmt"
	"math"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
)

const (
	// MinSize is the smallest editable width or height of an area.
	MinSize = 10
	// DefaultMaxElements applies when a product leaves maxElements unset.
	DefaultMaxElements = 10
	// SnapThreshold is the distance in canvas pixels within which Snap pulls
	// a point onto an area edge.
	SnapThreshold = 10

	DefaultStrokeColor = "#007bff"
	DefaultFillColor   = "rgba(0,123,255,0.1)"
)

// Accept keys. Shape elements are accepted under "shapes".
const (
	AcceptText   = "text"
	AcceptImage  = "image"
	AcceptShapes = "shapes"
	AcceptGroup  = "group"
)

// Position is the nested geometry form some products store.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Raw is an area as stored on a product. Geometry is either nested under
// Position or flat; Position wins when both are present.
type Raw struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Position    *Position       `json:"position,omitempty"`
	X           *float64        `json:"x,omitempty"`
	Y           *float64        `json:"y,omitempty"`
	Width       *float64        `json:"width,omitempty"`
	Height      *float64        `json:"height,omitempty"`
	Accepts     map[string]bool `json:"accepts,omitempty"`
	MaxElements int             `json:"maxElements"`
	MinElements int             `json:"minElements"`
	StrokeColor string          `json:"strokeColor,omitempty"`
	FillColor   string          `json:"fillColor,omitempty"`
}

// Area is a normalized customization area.
type Area struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	X           float64         `json:"x"`
	Y           float64         `json:"y"`
	Width       float64         `json:"width"`
	Height      float64         `json:"height"`
	Accepts     map[string]bool `json:"accepts"`
	MaxElements int             `json:"maxElements"`
	MinElements int             `json:"minElements"`
	StrokeColor string          `json:"strokeColor"`
	FillColor   string          `json:"fillColor"`
}

// Rect returns the area rectangle.
func (a Area) Rect() geom.Rect {
	return geom.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// AcceptsKind reports whether the area takes elements of kind k.
func (a Area) AcceptsKind(k element.Kind) bool {
	return a.Accepts[AcceptKey(k)]
}

// AcceptKey maps an element kind to its accepts-map key.
func AcceptKey(k element.Kind) string {
	switch k {
	case element.KindShape:
		return AcceptShapes
	case element.KindGroup:
		return AcceptGroup
	}
	return string(k)
}

// Normalize flattens a raw area and fills defaults. index numbers areas
// that arrive without an id.
func Normalize(r Raw, index int) Area {
	a := Area{
		ID:          r.ID,
		Name:        r.Name,
		DisplayName: r.DisplayName,
		MaxElements: r.MaxElements,
		MinElements: r.MinElements,
		StrokeColor: r.StrokeColor,
		FillColor:   r.FillColor,
	}
	if r.Position != nil {
		a.X, a.Y, a.Width, a.Height = r.Position.X, r.Position.Y, r.Position.Width, r.Position.Height
	} else {
		a.X, a.Y, a.Width, a.Height = deref(r.X), deref(r.Y), deref(r.Width), deref(r.Height)
	}
	a.Width = math.Max(a.Width, MinSize)
	a.Height = math.Max(a.Height, MinSize)

	if a.ID == "" {
		a.ID = fmt.Sprintf("area-%d", index)
	}
	if a.Name == "" {
		a.Name = a.ID
	}
	if a.DisplayName == "" {
		a.DisplayName = a.Name
	}
	if a.MaxElements <= 0 {
		a.MaxElements = DefaultMaxElements
	}
	if a.MinElements < 0 {
		a.MinElements = 0
	}
	if a.StrokeColor == "" {
		a.StrokeColor = DefaultStrokeColor
	}
	if a.FillColor == "" {
		a.FillColor = DefaultFillColor
	}

	a.Accepts = map[string]bool{}
	if r.Accepts == nil {
		a.Accepts[AcceptText] = true
		a.Accepts[AcceptImage] = true
		a.Accepts[AcceptShapes] = true
	}
	for k, v := range r.Accepts {
		if k == "shape" {
			k = AcceptShapes
		}
		a.Accepts[k] = a.Accepts[k] || v
	}
	return a
}

// NormalizeAll normalizes every raw area in order.
func NormalizeAll(raws []Raw) []Area {
	out := make([]Area, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r, i)
	}
	return out
}

// Scale multiplies the area size by factor around its centre, then moves it
// back inside canvas. An area larger than the canvas is centred on it.
func Scale(a Area, factor float64, canvas geom.Size) Area {
	if factor <= 0 || !geom.Finite(factor) {
		return a
	}
	cx, cy := a.X+a.Width/2, a.Y+a.Height/2
	a.Width = math.Max(a.Width*factor, MinSize)
	a.Height = math.Max(a.Height*factor, MinSize)
	a.X = fitAxis(cx-a.Width/2, a.Width, canvas.Width)
	a.Y = fitAxis(cy-a.Height/2, a.Height, canvas.Height)
	return a
}

func fitAxis(pos, size, limit float64) float64 {
	if limit <= 0 {
		return pos
	}
	if size >= limit {
		return (limit - size) / 2
	}
	return geom.Clamp(pos, 0, limit-size)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
