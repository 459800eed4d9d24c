// Package element implements the design element model used by the editor:
// a tagged union over text, image, shape and group elements, the factory
// that fills in defaults, the persisted (backend) form and validation.
package element

import "errors"

// Kind discriminates the element union.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindShape Kind = "shape"
	KindGroup Kind = "group"
)

// Valid reports whether k is one of the known element kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindShape, KindGroup:
		return true
	}
	return false
}

// ShapeType selects the geometry of a shape element.
type ShapeType string

const (
	ShapeRect     ShapeType = "rect"
	ShapeEllipse  ShapeType = "ellipse"
	ShapeCircle   ShapeType = "circle"
	ShapeLine     ShapeType = "line"
	ShapeArrow    ShapeType = "arrow"
	ShapePolygon  ShapeType = "polygon"
	ShapeTriangle ShapeType = "triangle"
	ShapeStar     ShapeType = "star"
)

// Valid reports whether s is a known shape type.
func (s ShapeType) Valid() bool {
	switch s {
	case ShapeRect, ShapeEllipse, ShapeCircle, ShapeLine, ShapeArrow, ShapePolygon, ShapeTriangle, ShapeStar:
		return true
	}
	return false
}

// Closed reports whether the shape is a closed point path.
func (s ShapeType) Closed() bool {
	return s == ShapePolygon || s == ShapeTriangle || s == ShapeStar
}

// UsesPoints reports whether the geometry is described by a points array.
func (s ShapeType) UsesPoints() bool {
	return s.Closed() || s == ShapeLine || s == ShapeArrow
}

// DefaultAreaID is the sentinel area for elements not bound to a customization area.
const DefaultAreaID = "default-area"

var (
	ErrUnsupportedType = errors.New("unsupported element type")
	ErrCyclicGroup     = errors.New("group cannot contain itself")
	ErrDuplicateID     = errors.New("duplicate element id")
	ErrImmutableField  = errors.New("element id and type cannot be changed")
	ErrInvalidPatch    = errors.New("invalid element patch")
)

// Element is implemented by *Text, *Image, *Shape and *Group.
type Element interface {
	// Base exposes the attributes shared by all element kinds.
	Base() *Attrs
	Kind() Kind
	sealed()
}

// Attrs are the attributes every element carries.
type Attrs struct {
	ID        string  `json:"id"`
	Type      Kind    `json:"type"`
	Name      string  `json:"name,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Rotation  float64 `json:"rotation"`
	Opacity   float64 `json:"opacity"`
	Visible   bool    `json:"visible"`
	Draggable bool    `json:"draggable"`
	Locked    bool    `json:"locked,omitempty"`
	AreaID    string  `json:"areaId"`
}

func (a *Attrs) Base() *Attrs { return a }

// Text is a single- or multi-line text element.
type Text struct {
	Attrs
	Text           string  `json:"text"`
	FontSize       float64 `json:"fontSize"`
	FontFamily     string  `json:"fontFamily"`
	Fill           string  `json:"fill"`
	Width          float64 `json:"width"`
	Align          string  `json:"align"`
	FontWeight     string  `json:"fontWeight"`
	FontStyle      string  `json:"fontStyle"`
	TextDecoration string  `json:"textDecoration"`
	LineHeight     float64 `json:"lineHeight"`
	LetterSpacing  float64 `json:"letterSpacing"`
}

func (*Text) Kind() Kind { return KindText }
func (*Text) sealed()    {}

// Crop selects a source region of an image.
type Crop struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Image is a raster image element. ImageURL is the editor form of the source;
// Image holds a stored reference when the element came from the backend.
type Image struct {
	Attrs
	Width        float64  `json:"width"`
	Height       float64  `json:"height"`
	ImageURL     string   `json:"imageUrl,omitempty"`
	Image        string   `json:"image,omitempty"`
	OriginalName string   `json:"originalName,omitempty"`
	Crop         *Crop    `json:"crop,omitempty"`
	Filters      []string `json:"filters,omitempty"`
}

func (*Image) Kind() Kind { return KindImage }
func (*Image) sealed()    {}

// Source returns the image reference, preferring the editor URL.
func (i *Image) Source() string {
	if i.ImageURL != "" {
		return i.ImageURL
	}
	return i.Image
}

// Shape is a vector shape. Which geometry fields apply depends on ShapeType:
// rect uses Width/Height, ellipse and circle use Radius with ScaleX/ScaleY,
// point shapes use Points as flat x,y pairs relative to the element origin.
type Shape struct {
	Attrs
	ShapeType   ShapeType `json:"shapeType"`
	Width       float64   `json:"width"`
	Height      float64   `json:"height"`
	Radius      float64   `json:"radius"`
	ScaleX      float64   `json:"scaleX"`
	ScaleY      float64   `json:"scaleY"`
	Points      []float64 `json:"points"`
	Fill        string    `json:"fill"`
	Stroke      string    `json:"stroke"`
	StrokeWidth float64   `json:"strokeWidth"`
}

func (*Shape) Kind() Kind { return KindShape }
func (*Shape) sealed()    {}

// Group owns an ordered list of child elements. Children are owned
// exclusively; a group never appears inside its own subtree.
type Group struct {
	Attrs
	ScaleX   float64   `json:"scaleX"`
	ScaleY   float64   `json:"scaleY"`
	Children []Element `json:"-"`
}

func (*Group) Kind() Kind { return KindGroup }
func (*Group) sealed()    {}

// AddChild appends child to the group. It refuses to nest the group inside
// itself or to introduce an id that already exists in the group's tree.
func (g *Group) AddChild(child Element) error {
	if child == nil {
		return nil
	}
	if cg, ok := child.(*Group); ok {
		if cg == g || containsID(cg, g.ID) {
			return ErrCyclicGroup
		}
	}
	if child.Base().ID == g.ID {
		return ErrCyclicGroup
	}
	seen := map[string]struct{}{}
	collectIDs(g, seen)
	for _, id := range SubtreeIDs(child) {
		if _, dup := seen[id]; dup {
			return ErrDuplicateID
		}
	}
	g.Children = append(g.Children, child)
	return nil
}

// Walk calls fn for the group's descendants in depth-first order.
func (g *Group) Walk(fn func(Element)) {
	for _, c := range g.Children {
		fn(c)
		if cg, ok := c.(*Group); ok {
			cg.Walk(fn)
		}
	}
}

func containsID(g *Group, id string) bool {
	found := false
	g.Walk(func(e Element) {
		if e.Base().ID == id {
			found = true
		}
	})
	return found
}

func collectIDs(g *Group, into map[string]struct{}) {
	into[g.ID] = struct{}{}
	g.Walk(func(e Element) { into[e.Base().ID] = struct{}{} })
}

// SubtreeIDs lists the id of e followed by the ids of all its descendants.
func SubtreeIDs(e Element) []string {
	ids := []string{e.Base().ID}
	if g, ok := e.(*Group); ok {
		g.Walk(func(c Element) { ids = append(ids, c.Base().ID) })
	}
	return ids
}
