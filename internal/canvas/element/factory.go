package element

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Factory defaults.
const (
	DefaultX           = 100
	DefaultY           = 100
	DefaultText        = "Texto"
	DefaultFontSize    = 24
	DefaultFont        = "Arial"
	DefaultFill        = "#000000"
	DefaultTextW       = 200
	DefaultLineH       = 1.2
	DefaultImageW      = 200
	DefaultImageH      = 200
	DefaultShapeW      = 100
	DefaultShapeH      = 100
	DefaultRadius      = 50
	DefaultShapeFill   = "#3498db"
	DefaultShapeStroke = "#2c3e50"
	DefaultStrokeWidth = 2
	DefaultStarPoints  = 5
	DefaultStarInner   = 20
	DefaultStarOuter   = 40
)

// Ptr returns a pointer to v. Handy for filling optional config fields.
func Ptr[T any](v T) *T { return &v }

// NewID returns a session-unique id of the form <kind>-<unixMilli>-<8 hex>.
// It is not cryptographically unique.
func NewID(kind Kind) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", kind, time.Now().UnixMilli(), suffix)
}

// Placement holds the optional common attributes of a factory config.
// Nil pointers and empty strings receive defaults.
type Placement struct {
	ID        string
	Name      string
	X, Y      *float64
	Rotation  *float64
	Opacity   *float64
	Visible   *bool
	Draggable *bool
	Locked    bool
	AreaID    string
}

func (p Placement) attrs(kind Kind) Attrs {
	a := defaultAttrs(kind)
	if p.ID != "" {
		a.ID = p.ID
	} else {
		a.ID = NewID(kind)
	}
	a.Name = p.Name
	if p.X != nil {
		a.X = *p.X
	}
	if p.Y != nil {
		a.Y = *p.Y
	}
	if p.Rotation != nil {
		a.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		a.Opacity = *p.Opacity
	}
	if p.Visible != nil {
		a.Visible = *p.Visible
	}
	if p.Draggable != nil {
		a.Draggable = *p.Draggable
	}
	a.Locked = p.Locked
	if p.AreaID != "" {
		a.AreaID = p.AreaID
	}
	return a
}

func defaultAttrs(kind Kind) Attrs {
	return Attrs{
		Type:      kind,
		X:         DefaultX,
		Y:         DefaultY,
		Opacity:   1,
		Visible:   true,
		Draggable: true,
		AreaID:    DefaultAreaID,
	}
}

// TextConfig is a partial text element. Zero values receive defaults.
type TextConfig struct {
	Placement
	Text           string
	FontSize       float64
	FontFamily     string
	Fill           string
	Width          float64
	Align          string
	FontWeight     string
	FontStyle      string
	TextDecoration string
	LineHeight     float64
	LetterSpacing  float64
}

// NewText builds a fully defaulted text element.
func NewText(cfg TextConfig) *Text {
	t := defaultText()
	t.Attrs = cfg.Placement.attrs(KindText)
	setStr(&t.Text, cfg.Text)
	setNum(&t.FontSize, cfg.FontSize)
	setStr(&t.FontFamily, cfg.FontFamily)
	setStr(&t.Fill, cfg.Fill)
	setNum(&t.Width, cfg.Width)
	setStr(&t.Align, cfg.Align)
	setStr(&t.FontWeight, cfg.FontWeight)
	setStr(&t.FontStyle, cfg.FontStyle)
	t.TextDecoration = cfg.TextDecoration
	setNum(&t.LineHeight, cfg.LineHeight)
	t.LetterSpacing = cfg.LetterSpacing
	return t
}

func defaultText() *Text {
	return &Text{
		Attrs:      defaultAttrs(KindText),
		Text:       DefaultText,
		FontSize:   DefaultFontSize,
		FontFamily: DefaultFont,
		Fill:       DefaultFill,
		Width:      DefaultTextW,
		Align:      "left",
		FontWeight: "normal",
		FontStyle:  "normal",
		LineHeight: DefaultLineH,
	}
}

// ImageConfig is a partial image element.
type ImageConfig struct {
	Placement
	Width        float64
	Height       float64
	ImageURL     string
	Image        string
	OriginalName string
	Crop         *Crop
	Filters      []string
}

// NewImage builds a defaulted image element. The source is not defaulted:
// an image built without ImageURL or Image fails Validate.
func NewImage(cfg ImageConfig) *Image {
	img := defaultImage()
	img.Attrs = cfg.Placement.attrs(KindImage)
	setNum(&img.Width, cfg.Width)
	setNum(&img.Height, cfg.Height)
	img.ImageURL = cfg.ImageURL
	img.Image = cfg.Image
	img.OriginalName = cfg.OriginalName
	if cfg.Crop != nil {
		c := *cfg.Crop
		img.Crop = &c
	}
	if len(cfg.Filters) > 0 {
		img.Filters = append([]string(nil), cfg.Filters...)
	}
	return img
}

func defaultImage() *Image {
	return &Image{
		Attrs:  defaultAttrs(KindImage),
		Width:  DefaultImageW,
		Height: DefaultImageH,
	}
}

// ShapeConfig is a partial shape element. For stars, NumPoints, InnerRadius
// and OuterRadius are expanded into Points when Points is empty.
type ShapeConfig struct {
	Placement
	ShapeType   ShapeType
	Width       float64
	Height      float64
	Radius      float64
	ScaleX      float64
	ScaleY      float64
	Points      []float64
	Fill        string
	Stroke      string
	StrokeWidth float64
	NumPoints   int
	InnerRadius float64
	OuterRadius float64
}

// NewShape builds a defaulted shape element. An empty ShapeType means rect.
func NewShape(cfg ShapeConfig) *Shape {
	st := cfg.ShapeType
	if st == "" {
		st = ShapeRect
	}
	s := defaultShape(st)
	s.Attrs = cfg.Placement.attrs(KindShape)
	setNum(&s.ScaleX, cfg.ScaleX)
	setNum(&s.ScaleY, cfg.ScaleY)
	setStr(&s.Fill, cfg.Fill)
	setStr(&s.Stroke, cfg.Stroke)
	setNum(&s.StrokeWidth, cfg.StrokeWidth)

	switch {
	case st == ShapeRect:
		setNum(&s.Width, cfg.Width)
		setNum(&s.Height, cfg.Height)
	case st == ShapeEllipse || st == ShapeCircle:
		setNum(&s.Radius, cfg.Radius)
	case len(cfg.Points) > 0:
		s.Points = append([]float64(nil), cfg.Points...)
	case st == ShapeStar && (cfg.NumPoints > 0 || cfg.InnerRadius > 0 || cfg.OuterRadius > 0):
		n, inner, outer := DefaultStarPoints, float64(DefaultStarInner), float64(DefaultStarOuter)
		if cfg.NumPoints > 0 {
			n = cfg.NumPoints
		}
		setNum(&inner, cfg.InnerRadius)
		setNum(&outer, cfg.OuterRadius)
		s.Points = StarPoints(n, inner, outer)
	}
	return s
}

func defaultShape(st ShapeType) *Shape {
	s := &Shape{
		Attrs:       defaultAttrs(KindShape),
		ShapeType:   st,
		ScaleX:      1,
		ScaleY:      1,
		Fill:        DefaultShapeFill,
		Stroke:      DefaultShapeStroke,
		StrokeWidth: DefaultStrokeWidth,
	}
	switch st {
	case ShapeRect:
		s.Width, s.Height = DefaultShapeW, DefaultShapeH
	case ShapeEllipse, ShapeCircle:
		s.Radius = DefaultRadius
	case ShapeLine, ShapeArrow:
		s.Points = []float64{0, 0, DefaultShapeW, 0}
		s.Fill = ""
	case ShapePolygon, ShapeTriangle:
		s.Points = []float64{DefaultShapeW / 2, 0, DefaultShapeW, DefaultShapeH, 0, DefaultShapeH}
	case ShapeStar:
		s.Points = StarPoints(DefaultStarPoints, DefaultStarInner, DefaultStarOuter)
	}
	return s
}

// StarPoints expands a star into a closed point path centred on the origin,
// alternating outer and inner vertices and starting at the top.
func StarPoints(n int, inner, outer float64) []float64 {
	if n < 2 {
		n = DefaultStarPoints
	}
	pts := make([]float64, 0, n*4)
	for i := 0; i < n*2; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := float64(i)*math.Pi/float64(n) - math.Pi/2
		pts = append(pts, r*math.Cos(angle), r*math.Sin(angle))
	}
	return pts
}

// GroupConfig is a partial group element.
type GroupConfig struct {
	Placement
	ScaleX   float64
	ScaleY   float64
	Children []Element
}

// NewGroup builds a defaulted group. Children that would break the tree
// (self nesting or duplicate ids) are ignored.
func NewGroup(cfg GroupConfig) *Group {
	g := defaultGroup()
	g.Attrs = cfg.Placement.attrs(KindGroup)
	setNum(&g.ScaleX, cfg.ScaleX)
	setNum(&g.ScaleY, cfg.ScaleY)
	for _, c := range cfg.Children {
		_ = g.AddChild(c)
	}
	return g
}

func defaultGroup() *Group {
	return &Group{Attrs: defaultAttrs(KindGroup), ScaleX: 1, ScaleY: 1}
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setNum(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}
