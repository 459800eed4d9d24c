package element

import (
	"encoding/json"
	"errors"
	"fmt"
)

// BackendElement is the persisted element shape: identity at the top level,
// every rendering attribute nested under KonvaAttrs.
type BackendElement struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	ShapeType  string         `json:"shapeType,omitempty"`
	AreaID     string         `json:"areaId"`
	KonvaAttrs map[string]any `json:"konvaAttrs"`
}

// ToBackend converts an editor element into its persisted form. Locked
// elements are stored as not draggable, imageUrl is renamed to image and
// group children are converted recursively.
func ToBackend(e Element) BackendElement {
	a := e.Base()
	attrs := map[string]any{
		"x":         a.X,
		"y":         a.Y,
		"rotation":  a.Rotation,
		"opacity":   a.Opacity,
		"visible":   a.Visible,
		"draggable": a.Draggable && !a.Locked,
		"listening": true,
	}
	if a.Name != "" {
		attrs["name"] = a.Name
	}
	if a.Locked {
		attrs["locked"] = true
	}
	be := BackendElement{ID: a.ID, Type: string(e.Kind()), AreaID: a.AreaID, KonvaAttrs: attrs}
	if be.AreaID == "" {
		be.AreaID = DefaultAreaID
	}

	switch v := e.(type) {
	case *Text:
		attrs["text"] = v.Text
		attrs["fontSize"] = v.FontSize
		attrs["fontFamily"] = v.FontFamily
		attrs["fill"] = v.Fill
		attrs["width"] = v.Width
		attrs["align"] = v.Align
		attrs["fontWeight"] = v.FontWeight
		attrs["fontStyle"] = v.FontStyle
		attrs["textDecoration"] = v.TextDecoration
		attrs["lineHeight"] = v.LineHeight
		attrs["letterSpacing"] = v.LetterSpacing
	case *Image:
		attrs["width"] = v.Width
		attrs["height"] = v.Height
		attrs["image"] = v.Source()
		if v.OriginalName != "" {
			attrs["originalName"] = v.OriginalName
		}
		if v.Crop != nil {
			attrs["crop"] = map[string]any{"x": v.Crop.X, "y": v.Crop.Y, "width": v.Crop.Width, "height": v.Crop.Height}
		}
		if len(v.Filters) > 0 {
			attrs["filters"] = append([]string(nil), v.Filters...)
		}
	case *Shape:
		be.ShapeType = string(v.ShapeType)
		attrs["fill"] = v.Fill
		attrs["stroke"] = v.Stroke
		attrs["strokeWidth"] = v.StrokeWidth
		attrs["scaleX"] = v.ScaleX
		attrs["scaleY"] = v.ScaleY
		switch {
		case v.ShapeType == ShapeRect:
			attrs["width"] = v.Width
			attrs["height"] = v.Height
		case v.ShapeType == ShapeEllipse || v.ShapeType == ShapeCircle:
			attrs["radius"] = v.Radius
		case v.ShapeType.UsesPoints():
			attrs["points"] = append([]float64(nil), v.Points...)
			attrs["closed"] = v.ShapeType.Closed()
		}
	case *Group:
		attrs["scaleX"] = v.ScaleX
		attrs["scaleY"] = v.ScaleY
		children := make([]BackendElement, len(v.Children))
		for i, c := range v.Children {
			children[i] = ToBackend(c)
		}
		attrs["children"] = children
	}
	return be
}

// ToBackendList converts every element of l.
func ToBackendList(l List) []BackendElement {
	out := make([]BackendElement, len(l))
	for i, e := range l {
		out[i] = ToBackend(e)
	}
	return out
}

// FromBackend reconstructs an editor element from its persisted form.
// Missing attributes receive the same defaults the factory uses. The type
// may be a kind or, for legacy data, a shape type.
func FromBackend(be BackendElement) (Element, error) {
	kind := Kind(be.Type)
	shapeType := ShapeType(be.ShapeType)
	if st := ShapeType(be.Type); st.Valid() {
		kind, shapeType = KindShape, st
	}
	ka := attrMap(be.KonvaAttrs)

	var el Element
	switch kind {
	case KindText:
		t := defaultText()
		ka.str("text", &t.Text)
		ka.num("fontSize", &t.FontSize)
		ka.str("fontFamily", &t.FontFamily)
		ka.str("fill", &t.Fill)
		ka.num("width", &t.Width)
		ka.str("align", &t.Align)
		ka.str("fontWeight", &t.FontWeight)
		ka.str("fontStyle", &t.FontStyle)
		ka.str("textDecoration", &t.TextDecoration)
		ka.num("lineHeight", &t.LineHeight)
		ka.num("letterSpacing", &t.LetterSpacing)
		el = t
	case KindImage:
		img := defaultImage()
		ka.num("width", &img.Width)
		ka.num("height", &img.Height)
		ka.str("image", &img.ImageURL)
		if img.ImageURL == "" {
			ka.str("imageUrl", &img.ImageURL)
		}
		ka.str("originalName", &img.OriginalName)
		if raw, ok := ka["crop"].(map[string]any); ok {
			crop := attrMap(raw)
			img.Crop = &Crop{}
			crop.num("x", &img.Crop.X)
			crop.num("y", &img.Crop.Y)
			crop.num("width", &img.Crop.Width)
			crop.num("height", &img.Crop.Height)
		}
		img.Filters = ka.strings("filters")
		el = img
	case KindShape:
		if shapeType == "" {
			shapeType = ShapeRect
		}
		if !shapeType.Valid() {
			return nil, fmt.Errorf("%w: shape %q", ErrUnsupportedType, shapeType)
		}
		s := defaultShape(shapeType)
		ka.str("fill", &s.Fill)
		ka.str("stroke", &s.Stroke)
		ka.num("strokeWidth", &s.StrokeWidth)
		ka.num("scaleX", &s.ScaleX)
		ka.num("scaleY", &s.ScaleY)
		ka.num("width", &s.Width)
		ka.num("height", &s.Height)
		ka.num("radius", &s.Radius)
		if pts, ok := ka.floats("points"); ok {
			s.Points = pts
		}
		el = s
	case KindGroup:
		g := defaultGroup()
		ka.num("scaleX", &g.ScaleX)
		ka.num("scaleY", &g.ScaleY)
		children, err := backendChildren(ka["children"])
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", be.ID, err)
		}
		g.ID = be.ID
		for _, cb := range children {
			c, err := FromBackend(cb)
			if isUnsupported(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if err := g.AddChild(c); err != nil {
				return nil, fmt.Errorf("group %s: %w", be.ID, err)
			}
		}
		el = g
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, be.Type)
	}

	a := el.Base()
	a.ID = be.ID
	a.Type = kind
	a.AreaID = be.AreaID
	if a.AreaID == "" {
		a.AreaID = DefaultAreaID
	}
	ka.num("x", &a.X)
	ka.num("y", &a.Y)
	ka.num("rotation", &a.Rotation)
	ka.num("opacity", &a.Opacity)
	ka.boolean("visible", &a.Visible)
	ka.boolean("draggable", &a.Draggable)
	ka.boolean("locked", &a.Locked)
	ka.str("name", &a.Name)
	return el, nil
}

// FromBackendList converts a persisted list. Elements of unsupported types
// are returned separately instead of failing the whole list.
func FromBackendList(items []BackendElement) (List, []BackendElement, error) {
	out := make(List, 0, len(items))
	var skipped []BackendElement
	for _, be := range items {
		el, err := FromBackend(be)
		if err != nil {
			if isUnsupported(err) {
				skipped = append(skipped, be)
				continue
			}
			return nil, nil, fmt.Errorf("element %s: %w", be.ID, err)
		}
		out = append(out, el)
	}
	return out, skipped, nil
}

func isUnsupported(err error) bool { return errors.Is(err, ErrUnsupportedType) }

func backendChildren(v any) ([]BackendElement, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case []BackendElement:
		return c, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out []BackendElement
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// attrMap reads loosely typed attribute values; a value of the wrong type
// leaves the destination untouched.
type attrMap map[string]any

func (m attrMap) num(key string, dst *float64) {
	if v, ok := toFloat(m[key]); ok {
		*dst = v
	}
}

func (m attrMap) str(key string, dst *string) {
	if v, ok := m[key].(string); ok {
		*dst = v
	}
}

func (m attrMap) boolean(key string, dst *bool) {
	if v, ok := m[key].(bool); ok {
		*dst = v
	}
}

func (m attrMap) floats(key string) ([]float64, bool) {
	switch v := m[key].(type) {
	case []float64:
		return append([]float64(nil), v...), true
	case []any:
		out := make([]float64, 0, len(v))
		for _, item := range v {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	}
	return nil, false
}

func (m attrMap) strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
