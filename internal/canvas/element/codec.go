package element

import (
	"encoding/json"
	"fmt"
)

// List is an ordered element list; later elements render on top.
// It marshals to the editor JSON form with a "type" discriminator.
type List []Element

// MarshalJSON writes each element in its editor form.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Element(l))
}

// UnmarshalJSON decodes editor-form elements, filling absent fields with
// factory defaults.
func (l *List) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(List, 0, len(raws))
	for i, raw := range raws {
		el, err := Decode(raw)
		if err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, el)
	}
	if err := out.CheckUniqueIDs(); err != nil {
		return err
	}
	*l = out
	return nil
}

// CheckUniqueIDs reports the first id used twice anywhere in the list,
// group descendants included.
func (l List) CheckUniqueIDs() error {
	seen := map[string]struct{}{}
	for i, el := range l {
		for _, id := range SubtreeIDs(el) {
			if _, dup := seen[id]; dup {
				return fmt.Errorf("element %d: %w: %s", i, ErrDuplicateID, id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}

// Decode reads one editor-form element. Fields missing from data keep the
// factory defaults of the element's kind; a missing id is generated.
func Decode(data []byte) (Element, error) {
	var head struct {
		Type      Kind      `json:"type"`
		ShapeType ShapeType `json:"shapeType"`
		ID        string    `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	kind := head.Type
	shapeType := head.ShapeType
	// Shapes are sometimes tagged with their shape type directly.
	if st := ShapeType(kind); st.Valid() {
		kind, shapeType = KindShape, st
	}

	var el Element
	switch kind {
	case KindText:
		el = defaultText()
	case KindImage:
		el = defaultImage()
	case KindShape:
		if shapeType == "" {
			shapeType = ShapeRect
		}
		el = defaultShape(shapeType)
	case KindGroup:
		el = defaultGroup()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, head.Type)
	}
	if err := json.Unmarshal(data, el); err != nil {
		return nil, err
	}
	base := el.Base()
	base.Type = kind
	if base.ID == "" {
		base.ID = NewID(kind)
	}
	if s, ok := el.(*Shape); ok {
		s.ShapeType = shapeType
	}
	return el, nil
}

type groupAlias Group

type groupJSON struct {
	*groupAlias
	Children List `json:"children"`
}

// MarshalJSON includes the children in editor form.
func (g *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(groupJSON{groupAlias: (*groupAlias)(g), Children: List(g.Children)})
}

// UnmarshalJSON decodes a group and its children, rejecting trees that
// repeat an id or contain the group itself.
func (g *Group) UnmarshalJSON(data []byte) error {
	aux := groupJSON{groupAlias: (*groupAlias)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	children := aux.Children
	g.Children = nil
	for _, c := range children {
		if err := g.AddChild(c); err != nil {
			return fmt.Errorf("group %s: %w", g.ID, err)
		}
	}
	return nil
}
