package element

import (
	"encoding/json"
	"fmt"
)

// Patch returns a new element with the editor-form attributes of patch
// applied over e. The original is not modified. Changing id or type is
// rejected; unknown keys are ignored.
func Patch(e Element, patch map[string]any) (Element, error) {
	a := e.Base()
	if v, ok := patch["id"]; ok && v != a.ID {
		return nil, ErrImmutableField
	}
	if v, ok := patch["type"]; ok && v != string(a.Type) {
		return nil, ErrImmutableField
	}

	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode element: %w", err)
	}
	merged := map[string]any{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}
	for k, v := range patch {
		merged[k] = v
	}
	data, err = json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode patch: %w", err)
	}
	out, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	return out, nil
}

// Translate returns a copy of e moved by dx, dy.
func Translate(e Element, dx, dy float64) Element {
	c := Clone(e)
	c.Base().X += dx
	c.Base().Y += dy
	return c
}
