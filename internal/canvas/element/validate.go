package element

import (
	"fmt"
	"strings"

	"github.com/sublimart/studio/internal/canvas/geom"
)

// Validation messages.
const (
	MsgMissingID     = "Element must have an id"
	MsgMissingType   = "Element must have a valid type"
	MsgBadPosition   = "Element must have numeric x and y coordinates"
	MsgBadOpacity    = "Opacity must be between 0 and 1"
	MsgEmptyText     = "Text elements must have non-empty text"
	MsgImageSource   = "Image elements require an image source (imageUrl or image)"
	MsgOddPoints     = "Points must contain x,y pairs"
	MsgPolygonPoints = "Polygon shapes require at least 3 points"
	MsgLinePoints    = "Line shapes require at least 2 points"
	MsgShapeType     = "Shape elements must have a valid shapeType"
)

// Result reports element validation. Validation never fails with an error:
// callers check IsValid before acting.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// Validate checks the structural requirements of an element. Group children
// are validated recursively and their messages prefixed with the child id.
func Validate(e Element) Result {
	errs := validate(e)
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func validate(e Element) []string {
	if e == nil {
		return []string{MsgMissingType}
	}
	var errs []string
	a := e.Base()
	if strings.TrimSpace(a.ID) == "" {
		errs = append(errs, MsgMissingID)
	}
	if !a.Type.Valid() || a.Type != e.Kind() {
		errs = append(errs, MsgMissingType)
	}
	if !geom.Finite(a.X) || !geom.Finite(a.Y) {
		errs = append(errs, MsgBadPosition)
	}
	if a.Opacity < 0 || a.Opacity > 1 {
		errs = append(errs, MsgBadOpacity)
	}

	switch v := e.(type) {
	case *Text:
		if strings.TrimSpace(v.Text) == "" {
			errs = append(errs, MsgEmptyText)
		}
	case *Image:
		if strings.TrimSpace(v.Source()) == "" {
			errs = append(errs, MsgImageSource)
		}
	case *Shape:
		errs = append(errs, validateShape(v)...)
	case *Group:
		for _, c := range v.Children {
			for _, msg := range validate(c) {
				errs = append(errs, fmt.Sprintf("%s: %s", c.Base().ID, msg))
			}
		}
	}
	return errs
}

func validateShape(s *Shape) []string {
	if !s.ShapeType.Valid() {
		return []string{MsgShapeType}
	}
	if !s.ShapeType.UsesPoints() {
		return nil
	}
	var errs []string
	if len(s.Points)%2 != 0 {
		errs = append(errs, MsgOddPoints)
	}
	pairs := len(s.Points) / 2
	if s.ShapeType.Closed() && pairs < 3 {
		errs = append(errs, MsgPolygonPoints)
	}
	if !s.ShapeType.Closed() && pairs < 2 {
		errs = append(errs, MsgLinePoints)
	}
	return errs
}
