package area

import (
	"fmt"
	"math"

	"github.com/sublimart/studio/internal/canvas/element"
)

// Violation codes.
const (
	CodeAreaNotFound    = "AREA_NOT_FOUND"
	CodeOutOfBounds     = "OUT_OF_BOUNDS"
	CodeTypeNotAccepted = "TYPE_NOT_ACCEPTED"
	CodeAreaFull        = "AREA_FULL"
	CodeBelowMinimum    = "BELOW_MINIMUM"
)

// Violation is one failed area rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Result reports area validation. Like element validation it is a value,
// never an error.
type Result struct {
	IsValid bool        `json:"isValid"`
	Errors  []Violation `json:"errors"`
}

func newResult(vs []Violation) Result {
	return Result{IsValid: len(vs) == 0, Errors: vs}
}

// Set is the ordered collection of a product's areas. Lookups are linear;
// products carry a handful of areas at most.
type Set struct {
	areas []Area
}

// NewSet wraps normalized areas. The slice is copied.
func NewSet(areas []Area) *Set {
	return &Set{areas: append([]Area(nil), areas...)}
}

// Areas returns a copy of the areas in order.
func (s *Set) Areas() []Area {
	if s == nil {
		return nil
	}
	return append([]Area(nil), s.areas...)
}

// Len reports the number of areas.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.areas)
}

// Get looks an area up by id.
func (s *Set) Get(id string) (Area, bool) {
	if s == nil {
		return Area{}, false
	}
	for _, a := range s.areas {
		if a.ID == id {
			return a, true
		}
	}
	return Area{}, false
}

// ForPosition returns the first area whose rectangle contains the point.
func (s *Set) ForPosition(x, y float64) (Area, bool) {
	if s == nil {
		return Area{}, false
	}
	for _, a := range s.areas {
		if a.Rect().Contains(x, y) {
			return a, true
		}
	}
	return Area{}, false
}

// ValidateElement checks that e may live in the area: the area exists, it
// accepts the element's kind and the element's bounds lie inside it. An
// unknown area short-circuits the other checks.
func (s *Set) ValidateElement(e element.Element, areaID string) Result {
	a, ok := s.Get(areaID)
	if !ok {
		return newResult([]Violation{{
			Code:    CodeAreaNotFound,
			Message: fmt.Sprintf("Area %q does not exist", areaID),
		}})
	}
	var vs []Violation
	if !a.AcceptsKind(e.Kind()) {
		vs = append(vs, Violation{
			Code:    CodeTypeNotAccepted,
			Message: fmt.Sprintf("Area %q does not accept %s elements", a.DisplayName, e.Kind()),
		})
	}
	if !a.Rect().ContainsRect(element.Bounds(e)) {
		vs = append(vs, Violation{
			Code:    CodeOutOfBounds,
			Message: fmt.Sprintf("Element is outside of area %q", a.DisplayName),
		})
	}
	return newResult(vs)
}

// Occupants returns the elements bound to areaID.
func Occupants(elements element.List, areaID string) element.List {
	var out element.List
	for _, e := range elements {
		if e.Base().AreaID == areaID {
			out = append(out, e)
		}
	}
	return out
}

// CanAdd reports whether one more element fits in the area. Elements bound
// to an unknown area (including the default sentinel) are not limited.
func (s *Set) CanAdd(areaID string, elements element.List) Result {
	a, ok := s.Get(areaID)
	if !ok {
		return newResult(nil)
	}
	if n := len(Occupants(elements, areaID)); n >= a.MaxElements {
		return newResult([]Violation{{
			Code:    CodeAreaFull,
			Message: fmt.Sprintf("Area %q already holds %d of %d elements", a.DisplayName, n, a.MaxElements),
		}})
	}
	return newResult(nil)
}

// CheckMinimums reports every area holding fewer elements than its minimum.
func (s *Set) CheckMinimums(elements element.List) Result {
	if s == nil {
		return newResult(nil)
	}
	var vs []Violation
	for _, a := range s.areas {
		if a.MinElements <= 0 {
			continue
		}
		if n := len(Occupants(elements, a.ID)); n < a.MinElements {
			vs = append(vs, Violation{
				Code:    CodeBelowMinimum,
				Message: fmt.Sprintf("Area %q requires at least %d elements, has %d", a.DisplayName, a.MinElements, n),
			})
		}
	}
	return newResult(vs)
}

// ValidateDesign runs ValidateElement and the capacity rules over a whole
// element list. Elements on the default area are only checked when a
// matching area exists.
func (s *Set) ValidateDesign(elements element.List) Result {
	var vs []Violation
	counts := map[string]int{}
	for _, e := range elements {
		id := e.Base().AreaID
		if _, ok := s.Get(id); !ok && id == element.DefaultAreaID {
			continue
		}
		for _, v := range s.ValidateElement(e, id).Errors {
			v.Message = fmt.Sprintf("%s: %s", e.Base().ID, v.Message)
			vs = append(vs, v)
		}
		counts[id]++
	}
	for _, a := range s.Areas() {
		if counts[a.ID] > a.MaxElements {
			vs = append(vs, Violation{
				Code:    CodeAreaFull,
				Message: fmt.Sprintf("Area %q holds %d elements, limit is %d", a.DisplayName, counts[a.ID], a.MaxElements),
			})
		}
	}
	vs = append(vs, s.CheckMinimums(elements).Errors...)
	return newResult(vs)
}

// Snap pulls x and y onto the nearest edge of the area when they lie within
// SnapThreshold of it. Unknown areas leave the point unchanged.
func (s *Set) Snap(x, y float64, areaID string) (float64, float64) {
	a, ok := s.Get(areaID)
	if !ok {
		return x, y
	}
	return snapAxis(x, a.X, a.X+a.Width), snapAxis(y, a.Y, a.Y+a.Height)
}

func snapAxis(v, lo, hi float64) float64 {
	dLo, dHi := math.Abs(v-lo), math.Abs(v-hi)
	switch {
	case dLo <= SnapThreshold && dLo <= dHi:
		return lo
	case dHi <= SnapThreshold:
		return hi
	}
	return v
}
