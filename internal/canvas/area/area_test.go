package area

import (
	"encoding/json"
	"testing"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
)

func box(x, y, w, h float64, areaID string) *element.Shape {
	return element.NewShape(element.ShapeConfig{
		Placement: element.Placement{X: element.Ptr(x), Y: element.Ptr(y), AreaID: areaID},
		Width:     w,
		Height:    h,
	})
}

func testSet() *Set {
	return NewSet([]Area{Normalize(Raw{
		ID:       "front",
		Position: &Position{X: 0, Y: 0, Width: 200, Height: 100},
	}, 0)})
}

func TestValidateElementContainment(t *testing.T) {
	s := testSet()

	inside := s.ValidateElement(box(50, 50, 100, 40, "front"), "front")
	if !inside.IsValid {
		t.Fatalf("expected element inside area to be valid, got %+v", inside.Errors)
	}

	outside := s.ValidateElement(box(150, 50, 100, 40, "front"), "front")
	if outside.IsValid {
		t.Fatalf("expected element crossing the right edge to be invalid")
	}
	if len(outside.Errors) != 1 || outside.Errors[0].Code != CodeOutOfBounds {
		t.Fatalf("expected a single OUT_OF_BOUNDS violation, got %+v", outside.Errors)
	}
}

func TestValidateElementUnknownArea(t *testing.T) {
	res := testSet().ValidateElement(box(0, 0, 10, 10, "back"), "back")
	if res.IsValid || len(res.Errors) != 1 || res.Errors[0].Code != CodeAreaNotFound {
		t.Fatalf("expected AREA_NOT_FOUND only, got %+v", res.Errors)
	}
}

func TestValidateElementTypeNotAccepted(t *testing.T) {
	s := NewSet([]Area{Normalize(Raw{
		ID:       "label",
		Position: &Position{Width: 300, Height: 300},
		Accepts:  map[string]bool{"text": true},
	}, 0)})
	res := s.ValidateElement(box(10, 10, 20, 20, "label"), "label")
	if res.IsValid || res.Errors[0].Code != CodeTypeNotAccepted {
		t.Fatalf("expected TYPE_NOT_ACCEPTED, got %+v", res.Errors)
	}
	txt := element.NewText(element.TextConfig{Placement: element.Placement{X: element.Ptr(10.0), Y: element.Ptr(10.0)}})
	if res := s.ValidateElement(txt, "label"); !res.IsValid {
		t.Fatalf("expected text to be accepted, got %+v", res.Errors)
	}
}

func TestNormalizeFlatAndNested(t *testing.T) {
	var raws []Raw
	data := `[
		{"id":"a","position":{"x":10,"y":20,"width":30,"height":40}},
		{"x":1,"y":2,"width":3,"height":4,"maxElements":0,"accepts":{"shape":true}}
	]`
	if err := json.Unmarshal([]byte(data), &raws); err != nil {
		t.Fatalf("unmarshal raws: %v", err)
	}
	areas := NormalizeAll(raws)
	if areas[0].X != 10 || areas[0].Y != 20 || areas[0].Width != 30 || areas[0].Height != 40 {
		t.Fatalf("unexpected nested area %+v", areas[0])
	}
	b := areas[1]
	if b.ID != "area-1" {
		t.Fatalf("expected generated id, got %q", b.ID)
	}
	if b.Width != MinSize || b.Height != MinSize {
		t.Fatalf("expected size clamped to %d, got %vx%v", MinSize, b.Width, b.Height)
	}
	if b.MaxElements != DefaultMaxElements {
		t.Fatalf("expected default max elements, got %d", b.MaxElements)
	}
	if !b.Accepts[AcceptShapes] || b.Accepts[AcceptText] {
		t.Fatalf("unexpected accepts %+v", b.Accepts)
	}
	if !areas[0].Accepts[AcceptText] || !areas[0].Accepts[AcceptImage] || !areas[0].Accepts[AcceptShapes] {
		t.Fatalf("expected default accepts, got %+v", areas[0].Accepts)
	}
}

func TestForPosition(t *testing.T) {
	s := NewSet(NormalizeAll([]Raw{
		{ID: "left", Position: &Position{X: 0, Y: 0, Width: 100, Height: 100}},
		{ID: "right", Position: &Position{X: 100, Y: 0, Width: 100, Height: 100}},
	}))
	if a, ok := s.ForPosition(150, 50); !ok || a.ID != "right" {
		t.Fatalf("expected right area, got %q (%v)", a.ID, ok)
	}
	// Shared edge resolves to the first area.
	if a, ok := s.ForPosition(100, 50); !ok || a.ID != "left" {
		t.Fatalf("expected left area on shared edge, got %q", a.ID)
	}
	if _, ok := s.ForPosition(500, 500); ok {
		t.Fatalf("expected no area")
	}
}

func TestCanAdd(t *testing.T) {
	s := NewSet([]Area{Normalize(Raw{ID: "front", Position: &Position{Width: 200, Height: 200}, MaxElements: 2}, 0)})
	elements := element.List{box(0, 0, 10, 10, "front")}
	if res := s.CanAdd("front", elements); !res.IsValid {
		t.Fatalf("expected room for a second element")
	}
	elements = append(elements, box(0, 0, 10, 10, "front"))
	res := s.CanAdd("front", elements)
	if res.IsValid || res.Errors[0].Code != CodeAreaFull {
		t.Fatalf("expected AREA_FULL, got %+v", res)
	}
	if res := s.CanAdd(element.DefaultAreaID, elements); !res.IsValid {
		t.Fatalf("default area must not be limited")
	}
}

func TestSnap(t *testing.T) {
	s := testSet()
	x, y := s.Snap(7, 95, "front")
	if x != 0 || y != 100 {
		t.Fatalf("expected snap to (0,100), got (%v,%v)", x, y)
	}
	x, y = s.Snap(50, 50, "front")
	if x != 50 || y != 50 {
		t.Fatalf("expected point away from edges unchanged, got (%v,%v)", x, y)
	}
}

func TestScaleRecentersInsideCanvas(t *testing.T) {
	a := Normalize(Raw{ID: "a", Position: &Position{X: 700, Y: 500, Width: 100, Height: 100}}, 0)
	got := Scale(a, 2, geom.Size{Width: 800, Height: 600})
	if got.Width != 200 || got.Height != 200 {
		t.Fatalf("unexpected scaled size %vx%v", got.Width, got.Height)
	}
	if got.X != 600 || got.Y != 400 {
		t.Fatalf("expected area pushed back inside canvas, got (%v,%v)", got.X, got.Y)
	}

	huge := Scale(a, 10, geom.Size{Width: 800, Height: 600})
	if huge.X != (800-huge.Width)/2 {
		t.Fatalf("expected oversize area centred, got x=%v", huge.X)
	}
}

func TestValidateDesignAndMinimums(t *testing.T) {
	s := NewSet([]Area{Normalize(Raw{ID: "front", Position: &Position{Width: 200, Height: 100}, MinElements: 1, MaxElements: 1}, 0)})
	res := s.ValidateDesign(element.List{box(0, 0, 10, 10, element.DefaultAreaID)})
	if res.IsValid || res.Errors[0].Code != CodeBelowMinimum {
		t.Fatalf("expected BELOW_MINIMUM, got %+v", res.Errors)
	}
	res = s.ValidateDesign(element.List{box(0, 0, 10, 10, "front"), box(20, 0, 10, 10, "front")})
	if res.IsValid || res.Errors[0].Code != CodeAreaFull {
		t.Fatalf("expected AREA_FULL, got %+v", res.Errors)
	}
	res = s.ValidateDesign(element.List{box(0, 0, 10, 10, "front")})
	if !res.IsValid {
		t.Fatalf("expected valid design, got %+v", res.Errors)
	}
}
