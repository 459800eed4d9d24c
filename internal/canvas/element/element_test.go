package element

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestFactoryDefaultsPassValidation(t *testing.T) {
	cases := []struct {
		name string
		el   Element
	}{
		{"text", NewText(TextConfig{})},
		{"rect", NewShape(ShapeConfig{})},
		{"ellipse", NewShape(ShapeConfig{ShapeType: ShapeEllipse})},
		{"line", NewShape(ShapeConfig{ShapeType: ShapeLine})},
		{"polygon", NewShape(ShapeConfig{ShapeType: ShapePolygon})},
		{"star", NewShape(ShapeConfig{ShapeType: ShapeStar})},
		{"group", NewGroup(GroupConfig{})},
		{"image with source", NewImage(ImageConfig{ImageURL: "https://cdn.example.com/a.png"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Validate(tc.el)
			if !res.IsValid {
				t.Fatalf("expected valid element, got errors %v", res.Errors)
			}
		})
	}
}

func TestNewTextDefaults(t *testing.T) {
	txt := NewText(TextConfig{})
	if txt.FontSize != 24 || txt.Fill != "#000000" {
		t.Fatalf("unexpected defaults: fontSize=%v fill=%q", txt.FontSize, txt.Fill)
	}
	if txt.Text == "" {
		t.Fatalf("expected default text")
	}
	if !txt.Visible || !txt.Draggable || txt.Opacity != 1 {
		t.Fatalf("expected visible draggable opaque element")
	}
	if txt.AreaID != DefaultAreaID {
		t.Fatalf("expected default area, got %q", txt.AreaID)
	}
	if !strings.HasPrefix(txt.ID, "text-") {
		t.Fatalf("unexpected id %q", txt.ID)
	}
}

func TestNewTextHonoursExplicitZeroPlacement(t *testing.T) {
	txt := NewText(TextConfig{Placement: Placement{X: Ptr(0.0), Opacity: Ptr(0.0), Visible: Ptr(false)}})
	if txt.X != 0 || txt.Opacity != 0 || txt.Visible {
		t.Fatalf("explicit zero values were overwritten: %+v", txt.Attrs)
	}
	if txt.Y != DefaultY {
		t.Fatalf("expected default y, got %v", txt.Y)
	}
}

func TestImageWithoutSourceIsInvalid(t *testing.T) {
	res := Validate(NewImage(ImageConfig{}))
	if res.IsValid {
		t.Fatalf("expected image without source to be invalid")
	}
	found := false
	for _, msg := range res.Errors {
		if msg == MsgImageSource {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected image source message, got %v", res.Errors)
	}
}

func TestValidateRejectsBadPoints(t *testing.T) {
	poly := NewShape(ShapeConfig{ShapeType: ShapePolygon, Points: []float64{0, 0, 10, 10}})
	res := Validate(poly)
	if res.IsValid {
		t.Fatalf("polygon with two points should be invalid")
	}
	odd := NewShape(ShapeConfig{ShapeType: ShapeLine, Points: []float64{0, 0, 10}})
	res = Validate(odd)
	if res.IsValid {
		t.Fatalf("odd points array should be invalid")
	}
}

func TestValidateRequiresIDAndPosition(t *testing.T) {
	txt := NewText(TextConfig{})
	txt.ID = ""
	txt.X = math.NaN()
	res := Validate(txt)
	if res.IsValid || len(res.Errors) != 2 {
		t.Fatalf("expected id and position errors, got %v", res.Errors)
	}
}

func TestBackendRoundTripKeepsGeometry(t *testing.T) {
	elements := List{
		NewText(TextConfig{Placement: Placement{X: Ptr(12.5), Y: Ptr(40.25), Rotation: Ptr(33.3), Opacity: Ptr(0.7)}, FontSize: 31, Width: 180}),
		NewImage(ImageConfig{Placement: Placement{X: Ptr(1.0), Y: Ptr(2.0)}, Width: 320, Height: 240, ImageURL: "https://cdn.example.com/x.png"}),
		NewShape(ShapeConfig{Width: 55, Height: 66, ScaleX: 1.5}),
		NewShape(ShapeConfig{ShapeType: ShapeEllipse, Radius: 31, ScaleY: 0.5}),
		NewShape(ShapeConfig{ShapeType: ShapeStar, NumPoints: 6, InnerRadius: 10, OuterRadius: 25}),
	}
	for _, el := range elements {
		// Persisted designs go through JSON, so round-trip through it too.
		data, err := json.Marshal(ToBackend(el))
		if err != nil {
			t.Fatalf("marshal backend: %v", err)
		}
		var be BackendElement
		if err := json.Unmarshal(data, &be); err != nil {
			t.Fatalf("unmarshal backend: %v", err)
		}
		got, err := FromBackend(be)
		if err != nil {
			t.Fatalf("from backend: %v", err)
		}
		want, _ := json.Marshal(el)
		have, _ := json.Marshal(got)
		if string(want) != string(have) {
			t.Fatalf("round trip mismatch\nwant %s\nhave %s", want, have)
		}
	}
}

func TestToBackendNormalisesFields(t *testing.T) {
	img := NewImage(ImageConfig{ImageURL: "https://cdn.example.com/y.png", Placement: Placement{Locked: true}})
	be := ToBackend(img)
	if be.KonvaAttrs["image"] != "https://cdn.example.com/y.png" {
		t.Fatalf("expected imageUrl renamed to image, got %v", be.KonvaAttrs)
	}
	if _, ok := be.KonvaAttrs["imageUrl"]; ok {
		t.Fatalf("imageUrl should not be persisted")
	}
	if be.KonvaAttrs["draggable"] != false {
		t.Fatalf("locked element must not be draggable")
	}
	if be.KonvaAttrs["listening"] != true {
		t.Fatalf("expected listening attr")
	}

	star := ToBackend(NewShape(ShapeConfig{ShapeType: ShapeStar}))
	if star.Type != "shape" || star.ShapeType != "star" {
		t.Fatalf("unexpected shape identity %q/%q", star.Type, star.ShapeType)
	}
}

func TestFromBackendAcceptsShapeTypeAsType(t *testing.T) {
	el, err := FromBackend(BackendElement{ID: "e1", Type: "ellipse", KonvaAttrs: map[string]any{"radius": 12.0}})
	if err != nil {
		t.Fatalf("from backend: %v", err)
	}
	s, ok := el.(*Shape)
	if !ok || s.ShapeType != ShapeEllipse || s.Radius != 12 {
		t.Fatalf("unexpected element %#v", el)
	}
	if s.Opacity != 1 || !s.Visible {
		t.Fatalf("expected factory defaults for missing attrs")
	}
}

func TestFromBackendUnknownType(t *testing.T) {
	_, err := FromBackend(BackendElement{ID: "x", Type: "sticker"})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
	list, skipped, err := FromBackendList([]BackendElement{
		{ID: "a", Type: "text", KonvaAttrs: map[string]any{"text": "hi"}},
		{ID: "b", Type: "sticker"},
	})
	if err != nil {
		t.Fatalf("from backend list: %v", err)
	}
	if len(list) != 1 || len(skipped) != 1 || skipped[0].ID != "b" {
		t.Fatalf("expected one element and one skipped, got %d/%d", len(list), len(skipped))
	}
}

func TestGroupRejectsCycles(t *testing.T) {
	inner := NewGroup(GroupConfig{Placement: Placement{ID: "inner"}})
	outer := NewGroup(GroupConfig{Placement: Placement{ID: "outer"}, Children: []Element{inner}})

	if err := outer.AddChild(outer); !errors.Is(err, ErrCyclicGroup) {
		t.Fatalf("expected self nesting to fail, got %v", err)
	}
	if err := inner.AddChild(outer); !errors.Is(err, ErrCyclicGroup) {
		t.Fatalf("expected ancestor nesting to fail, got %v", err)
	}
	dup := NewText(TextConfig{Placement: Placement{ID: "inner"}})
	if err := outer.AddChild(dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id to fail, got %v", err)
	}
}

func TestGroupBackendRoundTrip(t *testing.T) {
	g := NewGroup(GroupConfig{
		Placement: Placement{ID: "g1", X: Ptr(10.0), Y: Ptr(20.0)},
		ScaleX:    2,
		Children: []Element{
			NewText(TextConfig{Placement: Placement{ID: "t1"}, Text: "A"}),
			NewShape(ShapeConfig{Placement: Placement{ID: "s1"}}),
		},
	})
	data, _ := json.Marshal(ToBackend(g))
	var be BackendElement
	if err := json.Unmarshal(data, &be); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := FromBackend(be)
	if err != nil {
		t.Fatalf("from backend: %v", err)
	}
	rg := got.(*Group)
	if len(rg.Children) != 2 || rg.ScaleX != 2 || rg.Children[0].Base().ID != "t1" {
		t.Fatalf("unexpected group %+v", rg)
	}
}

func TestListJSONRoundTrip(t *testing.T) {
	l := List{
		NewText(TextConfig{Text: "hello"}),
		NewGroup(GroupConfig{Children: []Element{NewShape(ShapeConfig{ShapeType: ShapeCircle})}}),
	}
	data, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back List
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	again, _ := json.Marshal(back)
	if string(data) != string(again) {
		t.Fatalf("list json mismatch\n%s\n%s", data, again)
	}
}

func TestDecodeKeepsZeroGeometry(t *testing.T) {
	rect := NewShape(ShapeConfig{Width: 80, Height: 40})
	rect.Width = 0
	data, err := json.Marshal(rect)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	el, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	back := el.(*Shape)
	if back.Width != 0 || back.Height != 40 {
		t.Fatalf("rect geometry = %vx%v, want 0x40", back.Width, back.Height)
	}

	line := NewShape(ShapeConfig{ShapeType: ShapeLine})
	line.Points = []float64{}
	data, _ = json.Marshal(line)
	el, err = Decode(data)
	if err != nil {
		t.Fatalf("decode line: %v", err)
	}
	if pts := el.(*Shape).Points; len(pts) != 0 {
		t.Fatalf("line points = %v, want empty", pts)
	}
}

func TestListJSONRejectsDuplicateIDs(t *testing.T) {
	raw := `[{"id":"a","type":"text","text":"x"},{"id":"a","type":"shape","shapeType":"rect"}]`
	var l List
	if err := json.Unmarshal([]byte(raw), &l); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewShape(ShapeConfig{ShapeType: ShapePolygon})
	c := Clone(s).(*Shape)
	c.Points[0] = 999
	if s.Points[0] == 999 {
		t.Fatalf("clone shares points with original")
	}
	g := NewGroup(GroupConfig{Children: []Element{NewText(TextConfig{})}})
	cg := Clone(g).(*Group)
	cg.Children[0].(*Text).Text = "changed"
	if g.Children[0].(*Text).Text == "changed" {
		t.Fatalf("clone shares children with original")
	}
}

func TestPatch(t *testing.T) {
	txt := NewText(TextConfig{Placement: Placement{ID: "t1"}})
	got, err := Patch(txt, map[string]any{"fontSize": 48.0, "x": 5.0})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	pt := got.(*Text)
	if pt.FontSize != 48 || pt.X != 5 || pt.Y != DefaultY {
		t.Fatalf("unexpected patched element %+v", pt)
	}
	if txt.FontSize != DefaultFontSize {
		t.Fatalf("patch modified the original")
	}
	if _, err := Patch(txt, map[string]any{"id": "other"}); !errors.Is(err, ErrImmutableField) {
		t.Fatalf("expected immutable id error, got %v", err)
	}
}

func TestBounds(t *testing.T) {
	rect := NewShape(ShapeConfig{Placement: Placement{X: Ptr(50.0), Y: Ptr(50.0)}, Width: 100, Height: 40})
	b := Bounds(rect)
	if b.X != 50 || b.Y != 50 || b.Width != 100 || b.Height != 40 {
		t.Fatalf("unexpected rect bounds %+v", b)
	}
	circle := NewShape(ShapeConfig{ShapeType: ShapeCircle, Placement: Placement{X: Ptr(100.0), Y: Ptr(100.0)}, Radius: 10})
	b = Bounds(circle)
	if b.X != 90 || b.Y != 90 || b.Width != 20 || b.Height != 20 {
		t.Fatalf("unexpected circle bounds %+v", b)
	}
	rotated := NewShape(ShapeConfig{Placement: Placement{X: Ptr(0.0), Y: Ptr(0.0), Rotation: Ptr(90.0)}, Width: 100, Height: 10})
	b = Bounds(rotated)
	if math.Abs(b.Width-10) > 1e-9 || math.Abs(b.Height-100) > 1e-9 {
		t.Fatalf("unexpected rotated bounds %+v", b)
	}
}
