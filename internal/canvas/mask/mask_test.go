package mask

import (
	"image"
	"image/color"
	"testing"
)

func TestThresholdClassifier(t *testing.T) {
	cls := DefaultClassifier()
	cases := []struct {
		name string
		c    color.NRGBA
		bg   bool
	}{
		{"white", color.NRGBA{255, 255, 255, 255}, true},
		{"near white", color.NRGBA{251, 252, 253, 255}, true},
		{"black", color.NRGBA{0, 0, 0, 255}, true},
		{"transparent", color.NRGBA{120, 120, 120, 5}, true},
		{"grey fabric", color.NRGBA{200, 200, 200, 255}, false},
		{"one dark channel", color.NRGBA{255, 255, 100, 255}, false},
	}
	for _, tc := range cases {
		if got := cls.IsBackground(tc.c); got != tc.bg {
			t.Errorf("%s: expected background=%v, got %v", tc.name, tc.bg, got)
		}
	}
}

func TestTintMultipliesProductPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	src.SetNRGBA(1, 0, color.NRGBA{200, 200, 200, 255})

	out := Tint(src, color.NRGBA{255, 0, 0, 255}, nil)
	if got := out.NRGBAAt(0, 0); got.A != 0 {
		t.Fatalf("background pixel should be transparent, got %+v", got)
	}
	if got := out.NRGBAAt(1, 0); got != (color.NRGBA{200, 0, 0, 255}) {
		t.Fatalf("unexpected tinted pixel %+v", got)
	}
}

func TestTintCustomClassifier(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	src.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	out := Tint(src, color.NRGBA{0, 0, 255, 255}, ClassifierFunc(func(color.NRGBA) bool { return false }))
	if got := out.NRGBAAt(0, 0); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Fatalf("expected white pixel tinted blue, got %+v", got)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":                 {255, 255, 255, 255},
		"#3498db":              {0x34, 0x98, 0xdb, 255},
		"#00000080":            {0, 0, 0, 0x80},
		"rgb(1, 2, 3)":         {1, 2, 3, 255},
		"rgba(0,123,255,0.1)":  {0, 123, 255, 26},
		"transparent":          {},
		" #FF0000 ":            {255, 0, 0, 255},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("%q: expected %+v, got %+v", in, want, got)
		}
	}
	for _, bad := range []string{"", "red", "#12", "rgb(1,2)", "rgba(1,2,3,4)"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}
