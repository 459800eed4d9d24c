package viewport

import (
	"math"
	"testing"

	"github.com/sublimart/studio/internal/canvas/geom"
)

const eps = 1e-9

func near(a, b float64) bool { return math.Abs(a-b) < eps }

func TestFitScaleAndCentering(t *testing.T) {
	cases := []struct {
		name      string
		container geom.Size
		scale     float64
	}{
		{"same size", geom.Size{Width: 800, Height: 600}, 0.9},
		{"half size", geom.Size{Width: 400, Height: 300}, 0.45},
		{"wide", geom.Size{Width: 1600, Height: 600}, 0.9},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := New(DefaultConfig())
			st := v.Fit(tc.container)
			if !near(st.Scale, tc.scale) {
				t.Fatalf("expected scale %v, got %v", tc.scale, st.Scale)
			}
			wantX := (tc.container.Width - 800*st.Scale) / 2
			wantY := (tc.container.Height - 600*st.Scale) / 2
			if !near(st.Position.X, wantX) || !near(st.Position.Y, wantY) {
				t.Fatalf("expected position (%v,%v), got %+v", wantX, wantY, st.Position)
			}
		})
	}
}

func TestFitSameSizeOffsetIsMargin(t *testing.T) {
	st := New(DefaultConfig()).Fit(geom.Size{Width: 800, Height: 600})
	if !near(st.Position.X, 40) || !near(st.Position.Y, 30) {
		t.Fatalf("expected (40,30), got %+v", st.Position)
	}
}

func TestFitDegenerateContainer(t *testing.T) {
	v := New(DefaultConfig())
	for _, c := range []geom.Size{{}, {Width: 0, Height: 300}, {Width: -5, Height: 10}} {
		if st := v.Fit(c); st.Scale != v.Config().MinZoom {
			t.Fatalf("container %+v: expected min zoom, got %v", c, st.Scale)
		}
	}
}

func TestZoomClamps(t *testing.T) {
	v := New(DefaultConfig())
	v.Fit(geom.Size{Width: 800, Height: 600})
	for i := 0; i < 50; i++ {
		v.ZoomIn()
	}
	if v.State().Scale != 5 {
		t.Fatalf("expected max zoom 5, got %v", v.State().Scale)
	}
	for i := 0; i < 100; i++ {
		v.ZoomOut()
	}
	if v.State().Scale != 0.1 {
		t.Fatalf("expected min zoom 0.1, got %v", v.State().Scale)
	}
	st := v.ResetZoom()
	if !near(st.Scale, 0.9) {
		t.Fatalf("expected reset to fit scale, got %v", st.Scale)
	}
}

func TestWheelKeepsPointerFixed(t *testing.T) {
	v := New(DefaultConfig())
	v.Fit(geom.Size{Width: 800, Height: 600})
	pointer := geom.Point{X: 200, Y: 150}
	before := v.ToCanvas(pointer)

	st := v.Wheel(pointer, -120)
	if !near(st.Scale, 0.9*1.2) {
		t.Fatalf("expected one zoom step in, got %v", st.Scale)
	}
	after := v.ToCanvas(pointer)
	if !near(before.X, after.X) || !near(before.Y, after.Y) {
		t.Fatalf("canvas point under pointer moved: %+v -> %+v", before, after)
	}

	st = v.Wheel(pointer, 120)
	if !near(st.Scale, 0.9) {
		t.Fatalf("expected zoom back out, got %v", st.Scale)
	}
	if unchanged := v.Wheel(pointer, 0); unchanged != st {
		t.Fatalf("zero delta changed the state")
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	v := New(DefaultConfig())
	v.Fit(geom.Size{Width: 1024, Height: 700})
	v.Pan(13, -7)
	p := geom.Point{X: 321.5, Y: 99.25}
	back := v.ToCanvas(v.ToStage(p))
	if !near(back.X, p.X) || !near(back.Y, p.Y) {
		t.Fatalf("expected %+v, got %+v", p, back)
	}
}

func TestFitRect(t *testing.T) {
	r, s := FitRect(geom.Size{Width: 1000, Height: 500}, geom.Rect{Width: 800, Height: 600}, 1)
	if !near(s, 0.8) || !near(r.Width, 800) || !near(r.Height, 400) || !near(r.Y, 100) {
		t.Fatalf("unexpected placement %+v scale %v", r, s)
	}
	if _, s := FitRect(geom.Size{}, geom.Rect{Width: 800, Height: 600}, 1); s != 0 {
		t.Fatalf("empty source should not scale")
	}
}
