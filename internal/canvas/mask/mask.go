// Package mask tints the product region of a background photo with a flat
// colour. Which pixels belong to the product is decided by a Classifier, so
// the heuristic can be swapped per product line.
package mask

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
)

// Classifier decides whether a pixel is background (left transparent) or
// product (tinted). Channels are 8-bit and not premultiplied.
type Classifier interface {
	IsBackground(c color.NRGBA) bool
}

// ThresholdClassifier treats near-white, near-black and near-transparent
// pixels as background.
type ThresholdClassifier struct {
	White uint8 // all channels above this are background
	Black uint8 // all channels below this are background
	Alpha uint8 // alpha below this is background
}

// DefaultClassifier returns the thresholds the storefront viewer uses.
func DefaultClassifier() ThresholdClassifier {
	return ThresholdClassifier{White: 250, Black: 5, Alpha: 10}
}

func (t ThresholdClassifier) IsBackground(c color.NRGBA) bool {
	if c.A < t.Alpha {
		return true
	}
	if c.R > t.White && c.G > t.White && c.B > t.White {
		return true
	}
	return c.R < t.Black && c.G < t.Black && c.B < t.Black
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(color.NRGBA) bool

func (f ClassifierFunc) IsBackground(c color.NRGBA) bool { return f(c) }

// Tint returns a new image the size of src in which every product pixel is
// src multiplied by tint and every background pixel is transparent. A nil
// classifier means DefaultClassifier.
func Tint(src image.Image, tint color.NRGBA, cls Classifier) *image.NRGBA {
	if cls == nil {
		cls = DefaultClassifier()
	}
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			if cls.IsBackground(px) {
				continue
			}
			out.SetNRGBA(x, y, color.NRGBA{
				R: multiply(px.R, tint.R),
				G: multiply(px.G, tint.G),
				B: multiply(px.B, tint.B),
				A: multiply(px.A, tint.A),
			})
		}
	}
	return out
}

func multiply(a, b uint8) uint8 {
	return uint8((uint16(a)*uint16(b) + 127) / 255)
}

// ParseColor reads "#rgb", "#rrggbb", "#rrggbbaa", "rgb(r,g,b)",
// "rgba(r,g,b,a)" and "transparent".
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "transparent":
		return color.NRGBA{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[5:len(s)-1], true)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunc(s[4:len(s)-1], false)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color %q", s)
}

func parseHex(h string) (color.NRGBA, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color #%s: %w", h, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunc(body string, alpha bool) (color.NRGBA, error) {
	parts := strings.Split(body, ",")
	want := 3
	if alpha {
		want = 4
	}
	if len(parts) != want {
		return color.NRGBA{}, fmt.Errorf("expected %d components, got %d", want, len(parts))
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("invalid color component %q", parts[i])
		}
		ch[i] = uint8(n + 0.5)
	}
	a := uint8(255)
	if alpha {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || f < 0 || f > 1 {
			return color.NRGBA{}, fmt.Errorf("invalid alpha %q", parts[3])
		}
		a = uint8(f*255 + 0.5)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, nil
}
