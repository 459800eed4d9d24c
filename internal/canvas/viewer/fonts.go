package viewer

import (
	"strconv"
	"strings"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Every font family renders with the Go fonts; weight and style pick the
// variant. Parsed fonts are shared between renders, faces are not: a
// truetype face keeps glyph caches that are not safe for concurrent use.
type variant struct{ bold, italic bool }

type fontCache struct {
	mu    sync.Mutex
	fonts map[variant]*truetype.Font
}

func newFontCache() *fontCache {
	return &fontCache{fonts: map[variant]*truetype.Font{}}
}

func (c *fontCache) font(v variant) (*truetype.Font, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.fonts[v]; ok {
		return f, nil
	}
	f, err := truetype.Parse(ttfData(v))
	if err != nil {
		return nil, err
	}
	c.fonts[v] = f
	return f, nil
}

type faceKey struct {
	variant
	size float64
}

// faceSet holds the faces of a single render.
type faceSet struct {
	fonts *fontCache
	faces map[faceKey]font.Face
}

func (c *fontCache) session() *faceSet {
	return &faceSet{fonts: c, faces: map[faceKey]font.Face{}}
}

func (s *faceSet) face(weight, style string, size float64) (font.Face, error) {
	if size <= 0 {
		size = 1
	}
	k := faceKey{variant: variant{bold: isBold(weight), italic: strings.Contains(strings.ToLower(style), "italic")}, size: size}
	if f, ok := s.faces[k]; ok {
		return f, nil
	}
	ttf, err := s.fonts.font(k.variant)
	if err != nil {
		return nil, err
	}
	f := truetype.NewFace(ttf, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingFull})
	s.faces[k] = f
	return f, nil
}

func ttfData(v variant) []byte {
	switch {
	case v.bold && v.italic:
		return gobolditalic.TTF
	case v.bold:
		return gobold.TTF
	case v.italic:
		return goitalic.TTF
	}
	return goregular.TTF
}

func isBold(weight string) bool {
	w := strings.ToLower(strings.TrimSpace(weight))
	if w == "bold" || w == "bolder" {
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}
