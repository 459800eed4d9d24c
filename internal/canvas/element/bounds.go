package element

import (
	"math"
	"strings"

	"github.com/sublimart/studio/internal/canvas/geom"
)

// avgGlyphWidth approximates a glyph's advance as a fraction of the font size
// when a text element has no fixed width.
const avgGlyphWidth = 0.6

// Bounds returns the element's axis-aligned bounding box in canvas space,
// rotation included. Rotation pivots on the element origin.
func Bounds(e Element) geom.Rect {
	a := e.Base()
	local := localBounds(e)
	r := geom.Rect{X: a.X + local.X, Y: a.Y + local.Y, Width: local.Width, Height: local.Height}
	return r.RotatedBounds(geom.Point{X: a.X, Y: a.Y}, a.Rotation)
}

// localBounds is the box relative to the element origin, before rotation.
func localBounds(e Element) geom.Rect {
	switch v := e.(type) {
	case *Text:
		lines := strings.Count(v.Text, "\n") + 1
		w := v.Width
		if w <= 0 {
			longest := 0
			for _, line := range strings.Split(v.Text, "\n") {
				if n := len([]rune(line)); n > longest {
					longest = n
				}
			}
			w = float64(longest) * (v.FontSize*avgGlyphWidth + v.LetterSpacing)
		}
		return geom.Rect{Width: w, Height: v.FontSize * v.LineHeight * float64(lines)}
	case *Image:
		return geom.Rect{Width: v.Width, Height: v.Height}
	case *Shape:
		return shapeBounds(v)
	case *Group:
		return groupBounds(v)
	}
	return geom.Rect{}
}

func shapeBounds(s *Shape) geom.Rect {
	sx, sy := math.Abs(s.ScaleX), math.Abs(s.ScaleY)
	switch {
	case s.ShapeType == ShapeRect:
		return geom.Rect{Width: s.Width * sx, Height: s.Height * sy}
	case s.ShapeType == ShapeEllipse || s.ShapeType == ShapeCircle:
		rx, ry := s.Radius*sx, s.Radius*sy
		return geom.Rect{X: -rx, Y: -ry, Width: 2 * rx, Height: 2 * ry}
	case len(s.Points) >= 2:
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for i := 0; i+1 < len(s.Points); i += 2 {
			x, y := s.Points[i]*s.ScaleX, s.Points[i+1]*s.ScaleY
			minX, maxX = math.Min(minX, x), math.Max(maxX, x)
			minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		}
		return geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}
	return geom.Rect{}
}

func groupBounds(g *Group) geom.Rect {
	var out geom.Rect
	first := true
	for _, c := range g.Children {
		if !c.Base().Visible {
			continue
		}
		b := Bounds(c)
		b = geom.Rect{X: b.X * g.ScaleX, Y: b.Y * g.ScaleY, Width: b.Width * g.ScaleX, Height: b.Height * g.ScaleY}
		if first {
			out, first = b, false
			continue
		}
		out = out.Union(b)
	}
	return out
}
