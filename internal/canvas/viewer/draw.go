package viewer

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/mask"
)

var (
	placeholderFill   = color.NRGBA{R: 240, G: 240, B: 240, A: 255}
	placeholderStroke = color.NRGBA{R: 153, G: 153, B: 153, A: 255}
)

// pass is the state of a single render.
type pass struct {
	dc     *gg.Context
	faces  *faceSet
	images map[string]loaded
	report *Report
	logger *zap.Logger
}

// draw renders el with the opacity inherited from its parents.
func (p *pass) draw(el element.Element, parentOpacity float64) {
	a := el.Base()
	if !a.Visible {
		return
	}
	opacity := parentOpacity * clampOpacity(a.Opacity)
	if opacity == 0 {
		return
	}
	p.dc.Push()
	defer p.dc.Pop()
	p.dc.Translate(a.X, a.Y)
	if a.Rotation != 0 {
		p.dc.Rotate(gg.Radians(a.Rotation))
	}

	switch v := el.(type) {
	case *element.Text:
		p.text(v, opacity)
	case *element.Image:
		p.image(v, opacity)
	case *element.Shape:
		p.shape(v, opacity)
	case *element.Group:
		if v.ScaleX != 0 && v.ScaleY != 0 {
			p.dc.Scale(v.ScaleX, v.ScaleY)
		}
		for _, c := range v.Children {
			p.draw(c, opacity)
		}
	default:
		p.logger.Warn("unsupported element type", zap.String("id", a.ID), zap.String("type", string(a.Type)))
		p.report.Skipped = append(p.report.Skipped, a.ID)
	}
}

func (p *pass) text(t *element.Text, opacity float64) {
	fill, ok := p.color(t.Fill, t.ID)
	if !ok || t.Text == "" {
		return
	}
	face, err := p.faces.face(t.FontWeight, t.FontStyle, t.FontSize)
	if err != nil {
		p.logger.Warn("font face unavailable", zap.String("id", t.ID), zap.Error(err))
		return
	}
	p.dc.SetFontFace(face)
	p.dc.SetColor(withOpacity(fill, opacity))

	lineHeight := t.LineHeight
	if lineHeight <= 0 {
		lineHeight = 1
	}
	width := t.Width
	var lines []string
	if width > 0 {
		lines = p.dc.WordWrap(t.Text, width)
	} else {
		lines = strings.Split(t.Text, "\n")
		for _, l := range lines {
			if w, _ := p.dc.MeasureString(l); w > width {
				width = w
			}
		}
	}
	align := alignOf(t.Align)
	step := t.FontSize * lineHeight
	for i, line := range lines {
		lw, _ := p.dc.MeasureString(line)
		x := 0.0
		switch align {
		case gg.AlignCenter:
			x = (width - lw) / 2
		case gg.AlignRight:
			x = width - lw
		}
		// Baseline sits one font size below the top of the line box.
		y := float64(i)*step + t.FontSize + (step-t.FontSize)/2
		p.dc.DrawString(line, x, y)
		switch t.TextDecoration {
		case "underline":
			p.rule(x, y+t.FontSize*0.1, lw, t.FontSize)
		case "line-through":
			p.rule(x, y-t.FontSize*0.3, lw, t.FontSize)
		}
	}
}

func (p *pass) rule(x, y, w, fontSize float64) {
	p.dc.SetLineWidth(math.Max(fontSize/15, 1))
	p.dc.DrawLine(x, y, x+w, y)
	p.dc.Stroke()
}

func (p *pass) image(img *element.Image, opacity float64) {
	w, h := clampSide(img.Width), clampSide(img.Height)
	if w == 0 || h == 0 {
		return
	}
	res, ok := p.images[img.Source()]
	if !ok || res.err != nil || res.img == nil {
		err := res.err
		if err == nil {
			err = ErrEmptyRef
		}
		p.logger.Warn("image failed to load, drawing placeholder",
			zap.String("id", img.ID), zap.String("ref", img.Source()), zap.Error(err))
		p.report.Placeholders = append(p.report.Placeholders, img.ID)
		p.placeholder(float64(w), float64(h), opacity)
		return
	}

	src := res.img
	srcRect := src.Bounds()
	if c := img.Crop; c != nil && c.Width > 0 && c.Height > 0 {
		crop := image.Rect(int(c.X), int(c.Y), int(c.X+c.Width), int(c.Y+c.Height)).Add(srcRect.Min).Intersect(srcRect)
		if !crop.Empty() {
			srcRect = crop
		}
	}
	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, srcRect, draw.Src, nil)
	if opacity < 1 {
		fade(scaled, opacity)
	}
	p.dc.DrawImage(scaled, 0, 0)
}

func (p *pass) placeholder(w, h, opacity float64) {
	p.dc.DrawRectangle(0, 0, w, h)
	p.dc.SetColor(withOpacity(placeholderFill, opacity))
	p.dc.FillPreserve()
	p.dc.SetColor(withOpacity(placeholderStroke, opacity))
	p.dc.SetLineWidth(2)
	p.dc.SetDash(6, 4)
	p.dc.Stroke()
	p.dc.SetDash()
}

func (p *pass) shape(s *element.Shape, opacity float64) {
	sx, sy := s.ScaleX, s.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	p.dc.Scale(sx, sy)

	switch {
	case s.ShapeType == element.ShapeRect:
		p.dc.DrawRectangle(0, 0, s.Width, s.Height)
	case s.ShapeType == element.ShapeEllipse || s.ShapeType == element.ShapeCircle:
		p.dc.DrawEllipse(0, 0, s.Radius, s.Radius)
	case s.ShapeType.UsesPoints():
		if len(s.Points) < 4 {
			return
		}
		p.dc.MoveTo(s.Points[0], s.Points[1])
		for i := 2; i+1 < len(s.Points); i += 2 {
			p.dc.LineTo(s.Points[i], s.Points[i+1])
		}
		if s.ShapeType.Closed() {
			p.dc.ClosePath()
		}
	default:
		p.logger.Warn("unsupported shape type", zap.String("id", s.ID), zap.String("shapeType", string(s.ShapeType)))
		p.report.Skipped = append(p.report.Skipped, s.ID)
		return
	}

	filled := s.ShapeType != element.ShapeLine && s.ShapeType != element.ShapeArrow
	if fill, ok := p.color(s.Fill, s.ID); ok && filled && fill.A > 0 {
		p.dc.SetColor(withOpacity(fill, opacity))
		p.dc.FillPreserve()
	}
	stroke, ok := p.color(s.Stroke, s.ID)
	if !ok || s.StrokeWidth <= 0 || stroke.A == 0 {
		p.dc.ClearPath()
		return
	}
	stroke = withOpacity(stroke, opacity)
	p.dc.SetColor(stroke)
	p.dc.SetLineWidth(s.StrokeWidth)
	p.dc.Stroke()
	if s.ShapeType == element.ShapeArrow {
		p.arrowHead(s.Points, s.StrokeWidth)
	}
}

// arrowHead fills a triangle at the end of the last segment.
func (p *pass) arrowHead(points []float64, strokeWidth float64) {
	n := len(points)
	fx, fy, tx, ty := points[n-4], points[n-3], points[n-2], points[n-1]
	dx, dy := tx-fx, ty-fy
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx, dy = dx/length, dy/length
	size := math.Max(10, strokeWidth*4)
	p.dc.MoveTo(tx, ty)
	p.dc.LineTo(tx-size*dx+size/2*dy, ty-size*dy-size/2*dx)
	p.dc.LineTo(tx-size*dx-size/2*dy, ty-size*dy+size/2*dx)
	p.dc.ClosePath()
	p.dc.Fill()
}

func (p *pass) color(s, id string) (color.NRGBA, bool) {
	if s == "" {
		return color.NRGBA{}, false
	}
	c, err := mask.ParseColor(s)
	if err != nil {
		p.logger.Debug("unparseable color", zap.String("id", id), zap.String("color", s))
		return color.NRGBA{}, false
	}
	return c, true
}

func fade(img *image.NRGBA, opacity float64) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(math.Round(float64(img.Pix[i]) * opacity))
	}
}

func clampSide(v float64) int {
	if !(v > 0) {
		return 0
	}
	return int(math.Min(math.Round(v), maxSide))
}

func clampOpacity(v float64) float64 {
	if math.IsNaN(v) {
		return 1
	}
	return math.Min(math.Max(v, 0), 1)
}

func alignOf(s string) gg.Align {
	switch s {
	case "center":
		return gg.AlignCenter
	case "right":
		return gg.AlignRight
	}
	return gg.AlignLeft
}
