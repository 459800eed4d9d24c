// Package viewer reconstructs a persisted design as a raster image: the
// product photo, an optional product tint and the design elements in
// z-order. Rendering degrades instead of failing: images that cannot be
// loaded become dashed placeholders and unknown element types are skipped.
package viewer

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"sync"

	xdraw "golang.org/x/image/draw"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/mask"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

// maxSide bounds the pixel size of the output and of any scaled image.
const maxSide = 8192

// loadWorkers is the number of images fetched concurrently per render.
const loadWorkers = 4

// Scene is everything needed to draw one design.
type Scene struct {
	Canvas geom.Size `json:"canvas"`
	// Background is the product photo reference; empty means none.
	Background string `json:"background"`
	// BackgroundColor fills the canvas before anything else.
	BackgroundColor string `json:"backgroundColor"`
	// ColorFilter tints the product region of the background.
	ColorFilter string                   `json:"colorFilter"`
	Elements    []element.BackendElement `json:"elements"`
}

// Report lists what did not render as designed.
type Report struct {
	Skipped         []string `json:"skipped"`
	Placeholders    []string `json:"placeholders"`
	BackgroundError string   `json:"backgroundError,omitempty"`
}

// Renderer draws scenes. It is safe for concurrent use.
type Renderer struct {
	loader     ImageLoader
	classifier mask.Classifier
	margin     float64
	fonts      *fontCache
	logger     *zap.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger for the renderer.
func WithLogger(l *zap.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l.Named("Viewer")
		}
	}
}

// WithClassifier replaces the product/background pixel classifier.
func WithClassifier(c mask.Classifier) Option {
	return func(r *Renderer) {
		if c != nil {
			r.classifier = c
		}
	}
}

// WithMargin sets the fraction of the canvas the background may fill.
func WithMargin(m float64) Option {
	return func(r *Renderer) {
		if m > 0 && m <= 1 {
			r.margin = m
		}
	}
}

// NewRenderer returns a renderer that fetches images through loader.
func NewRenderer(loader ImageLoader, opts ...Option) *Renderer {
	r := &Renderer{
		loader:     loader,
		classifier: mask.DefaultClassifier(),
		margin:     viewport.DefaultConfig().Margin,
		fonts:      newFontCache(),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Render draws the scene. The only error is a cancelled context; every
// other failure is logged and recorded in the report.
func (r *Renderer) Render(ctx context.Context, s Scene) (*image.RGBA, Report, error) {
	var rep Report
	if s.Canvas.Empty() {
		s.Canvas = viewport.DefaultConfig().Canvas
	}
	w := int(math.Min(math.Ceil(s.Canvas.Width), maxSide))
	h := int(math.Min(math.Ceil(s.Canvas.Height), maxSide))
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	if s.BackgroundColor != "" {
		if c, err := mask.ParseColor(s.BackgroundColor); err == nil {
			draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
		} else {
			r.logger.Debug("invalid background color", zap.String("color", s.BackgroundColor))
		}
	}

	elements, skipped, err := element.FromBackendList(s.Elements)
	if err != nil {
		// Malformed group trees: fall back to converting one by one.
		elements = nil
		for _, be := range s.Elements {
			el, err := element.FromBackend(be)
			if err != nil {
				r.logger.Warn("skipping element", zap.String("id", be.ID), zap.Error(err))
				rep.Skipped = append(rep.Skipped, be.ID)
				continue
			}
			elements = append(elements, el)
		}
	}
	for _, be := range skipped {
		r.logger.Warn("unsupported element type", zap.String("id", be.ID), zap.String("type", be.Type))
		rep.Skipped = append(rep.Skipped, be.ID)
	}

	images := r.prefetch(ctx, s.Background, elements)
	if err := ctx.Err(); err != nil {
		return nil, rep, err
	}

	if s.Background != "" {
		if res := images[s.Background]; res.err != nil {
			r.logger.Warn("background image failed to load", zap.String("ref", s.Background), zap.Error(res.err))
			rep.BackgroundError = res.err.Error()
		} else {
			r.drawBackground(canvas, res.img, s.ColorFilter)
		}
	}

	p := &pass{
		dc:     gg.NewContextForRGBA(canvas),
		faces:  r.fonts.session(),
		images: images,
		report: &rep,
		logger: r.logger,
	}
	for _, el := range elements {
		if err := ctx.Err(); err != nil {
			return nil, rep, err
		}
		p.draw(el, 1)
	}
	return canvas, rep, nil
}

func (r *Renderer) drawBackground(dst *image.RGBA, bg image.Image, filter string) {
	b := bg.Bounds()
	rect, _ := viewport.FitRect(
		geom.Size{Width: float64(b.Dx()), Height: float64(b.Dy())},
		geom.Rect{Width: float64(dst.Bounds().Dx()), Height: float64(dst.Bounds().Dy())},
		r.margin,
	)
	target := image.Rect(
		int(math.Round(rect.X)), int(math.Round(rect.Y)),
		int(math.Round(rect.Right())), int(math.Round(rect.Bottom())),
	)
	if target.Empty() {
		return
	}
	xdraw.CatmullRom.Scale(dst, target, bg, b, draw.Over, nil)
	if filter == "" {
		return
	}
	tint, err := mask.ParseColor(filter)
	if err != nil {
		r.logger.Warn("invalid product color filter", zap.String("color", filter), zap.Error(err))
		return
	}
	if tint.A == 0 {
		return
	}
	xdraw.CatmullRom.Scale(dst, target, mask.Tint(bg, tint, r.classifier), b, draw.Over, nil)
}

type loaded struct {
	img image.Image
	err error
}

// prefetch loads the background and every image element concurrently.
func (r *Renderer) prefetch(ctx context.Context, background string, elements element.List) map[string]loaded {
	refs := map[string]struct{}{}
	if background != "" {
		refs[background] = struct{}{}
	}
	var collect func(element.Element)
	collect = func(el element.Element) {
		switch v := el.(type) {
		case *element.Image:
			if src := v.Source(); src != "" {
				refs[src] = struct{}{}
			}
		case *element.Group:
			for _, c := range v.Children {
				collect(c)
			}
		}
	}
	for _, el := range elements {
		collect(el)
	}

	out := make(map[string]loaded, len(refs))
	if len(refs) == 0 {
		return out
	}
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, loadWorkers)
	)
	for ref := range refs {
		wg.Add(1)
		go func(ref string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			var res loaded
			if r.loader == nil {
				res.err = ErrEmptyRef
			} else {
				res.img, res.err = r.loader.Load(ctx, ref)
			}
			mu.Lock()
			out[ref] = res
			mu.Unlock()
		}(ref)
	}
	wg.Wait()
	return out
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func withOpacity(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * geom.Clamp(opacity, 0, 1)))
	return c
}
