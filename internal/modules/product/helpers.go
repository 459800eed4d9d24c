package product

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/models"
)

var descriptionEngine = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Typographer,
	),
	goldmark.WithRendererOptions(
		htmlrenderer.WithHardWraps(),
	),
)

// RenderDescription turns a markdown product description into HTML. Raw
// HTML in the source is dropped.
func RenderDescription(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := descriptionEngine.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return buf.String()
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

var slugFold = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u", "ñ", "n",
	"à", "a", "è", "e", "ì", "i", "ò", "o", "ù", "u", "ç", "c",
)

// Slugify lowercases s and joins its alphanumeric runs with dashes.
func Slugify(s string) string {
	s = slugFold.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(slugInvalid.ReplaceAllString(s, "-"), "-")
}

// DecodeAreas parses a stored or submitted area array. Empty input and
// JSON null mean no areas.
func DecodeAreas(raw []byte) ([]area.Raw, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var raws []area.Raw
	if err := json.Unmarshal(trimmed, &raws); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAreas, err)
	}
	ids := make(map[string]struct{}, len(raws))
	for i, r := range raws {
		if r.ID == "" {
			continue
		}
		if _, dup := ids[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate area id %q at index %d", ErrInvalidAreas, r.ID, i)
		}
		ids[r.ID] = struct{}{}
	}
	return raws, nil
}

// Areas returns the product's customization areas in normalized form.
// Undecodable stored data yields no areas.
func Areas(p *models.ProductModel) []area.Area {
	raws, err := DecodeAreas(p.CustomizationAreas)
	if err != nil {
		return []area.Area{}
	}
	return area.NormalizeAll(raws)
}

// AreasFor returns the product's areas mapped onto canvas. Areas are
// authored against the product canvas; when the target canvas differs they
// are scaled uniformly and kept inside it.
func AreasFor(p *models.ProductModel, canvas geom.Size) []area.Area {
	areas := Areas(p)
	src := geom.Size{Width: p.CanvasWidth, Height: p.CanvasHeight}
	if src.Empty() || canvas.Empty() || src == canvas {
		return areas
	}
	f := math.Min(canvas.Width/src.Width, canvas.Height/src.Height)
	for i, a := range areas {
		cx, cy := (a.X+a.Width/2)*f, (a.Y+a.Height/2)*f
		a.X, a.Y = cx-a.Width/2, cy-a.Height/2
		areas[i] = area.Scale(a, f, canvas)
	}
	return areas
}

func toResponse(p *models.ProductModel) *productResponse {
	colors := []string(p.Colors)
	if colors == nil {
		colors = []string{}
	}
	return &productResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		Description:        p.Description,
		DescriptionHTML:    RenderDescription(p.Description),
		Category:           p.Category,
		PriceCents:         p.PriceCents,
		Images:             p.Images,
		Colors:             colors,
		CustomizationAreas: Areas(p),
		CanvasWidth:        p.CanvasWidth,
		CanvasHeight:       p.CanvasHeight,
		Active:             p.Active,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
}
