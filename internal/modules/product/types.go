package product

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/models"
)

type CreateProductDTO struct {
	Name               string               `json:"name" binding:"required,max=191"`
	Slug               string               `json:"slug"`
	Description        string               `json:"description"`
	Category           string               `json:"category"`
	PriceCents         int64                `json:"priceCents" binding:"gte=0"`
	Images             models.ProductImages `json:"images"`
	Colors             []string             `json:"colors"`
	CustomizationAreas json.RawMessage      `json:"customizationAreas"`
	CanvasWidth        float64              `json:"canvasWidth" binding:"gte=0"`
	CanvasHeight       float64              `json:"canvasHeight" binding:"gte=0"`
	Active             *bool                `json:"active"`
}

type UpdateProductDTO struct {
	Name               *string               `json:"name"`
	Slug               *string               `json:"slug"`
	Description        *string               `json:"description"`
	Category           *string               `json:"category"`
	PriceCents         *int64                `json:"priceCents"`
	Images             *models.ProductImages `json:"images"`
	Colors             *[]string             `json:"colors"`
	CustomizationAreas json.RawMessage       `json:"customizationAreas"`
	CanvasWidth        *float64              `json:"canvasWidth"`
	CanvasHeight       *float64              `json:"canvasHeight"`
	Active             *bool                 `json:"active"`
}

// ListFilter narrows a product listing.
type ListFilter struct {
	Category   string
	Search     string
	ActiveOnly bool
}

type productResponse struct {
	ID                 string               `json:"id"`
	Name               string               `json:"name"`
	Slug               string               `json:"slug"`
	Description        string               `json:"description"`
	DescriptionHTML    string               `json:"descriptionHtml"`
	Category           string               `json:"category"`
	PriceCents         int64                `json:"priceCents"`
	Images             models.ProductImages `json:"images"`
	Colors             []string             `json:"colors"`
	CustomizationAreas []area.Area          `json:"customizationAreas"`
	CanvasWidth        float64              `json:"canvasWidth"`
	CanvasHeight       float64              `json:"canvasHeight"`
	Active             bool                 `json:"active"`
	CreatedAt          time.Time            `json:"createdAt"`
	UpdatedAt          time.Time            `json:"updatedAt"`
}

var (
	ErrNotFound     = errors.New("product not found")
	ErrSlugTaken    = errors.New("product slug already taken")
	ErrInvalidAreas = errors.New("invalid customization areas")
)
