package design

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/element"
)

// PreviewTask is the task queue type that renders a design preview.
const PreviewTask = "design.preview"

type SaveDesignDTO struct {
	Name               string                   `json:"name" binding:"required,max=191"`
	ProductID          string                   `json:"productId" binding:"required"`
	Elements           []element.BackendElement `json:"elements"`
	CanvasConfig       json.RawMessage          `json:"canvasConfig"`
	ProductColorFilter string                   `json:"productColorFilter"`
	ProductOptions     json.RawMessage          `json:"productOptions"`
	Metadata           json.RawMessage          `json:"metadata"`
}

// ListFilter narrows a design listing.
type ListFilter struct {
	ProductID string
	UserID    string
}

type designResponse struct {
	ID                 string                   `json:"id"`
	Name               string                   `json:"name"`
	ProductID          string                   `json:"productId"`
	UserID             string                   `json:"userId"`
	Elements           []element.BackendElement `json:"elements"`
	CanvasConfig       json.RawMessage          `json:"canvasConfig"`
	ProductColorFilter string                   `json:"productColorFilter"`
	ProductOptions     json.RawMessage          `json:"productOptions"`
	Metadata           json.RawMessage          `json:"metadata"`
	HasPreview         bool                     `json:"hasPreview"`
	LegacyID           string                   `json:"legacyId,omitempty"`
	CreatedAt          time.Time                `json:"createdAt"`
	UpdatedAt          time.Time                `json:"updatedAt"`
}

type previewPayload struct {
	DesignID string `json:"designId"`
}

// ImportReport summarises a legacy import.
type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors"`
}

// ValidationError lists every element and area rule a design breaks.
type ValidationError struct {
	Elements map[string][]string `json:"elements,omitempty"`
	Areas    []area.Violation    `json:"areas,omitempty"`
}

func (e *ValidationError) Error() string { return "design failed validation" }

func (e *ValidationError) empty() bool { return len(e.Elements) == 0 && len(e.Areas) == 0 }

var (
	ErrNotFound        = errors.New("design not found")
	ErrProductNotFound = errors.New("product not found")
	ErrForbidden       = errors.New("design belongs to another user")
	ErrInvalidDump     = errors.New("invalid bson dump")
)
