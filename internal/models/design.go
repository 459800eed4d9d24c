package models

import "gorm.io/datatypes"

// DesignModel is a saved customer or staff design for one product.
// Elements is stored in backend form, the shape the viewer renders from.
type DesignModel struct {
	Base
	Name               string         `json:"name"               gorm:"not null"`
	ProductID          string         `json:"productId"          gorm:"type:char(36);index;not null"`
	UserID             string         `json:"userId"             gorm:"type:char(36);index"`
	Elements           datatypes.JSON `json:"elements"`
	CanvasConfig       datatypes.JSON `json:"canvasConfig"`
	ProductColorFilter string         `json:"productColorFilter" gorm:"size:64"`
	ProductOptions     datatypes.JSON `json:"productOptions"`
	Metadata           datatypes.JSON `json:"metadata"`
	// PreviewKey is the object key of the last rendered preview PNG.
	PreviewKey string `json:"previewKey,omitempty" gorm:"size:255"`
	// LegacyID is the document id of a design imported from a dump.
	LegacyID string `json:"legacyId,omitempty" gorm:"size:32;index"`
}

func (DesignModel) TableName() string { return "designs" }
