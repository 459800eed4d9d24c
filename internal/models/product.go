package models

import "gorm.io/datatypes"

// ProductImages holds the product photos; Main is the editor background.
type ProductImages struct {
	Main    string   `json:"main"`
	Gallery []string `json:"gallery,omitempty"`
}

// ProductModel is a sublimation blank (mug, shirt, cushion...) with the
// regions a customer may print on.
type ProductModel struct {
	Base
	Name        string        `json:"name"        gorm:"not null"`
	Slug        string        `json:"slug"        gorm:"size:191;uniqueIndex"`
	Description string        `json:"description" gorm:"type:longtext"`
	Category    string        `json:"category"    gorm:"size:64;index"`
	PriceCents  int64         `json:"priceCents"`
	Images      ProductImages `json:"images"      gorm:"type:text;serializer:json"`
	Colors      StringArray   `json:"colors"      gorm:"type:text"`
	// CustomizationAreas is the raw area array as authored in the admin
	// panel, flat or with a nested position object.
	CustomizationAreas datatypes.JSON `json:"customizationAreas"`
	CanvasWidth        float64        `json:"canvasWidth"`
	CanvasHeight       float64        `json:"canvasHeight"`
	Active             bool           `json:"active" gorm:"default:true;index"`
}

func (ProductModel) TableName() string { return "products" }
