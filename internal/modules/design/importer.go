package design

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/models"
)

// legacyDesign is a document of the old designs collection.
type legacyDesign struct {
	ID                 bson.RawValue `bson:"_id"`
	Name               string        `bson:"name"`
	Product            bson.RawValue `bson:"product"`
	User               bson.RawValue `bson:"user"`
	Elements           bson.RawValue `bson:"elements"`
	CanvasConfig       bson.RawValue `bson:"canvasConfig"`
	ProductColorFilter string        `bson:"productColorFilter"`
	ProductOptions     bson.RawValue `bson:"productOptions"`
	Metadata           bson.RawValue `bson:"metadata"`
	CreatedAt          time.Time     `bson:"createdAt"`
	UpdatedAt          time.Time     `bson:"updatedAt"`
}

// splitDump cuts a mongodump .bson file into its documents.
func splitDump(payload []byte) ([]bson.Raw, error) {
	docs := make([]bson.Raw, 0)
	for cursor := 0; cursor < len(payload); {
		if cursor+4 > len(payload) {
			return nil, fmt.Errorf("%w: truncated length at offset %d", ErrInvalidDump, cursor)
		}
		docLen := int(int32(binary.LittleEndian.Uint32(payload[cursor : cursor+4])))
		if docLen < 5 || cursor+docLen > len(payload) {
			return nil, fmt.Errorf("%w: bad document length at offset %d", ErrInvalidDump, cursor)
		}
		doc := bson.Raw(payload[cursor : cursor+docLen])
		if err := doc.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
		docs = append(docs, doc)
		cursor += docLen
	}
	return docs, nil
}

// Import loads designs from a mongodump of the legacy collection. Designs
// whose product id is unknown are attached to fallbackProductID when
// given, and skipped otherwise. Documents imported before are skipped.
func (s *Service) Import(ctx context.Context, actor Actor, payload []byte, fallbackProductID string) (ImportReport, error) {
	report := ImportReport{Errors: []string{}}
	docs, err := splitDump(payload)
	if err != nil {
		return report, err
	}
	for i, raw := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		d, err := s.importOne(actor, raw, fallbackProductID)
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, fmt.Sprintf("document %d: %v", i, err))
			continue
		}
		if d == nil {
			report.Skipped++
			continue
		}
		report.Imported++
		s.schedulePreview(ctx, d.ID)
	}
	s.logger.Info("legacy designs imported",
		zap.Int("imported", report.Imported), zap.Int("skipped", report.Skipped))
	return report, nil
}

func (s *Service) importOne(actor Actor, raw bson.Raw, fallbackProductID string) (*models.DesignModel, error) {
	var doc legacyDesign
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	legacyID := idString(doc.ID)
	if legacyID == "" {
		return nil, errors.New("missing _id")
	}
	var count int64
	if err := s.db.Model(&models.DesignModel{}).Where("legacy_id = ?", legacyID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	productID := idString(doc.Product)
	p, err := s.product(productID)
	if errors.Is(err, ErrProductNotFound) && fallbackProductID != "" {
		p, err = s.product(fallbackProductID)
	}
	if err != nil {
		return nil, fmt.Errorf("product %q: %w", productID, err)
	}

	var items []element.BackendElement
	if err := rawToJSON(doc.Elements, &items); err != nil {
		return nil, fmt.Errorf("elements: %w", err)
	}
	list, skipped, err := element.FromBackendList(items)
	if err != nil {
		return nil, err
	}
	for _, be := range skipped {
		s.logger.Warn("dropping unsupported legacy element", zap.String("design", legacyID), zap.String("id", be.ID), zap.String("type", be.Type))
	}
	elements, err := json.Marshal(element.ToBackendList(list))
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(doc.Name)
	if name == "" {
		name = "Imported " + legacyID
	}
	owner := idString(doc.User)
	if owner == "" || len(owner) > 36 {
		owner = actor.UserID
	}
	d := &models.DesignModel{
		Name:               name,
		ProductID:          p.ID,
		UserID:             owner,
		Elements:           datatypes.JSON(elements),
		CanvasConfig:       rawColumn(doc.CanvasConfig),
		ProductColorFilter: doc.ProductColorFilter,
		ProductOptions:     rawColumn(doc.ProductOptions),
		Metadata:           rawColumn(doc.Metadata),
		LegacyID:           legacyID,
	}
	if !doc.CreatedAt.IsZero() {
		d.CreatedAt = doc.CreatedAt
	}
	if !doc.UpdatedAt.IsZero() {
		d.UpdatedAt = doc.UpdatedAt
	}
	if err := s.db.Create(d).Error; err != nil {
		return nil, err
	}
	return d, nil
}

func idString(v bson.RawValue) string {
	if oid, ok := v.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if str, ok := v.StringValueOK(); ok {
		return strings.TrimSpace(str)
	}
	return ""
}

// rawToJSON converts a BSON value to plain JSON through relaxed extended
// JSON, so numbers arrive as numbers and nested documents as objects.
func rawToJSON(v bson.RawValue, dst any) error {
	if v.Type == 0 {
		return nil
	}
	ext, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return err
	}
	var wrapper struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(ext, &wrapper); err != nil {
		return err
	}
	if len(wrapper.V) == 0 || string(wrapper.V) == "null" {
		return nil
	}
	return json.Unmarshal(wrapper.V, dst)
}

func rawColumn(v bson.RawValue) datatypes.JSON {
	var m map[string]any
	if err := rawToJSON(v, &m); err != nil || m == nil {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}
