package design

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sublimart/studio/internal/canvas/area"
	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/modules/product"
	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

// ProductSource looks up the product a design is made for.
type ProductSource interface {
	Get(idOrSlug string) (*models.ProductModel, error)
}

// Enqueuer schedules background preview renders.
type Enqueuer interface {
	Enqueue(ctx context.Context, taskType string, payload any, dedup string) (*taskqueue.Task, error)
}

// Actor is the authenticated user performing a change.
type Actor struct {
	UserID string
	Role   string
}

// CanModify reports whether a may change a design owned by ownerID.
func (a Actor) CanModify(ownerID string) bool {
	return a.Role == models.RoleOwner || ownerID == "" || ownerID == a.UserID
}

type Service struct {
	db       *gorm.DB
	products ProductSource
	queue    Enqueuer
	renderer Renderer
	store    ObjectStore
	logger   *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("DesignService")
		}
	}
}

// WithQueue enables background preview rendering after saves.
func WithQueue(q Enqueuer) ServiceOption {
	return func(s *Service) { s.queue = q }
}

func NewService(db *gorm.DB, products ProductSource, renderer Renderer, opts ...ServiceOption) *Service {
	s := &Service{db: db, products: products, renderer: renderer, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.DesignModel, response.Pagination, error) {
	query := s.db.Model(&models.DesignModel{})
	if f.ProductID != "" {
		query = query.Where("product_id = ?", f.ProductID)
	}
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}
	if q.Order == "" {
		q.Order = "updated_at DESC"
	}
	var items []models.DesignModel
	pag, err := pagination.Paginate(query, q, &items)
	return items, pag, err
}

func (s *Service) Get(id string) (*models.DesignModel, error) {
	var d models.DesignModel
	if err := s.db.First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Validate checks a design body against its product without saving it.
func (s *Service) Validate(dto *SaveDesignDTO) (element.List, error) {
	p, err := s.product(dto.ProductID)
	if err != nil {
		return nil, err
	}
	return Validate(dto.Elements, area.NewSet(product.Areas(p)))
}

func (s *Service) Create(ctx context.Context, actor Actor, dto *SaveDesignDTO) (*models.DesignModel, error) {
	list, err := s.Validate(dto)
	if err != nil {
		return nil, err
	}
	d := &models.DesignModel{UserID: actor.UserID}
	if err := fill(d, dto, list); err != nil {
		return nil, err
	}
	if err := s.db.Create(d).Error; err != nil {
		return nil, err
	}
	s.logger.Info("design created", zap.String("id", d.ID), zap.String("productId", d.ProductID), zap.Int("elements", len(list)))
	s.schedulePreview(ctx, d.ID)
	return d, nil
}

// Update replaces the design body. Concurrent saves are not merged: the
// last one wins.
func (s *Service) Update(ctx context.Context, actor Actor, id string, dto *SaveDesignDTO) (*models.DesignModel, error) {
	d, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(d.UserID) {
		return nil, ErrForbidden
	}
	list, err := s.Validate(dto)
	if err != nil {
		return nil, err
	}
	if err := fill(d, dto, list); err != nil {
		return nil, err
	}
	d.PreviewKey = ""
	if err := s.db.Model(d).Select(
		"name", "product_id", "elements", "canvas_config",
		"product_color_filter", "product_options", "metadata", "preview_key",
	).Updates(d).Error; err != nil {
		return nil, err
	}
	s.schedulePreview(ctx, d.ID)
	return d, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}
	if !actor.CanModify(d.UserID) {
		return ErrForbidden
	}
	if err := s.db.Delete(d).Error; err != nil {
		return err
	}
	if d.PreviewKey != "" && s.store != nil {
		if err := s.store.Delete(ctx, d.PreviewKey); err != nil {
			s.logger.Warn("delete preview object", zap.String("key", d.PreviewKey), zap.Error(err))
		}
	}
	s.logger.Info("design deleted", zap.String("id", id))
	return nil
}

func (s *Service) product(id string) (*models.ProductModel, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrProductNotFound
	}
	p, err := s.products.Get(id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Service) schedulePreview(ctx context.Context, id string) {
	if s.queue == nil {
		return
	}
	if _, err := s.queue.Enqueue(ctx, PreviewTask, previewPayload{DesignID: id}, id); err != nil {
		s.logger.Warn("enqueue preview", zap.String("id", id), zap.Error(err))
	}
}

// fill copies a validated body onto d, storing elements in backend form.
func fill(d *models.DesignModel, dto *SaveDesignDTO, list element.List) error {
	elements, err := json.Marshal(element.ToBackendList(list))
	if err != nil {
		return err
	}
	d.Name = strings.TrimSpace(dto.Name)
	d.ProductID = dto.ProductID
	d.Elements = datatypes.JSON(elements)
	d.CanvasConfig = jsonColumn(dto.CanvasConfig, "{}")
	d.ProductColorFilter = strings.TrimSpace(dto.ProductColorFilter)
	d.ProductOptions = jsonColumn(dto.ProductOptions, "{}")
	d.Metadata = jsonColumn(dto.Metadata, "{}")
	return nil
}

func jsonColumn(raw json.RawMessage, empty string) datatypes.JSON {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(trimmed)
}

func decodeElements(d *models.DesignModel) ([]element.BackendElement, error) {
	if len(d.Elements) == 0 {
		return []element.BackendElement{}, nil
	}
	var items []element.BackendElement
	if err := json.Unmarshal(d.Elements, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []element.BackendElement{}
	}
	return items, nil
}

func toResponse(d *models.DesignModel) *designResponse {
	items, _ := decodeElements(d)
	return &designResponse{
		ID:                 d.ID,
		Name:               d.Name,
		ProductID:          d.ProductID,
		UserID:             d.UserID,
		Elements:           items,
		CanvasConfig:       rawOr(d.CanvasConfig),
		ProductColorFilter: d.ProductColorFilter,
		ProductOptions:     rawOr(d.ProductOptions),
		Metadata:           rawOr(d.Metadata),
		HasPreview:         d.PreviewKey != "",
		LegacyID:           d.LegacyID,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

func rawOr(v datatypes.JSON) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(v)
}
