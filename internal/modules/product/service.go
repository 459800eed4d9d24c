package product

import (
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
)

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

type ServiceOption func(*Service)

func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l.Named("ProductService")
		}
	}
}

func NewService(db *gorm.DB, opts ...ServiceOption) *Service {
	s := &Service{db: db, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.ProductModel, response.Pagination, error) {
	query := s.db.Model(&models.ProductModel{})
	if f.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if q.Order == "" {
		q.Order = "created_at DESC"
	}
	var items []models.ProductModel
	pag, err := pagination.Paginate(query, q, &items)
	return items, pag, err
}

// Get finds a product by id or slug.
func (s *Service) Get(idOrSlug string) (*models.ProductModel, error) {
	var p models.ProductModel
	err := s.db.Where("id = ? OR slug = ?", idOrSlug, idOrSlug).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(dto *CreateProductDTO) (*models.ProductModel, error) {
	if _, err := DecodeAreas(dto.CustomizationAreas); err != nil {
		return nil, err
	}
	slug := Slugify(dto.Slug)
	if slug == "" {
		slug = Slugify(dto.Name)
	}
	if err := s.ensureSlugFree(slug, ""); err != nil {
		return nil, err
	}
	p := models.ProductModel{
		Name:               strings.TrimSpace(dto.Name),
		Slug:               slug,
		Description:        dto.Description,
		Category:           strings.TrimSpace(dto.Category),
		PriceCents:         dto.PriceCents,
		Images:             dto.Images,
		Colors:             models.StringArray(dto.Colors),
		CustomizationAreas: areasColumn(dto.CustomizationAreas),
		CanvasWidth:        dto.CanvasWidth,
		CanvasHeight:       dto.CanvasHeight,
		Active:             dto.Active == nil || *dto.Active,
	}
	if err := s.db.Create(&p).Error; err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("id", p.ID), zap.String("slug", p.Slug))
	return &p, nil
}

func (s *Service) Update(id string, dto *UpdateProductDTO) (*models.ProductModel, error) {
	p, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if dto.Name != nil {
		p.Name = strings.TrimSpace(*dto.Name)
		updates["name"] = p.Name
	}
	if dto.Slug != nil {
		slug := Slugify(*dto.Slug)
		if slug == "" {
			slug = Slugify(p.Name)
		}
		if err := s.ensureSlugFree(slug, p.ID); err != nil {
			return nil, err
		}
		p.Slug = slug
		updates["slug"] = slug
	}
	if dto.Description != nil {
		p.Description = *dto.Description
		updates["description"] = p.Description
	}
	if dto.Category != nil {
		p.Category = strings.TrimSpace(*dto.Category)
		updates["category"] = p.Category
	}
	if dto.PriceCents != nil {
		p.PriceCents = *dto.PriceCents
		updates["price_cents"] = p.PriceCents
	}
	if dto.Images != nil {
		p.Images = *dto.Images
		updates["images"] = p.Images
	}
	if dto.Colors != nil {
		p.Colors = models.StringArray(*dto.Colors)
		updates["colors"] = p.Colors
	}
	if dto.CustomizationAreas != nil {
		if _, err := DecodeAreas(dto.CustomizationAreas); err != nil {
			return nil, err
		}
		p.CustomizationAreas = areasColumn(dto.CustomizationAreas)
		updates["customization_areas"] = p.CustomizationAreas
	}
	if dto.CanvasWidth != nil {
		p.CanvasWidth = *dto.CanvasWidth
		updates["canvas_width"] = p.CanvasWidth
	}
	if dto.CanvasHeight != nil {
		p.CanvasHeight = *dto.CanvasHeight
		updates["canvas_height"] = p.CanvasHeight
	}
	if dto.Active != nil {
		p.Active = *dto.Active
		updates["active"] = p.Active
	}
	if len(updates) == 0 {
		return p, nil
	}
	// Serializer fields need the model path, not a raw column map.
	if err := s.db.Model(p).Select(keys(updates)).Updates(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(id string) error {
	res := s.db.Where("id = ?", id).Delete(&models.ProductModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.logger.Info("product deleted", zap.String("id", id))
	return nil
}

func (s *Service) ensureSlugFree(slug, exceptID string) error {
	q := s.db.Model(&models.ProductModel{}).Where("slug = ?", slug)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSlugTaken
	}
	return nil
}

func areasColumn(raw []byte) datatypes.JSON {
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
