package product

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/middleware"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
)

var sortable = map[string]string{
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
	"name":       "name",
	"priceCents": "price_cents",
}

type productService interface {
	List(q pagination.Query, f ListFilter) ([]models.ProductModel, response.Pagination, error)
	Get(idOrSlug string) (*models.ProductModel, error)
	Create(dto *CreateProductDTO) (*models.ProductModel, error)
	Update(id string, dto *UpdateProductDTO) (*models.ProductModel, error)
	Delete(id string) error
}

type Handler struct {
	svc        productService
	readMW     []gin.HandlerFunc
	invalidate func(context.Context) error
	logger     *zap.Logger
}

type HandlerOption func(*Handler)

// WithReadMiddleware runs mw before the public read endpoints, typically
// optional auth followed by the response cache.
func WithReadMiddleware(mw ...gin.HandlerFunc) HandlerOption {
	return func(h *Handler) { h.readMW = append(h.readMW, mw...) }
}

// WithInvalidator is called after every successful write.
func WithInvalidator(fn func(context.Context) error) HandlerOption {
	return func(h *Handler) { h.invalidate = fn }
}

func WithHandlerLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("ProductHandler")
		}
	}
}

func NewHandler(svc productService, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, logger: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/products")
	g.GET("", h.read(h.list)...)
	g.GET("/:id", h.read(h.get)...)
	g.GET("/:id/areas", h.read(h.areas)...)

	a := g.Group("", authMW)
	a.POST("", h.create)
	a.PATCH("/:id", h.update)
	a.DELETE("/:id", h.remove)
}

func (h *Handler) read(fn gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(h.readMW)+1)
	return append(append(chain, h.readMW...), fn)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c, sortable)
	f := ListFilter{
		Category:   strings.TrimSpace(c.Query("category")),
		Search:     strings.TrimSpace(c.Query("q")),
		ActiveOnly: !middleware.IsAuthenticated(c),
	}
	items, pag, err := h.svc.List(q, f)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	data := make([]*productResponse, 0, len(items))
	for i := range items {
		data = append(data, toResponse(&items[i]))
	}
	response.Paged(c, data, pag)
}

func (h *Handler) load(c *gin.Context) (*models.ProductModel, bool) {
	p, err := h.svc.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFoundMsg(c, "product not found")
			return nil, false
		}
		response.InternalError(c, err)
		return nil, false
	}
	if !p.Active && !middleware.IsAuthenticated(c) {
		response.NotFoundMsg(c, "product not found")
		return nil, false
	}
	return p, true
}

func (h *Handler) get(c *gin.Context) {
	if p, ok := h.load(c); ok {
		response.OK(c, toResponse(p))
	}
}

func (h *Handler) areas(c *gin.Context) {
	if p, ok := h.load(c); ok {
		response.OK(c, Areas(p))
	}
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateProductDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Create(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.changed(c)
	response.Created(c, toResponse(p))
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateProductDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.changed(c)
	response.OK(c, toResponse(p))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	h.changed(c)
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "product not found")
	case errors.Is(err, ErrSlugTaken):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrInvalidAreas):
		response.UnprocessableEntity(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func (h *Handler) changed(c *gin.Context) {
	if h.invalidate == nil {
		return
	}
	if err := h.invalidate(c.Request.Context()); err != nil {
		h.logger.Warn("purge response cache", zap.Error(err))
	}
}
