package design

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/canvas/element"
	"github.com/sublimart/studio/internal/middleware"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
)

// maxImportBytes bounds an uploaded dump.
const maxImportBytes = 64 << 20

var sortable = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
}

type designService interface {
	List(q pagination.Query, f ListFilter) ([]models.DesignModel, response.Pagination, error)
	Get(id string) (*models.DesignModel, error)
	Validate(dto *SaveDesignDTO) (element.List, error)
	Create(ctx context.Context, actor Actor, dto *SaveDesignDTO) (*models.DesignModel, error)
	Update(ctx context.Context, actor Actor, id string, dto *SaveDesignDTO) (*models.DesignModel, error)
	Delete(ctx context.Context, actor Actor, id string) error
	Preview(ctx context.Context, id string, refresh bool) ([]byte, error)
	Import(ctx context.Context, actor Actor, payload []byte, fallbackProductID string) (ImportReport, error)
}

type Handler struct {
	svc designService
}

func NewHandler(svc designService) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/designs", authMW)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/preview", h.preview)
	g.POST("", h.create)
	g.POST("/validate", h.validate)
	g.POST("/import", middleware.RequireRole(models.RoleOwner), h.importDump)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.remove)
}

func actorOf(c *gin.Context) Actor {
	return Actor{UserID: middleware.CurrentUserID(c), Role: middleware.CurrentRole(c)}
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c, sortable)
	f := ListFilter{ProductID: strings.TrimSpace(c.Query("productId"))}
	if c.Query("mine") == "1" || c.Query("mine") == "true" {
		f.UserID = middleware.CurrentUserID(c)
	}
	items, pag, err := h.svc.List(q, f)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	data := make([]*designResponse, 0, len(items))
	for i := range items {
		data = append(data, toResponse(&items[i]))
	}
	response.Paged(c, data, pag)
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(d))
}

func (h *Handler) bind(c *gin.Context) (*SaveDesignDTO, bool) {
	var dto SaveDesignDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	return &dto, true
}

func (h *Handler) validate(c *gin.Context) {
	dto, ok := h.bind(c)
	if !ok {
		return
	}
	list, err := h.svc.Validate(dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, gin.H{"isValid": true, "elements": element.ToBackendList(list)})
}

func (h *Handler) create(c *gin.Context) {
	dto, ok := h.bind(c)
	if !ok {
		return
	}
	d, err := h.svc.Create(c.Request.Context(), actorOf(c), dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, toResponse(d))
}

func (h *Handler) update(c *gin.Context) {
	dto, ok := h.bind(c)
	if !ok {
		return
	}
	d, err := h.svc.Update(c.Request.Context(), actorOf(c), c.Param("id"), dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(d))
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actorOf(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) preview(c *gin.Context) {
	refresh := c.Query("refresh") == "1" || c.Query("refresh") == "true"
	data, err := h.svc.Preview(c.Request.Context(), c.Param("id"), refresh)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Header("Cache-Control", "private, max-age=60")
	response.PNG(c, data)
}

func (h *Handler) importDump(c *gin.Context) {
	var body io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, err := c.FormFile("file")
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		f, err := file.Open()
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		defer f.Close()
		body = f
	}
	payload, err := io.ReadAll(io.LimitReader(body, maxImportBytes+1))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if len(payload) > maxImportBytes {
		response.PayloadTooLarge(c, "dump too large")
		return
	}
	report, err := h.svc.Import(c.Request.Context(), actorOf(c), payload, strings.TrimSpace(c.Query("productId")))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationFailed(c, verr.Error(), verr)
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "design not found")
	case errors.Is(err, ErrProductNotFound):
		response.UnprocessableEntity(c, "product not found")
	case errors.Is(err, ErrForbidden):
		response.ForbiddenMsg(c, err.Error())
	case errors.Is(err, ErrInvalidDump):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
