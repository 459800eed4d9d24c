package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/pkg/response"
)

const maxUploadBytes = 256 << 20

type backupService interface {
	Create(ctx context.Context) (*Artifact, error)
	List() ([]Item, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	Upload(ctx context.Context) (string, error)
	Restore(ctx context.Context, data []byte) error
}

type Handler struct {
	svc       backupService
	onRestore func(ctx context.Context) error
	logger    *zap.Logger
}

type HandlerOption func(*Handler)

// WithRestoreHook runs after a successful restore, e.g. to drop caches
// that may now hold stale rows.
func WithRestoreHook(fn func(ctx context.Context) error) HandlerOption {
	return func(h *Handler) { h.onRestore = fn }
}

func WithHandlerLogger(l *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.logger = l.Named("BackupHandler")
		}
	}
}

func NewHandler(svc backupService, opts ...HandlerOption) *Handler {
	h := &Handler{svc: svc, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts /backups behind mw, which should require the owner.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/backups", mw...)
	g.GET("", h.list)
	g.GET("/new", h.createAndDownload)
	g.GET("/:filename", h.download)
	g.POST("", h.uploadAndRestore)
	g.POST("/upload-to-s3", h.uploadToS3)
	g.PATCH("/:filename", h.rollback)
	g.DELETE("/:filename", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.svc.List()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, items)
}

func (h *Handler) createAndDownload(c *gin.Context) {
	artifact, err := h.svc.Create(c.Request.Context())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	sendZip(c, artifact.Filename, artifact.Data)
}

func (h *Handler) download(c *gin.Context) {
	name := c.Param("filename")
	data, err := h.svc.Read(name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	sendZip(c, name, data)
}

// uploadAndRestore restores from a multipart "file" field.
func (h *Handler) uploadAndRestore(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file")
		return
	}
	if file.Size > maxUploadBytes {
		response.PayloadTooLarge(c, "backup archive too large")
		return
	}
	src, err := file.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.restore(c, data)
}

// rollback restores from an archive already on disk.
func (h *Handler) rollback(c *gin.Context) {
	data, err := h.svc.Read(c.Param("filename"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.restore(c, data)
}

func (h *Handler) restore(c *gin.Context, data []byte) {
	ctx := c.Request.Context()
	if err := h.svc.Restore(ctx, data); err != nil {
		h.writeError(c, err)
		return
	}
	if h.onRestore != nil {
		if err := h.onRestore(ctx); err != nil {
			h.logger.Warn("post-restore hook failed", zap.Error(err))
		}
	}
	response.OK(c, gin.H{"message": "restore successful"})
}

func (h *Handler) uploadToS3(c *gin.Context) {
	key, err := h.svc.Upload(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, gin.H{"key": key})
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("filename")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFoundMsg(c, "backup not found")
	case errors.Is(err, ErrInvalidFilename):
		response.BadRequest(c, "invalid filename")
	case errors.Is(err, ErrInvalidArchive):
		response.UnprocessableEntity(c, err.Error())
	case errors.Is(err, ErrStorageDisabled):
		response.Conflict(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}

func sendZip(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/zip", data)
}
