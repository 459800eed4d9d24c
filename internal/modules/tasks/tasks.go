// Package tasks lets the owner inspect and retry background tasks such as
// preview renders.
package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/pkg/pagination"
	"github.com/sublimart/studio/internal/pkg/response"
	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

type queue interface {
	List(ctx context.Context, page, size int, taskType string, status taskqueue.TaskStatus) ([]*taskqueue.Task, int64, error)
	GetByID(ctx context.Context, id string) (*taskqueue.Task, error)
	Enqueue(ctx context.Context, taskType string, payload any, dedup string) (*taskqueue.Task, error)
	DeleteFinished(ctx context.Context, cutoff time.Time) (int, error)
}

type Handler struct {
	q queue
}

func NewHandler(q queue) *Handler { return &Handler{q: q} }

// RegisterRoutes mounts /tasks behind mw, which should require the owner.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, mw ...gin.HandlerFunc) {
	g := rg.Group("/tasks", mw...)
	g.GET("", h.list)
	g.GET("/:taskId", h.get)
	g.POST("/:taskId/retry", h.retry)
	g.DELETE("", h.purge)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c, nil)
	items, total, err := h.q.List(c.Request.Context(), q.Page, q.Size, c.Query("type"), taskqueue.TaskStatus(c.Query("status")))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, pagination.Meta(total, q))
}

func (h *Handler) get(c *gin.Context) {
	task, err := h.q.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, task)
}

// retry enqueues a copy of a failed task with the same payload.
func (h *Handler) retry(c *gin.Context) {
	task, err := h.q.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if task.Status != taskqueue.TaskFailed {
		response.Conflict(c, "only failed tasks can be retried")
		return
	}
	var payload json.RawMessage = task.Payload
	next, err := h.q.Enqueue(c.Request.Context(), task.Type, payload, "")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, next)
}

// purge deletes finished tasks older than ?before (RFC 3339, default now).
func (h *Handler) purge(c *gin.Context) {
	cutoff := time.Now()
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "before must be an RFC 3339 timestamp")
			return
		}
		cutoff = t
	}
	n, err := h.q.DeleteFinished(c.Request.Context(), cutoff)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"deleted": n})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	if errors.Is(err, taskqueue.ErrTaskNotFound) {
		response.NotFoundMsg(c, "task not found")
		return
	}
	response.InternalError(c, err)
}
