// Package health reports liveness and exposes the scheduled jobs to the
// owner.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/pkg/cron"
	"github.com/sublimart/studio/internal/pkg/response"
)

// Pinger is one dependency checked by GET /health.
type Pinger func(ctx context.Context) error

// Scheduler is the part of *cron.Scheduler the routes use.
type Scheduler interface {
	List() []cron.ListItem
	Run(ctx context.Context, name string) error
}

type Handler struct {
	checks  map[string]Pinger
	sched   Scheduler
	started time.Time
	version string
}

func NewHandler(sched Scheduler, version string, checks map[string]Pinger) *Handler {
	return &Handler{checks: checks, sched: sched, started: time.Now(), version: version}
}

// RegisterRoutes mounts the public probe and the owner-only job routes.
// adminMW should authenticate and require the owner role.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW ...gin.HandlerFunc) {
	rg.GET("/health", h.health)

	admin := rg.Group("/health", adminMW...)
	admin.GET("/cron", h.listJobs)
	admin.POST("/cron/run/:name", h.runJob)
}

func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	deps := make(map[string]bool, len(h.checks))
	for name, ping := range h.checks {
		ok := ping(ctx) == nil
		deps[name] = ok
		if !ok {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":  status,
		"version": h.version,
		"uptime":  humanizeDuration(time.Since(h.started)),
		"deps":    deps,
	})
}

func (h *Handler) listJobs(c *gin.Context) {
	items := h.sched.List()
	byName := make(map[string]cron.ListItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	response.OK(c, byName)
}

func (h *Handler) runJob(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

func humanizeDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return d.Truncate(time.Second).String()
	case d < time.Hour:
		return d.Truncate(time.Minute).String()
	case d < 24*time.Hour:
		return d.Truncate(time.Hour).String()
	}
	return d.Truncate(24 * time.Hour).String()
}
