package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sublimart/studio/internal/canvas/viewer"
	"github.com/sublimart/studio/internal/middleware"
	"github.com/sublimart/studio/internal/models"
	"github.com/sublimart/studio/internal/modules/auth/user"
	"github.com/sublimart/studio/internal/modules/backup"
	"github.com/sublimart/studio/internal/modules/design"
	"github.com/sublimart/studio/internal/modules/editor"
	"github.com/sublimart/studio/internal/modules/product"
	"github.com/sublimart/studio/internal/modules/system/health"
	"github.com/sublimart/studio/internal/modules/tasks"
	jwtpkg "github.com/sublimart/studio/internal/pkg/jwt"
	"github.com/sublimart/studio/internal/pkg/response"
	"github.com/sublimart/studio/internal/pkg/session"
	"github.com/sublimart/studio/internal/pkg/storage"
	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

const (
	apiPrefix = "/api/v1"
	version   = "1.0.0"

	rateLimit       = 300
	rateLimitWindow = time.Minute
)

func (a *App) registerRoutes(ctx context.Context) error {
	r := a.router
	cfg := a.cfg
	kv := middleware.RedisKV(a.rc)

	sessions := session.NewManager(a.db, jwtpkg.NewSigner(cfg.JWTSecret), 0)
	authMW := middleware.Auth(sessions)
	ownerMW := []gin.HandlerFunc{authMW, middleware.RequireRole(models.RoleOwner)}

	r.NoRoute(func(c *gin.Context) { response.NotFound(c) })
	r.NoMethod(func(c *gin.Context) { response.MethodNotAllowed(c) })

	r.Use(middleware.OptionalAuth(sessions))
	r.Use(middleware.RateLimit(kv, rateLimit, rateLimitWindow, a.logger))
	r.Use(middleware.Idempotence(kv))

	api := r.Group(apiPrefix)

	// Services
	queue := taskqueue.NewService(a.rc, taskqueue.WithLogger(a.logger))
	productSvc := product.NewService(a.db, product.WithLogger(a.logger))
	renderer := viewer.NewRenderer(
		viewer.NewHTTPLoader(cfg.Viewer.ImageTimeout(), cfg.Viewer.AllowedImageHosts...),
		viewer.WithLogger(a.logger),
		viewer.WithMargin(cfg.Canvas.Margin),
	)
	designOpts := []design.ServiceOption{design.WithLogger(a.logger), design.WithQueue(queue)}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}
	// A nil *storage.Client must not become a non-nil ObjectStore.
	if store != nil && cfg.Viewer.CachePreviews {
		designOpts = append(designOpts, design.WithStore(store))
	} else {
		a.logger.Info("preview caching disabled")
	}
	backupOpts := []backup.ServiceOption{backup.WithLogger(a.logger)}
	if store != nil {
		backupOpts = append(backupOpts, backup.WithUploader(store))
	}
	backupSvc := backup.NewService(a.db, cfg.BackupDir(), backupOpts...)
	designSvc := design.NewService(a.db, productSvc, renderer, designOpts...)
	editorSvc := editor.NewService(editor.NewRedisStore(a.rc), productSvc, designSvc, editor.Config{
		Viewport:        cfg.Canvas.Viewport(),
		HistoryLimit:    cfg.Editor.HistoryLimit,
		DuplicateOffset: cfg.Editor.DuplicateOffset,
		TTL:             cfg.Editor.SessionTTL(),
	}, editor.WithLogger(a.logger))

	// Routes
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"name": "sublimart-studio", "version": version, "api": apiPrefix})
	})
	health.NewHandler(a.sched, version, map[string]health.Pinger{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error { return a.rc.Raw().Ping(ctx).Err() },
	}).RegisterRoutes(api, ownerMW...)

	user.NewHandler(user.NewService(a.db, sessions, user.WithLogger(a.logger))).RegisterRoutes(api, authMW)

	product.NewHandler(productSvc,
		product.WithReadMiddleware(middleware.HTTPCache(kv, middleware.HTTPCacheOptions{TTL: 15 * time.Second})),
		product.WithInvalidator(func(ctx context.Context) error { return middleware.PurgeHTTPCache(ctx, kv) }),
		product.WithHandlerLogger(a.logger),
	).RegisterRoutes(api, authMW)

	design.NewHandler(designSvc).RegisterRoutes(api, authMW)
	editor.NewHandler(editorSvc).RegisterRoutes(api, authMW)
	tasks.NewHandler(queue).RegisterRoutes(api, ownerMW...)
	backup.NewHandler(backupSvc,
		backup.WithRestoreHook(func(ctx context.Context) error { return middleware.PurgeHTTPCache(ctx, kv) }),
		backup.WithHandlerLogger(a.logger),
	).RegisterRoutes(api, ownerMW...)

	// Workers
	go queue.Run(ctx, map[string]taskqueue.Handler{
		design.PreviewTask: designSvc.PreviewTaskHandler(),
	})
	return registerCronJobs(a.sched, sessions, queue, backupSvc, a.logger)
}
