package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/modules/backup"
	pkgcron "github.com/sublimart/studio/internal/pkg/cron"
	"github.com/sublimart/studio/internal/pkg/session"
	"github.com/sublimart/studio/internal/pkg/taskqueue"
)

const (
	finishedTaskRetention = 7 * 24 * time.Hour
	backupsKept           = 7
)

// registerCronJobs registers the scheduled maintenance jobs.
func registerCronJobs(sched *pkgcron.Scheduler, sessions *session.Manager, queue *taskqueue.Service, backups *backup.Service, logger *zap.Logger) error {
	cronLogger := logger.Named("CronService")

	return errors.Join(
		sched.Register(pkgcron.Job{
			Name:        "purge_sessions",
			Description: "delete expired and revoked login sessions",
			Interval:    6 * time.Hour,
			Fn: func(ctx context.Context) error {
				n, err := sessions.PurgeExpired(time.Now())
				if err != nil {
					cronLogger.Warn("purge sessions failed", zap.Error(err))
					return err
				}
				cronLogger.Info("purged login sessions", zap.Int64("count", n))
				return nil
			},
		}),
		sched.Register(pkgcron.Job{
			Name:        "purge_tasks",
			Description: "delete finished background tasks older than a week",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				n, err := queue.DeleteFinished(ctx, time.Now().Add(-finishedTaskRetention))
				if err != nil {
					cronLogger.Warn("purge tasks failed", zap.Error(err))
					return err
				}
				cronLogger.Info("purged finished tasks", zap.Int("count", n))
				return nil
			},
		}),
		sched.Register(pkgcron.Job{
			Name:        "auto_backup",
			Description: "snapshot the database and keep the last seven archives",
			Interval:    24 * time.Hour,
			Fn: func(ctx context.Context) error {
				if err := backups.RunScheduled(ctx, backupsKept); err != nil {
					cronLogger.Warn("auto backup failed", zap.Error(err))
					return err
				}
				return nil
			},
		}),
	)
}
