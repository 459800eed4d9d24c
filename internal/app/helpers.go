package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sublimart/studio/internal/config"
)

// applyRuntimeSettings sets the process timezone and prepares the
// directories the server writes to.
func applyRuntimeSettings(cfg *config.AppConfig, logger *zap.Logger) error {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		logger.Warn("jwt_secret is empty, sessions use the built-in signing key")
	}
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc := cfg.Location()
		logger.Info("timezone set", zap.String("tz", loc.String()))
		time.Local = loc
	}
	if err := os.MkdirAll(cfg.BackupDir(), 0o755); err != nil {
		return fmt.Errorf("backup dir: %w", err)
	}
	if !cfg.Storage.Enabled() {
		logger.Info("object storage not configured, previews and backups stay local")
	}
	return nil
}
