package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sublimart/studio/internal/canvas/geom"
	"github.com/sublimart/studio/internal/canvas/viewport"
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int                   `yaml:"port"`
	DSN            string                `yaml:"dsn"` // MySQL DSN
	RedisURL       string                `yaml:"redis_url"`
	Database       DatabaseRuntimeConfig `yaml:"database"`
	Redis          RedisRuntimeConfig    `yaml:"redis"`
	Storage        StorageRuntimeConfig  `yaml:"storage"`
	Canvas         CanvasRuntimeConfig   `yaml:"canvas"`
	Editor         EditorRuntimeConfig   `yaml:"editor"`
	Viewer         ViewerRuntimeConfig   `yaml:"viewer"`
	Env            string                `yaml:"env"` // "development" | "production"
	Paths          RuntimePathsConfig    `yaml:"paths"`
	LogRotateSize  *int                  `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int                  `yaml:"log_rotate_keep"`
	AllowedOrigins []string              `yaml:"allowed_origins"`
	JWTSecret      string                `yaml:"jwt_secret"`
	Timezone       string                `yaml:"timezone"`
}

type DatabaseRuntimeConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime bool              `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type RedisRuntimeConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       int               `yaml:"db"`
	TLS      bool              `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

// StorageRuntimeConfig points at an S3-compatible bucket for rendered
// previews. Storage is disabled when Endpoint or the keys are empty.
type StorageRuntimeConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	PublicURL       string `yaml:"public_url"`
	Prefix          string `yaml:"prefix"`
}

// Enabled reports whether enough is configured to talk to the bucket.
func (s StorageRuntimeConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != "" && s.Bucket != ""
}

type CanvasRuntimeConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Margin   float64 `yaml:"margin"`
	MinZoom  float64 `yaml:"min_zoom"`
	MaxZoom  float64 `yaml:"max_zoom"`
	ZoomStep float64 `yaml:"zoom_step"`
}

// Viewport converts the canvas section into the editor's view config.
func (c CanvasRuntimeConfig) Viewport() viewport.Config {
	return viewport.Config{
		Canvas:   geom.Size{Width: c.Width, Height: c.Height},
		Margin:   c.Margin,
		MinZoom:  c.MinZoom,
		MaxZoom:  c.MaxZoom,
		ZoomStep: c.ZoomStep,
	}
}

type EditorRuntimeConfig struct {
	HistoryLimit      int     `yaml:"history_limit"`
	SessionTTLMinutes int     `yaml:"session_ttl_minutes"`
	DuplicateOffset   float64 `yaml:"duplicate_offset"`
}

// SessionTTL is how long an idle editor session is kept.
func (e EditorRuntimeConfig) SessionTTL() time.Duration {
	return time.Duration(e.SessionTTLMinutes) * time.Minute
}

type ViewerRuntimeConfig struct {
	ImageTimeoutSeconds int      `yaml:"image_timeout_seconds"`
	CachePreviews       bool     `yaml:"cache_previews"`
	AllowedImageHosts   []string `yaml:"allowed_image_hosts"` // empty allows any host
}

// ImageTimeout bounds each image fetch of a render.
func (v ViewerRuntimeConfig) ImageTimeout() time.Duration {
	return time.Duration(v.ImageTimeoutSeconds) * time.Second
}

type RuntimePathsConfig struct {
	Logs    string `yaml:"logs"`
	Static  string `yaml:"static"`
	Backups string `yaml:"backups"`
}

type rawAppConfig struct {
	Port           int               `yaml:"port"`
	DSN            string            `yaml:"dsn"`
	RedisURL       string            `yaml:"redis_url"`
	Database       rawDatabaseConfig `yaml:"database"`
	Redis          rawRedisConfig    `yaml:"redis"`
	Storage        rawStorageConfig  `yaml:"storage"`
	Canvas         rawCanvasConfig   `yaml:"canvas"`
	Editor         rawEditorConfig   `yaml:"editor"`
	Viewer         rawViewerConfig   `yaml:"viewer"`
	Env            string            `yaml:"env"`
	Paths          rawPathsConfig    `yaml:"paths"`
	LogRotateSize  *int              `yaml:"log_rotate_size_mb"`
	LogRotateKeep  *int              `yaml:"log_rotate_keep"`
	AllowedOrigins []string          `yaml:"allowed_origins"`
	JWTSecret      string            `yaml:"jwt_secret"`
	Timezone       string            `yaml:"timezone"`
}

type rawDatabaseConfig struct {
	DSN       string            `yaml:"dsn"`
	Host      string            `yaml:"host"`
	Port      int               `yaml:"port"`
	User      string            `yaml:"user"`
	Password  string            `yaml:"password"`
	Name      string            `yaml:"name"`
	Charset   string            `yaml:"charset"`
	ParseTime *bool             `yaml:"parse_time"`
	Loc       string            `yaml:"loc"`
	Params    map[string]string `yaml:"params"`
}

type rawRedisConfig struct {
	URL      string            `yaml:"url"`
	Host     string            `yaml:"host"`
	Port     int               `yaml:"port"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`
	DB       *int              `yaml:"db"`
	TLS      *bool             `yaml:"tls"`
	Scheme   string            `yaml:"scheme"`
	Params   map[string]string `yaml:"params"`
}

type rawStorageConfig struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Bucket          string `yaml:"bucket"`
	PublicURL       string `yaml:"public_url"`
	Prefix          string `yaml:"prefix"`
}

type rawCanvasConfig struct {
	Width    *float64 `yaml:"width"`
	Height   *float64 `yaml:"height"`
	Margin   *float64 `yaml:"margin"`
	MinZoom  *float64 `yaml:"min_zoom"`
	MaxZoom  *float64 `yaml:"max_zoom"`
	ZoomStep *float64 `yaml:"zoom_step"`
}

type rawEditorConfig struct {
	HistoryLimit      *int     `yaml:"history_limit"`
	SessionTTLMinutes *int     `yaml:"session_ttl_minutes"`
	DuplicateOffset   *float64 `yaml:"duplicate_offset"`
}

type rawViewerConfig struct {
	ImageTimeoutSeconds *int     `yaml:"image_timeout_seconds"`
	CachePreviews       *bool    `yaml:"cache_previews"`
	AllowedImageHosts   []string `yaml:"allowed_image_hosts"`
}

type rawPathsConfig struct {
	Logs    string `yaml:"logs"`
	Static  string `yaml:"static"`
	Backups string `yaml:"backups"`
}

func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML document. Unknown keys are rejected.
func Parse(content []byte) (*AppConfig, error) {
	cfg := defaultAppConfig()
	raw := rawAppConfig{}
	if len(bytes.TrimSpace(content)) > 0 {
		decoder := yaml.NewDecoder(bytes.NewReader(content))
		decoder.KnownFields(true)
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
	}

	applyRawAppConfig(&cfg, raw)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d, expected 1-65535", c.Port)
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database.port %d, expected 1-65535", c.Database.Port)
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		return fmt.Errorf("invalid redis.port %d, expected 1-65535", c.Redis.Port)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("invalid redis.db %d, expected >= 0", c.Redis.DB)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return fmt.Errorf("invalid canvas size %vx%v", c.Canvas.Width, c.Canvas.Height)
	}
	if c.Canvas.Margin <= 0 || c.Canvas.Margin > 1 {
		return fmt.Errorf("invalid canvas.margin %v, expected (0, 1]", c.Canvas.Margin)
	}
	if c.Canvas.MinZoom <= 0 || c.Canvas.MaxZoom < c.Canvas.MinZoom {
		return fmt.Errorf("invalid zoom range [%v, %v]", c.Canvas.MinZoom, c.Canvas.MaxZoom)
	}
	if c.Canvas.ZoomStep <= 1 {
		return fmt.Errorf("invalid canvas.zoom_step %v, expected > 1", c.Canvas.ZoomStep)
	}
	if c.Editor.HistoryLimit < 1 {
		return fmt.Errorf("invalid editor.history_limit %d, expected >= 1", c.Editor.HistoryLimit)
	}
	if c.Editor.SessionTTLMinutes < 1 {
		return fmt.Errorf("invalid editor.session_ttl_minutes %d, expected >= 1", c.Editor.SessionTTLMinutes)
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
		}
	}
	return nil
}

func defaultAppConfig() AppConfig {
	cfg := AppConfig{
		Port: defaultPort,
		Env:  defaultEnv,
		Database: DatabaseRuntimeConfig{
			Host:      defaultDBHost,
			Port:      defaultDBPort,
			User:      defaultDBUser,
			Password:  defaultDBPassword,
			Name:      defaultDBName,
			Charset:   defaultDBCharset,
			ParseTime: true,
			Loc:       defaultDBLoc,
		},
		Redis: RedisRuntimeConfig{
			Host: defaultRedisHost,
			Port: defaultRedisPort,
			DB:   defaultRedisDB,
		},
		Storage: StorageRuntimeConfig{
			Region: defaultS3Region,
			Prefix: defaultS3Prefix,
		},
		Canvas: CanvasRuntimeConfig{
			Width:    defaultCanvasWidth,
			Height:   defaultCanvasHeight,
			Margin:   defaultCanvasMargin,
			MinZoom:  defaultMinZoom,
			MaxZoom:  defaultMaxZoom,
			ZoomStep: defaultZoomStep,
		},
		Editor: EditorRuntimeConfig{
			HistoryLimit:      defaultHistoryLimit,
			SessionTTLMinutes: defaultSessionTTL,
			DuplicateOffset:   defaultDuplicateOffset,
		},
		Viewer: ViewerRuntimeConfig{
			ImageTimeoutSeconds: defaultImageTimeout,
			CachePreviews:       true,
		},
	}
	cfg.Database = normalizeDatabaseConfig(cfg.Database)
	cfg.Redis = normalizeRedisConfig(cfg.Redis)
	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	return cfg
}

func applyRawAppConfig(cfg *AppConfig, raw rawAppConfig) {
	if raw.Port != 0 {
		cfg.Port = raw.Port
	}
	cfg.Database = applyRawDatabaseConfig(cfg.Database, raw)
	cfg.Redis = applyRawRedisConfig(cfg.Redis, raw)
	cfg.Storage = applyRawStorageConfig(cfg.Storage, raw.Storage)
	cfg.Canvas = applyRawCanvasConfig(cfg.Canvas, raw.Canvas)
	cfg.Editor = applyRawEditorConfig(cfg.Editor, raw.Editor)
	if raw.Viewer.ImageTimeoutSeconds != nil {
		cfg.Viewer.ImageTimeoutSeconds = *raw.Viewer.ImageTimeoutSeconds
	}
	if raw.Viewer.CachePreviews != nil {
		cfg.Viewer.CachePreviews = *raw.Viewer.CachePreviews
	}
	if raw.Viewer.AllowedImageHosts != nil {
		cfg.Viewer.AllowedImageHosts = normalizeHosts(raw.Viewer.AllowedImageHosts)
	}
	if cfg.Viewer.ImageTimeoutSeconds <= 0 {
		cfg.Viewer.ImageTimeoutSeconds = defaultImageTimeout
	}

	if v := strings.TrimSpace(raw.Env); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(raw.Paths.Logs); v != "" {
		cfg.Paths.Logs = v
	}
	if v := strings.TrimSpace(raw.Paths.Static); v != "" {
		cfg.Paths.Static = v
	}
	if v := strings.TrimSpace(raw.Paths.Backups); v != "" {
		cfg.Paths.Backups = v
	}
	if raw.LogRotateSize != nil {
		v := *raw.LogRotateSize
		cfg.LogRotateSize = &v
	}
	if raw.LogRotateKeep != nil {
		v := *raw.LogRotateKeep
		cfg.LogRotateKeep = &v
	}
	if raw.AllowedOrigins != nil {
		cfg.AllowedOrigins = normalizeOrigins(raw.AllowedOrigins)
	}
	if v := strings.TrimSpace(raw.JWTSecret); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(raw.Timezone); v != "" {
		cfg.Timezone = v
	}

	cfg.DSN = cfg.Database.DSNValue()
	cfg.RedisURL = cfg.Redis.URLValue()
	cfg.Paths = normalizeRuntimePaths(cfg.Paths)
	cfg.Env = normalizeEnv(cfg.Env)
}

func applyRawDatabaseConfig(current DatabaseRuntimeConfig, raw rawAppConfig) DatabaseRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Database.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.DSN); v != "" {
		cfg.DSN = v
	}
	if v := strings.TrimSpace(raw.Database.Host); v != "" {
		cfg.Host = v
	}
	if raw.Database.Port != 0 {
		cfg.Port = raw.Database.Port
	}
	if v := strings.TrimSpace(raw.Database.User); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(raw.Database.Password); v != "" {
		cfg.Password = v
	}
	if v := strings.TrimSpace(raw.Database.Name); v != "" {
		cfg.Name = v
	}
	if v := strings.TrimSpace(raw.Database.Charset); v != "" {
		cfg.Charset = v
	}
	if raw.Database.ParseTime != nil {
		cfg.ParseTime = *raw.Database.ParseTime
	}
	if v := strings.TrimSpace(raw.Database.Loc); v != "" {
		cfg.Loc = v
	}
	if raw.Database.Params != nil {
		cfg.Params = copyStringMap(raw.Database.Params)
	}

	return normalizeDatabaseConfig(cfg)
}

func applyRawRedisConfig(current RedisRuntimeConfig, raw rawAppConfig) RedisRuntimeConfig {
	cfg := current

	if v := strings.TrimSpace(raw.Redis.URL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.RedisURL); v != "" {
		cfg.URL = v
	}
	if v := strings.TrimSpace(raw.Redis.Host); v != "" {
		cfg.Host = v
	}
	if raw.Redis.Port != 0 {
		cfg.Port = raw.Redis.Port
	}
	if v := strings.TrimSpace(raw.Redis.Username); v != "" {
		cfg.Username = v
	}
	if v := strings.TrimSpace(raw.Redis.Password); v != "" {
		cfg.Password = v
	}
	if raw.Redis.DB != nil {
		cfg.DB = *raw.Redis.DB
	}
	if raw.Redis.TLS != nil {
		cfg.TLS = *raw.Redis.TLS
	}
	if v := strings.TrimSpace(raw.Redis.Scheme); v != "" {
		cfg.Scheme = v
	}
	if raw.Redis.Params != nil {
		cfg.Params = copyStringMap(raw.Redis.Params)
	}

	return normalizeRedisConfig(cfg)
}

func applyRawStorageConfig(cfg StorageRuntimeConfig, raw rawStorageConfig) StorageRuntimeConfig {
	if v := strings.TrimSpace(raw.Endpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := strings.TrimSpace(raw.Region); v != "" {
		cfg.Region = v
	}
	if v := strings.TrimSpace(raw.AccessKeyID); v != "" {
		cfg.AccessKeyID = v
	}
	if v := strings.TrimSpace(raw.SecretAccessKey); v != "" {
		cfg.SecretAccessKey = v
	}
	if v := strings.TrimSpace(raw.Bucket); v != "" {
		cfg.Bucket = v
	}
	if v := strings.TrimSpace(raw.PublicURL); v != "" {
		cfg.PublicURL = v
	}
	if v := strings.TrimSpace(raw.Prefix); v != "" {
		cfg.Prefix = v
	}
	return normalizeStorageConfig(cfg)
}

func applyRawCanvasConfig(cfg CanvasRuntimeConfig, raw rawCanvasConfig) CanvasRuntimeConfig {
	setFloat(&cfg.Width, raw.Width)
	setFloat(&cfg.Height, raw.Height)
	setFloat(&cfg.Margin, raw.Margin)
	setFloat(&cfg.MinZoom, raw.MinZoom)
	setFloat(&cfg.MaxZoom, raw.MaxZoom)
	setFloat(&cfg.ZoomStep, raw.ZoomStep)
	return cfg
}

func applyRawEditorConfig(cfg EditorRuntimeConfig, raw rawEditorConfig) EditorRuntimeConfig {
	if raw.HistoryLimit != nil {
		cfg.HistoryLimit = *raw.HistoryLimit
	}
	if raw.SessionTTLMinutes != nil {
		cfg.SessionTTLMinutes = *raw.SessionTTLMinutes
	}
	setFloat(&cfg.DuplicateOffset, raw.DuplicateOffset)
	return cfg
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, defaultEnv)
}

func (c *AppConfig) LogDir() string {
	if c == nil {
		return ResolveRuntimePath("", "logs")
	}
	return ResolveRuntimePath(c.Paths.Logs, "logs")
}

func (c *AppConfig) LogRotateSizeMB() (int, bool) {
	if c == nil || c.LogRotateSize == nil {
		return 0, false
	}
	return *c.LogRotateSize, true
}

func (c *AppConfig) LogRotateKeepCount() (int, bool) {
	if c == nil || c.LogRotateKeep == nil {
		return 0, false
	}
	return *c.LogRotateKeep, true
}

func (c *AppConfig) StaticDir() string {
	if c == nil {
		return ResolveRuntimePath("", "static")
	}
	return ResolveRuntimePath(c.Paths.Static, "static")
}

// BackupDir is where database snapshots are written.
func (c *AppConfig) BackupDir() string {
	if c == nil {
		return ResolveRuntimePath("", "backups")
	}
	return ResolveRuntimePath(c.Paths.Backups, "backups")
}

// Location returns the configured timezone, falling back to local time.
func (c *AppConfig) Location() *time.Location {
	if c == nil || c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
