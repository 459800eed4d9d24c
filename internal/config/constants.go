package config

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "sublimart"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultRedisHost  = "localhost"
	defaultRedisPort  = 6379
	defaultRedisDB    = 0
	defaultS3Region   = "us-east-1"
	defaultS3Prefix   = "previews"

	defaultCanvasWidth     = 800
	defaultCanvasHeight    = 600
	defaultCanvasMargin    = 0.9
	defaultMinZoom         = 0.1
	defaultMaxZoom         = 5
	defaultZoomStep        = 1.2
	defaultHistoryLimit    = 50
	defaultSessionTTL      = 720
	defaultDuplicateOffset = 20
	defaultImageTimeout    = 10
)
