package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port           string
	AllowedOrigins string
	RateLimit      int
	MaxUploadBytes int64
	UploadsDir     string

	// Providers
	TextProvider     string
	DiagramProvider  string
	ProviderTimeout  time.Duration
	RetryAttempts    int
	RetryBaseDelay   time.Duration
	MaxImageEdge     int
	MaxImagePixels   int
	TesseractLangs   []string
	RoboflowURL      string
	RoboflowAPIKey   string
	RoboflowMinScore float64

	// Sessions
	DatabaseURL string

	// Exports
	ExportsDir    string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3UseSSL      bool
	S3Region      string
	PresignExpiry time.Duration
	PublicBaseURL string
	DefaultTheme  string
	DefaultLayout string

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port:             getEnv("PORT", "8888"),
		AllowedOrigins:   getEnv("ALLOWED_ORIGINS", "*"),
		RateLimit:        getIntEnv("BOARDDECK_RATE_LIMIT", 60),
		MaxUploadBytes:   int64(getIntEnv("BOARDDECK_MAX_UPLOAD_MB", 10)) * 1024 * 1024,
		UploadsDir:       getEnv("BOARDDECK_UPLOADS_DIR", "uploads"),
		TextProvider:     getEnv("BOARDDECK_TEXT_PROVIDER", "ollama"),
		DiagramProvider:  getEnv("BOARDDECK_DIAGRAM_PROVIDER", "ollama"),
		ProviderTimeout:  getDurationEnv("BOARDDECK_PROVIDER_TIMEOUT", 120*time.Second),
		RetryAttempts:    getIntEnv("BOARDDECK_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:   getDurationEnv("BOARDDECK_RETRY_BASE_DELAY", 500*time.Millisecond),
		MaxImageEdge:     getIntEnv("BOARDDECK_MAX_IMAGE_EDGE", 2048),
		MaxImagePixels:   getIntEnv("BOARDDECK_MAX_IMAGE_PIXELS", 50_000_000),
		TesseractLangs:   strings.Split(getEnv("TESSERACT_LANGS", "eng"), ","),
		RoboflowURL:      getEnv("ROBOFLOW_URL", "https://detect.roboflow.com"),
		RoboflowAPIKey:   getEnv("ROBOFLOW_API_KEY", ""),
		RoboflowMinScore: getFloatEnv("ROBOFLOW_MIN_CONFIDENCE", 0.4),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ExportsDir:       getEnv("BOARDDECK_EXPORTS_DIR", "exports"),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3AccessKey:      getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:      getEnv("S3_SECRET_KEY", ""),
		S3Bucket:         getEnv("S3_BUCKET", "boarddeck-exports"),
		S3UseSSL:         getBoolEnv("S3_USE_SSL", true),
		S3Region:         getEnv("S3_REGION", "us-east-1"),
		PresignExpiry:    getDurationEnv("S3_PRESIGN_EXPIRY", 24*time.Hour),
		PublicBaseURL:    strings.TrimRight(getEnv("BOARDDECK_PUBLIC_URL", ""), "/"),
		DefaultTheme:     getEnv("BOARDDECK_DEFAULT_THEME", "light"),
		DefaultLayout:    getEnv("BOARDDECK_DEFAULT_TEMPLATE", "prof-1"),
		LogLevel:         getEnv("BOARDDECK_LOG_LEVEL", "info"),
		LogFormat:        getEnv("BOARDDECK_LOG_FORMAT", "text"),
	}
}

// UseS3 reports whether exports go to object storage instead of the local exports directory.
func (c *Config) UseS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != ""
}

// UsePostgres reports whether sessions are persisted in postgres instead of memory.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// SetupLogging installs the default slog logger according to LogLevel and LogFormat.
func (c *Config) SetupLogging() {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(c.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getDurationEnv accepts Go durations ("90s") or a bare number of seconds.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
