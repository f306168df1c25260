package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/resize.cheap/internal/transform"
)

type Config struct {
	Port          int
	MetricsPort   int
	MaxUploadSize int64
	BaseURL       string

	Environment string
	LogLevel    string

	RedisURL string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
	MinIORegion    string

	WorkerConcurrency int
	JobTimeout        time.Duration
	ResultTTL         time.Duration

	RateLimit   int
	RateWindow  time.Duration
	CORSOrigins []string

	Transform *transform.Config

	OTelEnabled    bool
	OTelEndpoint   string
	OTelSampleRate float64
}

// Load reads the full server configuration. Redis and MinIO are required.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	cfg.Port = getEnvInt("PORT", 8080)
	cfg.MetricsPort = getEnvInt("METRICS_PORT", 9090)
	cfg.MaxUploadSize = getEnvInt64("MAX_UPLOAD_SIZE", 25*1024*1024)
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")

	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	cfg.MinIOEndpoint = os.Getenv("MINIO_ENDPOINT")
	if cfg.MinIOEndpoint == "" {
		return nil, fmt.Errorf("MINIO_ENDPOINT is required")
	}

	cfg.MinIOAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	if cfg.MinIOAccessKey == "" {
		return nil, fmt.Errorf("MINIO_ACCESS_KEY is required")
	}

	cfg.MinIOSecretKey = os.Getenv("MINIO_SECRET_KEY")
	if cfg.MinIOSecretKey == "" {
		return nil, fmt.Errorf("MINIO_SECRET_KEY is required")
	}

	cfg.MinIOBucket = getEnvString("MINIO_BUCKET", "resize")
	cfg.MinIOUseSSL = getEnvBool("MINIO_USE_SSL", false)
	cfg.MinIORegion = getEnvString("MINIO_REGION", "us-east-1")

	cfg.WorkerConcurrency = getEnvInt("WORKER_CONCURRENCY", 4)
	cfg.JobTimeout, err = getEnvDuration("JOB_TIMEOUT", "2m")
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
	}
	cfg.ResultTTL, err = getEnvDuration("RESULT_TTL", "24h")
	if err != nil {
		return nil, fmt.Errorf("invalid RESULT_TTL: %w", err)
	}

	cfg.RateLimit = getEnvInt("RATE_LIMIT", 60)
	cfg.RateWindow, err = getEnvDuration("RATE_WINDOW", "1m")
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_WINDOW: %w", err)
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	cfg.Environment = getEnvString("ENVIRONMENT", "development")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	cfg.OTelEnabled = getEnvBool("OTEL_ENABLED", false)
	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	cfg.OTelSampleRate = getEnvFloat("OTEL_SAMPLE_RATE", 1.0)

	cfg.Transform = LoadTransform()

	return cfg, nil
}

// LoadTransform reads only the transform settings; it never fails so the
// CLI can run without any server infrastructure configured.
func LoadTransform() *transform.Config {
	tc := transform.DefaultConfig()
	tc.QualityFloor = getEnvFloat("QUALITY_FLOOR", tc.QualityFloor)
	tc.MaxSourcePixels = getEnvInt("TRANSFORM_MAX_SOURCE_PIXELS", tc.MaxSourcePixels)
	tc.MaxOutputPixels = getEnvInt("TRANSFORM_MAX_PIXELS", tc.MaxOutputPixels)
	tc.Filter = getEnvString("TRANSFORM_FILTER", tc.Filter)
	tc.Concurrency = getEnvInt("TRANSFORM_CONCURRENCY", tc.Concurrency)
	return tc
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key, defaultValue string) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	return time.ParseDuration(value)
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.MetricsPort < 1 || c.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.MetricsPort)
	}

	if c.MaxUploadSize < 1 {
		return fmt.Errorf("invalid max upload size: %d", c.MaxUploadSize)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("invalid worker concurrency: %d", c.WorkerConcurrency)
	}

	if c.ResultTTL <= 0 {
		return fmt.Errorf("invalid result ttl: %s", c.ResultTTL)
	}

	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid otel sample rate: %v", c.OTelSampleRate)
	}

	return c.Transform.Validate()
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
