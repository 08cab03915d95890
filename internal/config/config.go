package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the card generator server and worker.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	S3        S3Config
	OpenAI    OpenAIConfig
	Card      CardConfig
	Queue     QueueConfig
	Stream    StreamConfig
	RateLimit RateLimitConfig
	Sentry    SentryConfig
}

type ServerConfig struct {
	Port          int
	Env           string
	AllowOrigins  []string
	MaxUploadSize int64
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type S3Config struct {
	Endpoint            string
	AccessKeyID         string
	SecretAccessKey     string
	Region              string
	UseSSL              bool
	Bucket              string
	FolderPrefix        string
	HolidayFolderPrefix string
}

type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	ImageModel    string
	ImageSize     string
	PartialImages int
	Timeout       time.Duration
}

// CardConfig holds the layout constants for composed cards.
type CardConfig struct {
	BorderSize         int
	TitleAreaHeight    int
	FontSize           int
	BrandingAreaHeight int
	BrandingText       string
	MaxImageBytes      int
}

type QueueConfig struct {
	Workers      int
	ClaimTimeout time.Duration
	JobTTL       time.Duration
}

type StreamConfig struct {
	Timeout time.Duration
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type SentryConfig struct {
	DSN string
}

// Load reads configuration from environment variables (and a local .env file
// if present) and returns a validated Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("PORT", 8080),
			Env:           envString("APP_ENV", "development"),
			AllowOrigins:  splitCSV(envString("ALLOW_ORIGINS", "*")),
			MaxUploadSize: int64(envInt("MAX_UPLOAD_SIZE_BYTES", 4*1024*1024)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: envString("REDIS_URL", "redis://localhost:6379/0"),
		},
		S3: S3Config{
			Endpoint:            envString("S3_ENDPOINT", "s3.amazonaws.com"),
			AccessKeyID:         os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey:     os.Getenv("AWS_SECRET_ACCESS_KEY"),
			Region:              envString("AWS_REGION", "us-east-1"),
			UseSSL:              envBool("S3_USE_SSL", true),
			Bucket:              os.Getenv("S3_BUCKET_NAME"),
			FolderPrefix:        envString("S3_FOLDER_PREFIX", "hero-cards"),
			HolidayFolderPrefix: envString("S3_HOLIDAY_FOLDER_PREFIX", "holiday-cards"),
		},
		OpenAI: OpenAIConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			BaseURL:       envString("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:         envString("OPENAI_MODEL", "gpt-4o-mini"),
			ImageModel:    envString("IMAGE_GEN_MODEL", "gpt-image-1"),
			ImageSize:     envString("GENERATED_IMAGE_SIZE", "1024x1024"),
			PartialImages: envInt("PARTIAL_IMAGES", 3),
			Timeout:       envDuration("OPENAI_TIMEOUT", 240*time.Second),
		},
		Card: CardConfig{
			BorderSize:         envInt("CARD_BORDER_SIZE", 40),
			TitleAreaHeight:    envInt("CARD_TITLE_AREA_HEIGHT", 120),
			FontSize:           envInt("CARD_FONT_SIZE", 60),
			BrandingAreaHeight: envInt("CARD_BRANDING_AREA_HEIGHT", 100),
			BrandingText:       envString("CARD_BRANDING_TEXT", "fastruby.io"),
			MaxImageBytes:      envInt("MAX_IMAGE_BYTES", 1024*1024),
		},
		Queue: QueueConfig{
			Workers:      envInt("QUEUE_WORKERS", 4),
			ClaimTimeout: envDuration("QUEUE_CLAIM_TIMEOUT", 5*time.Second),
			JobTTL:       envDuration("QUEUE_JOB_TTL", time.Hour),
		},
		Stream: StreamConfig{
			Timeout: envDuration("STREAM_TIMEOUT", 300*time.Second),
		},
		RateLimit: RateLimitConfig{
			Requests: envInt("RATE_LIMIT_REQUESTS", 2),
			Window:   envDuration("RATE_LIMIT_WINDOW", 5*time.Second),
		},
		Sentry: SentryConfig{
			DSN: os.Getenv("SENTRY_DSN"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET_NAME is required")
	}

	if c.Queue.Workers <= 0 {
		return fmt.Errorf("QUEUE_WORKERS must be positive, got %d", c.Queue.Workers)
	}

	if c.Stream.Timeout <= 0 {
		return fmt.Errorf("STREAM_TIMEOUT must be positive, got %s", c.Stream.Timeout)
	}

	return nil
}

// Development reports whether the server runs with the development profile,
// which switches logging to the console handler.
func (c *Config) Development() bool {
	return c.Server.Env == "development"
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
