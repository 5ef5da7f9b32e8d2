package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port" validate:"required,numeric"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Auth
	APIKey string `yaml:"api_key" validate:"required"`

	// CMS connection
	CMSURL        string        `yaml:"cms_url" validate:"omitempty,url"`
	CMSAPIKey     string        `yaml:"cms_api_key"`
	CMSTimeout    time.Duration `yaml:"cms_timeout" validate:"gt=0"`
	CMSMaxRetries int           `yaml:"cms_max_retries" validate:"gte=0"`

	// Document cache
	CacheBackend  string        `yaml:"cache_backend" validate:"oneof=memory redis"`
	CacheTTL      time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	CacheCapacity int           `yaml:"cache_capacity" validate:"gte=0"`
	RedisAddr     string        `yaml:"redis_addr" validate:"required_if=CacheBackend redis"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" validate:"gte=0"`

	// Worker pool
	WorkerCount  int `yaml:"worker_count" validate:"gt=0"`
	MaxQueueSize int `yaml:"max_queue_size" validate:"gt=0"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes" validate:"gt=0"`

	// Outline passages
	PassageTokens int `yaml:"passage_tokens" validate:"gt=0"`

	// Job state and stats
	JobTTL      time.Duration `yaml:"job_ttl" validate:"gt=0"`
	StatsWindow time.Duration `yaml:"stats_window" validate:"gt=0"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`

	MetricsEnabled bool `yaml:"metrics_enabled"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:     "8090",
		LogLevel: "info",

		CMSTimeout:    30 * time.Second,
		CMSMaxRetries: 3,

		CacheBackend:  "memory",
		CacheTTL:      24 * time.Hour,
		CacheCapacity: 1000,

		WorkerCount:  4,
		MaxQueueSize: 100,

		MaxUploadBytes: 52428800, // 50MB

		PassageTokens: 500,

		JobTTL:      1 * time.Hour,
		StatsWindow: 1 * time.Hour,

		PDFFallbackPdftotext: true,
		MetricsEnabled:       true,
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(envOr("LOG_LEVEL", cfg.LogLevel))

	cfg.APIKey = envOr("UBREADER_API_KEY", cfg.APIKey)

	cfg.CMSURL = envOr("CMS_URL", cfg.CMSURL)
	cfg.CMSAPIKey = envOr("CMS_API_KEY", cfg.CMSAPIKey)
	cfg.CMSTimeout = envDuration("CMS_TIMEOUT", cfg.CMSTimeout)
	cfg.CMSMaxRetries = envInt("CMS_MAX_RETRIES", cfg.CMSMaxRetries)

	cfg.CacheBackend = strings.ToLower(envOr("CACHE_BACKEND", cfg.CacheBackend))
	cfg.CacheTTL = envDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.CacheCapacity = envInt("CACHE_CAPACITY", cfg.CacheCapacity)
	cfg.RedisAddr = envOr("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envOr("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("REDIS_DB", cfg.RedisDB)

	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.PassageTokens = envInt("PASSAGE_TOKENS", cfg.PassageTokens)

	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)
	cfg.StatsWindow = envDuration("STATS_WINDOW", cfg.StatsWindow)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)
	cfg.MetricsEnabled = envBool("METRICS_ENABLED", cfg.MetricsEnabled)

	return cfg, nil
}

// Validate checks the struct tags and reports every failing field.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
