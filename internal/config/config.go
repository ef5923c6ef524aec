package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	AppEnv             string
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Content API
	ContentAPIURL string
	ContentAPIKey string

	// Database (async render jobs; empty disables them)
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase (empty disables upload, renders are kept in OutputDir)
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Rendering
	WorkDir               string
	OutputDir             string
	FontsDir              string
	DefaultFontFamily     string
	FFmpegPath            string
	ProbeTimeout          time.Duration
	AssetTimeout          time.Duration
	AssetConcurrency      int
	TrailingBufferSeconds float64
	TransitionSeconds     float64

	// Resource gate (0 disables a check)
	MinFreeMemoryMB float64
	MaxCPUPercent   float64

	// Word alignment when the content API has no word timestamps
	WordAligner string // none | openai | gemini
	OpenAIKey   string
	GeminiKey   string

	// Worker
	MaxConcurrentJobs int
	MaxJobAttempts    int
	MaxSyncRenders    int
}

func Load() (*Config, error) {
	cfg := LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv reads the environment without validating it.
func LoadEnv() *Config {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	return &Config{
		AppEnv:                getEnv("APP_ENV", "production"),
		APIPort:               getEnv("API_PORT", "3000"),
		WorkerEnabled:         getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:         getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		ContentAPIURL:         getEnv("CONTENT_API_URL", ""),
		ContentAPIKey:         getEnv("CONTENT_API_KEY", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:           getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:    getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBucket: getEnv("SUPABASE_STORAGE_BUCKET", "videos"),
		WorkDir:               getEnv("WORK_DIR", os.TempDir()),
		OutputDir:             getEnv("OUTPUT_DIR", "output"),
		FontsDir:              getEnv("FONTS_DIR", "fonts"),
		DefaultFontFamily:     getEnv("DEFAULT_FONT_FAMILY", ""),
		FFmpegPath:            getEnv("FFMPEG_PATH", "ffmpeg"),
		ProbeTimeout:          getEnvDuration("PROBE_TIMEOUT", 30*time.Second),
		AssetTimeout:          getEnvDuration("ASSET_TIMEOUT", 60*time.Second),
		AssetConcurrency:      getEnvInt("ASSET_CONCURRENCY", 8),
		TrailingBufferSeconds: getEnvFloat("TRAILING_BUFFER_SECONDS", 0.5),
		TransitionSeconds:     getEnvFloat("TRANSITION_SECONDS", 0.6),
		MinFreeMemoryMB:       getEnvFloat("MIN_FREE_MEMORY_MB", 512),
		MaxCPUPercent:         getEnvFloat("MAX_CPU_PERCENT", 90),
		WordAligner:           strings.ToLower(getEnv("WORD_ALIGNER", "none")),
		OpenAIKey:             getEnv("OPENAI_API_KEY", ""),
		GeminiKey:             getEnv("GEMINI_API_KEY", ""),
		MaxConcurrentJobs:     getEnvInt("MAX_CONCURRENT_JOBS", 2),
		MaxJobAttempts:        getEnvInt("MAX_JOB_ATTEMPTS", 3),
		MaxSyncRenders:        getEnvInt("MAX_SYNC_RENDERS", 2),
	}
}

// Validate checks the values the service cannot start without.
func (c *Config) Validate() error {
	if c.ContentAPIURL == "" {
		return fmt.Errorf("CONTENT_API_URL is required")
	}

	switch c.WordAligner {
	case "none", "":
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when WORD_ALIGNER=openai")
		}
	case "gemini":
		if c.GeminiKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when WORD_ALIGNER=gemini")
		}
	default:
		return fmt.Errorf("WORD_ALIGNER must be none, openai or gemini (got %q)", c.WordAligner)
	}

	if (c.SupabaseURL == "") != (c.SupabaseServiceKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set together")
	}

	if c.AssetConcurrency <= 0 || c.MaxSyncRenders <= 0 {
		return fmt.Errorf("ASSET_CONCURRENCY and MAX_SYNC_RENDERS must be positive")
	}

	return nil
}

// AsyncEnabled reports whether the job endpoints and worker can run.
func (c *Config) AsyncEnabled() bool {
	return c.DatabaseURL != "" && c.RedisURL != ""
}

// StorageEnabled reports whether renders are uploaded.
func (c *Config) StorageEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if s, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(s * float64(time.Second))
	}
	return defaultValue
}
