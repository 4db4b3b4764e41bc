package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	// Anthropic API
	AnthropicAPIKey  string
	AnthropicBaseURL string
	LLMModel         string
	LLMMaxTokens     int
	LLMTimeoutSecs   int

	// Content storage
	StorageBackend     string // "local" or "supabase"
	UploadDir          string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string
	MaxImageDimension  int

	// Database
	DatabaseURL string

	// Server
	Port         string
	Environment  string
	AllowOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		LLMModel:         getEnv("LLM_MODEL", "claude-sonnet-4-20250514"),
		LLMMaxTokens:     getEnvInt("LLM_MAX_TOKENS", 4096),
		LLMTimeoutSecs:   getEnvInt("LLM_TIMEOUT_SECONDS", 120),

		StorageBackend:     getEnv("STORAGE_BACKEND", "local"),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:     getEnv("SUPABASE_STORAGE_BUCKET", "babylog-uploads"),
		MaxImageDimension:  getEnvInt("MAX_IMAGE_DIMENSION", 2048),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Port:         getEnv("PORT", "3849"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		AllowOrigins: splitList(getEnv("ALLOW_ORIGINS", "http://localhost:5174")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.StorageBackend {
	case "local":
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR is required for local storage")
		}
	case "supabase":
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required for supabase storage")
		}
		if c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_SERVICE_KEY is required for supabase storage")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be \"local\" or \"supabase\", got %q", c.StorageBackend)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
