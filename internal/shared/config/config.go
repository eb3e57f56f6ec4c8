package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"patent-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Env             string   `env:"ENV" envDefault:"dev"`
	Port            string   `env:"PORT" envDefault:"8080"`
	CORSAllowOrigin []string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
	ServiceName     string   `env:"SERVICE_NAME" envDefault:"patent-backend"`
	LogDebug        bool     `env:"LOG_DEBUG"`
	OTelEndpoint    string   `env:"OTEL_ENDPOINT"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"pgx"`
	DatabaseURL    string `env:"DATABASE_URL"`

	ObjectStoreType string `env:"OBJECT_STORE" envDefault:"local"`
	LocalStoreDir   string `env:"LOCAL_STORE_DIR" envDefault:"./data"`
	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioRegion     string `env:"MINIO_REGION" envDefault:"us-east-1"`
	MinioBucket     string `env:"MINIO_BUCKET" envDefault:"patent-reports"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `env:"MINIO_SECRET_KEY"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL"`

	SearchAPIKey   string        `env:"SERPAPI_API_KEY"`
	SearchEndpoint string        `env:"SERPAPI_ENDPOINT" envDefault:"https://serpapi.com/search.json"`
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"24h"`

	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"gemini"`
	LLMModel        string `env:"LLM_MODEL"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`

	StageTimeout            time.Duration `env:"STAGE_TIMEOUT" envDefault:"30s"`
	UtilityConcurrent       bool          `env:"UTILITY_CONCURRENT"`
	RecommendationThreshold int           `env:"RECOMMENDATION_THRESHOLD" envDefault:"70"`
	UsageCostPer1KTokens    float64       `env:"USAGE_COST_PER_1K_TOKENS" envDefault:"0.05"`
	UsageDefaultTokens      int           `env:"USAGE_DEFAULT_TOKENS" envDefault:"1000"`
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Env = normalizeEnv(cfg.Env)
	cfg.DatabaseDriver = normalizeDriver(cfg.DatabaseDriver)
	cfg.ObjectStoreType = normalizeStoreType(cfg.ObjectStoreType)
	cfg.LLMProvider = normalizeProvider(cfg.LLMProvider)
	cfg.CORSAllowOrigin = trimAll(cfg.CORSAllowOrigin)

	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": cfg.Env})
	}
	if cfg.RecommendationThreshold < 1 || cfg.RecommendationThreshold > 100 {
		return Config{}, fmt.Errorf("RECOMMENDATION_THRESHOLD must be within 1..100, got %d", cfg.RecommendationThreshold)
	}
	if cfg.StageTimeout <= 0 {
		return Config{}, fmt.Errorf("STAGE_TIMEOUT must be positive, got %s", cfg.StageTimeout)
	}
	return cfg, nil
}

func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeDriver(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return "pgx"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "minio", "s3":
		return "minio"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "anthropic", "claude":
		return "anthropic"
	default:
		return "gemini"
	}
}
