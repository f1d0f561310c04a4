package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/kairoshq/kairos/internal/domain"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL
	BaseURL string

	// AI provider configuration. When a key is empty the corresponding
	// adapter is replaced by the mock provider in development.
	AIProvider         string // "live" or "mock"
	AnthropicAPIKey    string
	GoogleAPIKey       string
	GroqAPIKey         string
	DefaultModel       string // Chat model when neither request nor agent names one
	TitleModel         string // Cheap model used for title regeneration
	VisionModel        string // Groq vision model
	AIRequestTimeout   time.Duration
	AIMaxRetries       int
	AIRetryBaseDelay   time.Duration
	MemoryRoot         string // Sandbox root for the Claude memory tool
	DefaultMaxTokens   int
	DefaultTemperature float64

	// Quota limit overrides keyed by tier then action. Only values present
	// in the environment appear here; the quota catalog fills in defaults.
	QuotaOverrides map[domain.PlanTier]map[domain.Action]int

	// Worker configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// Storage configuration
	StorageProvider string // "local" or "r2"

	// Local storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Metrics endpoint authentication.
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		AIProvider:         getEnv("AI_PROVIDER", "mock"),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		GoogleAPIKey:       getEnv("GOOGLE_API_KEY", ""),
		GroqAPIKey:         getEnv("GROQ_API_KEY", ""),
		DefaultModel:       getEnv("AI_DEFAULT_MODEL", ""),
		TitleModel:         getEnv("TITLE_MODEL", "gemini-1.5-flash"),
		VisionModel:        getEnv("VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		AIRequestTimeout:   getEnvDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
		AIMaxRetries:       getEnvInt("AI_MAX_RETRIES", 3),
		AIRetryBaseDelay:   getEnvDuration("AI_RETRY_BASE_DELAY", 1*time.Second),
		MemoryRoot:         getEnv("MEMORY_ROOT", "./memories"),
		DefaultMaxTokens:   getEnvInt("AI_DEFAULT_MAX_TOKENS", 4096),
		DefaultTemperature: getEnvFloat("AI_DEFAULT_TEMPERATURE", 0.7),

		QuotaOverrides: loadQuotaOverrides(),

		// Worker defaults
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 2*time.Minute),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	cfg.DatabaseUrl = getEnv("DATABASE_URL", "")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.AIProvider != "live" && cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be \"live\" or \"mock\", got %q", cfg.AIProvider)
	}
	if cfg.AIProvider == "live" && cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required when AI_PROVIDER=live")
	}

	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2 storage requires R2_ACCOUNT_ID, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY and R2_BUCKET_NAME")
		}
	}

	return cfg, nil
}

// loadQuotaOverrides reads QUOTA_<TIER>_<ACTION> environment variables, e.g.
// QUOTA_FREE_API_CALLS_PER_DAY=1000. Only values actually set appear in the
// returned map; the quota catalog supplies defaults for the rest.
func loadQuotaOverrides() map[domain.PlanTier]map[domain.Action]int {
	overrides := make(map[domain.PlanTier]map[domain.Action]int)

	tiers := []domain.PlanTier{domain.PlanTierFree, domain.PlanTierPro, domain.PlanTierEnterprise}
	for _, tier := range tiers {
		for _, action := range domain.Actions {
			key := fmt.Sprintf("QUOTA_%s_%s",
				strings.ToUpper(string(tier)),
				strings.ToUpper(string(action)),
			)
			raw := os.Getenv(key)
			if raw == "" {
				continue
			}
			value, err := strconv.Atoi(raw)
			if err != nil || value < 0 {
				continue
			}
			if overrides[tier] == nil {
				overrides[tier] = make(map[domain.Action]int)
			}
			overrides[tier][action] = value
		}
	}

	return overrides
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
