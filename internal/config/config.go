package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/PabloGalante/aiva-chat/internal/domain"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	Port string

	GeminiAPIKey string
	GCPProjectID string
	GCPLocation  string
	ModelName    string
	UseMockLLM   bool // true = use mock even with credentials

	StorageBackend  string // "memory", "file", "redis" or "firestore"
	StorageDir      string
	RedisURL        string
	StoragePrefix   string
	StoreQuotaBytes int
	StoreTimeout    time.Duration

	NoticeTTL time.Duration
	LogLevel  string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// Load reads all env vars and builds the config.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	_ = godotenv.Load()

	modeStr := getEnv("AIVA_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	return &Config{
		Mode: mode,

		Port: getEnv("AIVA_PORT", "8080"),

		GeminiAPIKey: getEnv("AIVA_GEMINI_API_KEY", os.Getenv("API_KEY")),
		GCPProjectID: getEnv("AIVA_GCP_PROJECT", ""),
		GCPLocation:  getEnv("AIVA_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("AIVA_MODEL_NAME", "gemini-2.5-flash"),
		UseMockLLM:   getBoolEnv("AIVA_USE_MOCK_LLM", mode == ModeLocal),

		StorageBackend:  getEnv("AIVA_STORAGE_BACKEND", "memory"),
		StorageDir:      getEnv("AIVA_STORAGE_DIR", ".aiva"),
		RedisURL:        getEnv("AIVA_REDIS_URL", ""),
		StoragePrefix:   getEnv("AIVA_STORAGE_PREFIX", "aivaChatHistory"),
		StoreQuotaBytes: getIntEnv("AIVA_STORE_QUOTA_BYTES", 5<<20),
		StoreTimeout:    getDurationEnv("AIVA_STORE_TIMEOUT", 3*time.Second),

		NoticeTTL: getDurationEnv("AIVA_NOTICE_TTL", 7*time.Second),
		LogLevel:  getEnv("AIVA_LOG_LEVEL", "info"),
	}
}

// Validate checks the backend settings. Missing model credentials are a
// configuration error; missing storage settings are reported the same way.
func (c *Config) Validate() error {
	if !c.UseMockLLM && c.GeminiAPIKey == "" && c.GCPProjectID == "" {
		return fmt.Errorf("%w: API key is missing, set AIVA_GEMINI_API_KEY (or API_KEY) or AIVA_GCP_PROJECT", domain.ErrConfiguration)
	}
	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("%w: AIVA_GCP_PROJECT must be set in gcp mode", domain.ErrConfiguration)
	}
	switch c.StorageBackend {
	case "memory", "file":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("%w: AIVA_REDIS_URL is required for the redis storage backend", domain.ErrConfiguration)
		}
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("%w: AIVA_GCP_PROJECT is required for the firestore storage backend", domain.ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", domain.ErrConfiguration, c.StorageBackend)
	}
	return nil
}
