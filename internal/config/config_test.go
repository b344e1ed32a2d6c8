package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/aiva-chat/internal/config"
	"github.com/PabloGalante/aiva-chat/internal/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AIVA_MODE", "AIVA_PORT", "AIVA_GEMINI_API_KEY", "API_KEY", "AIVA_GCP_PROJECT",
		"AIVA_USE_MOCK_LLM", "AIVA_STORAGE_BACKEND", "AIVA_REDIS_URL", "AIVA_STORE_TIMEOUT",
		"AIVA_NOTICE_TTL", "AIVA_STORE_QUOTA_BYTES",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := config.Load()
	assert.Equal(t, config.ModeLocal, cfg.Mode)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gemini-2.5-flash", cfg.ModelName)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.True(t, cfg.UseMockLLM, "local mode talks to the mock model")
	assert.Equal(t, "aivaChatHistory", cfg.StoragePrefix)
	assert.Equal(t, 5<<20, cfg.StoreQuotaBytes)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 7*time.Second, cfg.NoticeTTL)
}

func TestLoad_GCPModeUsesRealModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("AIVA_MODE", "gcp")

	assert.False(t, config.Load().UseMockLLM)

	t.Setenv("AIVA_USE_MOCK_LLM", "true")
	assert.True(t, config.Load().UseMockLLM)
}

func TestLoad_APIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "legacy-key")

	assert.Equal(t, "legacy-key", config.Load().GeminiAPIKey)

	t.Setenv("AIVA_GEMINI_API_KEY", "new-key")
	assert.Equal(t, "new-key", config.Load().GeminiAPIKey)
}

func TestLoad_BadDurationKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("AIVA_NOTICE_TTL", "soon")
	t.Setenv("AIVA_STORE_TIMEOUT", "500ms")

	cfg := config.Load()
	assert.Equal(t, 7*time.Second, cfg.NoticeTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.StoreTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"local defaults", map[string]string{}, false},
		{"missing key", map[string]string{"AIVA_USE_MOCK_LLM": "0"}, true},
		{"api key", map[string]string{"AIVA_USE_MOCK_LLM": "0", "AIVA_GEMINI_API_KEY": "k"}, false},
		{"mock needs no key", map[string]string{"AIVA_USE_MOCK_LLM": "1"}, false},
		{"redis without url", map[string]string{"AIVA_USE_MOCK_LLM": "1", "AIVA_STORAGE_BACKEND": "redis"}, true},
		{"redis with url", map[string]string{"AIVA_USE_MOCK_LLM": "1", "AIVA_STORAGE_BACKEND": "redis", "AIVA_REDIS_URL": "redis://localhost:6379/0"}, false},
		{"firestore without project", map[string]string{"AIVA_STORAGE_BACKEND": "firestore"}, true},
		{"unknown backend", map[string]string{"AIVA_USE_MOCK_LLM": "1", "AIVA_STORAGE_BACKEND": "s3"}, true},
		{"gcp mode without project", map[string]string{"AIVA_GEMINI_API_KEY": "k", "AIVA_MODE": "gcp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			err := config.Load().Validate()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}
