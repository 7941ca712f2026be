package dialectic

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dialectic.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
provider: ollama
model: mistral
base_url: http://gpu-box:11434
chunk_size: 4000
consolidation_interval: 5
auto_run_interval: 10s
max_retries: -1
retry_base_delay: 250ms
db_path: /var/lib/dialectic/sessions.db
trace_path: /var/log/dialectic/trace.jsonl
metrics_enabled: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "mistral", cfg.Model)
	assert.Equal(t, "http://gpu-box:11434", cfg.BaseURL)
	assert.Equal(t, 4000, cfg.ChunkSize)
	assert.Equal(t, 5, cfg.ConsolidationInterval)
	assert.Equal(t, 10*time.Second, cfg.AutoRunInterval)
	assert.Equal(t, -1, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, "/var/lib/dialectic/sessions.db", cfg.DBPath)
	assert.Equal(t, "/var/log/dialectic/trace.jsonl", cfg.TracePath)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadConfig_Empty(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)
}

func TestLoadConfig_UnknownKey(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "chunk_sise: 10\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk_sise")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithDefaults_APIKeyFromEnvironment(t *testing.T) {
	t.Run("dialectic key wins", func(t *testing.T) {
		t.Setenv("DIALECTIC_API_KEY", "dk")
		t.Setenv("OPENAI_API_KEY", "ok")
		assert.Equal(t, "dk", Config{}.withDefaults().APIKey)
	})

	t.Run("openai fallback", func(t *testing.T) {
		t.Setenv("DIALECTIC_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "ok")
		assert.Equal(t, "ok", Config{}.withDefaults().APIKey)
	})

	t.Run("explicit key", func(t *testing.T) {
		t.Setenv("DIALECTIC_API_KEY", "dk")
		assert.Equal(t, "mine", Config{APIKey: "mine"}.withDefaults().APIKey)
	})
}

func TestWithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.NotNil(t, cfg.Logger)

	ollama := Config{Provider: ProviderOllama}.withDefaults()
	assert.Equal(t, defaultOllamaURL, ollama.BaseURL)
	assert.Equal(t, defaultOllamaModel, ollama.Model)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero", Config{}, false},
		{"ollama", Config{Provider: ProviderOllama}, false},
		{"unknown provider", Config{Provider: "gemini"}, true},
		{"negative chunk size", Config{ChunkSize: -1}, true},
		{"negative interval", Config{ConsolidationInterval: -3}, true},
		{"negative trace size", Config{TraceMaxSize: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
