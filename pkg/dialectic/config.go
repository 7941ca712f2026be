package dialectic

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted in Config.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "llama3.1"
)

// Config holds configuration for a Dialectic instance. Zero values select
// the defaults noted on each field.
type Config struct {
	// Provider selects the LLM transport: "openai" (default) or "ollama".
	Provider string `yaml:"provider"`

	// APIKey for OpenAI-compatible providers. Falls back to the
	// DIALECTIC_API_KEY, then OPENAI_API_KEY environment variables.
	APIKey string `yaml:"api_key"`

	// Model name (default: "gpt-4o-mini" for openai, "llama3.1" for ollama)
	Model string `yaml:"model"`

	// BaseURL of the provider API (default: the provider's public endpoint)
	BaseURL string `yaml:"base_url"`

	// Timeout per OpenAI request (default: 180s). Ollama always uses 5 minutes.
	Timeout time.Duration `yaml:"timeout"`

	// ChunkSize in characters (default: 9000)
	ChunkSize int `yaml:"chunk_size"`

	// ConsolidationInterval in chunk analyses (default: 3)
	ConsolidationInterval int `yaml:"consolidation_interval"`

	// AutoRunInterval between automatic steps (default: 4s)
	AutoRunInterval time.Duration `yaml:"auto_run_interval"`

	// MaxRetries after the initial LLM attempt (default: 3). Negative
	// disables retries.
	MaxRetries int `yaml:"max_retries"`

	// RetryBaseDelay before the first retry, doubled on each further one
	// (default: 5s)
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// DBPath of the SQLite checkpoint database. Empty disables checkpoints;
	// ":memory:" keeps them for the life of the process.
	DBPath string `yaml:"db_path"`

	// DBDriver is "sqlite" (pure Go, default) or "sqlite3" (cgo builds only).
	DBDriver string `yaml:"db_driver"`

	// TracePath of the JSON Lines step trace. Empty disables tracing.
	TracePath string `yaml:"trace_path"`

	// TraceMaxSize in bytes before the trace file is rotated (default: 10MB)
	TraceMaxSize int64 `yaml:"trace_max_size"`

	// MetricsEnabled turns on the Prometheus collector.
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// Logger for structured logging (default: discard)
	Logger *slog.Logger `yaml:"-"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// withDefaults returns cfg with zero values replaced by defaults and the API
// key resolved from the environment.
func (cfg Config) withDefaults() Config {
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenAI
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("DIALECTIC_API_KEY")
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Provider == ProviderOllama {
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOllamaURL
		}
		if cfg.Model == "" {
			cfg.Model = defaultOllamaModel
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// Validate reports configuration errors that would only surface later.
func (cfg Config) Validate() error {
	switch cfg.Provider {
	case "", ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown provider %q", cfg.Provider)
	}
	if cfg.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if cfg.ConsolidationInterval < 0 {
		return fmt.Errorf("consolidation_interval must not be negative")
	}
	if cfg.TraceMaxSize < 0 {
		return fmt.Errorf("trace_max_size must not be negative")
	}
	return nil
}
