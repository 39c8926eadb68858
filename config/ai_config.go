// ai_config.go holds application settings.
//
// Settings are read once at startup from ~/.asksql/config.json, then a
// .env file in the working directory, then the environment. API keys
// normally come from the environment (GOOGLE_API_KEY, OPENAI_API_KEY,
// ANTHROPIC_API_KEY).

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// LookupFunc reads one environment variable. os.LookupEnv satisfies it.
type LookupFunc func(string) (string, bool)

// Provider names.
const (
	ProviderGemini      = "gemini"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderOllama      = "ollama"
	ProviderPlaceholder = "placeholder"
)

// Providers lists every supported provider name.
var Providers = []string{ProviderGemini, ProviderOpenAI, ProviderAnthropic, ProviderOllama, ProviderPlaceholder}

// AIConfig holds the provider selection and credentials.
type AIConfig struct {
	Provider  string          `json:"provider"`
	Gemini    GeminiConfig    `json:"gemini"`
	OpenAI    OpenAIConfig    `json:"openai"`
	Anthropic AnthropicConfig `json:"anthropic"`
	Ollama    OllamaConfig    `json:"ollama"`
}

// GeminiConfig holds Google Gemini settings.
type GeminiConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
}

// OpenAIConfig holds settings for OpenAI or any compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
}

// AnthropicConfig holds Anthropic settings.
type AnthropicConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	Model   string `json:"model"`
	BaseURL string `json:"base_url,omitempty"`
}

// OllamaConfig holds settings for a local Ollama server.
type OllamaConfig struct {
	Host  string `json:"host"`
	Model string `json:"model"`
}

// AppConfig is the top-level config file structure.
type AppConfig struct {
	AI       AIConfig      `json:"ai"`
	LogLevel string        `json:"log_level"`
	Timeout  time.Duration `json:"-"`

	// TimeoutRaw is the config-file form of Timeout, e.g. "45s".
	TimeoutRaw string `json:"timeout,omitempty"`
}

func (c AppConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.AI),
		validation.Field(&c.LogLevel, validation.In("trace", "debug", "info", "warn", "error", "disabled")),
		validation.Field(&c.Timeout, validation.Min(time.Second)),
	)
}

func (a AIConfig) Validate() error {
	providers := make([]interface{}, len(Providers))
	for i, p := range Providers {
		providers[i] = p
	}
	return validation.ValidateStruct(&a,
		validation.Field(&a.Provider, validation.Required, validation.In(providers...)),
	)
}

// Model returns the model identifier of the selected provider.
func (a AIConfig) Model() string {
	switch a.Provider {
	case ProviderGemini:
		return a.Gemini.Model
	case ProviderOpenAI:
		return a.OpenAI.Model
	case ProviderAnthropic:
		return a.Anthropic.Model
	case ProviderOllama:
		return a.Ollama.Model
	}
	return ""
}

// SetModel overrides the model identifier of the selected provider.
func (a *AIConfig) SetModel(model string) {
	switch a.Provider {
	case ProviderGemini:
		a.Gemini.Model = model
	case ProviderOpenAI:
		a.OpenAI.Model = model
	case ProviderAnthropic:
		a.Anthropic.Model = model
	case ProviderOllama:
		a.Ollama.Model = model
	}
}

// DefaultAIConfig returns the defaults: Gemini 2.5 Flash.
func DefaultAIConfig() AIConfig {
	return AIConfig{
		Provider: ProviderGemini,
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Anthropic: AnthropicConfig{
			Model: "claude-sonnet-4-20250514",
		},
		Ollama: OllamaConfig{
			Host:  "http://localhost:11434",
			Model: "llama3.2",
		},
	}
}

// DefaultAppConfig returns an AppConfig with every default applied.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		AI:       DefaultAIConfig(),
		LogLevel: "info",
		Timeout:  60 * time.Second,
	}
}

// Dir returns ~/.asksql.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".asksql"), nil
}

// LoadAppConfig reads the config file at path (missing is fine), then the
// environment through lookup. An empty path skips the file.
func LoadAppConfig(path string, lookup LookupFunc) (*AppConfig, error) {
	if lookup == nil {
		return nil, errors.New("lookup function is required")
	}

	cfg := DefaultAppConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}
	if cfg.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.TimeoutRaw)
		if err != nil {
			return nil, fmt.Errorf("parse timeout %q: %w", cfg.TimeoutRaw, err)
		}
		cfg.Timeout = d
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load loads .env (if present) into the process environment and then
// reads ~/.asksql/config.json and the environment.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	path := ""
	if dir, err := Dir(); err == nil {
		path = filepath.Join(dir, "config.json")
	}
	return LoadAppConfig(path, os.LookupEnv)
}

func applyEnv(cfg *AppConfig, lookup LookupFunc) error {
	env := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := env("ASKSQL_PROVIDER"); ok {
		cfg.AI.Provider = strings.ToLower(v)
	}
	if v, ok := env("GOOGLE_API_KEY"); ok {
		cfg.AI.Gemini.APIKey = v
	}
	// GEMINI_API_KEY takes precedence over GOOGLE_API_KEY.
	if v, ok := env("GEMINI_API_KEY"); ok {
		cfg.AI.Gemini.APIKey = v
	}
	if v, ok := env("OPENAI_API_KEY"); ok {
		cfg.AI.OpenAI.APIKey = v
	}
	if v, ok := env("OPENAI_BASE_URL"); ok {
		cfg.AI.OpenAI.BaseURL = v
	}
	if v, ok := env("ANTHROPIC_API_KEY"); ok {
		cfg.AI.Anthropic.APIKey = v
	}
	if v, ok := env("OLLAMA_HOST"); ok {
		cfg.AI.Ollama.Host = v
	}
	if v, ok := env("ASKSQL_MODEL"); ok {
		cfg.AI.SetModel(v)
	}
	if v, ok := env("ASKSQL_LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := env("ASKSQL_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse ASKSQL_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	return nil
}
