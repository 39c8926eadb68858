package ai

import (
	"fmt"

	"github.com/DachengChen/askSQL/config"
)

// NewProvider creates an AI provider from the application config. Keys
// are checked here so a missing key fails at startup, not on first use.
func NewProvider(cfg config.AIConfig, opts HTTPOptions) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini, "":
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key not set. Set GOOGLE_API_KEY or GEMINI_API_KEY, or add it to ~/.asksql/config.json")
		}
		if opts.BaseURL == "" {
			opts.BaseURL = cfg.Gemini.BaseURL
		}
		return NewGemini(cfg.Gemini.APIKey, cfg.Gemini.Model, opts), nil

	case config.ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not set. Set OPENAI_API_KEY or add it to ~/.asksql/config.json")
		}
		if opts.BaseURL == "" {
			opts.BaseURL = cfg.OpenAI.BaseURL
		}
		return NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, opts), nil

	case config.ProviderAnthropic:
		if cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key not set. Set ANTHROPIC_API_KEY or add it to ~/.asksql/config.json")
		}
		if opts.BaseURL == "" {
			opts.BaseURL = cfg.Anthropic.BaseURL
		}
		return NewAnthropic(cfg.Anthropic.APIKey, cfg.Anthropic.Model, opts), nil

	case config.ProviderOllama:
		return NewOllama(cfg.Ollama.Host, cfg.Ollama.Model, opts), nil

	case config.ProviderPlaceholder:
		return NewPlaceholder(), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q. Supported: %v", cfg.Provider, config.Providers)
	}
}
