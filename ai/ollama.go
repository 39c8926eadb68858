package ai

import (
	"context"
	"fmt"
	"strings"
)

// Ollama implements the Provider interface for local Ollama instances.
type Ollama struct {
	host  string
	model string
	opts  HTTPOptions
}

var _ Provider = (*Ollama)(nil)

// NewOllama creates an Ollama provider. opts.BaseURL, if set, wins over host.
func NewOllama(host, model string, opts HTTPOptions) *Ollama {
	if host == "" {
		host = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &Ollama{host: opts.baseURL(host), model: model, opts: opts}
}

func (o *Ollama) Name() string {
	return fmt.Sprintf("Ollama (%s)", o.model)
}

func (o *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]interface{}{
		"model":    o.model,
		"messages": []chatMsg{{Role: "user", Content: prompt}},
		"stream":   false,
		"format":   "json",
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	endpoint := strings.TrimRight(o.host, "/") + "/api/chat"
	if err := postJSON(ctx, o.opts.client(), "ollama", endpoint, nil, body, &result); err != nil {
		return "", fmt.Errorf("%w (is Ollama running at %s?)", err, o.host)
	}

	if result.Message.Content == "" {
		return "", fmt.Errorf("ollama returned empty response")
	}
	return result.Message.Content, nil
}
