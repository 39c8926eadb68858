package ai

import (
	"context"
	"fmt"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com"

// Anthropic implements the Provider interface for the Anthropic Messages API.
type Anthropic struct {
	apiKey string
	model  string
	opts   HTTPOptions
}

var _ Provider = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(apiKey, model string, opts HTTPOptions) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{apiKey: apiKey, model: model, opts: opts}
}

func (a *Anthropic) Name() string {
	return fmt.Sprintf("Anthropic (%s)", a.model)
}

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	type apiMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]interface{}{
		"model":      a.model,
		"max_tokens": 1024,
		"messages":   []apiMsg{{Role: "user", Content: prompt}},
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	endpoint := strings.TrimRight(a.opts.baseURL(anthropicBaseURL), "/") + "/v1/messages"
	err := postJSON(ctx, a.opts.client(), "anthropic", endpoint, map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": "2023-06-01",
	}, body, &result)
	if err != nil {
		return "", err
	}

	// Concatenate all text blocks
	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return text.String(), nil
}
