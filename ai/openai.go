package ai

import (
	"context"
	"fmt"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI implements the Provider interface for the OpenAI Chat Completions
// API or any compatible endpoint.
type OpenAI struct {
	apiKey string
	model  string
	opts   HTTPOptions
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI provider.
func NewOpenAI(apiKey, model string, opts HTTPOptions) *OpenAI {
	if model == "" {
		model = "gpt-4o"
	}
	return &OpenAI{apiKey: apiKey, model: model, opts: opts}
}

func (o *OpenAI) Name() string {
	return fmt.Sprintf("OpenAI (%s)", o.model)
}

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	type chatMsg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	body := map[string]interface{}{
		"model":           o.model,
		"messages":        []chatMsg{{Role: "user", Content: prompt}},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0,
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	endpoint := strings.TrimRight(o.opts.baseURL(openAIBaseURL), "/") + "/chat/completions"
	err := postJSON(ctx, o.opts.client(), "openai", endpoint,
		map[string]string{"Authorization": "Bearer " + o.apiKey}, body, &result)
	if err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}
