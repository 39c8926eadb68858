package ai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// Gemini implements the Provider interface for Google's Gemini API.
type Gemini struct {
	apiKey string
	model  string
	opts   HTTPOptions
}

var _ Provider = (*Gemini)(nil)

// NewGemini creates a Gemini provider.
func NewGemini(apiKey, model string, opts HTTPOptions) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{apiKey: apiKey, model: model, opts: opts}
}

func (g *Gemini) Name() string {
	return fmt.Sprintf("Gemini (%s)", g.model)
}

func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role"`
		Parts []part `json:"parts"`
	}

	body := map[string]interface{}{
		"contents": []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
			"temperature":      0,
		},
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(g.opts.baseURL(geminiBaseURL), "/"), url.PathEscape(g.model))

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	err := postJSON(ctx, g.opts.client(), "gemini", endpoint,
		map[string]string{"x-goog-api-key": g.apiKey}, body, &result)
	if err != nil {
		return "", err
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no content")
	}

	// Concatenate all text parts
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return text.String(), nil
}
