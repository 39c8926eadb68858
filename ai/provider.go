// Package ai turns a natural-language request into one SQL statement by
// asking a language model.
//
// Design decisions:
//   - Provider is an interface so backends (Gemini, OpenAI, Anthropic,
//     Ollama, placeholder) can be swapped without touching the generator
//     or the TUI.
//   - A provider is built once per process with its model and credentials
//     and injected into the Generator; nothing is read from the
//     environment at call time.
//   - Base URL and http.Client are injectable so tests run against
//     httptest servers.
package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	json "github.com/goccy/go-json"
)

// Provider is the interface all language-model backends implement.
type Provider interface {
	// Complete sends one prompt and returns the raw text of the reply.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name for display, e.g. "Gemini (gemini-2.5-flash)".
	Name() string
}

// HTTPOptions customise how a provider reaches its API.
type HTTPOptions struct {
	// BaseURL overrides the vendor endpoint root.
	BaseURL string
	// Client defaults to http.DefaultClient.
	Client *http.Client
}

func (o HTTPOptions) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o HTTPOptions) baseURL(def string) string {
	if o.BaseURL != "" {
		return o.BaseURL
	}
	return def
}

// postJSON sends body as JSON and decodes a 200 response into out.
// vendor prefixes error messages.
func postJSON(ctx context.Context, client *http.Client, vendor, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", vendor, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (%d): %s", vendor, resp.StatusCode, truncate(string(respBody), 500))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s parse error: %w", vendor, err)
	}
	return nil
}

// truncate limits s to maxLen bytes, cutting on a rune boundary.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
