package ai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/DachengChen/askSQL/config"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path    string
	headers http.Header
	body    map[string]any
}

// vendorServer replies with reply to every request and records the last one.
func vendorServer(t *testing.T, status int, reply string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.headers = r.Header.Clone()
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, &captured.body))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestGeminiComplete(t *testing.T) {
	srv, req := vendorServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"{\"query\":"},{"text":" \"SELECT 1\"}"}]}}]}`)

	g := NewGemini("k-123", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()})
	out, err := g.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"query": "SELECT 1"}`, out)

	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", req.path)
	assert.Equal(t, "k-123", req.headers.Get("x-goog-api-key"))
	assert.Equal(t, "Gemini (gemini-2.5-flash)", g.Name())
}

func TestOpenAIComplete(t *testing.T) {
	srv, req := vendorServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"{\"query\":\"SELECT 2\"}"}}]}`)

	o := NewOpenAI("sk-1", "gpt-4o-mini", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()})
	out, err := o.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"query":"SELECT 2"}`, out)

	assert.Equal(t, "/chat/completions", req.path)
	assert.Equal(t, "Bearer sk-1", req.headers.Get("Authorization"))
	assert.Equal(t, "gpt-4o-mini", req.body["model"])
}

func TestAnthropicComplete(t *testing.T) {
	srv, req := vendorServer(t, http.StatusOK,
		`{"content":[{"type":"text","text":"{\"query\":\"SELECT 3\"}"}]}`)

	a := NewAnthropic("ak", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()})
	out, err := a.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"query":"SELECT 3"}`, out)

	assert.Equal(t, "/v1/messages", req.path)
	assert.Equal(t, "ak", req.headers.Get("x-api-key"))
	assert.Equal(t, "2023-06-01", req.headers.Get("anthropic-version"))
}

func TestOllamaComplete(t *testing.T) {
	srv, req := vendorServer(t, http.StatusOK, `{"message":{"content":"{\"query\":\"SELECT 4\"}"}}`)

	o := NewOllama("", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()})
	out, err := o.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{"query":"SELECT 4"}`, out)
	assert.Equal(t, "/api/chat", req.path)
	assert.Equal(t, false, req.body["stream"])
}

func TestProviderHTTPError(t *testing.T) {
	srv, _ := vendorServer(t, http.StatusTooManyRequests, `{"error":{"message":"quota"}}`)

	_, err := NewGemini("k", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()}).
		Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini API error (429)")
}

func TestProviderHTTPErrorKeepsRunesWhole(t *testing.T) {
	srv, _ := vendorServer(t, http.StatusBadRequest, strings.Repeat("配额", 100))

	_, err := NewGemini("k", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()}).
		Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.True(t, utf8.ValidString(err.Error()))
	assert.True(t, strings.HasSuffix(err.Error(), "配..."))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7))
	assert.Equal(t, "é...", truncate("ééééé", 6))
	assert.Equal(t, "...", truncate("日本語", 4))
}

func TestProviderEmptyReply(t *testing.T) {
	srv, _ := vendorServer(t, http.StatusOK, `{"candidates":[]}`)

	_, err := NewGemini("k", "", HTTPOptions{BaseURL: srv.URL, Client: srv.Client()}).
		Complete(context.Background(), "prompt")
	assert.ErrorContains(t, err, "no content")
}

func TestPlaceholderReplyParses(t *testing.T) {
	p := &Placeholder{}
	out, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)

	q, err := ParseQuery(out)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 AS placeholder", q)
}

func TestPlaceholderHonoursContext(t *testing.T) {
	p := &Placeholder{delay: time.Minute}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Complete(ctx, "prompt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewProvider(t *testing.T) {
	cfg := config.DefaultAIConfig()

	_, err := NewProvider(cfg, HTTPOptions{})
	assert.ErrorContains(t, err, "Gemini API key not set")

	cfg.Gemini.APIKey = "k"
	p, err := NewProvider(cfg, HTTPOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, p)

	cfg.Provider = config.ProviderOllama
	p, err = NewProvider(cfg, HTTPOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Ollama (llama3.2)", p.Name())

	cfg.Provider = config.ProviderPlaceholder
	p, err = NewProvider(cfg, HTTPOptions{})
	require.NoError(t, err)
	assert.Equal(t, "placeholder", p.Name())

	cfg.Provider = "bard"
	_, err = NewProvider(cfg, HTTPOptions{})
	assert.ErrorContains(t, err, "unknown AI provider")
}
