// generator.go implements natural-language to SQL generation.
//
// Flow: render the prompt -> one Provider.Complete call -> ParseQuery.
// The statement is not checked beyond the shape of the reply.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DachengChen/askSQL/config"
	"github.com/DachengChen/askSQL/metrics"
)

// ErrEmptyRequest is returned when the natural-language request is blank.
var ErrEmptyRequest = errors.New("request is empty")

// GeneratedQuery is one SQL statement produced by the model.
type GeneratedQuery struct {
	Text string
}

// GenerationError reports a failed model call or a reply that does not
// carry a usable statement. Raw is the model reply, when there was one.
type GenerationError struct {
	Raw string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate query: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator turns requests into statements for one engine.
type Generator struct {
	provider Provider
	engine   config.Engine
}

// NewGenerator returns a Generator that asks provider for statements in
// engine's dialect.
func NewGenerator(provider Provider, engine config.Engine) *Generator {
	return &Generator{provider: provider, engine: engine}
}

// ForEngine returns a copy targeting another engine, sharing the provider.
func (g *Generator) ForEngine(engine config.Engine) *Generator {
	return &Generator{provider: g.provider, engine: engine}
}

// Generate asks the model for one statement fulfilling request against
// table. Failures are *GenerationError.
func (g *Generator) Generate(ctx context.Context, table string, columns []string, request string) (GeneratedQuery, error) {
	if strings.TrimSpace(request) == "" {
		return GeneratedQuery{}, &GenerationError{Err: ErrEmptyRequest}
	}

	name := g.provider.Name()
	prompt := BuildPrompt(g.engine, table, columns, request)
	LogRequest(name, table, request, prompt)

	start := time.Now()
	raw, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		LogResponse(name, raw, "", time.Since(start), err)
		metrics.ObserveGeneration(name, time.Since(start), err)
		return GeneratedQuery{}, &GenerationError{Err: err}
	}

	query, err := ParseQuery(raw)
	LogResponse(name, raw, query, time.Since(start), err)
	metrics.ObserveGeneration(name, time.Since(start), err)
	if err != nil {
		return GeneratedQuery{}, &GenerationError{Raw: raw, Err: err}
	}
	return GeneratedQuery{Text: query}, nil
}
