package ai

import (
	"context"
	"time"
)

// Placeholder is an offline provider for development and demos. It always
// answers with a statement that runs on every supported engine.
type Placeholder struct {
	delay time.Duration
}

var _ Provider = (*Placeholder)(nil)

func NewPlaceholder() *Placeholder {
	return &Placeholder{delay: 300 * time.Millisecond}
}

func (p *Placeholder) Name() string {
	return "placeholder"
}

func (p *Placeholder) Complete(ctx context.Context, prompt string) (string, error) {
	// Simulate network latency
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return "```json\n{\"query\": \"SELECT 1 AS placeholder\"}\n```", nil
}
