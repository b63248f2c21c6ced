package llm

import (
	"context"
	"errors"
)

var ErrNotConfigured = errors.New("llm: not configured")

// Request is one single-turn completion.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client is a text completion provider.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Ping(ctx context.Context) error
	Name() string
}

// Disabled is the Client used when no API key is configured.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) { return "", ErrNotConfigured }
func (Disabled) Ping(context.Context) error                         { return ErrNotConfigured }
func (Disabled) Name() string                                       { return "disabled" }

// Enabled reports whether c can actually serve requests.
func Enabled(c Client) bool {
	if c == nil {
		return false
	}
	_, off := c.(Disabled)
	return !off
}
