package transform

import (
	"context"
	"errors"
	"fmt"

	"markestedt/shortcutai/config"
)

// ErrMissingAPIKey is returned without any network call when no credential
// is configured.
var ErrMissingAPIKey = errors.New("transform api key is not configured")

// Client turns a prompt into generated text. A single call is made; errors
// are never retried.
type Client interface {
	Name() string
	Transform(ctx context.Context, prompt string) (string, error)
}

// NewClient creates a transform client based on configuration
func NewClient(cfg config.TransformConfig) (*OpenAIClient, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}
