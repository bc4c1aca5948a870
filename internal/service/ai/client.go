package ai

import (
	"context"
	"errors"
	"fmt"

	"visionchat/internal/config"
	"visionchat/internal/models"
)

var ErrEmptyRequest = errors.New("request has no parts")

// Client talks to a hosted multimodal model. Each call is a single
// outstanding request; nothing is retried.
type Client interface {
	Generate(ctx context.Context, parts []models.Part) (string, error)
	Stream(ctx context.Context, parts []models.Part) (*Stream, error)
}

// NewClient builds the client for the configured provider. Gemini goes
// through the genai SDK unless the eino engine is selected; openai and
// claude always use eino chat models.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	provider := cfg.Model.Provider
	switch provider {
	case "gemini", "openai", "claude":
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if provider == "gemini" && cfg.Model.Engine != "eino" {
		client, err := NewGeminiClient(ctx, cfg.APIKey(), cfg.BaseURL(), cfg.Model.Name)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	client, err := NewEinoClient(ctx, provider, cfg.Model.Name, cfg.APIKey(), cfg.BaseURL())
	if err != nil {
		return nil, err
	}
	return client, nil
}
