package ai

import (
	"context"
	"testing"

	"visionchat/internal/config"
)

func TestNewClientSelectsBackend(t *testing.T) {
	cases := []struct {
		provider string
		engine   string
		want     string
	}{
		{provider: "gemini", engine: "genai", want: "genai"},
		{provider: "gemini", engine: "eino", want: "eino"},
		{provider: "openai", want: "eino"},
	}
	for _, tc := range cases {
		cfg := config.Default()
		cfg.Model.Provider = tc.provider
		cfg.Model.Engine = tc.engine
		cfg.Model.Name = "test-model"
		cfg.Providers[tc.provider] = config.ProviderConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"}

		client, err := NewClient(context.Background(), cfg)
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.provider, tc.engine, err)
		}
		var got string
		switch client.(type) {
		case *GeminiClient:
			got = "genai"
		case *EinoClient:
			got = "eino"
		}
		if got != tc.want {
			t.Fatalf("%s/%s: expected %s client, got %T", tc.provider, tc.engine, tc.want, client)
		}
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Model.Provider = "bard"
	client, err := NewClient(context.Background(), cfg)
	if err == nil || client != nil {
		t.Fatalf("expected error and nil client, got %v %v", client, err)
	}
}
