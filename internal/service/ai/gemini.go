package ai

import (
	"context"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"

	"visionchat/internal/models"
)

// GeminiClient calls the Gemini API through the genai SDK.
type GeminiClient struct {
	models *genai.Models
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, baseURL, model string) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("new gemini client: %w", err)
	}
	return &GeminiClient{models: client.Models, model: model}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, parts []models.Part) (string, error) {
	if len(parts) == 0 {
		return "", ErrEmptyRequest
	}
	resp, err := c.models.GenerateContent(ctx, c.model, toContents(parts), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}

func (c *GeminiClient) Stream(ctx context.Context, parts []models.Part) (*Stream, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyRequest
	}
	next, stop := iter.Pull2(c.models.GenerateContentStream(ctx, c.model, toContents(parts), nil))
	return NewStream(func() (string, error) {
		for {
			resp, err, ok := next()
			if !ok {
				return "", io.EOF
			}
			if err != nil {
				return "", fmt.Errorf("stream content: %w", err)
			}
			if text := resp.Text(); text != "" {
				return text, nil
			}
		}
	}, stop), nil
}

// toContents groups consecutive parts of the same role into one Content.
func toContents(parts []models.Part) []*genai.Content {
	var contents []*genai.Content
	for _, p := range parts {
		var role genai.Role = genai.RoleUser
		if p.Role == models.RoleAssistant {
			role = genai.RoleModel
		}
		var gp *genai.Part
		if p.IsImage() {
			gp = genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType)
		} else {
			gp = genai.NewPartFromText(p.Text)
		}
		if n := len(contents); n > 0 && contents[n-1].Role == string(role) {
			contents[n-1].Parts = append(contents[n-1].Parts, gp)
			continue
		}
		contents = append(contents, genai.NewContentFromParts([]*genai.Part{gp}, role))
	}
	return contents
}
