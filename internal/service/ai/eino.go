package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"visionchat/internal/models"
)

// EinoClient adapts an eino chat model to Client.
type EinoClient struct {
	chatModel model.BaseChatModel
}

func NewEinoClient(ctx context.Context, provider, modelName, apiKey, baseURL string) (*EinoClient, error) {
	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
			APIKey:  apiKey,
		})
	case "gemini":
		cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
		if baseURL != "" {
			cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
		}
		client, cerr := genai.NewClient(ctx, cc)
		if cerr != nil {
			return nil, fmt.Errorf("new gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(ctx, &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if baseURL != "" {
			baseURLPtr = &baseURL
		}
		chatModel, err = claude.NewChatModel(ctx, &claude.Config{
			APIKey:    apiKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &EinoClient{chatModel: chatModel}, nil
}

func (c *EinoClient) Generate(ctx context.Context, parts []models.Part) (string, error) {
	if len(parts) == 0 {
		return "", ErrEmptyRequest
	}
	msg, err := c.chatModel.Generate(ctx, toMessages(parts))
	if err != nil {
		return "", fmt.Errorf("generate ai response failed: %w", err)
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (c *EinoClient) Stream(ctx context.Context, parts []models.Part) (*Stream, error) {
	if len(parts) == 0 {
		return nil, ErrEmptyRequest
	}
	reader, err := c.chatModel.Stream(ctx, toMessages(parts))
	if err != nil {
		return nil, fmt.Errorf("generate ai stream failed: %w", err)
	}
	return NewStream(func() (string, error) {
		for {
			chunk, err := reader.Recv()
			if errors.Is(err, io.EOF) {
				return "", io.EOF
			}
			if err != nil {
				return "", fmt.Errorf("receive ai stream: %w", err)
			}
			if chunk != nil && chunk.Content != "" {
				return chunk.Content, nil
			}
		}
	}, reader.Close), nil
}

// toMessages groups consecutive same-role parts into one message. A lone
// text part becomes plain content; anything else is sent as multi-content
// with images inlined as data URLs.
func toMessages(parts []models.Part) []*schema.Message {
	var (
		messages []*schema.Message
		group    []models.Part
	)
	flush := func() {
		if len(group) == 0 {
			return
		}
		messages = append(messages, toMessage(group))
		group = nil
	}
	for _, p := range parts {
		if len(group) > 0 && group[0].Role != p.Role {
			flush()
		}
		group = append(group, p)
	}
	flush()
	return messages
}

func toMessage(group []models.Part) *schema.Message {
	role := schema.User
	if group[0].Role == models.RoleAssistant {
		role = schema.Assistant
	}
	if len(group) == 1 && !group[0].IsImage() {
		return &schema.Message{Role: role, Content: group[0].Text}
	}
	multi := make([]schema.ChatMessagePart, 0, len(group))
	for _, p := range group {
		if p.IsImage() {
			multi = append(multi, schema.ChatMessagePart{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      p.Image.DataURL(),
					MIMEType: p.Image.MIMEType,
				},
			})
			continue
		}
		multi = append(multi, schema.ChatMessagePart{
			Type: schema.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return &schema.Message{Role: role, MultiContent: multi}
}
