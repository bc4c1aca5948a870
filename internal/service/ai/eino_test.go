package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"visionchat/internal/models"
)

type fakeChatModel struct {
	input  []*schema.Message
	chunks []string
	err    error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(strings.Join(f.chunks, ""), nil), nil
}

func (f *fakeChatModel) Stream(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	msgs := make([]*schema.Message, 0, len(f.chunks))
	for _, c := range f.chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

func TestEinoClientMapsParts(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"Invoice ", "total: $42"}}
	client := &EinoClient{chatModel: fake}
	img := &models.ImageAttachment{MIMEType: models.MimePNG, Data: []byte("png-bytes")}
	parts := BuildParts(
		[]models.Turn{models.UserTurn("who issued it?"), models.AssistantTurn("ACME Corp")},
		"Answer questions about the invoice.", "What is the total?", img,
	)

	text, err := client.Generate(context.Background(), parts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Invoice total: $42" {
		t.Fatalf("unexpected text %q", text)
	}
	if len(fake.input) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(fake.input))
	}
	if fake.input[0].Role != schema.User || fake.input[0].Content != "who issued it?" {
		t.Fatalf("unexpected first message %+v", fake.input[0])
	}
	if fake.input[1].Role != schema.Assistant || fake.input[1].Content != "ACME Corp" {
		t.Fatalf("unexpected second message %+v", fake.input[1])
	}
	multi := fake.input[2].MultiContent
	if len(multi) != 3 {
		t.Fatalf("expected 3 multi-content parts, got %d", len(multi))
	}
	if multi[2].Type != schema.ChatMessagePartTypeImageURL || multi[2].ImageURL == nil ||
		!strings.HasPrefix(multi[2].ImageURL.URL, "data:image/png;base64,") {
		t.Fatalf("image not sent as data url: %+v", multi[2])
	}
}

func TestEinoClientStream(t *testing.T) {
	fake := &fakeChatModel{chunks: []string{"a", "b", "c"}}
	client := &EinoClient{chatModel: fake}

	stream, err := client.Stream(context.Background(), BuildParts(nil, "", "letters", nil))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	text, err := Collect(stream, nil)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if text != "abc" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestEinoClientError(t *testing.T) {
	boom := errors.New("quota exceeded")
	client := &EinoClient{chatModel: &fakeChatModel{err: boom}}
	if _, err := client.Generate(context.Background(), BuildParts(nil, "", "hi", nil)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := client.Stream(context.Background(), BuildParts(nil, "", "hi", nil)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
