package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"visionchat/internal/models"
)

type wireRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				Data     []byte `json:"data"`
				MimeType string `json:"mimeType"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
}

func candidate(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`, text)
}

func newGeminiTestServer(t *testing.T, got *wireRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, `{"error":{"code":401,"message":"bad key","status":"UNAUTHENTICATED"}}`, http.StatusUnauthorized)
			return
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, ":streamGenerateContent"):
			w.Header().Set("Content-Type", "text/event-stream")
			for _, c := range []string{"Two ", "slices of ", "pizza."} {
				fmt.Fprintf(w, "data: %s\n\n", candidate(c))
			}
		case strings.HasSuffix(r.URL.Path, ":generateContent"):
			fmt.Fprint(w, candidate("Two slices of pizza."))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGeminiGenerateSendsGroupedContents(t *testing.T) {
	var req wireRequest
	srv := newGeminiTestServer(t, &req)
	client, err := NewGeminiClient(context.Background(), "test-key", srv.URL, "gemini-test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	img := &models.ImageAttachment{MIMEType: models.MimeJPEG, Data: []byte{0xff, 0xd8, 0xff, 0xe0}}
	parts := BuildParts(
		[]models.Turn{models.UserTurn("hi"), models.AssistantTurn("hello")},
		"You are an expert nutritionist.", "How many calories?", img,
	)

	text, err := client.Generate(context.Background(), parts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Two slices of pizza." {
		t.Fatalf("unexpected text %q", text)
	}

	if len(req.Contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(req.Contents))
	}
	roles := []string{req.Contents[0].Role, req.Contents[1].Role, req.Contents[2].Role}
	if roles[0] != "user" || roles[1] != "model" || roles[2] != "user" {
		t.Fatalf("unexpected roles %v", roles)
	}
	last := req.Contents[2].Parts
	if len(last) != 3 {
		t.Fatalf("expected instruction, text and image in the last content, got %d parts", len(last))
	}
	if last[0].Text != "You are an expert nutritionist." || last[1].Text != "How many calories?" {
		t.Fatalf("unexpected text parts %+v", last)
	}
	if last[2].InlineData == nil || last[2].InlineData.MimeType != models.MimeJPEG ||
		!bytes.Equal(last[2].InlineData.Data, img.Data) {
		t.Fatalf("image part not inlined: %+v", last[2].InlineData)
	}
}

func TestGeminiStreamMatchesGenerate(t *testing.T) {
	srv := newGeminiTestServer(t, nil)
	client, err := NewGeminiClient(context.Background(), "test-key", srv.URL, "gemini-test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	parts := BuildParts(nil, "", "What is on the plate?", nil)

	whole, err := client.Generate(context.Background(), parts)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stream, err := client.Stream(context.Background(), parts)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	var fragments int
	streamed, err := Collect(stream, func(string) error { fragments++; return nil })
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if streamed != whole {
		t.Fatalf("streamed %q != generated %q", streamed, whole)
	}
	if fragments != 3 {
		t.Fatalf("expected 3 fragments, got %d", fragments)
	}
}

func TestGeminiSurfacesRemoteError(t *testing.T) {
	srv := newGeminiTestServer(t, nil)
	client, err := NewGeminiClient(context.Background(), "wrong-key", srv.URL, "gemini-test")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.Generate(context.Background(), BuildParts(nil, "", "hi", nil)); err == nil {
		t.Fatalf("expected error for rejected key")
	}
	if _, err := client.Generate(context.Background(), nil); err != ErrEmptyRequest {
		t.Fatalf("expected ErrEmptyRequest, got %v", err)
	}
}
