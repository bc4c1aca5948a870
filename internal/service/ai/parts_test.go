package ai

import (
	"testing"

	"visionchat/internal/models"
)

func TestBuildPartsOrder(t *testing.T) {
	history := []models.Turn{
		models.UserTurn("first question"),
		models.AssistantTurn("first answer"),
	}
	img := &models.ImageAttachment{MIMEType: models.MimeJPEG, Data: []byte{0xff, 0xd8, 0xff}}

	parts := BuildParts(history, "You are an expert nutritionist.", "How many calories?", img)
	if len(parts) != 5 {
		t.Fatalf("expected 5 parts, got %d", len(parts))
	}
	want := []struct {
		role models.Role
		text string
	}{
		{models.RoleUser, "first question"},
		{models.RoleAssistant, "first answer"},
		{models.RoleUser, "You are an expert nutritionist."},
		{models.RoleUser, "How many calories?"},
	}
	for i, w := range want {
		if parts[i].Role != w.role || parts[i].Text != w.text {
			t.Fatalf("part %d = %+v, want %+v", i, parts[i], w)
		}
	}
	if !parts[4].IsImage() || parts[4].Image != img {
		t.Fatalf("last part should be the image, got %+v", parts[4])
	}
}

func TestBuildPartsOmitsEmptyFields(t *testing.T) {
	parts := BuildParts(nil, "", "hello", nil)
	if len(parts) != 1 || parts[0].Text != "hello" {
		t.Fatalf("unexpected parts: %+v", parts)
	}

	img := &models.ImageAttachment{MIMEType: models.MimePNG, Data: []byte("png")}
	parts = BuildParts(nil, "", "", img)
	if len(parts) != 1 || !parts[0].IsImage() {
		t.Fatalf("expected image-only payload, got %+v", parts)
	}

	parts = BuildParts(nil, "", "", &models.ImageAttachment{})
	if len(parts) != 0 {
		t.Fatalf("empty attachment must be dropped, got %+v", parts)
	}
}
