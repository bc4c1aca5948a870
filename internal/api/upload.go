package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"visionchat/internal/models"
	"visionchat/internal/service/assistant"
)

const (
	promptField = "prompt"
	fileField   = "file"
)

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// uploadError is a malformed or rejected upload; Status is the HTTP status
// for API callers.
type uploadError struct {
	Status  int
	Message string
}

func (e *uploadError) Error() string { return e.Message }

// parseSubmission reads the prompt and optional image of a multipart form.
// The image is kept in memory and belongs to this request only.
func parseSubmission(c *gin.Context, maxBytes int64) (assistant.Input, error) {
	var in assistant.Input
	if err := c.Request.ParseMultipartForm(maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, &uploadError{Status: http.StatusRequestEntityTooLarge, Message: "upload exceeds the size limit"}
		}
		return in, &uploadError{Status: http.StatusBadRequest, Message: "invalid multipart form"}
	}
	in.Text = strings.TrimSpace(c.PostForm(promptField))

	header, err := c.FormFile(fileField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return in, nil
		}
		return in, &uploadError{Status: http.StatusBadRequest, Message: "invalid file upload"}
	}
	if header.Size == 0 {
		return in, nil
	}
	if header.Size > maxBytes {
		return in, &uploadError{Status: http.StatusRequestEntityTooLarge, Message: "upload exceeds the size limit"}
	}
	filename := filepath.Base(header.Filename)
	if !allowedExtensions[strings.ToLower(filepath.Ext(filename))] {
		return in, &uploadError{Status: http.StatusUnsupportedMediaType, Message: "only jpg, jpeg and png files are accepted"}
	}

	f, err := header.Open()
	if err != nil {
		return in, &uploadError{Status: http.StatusBadRequest, Message: "open file failed"}
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return in, &uploadError{Status: http.StatusBadRequest, Message: "read file failed"}
	}
	if int64(len(data)) > maxBytes {
		return in, &uploadError{Status: http.StatusRequestEntityTooLarge, Message: "upload exceeds the size limit"}
	}
	contentType := http.DetectContentType(data)
	if contentType != models.MimeJPEG && contentType != models.MimePNG {
		return in, &uploadError{Status: http.StatusUnsupportedMediaType, Message: fmt.Sprintf("unsupported file type %s", contentType)}
	}
	in.Image = &models.ImageAttachment{
		FileName: filename,
		MIMEType: contentType,
		Data:     data,
	}
	return in, nil
}
