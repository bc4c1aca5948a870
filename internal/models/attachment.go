package models

import (
	"encoding/base64"
	"strings"
)

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// ImageAttachment is an uploaded image owned by a single request.
type ImageAttachment struct {
	FileName string
	MIMEType string
	Data     []byte
}

// Empty reports whether the attachment carries no bytes.
func (a *ImageAttachment) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// DataURL encodes the image as a data: URL, used for previews and by
// providers that take images as URLs.
func (a *ImageAttachment) DataURL() string {
	if a.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(a.MIMEType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(a.Data))
	return b.String()
}

// Part is one unit of a model request: text or an inline image.
type Part struct {
	Role  Role
	Text  string
	Image *ImageAttachment
}

func (p Part) IsImage() bool {
	return !p.Image.Empty()
}
