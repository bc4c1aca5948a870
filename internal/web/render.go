// Package web holds the HTML pages and the markdown rendering of model
// responses.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"visionchat/internal/models"
)

//go:embed templates/*.html static
var assets embed.FS

// Renderer turns model output into sanitised HTML.
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Markdown renders text as markdown. Raw HTML in the input is dropped by
// goldmark and anything unsafe left over is stripped by the policy.
func (r *Renderer) Markdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// Templates parses the embedded pages with the helper funcs they use.
func (r *Renderer) Templates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"markdown": r.Markdown,
		"speaker":  Speaker,
	}).ParseFS(assets, "templates/*.html"))
}

// Static serves the stylesheet.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Speaker labels a turn by its role.
func Speaker(role models.Role) string {
	if role == models.RoleAssistant {
		return "Gemini"
	}
	return "You"
}
