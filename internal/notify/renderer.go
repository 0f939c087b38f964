package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"path"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Rendered is the content of one email.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

type templatePair struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

// Renderer turns a template name and data into subject, plain text and HTML bodies.
// Each template file defines the blocks "subject", "text" and "html".
type Renderer struct {
	templates map[string]templatePair
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFS, "templates")
}

func newRenderer(fsys fs.FS, dir string) (*Renderer, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.tmpl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list email templates: %w", err)
	}
	r := &Renderer{templates: make(map[string]templatePair, len(files))}
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".tmpl")
		src, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("failed to read template %s: %w", f, err)
		}
		txt, err := texttemplate.New(name).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		html, err := htmltemplate.New(name).Option("missingkey=error").Parse(string(src))
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.templates[name] = templatePair{text: txt, html: html}
	}
	return r, nil
}

func (r *Renderer) Render(name string, data map[string]string) (*Rendered, error) {
	t, ok := r.templates[name]
	if !ok {
		return nil, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := t.text.ExecuteTemplate(&subject, "subject", data); err != nil {
		return nil, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.text.ExecuteTemplate(&text, "text", data); err != nil {
		return nil, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := t.html.ExecuteTemplate(&html, "html", data); err != nil {
		return nil, fmt.Errorf("render %s html: %w", name, err)
	}
	return &Rendered{
		Subject: strings.TrimSpace(subject.String()),
		Text:    strings.TrimSpace(text.String()),
		HTML:    html.String(),
	}, nil
}
