package report

import (
	"context"
	"fmt"
)

// TemplateFunc executes the named HTML template with data.
type TemplateFunc func(name string, data any) (string, error)

// DocumentTemplate is the HTML template used for Gotenberg rendering.
const DocumentTemplate = "pdf/document.html"

// HTMLRenderer renders documents as HTML and converts them with Gotenberg.
type HTMLRenderer struct {
	client   *Client
	template TemplateFunc
}

// NewHTMLRenderer constructs an HTMLRenderer.
func NewHTMLRenderer(client *Client, template TemplateFunc) *HTMLRenderer {
	return &HTMLRenderer{client: client, template: template}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if r == nil || r.client == nil || r.template == nil {
		return nil, fmt.Errorf("report: html renderer not configured")
	}
	html, err := r.template(DocumentTemplate, doc)
	if err != nil {
		return nil, fmt.Errorf("report: execute template: %w", err)
	}
	return r.client.RenderHTML(ctx, html)
}
