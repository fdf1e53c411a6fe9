// Package report renders printable documents to PDF, through Gotenberg or
// natively with gofpdf.
package report

import "context"

// Field is a labelled value printed in a document header or summary.
type Field struct {
	Label string
	Value string
}

// Column describes one table column. Numeric columns are right aligned.
type Column struct {
	Label   string
	Numeric bool
	Width   float64
}

// Document is a renderer independent description of a printable page.
type Document struct {
	Title     string
	Reference string
	Status    string
	Issuer    string
	Meta      []Field
	Columns   []Column
	Rows      [][]string
	Summary   []Field
	Sections  []Field
	Footer    string
}

// Renderer turns a Document into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, doc Document) ([]byte, error)

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, doc Document) ([]byte, error) {
	return f(ctx, doc)
}
