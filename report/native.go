package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// NativeRenderer draws documents with gofpdf without any external service.
type NativeRenderer struct{}

// NewNativeRenderer constructs a NativeRenderer.
func NewNativeRenderer() *NativeRenderer {
	return &NativeRenderer{}
}

const (
	pageMargin   = 15.0
	contentWidth = 210 - 2*pageMargin
	lineHeight   = 6.0
)

// Render implements Renderer.
func (NativeRenderer) Render(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	if doc.Footer != "" {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-pageMargin)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.CellFormat(0, 10, tr(fmt.Sprintf("%s  |  page %d", doc.Footer, pdf.PageNo())), "", 0, "C", false, 0, "")
		})
	}
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentWidth*0.6, 10, tr(doc.Title), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(contentWidth*0.4, 10, tr(doc.Reference), "", 1, "R", false, 0, "")
	if doc.Issuer != "" || doc.Status != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(contentWidth*0.6, lineHeight, tr(doc.Issuer), "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth*0.4, lineHeight, tr(doc.Status), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	for _, f := range doc.Meta {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, lineHeight, tr(f.Label), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentWidth-40, lineHeight, tr(f.Value), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	widths := columnWidths(doc.Columns)
	if len(doc.Columns) > 0 {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(235, 238, 242)
		for i, c := range doc.Columns {
			pdf.CellFormat(widths[i], 7, tr(c.Label), "1", 0, align(c), true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, row := range doc.Rows {
			drawRow(pdf, tr, doc.Columns, widths, row)
		}
	}
	pdf.Ln(3)

	for _, f := range doc.Summary {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(contentWidth-45, lineHeight, tr(f.Label), "", 0, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(45, lineHeight, tr(f.Value), "", 1, "R", false, 0, "")
	}

	for _, s := range doc.Sections {
		if s.Value == "" {
			continue
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, lineHeight, tr(s.Label), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(s.Value), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("report: native render: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("report: native output: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapRow splits every cell of row to its column width. Each cell yields at
// least one line.
func wrapRow(pdf *gofpdf.Fpdf, tr func(string) string, widths []float64, row []string) [][]string {
	cells := make([][]string, len(widths))
	for i, w := range widths {
		value := ""
		if i < len(row) {
			value = row[i]
		}
		for _, line := range pdf.SplitLines([]byte(tr(value)), w) {
			cells[i] = append(cells[i], string(line))
		}
		if len(cells[i]) == 0 {
			cells[i] = []string{""}
		}
	}
	return cells
}

// drawRow draws a bordered table row as tall as its longest cell. The row
// moves to a new page when it would cross the bottom margin.
func drawRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []Column, widths []float64, row []string) {
	cells := wrapRow(pdf, tr, widths, row)
	lines := 1
	for _, cell := range cells {
		lines = max(lines, len(cell))
	}
	height := float64(lines) * lineHeight
	_, pageHeight := pdf.GetPageSize()
	if pdf.GetY()+height > pageHeight-pageMargin {
		pdf.AddPage()
	}
	x, y := pdf.GetX(), pdf.GetY()
	for i, c := range cols {
		pdf.Rect(x, y, widths[i], height, "D")
		for k, line := range cells[i] {
			pdf.SetXY(x, y+float64(k)*lineHeight)
			pdf.CellFormat(widths[i], lineHeight, line, "", 0, align(c), false, 0, "")
		}
		x += widths[i]
	}
	pdf.SetXY(pageMargin, y+height)
}

func columnWidths(cols []Column) []float64 {
	widths := make([]float64, len(cols))
	fixed, flexible := 0.0, 0
	for i, c := range cols {
		widths[i] = c.Width
		if c.Width > 0 {
			fixed += c.Width
		} else {
			flexible++
		}
	}
	if flexible > 0 {
		share := (contentWidth - fixed) / float64(flexible)
		for i := range widths {
			if widths[i] == 0 {
				widths[i] = share
			}
		}
	}
	return widths
}

func align(c Column) string {
	if c.Numeric {
		return "R"
	}
	return "L"
}
