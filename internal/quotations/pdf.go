package quotations

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
	"github.com/quotedesk/quotedesk/report"
)

// PDFRenderer turns a printable document into PDF bytes.
type PDFRenderer interface {
	Render(ctx context.Context, doc report.Document) ([]byte, error)
}

// Document describes the printable form of a quotation.
func Document(q Quotation, items []Item) report.Document {
	doc := report.Document{
		Title:     "Quotation",
		Reference: q.Reference,
		Status:    string(q.Status),
		Issuer:    q.CreatedByName,
		Meta:      []report.Field{{Label: "Customer", Value: q.CustomerName}},
		Columns: []report.Column{
			{Label: "#", Width: 8},
			{Label: "Description"},
			{Label: "Qty", Numeric: true, Width: 18},
			{Label: "Unit price", Numeric: true, Width: 26},
			{Label: "Disc %", Numeric: true, Width: 16},
			{Label: "Tax %", Numeric: true, Width: 16},
			{Label: "Total", Numeric: true, Width: 28},
		},
		Summary: []report.Field{
			{Label: "Subtotal", Value: money(q, q.Subtotal)},
			{Label: "Discount", Value: money(q, q.DiscountTotal)},
			{Label: "Tax", Value: money(q, q.TaxTotal)},
			{Label: "Grand total", Value: money(q, q.GrandTotal)},
		},
		Sections: []report.Field{
			{Label: "Notes", Value: q.Notes},
			{Label: "Terms & conditions", Value: q.Terms},
		},
		Footer: q.Reference,
	}
	if q.AccountName != "" {
		doc.Meta = append(doc.Meta, report.Field{Label: "Account", Value: q.AccountName})
	}
	doc.Meta = append(doc.Meta,
		report.Field{Label: "Subject", Value: q.Title},
		report.Field{Label: "Quote date", Value: q.QuoteDate.Format("02 Jan 2006")},
		report.Field{Label: "Valid until", Value: q.ValidUntil.Format("02 Jan 2006")},
		report.Field{Label: "Version", Value: strconv.Itoa(q.Version)},
	)
	for _, it := range items {
		doc.Rows = append(doc.Rows, []string{
			strconv.Itoa(it.Position),
			it.Description,
			view.FormatMoney(it.Quantity),
			view.FormatMoney(it.UnitPrice),
			it.DiscountPercent.StringFixed(2),
			it.TaxRate.StringFixed(2),
			view.FormatMoney(it.LineTotal),
		})
	}
	return doc
}

func money(q Quotation, amount decimal.Decimal) string {
	return q.Currency + " " + view.FormatMoney(amount)
}

// PDF renders the quotation for download.
func (s *Service) PDF(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, []byte, error) {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return Quotation{}, nil, err
	}
	out, err := s.renderPDF(ctx, q)
	return q, out, err
}

func (s *Service) renderPDF(ctx context.Context, q Quotation) ([]byte, error) {
	if s.deps.PDF == nil {
		return nil, fmt.Errorf("quotations: pdf renderer not configured")
	}
	items, err := s.repo.Items(ctx, q.ID)
	if err != nil {
		return nil, err
	}
	return s.deps.PDF.Render(ctx, Document(q, items))
}

// StoreApprovedPDF renders an approved quotation and keeps the file as an
// attachment. It is run by the background worker.
func (s *Service) StoreApprovedPDF(ctx context.Context, id int64) (Media, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Media{}, err
	}
	if q.Status != StatusApproved {
		return Media{}, ErrInvalidStatus
	}
	out, err := s.renderPDF(ctx, q)
	if err != nil {
		return Media{}, err
	}
	uploader := q.CreatedBy
	if q.DecidedBy != nil {
		uploader = *q.DecidedBy
	}
	return s.storeMedia(ctx, q.ID, uploader, q.Reference+".pdf", "application/pdf", out)
}
