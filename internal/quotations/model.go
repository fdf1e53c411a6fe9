package quotations

import (
	"path"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// Status is the approval state of a quotation.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Statuses lists every status in workflow order.
func Statuses() []Status {
	return []Status{StatusDraft, StatusPending, StatusApproved, StatusRejected}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Decided reports whether the quotation reached a final decision.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

const (
	DiscountPercent = "percent"
	DiscountAmount  = "amount"
)

type Quotation struct {
	ID            int64
	Reference     string
	CustomerID    int64
	CustomerName  string
	CustomerEmail string
	AccountID     *int64
	AccountName   string
	Title         string
	QuoteDate     time.Time
	ValidUntil    time.Time
	Status        Status
	Editable      bool
	Version       int
	ParentID      *int64
	Currency      string
	DiscountType  string
	DiscountValue decimal.Decimal
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
	Notes         string
	Terms         string
	CreatedBy     int64
	CreatedByName string
	CreatorEmail  string
	SubmittedAt   *time.Time
	DecidedBy     *int64
	DecidedByName string
	DecidedAt     *time.Time
	DecisionNote  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RootID is the id of the first version in the quotation's revision family.
func (q Quotation) RootID() int64 {
	if q.ParentID != nil {
		return *q.ParentID
	}
	return q.ID
}

// Summary converts q to the shared listing row.
func (q Quotation) Summary() shared.QuoteSummary {
	return shared.QuoteSummary{
		ID:           q.ID,
		Reference:    q.Reference,
		Title:        q.Title,
		CustomerName: q.CustomerName,
		Status:       string(q.Status),
		Version:      q.Version,
		GrandTotal:   q.GrandTotal,
		Currency:     q.Currency,
		QuoteDate:    q.QuoteDate,
	}
}

type Item struct {
	ID              int64
	QuotationID     int64
	ProductID       *int64
	ProductSKU      string
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
	LineSubtotal    decimal.Decimal
	LineDiscount    decimal.Decimal
	LineTax         decimal.Decimal
	LineTotal       decimal.Decimal
	Position        int
}

type Media struct {
	ID            int64
	QuotationID   int64
	FileName      string
	MimeType      string
	SizeBytes     int64
	StoragePath   string
	ThumbnailPath string
	UploadedBy    int64
	CreatedAt     time.Time
}

// IsImage reports whether the file is a previewable image.
func (m Media) IsImage() bool {
	return strings.HasPrefix(m.MimeType, "image/")
}

// Ext returns the lower case file extension including the dot.
func (m Media) Ext() string {
	return strings.ToLower(path.Ext(m.FileName))
}

// Detail is everything the quotation page shows.
type Detail struct {
	Quotation Quotation
	Items     []Item
	Media     []Media
	Approvals []shared.ApprovalLog
	Versions  []shared.QuoteSummary
}
