package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteSummary is the compact quotation row shown on related pages.
type QuoteSummary struct {
	ID           int64
	Reference    string
	Title        string
	CustomerName string
	Status       string
	Version      int
	GrandTotal   decimal.Decimal
	Currency     string
	QuoteDate    time.Time
}
