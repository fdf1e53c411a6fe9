// Package reports aggregates quotation activity into sales reports and
// exports them as CSV or XLSX.
package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Filter selects the quotations a report covers. UserID narrows the report to
// quotations created by one sales user.
type Filter struct {
	From   time.Time
	To     time.Time
	UserID *int64
}

// MonthTotal is the approved value for one calendar month.
type MonthTotal struct {
	Month string          `json:"month"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// StatusTotal counts quotations in one workflow status.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// UserTotal is the approved value closed by one sales user.
type UserTotal struct {
	UserID int64           `json:"user_id"`
	Name   string          `json:"name"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// ProductTotal is the approved revenue of one product. Lines without a
// product are grouped with a nil ProductID.
type ProductTotal struct {
	ProductID *int64          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// ApprovedQuote is one approved quotation listed in exports.
type ApprovedQuote struct {
	ID           int64           `json:"id"`
	Reference    string          `json:"reference"`
	QuoteDate    time.Time       `json:"quote_date"`
	CustomerName string          `json:"customer_name"`
	OwnerName    string          `json:"owner_name"`
	Currency     string          `json:"currency"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// SalesReport is the cached result of one report run.
type SalesReport struct {
	From           string          `json:"from"`
	To             string          `json:"to"`
	UserID         *int64          `json:"user_id,omitempty"`
	ByMonth        []MonthTotal    `json:"by_month"`
	ByStatus       []StatusTotal   `json:"by_status"`
	ByUser         []UserTotal     `json:"by_user"`
	TopProducts    []ProductTotal  `json:"top_products"`
	Quotations     []ApprovedQuote `json:"quotations"`
	ApprovedCount  int             `json:"approved_count"`
	ApprovedTotal  decimal.Decimal `json:"approved_total"`
	DecidedCount   int             `json:"decided_count"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// SalesUser is an option in the sales user filter.
type SalesUser struct {
	ID   int64
	Name string
}
