package quotations

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/shared"
)

const dateLayout = "2006-01-02"

type QuotationForm struct {
	CustomerID     int64      `form:"customer_id" validate:"required,gt=0"`
	AccountID      *int64     `form:"account_id"`
	Title          string     `form:"title" validate:"required,max=200"`
	QuoteDate      string     `form:"quote_date" validate:"required,datetime=2006-01-02"`
	ValidUntil     string     `form:"valid_until" validate:"required,datetime=2006-01-02"`
	Currency       string     `form:"currency" validate:"required,len=3"`
	DiscountType   string     `form:"discount_type" validate:"required,oneof=percent amount"`
	DiscountValue  string     `form:"discount_value"`
	Notes          string     `form:"notes" validate:"max=5000"`
	Terms          string     `form:"terms" validate:"max=5000"`
	IdempotencyKey string     `form:"idempotency_key"`
	Items          []ItemForm `form:"items" validate:"dive"`
}

type ItemForm struct {
	ProductID       *int64 `form:"product_id"`
	Description     string `form:"description" validate:"required,max=500"`
	Quantity        string `form:"quantity" validate:"required"`
	UnitPrice       string `form:"unit_price" validate:"required"`
	DiscountPercent string `form:"discount_percent"`
	TaxRate         string `form:"tax_rate"`
}

// Blank reports whether the row was left empty in the form.
func (f ItemForm) Blank() bool {
	return f.ProductID == nil && strings.TrimSpace(f.Description) == "" &&
		strings.TrimSpace(f.Quantity) == "" && strings.TrimSpace(f.UnitPrice) == ""
}

// DecisionForm carries the approver note.
type DecisionForm struct {
	Note string `form:"decision_note" validate:"max=2000"`
}

func formFromQuotation(q Quotation, items []Item) QuotationForm {
	f := QuotationForm{
		CustomerID:    q.CustomerID,
		AccountID:     q.AccountID,
		Title:         q.Title,
		QuoteDate:     q.QuoteDate.Format(dateLayout),
		ValidUntil:    q.ValidUntil.Format(dateLayout),
		Currency:      q.Currency,
		DiscountType:  q.DiscountType,
		DiscountValue: q.DiscountValue.StringFixed(2),
		Notes:         q.Notes,
		Terms:         q.Terms,
	}
	for _, it := range items {
		f.Items = append(f.Items, ItemForm{
			ProductID:       it.ProductID,
			Description:     it.Description,
			Quantity:        it.Quantity.StringFixed(2),
			UnitPrice:       it.UnitPrice.StringFixed(2),
			DiscountPercent: it.DiscountPercent.StringFixed(2),
			TaxRate:         it.TaxRate.StringFixed(2),
		})
	}
	return f
}

func normalizeForm(f QuotationForm) QuotationForm {
	f.Title = strings.TrimSpace(f.Title)
	f.QuoteDate = strings.TrimSpace(f.QuoteDate)
	f.ValidUntil = strings.TrimSpace(f.ValidUntil)
	f.Currency = strings.ToUpper(strings.TrimSpace(f.Currency))
	f.DiscountType = strings.TrimSpace(f.DiscountType)
	if f.DiscountType == "" {
		f.DiscountType = DiscountPercent
	}
	f.DiscountValue = strings.TrimSpace(f.DiscountValue)
	f.Notes = strings.TrimSpace(f.Notes)
	f.Terms = strings.TrimSpace(f.Terms)
	items := f.Items[:0:0]
	for _, it := range f.Items {
		if it.Blank() {
			continue
		}
		it.Description = strings.TrimSpace(it.Description)
		it.Quantity = strings.TrimSpace(it.Quantity)
		it.UnitPrice = strings.TrimSpace(it.UnitPrice)
		it.DiscountPercent = strings.TrimSpace(it.DiscountPercent)
		it.TaxRate = strings.TrimSpace(it.TaxRate)
		items = append(items, it)
	}
	f.Items = items
	return f
}

// build validates the form and converts it to a priced quotation and items.
func build(f QuotationForm) (Quotation, []Item, error) {
	errs := shared.ValidateForm(f)
	if errs == nil {
		errs = shared.FormErrors{}
	}

	q := Quotation{
		CustomerID:   f.CustomerID,
		AccountID:    f.AccountID,
		Title:        f.Title,
		Currency:     f.Currency,
		DiscountType: f.DiscountType,
		Notes:        f.Notes,
		Terms:        f.Terms,
	}
	quoteDate, err1 := time.Parse(dateLayout, f.QuoteDate)
	validUntil, err2 := time.Parse(dateLayout, f.ValidUntil)
	if err1 == nil && err2 == nil {
		q.QuoteDate, q.ValidUntil = quoteDate, validUntil
		if validUntil.Before(quoteDate) {
			errs.Add("valid_until", "must not be before the quote date")
		}
	}

	q.DiscountValue = parseAmount(errs, "discount_value", f.DiscountValue, decimal.Zero, nil)
	if f.DiscountType == DiscountPercent {
		parseAmount(errs, "discount_value", f.DiscountValue, decimal.Zero, &hundred)
	}

	items := make([]Item, 0, len(f.Items))
	for i, it := range f.Items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }
		qty := parseAmount(errs, field("quantity"), it.Quantity, decimal.Zero, nil)
		if qty.IsZero() && it.Quantity != "" {
			errs.Add(field("quantity"), "must be greater than 0")
		}
		items = append(items, Item{
			ProductID:       it.ProductID,
			Description:     it.Description,
			Quantity:        qty,
			UnitPrice:       parseAmount(errs, field("unit_price"), it.UnitPrice, decimal.Zero, nil),
			DiscountPercent: parseAmount(errs, field("discount_percent"), it.DiscountPercent, decimal.Zero, &hundred),
			TaxRate:         parseAmount(errs, field("tax_rate"), it.TaxRate, decimal.Zero, &hundred),
		})
	}
	if errs.Any() {
		return Quotation{}, nil, errs
	}

	applyTotals(&q, priceItems(items, q.DiscountType, q.DiscountValue))
	return q, items, nil
}

// parseAmount reads a non-negative decimal rounded to 2dp. Blank means zero.
func parseAmount(errs shared.FormErrors, field, raw string, min decimal.Decimal, max *decimal.Decimal) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		errs.Add(field, "must be a number")
		return decimal.Zero
	}
	if v.LessThan(min) {
		errs.Add(field, "must be zero or greater")
		return decimal.Zero
	}
	if max != nil && v.GreaterThan(*max) {
		errs.Add(field, "must be "+max.String()+" or less")
		return decimal.Zero
	}
	return round2(v)
}

func applyTotals(q *Quotation, t Totals) {
	q.Subtotal = t.Subtotal
	q.DiscountTotal = t.DiscountTotal
	q.TaxTotal = t.TaxTotal
	q.GrandTotal = t.GrandTotal
}
