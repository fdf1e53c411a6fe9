package products

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/shared"
)

var hundred = decimal.NewFromInt(100)

// normalizeForm trims the input and validates it, returning the parsed money
// values alongside any field errors.
func normalizeForm(form ProductForm) (ProductForm, decimal.Decimal, decimal.Decimal, shared.FormErrors) {
	form.SKU = strings.ToUpper(strings.TrimSpace(form.SKU))
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	form.Unit = strings.TrimSpace(form.Unit)
	form.UnitPrice = strings.TrimSpace(form.UnitPrice)
	form.TaxRate = strings.TrimSpace(form.TaxRate)
	if form.Unit == "" {
		form.Unit = "pcs"
	}
	if form.TaxRate == "" {
		form.TaxRate = "0"
	}

	errs := shared.ValidateForm(form)
	if errs == nil {
		errs = shared.FormErrors{}
	}
	var price, tax decimal.Decimal
	if form.UnitPrice != "" {
		p, err := decimal.NewFromString(form.UnitPrice)
		switch {
		case err != nil:
			errs.Add("unit_price", "must be a number")
		case p.IsNegative():
			errs.Add("unit_price", "must be zero or greater")
		default:
			price = p.Round(2)
		}
	}
	t, err := decimal.NewFromString(form.TaxRate)
	switch {
	case err != nil:
		errs.Add("tax_rate", "must be a number")
	case t.IsNegative() || t.GreaterThan(hundred):
		errs.Add("tax_rate", "must be between 0 and 100")
	default:
		tax = t.Round(2)
	}
	return form, price, tax, errs
}
