package quotations

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// round2 rounds half away from zero to two decimal places.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineInput carries the user entered figures of one line item.
type LineInput struct {
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
}

// LineAmounts are the derived amounts of one line item.
type LineAmounts struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Net is the line subtotal after the line discount.
func (l LineAmounts) Net() decimal.Decimal {
	return l.Subtotal.Sub(l.Discount)
}

// CalculateLine prices one line. Every intermediate amount is rounded to 2dp.
func CalculateLine(in LineInput) LineAmounts {
	subtotal := round2(in.Quantity.Mul(in.UnitPrice))
	discount := round2(subtotal.Mul(in.DiscountPercent).Div(hundred))
	tax := round2(subtotal.Sub(discount).Mul(in.TaxRate).Div(hundred))
	return LineAmounts{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    round2(subtotal.Sub(discount).Add(tax)),
	}
}

// Totals are the header amounts of a quotation.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxTotal      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// CalculateTotals applies the header discount to the line amounts. A percent
// discount is taken from the subtotal; a fixed amount is capped at the
// subtotal. Line tax is scaled down pro rata to the discounted base.
func CalculateTotals(lines []LineAmounts, discountType string, discountValue decimal.Decimal) Totals {
	subtotal := decimal.Zero
	lineTax := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Net())
		lineTax = lineTax.Add(l.Tax)
	}
	subtotal = round2(subtotal)

	discount := decimal.Zero
	if discountValue.IsPositive() {
		switch discountType {
		case DiscountAmount:
			discount = round2(discountValue)
		default:
			discount = round2(subtotal.Mul(discountValue).Div(hundred))
		}
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}

	tax := decimal.Zero
	if subtotal.IsPositive() {
		tax = round2(lineTax.Mul(subtotal.Sub(discount)).Div(subtotal))
	}
	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discount,
		TaxTotal:      tax,
		GrandTotal:    round2(subtotal.Sub(discount).Add(tax)),
	}
}

// priceItems fills the derived amounts of items and returns the header totals.
func priceItems(items []Item, discountType string, discountValue decimal.Decimal) Totals {
	amounts := make([]LineAmounts, len(items))
	for i := range items {
		a := CalculateLine(LineInput{
			Quantity:        items[i].Quantity,
			UnitPrice:       items[i].UnitPrice,
			DiscountPercent: items[i].DiscountPercent,
			TaxRate:         items[i].TaxRate,
		})
		items[i].LineSubtotal = a.Subtotal
		items[i].LineDiscount = a.Discount
		items[i].LineTax = a.Tax
		items[i].LineTotal = a.Total
		items[i].Position = i + 1
		amounts[i] = a
	}
	return CalculateTotals(amounts, discountType, discountValue)
}
