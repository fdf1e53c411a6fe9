package quotations

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateLine(t *testing.T) {
	cases := []struct {
		name                       string
		in                         LineInput
		subtotal, disc, tax, total string
	}{
		{"plain", LineInput{Quantity: d("2"), UnitPrice: d("100"), DiscountPercent: d("0"), TaxRate: d("0")}, "200", "0", "0", "200"},
		{"discount and tax", LineInput{Quantity: d("3"), UnitPrice: d("19.99"), DiscountPercent: d("10"), TaxRate: d("11")}, "59.97", "6", "5.94", "59.91"},
		{"half rounds away from zero", LineInput{Quantity: d("1"), UnitPrice: d("0.05"), DiscountPercent: d("50"), TaxRate: d("0")}, "0.05", "0.03", "0", "0.02"},
		{"fractional quantity", LineInput{Quantity: d("1.5"), UnitPrice: d("33.33"), DiscountPercent: d("0"), TaxRate: d("7.5")}, "50", "0", "3.75", "53.75"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateLine(tc.in)
			assert.True(t, d(tc.subtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			assert.True(t, d(tc.disc).Equal(got.Discount), "discount %s", got.Discount)
			assert.True(t, d(tc.tax).Equal(got.Tax), "tax %s", got.Tax)
			assert.True(t, d(tc.total).Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestCalculateTotals(t *testing.T) {
	lines := []LineAmounts{
		CalculateLine(LineInput{Quantity: d("2"), UnitPrice: d("100"), TaxRate: d("10")}),
		CalculateLine(LineInput{Quantity: d("1"), UnitPrice: d("50"), DiscountPercent: d("20"), TaxRate: d("0")}),
	}

	t.Run("no header discount", func(t *testing.T) {
		got := CalculateTotals(lines, DiscountPercent, decimal.Zero)
		assert.True(t, d("240").Equal(got.Subtotal))
		assert.True(t, d("0").Equal(got.DiscountTotal))
		assert.True(t, d("20").Equal(got.TaxTotal))
		assert.True(t, d("260").Equal(got.GrandTotal))
	})

	t.Run("percent discount scales tax", func(t *testing.T) {
		got := CalculateTotals(lines, DiscountPercent, d("10"))
		assert.True(t, d("24").Equal(got.DiscountTotal))
		assert.True(t, d("18").Equal(got.TaxTotal))
		assert.True(t, d("234").Equal(got.GrandTotal))
	})

	t.Run("amount discount capped at subtotal", func(t *testing.T) {
		got := CalculateTotals(lines, DiscountAmount, d("1000"))
		assert.True(t, d("240").Equal(got.DiscountTotal))
		assert.True(t, got.TaxTotal.IsZero())
		assert.True(t, got.GrandTotal.IsZero())
	})

	t.Run("empty", func(t *testing.T) {
		got := CalculateTotals(nil, DiscountAmount, d("5"))
		assert.True(t, got.Subtotal.IsZero())
		assert.True(t, got.DiscountTotal.IsZero())
		assert.True(t, got.GrandTotal.IsZero())
	})
}

func TestPriceItemsNumbersPositions(t *testing.T) {
	items := []Item{
		{Description: "a", Quantity: d("1"), UnitPrice: d("10")},
		{Description: "b", Quantity: d("2"), UnitPrice: d("5"), TaxRate: d("10")},
	}
	totals := priceItems(items, DiscountPercent, decimal.Zero)
	assert.Equal(t, 1, items[0].Position)
	assert.Equal(t, 2, items[1].Position)
	assert.True(t, d("11").Equal(items[1].LineTotal))
	assert.True(t, d("21").Equal(totals.GrandTotal))
}
