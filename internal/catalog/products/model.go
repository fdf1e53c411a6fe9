package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable catalog item.
type Product struct {
	ID           int64           `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	CategoryID   int64           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ProductForm is the create/edit input. Numeric fields stay strings so the
// form can be re-rendered exactly as typed.
type ProductForm struct {
	SKU         string `form:"sku" validate:"required,max=64"`
	Name        string `form:"name" validate:"required,max=200"`
	Description string `form:"description" validate:"max=2000"`
	CategoryID  int64  `form:"category_id" validate:"required,gt=0"`
	Unit        string `form:"unit" validate:"required,max=20"`
	UnitPrice   string `form:"unit_price" validate:"required"`
	TaxRate     string `form:"tax_rate"`
	IsActive    bool   `form:"is_active"`
}
