package categories

import "time"

// Category groups products in the catalog.
type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	ProductCount int       `json:"product_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CategoryForm is the create/edit input.
type CategoryForm struct {
	Name        string `form:"name" validate:"required,max=120"`
	Description string `form:"description" validate:"max=1000"`
}
