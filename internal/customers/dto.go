package customers

type CustomerForm struct {
	Code         string `form:"code" validate:"omitempty,max=50"`
	Name         string `form:"name" validate:"required,max=200"`
	Email        string `form:"email" validate:"omitempty,email,max=200"`
	Phone        string `form:"phone" validate:"max=50"`
	TaxID        string `form:"tax_id" validate:"max=50"`
	AddressLine1 string `form:"address_line1" validate:"max=200"`
	AddressLine2 string `form:"address_line2" validate:"max=200"`
	City         string `form:"city" validate:"max=100"`
	State        string `form:"state" validate:"max=100"`
	PostalCode   string `form:"postal_code" validate:"max=20"`
	Country      string `form:"country" validate:"max=100"`
	AccountID    *int64 `form:"account_id"`
	IsActive     bool   `form:"is_active"`
	Notes        string `form:"notes" validate:"max=5000"`
}

func formFromCustomer(c Customer) CustomerForm {
	return CustomerForm{
		Code:         c.Code,
		Name:         c.Name,
		Email:        c.Email,
		Phone:        c.Phone,
		TaxID:        c.TaxID,
		AddressLine1: c.AddressLine1,
		AddressLine2: c.AddressLine2,
		City:         c.City,
		State:        c.State,
		PostalCode:   c.PostalCode,
		Country:      c.Country,
		AccountID:    c.AccountID,
		IsActive:     c.IsActive,
		Notes:        c.Notes,
	}
}

func (f CustomerForm) apply(c *Customer) {
	c.Code = f.Code
	c.Name = f.Name
	c.Email = f.Email
	c.Phone = f.Phone
	c.TaxID = f.TaxID
	c.AddressLine1 = f.AddressLine1
	c.AddressLine2 = f.AddressLine2
	c.City = f.City
	c.State = f.State
	c.PostalCode = f.PostalCode
	c.Country = f.Country
	c.AccountID = f.AccountID
	c.IsActive = f.IsActive
	c.Notes = f.Notes
}
