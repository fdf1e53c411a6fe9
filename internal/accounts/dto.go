package accounts

type AccountForm struct {
	Name              string `form:"name" validate:"required,max=200"`
	Industry          string `form:"industry" validate:"max=100"`
	Website           string `form:"website" validate:"omitempty,url,max=200"`
	Phone             string `form:"phone" validate:"max=50"`
	Email             string `form:"email" validate:"omitempty,email,max=200"`
	BillingStreet     string `form:"billing_street" validate:"max=200"`
	BillingCity       string `form:"billing_city" validate:"max=100"`
	BillingState      string `form:"billing_state" validate:"max=100"`
	BillingPostalCode string `form:"billing_postal_code" validate:"max=20"`
	BillingCountry    string `form:"billing_country" validate:"max=100"`
	Status            string `form:"status" validate:"required,oneof=prospect customer inactive"`
	Notes             string `form:"notes" validate:"max=5000"`
}

func formFromAccount(a Account) AccountForm {
	return AccountForm{
		Name:              a.Name,
		Industry:          a.Industry,
		Website:           a.Website,
		Phone:             a.Phone,
		Email:             a.Email,
		BillingStreet:     a.BillingStreet,
		BillingCity:       a.BillingCity,
		BillingState:      a.BillingState,
		BillingPostalCode: a.BillingPostalCode,
		BillingCountry:    a.BillingCountry,
		Status:            a.Status,
		Notes:             a.Notes,
	}
}

func (f AccountForm) apply(a *Account) {
	a.Name = f.Name
	a.Industry = f.Industry
	a.Website = f.Website
	a.Phone = f.Phone
	a.Email = f.Email
	a.BillingStreet = f.BillingStreet
	a.BillingCity = f.BillingCity
	a.BillingState = f.BillingState
	a.BillingPostalCode = f.BillingPostalCode
	a.BillingCountry = f.BillingCountry
	a.Status = f.Status
	a.Notes = f.Notes
}
