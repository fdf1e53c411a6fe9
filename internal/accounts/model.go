package accounts

import (
	"time"

	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// Status values for an account.
const (
	StatusProspect = "prospect"
	StatusCustomer = "customer"
	StatusInactive = "inactive"
)

// Statuses lists the selectable account statuses.
func Statuses() []string {
	return []string{StatusProspect, StatusCustomer, StatusInactive}
}

type Account struct {
	ID                int64
	Name              string
	Industry          string
	Website           string
	Phone             string
	Email             string
	BillingStreet     string
	BillingCity       string
	BillingState      string
	BillingPostalCode string
	BillingCountry    string
	Status            string
	OwnerID           *int64
	OwnerName         string
	Notes             string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LinkedCustomer is a customer record attached to the account.
type LinkedCustomer struct {
	ID   int64
	Code string
	Name string
}

// Detail is everything the account page shows.
type Detail struct {
	Account    Account
	Contacts   []contacts.Contact
	Customers  []LinkedCustomer
	Quotations []shared.QuoteSummary
}
