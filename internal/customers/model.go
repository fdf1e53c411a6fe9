package customers

import (
	"time"

	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type Customer struct {
	ID           int64
	Code         string
	Name         string
	Email        string
	Phone        string
	TaxID        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	AccountID    *int64
	AccountName  string
	IsActive     bool
	Notes        string
	CreatedBy    int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Detail is everything the customer page shows.
type Detail struct {
	Customer   Customer
	Contacts   []contacts.Contact
	Quotations []shared.QuoteSummary
}
