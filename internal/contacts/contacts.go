// Package contacts stores the people attached to accounts and customers.
// Each owner keeps at most one primary contact.
package contacts

import (
	"context"
	"strings"
	"time"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// ErrNotFound is returned when the contact does not belong to the owner.
var ErrNotFound = httpx.ErrNotFound

// Contact is a person at an account or customer.
type Contact struct {
	ID        int64
	OwnerID   int64
	Name      string
	Title     string
	Email     string
	Phone     string
	IsPrimary bool
	CreatedAt time.Time
}

// Form is the nested contact form.
type Form struct {
	Name      string `form:"contact_name" validate:"required,max=120"`
	Title     string `form:"contact_title" validate:"max=120"`
	Email     string `form:"contact_email" validate:"omitempty,email,max=200"`
	Phone     string `form:"contact_phone" validate:"max=50"`
	IsPrimary bool   `form:"contact_primary"`
}

// Store persists contacts for one owner table.
type Store interface {
	List(ctx context.Context, ownerID int64) ([]Contact, error)
	Insert(ctx context.Context, c Contact) (Contact, error)
	Delete(ctx context.Context, ownerID, id int64) (wasPrimary bool, err error)
	SetPrimary(ctx context.Context, ownerID, id int64) error
	PromoteOldest(ctx context.Context, ownerID int64) error
}

// Service applies the primary-contact rules on top of a Store.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the owner's contacts, primary first.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Contact, error) {
	return s.store.List(ctx, ownerID)
}

// Add validates and stores a contact. The first contact becomes primary.
func (s *Service) Add(ctx context.Context, ownerID int64, form Form) (Contact, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Title = strings.TrimSpace(form.Title)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Phone = strings.TrimSpace(form.Phone)
	if errs := shared.ValidateForm(form); errs != nil {
		return Contact{}, errs
	}
	existing, err := s.store.List(ctx, ownerID)
	if err != nil {
		return Contact{}, err
	}
	c, err := s.store.Insert(ctx, Contact{
		OwnerID: ownerID,
		Name:    form.Name,
		Title:   form.Title,
		Email:   form.Email,
		Phone:   form.Phone,
	})
	if err != nil {
		return Contact{}, err
	}
	if len(existing) == 0 || form.IsPrimary {
		if err := s.store.SetPrimary(ctx, ownerID, c.ID); err != nil {
			return Contact{}, err
		}
		c.IsPrimary = true
	}
	return c, nil
}

// Remove deletes a contact and hands the primary flag to the oldest remaining one.
func (s *Service) Remove(ctx context.Context, ownerID, id int64) error {
	wasPrimary, err := s.store.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if wasPrimary {
		return s.store.PromoteOldest(ctx, ownerID)
	}
	return nil
}

// MakePrimary marks id as the owner's only primary contact.
func (s *Service) MakePrimary(ctx context.Context, ownerID, id int64) error {
	return s.store.SetPrimary(ctx, ownerID, id)
}
