package customers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// FormatCode renders the generated customer code for sequence value n.
func FormatCode(n int64) string {
	return fmt.Sprintf("CUST-%06d", n)
}

// AccountChecker confirms that a linked account exists.
type AccountChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo     Repository
	accounts AccountChecker
	contacts *contacts.Service
	audit    shared.Auditor
	logger   *slog.Logger
}

func NewService(repo Repository, accounts AccountChecker, contacts *contacts.Service, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, accounts: accounts, contacts: contacts, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Customer, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// Options lists active customers for the quotation form.
func (s *Service) Options(ctx context.Context) ([]Customer, error) {
	return s.repo.Options(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Detail loads the customer with contacts and the quotations visible to user.
func (s *Service) Detail(ctx context.Context, id int64, user *shared.CurrentUser) (Detail, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	people, err := s.contacts.List(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	var owner *int64
	if user != nil && !user.Can(shared.PermQuotationsViewAll) {
		owner = &user.ID
	}
	quotes, err := s.repo.Quotations(ctx, id, owner, 20)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Customer: c, Contacts: people, Quotations: quotes}, nil
}

// generatedCodeAttempts bounds how many sequence values Create draws when
// earlier ones collide with hand-entered codes.
const generatedCodeAttempts = 5

// Create stores a customer, generating a code when none was entered.
func (s *Service) Create(ctx context.Context, actorID int64, form CustomerForm) (Customer, error) {
	form = normalize(form)
	if err := s.validate(ctx, form, 0); err != nil {
		return Customer{}, err
	}
	generated := form.Code == ""
	attempts := 1
	if generated {
		attempts = generatedCodeAttempts
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if generated {
			code, err := s.repo.NextCode(ctx)
			if err != nil {
				return Customer{}, err
			}
			form.Code = code
		}
		c := Customer{CreatedBy: actorID}
		form.apply(&c)
		created, err := s.repo.Create(ctx, c)
		if errors.Is(err, ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return Customer{}, err
		}
		s.record(ctx, actorID, "customer.create", created.ID)
		return created, nil
	}
	if generated {
		return Customer{}, fmt.Errorf("customers: no free code after %d attempts: %w", attempts, ErrDuplicateCode)
	}
	return Customer{}, shared.FormErrors{"code": "has already been taken"}
}

func (s *Service) Update(ctx context.Context, actorID, id int64, form CustomerForm) (Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Customer{}, err
	}
	form = normalize(form)
	if form.Code == "" {
		form.Code = c.Code
	}
	if err := s.validate(ctx, form, id); err != nil {
		return Customer{}, err
	}
	form.apply(&c)
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return Customer{}, shared.FormErrors{"code": "has already been taken"}
		}
		return Customer{}, err
	}
	s.record(ctx, actorID, "customer.update", id)
	return c, nil
}

// Delete removes the customer unless quotations reference it.
func (s *Service) Delete(ctx context.Context, actorID, id int64) error {
	n, err := s.repo.CountQuotations(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasQuotations
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actorID, "customer.delete", id)
	return nil
}

func (s *Service) AddContact(ctx context.Context, id int64, form contacts.Form) (contacts.Contact, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return contacts.Contact{}, err
	}
	return s.contacts.Add(ctx, id, form)
}

func (s *Service) RemoveContact(ctx context.Context, id, contactID int64) error {
	return s.contacts.Remove(ctx, id, contactID)
}

func (s *Service) MakePrimaryContact(ctx context.Context, id, contactID int64) error {
	return s.contacts.MakePrimary(ctx, id, contactID)
}

func (s *Service) validate(ctx context.Context, form CustomerForm, exceptID int64) error {
	errs := shared.ValidateForm(form)
	if errs == nil {
		errs = shared.FormErrors{}
	}
	if form.Code != "" {
		taken, err := s.repo.CodeTaken(ctx, form.Code, exceptID)
		if err != nil {
			return err
		}
		if taken {
			errs.Add("code", "has already been taken")
		}
	}
	if form.AccountID != nil && s.accounts != nil {
		ok, err := s.accounts.Exists(ctx, *form.AccountID)
		if err != nil {
			return err
		}
		if !ok {
			errs.Add("account_id", "does not exist")
		}
	}
	if errs.Any() {
		return errs
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{ActorID: actorID, Action: action, Entity: "customer", EntityID: strconv.FormatInt(id, 10)})
}

func normalize(f CustomerForm) CustomerForm {
	f.Code = strings.ToUpper(strings.TrimSpace(f.Code))
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Phone = strings.TrimSpace(f.Phone)
	f.TaxID = strings.TrimSpace(f.TaxID)
	f.AddressLine1 = strings.TrimSpace(f.AddressLine1)
	f.AddressLine2 = strings.TrimSpace(f.AddressLine2)
	f.City = strings.TrimSpace(f.City)
	f.State = strings.TrimSpace(f.State)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	f.Country = strings.TrimSpace(f.Country)
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// Exists reports whether the customer id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
