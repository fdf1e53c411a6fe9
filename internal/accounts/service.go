package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/shared"
)

type Service struct {
	repo     Repository
	contacts *contacts.Service
	audit    shared.Auditor
	logger   *slog.Logger
}

func NewService(repo Repository, contacts *contacts.Service, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, contacts: contacts, audit: audit, logger: logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Account, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// Options lists active accounts for select boxes.
func (s *Service) Options(ctx context.Context) ([]Account, error) {
	return s.repo.Options(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Detail loads the account with its contacts, customers and the quotations
// visible to user.
func (s *Service) Detail(ctx context.Context, id int64, user *shared.CurrentUser) (Detail, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	people, err := s.contacts.List(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	customers, err := s.repo.Customers(ctx, id)
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
	return Detail{Account: a, Contacts: people, Customers: customers, Quotations: quotes}, nil
}

func (s *Service) Create(ctx context.Context, actorID int64, form AccountForm) (Account, error) {
	form = normalize(form)
	if errs := shared.ValidateForm(form); errs != nil {
		return Account{}, errs
	}
	var a Account
	form.apply(&a)
	if actorID > 0 {
		a.OwnerID = &actorID
	}
	created, err := s.repo.Create(ctx, a)
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, actorID, "account.create", created.ID)
	return created, nil
}

func (s *Service) Update(ctx context.Context, actorID, id int64, form AccountForm) (Account, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Account{}, err
	}
	form = normalize(form)
	if errs := shared.ValidateForm(form); errs != nil {
		return Account{}, errs
	}
	form.apply(&a)
	if err := s.repo.Update(ctx, a); err != nil {
		return Account{}, err
	}
	s.record(ctx, actorID, "account.update", id)
	return a, nil
}

// Delete removes the account unless quotations reference it.
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
	s.record(ctx, actorID, "account.delete", id)
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

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64) {
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{ActorID: actorID, Action: action, Entity: "account", EntityID: strconv.FormatInt(id, 10)})
}

func normalize(f AccountForm) AccountForm {
	f.Name = strings.TrimSpace(f.Name)
	f.Industry = strings.TrimSpace(f.Industry)
	f.Website = strings.TrimSpace(f.Website)
	if f.Website != "" && !strings.Contains(f.Website, "://") {
		f.Website = "https://" + f.Website
	}
	f.Phone = strings.TrimSpace(f.Phone)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Status = strings.TrimSpace(f.Status)
	if f.Status == "" {
		f.Status = StatusProspect
	}
	f.Notes = strings.TrimSpace(f.Notes)
	return f
}

// Exists reports whether the account id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
