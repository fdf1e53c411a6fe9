package users

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quotedesk/quotedesk/internal/auth"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filters shared.ListFilters) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error)
	CreateUser(ctx context.Context, u User, passwordHash string) (int64, error)
	UpdateUser(ctx context.Context, u User, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	audit  shared.Auditor
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit shared.Auditor, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, filters shared.ListFilters) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.ListUsers(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// GetUser loads a user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser validates the form and stores a new user.
func (s *Service) CreateUser(ctx context.Context, actorID int64, form UserForm) (User, error) {
	form = normalize(form)
	errs := shared.ValidateForm(form)
	if errs == nil {
		errs = shared.FormErrors{}
	}
	if form.Password == "" {
		errs.Add("password", "is required")
	}
	if err := s.checkEmail(ctx, form.Email, 0, errs); err != nil {
		return User{}, err
	}
	if errs.Any() {
		return User{}, errs
	}
	hash, err := auth.HashPassword(form.Password)
	if err != nil {
		return User{}, err
	}
	u := User{Name: form.Name, Email: form.Email, Role: form.Role, IsActive: true}
	id, err := s.repo.CreateUser(ctx, u, hash)
	if err != nil {
		if errors.Is(err, errEmailTaken) {
			return User{}, shared.FormErrors{"email": "is already registered"}
		}
		return User{}, err
	}
	u.ID = id
	s.record(ctx, actorID, "user.create", id, map[string]any{"role": u.Role})
	return u, nil
}

// UpdateUser applies the edit form. A blank password keeps the current one.
func (s *Service) UpdateUser(ctx context.Context, actorID, id int64, form UserForm) (User, error) {
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	form = normalize(form)
	errs := shared.ValidateForm(form)
	if errs == nil {
		errs = shared.FormErrors{}
	}
	if err := s.checkEmail(ctx, form.Email, id, errs); err != nil {
		return User{}, err
	}
	if actorID == id && !form.IsActive {
		errs.Add("is_active", "cannot be cleared on your own account")
	}
	if actorID == id && form.Role != current.Role {
		errs.Add("role", "cannot be changed on your own account")
	}
	if errs.Any() {
		return User{}, errs
	}
	var hash string
	if form.Password != "" {
		if hash, err = auth.HashPassword(form.Password); err != nil {
			return User{}, err
		}
	}
	current.Name, current.Email, current.Role, current.IsActive = form.Name, form.Email, form.Role, form.IsActive
	if err := s.repo.UpdateUser(ctx, current, hash); err != nil {
		if errors.Is(err, errEmailTaken) {
			return User{}, shared.FormErrors{"email": "is already registered"}
		}
		return User{}, err
	}
	s.record(ctx, actorID, "user.update", id, map[string]any{"role": current.Role, "active": current.IsActive})
	return current, nil
}

// Deactivate soft-deletes a user.
func (s *Service) Deactivate(ctx context.Context, actorID, id int64) error {
	if actorID == id {
		return ErrSelfDeactivate
	}
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.record(ctx, actorID, "user.deactivate", id, nil)
	return nil
}

func (s *Service) checkEmail(ctx context.Context, email string, exceptID int64, errs shared.FormErrors) error {
	if email == "" {
		return nil
	}
	taken, err := s.repo.EmailTaken(ctx, email, exceptID)
	if err != nil {
		return err
	}
	if taken {
		errs.Add("email", "is already registered")
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{ActorID: actorID, Action: action, Entity: "user", EntityID: strconv.FormatInt(id, 10), Meta: meta})
}

func normalize(form UserForm) UserForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.Role = strings.TrimSpace(form.Role)
	return form
}
