package categories

import (
	"context"
	"errors"
	"strings"

	"github.com/quotedesk/quotedesk/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, shared.Pagination, error) {
	cats, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return cats, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// Options returns every category for select boxes.
func (s *Service) Options(ctx context.Context) ([]Category, error) {
	return s.repo.All(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether the category id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Create(ctx context.Context, form CategoryForm) (Category, error) {
	form, err := s.validate(ctx, form, 0)
	if err != nil {
		return Category{}, err
	}
	c, err := s.repo.Create(ctx, Category{Name: form.Name, Description: form.Description})
	if errors.Is(err, ErrDuplicateName) {
		return Category{}, shared.FormErrors{"name": "has already been taken"}
	}
	return c, err
}

func (s *Service) Update(ctx context.Context, id int64, form CategoryForm) (Category, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Category{}, err
	}
	form, err = s.validate(ctx, form, id)
	if err != nil {
		return Category{}, err
	}
	current.Name, current.Description = form.Name, form.Description
	if err := s.repo.Update(ctx, current); err != nil {
		if errors.Is(err, ErrDuplicateName) {
			return Category{}, shared.FormErrors{"name": "has already been taken"}
		}
		return Category{}, err
	}
	return current, nil
}

// Delete removes the category unless products still reference it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	n, err := s.repo.CountProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) validate(ctx context.Context, form CategoryForm, exceptID int64) (CategoryForm, error) {
	form.Name = strings.TrimSpace(form.Name)
	form.Description = strings.TrimSpace(form.Description)
	if errs := shared.ValidateForm(form); errs != nil {
		return form, errs
	}
	taken, err := s.repo.NameTaken(ctx, form.Name, exceptID)
	if err != nil {
		return form, err
	}
	if taken {
		return form, shared.FormErrors{"name": "has already been taken"}
	}
	return form, nil
}
