package products

import (
	"context"
	"errors"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// CategoryChecker confirms a category exists.
type CategoryChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type Service struct {
	repo       Repository
	categories CategoryChecker
}

func NewService(repo Repository, categories CategoryChecker) *Service {
	return &Service{repo: repo, categories: categories}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// Active returns the products offered on the quotation form.
func (s *Service) Active(ctx context.Context) ([]Product, error) {
	return s.repo.Active(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, form ProductForm) (Product, error) {
	p, err := s.build(ctx, form, 0)
	if err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, p)
	if errors.Is(err, ErrDuplicateSKU) {
		return Product{}, shared.FormErrors{"sku": "has already been taken"}
	}
	return created, err
}

func (s *Service) Update(ctx context.Context, id int64, form ProductForm) (Product, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	p, err := s.build(ctx, form, id)
	if err != nil {
		return Product{}, err
	}
	p.ID, p.CreatedAt = current.ID, current.CreatedAt
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrDuplicateSKU) {
			return Product{}, shared.FormErrors{"sku": "has already been taken"}
		}
		return Product{}, err
	}
	return p, nil
}

// Delete removes the product, or deactivates it when quotations still
// reference it. The boolean reports whether it was only deactivated.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return false, err
	}
	used, err := s.repo.UsedInQuotations(ctx, id)
	if err != nil {
		return false, err
	}
	if used {
		return true, s.repo.SetActive(ctx, id, false)
	}
	return false, s.repo.Delete(ctx, id)
}

func (s *Service) build(ctx context.Context, form ProductForm, exceptID int64) (Product, error) {
	form, price, tax, errs := normalizeForm(form)
	if form.SKU != "" {
		taken, err := s.repo.SKUTaken(ctx, form.SKU, exceptID)
		if err != nil {
			return Product{}, err
		}
		if taken {
			errs.Add("sku", "has already been taken")
		}
	}
	if form.CategoryID > 0 && s.categories != nil {
		ok, err := s.categories.Exists(ctx, form.CategoryID)
		if err != nil {
			return Product{}, err
		}
		if !ok {
			errs.Add("category_id", "does not exist")
		}
	}
	if errs.Any() {
		return Product{}, errs
	}
	return Product{
		SKU:         form.SKU,
		Name:        form.Name,
		Description: form.Description,
		CategoryID:  form.CategoryID,
		Unit:        form.Unit,
		UnitPrice:   price,
		TaxRate:     tax,
		IsActive:    form.IsActive,
	}, nil
}

// Exists reports whether the product id is known.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	_, err := s.repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
