package products

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/catalog/categories"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// CategoryLister feeds the category select box.
type CategoryLister interface {
	Options(ctx context.Context) ([]categories.Category, error)
}

type Handler struct {
	service    *Service
	categories CategoryLister
	pages      view.Responder
	rbac       rbac.Middleware
}

func NewHandler(service *Service, categories CategoryLister, pages view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, categories: categories, pages: pages, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermProductsView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductsCreate))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductsEdit))
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermProductsDelete))
		r.Post("/{id}/delete", h.Delete)
	})
}

// MountAPI registers the JSON lookup used by the quotation form.
func (h *Handler) MountAPI(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermProductsView)).Get("/products/{id}", h.ShowJSON)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	items, page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	cats, err := h.categories.Options(r.Context())
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/products/index.html", "Products", map[string]any{
		"Products":   items,
		"Categories": cats,
		"Pagination": page,
		"Filters":    filters,
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/products", err)
		return
	}
	h.pages.Render(w, r, "pages/products/show.html", p.Name, map[string]any{"Product": p}, http.StatusOK)
}

func (h *Handler) ShowJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	data, err := h.formData(r.Context(), nil, ProductForm{Unit: "pcs", TaxRate: "0", IsActive: true})
	if err != nil {
		h.pages.Fail(w, r, "/products", err)
		return
	}
	h.pages.Render(w, r, "pages/products/form.html", "New product", data, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	p, err := h.service.Create(r.Context(), form)
	if err != nil {
		data, derr := h.formData(r.Context(), nil, form)
		if derr != nil {
			h.pages.Fail(w, r, "/products", derr)
			return
		}
		h.pages.FormError(w, r, "pages/products/form.html", "New product", data, err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/products/"+strconv.FormatInt(p.ID, 10), "success", "Product created")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/products", err)
		return
	}
	form := ProductForm{
		SKU:         p.SKU,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Unit:        p.Unit,
		UnitPrice:   p.UnitPrice.StringFixed(2),
		TaxRate:     p.TaxRate.StringFixed(2),
		IsActive:    p.IsActive,
	}
	data, err := h.formData(r.Context(), &p, form)
	if err != nil {
		h.pages.Fail(w, r, "/products", err)
		return
	}
	h.pages.Render(w, r, "pages/products/form.html", "Edit product", data, http.StatusOK)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	if _, err := h.service.Update(r.Context(), id, form); err != nil {
		data, derr := h.formData(r.Context(), &Product{ID: id}, form)
		if derr != nil {
			h.pages.Fail(w, r, "/products", derr)
			return
		}
		h.pages.FormError(w, r, "pages/products/form.html", "Edit product", data, err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/products/"+strconv.FormatInt(id, 10), "success", "Product updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	deactivated, err := h.service.Delete(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/products", err)
		return
	}
	if deactivated {
		h.pages.RedirectWithFlash(w, r, "/products", "warning", "Product is used in quotations and was deactivated instead")
		return
	}
	h.pages.RedirectWithFlash(w, r, "/products", "success", "Product deleted")
}

func (h *Handler) formData(ctx context.Context, p *Product, form ProductForm) (map[string]any, error) {
	cats, err := h.categories.Options(ctx)
	if err != nil {
		return nil, err
	}
	action := "/products"
	if p != nil {
		action = "/products/" + strconv.FormatInt(p.ID, 10) + "/edit"
	}
	return map[string]any{
		"Product":    p,
		"Form":       form,
		"Action":     action,
		"Categories": cats,
		"Errors":     shared.FormErrors{},
	}, nil
}

func parseForm(r *http.Request) ProductForm {
	categoryID, _ := strconv.ParseInt(r.PostFormValue("category_id"), 10, 64)
	return ProductForm{
		SKU:         r.PostFormValue("sku"),
		Name:        r.PostFormValue("name"),
		Description: r.PostFormValue("description"),
		CategoryID:  categoryID,
		Unit:        r.PostFormValue("unit"),
		UnitPrice:   r.PostFormValue("unit_price"),
		TaxRate:     r.PostFormValue("tax_rate"),
		IsActive:    shared.FormBool(r.PostFormValue("is_active")),
	}
}
