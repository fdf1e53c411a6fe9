package categories

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

type Handler struct {
	service *Service
	pages   view.Responder
	rbac    rbac.Middleware
}

func NewHandler(service *Service, pages view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, pages: pages, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCategoriesView))
		r.Get("/", h.List)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCategoriesManage))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Post("/{id}/delete", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	cats, page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/categories/index.html", "Categories", map[string]any{
		"Categories": cats,
		"Pagination": page,
		"Filters":    filters,
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "pages/categories/form.html", "New category", formData(nil, CategoryForm{}), http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	if _, err := h.service.Create(r.Context(), form); err != nil {
		h.pages.FormError(w, r, "pages/categories/form.html", "New category", formData(nil, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/categories", "success", "Category created")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	cat, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/categories", err)
		return
	}
	h.pages.Render(w, r, "pages/categories/form.html", "Edit category",
		formData(&cat, CategoryForm{Name: cat.Name, Description: cat.Description}), http.StatusOK)
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
		h.pages.FormError(w, r, "pages/categories/form.html", "Edit category", formData(&Category{ID: id}, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/categories", "success", "Category updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.pages.Fail(w, r, "/categories", err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/categories", "success", "Category deleted")
}

func formData(cat *Category, form CategoryForm) map[string]any {
	action := "/categories"
	if cat != nil {
		action = "/categories/" + strconv.FormatInt(cat.ID, 10) + "/edit"
	}
	return map[string]any{"Category": cat, "Form": form, "Action": action, "Errors": shared.FormErrors{}}
}

func parseForm(r *http.Request) CategoryForm {
	return CategoryForm{Name: r.PostFormValue("name"), Description: r.PostFormValue("description")}
}
