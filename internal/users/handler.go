package users

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	service *Service
	pages   view.Responder
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(service *Service, pages view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, pages: pages, rbac: rbac}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listUsers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersManage))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createUser)
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.updateUser)
		r.Post("/{id}/delete", h.deactivateUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	users, page, err := h.service.ListUsers(r.Context(), filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/users/index.html", "Users", map[string]any{
		"Users":      users,
		"Pagination": page,
		"Filters":    filters,
		"Roles":      rbac.Roles(),
	}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "pages/users/form.html", "New user", h.formData(nil, UserForm{Role: string(rbac.RoleSales), IsActive: true}), http.StatusOK)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	form := parseForm(r)
	user, err := h.service.CreateUser(r.Context(), actorID, form)
	if err != nil {
		form.Password = ""
		h.pages.FormError(w, r, "pages/users/form.html", "New user", h.formData(nil, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/users", "success", "User "+user.Email+" created")
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/users", err)
		return
	}
	form := UserForm{Name: user.Name, Email: user.Email, Role: user.Role, IsActive: user.IsActive}
	h.pages.Render(w, r, "pages/users/form.html", "Edit user", h.formData(&user, form), http.StatusOK)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	form := parseForm(r)
	user, err := h.service.UpdateUser(r.Context(), actorID, id, form)
	if err != nil {
		form.Password = ""
		h.pages.FormError(w, r, "pages/users/form.html", "Edit user", h.formData(&User{ID: id}, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/users", "success", "User "+user.Email+" updated")
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Deactivate(r.Context(), actorID, id); err != nil {
		h.pages.Fail(w, r, "/users", err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/users", "success", "User deactivated")
}

func (h *Handler) formData(user *User, form UserForm) map[string]any {
	action := "/users"
	if user != nil {
		action = "/users/" + strconv.FormatInt(user.ID, 10) + "/edit"
	}
	return map[string]any{
		"User":   user,
		"Form":   form,
		"Action": action,
		"Roles":  rbac.Roles(),
		"Errors": shared.FormErrors{},
	}
}

func parseForm(r *http.Request) UserForm {
	return UserForm{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Role:     r.PostFormValue("role"),
		Password: r.PostFormValue("password"),
		IsActive: shared.FormBool(r.PostFormValue("is_active")),
	}
}
