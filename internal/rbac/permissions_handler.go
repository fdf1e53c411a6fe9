package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// PermissionsHandler renders the read-only role/permission matrix.
type PermissionsHandler struct {
	pages view.Responder
	rbac  Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(pages view.Responder, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{pages: pages, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView))
		r.Get("/", h.listPermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "pages/permissions/list.html", "Roles & permissions", map[string]any{
		"Roles":  Roles(),
		"Matrix": Matrix(),
	}, http.StatusOK)
}
