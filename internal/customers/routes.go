package customers

import (
	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermCustomersView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCustomersCreate))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCustomersEdit))
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Post("/{id}/contacts", h.AddContact)
		r.Post("/{id}/contacts/{contactID}/delete", h.RemoveContact)
		r.Post("/{id}/contacts/{contactID}/primary", h.MakePrimary)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermCustomersDelete))
		r.Post("/{id}/delete", h.Delete)
	})
}
