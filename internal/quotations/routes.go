package quotations

import (
	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermQuotationsView))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/pdf", h.PDF)
		r.Get("/{id}/media/{mediaID}", h.DownloadMedia)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationsCreate))
		r.Get("/new", h.Form)
		r.Post("/", h.Create)
		r.Post("/{id}/revise", h.Revise)
		r.Post("/{id}/duplicate", h.Duplicate)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationsEdit))
		r.Get("/{id}/edit", h.EditForm)
		r.Post("/{id}/edit", h.Update)
		r.Post("/{id}/media", h.UploadMedia)
		r.Post("/{id}/media/{mediaID}/delete", h.DeleteMedia)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationsDelete))
		r.Post("/{id}/delete", h.Delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationsSubmit))
		r.Post("/{id}/submit", h.Submit)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermQuotationsApprove))
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}
