package dashboard

import (
	"net/http"

	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

type Handler struct {
	service *Service
	pages   view.Responder
}

func NewHandler(service *Service, pages view.Responder) *Handler {
	return &Handler{service: service, pages: pages}
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.Overview(r.Context(), shared.UserFromContext(r.Context()))
	if err != nil {
		h.pages.Render(w, r, "pages/dashboard.html", "Dashboard", map[string]any{
			"Overview": Overview{StatusCounts: map[string]int{}},
			"Statuses": quotations.Statuses(),
			"Failed":   true,
		}, http.StatusOK)
		return
	}
	h.pages.Render(w, r, "pages/dashboard.html", "Dashboard", map[string]any{
		"Overview": overview,
		"Statuses": quotations.Statuses(),
		"Failed":   false,
	}, http.StatusOK)
}
