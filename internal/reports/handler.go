package reports

import (
	"bytes"
	"errors"
	"io"
	"mime"
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
		r.Use(h.rbac.RequireAny(shared.PermReportsView))
		r.Get("/sales", h.Sales)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermReportsView, shared.PermReportsExport))
		r.Get("/sales.csv", h.ExportCSV)
		r.Get("/sales.xlsx", h.ExportXLSX)
	})
}

func (h *Handler) Sales(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	q := r.URL.Query()
	data := map[string]any{
		"From":   q.Get("from"),
		"To":     q.Get("to"),
		"UserID": q.Get("user_id"),
		"Users":  []SalesUser(nil),
		"Report": SalesReport{},
		"Query":  r.URL.RawQuery,
		"Errors": shared.FormErrors{},
	}
	if user.Can(shared.PermReportsViewAll) {
		users, err := h.service.SalesUsers(r.Context())
		if err != nil {
			h.pages.Fail(w, r, "/", err)
			return
		}
		data["Users"] = users
	}
	filter, err := h.service.ParseFilter(user, q.Get("from"), q.Get("to"), q.Get("user_id"))
	if err != nil {
		var fieldErrs shared.FormErrors
		if errors.As(err, &fieldErrs) {
			data["Errors"] = fieldErrs
			h.pages.Render(w, r, "pages/reports/sales.html", "Sales report", data, http.StatusUnprocessableEntity)
			return
		}
		h.pages.Fail(w, r, "/", err)
		return
	}
	report, err := h.service.Sales(r.Context(), filter)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	data["From"] = report.From
	data["To"] = report.To
	data["Report"] = report
	h.pages.Render(w, r, "pages/reports/sales.html", "Sales report", data, http.StatusOK)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv; charset=utf-8", "csv", WriteCSV)
}

func (h *Handler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", WriteXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, contentType, ext string, write func(io.Writer, SalesReport) error) {
	q := r.URL.Query()
	filter, err := h.service.ParseFilter(shared.UserFromContext(r.Context()), q.Get("from"), q.Get("to"), q.Get("user_id"))
	if err != nil {
		h.pages.Fail(w, r, "/reports/sales", err)
		return
	}
	report, err := h.service.Sales(r.Context(), filter)
	if err != nil {
		h.pages.Fail(w, r, "/reports/sales", err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, report); err != nil {
		h.pages.Fail(w, r, "/reports/sales", err)
		return
	}
	name := "sales-" + report.From + "-" + report.To + "." + ext
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}
