package view

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// Responder bundles the page rendering helpers used by every HTML handler.
type Responder struct {
	Templates *Engine
	CSRF      *shared.CSRFManager
	Logger    *slog.Logger
}

// NewResponder constructs a Responder.
func NewResponder(templates *Engine, csrf *shared.CSRFManager, logger *slog.Logger) Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return Responder{Templates: templates, CSRF: csrf, Logger: logger}
}

// Render writes page tmpl with the session flash, CSRF token and user.
func (p Responder) Render(w http.ResponseWriter, r *http.Request, tmpl, title string, data any, status int) {
	ctx := r.Context()
	sess := shared.SessionFromContext(ctx)
	var csrfToken string
	if p.CSRF != nil && sess != nil {
		csrfToken, _ = p.CSRF.EnsureToken(ctx, sess)
	}
	viewData := TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       sess.PopFlash(),
		CurrentPath: r.URL.Path,
		User:        shared.UserFromContext(ctx),
		Data:        data,
	}
	if err := p.Templates.RenderStatus(w, status, tmpl, viewData); err != nil {
		p.Logger.Error("render template", slog.String("template", tmpl), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// RedirectWithFlash queues a flash message and redirects with 303.
func (p Responder) RedirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// NotFound renders the shared 404 page.
func (p Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	p.Render(w, r, "pages/errors/404.html", "Not found", nil, http.StatusNotFound)
}

// FormError re-renders a form after a failed save. Field errors are shown
// inline with 422. Any other failure is logged and surfaced as an error flash
// above the untouched form.
func (p Responder) FormError(w http.ResponseWriter, r *http.Request, tmpl, title string, data map[string]any, err error) {
	var fieldErrs shared.FormErrors
	if errors.As(err, &fieldErrs) {
		data["Errors"] = fieldErrs
		p.Render(w, r, tmpl, title, data, http.StatusUnprocessableEntity)
		return
	}
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		p.Logger.Error("save failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	if _, ok := data["Errors"]; !ok {
		data["Errors"] = shared.FormErrors{}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: "error", Message: shared.UserSafeMessage(err)})
	}
	p.Render(w, r, tmpl, title, data, status)
}

// Fail redirects back to location with an error flash describing err.
func (p Responder) Fail(w http.ResponseWriter, r *http.Request, location string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		p.Logger.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	p.RedirectWithFlash(w, r, location, "error", shared.UserSafeMessage(err))
}
