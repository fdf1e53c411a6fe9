package accounts

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/quotedesk/quotedesk/internal/contacts"
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	items, page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/accounts/index.html", "Accounts", map[string]any{
		"Accounts":   items,
		"Pagination": page,
		"Filters":    filters,
		"Statuses":   Statuses(),
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	detail, err := h.service.Detail(r.Context(), id, shared.UserFromContext(r.Context()))
	if err != nil {
		h.pages.Fail(w, r, "/accounts", err)
		return
	}
	h.pages.Render(w, r, "pages/accounts/show.html", detail.Account.Name, map[string]any{
		"Detail":      detail,
		"ContactForm": contacts.Form{},
		"Errors":      shared.FormErrors{},
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	h.pages.Render(w, r, "pages/accounts/form.html", "New account", formData(nil, AccountForm{Status: StatusProspect}), http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	form := parseForm(r)
	a, err := h.service.Create(r.Context(), actorID, form)
	if err != nil {
		h.pages.FormError(w, r, "pages/accounts/form.html", "New account", formData(nil, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, accountURL(a.ID), "success", "Account created")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/accounts", err)
		return
	}
	h.pages.Render(w, r, "pages/accounts/form.html", "Edit account", formData(&a, formFromAccount(a)), http.StatusOK)
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
	actorID, _ := shared.CurrentUserID(r.Context())
	form := parseForm(r)
	if _, err := h.service.Update(r.Context(), actorID, id, form); err != nil {
		h.pages.FormError(w, r, "pages/accounts/form.html", "Edit account", formData(&Account{ID: id}, form), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, accountURL(id), "success", "Account updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.pages.Fail(w, r, accountURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/accounts", "success", "Account deleted")
}

func (h *Handler) AddContact(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseContactForm(r)
	if _, err := h.service.AddContact(r.Context(), id, form); err != nil {
		var fieldErrs shared.FormErrors
		if errors.As(err, &fieldErrs) {
			detail, derr := h.service.Detail(r.Context(), id, shared.UserFromContext(r.Context()))
			if derr != nil {
				h.pages.Fail(w, r, "/accounts", derr)
				return
			}
			h.pages.Render(w, r, "pages/accounts/show.html", detail.Account.Name, map[string]any{
				"Detail":      detail,
				"ContactForm": form,
				"Errors":      fieldErrs,
			}, http.StatusUnprocessableEntity)
			return
		}
		h.pages.Fail(w, r, accountURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, accountURL(id), "success", "Contact added")
}

func (h *Handler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	contactID, ok2 := shared.ParamID(r, "contactID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.RemoveContact(r.Context(), id, contactID); err != nil {
		h.pages.Fail(w, r, accountURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, accountURL(id), "success", "Contact removed")
}

func (h *Handler) MakePrimary(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	contactID, ok2 := shared.ParamID(r, "contactID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.MakePrimaryContact(r.Context(), id, contactID); err != nil {
		h.pages.Fail(w, r, accountURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, accountURL(id), "success", "Primary contact updated")
}

func accountURL(id int64) string {
	return "/accounts/" + strconv.FormatInt(id, 10)
}

func formData(a *Account, form AccountForm) map[string]any {
	action := "/accounts"
	if a != nil {
		action = accountURL(a.ID) + "/edit"
	}
	return map[string]any{
		"Account":  a,
		"Form":     form,
		"Action":   action,
		"Statuses": Statuses(),
		"Errors":   shared.FormErrors{},
	}
}

func parseForm(r *http.Request) AccountForm {
	return AccountForm{
		Name:              r.PostFormValue("name"),
		Industry:          r.PostFormValue("industry"),
		Website:           r.PostFormValue("website"),
		Phone:             r.PostFormValue("phone"),
		Email:             r.PostFormValue("email"),
		BillingStreet:     r.PostFormValue("billing_street"),
		BillingCity:       r.PostFormValue("billing_city"),
		BillingState:      r.PostFormValue("billing_state"),
		BillingPostalCode: r.PostFormValue("billing_postal_code"),
		BillingCountry:    r.PostFormValue("billing_country"),
		Status:            r.PostFormValue("status"),
		Notes:             r.PostFormValue("notes"),
	}
}

func parseContactForm(r *http.Request) contacts.Form {
	return contacts.Form{
		Name:      r.PostFormValue("contact_name"),
		Title:     r.PostFormValue("contact_title"),
		Email:     r.PostFormValue("contact_email"),
		Phone:     r.PostFormValue("contact_phone"),
		IsPrimary: shared.FormBool(r.PostFormValue("contact_primary")),
	}
}
