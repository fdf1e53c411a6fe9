package customers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/quotedesk/quotedesk/internal/accounts"
	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// AccountLister feeds the account select box.
type AccountLister interface {
	Options(ctx context.Context) ([]accounts.Account, error)
}

type Handler struct {
	service  *Service
	accounts AccountLister
	pages    view.Responder
	rbac     rbac.Middleware
}

func NewHandler(service *Service, accounts AccountLister, pages view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, accounts: accounts, pages: pages, rbac: rbac}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters := shared.ParseListFilters(r.URL.Query())
	items, page, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/customers/index.html", "Customers", map[string]any{
		"Customers":  items,
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
	detail, err := h.service.Detail(r.Context(), id, shared.UserFromContext(r.Context()))
	if err != nil {
		h.pages.Fail(w, r, "/customers", err)
		return
	}
	h.pages.Render(w, r, "pages/customers/show.html", detail.Customer.Name, map[string]any{
		"Detail":      detail,
		"ContactForm": contacts.Form{},
		"Errors":      shared.FormErrors{},
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	form := CustomerForm{IsActive: true, AccountID: shared.ParseOptionalID(r.URL.Query().Get("account_id"))}
	data, err := h.formData(r.Context(), nil, form)
	if err != nil {
		h.pages.Fail(w, r, "/customers", err)
		return
	}
	h.pages.Render(w, r, "pages/customers/form.html", "New customer", data, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	form := parseForm(r)
	c, err := h.service.Create(r.Context(), actorID, form)
	if err != nil {
		h.formError(w, r, nil, form, "New customer", err)
		return
	}
	h.pages.RedirectWithFlash(w, r, customerURL(c.ID), "success", "Customer "+c.Code+" created")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.pages.Fail(w, r, "/customers", err)
		return
	}
	data, err := h.formData(r.Context(), &c, formFromCustomer(c))
	if err != nil {
		h.pages.Fail(w, r, "/customers", err)
		return
	}
	h.pages.Render(w, r, "pages/customers/form.html", "Edit customer", data, http.StatusOK)
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
		h.formError(w, r, &Customer{ID: id}, form, "Edit customer", err)
		return
	}
	h.pages.RedirectWithFlash(w, r, customerURL(id), "success", "Customer updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	actorID, _ := shared.CurrentUserID(r.Context())
	if err := h.service.Delete(r.Context(), actorID, id); err != nil {
		h.pages.Fail(w, r, customerURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/customers", "success", "Customer deleted")
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
	form := contacts.Form{
		Name:      r.PostFormValue("contact_name"),
		Title:     r.PostFormValue("contact_title"),
		Email:     r.PostFormValue("contact_email"),
		Phone:     r.PostFormValue("contact_phone"),
		IsPrimary: shared.FormBool(r.PostFormValue("contact_primary")),
	}
	if _, err := h.service.AddContact(r.Context(), id, form); err != nil {
		var fieldErrs shared.FormErrors
		if errors.As(err, &fieldErrs) {
			detail, derr := h.service.Detail(r.Context(), id, shared.UserFromContext(r.Context()))
			if derr != nil {
				h.pages.Fail(w, r, "/customers", derr)
				return
			}
			h.pages.Render(w, r, "pages/customers/show.html", detail.Customer.Name, map[string]any{
				"Detail":      detail,
				"ContactForm": form,
				"Errors":      fieldErrs,
			}, http.StatusUnprocessableEntity)
			return
		}
		h.pages.Fail(w, r, customerURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, customerURL(id), "success", "Contact added")
}

func (h *Handler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	contactID, ok2 := shared.ParamID(r, "contactID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.RemoveContact(r.Context(), id, contactID); err != nil {
		h.pages.Fail(w, r, customerURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, customerURL(id), "success", "Contact removed")
}

func (h *Handler) MakePrimary(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	contactID, ok2 := shared.ParamID(r, "contactID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.MakePrimaryContact(r.Context(), id, contactID); err != nil {
		h.pages.Fail(w, r, customerURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, customerURL(id), "success", "Primary contact updated")
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, c *Customer, form CustomerForm, title string, err error) {
	data, derr := h.formData(r.Context(), c, form)
	if derr != nil {
		h.pages.Fail(w, r, "/customers", derr)
		return
	}
	h.pages.FormError(w, r, "pages/customers/form.html", title, data, err)
}

func (h *Handler) formData(ctx context.Context, c *Customer, form CustomerForm) (map[string]any, error) {
	accts, err := h.accounts.Options(ctx)
	if err != nil {
		return nil, err
	}
	action := "/customers"
	if c != nil {
		action = customerURL(c.ID) + "/edit"
	}
	return map[string]any{
		"Customer": c,
		"Form":     form,
		"Action":   action,
		"Accounts": accts,
		"Errors":   shared.FormErrors{},
	}, nil
}

func customerURL(id int64) string {
	return "/customers/" + strconv.FormatInt(id, 10)
}

func parseForm(r *http.Request) CustomerForm {
	return CustomerForm{
		Code:         r.PostFormValue("code"),
		Name:         r.PostFormValue("name"),
		Email:        r.PostFormValue("email"),
		Phone:        r.PostFormValue("phone"),
		TaxID:        r.PostFormValue("tax_id"),
		AddressLine1: r.PostFormValue("address_line1"),
		AddressLine2: r.PostFormValue("address_line2"),
		City:         r.PostFormValue("city"),
		State:        r.PostFormValue("state"),
		PostalCode:   r.PostFormValue("postal_code"),
		Country:      r.PostFormValue("country"),
		AccountID:    shared.ParseOptionalID(r.PostFormValue("account_id")),
		IsActive:     shared.FormBool(r.PostFormValue("is_active")),
		Notes:        r.PostFormValue("notes"),
	}
}
