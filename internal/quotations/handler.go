package quotations

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/quotedesk/quotedesk/internal/accounts"
	"github.com/quotedesk/quotedesk/internal/catalog/products"
	"github.com/quotedesk/quotedesk/internal/customers"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

// Lookups feed the select boxes of the quotation form.
type Lookups interface {
	Customers(ctx context.Context) ([]customers.Customer, error)
	Accounts(ctx context.Context) ([]accounts.Account, error)
	Products(ctx context.Context) ([]products.Product, error)
}

// ServiceLookups adapts the owning services to Lookups.
type ServiceLookups struct {
	CustomerService *customers.Service
	AccountService  *accounts.Service
	ProductService  *products.Service
}

func (l ServiceLookups) Customers(ctx context.Context) ([]customers.Customer, error) {
	return l.CustomerService.Options(ctx)
}

func (l ServiceLookups) Accounts(ctx context.Context) ([]accounts.Account, error) {
	return l.AccountService.Options(ctx)
}

func (l ServiceLookups) Products(ctx context.Context) ([]products.Product, error) {
	return l.ProductService.Active(ctx)
}

type Handler struct {
	service   *Service
	lookups   Lookups
	pages     view.Responder
	rbac      rbac.Middleware
	maxUpload int64
}

func NewHandler(service *Service, lookups Lookups, pages view.Responder, rbac rbac.Middleware) *Handler {
	return &Handler{service: service, lookups: lookups, pages: pages, rbac: rbac, maxUpload: service.cfg.UploadMaxBytes}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user := shared.UserFromContext(r.Context())
	filters := shared.ParseListFilters(r.URL.Query())
	items, page, err := h.service.List(r.Context(), user, filters)
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	custs, err := h.lookups.Customers(r.Context())
	if err != nil {
		h.pages.Fail(w, r, "/", err)
		return
	}
	h.pages.Render(w, r, "pages/quotations/index.html", "Quotations", map[string]any{
		"Quotations": items,
		"Pagination": page,
		"Filters":    filters,
		"Statuses":   Statuses(),
		"Customers":  custs,
	}, http.StatusOK)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	detail, err := h.service.Detail(r.Context(), shared.UserFromContext(r.Context()), id)
	if err != nil {
		h.failShow(w, r, err)
		return
	}
	h.pages.Render(w, r, "pages/quotations/show.html", detail.Quotation.Reference, map[string]any{
		"Detail":   detail,
		"Decision": DecisionForm{},
		"Errors":   shared.FormErrors{},
	}, http.StatusOK)
}

func (h *Handler) Form(w http.ResponseWriter, r *http.Request) {
	form := h.service.NewForm()
	if id := shared.ParseOptionalID(r.URL.Query().Get("customer_id")); id != nil {
		form.CustomerID = *id
	}
	data, err := h.formData(r.Context(), nil, form)
	if err != nil {
		h.pages.Fail(w, r, "/quotations", err)
		return
	}
	h.pages.Render(w, r, "pages/quotations/form.html", "New quotation", data, http.StatusOK)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := parseForm(r)
	q, err := h.service.Create(r.Context(), shared.UserFromContext(r.Context()), form)
	if errors.Is(err, ErrDuplicateSubmission) {
		h.pages.RedirectWithFlash(w, r, "/quotations", "info", "This quotation was already saved.")
		return
	}
	if err != nil {
		h.formError(w, r, nil, "New quotation", form, err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(q.ID), "success", "Quotation "+q.Reference+" created")
}

func (h *Handler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	q, form, err := h.service.EditForm(r.Context(), shared.UserFromContext(r.Context()), id)
	if err != nil {
		h.failShow(w, r, err)
		return
	}
	data, err := h.formData(r.Context(), &q, form)
	if err != nil {
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.Render(w, r, "pages/quotations/form.html", "Edit "+q.Reference, data, http.StatusOK)
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
	if _, err := h.service.Update(r.Context(), shared.UserFromContext(r.Context()), id, form); err != nil {
		if errors.Is(err, ErrNotEditable) || errors.Is(err, ErrForbidden) || errors.Is(err, ErrNotFound) {
			h.failShow(w, r, err)
			return
		}
		h.formError(w, r, &Quotation{ID: id}, "Edit quotation", form, err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(id), "success", "Quotation updated")
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.Delete(r.Context(), shared.UserFromContext(r.Context()), id); err != nil {
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, "/quotations", "success", "Quotation deleted")
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Quotation submitted for approval", func(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, error) {
		return h.service.Submit(ctx, user, id)
	})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Quotation approved", h.service.Approve)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "Quotation rejected", h.service.Reject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, message string, fn func(context.Context, *shared.CurrentUser, int64, DecisionForm) (Quotation, error)) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	user := shared.UserFromContext(r.Context())
	form := DecisionForm{Note: r.PostFormValue("decision_note")}
	if _, err := fn(r.Context(), user, id, form); err != nil {
		var fieldErrs shared.FormErrors
		if errors.As(err, &fieldErrs) {
			detail, derr := h.service.Detail(r.Context(), user, id)
			if derr != nil {
				h.failShow(w, r, derr)
				return
			}
			h.pages.Render(w, r, "pages/quotations/show.html", detail.Quotation.Reference, map[string]any{
				"Detail":   detail,
				"Decision": form,
				"Errors":   fieldErrs,
			}, http.StatusUnprocessableEntity)
			return
		}
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(id), "success", message)
}

func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Revision created", h.service.Revise)
}

func (h *Handler) Duplicate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Quotation duplicated", h.service.Duplicate)
}

// transition runs a form-less action and redirects to the resulting quotation.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, message string, fn func(context.Context, *shared.CurrentUser, int64) (Quotation, error)) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	q, err := fn(r.Context(), shared.UserFromContext(r.Context()), id)
	if err != nil {
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(q.ID), "success", message)
}

func (h *Handler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	q, out, err := h.service.PDF(r.Context(), shared.UserFromContext(r.Context()), id)
	if err != nil {
		h.failShow(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": q.Reference + ".pdf"}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	_, _ = w.Write(out)
}

func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ParamID(r, "id")
	if !ok {
		h.pages.NotFound(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.pages.RedirectWithFlash(w, r, quotationURL(id), "error", "The upload is too large or malformed.")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	file, header, err := r.FormFile("file")
	if err != nil {
		h.pages.RedirectWithFlash(w, r, quotationURL(id), "error", "Choose a file to upload.")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	if _, err := h.service.Upload(r.Context(), shared.UserFromContext(r.Context()), id, header.Filename, data); err != nil {
		var fieldErrs shared.FormErrors
		if errors.As(err, &fieldErrs) {
			h.pages.RedirectWithFlash(w, r, quotationURL(id), "error", "File "+fieldErrs["file"])
			return
		}
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(id), "success", "File uploaded")
}

func (h *Handler) DownloadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	mediaID, ok2 := shared.ParamID(r, "mediaID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	thumb := r.URL.Query().Get("thumb") == "1"
	m, f, err := h.service.OpenMedia(r.Context(), shared.UserFromContext(r.Context()), id, mediaID, thumb)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.pages.NotFound(w, r)
			return
		}
		h.failShow(w, r, err)
		return
	}
	defer f.Close()
	if thumb {
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeContent(w, r, "thumb.jpg", m.CreatedAt, f)
		return
	}
	w.Header().Set("Content-Type", m.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": m.FileName}))
	http.ServeContent(w, r, m.FileName, m.CreatedAt, f)
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, ok1 := shared.ParamID(r, "id")
	mediaID, ok2 := shared.ParamID(r, "mediaID")
	if !ok1 || !ok2 {
		h.pages.NotFound(w, r)
		return
	}
	if err := h.service.DeleteMedia(r.Context(), shared.UserFromContext(r.Context()), id, mediaID); err != nil {
		h.pages.Fail(w, r, quotationURL(id), err)
		return
	}
	h.pages.RedirectWithFlash(w, r, quotationURL(id), "success", "File removed")
}

// failShow sends errors for a single quotation back to a page the user can see.
func (h *Handler) failShow(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.pages.NotFound(w, r)
	case errors.Is(err, ErrForbidden):
		h.pages.Logger.Warn("quotation access denied", slog.String("path", r.URL.Path))
		h.pages.Render(w, r, "pages/errors/403.html", "Forbidden", nil, http.StatusForbidden)
	case errors.Is(err, ErrNotEditable):
		id, _ := shared.ParamID(r, "id")
		h.pages.Fail(w, r, quotationURL(id), err)
	default:
		h.pages.Fail(w, r, "/quotations", err)
	}
}

func (h *Handler) formError(w http.ResponseWriter, r *http.Request, q *Quotation, title string, form QuotationForm, err error) {
	data, lerr := h.formData(r.Context(), q, form)
	if lerr != nil {
		h.pages.Fail(w, r, "/quotations", lerr)
		return
	}
	h.pages.FormError(w, r, "pages/quotations/form.html", title, data, err)
}

func (h *Handler) formData(ctx context.Context, q *Quotation, form QuotationForm) (map[string]any, error) {
	custs, err := h.lookups.Customers(ctx)
	if err != nil {
		return nil, err
	}
	accts, err := h.lookups.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	prods, err := h.lookups.Products(ctx)
	if err != nil {
		return nil, err
	}
	if len(form.Items) == 0 {
		form.Items = []ItemForm{{Quantity: "1"}}
	}
	action := "/quotations"
	if q != nil {
		action = quotationURL(q.ID) + "/edit"
	}
	return map[string]any{
		"Quotation":     q,
		"Form":          form,
		"Action":        action,
		"Customers":     custs,
		"Accounts":      accts,
		"Products":      prods,
		"DiscountTypes": []string{DiscountPercent, DiscountAmount},
		"Errors":        shared.FormErrors{},
	}, nil
}

func quotationURL(id int64) string {
	return "/quotations/" + strconv.FormatInt(id, 10)
}

func parseForm(r *http.Request) QuotationForm {
	customerID, _ := strconv.ParseInt(r.PostFormValue("customer_id"), 10, 64)
	form := QuotationForm{
		CustomerID:     customerID,
		AccountID:      shared.ParseOptionalID(r.PostFormValue("account_id")),
		Title:          r.PostFormValue("title"),
		QuoteDate:      r.PostFormValue("quote_date"),
		ValidUntil:     r.PostFormValue("valid_until"),
		Currency:       r.PostFormValue("currency"),
		DiscountType:   r.PostFormValue("discount_type"),
		DiscountValue:  r.PostFormValue("discount_value"),
		Notes:          r.PostFormValue("notes"),
		Terms:          r.PostFormValue("terms"),
		IdempotencyKey: r.PostFormValue("idempotency_key"),
	}
	descriptions := r.PostForm["item_description"]
	at := func(key string, i int) string {
		values := r.PostForm[key]
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	for i := range descriptions {
		form.Items = append(form.Items, ItemForm{
			ProductID:       shared.ParseOptionalID(at("item_product_id", i)),
			Description:     descriptions[i],
			Quantity:        at("item_quantity", i),
			UnitPrice:       at("item_unit_price", i),
			DiscountPercent: at("item_discount_percent", i),
			TaxRate:         at("item_tax_rate", i),
		})
	}
	return form
}
