package quotations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quotedesk/quotedesk/internal/shared"
)

// ErrDuplicateSubmission reports a replayed create form.
var ErrDuplicateSubmission = errors.New("quotation form already submitted")

const idempotencyModule = "quotations.create"

// CustomerChecker confirms that a customer exists.
type CustomerChecker interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// Notifier hands decided quotations to background processing.
type Notifier interface {
	EnqueueDecisionMail(ctx context.Context, quotationID int64) error
	EnqueueQuotationPDF(ctx context.Context, quotationID int64) error
}

// Invalidator drops cached aggregates after quotation changes.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// IdempotencyGuard remembers processed form tokens.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Config holds the quotation defaults.
type Config struct {
	ReferencePrefix string
	DefaultCurrency string
	ValidityDays    int
	UploadMaxBytes  int64
}

// Deps are the optional collaborators of Service.
type Deps struct {
	Customers   CustomerChecker
	Notifier    Notifier
	Cache       Invalidator
	Idempotency IdempotencyGuard
	Files       FileStore
	PDF         PDFRenderer
	Audit       shared.Auditor
	Logger      *slog.Logger
}

type Service struct {
	repo  Repository
	cfg   Config
	deps  Deps
	clock func() time.Time
}

func NewService(repo Repository, cfg Config, deps Deps) *Service {
	if cfg.ReferencePrefix == "" {
		cfg.ReferencePrefix = DefaultReferencePrefix
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = "USD"
	}
	if cfg.ValidityDays <= 0 {
		cfg.ValidityDays = 30
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = 10 << 20
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{repo: repo, cfg: cfg, deps: deps, clock: time.Now}
}

func (s *Service) now() time.Time {
	return s.clock().UTC()
}

func (s *Service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// List returns quotations visible to user.
func (s *Service) List(ctx context.Context, user *shared.CurrentUser, filters shared.ListFilters) ([]Quotation, shared.Pagination, error) {
	filters.OwnerID = ownerScope(user)
	if filters.Status != "" && !Status(filters.Status).Valid() {
		filters.Status = ""
	}
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filters.Page, filters.Limit(), total), nil
}

// Get loads a quotation the user is allowed to see.
func (s *Service) Get(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !canAccess(user, q) {
		return Quotation{}, ErrForbidden
	}
	return q, nil
}

// Decision loads a decided quotation for follow-up processing.
func (s *Service) Decision(ctx context.Context, id int64) (Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return Quotation{}, err
	}
	if !q.Status.Decided() {
		return Quotation{}, ErrInvalidStatus
	}
	return q, nil
}

// Detail loads the quotation page.
func (s *Service) Detail(ctx context.Context, user *shared.CurrentUser, id int64) (Detail, error) {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return Detail{}, err
	}
	d := Detail{Quotation: q}
	if d.Items, err = s.repo.Items(ctx, id); err != nil {
		return Detail{}, err
	}
	if d.Media, err = s.repo.Media(ctx, id); err != nil {
		return Detail{}, err
	}
	if d.Approvals, err = s.repo.Approvals(ctx, id); err != nil {
		return Detail{}, err
	}
	if d.Versions, err = s.repo.Versions(ctx, q.RootID()); err != nil {
		return Detail{}, err
	}
	return d, nil
}

// EditForm returns the form for an editable quotation.
func (s *Service) EditForm(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, QuotationForm, error) {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return Quotation{}, QuotationForm{}, err
	}
	if !q.Editable {
		return Quotation{}, QuotationForm{}, ErrNotEditable
	}
	items, err := s.repo.Items(ctx, id)
	if err != nil {
		return Quotation{}, QuotationForm{}, err
	}
	return q, formFromQuotation(q, items), nil
}

// NewForm returns the defaults of the create form with a fresh submission token.
func (s *Service) NewForm() QuotationForm {
	today := s.today()
	return QuotationForm{
		QuoteDate:      today.Format(dateLayout),
		ValidUntil:     today.AddDate(0, 0, s.cfg.ValidityDays).Format(dateLayout),
		Currency:       s.cfg.DefaultCurrency,
		DiscountType:   DiscountPercent,
		DiscountValue:  "0.00",
		IdempotencyKey: uuid.NewString(),
		Items:          []ItemForm{{Quantity: "1", DiscountPercent: "0", TaxRate: "0"}},
	}
}

// Create stores a new draft with its items in one transaction.
func (s *Service) Create(ctx context.Context, user *shared.CurrentUser, form QuotationForm) (Quotation, error) {
	form = normalizeForm(form)
	q, items, err := s.validate(ctx, form)
	if err != nil {
		return Quotation{}, err
	}
	if key := form.IdempotencyKey; key != "" && s.deps.Idempotency != nil {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Quotation{}, ErrDuplicateSubmission
			}
			return Quotation{}, err
		}
	}

	q.Status = StatusDraft
	q.Editable = true
	q.Version = 1
	q.CreatedBy = user.ID
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		n, err := tx.NextSequence(ctx, s.cfg.ReferencePrefix, ReferencePeriod(q.QuoteDate))
		if err != nil {
			return fmt.Errorf("next reference: %w", err)
		}
		q.Reference = FormatReference(s.cfg.ReferencePrefix, q.QuoteDate, n)
		if q, err = tx.Create(ctx, q); err != nil {
			return fmt.Errorf("insert quotation: %w", err)
		}
		return tx.ReplaceItems(ctx, q.ID, items)
	})
	if err != nil {
		if form.IdempotencyKey != "" && s.deps.Idempotency != nil {
			_ = s.deps.Idempotency.Delete(ctx, form.IdempotencyKey)
		}
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation.create", q.ID)
	return q, nil
}

// Update replaces header and items of a draft.
func (s *Service) Update(ctx context.Context, user *shared.CurrentUser, id int64, form QuotationForm) (Quotation, error) {
	current, err := s.Get(ctx, user, id)
	if err != nil {
		return Quotation{}, err
	}
	if !current.Editable {
		return Quotation{}, ErrNotEditable
	}
	form = normalizeForm(form)
	q, items, err := s.validate(ctx, form)
	if err != nil {
		return Quotation{}, err
	}
	q.ID = id
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		locked, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !locked.Editable {
			return ErrNotEditable
		}
		if err := tx.Update(ctx, q); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, items)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation.update", id)
	merged := current
	merged.CustomerID, merged.AccountID, merged.Title = q.CustomerID, q.AccountID, q.Title
	merged.QuoteDate, merged.ValidUntil, merged.Currency = q.QuoteDate, q.ValidUntil, q.Currency
	merged.DiscountType, merged.DiscountValue, merged.Notes, merged.Terms = q.DiscountType, q.DiscountValue, q.Notes, q.Terms
	applyTotals(&merged, Totals{Subtotal: q.Subtotal, DiscountTotal: q.DiscountTotal, TaxTotal: q.TaxTotal, GrandTotal: q.GrandTotal})
	return merged, nil
}

// Delete removes a draft and the files only it referenced.
func (s *Service) Delete(ctx context.Context, user *shared.CurrentUser, id int64) error {
	q, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	if !q.Editable {
		return ErrNotEditable
	}
	media, err := s.repo.Media(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	for _, m := range media {
		s.removeFiles(ctx, m)
	}
	s.changed(ctx, user.ID, "quotation.delete", id)
	return nil
}

// Submit moves a draft to pending.
func (s *Service) Submit(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, error) {
	if _, err := s.Get(ctx, user, id); err != nil {
		return Quotation{}, err
	}
	var out Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q.Status != StatusDraft {
			return ErrInvalidStatus
		}
		items, err := tx.Items(ctx, id)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrNoItems
		}
		now := s.now()
		q.Status = StatusPending
		q.Editable = false
		q.SubmittedAt = &now
		if err := tx.SetStatus(ctx, q); err != nil {
			return err
		}
		out = q
		return tx.RecordApproval(ctx, shared.ApprovalLog{RefID: id, ActorID: user.ID, Action: shared.ApprovalSubmit, At: now})
	})
	if err != nil {
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation.submit", id)
	return out, nil
}

// Approve accepts a pending quotation.
func (s *Service) Approve(ctx context.Context, user *shared.CurrentUser, id int64, form DecisionForm) (Quotation, error) {
	return s.decide(ctx, user, id, StatusApproved, form)
}

// Reject declines a pending quotation. A note is required.
func (s *Service) Reject(ctx context.Context, user *shared.CurrentUser, id int64, form DecisionForm) (Quotation, error) {
	if strings.TrimSpace(form.Note) == "" {
		return Quotation{}, shared.FormErrors{"decision_note": "is required"}
	}
	return s.decide(ctx, user, id, StatusRejected, form)
}

func (s *Service) decide(ctx context.Context, user *shared.CurrentUser, id int64, to Status, form DecisionForm) (Quotation, error) {
	form.Note = strings.TrimSpace(form.Note)
	if errs := shared.ValidateForm(form); errs != nil {
		return Quotation{}, errs
	}
	action := shared.ApprovalApprove
	if to == StatusRejected {
		action = shared.ApprovalReject
	}
	var out Quotation
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if q.Status != StatusPending {
			return ErrInvalidStatus
		}
		now := s.now()
		q.Status = to
		q.Editable = false
		q.DecidedBy = &user.ID
		q.DecidedByName = user.Name
		q.DecidedAt = &now
		q.DecisionNote = form.Note
		if err := tx.SetStatus(ctx, q); err != nil {
			return err
		}
		out = q
		return tx.RecordApproval(ctx, shared.ApprovalLog{RefID: id, ActorID: user.ID, Action: action, Note: form.Note, At: now})
	})
	if err != nil {
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation."+string(to), id)
	s.notify(ctx, out)
	return out, nil
}

// Revise replicates a decided quotation into a new draft version of the same family.
func (s *Service) Revise(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, error) {
	src, err := s.Get(ctx, user, id)
	if err != nil {
		return Quotation{}, err
	}
	if !src.Status.Decided() {
		return Quotation{}, ErrInvalidStatus
	}
	rootID := src.RootID()
	var out Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		root, err := tx.GetForUpdate(ctx, rootID)
		if err != nil {
			return err
		}
		maxVersion, err := tx.MaxVersion(ctx, rootID)
		if err != nil {
			return err
		}
		items, err := tx.Items(ctx, src.ID)
		if err != nil {
			return err
		}
		next := blankCopy(src, user.ID)
		next.Version = maxVersion + 1
		next.ParentID = &rootID
		next.Reference = RevisionReference(root.Reference, next.Version)
		if next, err = tx.Create(ctx, next); err != nil {
			return fmt.Errorf("insert revision: %w", err)
		}
		if err := tx.ReplaceItems(ctx, next.ID, items); err != nil {
			return err
		}
		out = next
		return tx.CopyMedia(ctx, src.ID, next.ID)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation.revise", out.ID)
	return out, nil
}

// Duplicate copies a quotation into an unrelated new draft dated today.
func (s *Service) Duplicate(ctx context.Context, user *shared.CurrentUser, id int64) (Quotation, error) {
	src, err := s.Get(ctx, user, id)
	if err != nil {
		return Quotation{}, err
	}
	var out Quotation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		items, err := tx.Items(ctx, src.ID)
		if err != nil {
			return err
		}
		next := blankCopy(src, user.ID)
		next.Version = 1
		next.QuoteDate = s.today()
		next.ValidUntil = next.QuoteDate.AddDate(0, 0, s.cfg.ValidityDays)
		n, err := tx.NextSequence(ctx, s.cfg.ReferencePrefix, ReferencePeriod(next.QuoteDate))
		if err != nil {
			return fmt.Errorf("next reference: %w", err)
		}
		next.Reference = FormatReference(s.cfg.ReferencePrefix, next.QuoteDate, n)
		if next, err = tx.Create(ctx, next); err != nil {
			return fmt.Errorf("insert duplicate: %w", err)
		}
		out = next
		return tx.ReplaceItems(ctx, next.ID, items)
	})
	if err != nil {
		return Quotation{}, err
	}
	s.changed(ctx, user.ID, "quotation.duplicate", out.ID)
	return out, nil
}

func (s *Service) validate(ctx context.Context, form QuotationForm) (Quotation, []Item, error) {
	q, items, err := build(form)
	if err != nil {
		return Quotation{}, nil, err
	}
	if s.deps.Customers != nil {
		ok, err := s.deps.Customers.Exists(ctx, q.CustomerID)
		if err != nil {
			return Quotation{}, nil, err
		}
		if !ok {
			return Quotation{}, nil, shared.FormErrors{"customer_id": "does not exist"}
		}
	}
	return q, items, nil
}

// changed records the audit entry and invalidates cached reports.
func (s *Service) changed(ctx context.Context, actorID int64, action string, id int64) {
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Bump(ctx); err != nil {
			s.deps.Logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	shared.RecordAudit(ctx, s.deps.Audit, s.deps.Logger, shared.AuditLog{ActorID: actorID, Action: action, Entity: "quotation", EntityID: strconv.FormatInt(id, 10)})
}

// notify enqueues the decision follow-ups. Failures are logged only.
func (s *Service) notify(ctx context.Context, q Quotation) {
	if s.deps.Notifier == nil {
		return
	}
	logger := s.deps.Logger.With(slog.Int64("quotation_id", q.ID), slog.String("status", string(q.Status)))
	if err := s.deps.Notifier.EnqueueDecisionMail(ctx, q.ID); err != nil {
		logger.Error("enqueue decision mail", slog.Any("error", err))
	}
	if q.Status != StatusApproved {
		return
	}
	if err := s.deps.Notifier.EnqueueQuotationPDF(ctx, q.ID); err != nil {
		logger.Error("enqueue quotation pdf", slog.Any("error", err))
	}
}

func blankCopy(src Quotation, actorID int64) Quotation {
	next := src
	next.ID = 0
	next.Status = StatusDraft
	next.Editable = true
	next.ParentID = nil
	next.CreatedBy = actorID
	next.SubmittedAt = nil
	next.DecidedBy = nil
	next.DecidedByName = ""
	next.DecidedAt = nil
	next.DecisionNote = ""
	return next
}

func ownerScope(user *shared.CurrentUser) *int64 {
	if user == nil || user.Can(shared.PermQuotationsViewAll) {
		return nil
	}
	id := user.ID
	return &id
}

func canAccess(user *shared.CurrentUser, q Quotation) bool {
	owner := ownerScope(user)
	return owner == nil || *owner == q.CreatedBy
}
