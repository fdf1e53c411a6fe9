package quotations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/shared"
)

const approvalModule = "quotation"

var (
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidStatus is returned for workflow transitions the current status does not allow.
	ErrInvalidStatus = shared.NewSafeError(httpx.ErrConflict, "The quotation status does not allow this action.")
	// ErrNotEditable is returned when changing a quotation that left draft.
	ErrNotEditable = shared.NewSafeError(httpx.ErrConflict, "Only draft quotations can be changed. Create a revision instead.")
	// ErrNoItems blocks submitting an empty quotation.
	ErrNoItems = shared.NewSafeError(httpx.ErrConflict, "Add at least one item before submitting.")
	// ErrForbidden hides quotations owned by other sales users.
	ErrForbidden = shared.NewSafeError(httpx.ErrForbidden, "You do not have access to this quotation.")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filters shared.ListFilters) ([]Quotation, int, error)
	Get(ctx context.Context, id int64) (Quotation, error)
	GetForUpdate(ctx context.Context, id int64) (Quotation, error)
	Items(ctx context.Context, id int64) ([]Item, error)
	Versions(ctx context.Context, rootID int64) ([]shared.QuoteSummary, error)
	NextSequence(ctx context.Context, prefix, period string) (int64, error)
	MaxVersion(ctx context.Context, rootID int64) (int, error)
	Create(ctx context.Context, q Quotation) (Quotation, error)
	Update(ctx context.Context, q Quotation) error
	ReplaceItems(ctx context.Context, quotationID int64, items []Item) error
	Delete(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, q Quotation) error
	RecordApproval(ctx context.Context, log shared.ApprovalLog) error
	Approvals(ctx context.Context, id int64) ([]shared.ApprovalLog, error)
	Media(ctx context.Context, quotationID int64) ([]Media, error)
	GetMedia(ctx context.Context, quotationID, mediaID int64) (Media, error)
	InsertMedia(ctx context.Context, m Media) (Media, error)
	DeleteMedia(ctx context.Context, quotationID, mediaID int64) error
	CopyMedia(ctx context.Context, fromID, toID int64) error
	MediaPathInUse(ctx context.Context, storagePath string) (bool, error)
}

type repository struct {
	db        db.DBTX
	pool      *pgxpool.Pool
	approvals *shared.ApprovalRecorder
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool, approvals: shared.NewApprovalRecorder(pool)}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool, approvals: r.approvals})
	})
}

const quotationColumns = `q.id, q.reference, q.customer_id, c.name, c.email, q.account_id, COALESCE(a.name, ''),
q.title, q.quote_date, q.valid_until, q.status, q.editable, q.version, q.parent_id, q.currency,
q.discount_type, q.discount_value, q.subtotal, q.discount_total, q.tax_total, q.grand_total,
q.notes, q.terms, q.created_by, COALESCE(cu.name, ''), COALESCE(cu.email, ''), q.submitted_at,
q.decided_by, COALESCE(du.name, ''), q.decided_at, q.decision_note, q.created_at, q.updated_at`

const quotationFrom = `FROM quotations q
JOIN customers c ON c.id = q.customer_id
LEFT JOIN accounts a ON a.id = q.account_id
LEFT JOIN users cu ON cu.id = q.created_by
LEFT JOIN users du ON du.id = q.decided_by`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Quotation, int, error) {
	var where db.Where
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where.Add("(q.reference ILIKE ? OR q.title ILIKE ? OR c.name ILIKE ?)", pattern, pattern, pattern)
	}
	if filters.Status != "" {
		where.Add("q.status = ?", filters.Status)
	}
	if filters.CustomerID != nil {
		where.Add("q.customer_id = ?", *filters.CustomerID)
	}
	if filters.AccountID != nil {
		where.Add("q.account_id = ?", *filters.AccountID)
	}
	if filters.OwnerID != nil {
		where.Add("q.created_by = ?", *filters.OwnerID)
	}
	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) "+quotationFrom+" "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}
	query := fmt.Sprintf("SELECT %s %s %s ORDER BY %s LIMIT %s OFFSET %s",
		quotationColumns, quotationFrom, where.SQL(), sortOrder(filters.SortBy, filters.SortDir), where.Next(1), where.Next(2))
	rows, err := r.db.Query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, q)
	}
	return out, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Quotation, error) {
	return r.get(ctx, "SELECT "+quotationColumns+" "+quotationFrom+" WHERE q.id = $1", id)
}

func (r *repository) GetForUpdate(ctx context.Context, id int64) (Quotation, error) {
	return r.get(ctx, "SELECT "+quotationColumns+" "+quotationFrom+" WHERE q.id = $1 FOR UPDATE OF q", id)
}

func (r *repository) get(ctx context.Context, query string, id int64) (Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx, query, id))
	if db.IsNoRows(err) {
		return Quotation{}, ErrNotFound
	}
	return q, err
}

func (r *repository) Items(ctx context.Context, id int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT i.id, i.quotation_id, i.product_id, COALESCE(p.sku, ''), i.description, i.quantity,
i.unit_price, i.discount_percent, i.tax_rate, i.line_subtotal, i.line_discount, i.line_tax, i.line_total, i.position
FROM quotation_items i LEFT JOIN products p ON p.id = i.product_id
WHERE i.quotation_id = $1 ORDER BY i.position, i.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.QuotationID, &it.ProductID, &it.ProductSKU, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.DiscountPercent, &it.TaxRate, &it.LineSubtotal, &it.LineDiscount, &it.LineTax,
			&it.LineTotal, &it.Position); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *repository) Versions(ctx context.Context, rootID int64) ([]shared.QuoteSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT q.id, q.reference, q.title, c.name, q.status, q.version, q.grand_total, q.currency, q.quote_date
FROM quotations q JOIN customers c ON c.id = q.customer_id
WHERE q.id = $1 OR q.parent_id = $1 ORDER BY q.version`, rootID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []shared.QuoteSummary
	for rows.Next() {
		var s shared.QuoteSummary
		if err := rows.Scan(&s.ID, &s.Reference, &s.Title, &s.CustomerName, &s.Status, &s.Version, &s.GrandTotal, &s.Currency, &s.QuoteDate); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *repository) NextSequence(ctx context.Context, prefix, period string) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `INSERT INTO reference_sequences (prefix, period, last_value) VALUES ($1, $2, 1)
ON CONFLICT (prefix, period) DO UPDATE SET last_value = reference_sequences.last_value + 1
RETURNING last_value`, prefix, period).Scan(&n)
	return n, err
}

func (r *repository) MaxVersion(ctx context.Context, rootID int64) (int, error) {
	var v int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM quotations WHERE id = $1 OR parent_id = $1`, rootID).Scan(&v)
	return v, err
}

func (r *repository) Create(ctx context.Context, q Quotation) (Quotation, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO quotations (reference, customer_id, account_id, title, quote_date, valid_until,
status, editable, version, parent_id, currency, discount_type, discount_value, subtotal, discount_total, tax_total,
grand_total, notes, terms, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, NOW(), NOW())
RETURNING id, created_at, updated_at`,
		q.Reference, q.CustomerID, q.AccountID, q.Title, q.QuoteDate, q.ValidUntil, string(q.Status), q.Editable,
		q.Version, q.ParentID, q.Currency, q.DiscountType, q.DiscountValue, q.Subtotal, q.DiscountTotal, q.TaxTotal,
		q.GrandTotal, q.Notes, q.Terms, q.CreatedBy).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func (r *repository) Update(ctx context.Context, q Quotation) error {
	tag, err := r.db.Exec(ctx, `UPDATE quotations SET customer_id = $2, account_id = $3, title = $4, quote_date = $5,
valid_until = $6, currency = $7, discount_type = $8, discount_value = $9, subtotal = $10, discount_total = $11,
tax_total = $12, grand_total = $13, notes = $14, terms = $15, updated_at = NOW()
WHERE id = $1 AND editable`,
		q.ID, q.CustomerID, q.AccountID, q.Title, q.QuoteDate, q.ValidUntil, q.Currency, q.DiscountType,
		q.DiscountValue, q.Subtotal, q.DiscountTotal, q.TaxTotal, q.GrandTotal, q.Notes, q.Terms)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotEditable
	}
	return nil
}

func (r *repository) ReplaceItems(ctx context.Context, quotationID int64, items []Item) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1`, quotationID); err != nil {
		return err
	}
	for _, it := range items {
		_, err := r.db.Exec(ctx, `INSERT INTO quotation_items (quotation_id, product_id, description, quantity, unit_price,
discount_percent, tax_rate, line_subtotal, line_discount, line_tax, line_total, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			quotationID, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.DiscountPercent, it.TaxRate,
			it.LineSubtotal, it.LineDiscount, it.LineTax, it.LineTotal, it.Position)
		if err != nil {
			return fmt.Errorf("insert item %d: %w", it.Position, err)
		}
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotations WHERE id = $1 AND editable`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotEditable
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, q Quotation) error {
	_, err := r.db.Exec(ctx, `UPDATE quotations SET status = $2, editable = $3, submitted_at = $4, decided_by = $5,
decided_at = $6, decision_note = $7, updated_at = NOW() WHERE id = $1`,
		q.ID, string(q.Status), q.Editable, q.SubmittedAt, q.DecidedBy, q.DecidedAt, q.DecisionNote)
	return err
}

func (r *repository) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	log.Module = approvalModule
	return r.approvals.Record(ctx, r.db, log)
}

func (r *repository) Approvals(ctx context.Context, id int64) ([]shared.ApprovalLog, error) {
	return r.approvals.List(ctx, approvalModule, id)
}

const mediaColumns = `id, quotation_id, file_name, mime_type, size_bytes, storage_path, COALESCE(thumbnail_path, ''), uploaded_by, created_at`

func scanMedia(row rowScanner) (Media, error) {
	var m Media
	err := row.Scan(&m.ID, &m.QuotationID, &m.FileName, &m.MimeType, &m.SizeBytes, &m.StoragePath, &m.ThumbnailPath, &m.UploadedBy, &m.CreatedAt)
	return m, err
}

func (r *repository) Media(ctx context.Context, quotationID int64) ([]Media, error) {
	rows, err := r.db.Query(ctx, "SELECT "+mediaColumns+" FROM quotation_media WHERE quotation_id = $1 ORDER BY created_at, id", quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) GetMedia(ctx context.Context, quotationID, mediaID int64) (Media, error) {
	m, err := scanMedia(r.db.QueryRow(ctx, "SELECT "+mediaColumns+" FROM quotation_media WHERE quotation_id = $1 AND id = $2", quotationID, mediaID))
	if db.IsNoRows(err) {
		return Media{}, ErrNotFound
	}
	return m, err
}

func (r *repository) InsertMedia(ctx context.Context, m Media) (Media, error) {
	var thumb *string
	if m.ThumbnailPath != "" {
		thumb = &m.ThumbnailPath
	}
	err := r.db.QueryRow(ctx, `INSERT INTO quotation_media (quotation_id, file_name, mime_type, size_bytes, storage_path,
thumbnail_path, uploaded_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW()) RETURNING id, created_at`,
		m.QuotationID, m.FileName, m.MimeType, m.SizeBytes, m.StoragePath, thumb, m.UploadedBy).Scan(&m.ID, &m.CreatedAt)
	return m, err
}

func (r *repository) DeleteMedia(ctx context.Context, quotationID, mediaID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM quotation_media WHERE quotation_id = $1 AND id = $2`, quotationID, mediaID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CopyMedia(ctx context.Context, fromID, toID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO quotation_media (quotation_id, file_name, mime_type, size_bytes, storage_path,
thumbnail_path, uploaded_by, created_at)
SELECT $2, file_name, mime_type, size_bytes, storage_path, thumbnail_path, uploaded_by, NOW()
FROM quotation_media WHERE quotation_id = $1 ORDER BY id`, fromID, toID)
	return err
}

func (r *repository) MediaPathInUse(ctx context.Context, storagePath string) (bool, error) {
	var used bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM quotation_media WHERE storage_path = $1)`, storagePath).Scan(&used)
	return used, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner) (Quotation, error) {
	var q Quotation
	var status string
	err := row.Scan(&q.ID, &q.Reference, &q.CustomerID, &q.CustomerName, &q.CustomerEmail, &q.AccountID, &q.AccountName,
		&q.Title, &q.QuoteDate, &q.ValidUntil, &status, &q.Editable, &q.Version, &q.ParentID, &q.Currency,
		&q.DiscountType, &q.DiscountValue, &q.Subtotal, &q.DiscountTotal, &q.TaxTotal, &q.GrandTotal,
		&q.Notes, &q.Terms, &q.CreatedBy, &q.CreatedByName, &q.CreatorEmail, &q.SubmittedAt,
		&q.DecidedBy, &q.DecidedByName, &q.DecidedAt, &q.DecisionNote, &q.CreatedAt, &q.UpdatedAt)
	q.Status = Status(status)
	return q, err
}

func sortOrder(sortBy, dir string) string {
	d := shared.SortDirection(dir)
	switch sortBy {
	case "reference":
		return "q.reference " + d
	case "customer":
		return "c.name " + d + ", q.id DESC"
	case "status":
		return "q.status " + d + ", q.id DESC"
	case "total":
		return "q.grand_total " + d + ", q.id DESC"
	case "date":
		return "q.quote_date " + d + ", q.id DESC"
	}
	return "q.created_at DESC, q.id DESC"
}
