package contacts

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
)

// conn is satisfied by *pgxpool.Pool.
type conn interface {
	db.DBTX
	db.TxBeginner
}

// PGStore keeps contacts in table, linked to the owner through ownerColumn.
type PGStore struct {
	pool        conn
	table       string
	ownerColumn string
}

// NewAccountStore stores contacts in account_contacts.
func NewAccountStore(pool *pgxpool.Pool) *PGStore {
	return newStore(pool, "account_contacts", "account_id")
}

// NewCustomerStore stores contacts in customer_contacts.
func NewCustomerStore(pool *pgxpool.Pool) *PGStore {
	return newStore(pool, "customer_contacts", "customer_id")
}

func newStore(pool conn, table, ownerColumn string) *PGStore {
	return &PGStore{pool: pool, table: table, ownerColumn: ownerColumn}
}

func (s *PGStore) List(ctx context.Context, ownerID int64) ([]Contact, error) {
	query := fmt.Sprintf(`SELECT id, %[2]s, name, title, email, phone, is_primary, created_at
FROM %[1]s WHERE %[2]s = $1 ORDER BY is_primary DESC, created_at, id`, s.table, s.ownerColumn)
	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Title, &c.Email, &c.Phone, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Insert(ctx context.Context, c Contact) (Contact, error) {
	query := fmt.Sprintf(`INSERT INTO %s (%s, name, title, email, phone, is_primary, created_at)
VALUES ($1, $2, $3, $4, $5, FALSE, NOW()) RETURNING id, created_at`, s.table, s.ownerColumn)
	err := s.pool.QueryRow(ctx, query, c.OwnerID, c.Name, c.Title, c.Email, c.Phone).Scan(&c.ID, &c.CreatedAt)
	return c, err
}

func (s *PGStore) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	var wasPrimary bool
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND %s = $2 RETURNING is_primary`, s.table, s.ownerColumn)
	err := s.pool.QueryRow(ctx, query, id, ownerID).Scan(&wasPrimary)
	if db.IsNoRows(err) {
		return false, ErrNotFound
	}
	return wasPrimary, err
}

// SetPrimary moves the primary flag to id in one transaction. The partial
// unique index on is_primary is checked row by row, so the current primary is
// cleared by its own statement before id is flagged.
func (s *PGStore) SetPrimary(ctx context.Context, ownerID, id int64) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		demote := fmt.Sprintf(`UPDATE %s SET is_primary = FALSE WHERE %s = $2 AND is_primary AND id <> $1`, s.table, s.ownerColumn)
		if _, err := tx.Exec(ctx, demote, id, ownerID); err != nil {
			return err
		}
		promote := fmt.Sprintf(`UPDATE %s SET is_primary = TRUE WHERE id = $1 AND %s = $2`, s.table, s.ownerColumn)
		tag, err := tx.Exec(ctx, promote, id, ownerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *PGStore) PromoteOldest(ctx context.Context, ownerID int64) error {
	query := fmt.Sprintf(`UPDATE %[1]s SET is_primary = TRUE WHERE id = (
SELECT id FROM %[1]s WHERE %[2]s = $1 ORDER BY created_at, id LIMIT 1)`, s.table, s.ownerColumn)
	_, err := s.pool.Exec(ctx, query, ownerID)
	return err
}

var _ Store = (*PGStore)(nil)
