package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/shared"
)

const userColumns = `id, email, name, role, is_active, last_login_at, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of users.
func (r *Repository) ListUsers(ctx context.Context, filters shared.ListFilters) ([]User, int, error) {
	var where db.Where
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		where.Add("(name ILIKE ? OR email ILIKE ?)", pattern, pattern)
	}
	if filters.Status != "" {
		where.Add("role = ?", filters.Status)
	}
	if filters.IsActive != nil {
		where.Add("is_active = ?", *filters.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users "+where.SQL(), where.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf("SELECT %s FROM users %s ORDER BY name LIMIT %s OFFSET %s",
		userColumns, where.SQL(), where.Next(1), where.Next(2))
	rows, err := r.pool.Query(ctx, query, append(where.Args(), filters.Limit(), filters.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

// GetUser loads one user.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		if db.IsNoRows(err) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// EmailTaken reports whether another user already owns email.
func (r *Repository) EmailTaken(ctx context.Context, email string, exceptID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = $1 AND id <> $2)`,
		strings.ToLower(email), exceptID).Scan(&exists)
	return exists, err
}

// CreateUser inserts a user and returns its id.
func (r *Repository) CreateUser(ctx context.Context, u User, passwordHash string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, role, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING id`,
		u.Name, strings.ToLower(u.Email), u.Role, passwordHash, u.IsActive).Scan(&id)
	if db.IsUniqueViolation(err, "") {
		return 0, errEmailTaken
	}
	return id, err
}

// UpdateUser saves profile fields and, when passwordHash is non-empty, the password.
func (r *Repository) UpdateUser(ctx context.Context, u User, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET name = $2, email = $3, role = $4, is_active = $5,
password_hash = COALESCE(NULLIF($6, ''), password_hash), updated_at = NOW() WHERE id = $1`,
		u.ID, u.Name, strings.ToLower(u.Email), u.Role, u.IsActive, passwordHash)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return errEmailTaken
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetActive toggles the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

var _ RepositoryPort = (*Repository)(nil)
