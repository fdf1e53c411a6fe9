package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/shared"
)

// ErrNotFound indicates that the user does not exist or is inactive.
var ErrNotFound = errors.New("rbac: user not found")

// Principal is the subset of a user record needed for authorization.
type Principal struct {
	ID       int64
	Name     string
	Email    string
	Role     Role
	IsActive bool
}

// Store loads principals.
type Store interface {
	FindPrincipal(ctx context.Context, userID int64) (Principal, error)
}

// PGStore reads principals from the users table.
type PGStore struct {
	conn db.DBTX
}

// NewStore constructs a PGStore.
func NewStore(conn db.DBTX) *PGStore {
	return &PGStore{conn: conn}
}

// FindPrincipal loads a user by id.
func (s *PGStore) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	var p Principal
	var role string
	err := s.conn.QueryRow(ctx, `SELECT id, name, email, role, is_active FROM users WHERE id = $1`, userID).
		Scan(&p.ID, &p.Name, &p.Email, &role, &p.IsActive)
	if err != nil {
		if db.IsNoRows(err) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("rbac: find principal: %w", err)
	}
	p.Role = Role(role)
	return p, nil
}

// Service resolves effective permissions for users.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// EffectivePermissions returns the permissions granted to the user's role.
// Inactive users hold none.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	p, err := s.store.FindPrincipal(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, nil
	}
	return PermissionsFor(p.Role), nil
}

// Resolve builds the request principal for userID.
func (s *Service) Resolve(ctx context.Context, userID int64) (*shared.CurrentUser, error) {
	p, err := s.store.FindPrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, ErrNotFound
	}
	return &shared.CurrentUser{
		ID:          p.ID,
		Name:        p.Name,
		Email:       p.Email,
		Role:        string(p.Role),
		Permissions: PermissionsFor(p.Role),
	}, nil
}
