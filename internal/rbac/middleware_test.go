package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/shared"
)

type stubStore struct {
	principals map[int64]Principal
}

func (s stubStore) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	p, ok := s.principals[userID]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return p, nil
}

func newTestMiddleware() Middleware {
	store := stubStore{principals: map[int64]Principal{
		1: {ID: 1, Name: "Ada", Role: RoleAdmin, IsActive: true},
		2: {ID: 2, Name: "Mia", Role: RoleManager, IsActive: true},
		3: {ID: 3, Name: "Sam", Role: RoleSales, IsActive: true},
		4: {ID: 4, Name: "Old", Role: RoleAdmin, IsActive: false},
	}}
	return Middleware{Service: NewService(store)}
}

func serve(t *testing.T, m Middleware, userID string, guard func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	t.Helper()
	sess := &shared.Session{ID: "s"}
	if userID != "" {
		sess.SetUser(userID)
	}
	req := httptest.NewRequest(http.MethodGet, "/quotations", nil)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	rr := httptest.NewRecorder()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	m.LoadUser(guard(ok)).ServeHTTP(rr, req)
	return rr
}

func TestRequireAllPerRole(t *testing.T) {
	m := newTestMiddleware()
	approve := m.RequireAll(shared.PermQuotationsApprove)

	assert.Equal(t, http.StatusNoContent, serve(t, m, "1", approve).Code)
	assert.Equal(t, http.StatusNoContent, serve(t, m, "2", approve).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "3", approve).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "4", approve).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "", approve).Code)
}

func TestRequireAnyAcceptsOneMatch(t *testing.T) {
	m := newTestMiddleware()
	guard := m.RequireAny(shared.PermUsersManage, shared.PermQuotationsCreate)

	assert.Equal(t, http.StatusNoContent, serve(t, m, "3", guard).Code)
}

func TestUsersAreAdminOnly(t *testing.T) {
	m := newTestMiddleware()
	guard := m.RequireAll(shared.PermUsersManage)

	assert.Equal(t, http.StatusNoContent, serve(t, m, "1", guard).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "2", guard).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "3", guard).Code)
}

func TestQuotationDeleteNeedsManager(t *testing.T) {
	m := newTestMiddleware()
	guard := m.RequireAll(shared.PermQuotationsDelete)

	assert.Equal(t, http.StatusNoContent, serve(t, m, "1", guard).Code)
	assert.Equal(t, http.StatusNoContent, serve(t, m, "2", guard).Code)
	assert.Equal(t, http.StatusForbidden, serve(t, m, "3", guard).Code)
	assert.False(t, Grants(RoleSales, shared.PermQuotationsDelete))
}

func TestRequireLoginRedirectsGuests(t *testing.T) {
	m := newTestMiddleware()
	rr := serve(t, m, "", m.RequireLogin)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/auth/login", rr.Header().Get("Location"))
}

func TestEffectivePermissions(t *testing.T) {
	svc := newTestMiddleware().Service

	perms, err := svc.EffectivePermissions(context.Background(), 3)
	require.NoError(t, err)
	assert.Contains(t, perms, shared.PermQuotationsSubmit)
	assert.NotContains(t, perms, shared.PermQuotationsApprove)
	assert.NotContains(t, perms, shared.PermReportsExport)

	perms, err = svc.EffectivePermissions(context.Background(), 4)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestMatrixCoversAllPermissions(t *testing.T) {
	rows := Matrix()
	assert.Len(t, rows, len(shared.AllPermissions()))
	for _, row := range rows {
		assert.True(t, row.Granted[RoleAdmin], row.Permission)
	}
}
