package reports

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/view"
)

func newTestRouter(t *testing.T, role rbac.Role) http.Handler {
	t.Helper()
	svc, _, _ := newService(t)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	h := NewHandler(svc, view.NewResponder(templates, shared.NewCSRFManager("test"), nil), rbac.Middleware{})
	u := user(role, 5)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), &shared.Session{ID: "test"})
			ctx = shared.ContextWithUser(ctx, u)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/reports", h.MountRoutes)
	return r
}

func TestHandlerSalesPage(t *testing.T) {
	router := newTestRouter(t, rbac.RoleManager)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales?from=2025-09-01&to=2025-10-31", nil))

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "75.0%")
	assert.Contains(t, res.Body.String(), "Export CSV")
}

func TestHandlerSalesInvalidRange(t *testing.T) {
	router := newTestRouter(t, rbac.RoleManager)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales?from=2025-10-01&to=2025-09-01", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, res.Code)
	assert.Contains(t, res.Body.String(), "must not be before the start date")
}

func TestHandlerExports(t *testing.T) {
	router := newTestRouter(t, rbac.RoleManager)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales.csv?from=2025-09-01&to=2025-10-31", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/csv; charset=utf-8", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), "sales-2025-09-01-2025-10-31.csv")

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales.xlsx", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "PK", res.Body.String()[:2])
}

func TestHandlerSalesCannotExport(t *testing.T) {
	router := newTestRouter(t, rbac.RoleSales)

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales.csv", nil))
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/reports/sales", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.NotContains(t, res.Body.String(), "Export CSV")
}
