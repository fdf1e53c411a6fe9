package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quotedesk/quotedesk/internal/accounts"
	"github.com/quotedesk/quotedesk/internal/auth"
	"github.com/quotedesk/quotedesk/internal/catalog/categories"
	"github.com/quotedesk/quotedesk/internal/catalog/products"
	"github.com/quotedesk/quotedesk/internal/customers"
	"github.com/quotedesk/quotedesk/internal/dashboard"
	"github.com/quotedesk/quotedesk/internal/observability"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/reports"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/users"
	"github.com/quotedesk/quotedesk/internal/view"
	"github.com/quotedesk/quotedesk/jobs"
	"github.com/quotedesk/quotedesk/report"
	"github.com/quotedesk/quotedesk/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Pages          view.Responder
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AccountsHandler    *accounts.Handler
	CustomersHandler   *customers.Handler
	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	QuotationsHandler  *quotations.Handler
	ReportsHandler     *reports.Handler
	DashboardHandler   *dashboard.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with QuoteDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:         params.Logger,
			Config:         params.Config,
			SessionManager: params.SessionManager,
			CSRFManager:    params.CSRFManager,
			RBAC:           params.RBACMiddleware,
			Metrics:        params.Metrics,
		}) {
			r.Use(mw)
		}
		r.NotFound(params.Pages.NotFound)

		mount(r, "/auth", params.AuthHandler)

		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireLogin)

			if params.DashboardHandler != nil {
				r.With(params.RBACMiddleware.RequireAny(shared.PermDashboardView)).Get("/", params.DashboardHandler.Show)
			}

			mount(r, "/users", params.UsersHandler)
			mount(r, "/permissions", params.PermissionsHandler)
			mount(r, "/accounts", params.AccountsHandler)
			mount(r, "/customers", params.CustomersHandler)
			mount(r, "/categories", params.CategoriesHandler)
			mount(r, "/products", params.ProductsHandler)
			mount(r, "/quotations", params.QuotationsHandler)
			mount(r, "/reports", params.ReportsHandler)
			mount(r, "/report", params.ReportHandler)
			mount(r, "/jobs", params.JobHandler)
			if params.ProductsHandler != nil {
				r.Route("/api", params.ProductsHandler.MountAPI)
			}
		})
	})

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

// mount skips handlers that were not wired, which keeps partial setups in
// tests routable.
func mount[H routeMounter](r chi.Router, prefix string, h H) {
	var zero H
	if any(h) == any(zero) {
		return
	}
	r.Route(prefix, h.MountRoutes)
}

// staticCacheHandler lets browsers cache embedded assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
