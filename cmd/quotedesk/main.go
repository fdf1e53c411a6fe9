package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quotedesk/quotedesk/internal/accounts"
	"github.com/quotedesk/quotedesk/internal/app"
	"github.com/quotedesk/quotedesk/internal/auth"
	"github.com/quotedesk/quotedesk/internal/catalog/categories"
	"github.com/quotedesk/quotedesk/internal/catalog/products"
	"github.com/quotedesk/quotedesk/internal/customers"
	"github.com/quotedesk/quotedesk/internal/dashboard"
	"github.com/quotedesk/quotedesk/internal/observability"
	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/reports"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/users"
	"github.com/quotedesk/quotedesk/internal/view"
	"github.com/quotedesk/quotedesk/jobs"
	"github.com/quotedesk/quotedesk/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns, MaxConnLifetime: time.Hour})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	services, err := app.NewServices(app.ServiceDeps{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Redis:     redisClient,
		Templates: templates,
		Notifier:  jobClient,
	})
	if err != nil {
		logger.Error("init services", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, "quotedesk_session", cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	pages := view.NewResponder(templates, csrfManager, logger)
	rbacMiddleware := rbac.Middleware{Service: services.RBAC, Logger: logger}
	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pages:              pages,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		AuthHandler:        auth.NewHandler(logger, services.Auth, pages, sessionManager, csrfManager),
		UsersHandler:       users.NewHandler(services.Users, pages, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(pages, rbacMiddleware),
		AccountsHandler:    accounts.NewHandler(services.Accounts, pages, rbacMiddleware),
		CustomersHandler:   customers.NewHandler(services.Customers, services.Accounts, pages, rbacMiddleware),
		CategoriesHandler:  categories.NewHandler(services.Categories, pages, rbacMiddleware),
		ProductsHandler:    products.NewHandler(services.Products, services.Categories, pages, rbacMiddleware),
		QuotationsHandler: quotations.NewHandler(services.Quotations, quotations.ServiceLookups{
			CustomerService: services.Customers,
			AccountService:  services.Accounts,
			ProductService:  services.Products,
		}, pages, rbacMiddleware),
		ReportsHandler:   reports.NewHandler(services.Reports, pages, rbacMiddleware),
		DashboardHandler: dashboard.NewHandler(services.Dashboard, pages),
		ReportHandler:    report.NewHandler(services.PDFClient, logger),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
