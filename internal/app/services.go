package app

import (
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/quotedesk/quotedesk/internal/accounts"
	"github.com/quotedesk/quotedesk/internal/auth"
	"github.com/quotedesk/quotedesk/internal/catalog/categories"
	"github.com/quotedesk/quotedesk/internal/catalog/products"
	"github.com/quotedesk/quotedesk/internal/contacts"
	"github.com/quotedesk/quotedesk/internal/customers"
	"github.com/quotedesk/quotedesk/internal/dashboard"
	"github.com/quotedesk/quotedesk/internal/platform/cache"
	"github.com/quotedesk/quotedesk/internal/platform/storage"
	"github.com/quotedesk/quotedesk/internal/quotations"
	"github.com/quotedesk/quotedesk/internal/rbac"
	"github.com/quotedesk/quotedesk/internal/reports"
	"github.com/quotedesk/quotedesk/internal/shared"
	"github.com/quotedesk/quotedesk/internal/users"
	"github.com/quotedesk/quotedesk/internal/view"
	"github.com/quotedesk/quotedesk/report"
)

// ServiceDeps are the infrastructure handles both binaries share.
type ServiceDeps struct {
	Config    *Config
	Logger    *slog.Logger
	Pool      *pgxpool.Pool
	Redis     *redis.Client
	Templates *view.Engine
	Notifier  quotations.Notifier
}

// Services holds the domain services built on top of ServiceDeps.
type Services struct {
	Auth        *auth.Service
	RBAC        *rbac.Service
	Users       *users.Service
	Accounts    *accounts.Service
	Customers   *customers.Service
	Categories  *categories.Service
	Products    *products.Service
	Quotations  *quotations.Service
	Reports     *reports.Service
	Dashboard   *dashboard.Service
	Idempotency *shared.IdempotencyStore
	PDFClient   *report.Client
	Storage     *storage.Disk
}

// NewServices wires repositories, caches and renderers into services.
func NewServices(deps ServiceDeps) (*Services, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	disk, err := storage.NewDisk(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("app: storage: %w", err)
	}

	audit := shared.NewAuditLogger(deps.Pool)
	idempotency := shared.NewIdempotencyStore(deps.Pool)
	reportCache := cache.NewVersioned(deps.Redis, "quotedesk:reports", cfg.ReportCacheTTL).WithLogger(logger)

	var pdfClient *report.Client
	if cfg.GotenbergURL != "" && cfg.PDFRenderer != report.ModeNative {
		pdfClient = report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	}
	var templateFn report.TemplateFunc
	if deps.Templates != nil {
		templateFn = deps.Templates.RenderString
	}
	renderer := report.NewRenderer(cfg.PDFRenderer, pdfClient, templateFn, logger)

	accountService := accounts.NewService(accounts.NewRepository(deps.Pool), contacts.NewService(contacts.NewAccountStore(deps.Pool)), audit, logger)
	customerService := customers.NewService(customers.NewRepository(deps.Pool), accountService, contacts.NewService(contacts.NewCustomerStore(deps.Pool)), audit, logger)
	categoryService := categories.NewService(categories.NewRepository(deps.Pool))
	productService := products.NewService(products.NewRepository(deps.Pool), categoryService)

	quotationService := quotations.NewService(quotations.NewRepository(deps.Pool), quotations.Config{
		ReferencePrefix: cfg.QuotationPrefix,
		DefaultCurrency: cfg.DefaultCurrency,
		ValidityDays:    cfg.DefaultValidityDays,
		UploadMaxBytes:  cfg.UploadMaxBytes,
	}, quotations.Deps{
		Customers:   customerService,
		Notifier:    deps.Notifier,
		Cache:       reportCache,
		Idempotency: idempotency,
		Files:       disk,
		PDF:         renderer,
		Audit:       audit,
		Logger:      logger.With(slog.String("module", "quotations")),
	})

	return &Services{
		Auth:        auth.NewService(auth.NewRepository(deps.Pool)),
		RBAC:        rbac.NewService(rbac.NewStore(deps.Pool)),
		Users:       users.NewService(users.NewRepository(deps.Pool), audit, logger),
		Accounts:    accountService,
		Customers:   customerService,
		Categories:  categoryService,
		Products:    productService,
		Quotations:  quotationService,
		Reports:     reports.NewService(reports.NewRepository(deps.Pool), reportCache, logger.With(slog.String("module", "reports"))),
		Dashboard:   dashboard.NewService(dashboard.NewRepository(deps.Pool), logger),
		Idempotency: idempotency,
		PDFClient:   pdfClient,
		Storage:     disk,
	}, nil
}
