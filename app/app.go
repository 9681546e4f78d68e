package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/avtodom/promo-api/internal/cache"
	"github.com/avtodom/promo-api/internal/catalog"
	"github.com/avtodom/promo-api/internal/config"
	"github.com/avtodom/promo-api/internal/db"
	"github.com/avtodom/promo-api/internal/email"
	"github.com/avtodom/promo-api/internal/gateway"
	"github.com/avtodom/promo-api/internal/handlers"
	"github.com/avtodom/promo-api/internal/observability"
	"github.com/avtodom/promo-api/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(startupCtx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	var emailSender services.OrderEmailSender
	if cfg.EmailEnabled() {
		provider, err := email.NewProvider(email.Config{
			Provider: cfg.EmailProvider,
			APIKey:   emailAPIKey(cfg),
			From:     cfg.EmailFrom,
			Domain:   cfg.MailgunDomain,
		})
		if err != nil {
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize email provider: %w", err)
		}
		emailSender = services.NewProviderEmailSender(provider)
	}

	adapters := buildAdapters(cfg)

	orderStore := db.NewOrderStore(database)
	entryStore := db.NewEntryStore(database)
	timerStore := db.NewTimerStore(database)

	checkoutService := services.NewCheckoutService(orderStore, cat, adapters, logger.With("component", "checkout_service"))
	reconciler := services.NewReconciler(orderStore, entryStore, emailSender, cfg.AckUnknownOrders, logger.With("component", "reconciler"))
	statusService := services.NewStatusService(orderStore, entryStore, logger.With("component", "status_service"))
	adminService := services.NewAdminService(cfg.AdminPassword, entryStore, timerStore, logger.With("component", "admin_service"))

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CacheProvider:   cacheProvider,
		Adapters:        adapters,
		CheckoutService: checkoutService,
		Reconciler:      reconciler,
		StatusService:   statusService,
		AdminService:    adminService,
		Logger:          logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	sentry.Flush(2 * time.Second)
}

func buildAdapters(cfg *config.Config) map[string]gateway.Adapter {
	client := observability.NewHTTPClient(cfg.GatewayTimeout)

	adapters := make(map[string]gateway.Adapter)
	if cfg.MonobankEnabled() {
		mono := gateway.NewMonobank(cfg.MonobankToken, cfg.MonobankAPIURL, cfg.BaseURL, client)
		adapters[mono.Name()] = mono
	}
	if cfg.WayForPayEnabled() {
		wfp := gateway.NewWayForPay(
			cfg.WayForPayMerchantAccount,
			cfg.WayForPayMerchantDomain,
			cfg.WayForPaySecretKey,
			cfg.WayForPayAPIURL,
			cfg.BaseURL,
			client,
		)
		adapters[wfp.Name()] = wfp
	}
	return adapters
}

func emailAPIKey(cfg *config.Config) string {
	if cfg.EmailProvider == "mailgun" {
		return cfg.MailgunAPIKey
	}
	return cfg.ResendAPIKey
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: cfg.LogLevel,
	}))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
