package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtodom/promo-api/internal/cache"
	"github.com/avtodom/promo-api/internal/config"
	"github.com/avtodom/promo-api/internal/gateway"
	"github.com/avtodom/promo-api/internal/logging"
	"github.com/avtodom/promo-api/internal/services"
)

const maxWebhookBodyBytes = 1 << 20 // 1 MB

// Handlers provides HTTP request handlers for the promo API.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	cacheProvider   cache.Provider
	adapters        map[string]gateway.Adapter
	checkoutService *services.CheckoutService
	reconciler      *services.Reconciler
	statusService   *services.StatusService
	adminService    *services.AdminService
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	Adapters        map[string]gateway.Adapter
	CheckoutService *services.CheckoutService
	Reconciler      *services.Reconciler
	StatusService   *services.StatusService
	AdminService    *services.AdminService
	Logger          *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if len(deps.Adapters) == 0 {
		return nil, fmt.Errorf("handlers dependencies: at least one gateway adapter is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.Reconciler == nil {
		return nil, fmt.Errorf("handlers dependencies: reconciler is required")
	}
	if deps.StatusService == nil {
		return nil, fmt.Errorf("handlers dependencies: statusService is required")
	}
	if deps.AdminService == nil {
		return nil, fmt.Errorf("handlers dependencies: adminService is required")
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		cacheProvider:   deps.CacheProvider,
		adapters:        deps.Adapters,
		checkoutService: deps.CheckoutService,
		reconciler:      deps.Reconciler,
		statusService:   deps.StatusService,
		adminService:    deps.AdminService,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.writeJSON(w, r, status, map[string]string{"error": message})
}
