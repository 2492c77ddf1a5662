package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stepshopapp/stepshop/internal/cache"
	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/config"
	"github.com/stepshopapp/stepshop/internal/crypto"
	"github.com/stepshopapp/stepshop/internal/logging"
	"github.com/stepshopapp/stepshop/internal/payments"
	"github.com/stepshopapp/stepshop/internal/session"
	"github.com/stepshopapp/stepshop/internal/storefront"
)

// Handlers provides the HTTP surface of the checkout.
type Handlers struct {
	config          *config.Config
	db              *pgxpool.Pool
	cacheProvider   cache.Provider
	registry        *checkout.Registry
	checkoutService *checkout.Service
	sessionManager  *session.Manager
	tokenizer       payments.Tokenizer
	sealer          crypto.Sealer
	storefront      *storefront.Config
	logger          *slog.Logger
}

type Dependencies struct {
	Config          *config.Config
	DB              *pgxpool.Pool
	CacheProvider   cache.Provider
	Registry        *checkout.Registry
	CheckoutService *checkout.Service
	SessionManager  *session.Manager
	Tokenizer       payments.Tokenizer
	Sealer          crypto.Sealer
	Storefront      *storefront.Config
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
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("handlers dependencies: registry is required")
	}
	if deps.CheckoutService == nil {
		return nil, fmt.Errorf("handlers dependencies: checkoutService is required")
	}
	if deps.SessionManager == nil {
		return nil, fmt.Errorf("handlers dependencies: sessionManager is required")
	}
	if deps.Sealer == nil {
		return nil, fmt.Errorf("handlers dependencies: sealer is required")
	}

	store := deps.Storefront
	if store == nil {
		store = storefront.Default()
	}

	return &Handlers{
		config:          deps.Config,
		db:              deps.DB,
		cacheProvider:   deps.CacheProvider,
		registry:        deps.Registry,
		checkoutService: deps.CheckoutService,
		sessionManager:  deps.SessionManager,
		tokenizer:       deps.Tokenizer,
		sealer:          deps.Sealer,
		storefront:      store,
		logger:          logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			logger.Error("database health check failed", "error", err)
			http.Error(w, "Database unhealthy", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	}); err != nil {
		logger.Error("failed to encode health response", "error", err)
	}
}

// Root sends shoppers straight into the checkout.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/checkout", http.StatusSeeOther)
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}

func SecureCookiesFromConfig(cfg *config.Config) bool {
	if cfg == nil {
		return false
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			return strings.EqualFold(parsed.Scheme, "https")
		}
	}

	return cfg.Port == "443" || cfg.Port == "8443"
}
