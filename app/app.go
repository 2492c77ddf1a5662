package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/stepshopapp/stepshop/internal/cache"
	"github.com/stepshopapp/stepshop/internal/checkout"
	"github.com/stepshopapp/stepshop/internal/commerce"
	"github.com/stepshopapp/stepshop/internal/config"
	"github.com/stepshopapp/stepshop/internal/crypto"
	"github.com/stepshopapp/stepshop/internal/db"
	"github.com/stepshopapp/stepshop/internal/email"
	"github.com/stepshopapp/stepshop/internal/handlers"
	"github.com/stepshopapp/stepshop/internal/logging"
	"github.com/stepshopapp/stepshop/internal/observability"
	"github.com/stepshopapp/stepshop/internal/payments"
	"github.com/stepshopapp/stepshop/internal/session"
	"github.com/stepshopapp/stepshop/internal/storefront"
)

type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	DB             *pgxpool.Pool
	CacheProvider  cache.Provider
	SessionManager *session.Manager
	Handlers       *handlers.Handlers
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := observability.Init(cfg.SentryDSN, cfg.Environment); err != nil {
		return nil, err
	}

	logger := newLogger(cfg)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(startupCtx, database); err != nil {
		database.Close()
		return nil, err
	}

	storefrontConfig, err := storefront.Load(cfg.StorefrontConfigPath)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to load storefront config: %w", err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	sessionStore, err := session.NewStore(startupCtx, session.Config{
		Provider:              cfg.SessionStoreProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessionManager := session.NewManager(sessionStore, handlers.SecureCookiesFromConfig(cfg))

	sealer, err := crypto.NewSealer(cfg.EncryptionKey)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize sealer: %w", err)
	}

	httpClient := observability.NewHTTPClient(15*time.Second, cfg.PlatformAPIURL)
	platformClient := commerce.NewHTTPClient(cfg.PlatformAPIURL, cfg.StoreID, cfg.PlatformAPIKey, httpClient)

	registry, err := checkout.NewRegistry(platformClient, logger.With("component", "cart_sync"))
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize cart registry: %w", err)
	}

	orderStore, err := db.NewOrderStore(database)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize order store: %w", err)
	}

	var mailer *email.OrderMailer
	if cfg.ResendAPIKey != "" {
		mailer, err = email.NewOrderMailer(email.NewSender(cfg.ResendAPIKey, cfg.EmailFrom), logger)
		if err != nil {
			closeSessionManager(logger, sessionManager)
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize order mailer: %w", err)
		}
	}

	var confirmationSender checkout.ConfirmationSender
	if mailer != nil {
		confirmationSender = mailer
	}
	checkoutService, err := checkout.NewService(
		platformClient,
		cacheProvider,
		orderStore,
		confirmationSender,
		storefrontConfig,
		logger.With("component", "checkout_service"),
	)
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize checkout service: %w", err)
	}

	var tokenizer payments.Tokenizer
	if cfg.StripeSecretKey != "" {
		tokenizer, err = payments.NewStripeTokenizer(cfg.StripeSecretKey)
		if err != nil {
			closeSessionManager(logger, sessionManager)
			closeCacheProvider(logger, cacheProvider)
			database.Close()
			return nil, fmt.Errorf("failed to initialize tokenizer: %w", err)
		}
	}

	h, err := handlers.New(handlers.Dependencies{
		Config:          cfg,
		DB:              database,
		CacheProvider:   cacheProvider,
		Registry:        registry,
		CheckoutService: checkoutService,
		SessionManager:  sessionManager,
		Tokenizer:       tokenizer,
		Sealer:          sealer,
		Storefront:      storefrontConfig,
		Logger:          logger,
	})
	if err != nil {
		closeSessionManager(logger, sessionManager)
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		SessionManager: sessionManager,
		Handlers:       h,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.SessionManager != nil {
		closeSessionManager(a.Logger, a.SessionManager)
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	observability.Close()
}

// newLogger builds the process logger. With a Sentry DSN configured, log
// records fan out to Sentry alongside the local handler.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var local slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "json":
		local = slog.NewJSONHandler(os.Stdout, opts)
	default:
		local = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return slog.New(local)
	}

	sentryHandler := sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{slog.LevelWarn, slog.LevelError},
	}.NewSentryHandler(context.Background())

	return slog.New(logging.Fanout(local, sentryHandler))
}

func closeSessionManager(logger *slog.Logger, manager *session.Manager) {
	if manager == nil {
		return
	}
	if err := manager.Close(); err != nil && logger != nil {
		logger.Warn("failed to close session manager", "error", err)
	}
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
