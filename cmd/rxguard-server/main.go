package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/healthflow/rxguard/internal/config"
	"github.com/healthflow/rxguard/internal/domain/audit"
	"github.com/healthflow/rxguard/internal/domain/ddi"
	"github.com/healthflow/rxguard/internal/domain/dosing"
	"github.com/healthflow/rxguard/internal/domain/healthflow"
	"github.com/healthflow/rxguard/internal/domain/medication"
	"github.com/healthflow/rxguard/internal/domain/validation"
	"github.com/healthflow/rxguard/internal/platform/auth"
	"github.com/healthflow/rxguard/internal/platform/db"
	"github.com/healthflow/rxguard/internal/platform/middleware"
	"github.com/healthflow/rxguard/internal/platform/telemetry"
	"github.com/healthflow/rxguard/internal/platform/webhook"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rxguard-server",
		Short: "Prescription validation engine for the HealthFlow pharmacy network",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the validation API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// echoValidator adapts go-playground/validator to echo's Validator hook.
type echoValidator struct {
	v *validator.Validate
}

func (ev *echoValidator) Validate(i interface{}) error {
	return ev.v.Struct(i)
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	// Engine core: catalog plus detectors. Everything clinical runs in
	// memory; the database only carries the audit trail.
	catalog := medication.NewCatalog()
	loader := medication.NewLoader(catalog, logger)
	if cfg.CatalogPath != "" {
		count, err := loader.LoadFile(cfg.CatalogPath)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.CatalogPath).
				Msg("catalog load failed, starting degraded")
		} else {
			logger.Info().Int("medications", count).Msg("catalog loaded")
		}
	} else {
		logger.Warn().Msg("no CATALOG_PATH configured, starting degraded")
	}

	ddiDetector := ddi.NewDetector(logger)
	dosingDetector := dosing.NewDetector(logger)
	engine := validation.NewService(catalog, ddiDetector, dosingDetector, logger).
		WithEnsemble(ddi.NewEnsemble(logger))

	// Optional audit database.
	var pool *pgxpool.Pool
	auditRepo := audit.Repository(audit.NewMemoryRepository())
	if cfg.HasDatabase() {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		auditRepo = audit.NewRepo(pool)
		logger.Info().Msg("connected to audit database")
	}
	auditSvc := audit.NewService(auditRepo, logger)

	// Webhook subscriptions: Redis when configured, memory otherwise.
	hookStore := webhook.Store(webhook.NewInMemoryStore())
	if cfg.HasRedis() {
		rs, err := webhook.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		hookStore = rs
		logger.Info().Msg("webhook subscriptions stored in redis")
	}
	hooks := webhook.NewManager(hookStore, logger,
		webhook.WithDeliveryTimeout(time.Duration(cfg.WebhookTimeout)*time.Second))
	registerConfiguredWebhook(ctx, cfg, hooks, logger)

	metrics := telemetry.NewMetrics()
	metrics.SetCatalogSize(catalog.Count())

	// Authentication.
	authManager := auth.NewManager(auth.NewInMemoryStore(), cfg.MasterAPIKey)
	authOpts := []auth.MiddlewareOption{auth.WithDisabled(cfg.AuthDisabled)}
	if cfg.JWTSecret != "" {
		authOpts = append(authOpts, auth.WithTokenIssuer(auth.NewTokenIssuer(cfg.JWTSecret, time.Hour)))
	}
	if cfg.AuthDisabled {
		logger.Warn().Msg("authentication disabled, all requests run as admin")
	}

	// Echo server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &echoValidator{v: validator.New()}

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M", "10M"))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
	}))
	e.Use(metrics.Middleware())

	// Authenticated API surface.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(auth.Middleware(authManager, authOpts...))

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.Audit(logger))

	// Handlers.
	validationHandler := validation.NewHandler(engine, hooks, metrics,
		ddiDetector.RuleCount(), dosingDetector.RuleCount()).
		WithAuditor(auditSvc)
	validationHandler.RegisterRoutes(apiV1)
	validationHandler.RegisterHealth(e)

	medicationHandler := medication.NewHandler(catalog, loader)
	medicationHandler.DefaultSource = cfg.CatalogPath
	medicationHandler.RegisterRoutes(apiV1)

	var hfClient *healthflow.Client
	if cfg.HealthFlowBaseURL != "" {
		hfClient = healthflow.NewClient(cfg.HealthFlowBaseURL, cfg.HealthFlowAPIKey, logger)
	}
	hfService := healthflow.NewService(engine, hfClient, logger)
	healthflow.NewHandler(hfService, hooks).RegisterRoutes(apiV1)

	audit.NewHandler(auditSvc).RegisterRoutes(apiV1)
	webhook.NewHandler(hooks).RegisterRoutes(apiV1.Group("", auth.RequireLevel(auth.LevelFull)))
	auth.NewHandler(authManager).RegisterRoutes(apiV1.Group("", auth.RequireLevel(auth.LevelAdmin)))

	// Unauthenticated operational endpoints.
	e.GET("/metrics", metrics.Handler())
	if pool != nil {
		e.GET("/health/db", db.HealthHandler(pool))
	}

	// Graceful shutdown.
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// registerConfiguredWebhook turns the HEALTHFLOW_WEBHOOK_URL config into a
// standing subscription so alerts flow without an explicit registration
// call.
func registerConfiguredWebhook(ctx context.Context, cfg *config.Config, hooks *webhook.Manager, logger zerolog.Logger) {
	if cfg.WebhookURL == "" {
		return
	}
	sub := &webhook.Subscription{
		Name:              "healthflow-configured",
		URL:               cfg.WebhookURL,
		Secret:            cfg.WebhookSecret,
		Events:            []string{webhook.EventPrescriptionBlocked, webhook.EventInteractionMajor},
		RetryCount:        cfg.WebhookMaxRetries,
		RetryDelaySeconds: cfg.WebhookRetryDelay,
	}
	if _, err := hooks.Register(ctx, sub); err != nil {
		logger.Error().Err(err).Str("url", cfg.WebhookURL).
			Msg("failed to register configured webhook")
		return
	}
	logger.Info().Str("url", cfg.WebhookURL).Msg("configured alert webhook registered")
}
