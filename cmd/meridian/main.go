package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-crm/meridian/internal/analytics"
	"github.com/meridian-crm/meridian/internal/app"
	"github.com/meridian-crm/meridian/internal/auth"
	"github.com/meridian-crm/meridian/internal/customers"
	"github.com/meridian-crm/meridian/internal/impersonation"
	"github.com/meridian-crm/meridian/internal/interactions"
	"github.com/meridian-crm/meridian/internal/masterdata/divisions"
	"github.com/meridian-crm/meridian/internal/masterdata/products"
	"github.com/meridian-crm/meridian/internal/masterdata/sources"
	"github.com/meridian-crm/meridian/internal/observability"
	"github.com/meridian-crm/meridian/internal/platform/cache"
	"github.com/meridian-crm/meridian/internal/platform/db"
	"github.com/meridian-crm/meridian/internal/profiles"
	"github.com/meridian-crm/meridian/internal/settings"
	"github.com/meridian-crm/meridian/internal/roles"
	"github.com/meridian-crm/meridian/internal/shared"
	"github.com/meridian-crm/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "meridian_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rolesRepo := roles.NewRepository(dbpool)

	grantsRepo := impersonation.NewRepository(dbpool)

	profilesRepo := profiles.NewRepository(dbpool)
	resolver := profiles.NewResolver(profilesRepo, rolesRepo, grantsRepo, logger)
	profilesService := profiles.NewService(profilesRepo, rolesRepo, auditLogger, logger)
	profilesHandler := profiles.NewHandler(logger, profilesService, resolver)

	impersonationService := impersonation.NewService(grantsRepo, profilesRepo, rolesRepo, auditLogger, logger, cfg.ImpersonationTTL)
	impersonationHandler := impersonation.NewHandler(logger, impersonationService)

	customersRepo := customers.NewRepository(dbpool)
	customersService := customers.NewService(logger, customersRepo, auditLogger)
	customersHandler := customers.NewHandler(logger, customersService, profilesHandler)

	interactionsRepo := interactions.NewRepository(dbpool)
	interactionsService := interactions.NewService(logger, interactionsRepo)
	interactionsHandler := interactions.NewHandler(logger, interactionsService, profilesHandler)

	divisionsService := divisions.NewService(divisions.NewRepository(dbpool))
	divisionsHandler := divisions.NewHandler(logger, divisionsService, profilesHandler)
	sourcesService := sources.NewService(sources.NewRepository(dbpool))
	sourcesHandler := sources.NewHandler(logger, sourcesService, profilesHandler)
	productsService := products.NewService(products.NewRepository(dbpool))
	productsHandler := products.NewHandler(logger, productsService, profilesHandler)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	analyticsService := analytics.NewService(analyticsRepo, analyticsCache)
	analyticsHandler := analytics.NewHandler(logger, analyticsService, profilesHandler)

	settingsService := settings.NewService(logger, settings.NewRepository(dbpool), auditLogger)
	settingsHandler := settings.NewHandler(logger, settingsService, profilesHandler)

	if err := analyticsCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("analytics invalidation listener", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, profilesHandler, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:               logger,
		Config:               cfg,
		SessionManager:       sessionManager,
		CSRFManager:          csrfManager,
		AuthHandler:          authHandler,
		ProfilesHandler:      profilesHandler,
		ImpersonationHandler: impersonationHandler,
		CustomersHandler:     customersHandler,
		InteractionsHandler:  interactionsHandler,
		DivisionsHandler:     divisionsHandler,
		SourcesHandler:       sourcesHandler,
		ProductsHandler:      productsHandler,
		AnalyticsHandler:     analyticsHandler,
		SettingsHandler:      settingsHandler,
		JobsHandler:          jobsHandler,
		Metrics:              metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
