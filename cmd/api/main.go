package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-advisor/internal/api/http"
	"github.com/spec-kit/ticket-advisor/internal/api/http/handlers"
	"github.com/spec-kit/ticket-advisor/internal/auth"
	"github.com/spec-kit/ticket-advisor/internal/bootstrap"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/events"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
	"github.com/spec-kit/ticket-advisor/internal/repository"
	"github.com/spec-kit/ticket-advisor/internal/service"
	"github.com/spec-kit/ticket-advisor/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	stack, err := bootstrap.Build(ctx, cfg, pg, redis, logger, metrics)
	if err != nil {
		logger.Fatal("failed to build analysis stack", zap.Error(err))
	}
	if cfg.Knowledge.SeedOnStart {
		if _, err := stack.Seed(ctx, logger); err != nil {
			logger.Fatal("failed to seed knowledge base", zap.Error(err))
		}
	}

	var analysisRepo repository.AnalysisRepository
	if pg.Enabled() {
		pool := pg.PoolHandle()
		analysisRepo = repository.NewAnalysisRepository(pool, repository.NewReasoningStepRepository(pool))
	}
	var cache service.AnalysisCache
	if redis.Enabled() {
		cache = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationWorker := worker.StartNotificationWorker(ctx, notificationService, logger)

	analysisService := service.NewAnalysisService(service.AnalysisDependencies{
		Analyzer:      stack.Agent,
		AnalysisRepo:  analysisRepo,
		Cache:         cache,
		CacheTTL:      cfg.Redis.AnalysisTTL(),
		Dispatcher:    dispatcher,
		Logger:        logger,
		Timeout:       cfg.Agent.Timeout(),
		MaxConcurrent: cfg.Agent.MaxConcurrent,
	})
	knowledgeService := service.NewKnowledgeService(stack.KBSearch)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authService := service.NewAuthService(cfg.Auth, tokens)
	authMiddleware := auth.NewAuthMiddleware(tokens, cfg.Auth.Enabled)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.App.RequestTimeout() + 5*time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(handlers.HealthInfo{
		ServiceName:   cfg.App.Name,
		Version:       cfg.App.Version,
		Model:         stack.LLM.Model(),
		KBBackend:     cfg.Knowledge.Backend,
		SafetyEnabled: stack.Agent.SafetyEnabled(),
	}, map[string]handlers.Dependency{
		"postgres": pg,
		"redis":    redis,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Analyses:       handlers.NewAnalysisHandler(analysisService),
		Knowledge:      handlers.NewKnowledgeHandler(knowledgeService, cfg.Knowledge.TopK),
		Auth:           handlers.NewAuthHandler(authService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	logger.Info("ticket advisor started",
		zap.String("addr", cfg.App.Addr()),
		zap.String("model", stack.LLM.Model()),
		zap.String("kb_backend", cfg.Knowledge.Backend),
		zap.Bool("safety", stack.Agent.SafetyEnabled()),
		zap.Bool("auth", cfg.Auth.Enabled),
	)

	waitForShutdown(logger)

	_ = app.ShutdownWithTimeout(10 * time.Second)
	if notificationWorker != nil {
		notificationWorker.Stop()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
