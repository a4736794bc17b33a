package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/firelater/itsm-service/internal/api/http"
	"github.com/firelater/itsm-service/internal/api/http/handlers"
	"github.com/firelater/itsm-service/internal/auth"
	"github.com/firelater/itsm-service/internal/cache"
	"github.com/firelater/itsm-service/internal/config"
	"github.com/firelater/itsm-service/internal/events"
	"github.com/firelater/itsm-service/internal/observability"
	"github.com/firelater/itsm-service/internal/persistence"
	"github.com/firelater/itsm-service/internal/repository"
	"github.com/firelater/itsm-service/internal/service"
	"github.com/firelater/itsm-service/internal/worker"
	"github.com/firelater/itsm-service/internal/workflow"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Tenancy.Tenants, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	invalidator := cache.NewRedisInvalidator(redis.Client, logger)
	dispatcher := events.NewInMemoryDispatcher()
	clock := workflow.SystemClock{}

	authService := service.NewAuthService(*cfg, store.Users)
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), store.Users)

	lifecycleService := service.NewLifecycleService(service.LifecycleDependencies{
		Store:       store,
		Repos:       store.Repositories,
		Clock:       clock,
		Invalidator: invalidator,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		Store:       store,
		Repos:       store.Repositories,
		Clock:       clock,
		Evaluator:   workflow.FieldEvaluator{},
		Invalidator: invalidator,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	slaService := service.NewSLAService(service.SLADependencies{
		Store:       store,
		Repos:       store.Repositories,
		Clock:       clock,
		Invalidator: invalidator,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(lifecycleService),
		Approvals:      handlers.NewApprovalsHandler(approvalService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
