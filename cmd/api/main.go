package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/municipio-kit/chamados-service/internal/api/http"
	"github.com/municipio-kit/chamados-service/internal/api/http/handlers"
	"github.com/municipio-kit/chamados-service/internal/auth"
	"github.com/municipio-kit/chamados-service/internal/config"
	"github.com/municipio-kit/chamados-service/internal/events"
	"github.com/municipio-kit/chamados-service/internal/observability"
	"github.com/municipio-kit/chamados-service/internal/persistence"
	"github.com/municipio-kit/chamados-service/internal/repository"
	"github.com/municipio-kit/chamados-service/internal/service"
	"github.com/municipio-kit/chamados-service/internal/session"
	"github.com/municipio-kit/chamados-service/internal/worker"
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		ticketRepo   repository.TicketRepository
		unitRepo     repository.UnitRepository
		profileRepo  repository.ProfileRepository
		auditRepo    repository.AuditRepository
		sessionStore session.Store
	)
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		unitRepo = repository.NewUnitRepository(pool)
		profileRepo = repository.NewProfileRepository(pool)
		auditRepo = repository.NewAuditRepository(pool)
		sessionStore = session.NewRedisStore(redis.Client)
	} else {
		logger.Warn("running with in-memory stores; data will not survive restarts")
		ticketRepo = repository.NewMemoryTicketStore()
		unitRepo = repository.NewMemoryUnitStore()
		profileRepo = repository.NewMemoryProfileStore()
		auditRepo = repository.NewMemoryAuditStore()
		sessionStore = session.NewMemoryStore()
	}

	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		ProfileRepo:  profileRepo,
		SessionStore: sessionStore,
	})
	ticketService := service.NewTicketService(cfg.Ticket, service.TicketDependencies{
		TicketRepo:  ticketRepo,
		UnitRepo:    unitRepo,
		ProfileRepo: profileRepo,
		AuditRepo:   auditRepo,
		Dispatcher:  dispatcher,
	})
	unitService := service.NewUnitService(service.UnitDependencies{
		UnitRepo:   unitRepo,
		TicketRepo: ticketRepo,
		Dispatcher: dispatcher,
	})
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	authMiddleware := auth.NewMiddleware(authService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Units:          handlers.NewUnitsHandler(unitService),
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
