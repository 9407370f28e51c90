package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/asset-desk/internal/api/http"
	"github.com/spec-kit/asset-desk/internal/api/http/handlers"
	"github.com/spec-kit/asset-desk/internal/auth"
	"github.com/spec-kit/asset-desk/internal/clock"
	"github.com/spec-kit/asset-desk/internal/config"
	"github.com/spec-kit/asset-desk/internal/events"
	"github.com/spec-kit/asset-desk/internal/observability"
	"github.com/spec-kit/asset-desk/internal/persistence"
	"github.com/spec-kit/asset-desk/internal/repository"
	"github.com/spec-kit/asset-desk/internal/service"
	"github.com/spec-kit/asset-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartActivityWorker(dispatcher, logger, metrics)

	var (
		ticketRepo      repository.TicketRepository
		interactionRepo repository.InteractionRepository
		supplierRepo    repository.SupplierRepository
		readiness       = map[string]handlers.Pinger{"redis": redis}
	)
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
		interactionRepo = repository.NewInteractionRepository(pool)
		supplierRepo = repository.NewSupplierRepository(pool)
		readiness["postgres"] = pg
	} else {
		logger.Warn("using in-memory stores; data is lost on restart")
		ticketRepo = repository.NewMemoryTicketRepository()
		interactionRepo = repository.NewMemoryInteractionRepository()
		supplierRepo = repository.NewMemorySupplierRepository(clock.Real())
		readiness["postgres"] = nil
	}

	supplierService := service.NewSupplierService(service.SupplierDependencies{
		SupplierRepo: supplierRepo,
		Cache:        repository.NewRedisSupplierCache(redis.Client),
		CacheTTL:     cfg.Suppliers.CacheTTL(),
		DefaultHours: cfg.SLA.DefaultHours,
		Logger:       logger,
	})
	if cfg.Suppliers.SeedFile != "" {
		catalog, err := persistence.LoadSupplierCatalog(cfg.Suppliers.SeedFile)
		if err != nil {
			logger.Fatal("failed to load supplier catalog", zap.Error(err))
		}
		if err := supplierService.Seed(ctx, catalog); err != nil {
			logger.Fatal("failed to seed suppliers", zap.Error(err))
		}
	}

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:      ticketRepo,
		InteractionRepo: interactionRepo,
		Suppliers:       supplierService,
		Dispatcher:      dispatcher,
		Clock:           clock.Real(),
		Logger:          logger,
		Metrics:         metrics,
		Policy: service.TicketPolicy{
			MinDescriptionLength:  cfg.Tickets.MinDescriptionLength,
			CarryOverDeadline:     cfg.Tickets.CarryOverDeadline,
			ClearResolvedOnReopen: cfg.Tickets.ClearResolvedOnReopen,
		},
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	app := httptransport.NewApp(cfg.App.Name)
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, readiness),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		Suppliers:      handlers.NewSuppliersHandler(supplierService),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
