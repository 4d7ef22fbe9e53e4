package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	_ "github.com/SafetyDady/smart-erp-backend/docs"
	"github.com/SafetyDady/smart-erp-backend/internal/application/inventory"
	"github.com/SafetyDady/smart-erp-backend/internal/application/masterdata"
	"github.com/SafetyDady/smart-erp-backend/internal/application/usecase"
	"github.com/SafetyDady/smart-erp-backend/internal/domain/repository"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/cache"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/memory"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/messaging"
	infrapdf "github.com/SafetyDady/smart-erp-backend/internal/infrastructure/pdf"
	"github.com/SafetyDady/smart-erp-backend/internal/infrastructure/postgres"
	httpRouter "github.com/SafetyDady/smart-erp-backend/internal/interfaces/http"
	"github.com/SafetyDady/smart-erp-backend/pkg/actor"
	"github.com/SafetyDady/smart-erp-backend/pkg/config"
	"github.com/SafetyDady/smart-erp-backend/pkg/logger"
)

// @title          Smart ERP Inventory API
// @version        1.0
// @description    Stock ledger: products, movements, balances, reversals.
// @BasePath       /
// @securityDefinitions.apikey  Bearer
// @in             header
// @name           Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("storage", cfg.App.Storage).
		Msg("starting application")

	ctx := context.Background()
	checks := map[string]httpRouter.HealthCheck{}

	// storage: every use case sees the same four ports whichever backend is selected
	var (
		txRunner   inventory.TxRunner
		snapshot   inventory.SnapshotReader
		products   repository.ProductRepository
		balances   repository.StockBalanceRepository
		movements  repository.StockMovementRepository
		workOrders repository.WorkOrderLookup
		costs      repository.CostAllocationValidator
	)
	switch cfg.App.Storage {
	case config.StorageMemory:
		store := memory.NewStore()
		if cfg.App.MasterDataFile != "" {
			sum, err := masterdata.LoadFile(ctx, store, cfg.App.MasterDataFile, cfg.App.MasterDataLatin1)
			if err != nil {
				log.Fatal().Err(err).Msg("load master data")
			}
			log.Info().
				Int("cost_centers", sum.CostCenters).
				Int("cost_elements", sum.CostElements).
				Int("work_orders", sum.WorkOrders).
				Msg("master data loaded")
		}
		txRunner, snapshot = store, store
		products, balances, movements = store.Products(), store.Balances(), store.Movements()
		workOrders, costs = store, store
		log.Warn().Msg("using in-memory storage, data is lost on restart")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to PostgreSQL")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool, log); err != nil {
			log.Fatal().Err(err).Msg("apply migrations")
		}
		master := postgres.NewMasterDataRepository(pool)
		runner := postgres.NewTxRunner(pool, cfg.Inventory.LockTimeout)
		txRunner, snapshot = runner, runner
		products = postgres.NewProductRepository(pool)
		balances = postgres.NewStockBalanceRepository(pool)
		movements = postgres.NewStockMovementRepository(pool)
		workOrders, costs = master, master
		checks["postgres"] = pool.Ping
	}

	// Redis: optional Idempotency-Key store
	var idem httpRouter.IdempotencyStore
	if cfg.Redis.URL != "" {
		rdb, err := cache.New(ctx, cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to Redis")
		}
		defer rdb.Close()
		idem = cache.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// RabbitMQ: optional post-commit movement events
	var publisher inventory.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rmq, err := messaging.Dial(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to RabbitMQ")
		}
		defer rmq.Close()
		pub, err := messaging.NewPublisher(rmq, cfg.RabbitMQ.Exchange, cfg.App.Name, log)
		if err != nil {
			log.Fatal().Err(err).Msg("set up event publisher")
		}
		publisher = pub
		checks["rabbitmq"] = func(context.Context) error {
			if !rmq.Healthy() {
				return errors.New("connection closed")
			}
			return nil
		}
	}

	// roles come from the verified JWT claims
	roles := actor.ContextResolver{}

	productUC := usecase.NewProductUseCase(products, txRunner, roles, log)
	engine := inventory.NewExecuteMovementUseCase(txRunner, roles, workOrders, costs, publisher, inventory.EngineConfig{
		AdjustEnabled: cfg.Inventory.AdjustEnabled,
		TxTimeout:     cfg.Inventory.TxTimeout,
	}, log)
	reversal := inventory.NewReverseMovementUseCase(txRunner, movements, publisher, cfg.Inventory.TxTimeout, log)
	query := inventory.NewStockQueryUseCase(snapshot, products, balances, movements, inventory.QueryConfig{
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		LowStockTopN:      cfg.Inventory.LowStockTopN,
	})
	stockCard := inventory.NewStockCardUseCase(products, balances, movements,
		infrapdf.NewStockCardGenerator(cfg.App.Name), cfg.Inventory.StockCardMaxRows)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(httpRouter.RequestID())
	app.Use(httpRouter.RequestLogger(log))

	// Swagger UI: http://localhost:<port>/docs
	if cfg.App.Swagger {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Smart ERP Inventory API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   productUC,
		Engine:      engine,
		Reversal:    reversal,
		Query:       query,
		StockCard:   stockCard,
		Idempotency: idem,
		Checks:      checks,
		JWTSecret:   cfg.JWT.Secret,
		ServiceName: cfg.App.Name,
		Log:         log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, closing server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("application stopped")
}
