package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/flight-seat-inventory/internal/config"
	"github.com/iliyamo/flight-seat-inventory/internal/database"
	"github.com/iliyamo/flight-seat-inventory/internal/handler"
	"github.com/iliyamo/flight-seat-inventory/internal/middleware"
	"github.com/iliyamo/flight-seat-inventory/internal/model"
	"github.com/iliyamo/flight-seat-inventory/internal/observability"
	"github.com/iliyamo/flight-seat-inventory/internal/queue"
	"github.com/iliyamo/flight-seat-inventory/internal/repository"
	"github.com/iliyamo/flight-seat-inventory/internal/router"
	"github.com/iliyamo/flight-seat-inventory/internal/service"
	"github.com/iliyamo/flight-seat-inventory/internal/worker"
)

const sweeperLeaseKey = "seatinv:sweeper:lease"

func main() {
	cfg := config.Load()

	logger, err := observability.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTelEndpoint, cfg.OTelAuthHeader)
	if err != nil {
		logger.Fatal("tracing setup failed", zap.Error(err))
	}

	db, store, catalog, configs, noShows := openStore(ctx, cfg, logger)
	if db != nil {
		defer db.Close()
	}

	sink, closeSink := newSink(cfg, logger)
	dispatcher := queue.NewDispatcher(sink, 4096, 5*time.Second, logger.Named("events"))

	core := service.New(store, catalog, configs, noShows, service.Options{
		HoldTTL:     cfg.HoldTTL,
		OfferTTL:    cfg.OfferTTL,
		WaitlistMax: cfg.WaitlistMax,
		SweepBatch:  cfg.SweepBatch,
		Defaults: model.OverbookingConfig{
			EconomyRate:    cfg.OverbookEconomyRate,
			BusinessRate:   cfg.OverbookBusinessRate,
			MaxOverbooking: cfg.OverbookMax,
			NoShowRate:     cfg.NoShowRate,
		},
		Logger:   logger,
		Notifier: dispatcher,
	})

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn("redis unavailable; rate limiting, forecast cache and sweeper lease disabled")
	} else {
		defer rdb.Close()
	}

	var lease worker.Lease
	if rdb != nil {
		lease = worker.NewRedisLease(rdb, sweeperLeaseKey, cfg.SweepInterval)
	}
	go worker.NewSweeperWorker(core.Sweeper, lease, logger.Named("sweeper-worker"), cfg.SweepInterval).Start(ctx)

	if cfg.AuditConsumerEnabled {
		consumer := &queue.AuditConsumer{URL: cfg.RabbitURL, Path: cfg.AuditLogPath, Log: logger.Named("audit")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	health := handler.Health{}
	if db != nil {
		health.Ping = db.PingContext
	}
	router.Register(e, router.Deps{
		JWTSecret: cfg.JWTSecret,
		Inventory: handler.NewInventoryHandler(core),
		Planning:  handler.NewPlanningHandler(core),
		Health:    health,
		RateLimit: middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger.Named("ratelimit")),
		Cache:     middleware.NewRedisCache(config.LoadCacheConfig(), rdb, logger.Named("cache")),
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("store", cfg.StoreDriver), zap.String("notifier", cfg.NotifierDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn("event dispatcher drain", zap.Error(err))
	}
	closeSink()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// openStore returns the repositories for cfg.StoreDriver.  db is nil for
// the in-memory driver.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (*sql.DB, repository.Store, repository.Catalog,
	repository.OverbookingConfigStore, repository.NoShowSource) {
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; state is lost on restart")
		catalog := repository.NewMemoryCatalog()
		return nil, repository.NewMemoryStore(), catalog, catalog, catalog
	case "mysql":
	default:
		logger.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("db connection failed", zap.Error(err))
	}
	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatal("schema migration failed", zap.Error(err))
		}
	}
	return db, repository.NewMySQLStore(db), repository.NewMySQLCatalog(db),
		repository.NewMySQLOverbookingConfigs(db), repository.NewMySQLNoShowStats(db)
}

// newSink picks the event transport for cfg.NotifierDriver.
func newSink(cfg config.Config, logger *zap.Logger) (queue.Sink, func()) {
	switch cfg.NotifierDriver {
	case "rabbitmq":
		n := queue.NewRabbitNotifier(cfg.RabbitURL, queue.SeatEventsQueue, logger.Named("rabbitmq"))
		return n, func() { _ = n.Close() }
	case "kafka":
		n := queue.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		return n, func() { _ = n.Close() }
	case "log", "":
		return queue.NewLogNotifier(logger.Named("events")), func() {}
	}
	logger.Fatal("unknown NOTIFIER_DRIVER", zap.String("driver", cfg.NotifierDriver))
	return nil, nil
}
