package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	financeapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/finance"
	fulfillmentapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/fulfillment"
	inventoryapp "github.com/minhtran291/PMS-Backend-sub002/internal/application/inventory"
	appshared "github.com/minhtran291/PMS-Backend-sub002/internal/application/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/finance"
	"github.com/minhtran291/PMS-Backend-sub002/internal/domain/shared"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/cache"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/config"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/event"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/lock"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/logger"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/persistence"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/scheduler"
	"github.com/minhtran291/PMS-Backend-sub002/internal/infrastructure/telemetry"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/handler"
	"github.com/minhtran291/PMS-Backend-sub002/internal/interfaces/http/router"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const meterName = "github.com/minhtran291/PMS-Backend-sub002"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		Level:             logger.ParseLevel(cfg.Log.Level),
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log := logsProvider.Bridge(baseLog)
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting PMS backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
		ProfileMutex:    cfg.Telemetry.ProfileMutex,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		LinkProfiles:      cfg.Telemetry.ProfilingEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	meter := meterProvider.Meter(meterName)

	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh),
		logger.WithFullSQL(cfg.Telemetry.DBLogFullSQL))
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithGormLogger(gormLog),
		persistence.WithPlugins(
			telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
				Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
				LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
				SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
				DBSystem:        "postgresql",
			}, log),
			dbMetrics,
		))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbMetrics.StartPoolStatsCollection(ctx)
	defer dbMetrics.Stop()
	log.Info("Database connected successfully")

	health := handler.NewHealthHandler(cfg.App.Name, telemetry.ServiceVersion).
		AddCheck("database", db.Ping)

	// Locks and the replay guard are process-local unless Redis is enabled
	var locker appshared.Locker = lock.NewKeyedMutex()
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = redisClient.Close()
		}()
		locker = lock.NewRedisLocker(redisClient, lock.RedisLockerConfig{
			TTL: cfg.Redis.LockTTL,
		}, log)
		health.AddCheck("redis", func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	idempotencyOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log)}
	if redisClient != nil {
		idempotencyOpts = append(idempotencyOpts, cache.WithRedisClient(redisClient))
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, idempotencyOpts...).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	metrics, err := telemetry.NewFulfillmentMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewNotificationLogger(log))

	txScope := persistence.NewGormTransactionScope(db.DB)
	retry := appshared.RetryPolicy{
		MaxRetries:     cfg.Allocation.MaxRetries,
		InitialBackoff: cfg.Allocation.RetryBackoff,
	}

	allocator := inventoryapp.NewAllocatorService(txScope, inventoryapp.AllocatorConfig{
		Retry:          retry,
		ExcludeExpired: cfg.Allocation.ExcludeExpired,
	}, log)
	allocator.SetEventPublisher(eventBus)
	allocator.SetMetrics(metrics)

	stockExports := fulfillmentapp.NewStockExportService(txScope, locker, allocator, log)
	stockExports.SetEventPublisher(eventBus)
	stockExports.SetMetrics(metrics)

	debts := financeapp.NewDebtService(txScope, locker, retry, financeapp.DebtServiceConfig{
		Policy: finance.DebtPolicy{
			BadDebtGracePeriod: cfg.Finance.BadDebtGracePeriod,
			BadDebtEnabled:     cfg.Finance.BadDebtGracePeriodSet,
		},
		Concurrency: cfg.Finance.EvaluationConcurrency,
	}, log)
	debts.SetEventPublisher(eventBus)
	debts.SetMetrics(metrics)

	invoices := financeapp.NewInvoiceService(txScope, locker, retry, log)
	invoices.SetEventPublisher(eventBus)
	invoices.SetDebtTracker(debts)

	payments := financeapp.NewPaymentService(financeapp.PaymentServiceConfig{
		TxScope:     txScope,
		Locker:      locker,
		Retry:       retry,
		Idempotency: idempotencyStore,
		IdempotencyConfig: shared.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Enabled: cfg.Idempotency.Enabled,
		},
		EventPublisher: eventBus,
		Metrics:        metrics,
		Debts:          debts,
		Logger:         log,
	})

	debtJob := scheduler.NewDebtReevaluationJob(debts, scheduler.JobConfig{
		Enabled:    cfg.Scheduler.Enabled,
		Interval:   cfg.Scheduler.DebtInterval,
		RunTimeout: cfg.Scheduler.RunTimeout,
	}, cfg.Finance.EvaluationBatch, log)
	backorderJob := scheduler.NewBackorderRecheckJob(stockExports, scheduler.JobConfig{
		Enabled:    cfg.Scheduler.Enabled,
		Interval:   cfg.Scheduler.BackorderInterval,
		RunTimeout: cfg.Scheduler.RunTimeout,
	}, cfg.Scheduler.BackorderBatch, log)
	eventBus.Subscribe(scheduler.NewRestockTrigger(backorderJob))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	jobCtx, stopJobs := context.WithCancel(ctx)
	defer stopJobs()
	for _, job := range []*scheduler.PeriodicJob{debtJob, backorderJob} {
		if err := job.Start(jobCtx); err != nil {
			log.Fatal("Failed to start scheduled job", zap.String("job", job.Name()), zap.Error(err))
		}
	}

	engine, err := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: cfg.Telemetry.Enabled,
		TracerProvider: tracerProvider.Provider(),
		Meter:          meter,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}, router.Handlers{
		Lots:         handler.NewLotHandler(allocator),
		StockExports: handler.NewStockExportHandler(stockExports),
		Invoices:     handler.NewInvoiceHandler(invoices),
		Payments:     handler.NewPaymentHandler(payments),
		Debts:        handler.NewDebtHandler(debts),
		Health:       health,
	}, log)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	for _, job := range []*scheduler.PeriodicJob{debtJob, backorderJob} {
		if err := job.Stop(shutdownCtx); err != nil && !errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			log.Warn("Scheduled job did not stop cleanly", zap.String("job", job.Name()), zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}
	if err := logsProvider.Shutdown(shutdownCtx); err != nil {
		baseLog.Warn("Logger provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
