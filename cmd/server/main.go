package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	financeapp "github.com/nivaasi/backend/internal/application/finance"
	"github.com/nivaasi/backend/internal/application/photo"
	propertyapp "github.com/nivaasi/backend/internal/application/property"
	"github.com/nivaasi/backend/internal/application/receipt"
	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/domain/shared"
	"github.com/nivaasi/backend/internal/infrastructure/cache"
	"github.com/nivaasi/backend/internal/infrastructure/config"
	"github.com/nivaasi/backend/internal/infrastructure/event"
	"github.com/nivaasi/backend/internal/infrastructure/lock"
	"github.com/nivaasi/backend/internal/infrastructure/logger"
	"github.com/nivaasi/backend/internal/infrastructure/persistence"
	"github.com/nivaasi/backend/internal/infrastructure/printing"
	"github.com/nivaasi/backend/internal/infrastructure/scheduler"
	"github.com/nivaasi/backend/internal/infrastructure/storage"
	"github.com/nivaasi/backend/internal/infrastructure/telemetry"
	"github.com/nivaasi/backend/internal/interfaces/http/handler"
	"github.com/nivaasi/backend/internal/interfaces/http/middleware"
	"github.com/nivaasi/backend/internal/interfaces/http/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.NewForEnvironment(cfg.App.Env, logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	telemetry.ServiceVersion = version
	otelCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}

	// Log records go to stdout and, when telemetry is on, to the collector
	logProvider, err := telemetry.NewLoggerProvider(ctx, otelCfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize log exporter", zap.Error(err))
	}
	log := logProvider.Bridge(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Nivaasi backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, otelCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Telemetry.ProfilingBasicAuthUser,
		BasicAuthPassword: cfg.Telemetry.ProfilingBasicAuthPass,
		ProfileTypes:      cfg.Telemetry.ProfilingTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if cfg.Telemetry.ProfilingSpanProfiles {
		tracerProvider.EnableSpanProfiles(profiler)
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, otelCfg, cfg.Telemetry.MetricsInterval, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected", zap.String("driver", db.Driver))

	// Postgres schemas are owned by cmd/migrate; a sqlite file is created in place
	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}

	if cfg.Telemetry.DBTraceEnabled {
		plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         tracerProvider.IsEnabled(),
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        db.Driver,
		}, log)
		if err := plugin.Register(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatal("Failed to access connection pool", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, sqlDB, cfg.Telemetry.DBSlowQueryThresh, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Register(db.DB); err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	tenancyMetrics, err := telemetry.NewTenancyMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create tenancy metrics", zap.Error(err))
	}

	// Redis is only dialed when a backend asks for it
	var redisClient *redis.Client
	if cfg.Lock.Backend == "redis" || cfg.Event.IdempotencyBackend == "redis" {
		redisClient, err = lock.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr()))
		}
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	var lockClient redis.UniversalClient
	if redisClient != nil {
		lockClient = redisClient
	}
	locker, err := lock.New(cfg.Lock, lockClient, log)
	if err != nil {
		log.Fatal("Failed to create locker", zap.Error(err))
	}

	// Initialize repositories
	propertyRepo := persistence.NewGormPropertyRepository(db.DB)
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	transactionRepo := persistence.NewGormTransactionRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Event bus and the projection that feeds the transaction log
	eventBus := event.NewInMemoryEventBusWithConfig(event.BusConfig{
		Async:       cfg.Event.Async,
		Workers:     cfg.Event.Workers,
		BufferSize:  cfg.Event.BufferSize,
		HandlerWait: cfg.Event.HandlerWait,
	}, log)
	eventBus.SetObserver(tenancyMetrics)

	storeFactory := cache.NewIdempotencyStoreFactory(lockClient,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	)
	idempotencyStore, err := storeFactory.CreateStore(cfg.Event.IdempotencyBackend)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	projection := event.NewIdempotentHandler(
		financeapp.NewTenancyProjectionHandler(transactionRepo, log),
		idempotencyStore, log,
		event.WithIdempotencyConfig(shared.IdempotencyConfig{TTL: cfg.Event.IdempotencyTTL, Enabled: true}),
	)
	eventBus.Subscribe(projection)
	log.Info("Event handlers registered", zap.Strings("projection_events", projection.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Initialize application services
	coordinator := tenancy.NewCoordinator(propertyRepo, tenantRepo, txScope, locker, log)
	coordinator.SetEventPublisher(eventBus)
	coordinator.SetMetrics(tenancyMetrics)

	propertyService := propertyapp.NewPropertyService(propertyRepo, locker, log)
	propertyService.SetEventPublisher(eventBus)

	transactionService := financeapp.NewTransactionService(transactionRepo, log)

	// Tenant photos need an object store; without one the endpoints answer 503
	var photoService handler.PhotoService
	if cfg.Storage.Enabled() {
		objectStore, err := storage.NewS3ObjectStorage(cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
		if err := objectStore.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare storage bucket", zap.Error(err), zap.String("bucket", objectStore.Bucket()))
		}
		svc := photo.NewService(coordinator, objectStore, log)
		svc.SetConfig(photo.Config{
			UploadURLExpiry:   cfg.Storage.PresignExpiration,
			DownloadURLExpiry: cfg.Storage.PresignExpiration,
			MaxBytes:          cfg.Storage.MaxPhotoBytes,
		})
		photoService = svc
		log.Info("Photo storage ready", zap.String("bucket", objectStore.Bucket()))
	}

	// Receipts are always available as HTML; PDF goes through headless Chrome
	receiptLayout, err := printing.NewReceiptTemplate()
	if err != nil {
		log.Fatal("Failed to parse receipt layout", zap.Error(err))
	}
	var pdfRenderer receipt.PDFRenderer
	if cfg.Printing.PDFEnabled {
		chrome, err := printing.NewChromedpRenderer(printing.ChromedpConfig{
			RemoteURL: cfg.Printing.ChromeRemoteURL,
			NoSandbox: cfg.Printing.ChromeNoSandbox,
			Timeout:   cfg.Printing.RenderTimeout,
			PaperSize: printing.PaperSize(cfg.Printing.PaperSize),
			Logger:    log,
		})
		if err != nil {
			log.Fatal("Failed to create PDF renderer", zap.Error(err))
		}
		defer chrome.Close()
		pdfRenderer = chrome
		log.Info("PDF receipts enabled", zap.String("paper_size", cfg.Printing.PaperSize))
	}
	receiptService := receipt.NewService(coordinator, propertyRepo, receiptLayout, pdfRenderer, log)

	// Periodic bed/tenant cross-check; also serves on-demand runs over HTTP
	schedulerCfg := scheduler.DefaultConfig()
	schedulerCfg.Enabled = cfg.Consistency.Enabled
	schedulerCfg.Interval = cfg.Consistency.Interval
	consistency, err := scheduler.NewConsistencyScheduler(coordinator, schedulerCfg, log)
	if err != nil {
		log.Fatal("Failed to create consistency scheduler", zap.Error(err))
	}
	if cfg.Consistency.Enabled {
		if err := consistency.Start(ctx); err != nil {
			log.Fatal("Failed to start consistency scheduler", zap.Error(err))
		}
		log.Info("Consistency scheduler started", zap.Duration("interval", cfg.Consistency.Interval))
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Tracing - Server span per request, then span attributes and error marking
	// 3. Profiling - Pyroscope labels per route
	// 4. Recovery - Catch panics
	// 5. Logger - Log requests
	// 6. Metrics - Request count and latency
	// 7. Security and CORS headers
	// 8. BodyLimit - Limit request body size, with a larger cap for photo uploads
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
		SkipPaths:   []string{"/health", "/metrics"},
	}))
	engine.Use(middleware.SpanAttributes(), middleware.SpanErrorMarker())
	engine.Use(middleware.Profiling(middleware.ProfilingConfig{
		Enabled:   profiler.IsEnabled(),
		SkipPaths: []string{"/health", "/metrics"},
	}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(meter))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORS(corsConfig))

	apiRouter := router.NewRouter(engine, router.WithAPIVersion("v1"))
	// multipart photo uploads carry the image plus form framing
	engine.Use(middleware.BodyLimitFor(cfg.HTTP.MaxBodySize, map[string]int64{
		apiRouter.Prefix() + router.PhotoRoute: cfg.Storage.MaxPhotoBytes + 64<<10,
	}))

	router.Mount(engine, apiRouter, router.Handlers{
		Property:    handler.NewPropertyHandler(propertyService),
		Tenant:      handler.NewTenantHandler(coordinator),
		Transaction: handler.NewTransactionHandler(transactionService),
		System:      handler.NewSystemHandler(cfg.App.Name, version, db, consistency),
		Photo:       handler.NewPhotoHandler(photoService),
		Receipt:     handler.NewReceiptHandler(receiptService),
	})
	if cfg.Telemetry.PrometheusEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			telemetry.NewOccupancyCollector(propertyRepo, 5*time.Second, log),
		)
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}
	log.Info("Routes registered", zap.Int("count", len(engine.Routes())))

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Stop producers before the bus so queued projections drain
	if consistency.IsRunning() {
		if err := consistency.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping consistency scheduler", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if closer, ok := idempotencyStore.(io.Closer); ok {
		_ = closer.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing redis client", zap.Error(err))
		}
	}
	dbMetrics.Stop()
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	_ = logProvider.Shutdown(shutdownCtx)
}
