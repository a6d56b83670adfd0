package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	formapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/form"
	identityapp "github.com/joserochalaredo-arch/8visas-sub000/internal/application/identity"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/auth"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/cache"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/event"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/logger"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/persistence"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/storage"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/telemetry"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/handler"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/interfaces/http/router"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			baseLog.Warn("Telemetry shutdown failed", zap.Error(err))
		}
	}()

	log := providers.Bridge(baseLog, logger.ParseLevel(cfg.Log.Level))
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting DS-160 form service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create GORM logger backed by zap
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))

	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	// Repositories
	records := persistence.NewGormFormRecordRepository(db.DB)
	activity := persistence.NewGormActivityRepository(db.DB)

	// Delete confirmation counter, shared through Redis when configured
	counter, err := cache.NewCounterFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.IsProduction()),
	).CreateCounter()
	if err != nil {
		log.Fatal("Failed to create confirmation counter", zap.Error(err))
	}
	defer func() {
		_ = counter.Close()
	}()

	// Object storage for record exports
	var exporter formapp.RecordExporter
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Store(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			log.Warn("Export bucket check failed", zap.String("bucket", s3Store.Bucket()), zap.Error(err))
		}
		exporter = storage.NewRecordExporter(s3Store, cfg.Storage.KeyPrefix, cfg.Storage.PresignExpiration, log)
	} else if !cfg.IsProduction() {
		log.Info("Object storage disabled, exports are kept in memory")
		exporter = storage.NewRecordExporter(storage.NewStubObjectStorage(), cfg.Storage.KeyPrefix, cfg.Storage.PresignExpiration, log)
	}

	// Metrics
	meter := providers.Meter("ds160")
	wizardMetrics, err := telemetry.NewWizardMetrics(telemetry.WizardMetricsConfig{
		Meter:  meter,
		Stats:  records,
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to create wizard metrics", zap.Error(err))
	}
	defer func() {
		_ = wizardMetrics.Stop()
	}()

	// Event bus and handlers
	eventBus := event.NewInMemoryEventBus(log)
	if exporter != nil && cfg.Wizard.ExportOnComplete {
		eventBus.Subscribe(formapp.NewCompletedExportHandler(records, exporter, log))
	}
	if cfg.Kafka.Enabled {
		serializer := event.NewEventSerializer()
		event.RegisterFormEvents(serializer)
		forwarder, err := event.NewKafkaForwarder(cfg.Kafka, serializer, log)
		if err != nil {
			log.Fatal("Failed to create Kafka forwarder", zap.Error(err))
		}
		defer func() {
			if err := forwarder.Close(); err != nil {
				log.Warn("Kafka forwarder close failed", zap.Error(err))
			}
		}()
		eventBus.Subscribe(forwarder)
		log.Info("Forwarding form events to Kafka", zap.String("topic", cfg.Kafka.Topic))
	}
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	// Application services
	wizardService := formapp.NewWizardService(formapp.WizardServiceConfig{
		Records:        records,
		Activity:       activity,
		EventPublisher: eventBus,
		Metrics:        wizardMetrics,
		Logger:         log,
	})
	adminService := formapp.NewAdminService(formapp.AdminServiceConfig{
		Records:             records,
		Activity:            activity,
		Counter:             counter,
		Exporter:            exporter,
		EventPublisher:      eventBus,
		Metrics:             wizardMetrics,
		Logger:              log,
		DeleteConfirmations: cfg.Wizard.DeleteConfirmations,
		DeleteWindow:        cfg.Wizard.DeleteWindow,
		AuditLogLimit:       cfg.Wizard.AuditLogLimit,
	})
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(cfg.Admin, records, jwtService, log)

	// HTTP
	engine, err := router.New(router.Config{
		ServiceName:          cfg.Telemetry.ServiceName,
		HTTP:                 cfg.HTTP,
		RequireClientSession: cfg.Wizard.RequireClientSession,
		TracingEnabled:       providers.TracingEnabled(),
	}, router.Dependencies{
		Logger:     log,
		JWTService: jwtService,
		Meter:      meter,
		Wizard:     handler.NewWizardHandler(wizardService, authService),
		Admin:      handler.NewAdminHandler(adminService, authService),
		System: handler.NewSystemHandler(cfg.App.Name, telemetry.ServiceVersion, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
		}),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}
	defer engine.Close()

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}
