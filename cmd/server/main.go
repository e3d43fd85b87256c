package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	numberingapp "github.com/docuflow/backend/internal/application/numbering"
	workflowapp "github.com/docuflow/backend/internal/application/workflow"
	"github.com/docuflow/backend/internal/domain/numbering"
	"github.com/docuflow/backend/internal/domain/workflow"
	"github.com/docuflow/backend/internal/infrastructure/auth"
	"github.com/docuflow/backend/internal/infrastructure/config"
	"github.com/docuflow/backend/internal/infrastructure/event"
	"github.com/docuflow/backend/internal/infrastructure/logger"
	"github.com/docuflow/backend/internal/infrastructure/persistence"
	"github.com/docuflow/backend/internal/infrastructure/telemetry"
	"github.com/docuflow/backend/internal/interfaces/http/handler"
	"github.com/docuflow/backend/internal/interfaces/http/middleware"
	"github.com/docuflow/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterOtelGorm(db.DB, cfg.Database.DBName); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Repositories
	ruleRepo := persistence.NewGormApprovalRuleRepository(db.DB)
	instanceRepo := persistence.NewGormApprovalInstanceRepository(db.DB)
	sequenceRepo := persistence.NewGormNumberSequenceRepository(db.DB)

	// Services
	matcher := workflow.NewRuleMatcher(ruleRepo)
	eventPublisher := event.NewLogPublisher(log)
	instanceService := workflowapp.NewInstanceService(instanceRepo, matcher, workflowapp.InstanceServiceConfig{
		Fallback: workflowapp.FallbackPolicy(cfg.Workflow.FallbackPolicy),
		DefaultStep: workflow.ApprovalStep{
			Name:          "Default approval",
			ApproverGroup: cfg.Workflow.DefaultApproverGroup,
		},
	}, eventPublisher, log)
	ruleService := workflowapp.NewRuleService(ruleRepo)

	prefixes := numbering.DefaultPrefixes()
	for kind, prefix := range cfg.Numbering.Prefixes {
		prefixes[numbering.DocumentKind(kind)] = prefix
	}
	allocator := numberingapp.NewSequenceAllocator(sequenceRepo, prefixes, numberingapp.NoDelay{}, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers
	approvalHandler := handler.NewApprovalHandler(instanceService)
	ruleHandler := handler.NewRuleHandler(ruleService)
	numberingHandler := handler.NewNumberingHandler(allocator, cfg.Numbering.MaxRetries)
	systemHandler := handler.NewSystemHandler(db)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig()))

	// Health endpoints outside API versioning
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/api/v1/health", "/api/v1/system/info"},
		Logger:     log,
	}))
	r.Register(approvalHandler).
		Register(ruleHandler).
		Register(numberingHandler).
		Register(systemHandler)
	r.Setup()

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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}
