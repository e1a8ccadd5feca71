package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/bootstrap"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/interfaces/http/handler"
	"github.com/catalogsync/backend/internal/interfaces/http/middleware"
	"github.com/catalogsync/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// rateLimitIdleTTL drops per-client limiter state after this much inactivity
const rateLimitIdleTTL = 10 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = baseLog.Sync()
	}()

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(rootCtx, cfg, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize catalog sync", zap.Error(err))
	}
	log := app.Logger
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Error("Error releasing resources", zap.Error(err))
		}
	}()

	log.Info("Starting catalog sync service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Stopped by app.Close
	if err := app.Jobs.Start(rootCtx); err != nil {
		log.Fatal("Failed to start catalog sync runner", zap.Error(err))
	}

	engine, err := newEngine(cfg, app)
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

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		log.Error("Server failed", zap.Error(err))
	}
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

func newEngine(cfg *config.Config, app *bootstrap.App) (*gin.Engine, error) {
	log := app.Logger

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

	metrics, err := middleware.HTTPMetrics(app.Meter)
	if err != nil {
		return nil, err
	}

	tracing := middleware.DefaultTracingConfig()
	tracing.ServiceName = cfg.Telemetry.ServiceName
	tracing.Enabled = cfg.Telemetry.Enabled

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Tracing - Server span plus error status
	// 4. Logger - Log requests with trace ids
	// 5. Metrics - Request count and latency per route
	// 6. Security - Add security headers
	// 7. CORS - Handle cross-origin requests
	// 8. BodyLimit - Limit request body size
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(tracing))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(metrics)
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	checks := make(map[string]handler.ReadinessCheck)
	for name, check := range app.ReadinessChecks() {
		checks[name] = check
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, checks)
	systemHandler.RegisterProbes(engine)

	syncOpts := []handler.CatalogSyncHandlerOption{
		handler.WithJobLauncher(app.Jobs),
		handler.WithHandlerLogger(log),
	}
	// Only the trigger endpoints are limited; reads stay cheap
	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitBurst, rateLimitIdleTTL)
		syncOpts = append(syncOpts, handler.WithTriggerMiddleware(middleware.RateLimit(limiter)))
		log.Info("Rate limiting enabled",
			zap.Float64("requests_per_second", cfg.HTTP.RateLimit),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}
	syncHandler := handler.NewCatalogSyncHandler(app.Sync, app.Outcomes, app.Reports, syncOpts...)

	r := router.NewRouter(engine)
	r.Register(systemHandler)
	r.Register(syncHandler)
	r.Setup()

	return engine, nil
}
