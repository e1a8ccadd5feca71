// Package bootstrap assembles the catalog sync service from configuration.
// The HTTP server and the CLI share it so both run the same pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/cache"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/ecommerce"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
	"github.com/catalogsync/backend/internal/infrastructure/ratelimit"
	"github.com/catalogsync/backend/internal/infrastructure/scheduler"
	"github.com/catalogsync/backend/internal/infrastructure/storage"
	"github.com/catalogsync/backend/internal/infrastructure/telemetry"
)

const (
	meterName             = "github.com/catalogsync/backend"
	memoryReportCapacity  = 200
	shutdownFlushDeadline = 10 * time.Second
)

// ReportStore archives batch results and reads them back
type ReportStore interface {
	appintegration.ReportArchiver
	Load(ctx context.Context, batchID string) (*appintegration.BatchResult, error)
}

// App holds the wired components of one process
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Database *persistence.Database
	Meter    metric.Meter
	Sync     *appintegration.CatalogSyncService
	Outcomes *appintegration.OutcomeService
	Reports  ReportStore
	Jobs     *scheduler.JobRunner
	// Locker is nil when item locking is disabled
	Locker cache.ClosableItemLocker

	closers []func(context.Context) error
}

// New wires telemetry, storage and the sync pipeline. base is the process
// logger; the returned App.Logger also exports to the collector when log
// export is enabled.
func New(ctx context.Context, cfg *config.Config, base *zap.Logger) (_ *App, err error) {
	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
		}
	}()

	if err := app.initTelemetry(ctx, base); err != nil {
		return nil, err
	}
	log := app.Logger

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	app.Database = db
	app.closers = append(app.closers, func(context.Context) error { return db.Close() })
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing
	if cfg.Database.Driver == "sqlite" {
		dbTracing.DBSystem = "sqlite"
	}
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}

	if _, err := telemetry.RegisterPoolMetrics(app.Meter, db, log); err != nil {
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate schema: %w", err)
		}
		log.Info("Schema migrated")
	}

	if err := app.initReports(ctx, log); err != nil {
		return nil, err
	}

	opts := []appintegration.CatalogSyncOption{
		appintegration.WithLogger(log),
		appintegration.WithReportArchiver(app.Reports),
	}

	if cfg.Sync.LockEnabled {
		locker, err := cache.NewItemLockerFactory(cfg.Redis, cache.WithLogger(log)).CreateLocker()
		if err != nil {
			return nil, err
		}
		app.Locker = locker
		app.closers = append(app.closers, func(context.Context) error { return locker.Close() })
		opts = append(opts, appintegration.WithItemLocker(locker))
	}

	recorder, err := telemetry.NewSyncMetrics(app.Meter, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}
	opts = append(opts, appintegration.WithSyncRecorder(recorder))

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	sessions := ecommerce.NewSessionFactory(ShopifyConfig(cfg.Shopify), RealAuthConfig(cfg.RealAuth), httpClient, log)
	pacer := ratelimit.NewTokenBucketPacer(cfg.Sync.ItemInterval, cfg.Sync.Burst, cfg.Sync.PageCooldown)
	repo := persistence.NewGormSyncOutcomeRepository(db.DB)

	app.Sync = appintegration.NewCatalogSyncService(sessions, repo, pacer, SyncSettings(cfg), opts...)
	app.Outcomes = appintegration.NewOutcomeService(repo, log)

	jobs, err := scheduler.NewJobRunner(scheduler.JobRunnerConfig{
		RunInterval: cfg.Sync.RunInterval,
		MaxBatches:  cfg.Sync.MaxBatches,
	}, app.Sync, log)
	if err != nil {
		return nil, err
	}
	app.Jobs = jobs
	app.closers = append(app.closers, jobs.Stop)
	return app, nil
}

func (a *App) initTelemetry(ctx context.Context, base *zap.Logger) error {
	traceCfg, metricsCfg, logsCfg := telemetry.ConfigFromTelemetry(a.Config.Telemetry)

	tp, err := telemetry.NewTracerProvider(ctx, traceCfg, base)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, tp.Shutdown)

	mp, err := telemetry.NewMeterProvider(ctx, metricsCfg, base)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, mp.Shutdown)
	a.Meter = mp.Meter(meterName)

	lp, err := telemetry.NewLoggerProvider(ctx, logsCfg, base)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, lp.Shutdown)

	level, err := zapcore.ParseLevel(a.Config.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	a.Logger = telemetry.BridgeLogger(base, lp, level)
	return nil
}

func (a *App) initReports(ctx context.Context, log *zap.Logger) error {
	if !a.Config.Storage.Enabled {
		log.Info("Report storage disabled, keeping reports in memory",
			zap.Int("capacity", memoryReportCapacity))
		a.Reports = storage.NewMemoryReportStore(memoryReportCapacity)
		return nil
	}

	store, err := storage.NewS3ReportStore(&a.Config.Storage, storage.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create report store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Warn("Report bucket not ready", zap.String("bucket", store.Bucket()), zap.Error(err))
	}
	a.Reports = store
	return nil
}

// ReadinessChecks returns the dependency probes served on /ready
func (a *App) ReadinessChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": a.Database.PingContext,
	}
	if pinger, ok := a.Locker.(interface{ Ping(context.Context) error }); ok {
		checks["redis"] = pinger.Ping
	}
	return checks
}

// Close releases resources in reverse order of acquisition
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownFlushDeadline)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// SyncSettings maps configuration onto pipeline settings; zero values keep
// the pipeline defaults.
func SyncSettings(cfg *config.Config) appintegration.SyncSettings {
	s := appintegration.DefaultSyncSettings()
	if cfg.Sync.PageSize > 0 {
		s.PageSize = cfg.Sync.PageSize
	}
	if policy, ok := integration.ParseSlotPolicy(cfg.Sync.SlotPolicy); ok {
		s.SlotPolicy = policy
	}
	if cfg.Sync.MetadataPrefix != "" {
		s.MetadataPrefix = cfg.Sync.MetadataPrefix
	}
	if cfg.Sync.Workers > 0 {
		s.Workers = cfg.Sync.Workers
	}
	if cfg.Sync.LockTTL > 0 {
		s.LockTTL = cfg.Sync.LockTTL
	}
	s.FilterTag = cfg.Sync.FilterTag
	s.RequireImages = cfg.Sync.RequireImages
	s.LockEnabled = cfg.Sync.LockEnabled
	s.DashboardURL = cfg.RealAuth.DashboardURL

	s.Defaults.ContactEmail = cfg.RealAuth.ContactEmail
	s.Defaults.ShopDomain = cfg.Shopify.ShopDomain
	if cfg.RealAuth.DocumentationName != "" {
		s.Defaults.DocumentationName = cfg.RealAuth.DocumentationName
	}
	if cfg.Sync.DefaultBrandID > 0 {
		s.Defaults.FallbackBrandID = cfg.Sync.DefaultBrandID
	}
	return s
}

// ShopifyConfig builds the source adapter configuration
func ShopifyConfig(c config.ShopifyConfig) *ecommerce.ShopifyConfig {
	out := ecommerce.NewShopifyConfig(c.ShopDomain, c.AccessToken)
	if c.APIVersion != "" {
		out.APIVersion = c.APIVersion
	}
	if c.MetafieldNamespace != "" {
		out.MetafieldNamespace = c.MetafieldNamespace
	}
	if c.TimeoutSeconds > 0 {
		out.TimeoutSeconds = c.TimeoutSeconds
	}
	out.APIBaseURL = c.APIBaseURL
	return out
}

// RealAuthConfig builds the destination adapter configuration
func RealAuthConfig(c config.RealAuthConfig) *ecommerce.RealAuthConfig {
	out := ecommerce.NewRealAuthConfig(c.APIKey)
	if c.APIBaseURL != "" {
		out.APIBaseURL = c.APIBaseURL
	}
	if c.TimeoutSeconds > 0 {
		out.TimeoutSeconds = c.TimeoutSeconds
	}
	return out
}
