package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		App:      config.AppConfig{Name: "catalogsync", Env: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", DBName: ":memory:", AutoMigrate: true},
		Log:      config.LogConfig{Level: "debug"},
		Shopify:  config.ShopifyConfig{ShopDomain: "acme.myshopify.com", AccessToken: "shpat"},
		RealAuth: config.RealAuthConfig{APIKey: "ra-key"},
		Sync: config.SyncConfig{
			ItemInterval: time.Millisecond,
			Burst:        1,
		},
	}
}

func TestNew_WiresInMemoryDefaults(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, testConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, app.Close(ctx)) }()

	assert.NotNil(t, app.Sync)
	assert.NotNil(t, app.Outcomes)
	assert.NotNil(t, app.Jobs)
	assert.Nil(t, app.Locker)
	assert.IsType(t, &storage.MemoryReportStore{}, app.Reports)

	checks := app.ReadinessChecks()
	require.Contains(t, checks, "database")
	assert.NotContains(t, checks, "redis")
	assert.NoError(t, checks["database"](ctx))

	result, err := app.Outcomes.List(ctx, appintegration.ListOutcomesQuery{Page: 1, PageSize: 10})
	require.NoError(t, err, "schema is created on startup")
	assert.Zero(t, result.Total)
}

func TestNew_DatabaseFailureReleasesTelemetry(t *testing.T) {
	cfg := testConfig()
	cfg.Database.Driver = "oracle"

	_, err := New(context.Background(), cfg, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestSyncSettings(t *testing.T) {
	t.Run("zero config keeps defaults", func(t *testing.T) {
		s := SyncSettings(&config.Config{})
		d := appintegration.DefaultSyncSettings()

		assert.Equal(t, d.PageSize, s.PageSize)
		assert.Equal(t, d.Workers, s.Workers)
		assert.Equal(t, d.LockTTL, s.LockTTL)
		assert.Equal(t, integration.SlotPolicyAttach, s.SlotPolicy)
		assert.Equal(t, integration.DefaultDocumentationName, s.Defaults.DocumentationName)
		assert.Equal(t, integration.DefaultBrandID, s.Defaults.FallbackBrandID)
	})

	t.Run("configured values override", func(t *testing.T) {
		cfg := &config.Config{
			Shopify: config.ShopifyConfig{ShopDomain: "acme.myshopify.com"},
			RealAuth: config.RealAuthConfig{
				ContactEmail:      "ops@acme.test",
				DocumentationName: "Acme",
				DashboardURL:      "https://dash.example/orders",
			},
			Sync: config.SyncConfig{
				PageSize:       50,
				Workers:        4,
				SlotPolicy:     "drop",
				DefaultBrandID: 9,
				FilterTag:      "authenticate",
				RequireImages:  true,
				MetadataPrefix: "ra_",
				LockEnabled:    true,
				LockTTL:        time.Minute,
			},
		}
		s := SyncSettings(cfg)

		assert.Equal(t, 50, s.PageSize)
		assert.Equal(t, 4, s.Workers)
		assert.Equal(t, integration.SlotPolicy("drop"), s.SlotPolicy)
		assert.Equal(t, "authenticate", s.FilterTag)
		assert.True(t, s.RequireImages)
		assert.Equal(t, "ra_", s.MetadataPrefix)
		assert.True(t, s.LockEnabled)
		assert.Equal(t, time.Minute, s.LockTTL)
		assert.Equal(t, "https://dash.example/orders", s.DashboardURL)
		assert.Equal(t, integration.OrderDefaults{
			ContactEmail:      "ops@acme.test",
			DocumentationName: "Acme",
			ShopDomain:        "acme.myshopify.com",
			FallbackBrandID:   9,
		}, s.Defaults)
	})

	t.Run("unknown slot policy falls back", func(t *testing.T) {
		s := SyncSettings(&config.Config{Sync: config.SyncConfig{SlotPolicy: "shuffle"}})
		assert.Equal(t, integration.SlotPolicyAttach, s.SlotPolicy)
	})
}

func TestPlatformConfigs(t *testing.T) {
	shop := ShopifyConfig(config.ShopifyConfig{
		ShopDomain:  "acme.myshopify.com",
		AccessToken: "shpat",
		APIVersion:  "2025-01",
		APIBaseURL:  "http://localhost:9999/graphql",
	})
	assert.Equal(t, "acme.myshopify.com", shop.ShopDomain)
	assert.Equal(t, "2025-01", shop.APIVersion)
	assert.Equal(t, "custom", shop.MetafieldNamespace)
	assert.Equal(t, 30, shop.TimeoutSeconds)
	assert.Equal(t, "http://localhost:9999/graphql", shop.APIBaseURL)

	ra := RealAuthConfig(config.RealAuthConfig{APIKey: "ra-key", TimeoutSeconds: 5})
	assert.Equal(t, "ra-key", ra.APIKey)
	assert.Equal(t, 5, ra.TimeoutSeconds)
	assert.NotEmpty(t, ra.APIBaseURL)
}
