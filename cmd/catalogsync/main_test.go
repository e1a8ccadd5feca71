package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appintegration "github.com/catalogsync/backend/internal/application/integration"
	"github.com/catalogsync/backend/internal/domain/integration"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/persistence"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.AppConfig{Name: "catalogsync", Env: "test"},
		Database: config.DatabaseConfig{
			Driver:      "sqlite",
			DBName:      filepath.Join(t.TempDir(), "catalogsync.db"),
			AutoMigrate: true,
		},
		Log:  config.LogConfig{Level: "error", Format: "console"},
		Sync: config.SyncConfig{ItemInterval: time.Millisecond, Burst: 1},
	}
}

func runCLI(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(newCommandContext(func() (*config.Config, error) {
		copied := *cfg
		return &copied, nil
	}))
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func seedOutcome(t *testing.T, cfg *config.Config, outcome *integration.SyncOutcome) {
	t.Helper()
	db, err := persistence.NewDatabase(&cfg.Database)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.AutoMigrate())
	require.NoError(t, persistence.NewGormSyncOutcomeRepository(db.DB).Upsert(context.Background(), outcome))
}

func TestCLI_OutcomesLifecycle(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCLI(t, cfg, "outcomes", "list")
	require.NoError(t, err)
	var empty appintegration.OutcomeListResult
	require.NoError(t, json.Unmarshal([]byte(out), &empty))
	assert.Zero(t, empty.Total)

	seedOutcome(t, cfg, integration.NewFailedOutcome(&integration.ProductRecord{
		SourceID: "gid://shopify/Product/1",
		Handle:   "air-max",
		Title:    "Air Max",
	}, "brand missing", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)))

	out, err = runCLI(t, cfg, "outcomes", "list", "--status", "failed")
	require.NoError(t, err)
	var failed appintegration.OutcomeListResult
	require.NoError(t, json.Unmarshal([]byte(out), &failed))
	assert.Equal(t, int64(1), failed.Total)
	require.Len(t, failed.Items, 1)
	assert.Equal(t, "air-max", failed.Items[0].Handle)

	out, err = runCLI(t, cfg, "outcomes", "get", "gid://shopify/Product/1")
	require.NoError(t, err)
	assert.Contains(t, out, `"handle": "air-max"`)

	out, err = runCLI(t, cfg, "outcomes", "reset", "gid://shopify/Product/1")
	require.NoError(t, err)
	assert.Equal(t, "Reset outcome gid://shopify/Product/1\n", out)

	_, err = runCLI(t, cfg, "outcomes", "get", "gid://shopify/Product/1")
	assert.ErrorIs(t, err, integration.ErrOutcomeNotFound)
}

func TestCLI_OutcomesInvalidStatus(t *testing.T) {
	_, err := runCLI(t, testConfig(t), "outcomes", "list", "--status", "pending")
	assert.ErrorIs(t, err, integration.ErrOutcomeInvalidFilter)
}

func TestCLI_BatchRequiresCredentials(t *testing.T) {
	out, err := runCLI(t, testConfig(t), "batch", "--page-size", "5")
	assert.ErrorIs(t, err, integration.ErrPlatformNotConfigured)
	assert.Empty(t, out)
}

func TestCLI_RunReportsFailedJob(t *testing.T) {
	out, err := runCLI(t, testConfig(t), "run")
	require.ErrorIs(t, err, integration.ErrPlatformNotConfigured)

	var job map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "FAILED", job["status"])
}

func TestCLI_ReportNotFound(t *testing.T) {
	_, err := runCLI(t, testConfig(t), "report", "batch-1")
	assert.ErrorIs(t, err, appintegration.ErrReportNotFound)
}

func TestCLI_ArgumentValidation(t *testing.T) {
	_, err := runCLI(t, testConfig(t), "outcomes", "get")
	assert.ErrorContains(t, err, "accepts 1 arg")

	out, err := runCLI(t, testConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "outcomes")
}

func TestCLI_ConfigErrorIsReturned(t *testing.T) {
	cmd := newRootCommand(newCommandContext(func() (*config.Config, error) {
		return nil, assert.AnError
	}))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"outcomes", "list"})
	assert.ErrorIs(t, cmd.ExecuteContext(context.Background()), assert.AnError)
}
