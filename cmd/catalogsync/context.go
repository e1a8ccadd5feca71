package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/bootstrap"
	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
)

type commandContext struct {
	loadConfig func() (*config.Config, error)
	logLevel   string
}

// newCommandContext uses config.Load when load is nil
func newCommandContext(load func() (*config.Config, error)) *commandContext {
	if load == nil {
		load = config.Load
	}
	return &commandContext{loadConfig: load}
}

// withApp wires the pipeline for one command and releases it afterwards
func (c *commandContext) withApp(ctx context.Context, fn func(*bootstrap.App) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if level := strings.TrimSpace(c.logLevel); level != "" {
		cfg.Log.Level = level
	}

	// stdout carries command output
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: "stderr",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			log.Warn("Error releasing resources", zap.Error(err))
		}
	}()
	return fn(app)
}
