package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/catalogsync/backend/internal/infrastructure/config"
	"github.com/catalogsync/backend/internal/infrastructure/logger"
	"github.com/catalogsync/backend/internal/infrastructure/migration"
	"github.com/catalogsync/backend/migrations"
)

var errUsage = errors.New("invalid usage")

func main() {
	var (
		migrationsPath string
		logLevel       string
	)

	flag.StringVar(&migrationsPath, "path", "", "Read migrations from this directory instead of the embedded set")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	if err := run(flag.Args(), migrationsPath, config.Load, os.Stdout, log); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		log.Error("Migration command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(args []string, migrationsPath string, loadConfig func() (*config.Config, error), out io.Writer, log *zap.Logger) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: command required", errUsage)
	}
	command := args[0]

	// create and list only touch the directory
	switch command {
	case "create":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: migrate create <name> [description]", errUsage)
		}
		if migrationsPath == "" {
			migrationsPath = "migrations"
		}
		description := ""
		if len(args) > 2 {
			description = args[2]
		}
		mf, err := migration.CreateMigration(migrationsPath, args[1], description, time.Now())
		if err != nil {
			return err
		}
		log.Info("Migration created",
			zap.String("version", mf.Version),
			zap.String("up_file", mf.UpPath),
			zap.String("down_file", mf.DownPath),
		)
		return nil

	case "list":
		if migrationsPath == "" {
			migrationsPath = "migrations"
		}
		names, err := migration.ListMigrations(migrationsPath)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := openDatabase(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	var m *migration.Migrator
	if migrationsPath != "" {
		m, err = migration.NewFromDir(db, cfg.Database.Driver, migrationsPath, log)
	} else {
		m, err = migration.New(db, cfg.Database.Driver, migrations.FS, log)
	}
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		return m.Up()

	case "down":
		return m.Down()

	case "step":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: migrate step <n>", errUsage)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid step count %q", errUsage, args[1])
		}
		return m.Steps(n)

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return nil

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: usage: migrate force <version>", errUsage)
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid version %q", errUsage, args[1])
		}
		return m.Force(version)

	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func openDatabase(cfg *config.DatabaseConfig) (*sql.DB, error) {
	driverName := "postgres"
	if cfg.Driver == "sqlite" {
		driverName = "sqlite3"
	}
	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Catalog sync database migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (positive=up, negative=down)
  version               Show current migration version
  force <version>       Force set migration version (repairs a dirty state)
  create <name> [desc]  Create a new migration file pair
  list                  List migrations in the directory

Flags:
  -path string          Migrations directory (default: embedded set; ./migrations for create and list)
  -log-level string     Log level: debug, info, warn, error (default: info)

The database is taken from the service configuration
(config.toml or CATALOGSYNC_DATABASE_* environment variables).`)
}
