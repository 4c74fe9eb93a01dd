package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/flowimport/internal/config"
	"github.com/JonMunkholm/flowimport/internal/core"
	"github.com/JonMunkholm/flowimport/internal/d0010"
	"github.com/JonMunkholm/flowimport/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands once configuration is loaded.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "flowimport",
		Short:         "Import D0010 meter reading flow files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	root.AddCommand(
		newImportCmd(a),
		newMigrateCmd(a),
		newServeCmd(a),
	)

	return root
}

// loadConfig reads .env (if present), then the environment, and sets up logging.
func (a *app) loadConfig() error {
	// Overload lets a local .env win over inherited variables.
	envErr := godotenv.Overload()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if envErr != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	return nil
}

// openPool connects to PostgreSQL with the configured pool settings.
func (a *app) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(a.cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(a.cfg.Database.MaxConns)
	poolConfig.MinConns = int32(a.cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = a.cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = a.cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &core.StorageError{Op: "ping", Err: err}
	}

	if u, err := url.Parse(a.cfg.Database.URL); err == nil {
		slog.Debug("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	return pool, nil
}

// serviceOptions translates import settings into core options.
func (a *app) serviceOptions(extra ...core.ServiceOption) ([]core.ServiceOption, error) {
	loc, err := d0010.LoadLocation(a.cfg.Import.Timezone)
	if err != nil {
		return nil, err
	}

	parser := d0010.NewParser(
		d0010.WithLocation(loc),
		d0010.WithStrictControlRecords(a.cfg.Import.StrictControlRecords),
	)

	opts := []core.ServiceOption{
		core.WithParser(parser),
		core.WithMaxFileSize(a.cfg.Import.MaxFileSize),
	}
	return append(opts, extra...), nil
}
