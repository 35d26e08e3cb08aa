package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	dbembed "github.com/chenghaoran14237-lgtm/bytebase-login-demo/db"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/postgres"
)

const (
	defaultMigrationsDir = "db/migrations"
	defaultSeedersDir    = "db/seeders"
	commandTimeout       = 5 * time.Minute
	dumpTimeout          = 10 * time.Minute
)

func main() {
	logger.Init(logger.Config{Env: "development", Level: "info", ServiceName: "usermirror-cli"})
	defer logger.Sync() //nolint:errcheck

	if err := newRootCmd().Execute(); err != nil {
		logger.L().Error("command failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "usermirror",
		Short:         "Database and identity tooling for the user mirror service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newMigrateCmd(),
		newSeedCmd(),
		newFreshCmd(),
		newDumpCmd(),
		newVerifyCmd(),
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending SQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrate(ctx, pool, dir)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			report("migrate", applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "path", defaultMigrationsDir, "directory containing .sql migrations (overrides embedded bundle)")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply pending SQL seeders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			_, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := seed(ctx, pool, dir)
			if err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			report("seed", applied)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "path", defaultSeedersDir, "directory containing .sql seeders (overrides embedded bundle)")
	return cmd
}

func newFreshCmd() *cobra.Command {
	var (
		migrationsDir string
		seedersDir    string
		withSeed      bool
	)
	cmd := &cobra.Command{
		Use:   "fresh",
		Short: "Drop the public schema and re-run migrations (development only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cfg.AppEnv != "development" {
				return fmt.Errorf("fresh: APP_ENV must be development (got %q)", cfg.AppEnv)
			}
			pool, err := postgres.Connect(ctx, cfg.Database)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()

			if err := postgres.ResetSchema(ctx, pool); err != nil {
				return fmt.Errorf("fresh: %w", err)
			}
			applied, err := migrate(ctx, pool, migrationsDir)
			if err != nil {
				return fmt.Errorf("fresh: %w", err)
			}
			report("fresh", applied)

			if !withSeed {
				return nil
			}
			seeded, err := seed(ctx, pool, seedersDir)
			if err != nil {
				return fmt.Errorf("fresh: %w", err)
			}
			report("fresh seed", seeded)
			return nil
		},
	}
	cmd.Flags().StringVar(&migrationsDir, "path", defaultMigrationsDir, "directory containing .sql migrations (overrides embedded bundle)")
	cmd.Flags().BoolVar(&withSeed, "seed", false, "apply seed files after migrations")
	cmd.Flags().StringVar(&seedersDir, "seed-path", defaultSeedersDir, "directory containing .sql seeders (overrides embedded bundle)")
	return cmd
}

func newDumpCmd() *cobra.Command {
	var (
		out        string
		schemaOnly bool
		dataOnly   bool
		binary     string
	)
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Write a plain SQL dump of the database with pg_dump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaOnly && dataOnly {
				return errors.New("dump: choose only one of --schema-only or --data-only")
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
				return fmt.Errorf("dump: mkdir output dir: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), dumpTimeout)
			defer cancel()

			pgArgs := dumpArgs(cfg.Database.URL, out, schemaOnly, dataOnly)
			c := exec.CommandContext(ctx, binary, pgArgs...)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr

			logger.L().Info("dump: running", zap.String("bin", binary), zap.String("out", out))
			if err := c.Run(); err != nil {
				return fmt.Errorf("dump: %w", err)
			}
			logger.L().Info("dump written", zap.String("out", out))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", defaultDumpPath(), "output file path")
	cmd.Flags().BoolVar(&schemaOnly, "schema-only", false, "dump schema only")
	cmd.Flags().BoolVar(&dataOnly, "data-only", false, "dump data only")
	cmd.Flags().StringVar(&binary, "pg-dump-bin", "pg_dump", "pg_dump binary path")
	return cmd
}

func connect(ctx context.Context) (config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("database: %w", err)
	}
	return cfg, pool, nil
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dir string) ([]string, error) {
	useEmbedded, err := shouldUseEmbedded(dir, defaultMigrationsDir)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureTable(ctx, pool); err != nil {
		return nil, err
	}
	if !useEmbedded {
		return postgres.Apply(ctx, pool, dir)
	}
	fsys, err := fs.Sub(dbembed.Migrations, "migrations")
	if err != nil {
		return nil, err
	}
	return postgres.ApplyFS(ctx, pool, fsys)
}

func seed(ctx context.Context, pool *pgxpool.Pool, dir string) ([]string, error) {
	useEmbedded, err := shouldUseEmbedded(dir, defaultSeedersDir)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSeedTable(ctx, pool); err != nil {
		return nil, err
	}
	if !useEmbedded {
		return postgres.Seed(ctx, pool, dir)
	}
	fsys, err := fs.Sub(dbembed.Seeders, "seeders")
	if err != nil {
		return nil, err
	}
	return postgres.SeedFS(ctx, pool, fsys)
}

func report(step string, applied []string) {
	log := logger.Named("db")
	if len(applied) == 0 {
		log.Info(step + ": nothing to apply")
		return
	}
	for _, name := range applied {
		log.Info(step+": applied", zap.String("file", name))
	}
}

func dumpArgs(dbURL, out string, schemaOnly, dataOnly bool) []string {
	args := []string{
		"--dbname", dbURL,
		"--format=plain",
		"--no-owner",
		"--no-privileges",
		"--file", out,
	}
	if schemaOnly {
		args = append(args, "--schema-only")
	}
	if dataOnly {
		args = append(args, "--data-only")
	}
	return args
}

func defaultDumpPath() string {
	return filepath.Join("tmp", "dump-"+time.Now().Format("20060102-150405")+".sql")
}

func shouldUseEmbedded(path, defaultPath string) (bool, error) {
	if path == "" {
		return true, nil
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if !info.IsDir() {
			return false, fmt.Errorf("path %q is not a directory", path)
		}
		return false, nil
	case errors.Is(err, os.ErrNotExist):
		if path == defaultPath {
			return true, nil
		}
		return false, fmt.Errorf("path %q not found", path)
	default:
		return false, fmt.Errorf("stat path %q: %w", path, err)
	}
}
