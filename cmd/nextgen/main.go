// Package main is the entry point for nextgen. The root command wires
// configuration, PostgreSQL, Valkey and S3 storage together and dispatches
// to the serve, migrate, seed, autolike and assets subcommands.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/pavuchara/nextgen/internal/blog"
	"github.com/pavuchara/nextgen/internal/config"
	"github.com/pavuchara/nextgen/internal/database"
	"github.com/pavuchara/nextgen/internal/queue"
	"github.com/pavuchara/nextgen/internal/storage"
	"github.com/pavuchara/nextgen/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "nextgen",
	Short:         "nextgen blog content service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, autolikeCmd, assetsCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogger installs the default slog logger: text at debug level in
// development, JSON at info level otherwise.
func setupLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

// app holds the connections shared by the subcommands. Optional
// dependencies stay nil when the command does not need them or they are
// not configured.
type app struct {
	cfg     *config.Config
	db      *sql.DB
	valkey  *redis.Client
	storage *storage.Client
	assets  *queue.AssetQueue
}

// needs selects which connections open() establishes.
type needs struct {
	valkey  bool
	storage bool
}

func open(n needs) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	setupLogger(cfg)
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	a := &app{cfg: cfg}
	a.db, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if n.valkey {
		a.valkey, err = queue.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect valkey: %w", err)
		}
		a.assets = queue.NewAssetQueue(a.valkey, cfg.AssetQueueKey)
	}

	if n.storage {
		a.storage, err = storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect storage: %w", err)
		}
		if a.storage == nil {
			slog.Warn("s3 storage not configured, asset cleanup disabled")
		} else {
			slog.Info("s3 storage connected", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.valkey != nil {
		a.valkey.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

// service builds the content repository on top of the PostgreSQL stores.
func (a *app) service() *blog.Service {
	d := blog.Deps{
		Users:           store.NewUserStore(a.db),
		Categories:      store.NewCategoryStore(a.db),
		Posts:           store.NewPostStore(a.db),
		Comments:        store.NewCommentStore(a.db),
		Ratings:         store.NewRatingStore(a.db),
		MaxSlugAttempts: a.cfg.SlugMaxAttempts,
	}
	// A nil *AssetQueue must not become a non-nil interface.
	if a.assets != nil {
		d.Assets = a.assets
	}
	return blog.New(d)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(needs{})
		if err != nil {
			return err
		}
		defer a.close()
		return database.Migrate(a.db)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the development admin account if no user exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := open(needs{})
		if err != nil {
			return err
		}
		defer a.close()
		if err := database.Migrate(a.db); err != nil {
			return err
		}
		return database.Seed(a.db)
	},
}
