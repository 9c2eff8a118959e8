package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pavuchara/nextgen/internal/autolike"
	"github.com/pavuchara/nextgen/internal/database"
	"github.com/pavuchara/nextgen/internal/router"
)

const (
	shutdownTimeout = 30 * time.Second
	drainWait       = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ops listener, the asset cleanup worker and the autolike job",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	a, err := open(needs{valkey: true, storage: true})
	if err != nil {
		return err
	}
	defer a.close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}
	// Seed development data (no-op if a user already exists).
	if a.cfg.IsDev() {
		if err := database.Seed(a.db); err != nil {
			return err
		}
	}

	svc := a.service()

	srv := &http.Server{
		Addr: a.cfg.Addr(),
		Handler: router.New(map[string]router.Check{
			"postgres": a.db.PingContext,
			"valkey": func(ctx context.Context) error {
				return a.valkey.Ping(ctx).Err()
			},
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.storage != nil {
		g.Go(func() error {
			return a.assets.Drain(ctx, a.storage, drainWait)
		})
	}

	if a.cfg.AutolikeInterval > 0 {
		runner := autolike.NewRunner(svc, a.cfg.AutolikeInterval)
		g.Go(func() error {
			return runner.Run(ctx)
		})
	} else {
		slog.Info("autolike disabled")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}
