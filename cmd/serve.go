package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/contractlink/contract-hub/internal/api"
	"github.com/contractlink/contract-hub/internal/enrich"
	"github.com/contractlink/contract-hub/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the daily enrichment loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(ctx); err != nil {
			return err
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.NewServer(env.Store, env.Gate, env.Scheduler).Handler(),
		}

		g, gCtx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		g.Go(func() error {
			runDailyLoop(gCtx, env.Scheduler)
			return nil
		})

		return g.Wait()
	},
}

// runDailyLoop fires a daily enrichment batch until the context ends.
func runDailyLoop(ctx context.Context, scheduler *enrich.Scheduler) {
	interval := time.Duration(cfg.Enrich.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run, err := scheduler.Run(ctx, model.TriggerDaily, 0)
			if err != nil {
				zap.L().Warn("daily enrichment run skipped", zap.Error(err))
				continue
			}
			zap.L().Info("daily enrichment run complete",
				zap.Int64("run_id", run.ID),
				zap.Int("filled", run.Filled),
				zap.Int("skipped", run.Skipped),
				zap.Int("failed", run.Failed),
			)
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
