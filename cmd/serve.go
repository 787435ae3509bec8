package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmehdipour/salon-campaigns/internal/app"
	httpSrv "github.com/jmehdipour/salon-campaigns/internal/http"
	"github.com/jmehdipour/salon-campaigns/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.Bootstrap(cfgPath)
		if err != nil {
			return err
		}
		defer func() { _ = logger.Log.Sync() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		mysqlDB, err := app.MySQL(ctx, cfg)
		if err != nil {
			return err
		}
		defer mysqlDB.Close()

		redisClient, err := app.Redis(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()

		chDB, err := app.ClickHouse(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = chDB.Close()
		}()

		gen, err := app.Generator(ctx, cfg)
		if err != nil {
			return err
		}

		server := httpSrv.NewServer(cfg, mysqlDB, chDB, redisClient, gen)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				logger.Log.Error("http server exited", zap.Error(err))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)

		return nil
	},
}
