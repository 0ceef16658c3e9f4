package cmd

import (
	"os/signal"
	"syscall"

	"stocksearch/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the search server",
	Long:  `Serves /healthz, /stocks and /ws until SIGINT or SIGTERM.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	log.Info("stocksearch starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("cache", cfg.Cache.Driver),
		zap.String("endpoint", cfg.Stocks.Endpoint),
	)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("stocksearch stopped")
	return nil
}
