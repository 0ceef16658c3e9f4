// Package cmd holds the stocksearch CLI commands.
package cmd

import (
	"fmt"

	"stocksearch/config"
	"stocksearch/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stocksearch",
	Short: "Debounced stock search with a local TTL cache",
	Long: `stocksearch fetches a stock list from a JSON endpoint, caches it locally
for five minutes and answers ticker/name searches from the cache.

Commands:
    serve      HTTP + WebSocket search server
    search     one-shot search printed as a table
    watch      interactive search against a running server
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(watchCmd)
}

// initConfig loads viper config and builds the zap logger.
func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err = logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	return nil
}
