package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd runs a research session when invoked without a subcommand
var rootCmd = &cobra.Command{
	Use:           "matter-bench",
	Short:         "Matter protocol OSI overhead research data generator",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSession,
}

// Execute runs the command tree and exits non-zero on failure
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn().Msg("Interrupted")
			return
		}
		stop()
		log.Fatal().Err(err).Msg("matter-bench failed")
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file (JSON, YAML or TOML)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: trace, debug, info, warn, error (env LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format: 'json' or 'console'")

	addRunFlags(rootCmd)
}
