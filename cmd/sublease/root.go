package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/sublease-marketplace/internal/config"
	"github.com/example/sublease-marketplace/internal/logging"
)

// runtime is populated by the root command before any subcommand runs.
type runtime struct {
	cfg    config.Config
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	rt := &runtime{}
	var (
		port     int
		logLevel string
	)

	root := &cobra.Command{
		Use:           "sublease",
		Short:         "Student sublease marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				slog.Default().Error("failed to load configuration", "error", err)
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			rt.cfg = cfg
			rt.logger = logging.New(os.Stdout, cfg.LogLevel)
			slog.SetDefault(rt.logger)
			return nil
		},
	}

	root.PersistentFlags().IntVar(&port, "port", 0, "HTTP port (overrides SUBLEASE_HTTP_PORT)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides SUBLEASE_LOG_LEVEL)")

	root.AddCommand(serveCommand(rt), migrateCommand(rt))
	return root
}
