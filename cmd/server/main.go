package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mindora/relay-server/internal/app"
	"github.com/mindora/relay-server/internal/config"
	"github.com/mindora/relay-server/internal/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		logLevel   string
	)

	serve := func(cmd *cobra.Command, _ []string) error {
		// Load local .env (dev only)
		_ = godotenv.Load()

		bootLogger := log.New("info", "console")
		cfg, path, err := config.Load(bootLogger, configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cmd.Flags().Changed("addr") {
			cfg.Addr = addr
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger := log.New(cfg.LogLevel, cfg.LogFormat)
		logger.Info().Str("config", path).Msg("configuration loaded")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, &cfg, logger)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}

		if err := application.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("server exited with error")
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	}

	root := &cobra.Command{
		Use:           "mindora-relay",
		Short:         "Realtime room relay for Mindora study rooms",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE:  serve,
	})
	return root
}
