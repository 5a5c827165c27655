package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/easel/config"
	"github.com/spf13/cobra"
)

// rootOptions son los flags compartidos por todos los subcomandos.
type rootOptions struct {
	configPath string
	verbose    bool
	logFormat  string
}

// load carga la config y configura el logger global.
func (ro *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, err
	}
	if ro.verbose {
		cfg.Log.Level = "debug"
	}
	if ro.logFormat != "" {
		cfg.Log.Format = ro.logFormat
	}
	setupLogger(cfg.Log)
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "easel",
		Short:         "Narrative-driven trading agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&ro.configPath, "config", "config/config.yaml", "path to config file")
	cmd.PersistentFlags().BoolVar(&ro.verbose, "verbose", false, "set log level to debug")
	cmd.PersistentFlags().StringVar(&ro.logFormat, "format", "", "log format: text|json (overrides config)")

	cmd.AddCommand(
		newRunCmd(ro),
		newStatsCmd(ro),
		newSettleCmd(ro),
		newCountsCmd(ro),
		newResetCmd(ro),
	)
	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("easel exited with error", "err", err)
		cancel()
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
