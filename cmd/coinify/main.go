package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/coinify-go/internal/app"
	"github.com/samvad-hq/coinify-go/internal/config"
	"github.com/samvad-hq/coinify-go/internal/logger"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "coinify: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() { _ = logger.Close() }()

	return newRootCmd().ExecuteContext(ctx)
}

// env carries what every subcommand needs after PersistentPreRunE.
type env struct {
	cfg *config.Config
	log logger.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	var output string

	root := &cobra.Command{
		Use:           "coinify",
		Short:         "Coinify merchant API client",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if output != "" {
				if cfg.OutputFormat, err = config.ValidateOutputFormat(output); err != nil {
					return err
				}
			}
			log, err := logger.Init(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			log.DebugObj("coinify cli starting", "config", cfg.Redacted())
			e.cfg, e.log = cfg, log
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&output, "output", "o", "", "output format: json or yaml (overrides OUTPUT_FORMAT)")

	root.AddCommand(newInvoicesCmd(e))
	return root
}
