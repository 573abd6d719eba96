package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkrogh/nightcharge/app"
	"github.com/mkrogh/nightcharge/config"
	"github.com/mkrogh/nightcharge/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "nightcharge",
	Short: "Set the car's charge limit from tonight's spot price",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (optional, env vars apply on top)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	// A wake timeout or an active trip mode are expected outcomes of a
	// scheduled job; a later run retries. Run returns them with a nil
	// error, so the process exits zero.
	_, err = svc.Run(ctx)
	return err
}
