package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkrogh/nightcharge/config"
	"github.com/mkrogh/nightcharge/core/charge"
	"github.com/mkrogh/nightcharge/core/pricing"
	"github.com/mkrogh/nightcharge/infra/nordpool"
)

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Fetch prices and print the decision without touching the vehicle",
	RunE:  decide,
}

func init() {
	rootCmd.AddCommand(decideCmd)
}

func decide(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	feed := nordpool.New(cfg.Feed.BaseURL)
	day := time.Now().UTC().Truncate(24 * time.Hour)
	today, err := feed.HourlyPrices(ctx, day, cfg.Feed.Area, cfg.Feed.Currency)
	if err != nil {
		return fmt.Errorf("today's prices: %w", err)
	}
	tomorrow, err := feed.HourlyPrices(ctx, day.AddDate(0, 0, 1), cfg.Feed.Area, cfg.Feed.Currency)
	if err != nil {
		return fmt.Errorf("tomorrow's prices: %w", err)
	}

	dec, err := pricing.Normalize(today, tomorrow)
	if err != nil {
		return err
	}
	target := charge.Target(dec, charge.Limits{
		CheapThreshold: cfg.Charge.CheapThreshold,
		MinPercent:     cfg.Charge.MinPercent,
		MaxPercent:     cfg.Charge.MaxPercent,
	})

	fmt.Printf("tonight's price: %.2f %s (%s)\n", dec.TonightPrice, cfg.Feed.Currency, cfg.Feed.Area)
	if dec.BetterPriceTomorrow {
		fmt.Println("tomorrow night is cheaper, holding back")
	}
	fmt.Printf("charge target: %d%%\n", target)
	return nil
}
