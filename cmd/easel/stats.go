package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/alejandrodnm/easel/internal/adapters/notify"
	"github.com/alejandrodnm/easel/internal/application/learning"
	"github.com/spf13/cobra"
)

func newStatsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print win-rate and average return per asset from the trade ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := learning.NewService(st.db, adaptiveGate(cfg)).AllStats(cmd.Context())
			if err != nil {
				return err
			}
			notify.NewConsole(true, 0).PrintStats(stats)
			return nil
		},
	}
}

func newSettleCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <trade-id> <outcome>",
		Short: "Record the realized outcome of a ledger trade (positive = win)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("trade id %q: %w", args[0], err)
			}
			outcome, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("outcome %q: %w", args[1], err)
			}

			cfg, err := ro.load()
			if err != nil {
				return err
			}
			st, err := openStores(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := learning.NewService(st.db, adaptiveGate(cfg)).UpdateOutcome(cmd.Context(), id, outcome); err != nil {
				return err
			}
			slog.Info("trade settled", "id", id, "outcome", outcome)
			return nil
		},
	}
}
