package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/easel/internal/adapters/notify"
	"github.com/alejandrodnm/easel/internal/application/limits"
	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/spf13/cobra"
)

// dateArg devuelve la fecha pedida o la de hoy en UTC.
func dateArg(args []string) (string, error) {
	if len(args) == 0 {
		return domain.DateKey(time.Now()), nil
	}
	if _, err := time.Parse(domain.DateLayout, args[0]); err != nil {
		return "", fmt.Errorf("date %q: want YYYY-MM-DD", args[0])
	}
	return args[0], nil
}

func newCountsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counts [YYYY-MM-DD]",
		Short: "Print the trade counters of a UTC day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
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

			ctrl := limits.NewController(st.counters, limitPolicy(cfg))
			counts, err := ctrl.GetCounts(cmd.Context(), date)
			if err != nil {
				return err
			}
			notify.NewConsole(true, 0).PrintCounts(date, counts, ctrl.Policy())
			return nil
		},
	}
}

func newResetCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [YYYY-MM-DD]",
		Short: "Reset the trade counters of a UTC day (default today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := dateArg(args)
			if err != nil {
				return err
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

			if err := limits.NewController(st.counters, limitPolicy(cfg)).Reset(cmd.Context(), date); err != nil {
				return err
			}
			slog.Info("counters reset", "date", date)
			return nil
		},
	}
}
