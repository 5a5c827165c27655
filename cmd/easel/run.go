package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/alejandrodnm/easel/config"
	"github.com/alejandrodnm/easel/internal/adapters/coingecko"
	"github.com/alejandrodnm/easel/internal/adapters/gaia"
	"github.com/alejandrodnm/easel/internal/adapters/journal"
	"github.com/alejandrodnm/easel/internal/adapters/notify"
	"github.com/alejandrodnm/easel/internal/adapters/recall"
	"github.com/alejandrodnm/easel/internal/application/engine"
	"github.com/alejandrodnm/easel/internal/application/history"
	"github.com/alejandrodnm/easel/internal/application/learning"
	"github.com/alejandrodnm/easel/internal/application/limits"
	"github.com/alejandrodnm/easel/internal/application/scheduler"
	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
	"github.com/alejandrodnm/easel/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(ro *rootOptions) *cobra.Command {
	var (
		once  bool
		table bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run trade cycles and the daily counter reset until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ro.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, once, table)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run one trade cycle and exit")
	cmd.Flags().BoolVar(&table, "table", false, "print the full ranking table after each cycle")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, once, table bool) error {
	shutdown, err := telemetry.Init(telemetry.Config{Enabled: cfg.Tracing.Enabled, Pretty: cfg.Tracing.Pretty})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			slog.Warn("tracer shutdown failed", "err", err)
		}
	}()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	journalFile, err := journal.NewFile(cfg.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	recallClient := recall.NewClient(cfg.Recall.BaseURL, cfg.Recall.APIKey)

	var market ports.MarketDataProvider = coingecko.NewProvider(coingecko.Config{
		BaseURL:    cfg.Market.BaseURL,
		APIKey:     cfg.Market.APIKey,
		VsCurrency: cfg.Market.VsCurrency,
		IDs:        cfg.Market.IDs,
		Category:   cfg.Market.Category,
		PerPage:    cfg.Market.PerPage,
	})
	if cfg.Market.OnChain {
		market = recall.NewOnChainEnricher(market, recallClient, cfg.Recall.Chain, cfg.Recall.SpecificChain)
	}

	oracle := gaia.NewOracle(gaia.Config{
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
		MaxTokens:   cfg.Oracle.MaxTokens,
		Timeout:     cfg.OracleTimeout(),
	})

	seed := cfg.Agent.NarrativeSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	narrator := domain.NewNarrator(rand.New(rand.NewSource(seed)))

	limiter := limits.NewController(st.counters, limitPolicy(cfg))

	orch := engine.New(engine.Config{
		Interval:            cfg.CycleInterval(),
		TopN:                cfg.Agent.TopN,
		CounterAsset:        cfg.Agent.CounterAsset,
		ConfidenceThreshold: cfg.Confidence(),
		EcosystemSummary:    cfg.Agent.EcosystemSummary,
		SlippageTolerance:   cfg.Recall.SlippageTolerance,
		Routing: domain.ChainRouting{
			FromChain:         cfg.Recall.Chain,
			FromSpecificChain: cfg.Recall.SpecificChain,
			ToChain:           cfg.Recall.Chain,
			ToSpecificChain:   cfg.Recall.SpecificChain,
		},
		CallTimeout: cfg.CallTimeout(),
	}, engine.Deps{
		Market:    market,
		Oracle:    oracle,
		Portfolio: recallClient,
		Executor:  recallClient,
		History:   history.NewTracker(st.history, narrator),
		Limits:    limiter,
		Learning:  learning.NewService(st.db, adaptiveGate(cfg)),
		Journal:   journalFile,
		Notifier:  notify.NewConsole(table, cfg.Agent.TopN),
	})

	slog.Info("easel starting",
		"interval", cfg.CycleInterval(),
		"storage", cfg.Storage.Driver,
		"journal", journalFile.Path(),
		"once", once,
	)

	if once {
		_, err := orch.RunOnce(ctx)
		return err
	}

	resetter := scheduler.NewDailyReset(limiter, cfg.Risk.MinTradesPerDay)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return orch.Run(gctx) })
	g.Go(func() error { return resetter.Run(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("easel stopped cleanly")
	return nil
}
