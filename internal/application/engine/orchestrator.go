// Package engine runs the trade cycle: score, narrate, ask the oracle, gate,
// execute and record.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
	"github.com/alejandrodnm/easel/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultTopN          = 3
	DefaultCounterAsset  = "USDC"
	DefaultSlippage      = "0.5"
	defaultCallTimeout   = 60 * time.Second
	defaultCycleInterval = 60 * time.Minute
)

// HistoryTracker is the subset of history.Tracker the orchestrator uses.
type HistoryTracker interface {
	Record(ctx context.Context, symbol string, ts time.Time, price, volume float64) error
	Narrate(ctx context.Context, symbol string, onChainPresent bool) (string, error)
}

// LimitController is the subset of limits.Controller the orchestrator uses.
type LimitController interface {
	Allow(ctx context.Context, date, symbol string) (domain.LimitVerdict, error)
	Increment(ctx context.Context, date, symbol string) (domain.DayCounters, error)
}

// LearningService is the subset of learning.Service the orchestrator uses.
type LearningService interface {
	Stats(ctx context.Context, asset string) (domain.AssetStats, error)
	ShouldSkip(stats domain.AssetStats) bool
	RecordTrade(ctx context.Context, asset string, action domain.Action, amount float64, reasoning string, outcome *float64) (int64, error)
}

// Config holds the orchestrator settings.
type Config struct {
	Interval            time.Duration // sleep between cycles
	TopN                int           // assets narrated into the prompt
	CounterAsset        string        // Buy: counter → target, Sell: target → counter
	ConfidenceThreshold float64       // 0 disables the gate
	EcosystemSummary    string
	SlippageTolerance   string
	Routing             domain.ChainRouting
	CallTimeout         time.Duration // per collaborator call
}

// Deps are the collaborators injected from cmd/.
type Deps struct {
	Market    ports.MarketDataProvider
	Oracle    ports.DecisionOracle
	Portfolio ports.PortfolioProvider
	Executor  ports.TradeExecutor
	History   HistoryTracker
	Limits    LimitController
	Learning  LearningService
	Journal   ports.Journal
	Notifier  ports.Notifier // optional
}

// CycleResult contains everything produced by one cycle.
type CycleResult struct {
	CycleID   string
	StartedAt time.Time
	Stage     domain.Stage
	Ranked    []domain.ScoredAsset
	Prompt    string
	Decision  domain.Decision
	Target    domain.PortfolioToken
	Stats     domain.AssetStats
	Verdict   domain.LimitVerdict
	Execution *domain.ExecutionResult
	TradeID   int64
	Counters  domain.DayCounters
	Outcome   string
	Skip      error         // domain sentinel when a gate stopped the cycle
	Duration  time.Duration // measured on the orchestrator clock
}

// Orchestrator runs trade cycles.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	now   func() time.Time
	newID func() string
}

// New creates an Orchestrator, filling config defaults.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultCycleInterval
	}
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultTopN
	}
	if cfg.CounterAsset == "" {
		cfg.CounterAsset = DefaultCounterAsset
	}
	if cfg.SlippageTolerance == "" {
		cfg.SlippageTolerance = DefaultSlippage
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Orchestrator{cfg: cfg, deps: deps, now: time.Now, newID: uuid.NewString}
}

// WithClock replaces the clock (tests).
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// Run executes cycles until ctx is cancelled, sleeping cfg.Interval between them.
// Cycle errors are logged and never stop the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	slog.Info("orchestrator starting",
		"interval", o.cfg.Interval,
		"top_n", o.cfg.TopN,
		"counter_asset", o.cfg.CounterAsset,
	)

	for {
		if _, err := o.RunOnce(ctx); err != nil {
			slog.Error("trade cycle failed", "err", err)
		}

		timer := time.NewTimer(o.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("orchestrator stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce executes a single cycle. Gate trips and Hold decisions are not
// errors; the returned error is non-nil only when a collaborator failed.
func (o *Orchestrator) RunOnce(ctx context.Context) (*CycleResult, error) {
	res := &CycleResult{CycleID: o.newID(), StartedAt: o.now().UTC()}

	ctx, span := telemetry.StartSpan(ctx, "trade_cycle")
	span.SetAttributes(attribute.String("cycle_id", res.CycleID))
	defer span.End()

	log := slog.With("cycle_id", res.CycleID)
	if traceID, _, ok := telemetry.TraceFields(ctx); ok {
		log = log.With("trace_id", traceID)
	}

	err := o.cycle(ctx, log, res)
	if err != nil {
		res.Outcome = "error: " + err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(
		attribute.String("stage", string(res.Stage)),
		attribute.String("outcome", res.Outcome),
	)

	res.Duration = o.now().Sub(res.StartedAt)
	o.notify(ctx, log, res)
	log.Info("trade cycle complete",
		"stage", res.Stage,
		"outcome", res.Outcome,
		"duration", res.Duration.Round(time.Millisecond),
	)
	return res, err
}

func (o *Orchestrator) cycle(ctx context.Context, log *slog.Logger, res *CycleResult) error {
	// --- Scoring ---
	res.Stage = domain.StageScoring
	var snaps []domain.AssetSnapshot
	err := o.call(ctx, "market.fetch_snapshots", func(ctx context.Context) error {
		var err error
		snaps, err = o.deps.Market.FetchSnapshots(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("engine.RunOnce: fetch snapshots: %w", err)
	}
	res.Ranked = domain.RankAssets(snaps)
	if len(res.Ranked) == 0 {
		res.Outcome = "no market data"
		log.Info("no assets to score")
		return nil
	}

	// --- Decision ---
	top := domain.TopN(res.Ranked, o.cfg.TopN)
	narrated := o.narrate(ctx, log, top, res.StartedAt)
	res.Prompt = BuildPrompt(o.cfg.EcosystemSummary, res.StartedAt, narrated)

	res.Stage = domain.StageDecisionRequested
	err = o.call(ctx, "oracle.decide", func(ctx context.Context) error {
		var err error
		res.Decision, err = o.deps.Oracle.Decide(ctx, res.Prompt)
		return err
	})
	if err != nil {
		return fmt.Errorf("engine.RunOnce: oracle: %w", err)
	}
	res.Stage = domain.StageDecisionReceived
	d := res.Decision

	if !d.Action.Trades() {
		res.Outcome = "hold"
		log.Info("oracle decided to hold", "reason", d.Reason, "degraded", d.Degraded)
		return nil
	}
	log.Info("oracle decision", "action", d.Action, "asset", d.Asset, "amount", d.Amount)

	// --- Asset resolution ---
	res.Stage = domain.StageAssetResolution
	var tokens []domain.PortfolioToken
	err = o.call(ctx, "portfolio.fetch_tokens", func(ctx context.Context) error {
		var err error
		tokens, err = o.deps.Portfolio.FetchTokens(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("engine.RunOnce: portfolio: %w", err)
	}
	target, err := domain.ResolveAsset(d.Asset, tokens)
	if err != nil {
		return o.skip(log, res, err, "asset", d.Asset)
	}
	counter, err := domain.ResolveAsset(o.cfg.CounterAsset, tokens)
	if err != nil {
		return o.skip(log, res, err, "counter_asset", o.cfg.CounterAsset)
	}
	res.Target = target
	if target.TradableID == counter.TradableID {
		return o.skip(log, res, domain.ErrCounterAssetTarget, "asset", target.Symbol, "counter_asset", counter.Symbol)
	}

	// --- Learning gate ---
	res.Stage = domain.StageLearningGate
	res.Stats, err = o.deps.Learning.Stats(ctx, target.Symbol)
	if err != nil {
		return fmt.Errorf("engine.RunOnce: learning stats: %w", err)
	}
	if o.deps.Learning.ShouldSkip(res.Stats) {
		winRate := 0.0
		if res.Stats.WinRate != nil {
			winRate = *res.Stats.WinRate
		}
		return o.skip(log, res, domain.ErrAdaptiveSkip, "asset", target.Symbol, "win_rate", winRate, "trades", res.Stats.Count)
	}

	// --- Confidence gate ---
	res.Stage = domain.StageConfidenceGate
	if d.Confidence != nil && *d.Confidence < o.cfg.ConfidenceThreshold {
		return o.skip(log, res, domain.ErrLowConfidence, "confidence", *d.Confidence, "threshold", o.cfg.ConfidenceThreshold)
	}

	// --- Limit gate ---
	res.Stage = domain.StageLimitGate
	date := domain.DateKey(res.StartedAt)
	res.Verdict, err = o.deps.Limits.Allow(ctx, date, target.Symbol)
	if err != nil {
		return fmt.Errorf("engine.RunOnce: limits: %w", err)
	}
	if !res.Verdict.Allowed {
		return o.skip(log, res, domain.ErrLimitExceeded,
			"asset", target.Symbol, "blocked_by", res.Verdict.BlockedBy,
			"overall", res.Verdict.Overall, "asset_count", res.Verdict.AssetCount)
	}

	// --- Execution ---
	res.Stage = domain.StageExecution
	req := o.executionRequest(d, target, counter)
	var result domain.ExecutionResult
	err = o.call(ctx, "executor.execute", func(ctx context.Context) error {
		var err error
		result, err = o.deps.Executor.Execute(ctx, req)
		return err
	})
	if err != nil {
		return fmt.Errorf("engine.RunOnce: execute: %w", err)
	}
	res.Execution = &result
	res.Outcome = result.Status()
	log.Info("trade submitted",
		"status", result.Status(),
		"tx_id", result.TxID,
		"error", result.Error,
		"raw", result.Raw,
	)

	// --- Recording ---
	// The trade already happened: the three writes run even if ctx is cancelled.
	res.Stage = domain.StageRecording
	o.record(context.WithoutCancel(ctx), log, res, date)
	return nil
}

// narrate records the current observation of each top asset and narrates its trend.
// History failures only degrade the prompt.
func (o *Orchestrator) narrate(ctx context.Context, log *slog.Logger, top []domain.ScoredAsset, now time.Time) []NarratedAsset {
	out := make([]NarratedAsset, 0, len(top))
	for _, sa := range top {
		a := sa.Asset
		if err := o.deps.History.Record(ctx, a.Symbol, now, a.Price, a.Volume); err != nil {
			log.Warn("history record failed", "symbol", a.Symbol, "err", err)
		}
		text, err := o.deps.History.Narrate(ctx, a.Symbol, a.OnChainActivity)
		if err != nil {
			log.Warn("history narrate failed", "symbol", a.Symbol, "err", err)
		}
		out = append(out, NarratedAsset{Scored: sa, Narrative: text})
	}
	return out
}

func (o *Orchestrator) executionRequest(d domain.Decision, target, counter domain.PortfolioToken) domain.ExecutionRequest {
	from, to := counter.TradableID, target.TradableID
	if d.Action == domain.ActionSell {
		from, to = target.TradableID, counter.TradableID
	}
	reason := d.Reason
	if reason == "" {
		reason = fmt.Sprintf("Automated %s by easel agent.", d.Action)
	}
	return domain.ExecutionRequest{
		FromID:            from,
		ToID:              to,
		Amount:            d.Amount,
		Reason:            reason,
		SlippageTolerance: o.cfg.SlippageTolerance,
		Routing:           o.cfg.Routing,
	}
}

// record performs the three independent post-execution writes.
// Each failure is logged; none prevents the others.
func (o *Orchestrator) record(ctx context.Context, log *slog.Logger, res *CycleResult, date string) {
	d := res.Decision
	symbol := res.Target.Symbol

	counters, err := o.deps.Limits.Increment(ctx, date, symbol)
	if err != nil {
		log.Error("counter increment failed", "asset", symbol, "err", err)
	} else {
		res.Counters = counters
	}

	tradeID, err := o.deps.Learning.RecordTrade(ctx, symbol, d.Action, d.Amount, d.Reason, nil)
	if err != nil {
		log.Error("ledger write failed", "asset", symbol, "err", err)
	} else {
		res.TradeID = tradeID
	}

	var raw any
	if res.Execution != nil {
		raw = res.Execution.Raw
	}
	entry := domain.JournalEntry{
		CycleID:       res.CycleID,
		Timestamp:     o.now().UTC(),
		Asset:         symbol,
		Decision:      d.Action,
		Amount:        d.Amount,
		Reasoning:     d.Reason,
		Outcome:       res.Outcome,
		TradeID:       res.TradeID,
		LearningStats: res.Stats,
		Execution:     raw,
	}
	if err := o.deps.Journal.Append(ctx, entry); err != nil {
		log.Error("journal write failed", "asset", symbol, "err", err)
	}
}

// skip ends the cycle without side effects.
func (o *Orchestrator) skip(log *slog.Logger, res *CycleResult, reason error, attrs ...any) error {
	res.Skip = reason
	res.Outcome = "skipped: " + reason.Error()
	if errors.Is(reason, domain.ErrUnresolvedAsset) {
		log.Warn("trade skipped", append([]any{"reason", reason}, attrs...)...)
	} else {
		log.Info("trade skipped", append([]any{"reason", reason}, attrs...)...)
	}
	return nil
}

// call runs fn with the per-call timeout inside its own span.
func (o *Orchestrator) call(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, name)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) notify(ctx context.Context, log *slog.Logger, res *CycleResult) {
	if o.deps.Notifier == nil {
		return
	}
	report := domain.CycleReport{
		CycleID:   res.CycleID,
		StartedAt: res.StartedAt,
		Ranked:    res.Ranked,
		Decision:  res.Decision,
		Stage:     res.Stage,
		Outcome:   res.Outcome,
	}
	if err := o.deps.Notifier.NotifyCycle(ctx, report); err != nil {
		log.Warn("notifier error", "err", err)
	}
}
