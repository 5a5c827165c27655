package engine_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/alejandrodnm/easel/internal/adapters/storage"
	"github.com/alejandrodnm/easel/internal/application/engine"
	"github.com/alejandrodnm/easel/internal/application/history"
	"github.com/alejandrodnm/easel/internal/application/learning"
	"github.com/alejandrodnm/easel/internal/application/limits"
	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// --- mocks ---

type MockMarket struct{ mock.Mock }

func (m *MockMarket) FetchSnapshots(ctx context.Context) ([]domain.AssetSnapshot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AssetSnapshot), args.Error(1)
}

type MockOracle struct{ mock.Mock }

func (m *MockOracle) Decide(ctx context.Context, prompt string) (domain.Decision, error) {
	args := m.Called(ctx, prompt)
	return args.Get(0).(domain.Decision), args.Error(1)
}

type MockPortfolio struct{ mock.Mock }

func (m *MockPortfolio) FetchTokens(ctx context.Context) ([]domain.PortfolioToken, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PortfolioToken), args.Error(1)
}

type MockExecutor struct{ mock.Mock }

func (m *MockExecutor) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ExecutionResult), args.Error(1)
}

type MockJournal struct{ mock.Mock }

func (m *MockJournal) Append(ctx context.Context, entry domain.JournalEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// --- fixture ---

var cycleTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

const cycleDate = "2025-03-01"

type fixture struct {
	market    *MockMarket
	oracle    *MockOracle
	portfolio *MockPortfolio
	executor  *MockExecutor
	journal   *MockJournal
	db        *storage.SQLiteStorage
	limits    *limits.Controller
	learning  *learning.Service
	orch      *engine.Orchestrator
}

func newFixture(t *testing.T, cfg engine.Config) *fixture {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		market:    new(MockMarket),
		oracle:    new(MockOracle),
		portfolio: new(MockPortfolio),
		executor:  new(MockExecutor),
		journal:   new(MockJournal),
		db:        db,
		limits:    limits.NewController(db, domain.LimitPolicy{OverallMax: 10, PerAssetMax: 3}),
		learning:  learning.NewService(db, domain.DefaultAdaptiveGate()),
	}
	f.orch = engine.New(cfg, engine.Deps{
		Market:    f.market,
		Oracle:    f.oracle,
		Portfolio: f.portfolio,
		Executor:  f.executor,
		History:   history.NewTracker(db, domain.NewNarrator(rand.New(rand.NewSource(1)))),
		Limits:    f.limits,
		Learning:  f.learning,
		Journal:   f.journal,
	}).WithClock(func() time.Time { return cycleTime })
	return f
}

func defaultConfig() engine.Config {
	return engine.Config{
		ConfidenceThreshold: 0.7,
		SlippageTolerance:   "0.5",
		Routing:             domain.ChainRouting{FromChain: "evm", FromSpecificChain: "eth", ToChain: "evm", ToSpecificChain: "eth"},
	}
}

func snapshots() []domain.AssetSnapshot {
	return []domain.AssetSnapshot{
		{Symbol: "ETH", Name: "Ethereum", Price: 3000, Volume: 2e6, High24h: 3050, Low24h: 2950, PriceChangePct: 0.5},
		{Symbol: "SOL", Name: "Solana", Price: 150, Volume: 3e6, High24h: 160, Low24h: 140, PriceChangePct: -4.5},
	}
}

func tokens() []domain.PortfolioToken {
	return []domain.PortfolioToken{
		{Symbol: "USDC", DisplayName: "USD Coin", TradableID: "0xusdc"},
		{Symbol: "SOL", DisplayName: "Wrapped Solana", TradableID: "0xsol"},
		{Symbol: "WETH", DisplayName: "Wrapped Ether", TradableID: "0xweth"},
	}
}

func conf(v float64) *float64 { return &v }

func (f *fixture) counts(t *testing.T) domain.DayCounters {
	t.Helper()
	c, err := f.limits.GetCounts(context.Background(), cycleDate)
	require.NoError(t, err)
	return c
}

func (f *fixture) trades(t *testing.T, asset string) []domain.TradeRecord {
	t.Helper()
	recs, err := f.db.TradesByAsset(context.Background(), asset)
	require.NoError(t, err)
	return recs
}

// --- tests ---

func TestRunOnce_BuyExecutesAndRecords(t *testing.T) {
	f := newFixture(t, defaultConfig())
	decision := domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 2, Reason: "a rising spiral", Confidence: conf(0.9)}

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil).Once()
	f.oracle.On("Decide", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Solana (SOL)") && strings.Contains(p, "Ethereum (ETH)")
	})).Return(decision, nil).Once()
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil).Once()
	f.executor.On("Execute", mock.Anything, domain.ExecutionRequest{
		FromID:            "0xusdc",
		ToID:              "0xsol",
		Amount:            2,
		Reason:            "a rising spiral",
		SlippageTolerance: "0.5",
		Routing:           defaultConfig().Routing,
	}).Return(domain.ExecutionResult{Success: true, TxID: "tx-1", Raw: map[string]any{"success": true}}, nil).Once()
	f.journal.On("Append", mock.Anything, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Asset == "SOL" && e.Decision == domain.ActionBuy && e.Amount == 2 &&
			e.Reasoning == "a rising spiral" && e.Outcome == "executed" && e.CycleID != "" && e.TradeID > 0
	})).Return(nil).Once()

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StageRecording, res.Stage)
	assert.Equal(t, "executed", res.Outcome)
	assert.Nil(t, res.Skip)
	assert.NotEmpty(t, res.CycleID)
	assert.Equal(t, "SOL", res.Ranked[0].Asset.Symbol)

	assert.Equal(t, domain.DayCounters{Overall: 1, Assets: map[string]int{"SOL": 1}}, f.counts(t))
	assert.Equal(t, domain.DayCounters{Overall: 1, Assets: map[string]int{"SOL": 1}}, res.Counters)

	recs := f.trades(t, "SOL")
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].Outcome)
	assert.Equal(t, 2.0, recs[0].Amount)
	assert.Equal(t, res.TradeID, recs[0].ID)

	f.market.AssertExpectations(t)
	f.oracle.AssertExpectations(t)
	f.portfolio.AssertExpectations(t)
	f.executor.AssertExpectations(t)
	f.journal.AssertExpectations(t)
}

func TestRunOnce_SellRoutesTargetToCounter(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "ether", Action: domain.ActionSell, Amount: 0.5, Reason: "fading"}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)
	f.executor.On("Execute", mock.Anything, mock.MatchedBy(func(r domain.ExecutionRequest) bool {
		return r.FromID == "0xweth" && r.ToID == "0xusdc" && r.Amount == 0.5
	})).Return(domain.ExecutionResult{Success: true}, nil).Once()
	f.journal.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WETH", res.Target.Symbol)
	assert.Equal(t, 1, f.counts(t).Assets["WETH"])
	f.executor.AssertExpectations(t)
}

func TestRunOnce_HoldHasNoSideEffects(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).Return(domain.HoldDecision("calm waters"), nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageDecisionReceived, res.Stage)
	assert.Equal(t, "hold", res.Outcome)

	f.portfolio.AssertNotCalled(t, "FetchTokens", mock.Anything)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	f.journal.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.counts(t).Overall)
}

func TestRunOnce_MalformedOracleResponseIsHold(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).Return(domain.DecisionFromPayload("not json at all"), nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hold", res.Outcome)
	assert.True(t, res.Decision.Degraded)
	assert.Contains(t, res.Decision.Reason, "not json at all")
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRunOnce_UnresolvedAssetAborts(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "DOGE", Action: domain.ActionBuy, Amount: 1}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageAssetResolution, res.Stage)
	assert.ErrorIs(t, res.Skip, domain.ErrUnresolvedAsset)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.counts(t).Overall)
	assert.Empty(t, f.trades(t, "DOGE"))
}

func TestRunOnce_AdaptiveSkip(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	for _, o := range []float64{1, -1, -1, -1, -1} {
		o := o
		_, err := f.learning.RecordTrade(ctx, "SOL", domain.ActionBuy, 1, "seed", &o)
		require.NoError(t, err)
	}

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1, Confidence: conf(0.95)}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)

	res, err := f.orch.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StageLearningGate, res.Stage)
	assert.ErrorIs(t, res.Skip, domain.ErrAdaptiveSkip)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	assert.Len(t, f.trades(t, "SOL"), 5)
}

func TestRunOnce_LowConfidenceSkip(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1, Confidence: conf(0.4)}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageConfidenceGate, res.Stage)
	assert.ErrorIs(t, res.Skip, domain.ErrLowConfidence)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRunOnce_MissingConfidencePassesGate(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.ExecutionResult{Success: true}, nil).Once()
	f.journal.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageRecording, res.Stage)
}

func TestRunOnce_PerAssetLimitReached(t *testing.T) {
	f := newFixture(t, defaultConfig())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.limits.Increment(ctx, cycleDate, "SOL")
		require.NoError(t, err)
	}

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)

	res, err := f.orch.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StageLimitGate, res.Stage)
	assert.ErrorIs(t, res.Skip, domain.ErrLimitExceeded)
	assert.Equal(t, "asset", res.Verdict.BlockedBy)
	assert.Equal(t, 3, f.counts(t).Overall)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestRunOnce_ExecutionTransportErrorRecordsNothing(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.ExecutionResult{}, errors.New("connection reset"))

	res, err := f.orch.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, domain.StageExecution, res.Stage)
	assert.Equal(t, 0, f.counts(t).Overall)
	assert.Empty(t, f.trades(t, "SOL"))
	f.journal.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestRunOnce_RejectedTradeIsStillRecorded(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1, Reason: "r"}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)
	f.executor.On("Execute", mock.Anything, mock.Anything).
		Return(domain.ExecutionResult{Success: false, Error: "insufficient balance"}, nil)
	f.journal.On("Append", mock.Anything, mock.MatchedBy(func(e domain.JournalEntry) bool {
		return e.Outcome == "failed"
	})).Return(nil).Once()

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "failed", res.Outcome)
	assert.Equal(t, 1, f.counts(t).Overall)
	f.journal.AssertExpectations(t)
}

func TestRunOnce_JournalFailureDoesNotBlockOtherWrites(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "SOL", Action: domain.ActionBuy, Amount: 1}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)
	f.executor.On("Execute", mock.Anything, mock.Anything).Return(domain.ExecutionResult{Success: true}, nil)
	f.journal.On("Append", mock.Anything, mock.Anything).Return(errors.New("disk full"))

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "executed", res.Outcome)
	assert.Equal(t, 1, f.counts(t).Overall)
	assert.Len(t, f.trades(t, "SOL"), 1)
}

func TestRunOnce_MarketErrorAbortsCycle(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.market.On("FetchSnapshots", mock.Anything).Return(nil, errors.New("coingecko down"))

	res, err := f.orch.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.StageScoring, res.Stage)
	assert.True(t, strings.HasPrefix(res.Outcome, "error:"))
	f.oracle.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestRunOnce_NoSnapshots(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.market.On("FetchSnapshots", mock.Anything).Return([]domain.AssetSnapshot{}, nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "no market data", res.Outcome)
	f.oracle.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything)
}

func TestRun_StopsOnCancel(t *testing.T) {
	cfg := defaultConfig()
	cfg.Interval = time.Hour
	f := newFixture(t, cfg)
	fetched := make(chan struct{}, 1)
	f.market.On("FetchSnapshots", mock.Anything).
		Run(func(mock.Arguments) { fetched <- struct{}{} }).
		Return([]domain.AssetSnapshot{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx) }()

	// The first cycle runs immediately, then the loop sleeps for an hour.
	select {
	case <-fetched:
	case <-time.After(time.Second):
		t.Fatal("first cycle did not run")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	f.market.AssertNumberOfCalls(t, "FetchSnapshots", 1)
}

func TestRunOnce_CounterAssetTargetIsSkipped(t *testing.T) {
	f := newFixture(t, defaultConfig())

	f.market.On("FetchSnapshots", mock.Anything).Return(snapshots(), nil)
	f.oracle.On("Decide", mock.Anything, mock.Anything).
		Return(domain.Decision{Asset: "usdc", Action: domain.ActionBuy, Amount: 10}, nil)
	f.portfolio.On("FetchTokens", mock.Anything).Return(tokens(), nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageAssetResolution, res.Stage)
	assert.ErrorIs(t, res.Skip, domain.ErrCounterAssetTarget)
	f.executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	f.journal.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.counts(t).Overall)
	assert.Empty(t, f.trades(t, "USDC"))
}

func TestRunOnce_DurationUsesOrchestratorClock(t *testing.T) {
	f := newFixture(t, defaultConfig())
	calls := 0
	f.orch.WithClock(func() time.Time {
		calls++
		if calls == 1 {
			return cycleTime
		}
		return cycleTime.Add(3 * time.Second)
	})
	f.market.On("FetchSnapshots", mock.Anything).Return([]domain.AssetSnapshot{}, nil)

	res, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, res.Duration)
}

func TestRunOnce_LogsCarryTraceID(t *testing.T) {
	var buf bytes.Buffer
	prevLogger := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		slog.SetDefault(prevLogger)
		otel.SetTracerProvider(noop.NewTracerProvider())
		_ = tp.Shutdown(context.Background())
	})

	f := newFixture(t, defaultConfig())
	f.market.On("FetchSnapshots", mock.Anything).Return([]domain.AssetSnapshot{}, nil)

	_, err := f.orch.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"trace_id":"`)
	assert.Contains(t, buf.String(), `"cycle_id":"`)
}
