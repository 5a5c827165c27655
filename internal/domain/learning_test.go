package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settled(outcomes ...float64) []TradeRecord {
	recs := make([]TradeRecord, len(outcomes))
	for i := range outcomes {
		o := outcomes[i]
		recs[i] = TradeRecord{ID: int64(i + 1), Asset: "SOL", Action: ActionBuy, Amount: 1, Outcome: &o}
	}
	return recs
}

func TestComputeStats_NoRecords(t *testing.T) {
	s := ComputeStats("SOL", nil)
	assert.Equal(t, 0, s.Count)
	assert.Nil(t, s.WinRate)
	assert.Nil(t, s.AvgReturn)
}

func TestComputeStats_IgnoresUnsettled(t *testing.T) {
	recs := append(settled(2, -1), TradeRecord{ID: 9, Asset: "SOL", Action: ActionBuy})
	s := ComputeStats("SOL", recs)

	require.NotNil(t, s.WinRate)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 0.5, *s.WinRate, 1e-9)
	assert.InDelta(t, 0.5, *s.AvgReturn, 1e-9)
}

func TestComputeStats_OnlyUnsettled(t *testing.T) {
	s := ComputeStats("SOL", []TradeRecord{{ID: 1, Asset: "SOL"}})
	assert.Equal(t, 0, s.Count)
	assert.Nil(t, s.WinRate)
}

func TestComputeStats_ZeroOutcomeIsNotAWin(t *testing.T) {
	s := ComputeStats("SOL", settled(0, 1))
	assert.InDelta(t, 0.5, *s.WinRate, 1e-9)
}

func TestAdaptiveGate_TripsBelowFloor(t *testing.T) {
	g := DefaultAdaptiveGate()

	oneWin := ComputeStats("SOL", settled(1, -1, -1, -1, -1)) // 0.2
	assert.True(t, g.ShouldSkip(oneWin))

	twoWins := ComputeStats("SOL", settled(1, 1, -1, -1, -1)) // 0.4
	assert.False(t, g.ShouldSkip(twoWins))
}

func TestAdaptiveGate_NeedsMinSamples(t *testing.T) {
	g := DefaultAdaptiveGate()
	s := ComputeStats("SOL", settled(-1, -1, -1, -1)) // 4 trades, 0% win
	assert.False(t, g.ShouldSkip(s))
	assert.False(t, g.ShouldSkip(AssetStats{}))
}

func TestAdaptiveGate_ZeroFloorNeverSkips(t *testing.T) {
	g := AdaptiveGate{MinSamples: 5, WinRateFloor: 0}
	s := ComputeStats("SOL", settled(-1, -1, -1, -1, -1))
	assert.False(t, g.ShouldSkip(s))
}
