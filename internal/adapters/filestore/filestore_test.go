package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/easel/internal/adapters/filestore"
	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CountsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := filestore.New(dir)
	require.NoError(t, err)

	empty, err := s.GetCounts(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, domain.NewDayCounters(), empty)

	_, err = s.IncrementCounts(ctx, "2025-01-01", "SOL")
	require.NoError(t, err)
	c, err := s.IncrementCounts(ctx, "2025-01-01", "SOL")
	require.NoError(t, err)
	assert.Equal(t, domain.DayCounters{Overall: 2, Assets: map[string]int{"SOL": 2}}, c)

	// Un store nuevo sobre el mismo directorio ve los mismos datos
	s2, err := filestore.New(dir)
	require.NoError(t, err)
	got, err := s2.GetCounts(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	require.NoError(t, s2.ResetCounts(ctx, "2025-01-01"))
	got, err = s.GetCounts(ctx, "2025-01-01")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Overall)
	assert.Empty(t, got.Assets)
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := filestore.New(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.IncrementCounts(context.Background(), "2025-01-01", "ETH")
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "trade_counts_2025-01-01.json", entries[0].Name())
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trade_counts_2025-01-01.json"), []byte("{not json"), 0o644))

	s, err := filestore.New(dir)
	require.NoError(t, err)
	_, err = s.GetCounts(context.Background(), "2025-01-01")
	assert.Error(t, err)
}

func TestStore_HistoryRoundTrip(t *testing.T) {
	s, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	none, err := s.LoadHistory(ctx, "SOL")
	require.NoError(t, err)
	assert.Empty(t, none)

	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pts := []domain.HistoryPoint{{Timestamp: ts, Price: 1, Volume: 2}, {Timestamp: ts.Add(time.Hour), Price: 3, Volume: 4}}
	require.NoError(t, s.SaveHistory(ctx, "sol", pts))

	got, err := s.LoadHistory(ctx, "SOL")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Timestamp.Equal(ts.Add(time.Hour)))
	assert.Equal(t, 3.0, got[1].Price)
}

func TestStore_SymbolIsSanitized(t *testing.T) {
	dir := t.TempDir()
	s, err := filestore.New(dir)
	require.NoError(t, err)

	require.NoError(t, s.SaveHistory(context.Background(), "../evil", []domain.HistoryPoint{{Price: 1}}))
	_, err = os.Stat(filepath.Join(dir, "history____EVIL.json"))
	assert.NoError(t, err)
}
