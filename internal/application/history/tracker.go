// Package history mantiene el buffer acotado de observaciones por símbolo
// y lo traduce a tendencias y narración.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
)

// Tracker es el dueño de los buffers por símbolo. El store es la única fuente
// de verdad; el mutex serializa el read-modify-write de Record.
type Tracker struct {
	store    ports.HistoryStore
	narrator *domain.Narrator
	mu       sync.Mutex
}

// NewTracker crea un Tracker. El narrator aporta la fuente aleatoria de las frases on-chain.
func NewTracker(store ports.HistoryStore, narrator *domain.Narrator) *Tracker {
	if narrator == nil {
		narrator = domain.NewNarrator(nil)
	}
	return &Tracker{store: store, narrator: narrator}
}

// Record añade una observación al buffer del símbolo y descarta las más
// antiguas por encima de domain.HistoryCapacity.
func (t *Tracker) Record(ctx context.Context, symbol string, ts time.Time, price, volume float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	points, err := t.store.LoadHistory(ctx, symbol)
	if err != nil {
		return fmt.Errorf("history.Record: load %s: %w", symbol, err)
	}
	points = domain.AppendBounded(points, domain.HistoryPoint{Timestamp: ts.UTC(), Price: price, Volume: volume})
	if err := t.store.SaveHistory(ctx, symbol, points); err != nil {
		return fmt.Errorf("history.Record: save %s: %w", symbol, err)
	}
	return nil
}

// Trend clasifica el buffer actual del símbolo.
func (t *Tracker) Trend(ctx context.Context, symbol string) (domain.Trend, error) {
	points, err := t.store.LoadHistory(ctx, symbol)
	if err != nil {
		return domain.Trend{}, fmt.Errorf("history.Trend: load %s: %w", symbol, err)
	}
	return domain.ClassifyTrend(points), nil
}

// Narrate describe la tendencia del símbolo en lenguaje pictórico.
func (t *Tracker) Narrate(ctx context.Context, symbol string, onChainPresent bool) (string, error) {
	trend, err := t.Trend(ctx, symbol)
	if err != nil {
		return "", err
	}

	// el narrator comparte un *rand.Rand, que no es seguro entre goroutines
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.narrator.Narrate(symbol, trend, onChainPresent), nil
}
