// Package learning registra los trades ejecutados y decide, a partir del
// win-rate histórico, si un activo debe saltarse.
package learning

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
)

// Service es el dueño del ledger de trades.
type Service struct {
	ledger ports.Ledger
	gate   domain.AdaptiveGate
	now    func() time.Time
}

// NewService crea un Service con el gate dado.
func NewService(ledger ports.Ledger, gate domain.AdaptiveGate) *Service {
	return &Service{ledger: ledger, gate: gate, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RecordTrade añade un trade al ledger. outcome es nil si aún no se conoce.
func (s *Service) RecordTrade(ctx context.Context, asset string, action domain.Action, amount float64, reasoning string, outcome *float64) (int64, error) {
	id, err := s.ledger.InsertTrade(ctx, domain.TradeRecord{
		Timestamp: s.now().UTC(),
		Asset:     asset,
		Action:    action,
		Amount:    amount,
		Outcome:   outcome,
		Reasoning: reasoning,
	})
	if err != nil {
		return 0, fmt.Errorf("learning.RecordTrade: %w", err)
	}
	return id, nil
}

// UpdateOutcome liquida un trade existente. Devuelve domain.ErrNotFound si el id no existe.
func (s *Service) UpdateOutcome(ctx context.Context, id int64, outcome float64) error {
	if err := s.ledger.UpdateOutcome(ctx, id, outcome); err != nil {
		return fmt.Errorf("learning.UpdateOutcome: %w", err)
	}
	return nil
}

// Stats calcula las estadísticas del activo sobre sus trades liquidados.
func (s *Service) Stats(ctx context.Context, asset string) (domain.AssetStats, error) {
	recs, err := s.ledger.TradesByAsset(ctx, asset)
	if err != nil {
		return domain.AssetStats{}, fmt.Errorf("learning.Stats: %w", err)
	}
	return domain.ComputeStats(asset, recs), nil
}

// AllStats calcula las estadísticas de cada activo del ledger.
func (s *Service) AllStats(ctx context.Context) ([]domain.AssetStats, error) {
	assets, err := s.ledger.Assets(ctx)
	if err != nil {
		return nil, fmt.Errorf("learning.AllStats: %w", err)
	}
	out := make([]domain.AssetStats, 0, len(assets))
	for _, a := range assets {
		st, err := s.Stats(ctx, a)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ShouldSkip aplica el gate adaptativo.
func (s *Service) ShouldSkip(stats domain.AssetStats) bool {
	return s.gate.ShouldSkip(stats)
}
