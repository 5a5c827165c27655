// Package scheduler reinicia los contadores diarios en cada medianoche UTC.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
)

// Counters es el subconjunto de limits.Controller que usa el scheduler.
type Counters interface {
	GetCounts(ctx context.Context, date string) (domain.DayCounters, error)
	Reset(ctx context.Context, date string) error
}

// Rollover resume un cambio de día.
type Rollover struct {
	ClosingDate  string
	OpeningDate  string
	Closing      domain.DayCounters
	BelowMinimum bool
}

// DailyReset duerme hasta la próxima medianoche UTC, revisa el día que cierra
// y deja el día nuevo en {0, {}}.
type DailyReset struct {
	counters  Counters
	minTrades int
	now       func() time.Time
	wait      func(ctx context.Context, d time.Duration) error
}

// NewDailyReset crea el scheduler. minTradesPerDay ≤ 0 desactiva el aviso.
func NewDailyReset(counters Counters, minTradesPerDay int) *DailyReset {
	return &DailyReset{
		counters:  counters,
		minTrades: minTradesPerDay,
		now:       time.Now,
		wait:      sleep,
	}
}

// WithClock reemplaza el reloj y la espera (tests).
func (s *DailyReset) WithClock(now func() time.Time, wait func(ctx context.Context, d time.Duration) error) *DailyReset {
	s.now = now
	s.wait = wait
	return s
}

// NextMidnight devuelve la primera medianoche UTC estrictamente posterior a t.
func NextMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

// Run repite el ciclo hasta que ctx se cancela. Los errores de un cambio de
// día se loguean y no detienen el loop.
func (s *DailyReset) Run(ctx context.Context) error {
	slog.Info("daily reset scheduler starting", "min_trades_per_day", s.minTrades)

	for {
		next := NextMidnight(s.now())
		wait := next.Sub(s.now())
		slog.Debug("next counter reset", "at", next, "in", wait.Round(time.Second))

		if err := s.wait(ctx, wait); err != nil {
			slog.Info("daily reset scheduler stopped")
			return nil
		}

		closing := domain.DateKey(next.Add(-time.Nanosecond))
		opening := domain.DateKey(next)
		// el reset no debe quedar a medias si llega la señal justo ahora
		if _, err := s.Rollover(context.WithoutCancel(ctx), closing, opening); err != nil {
			slog.Error("daily reset failed", "date", opening, "err", err)
		}
	}
}

// Rollover revisa el día que cierra y reinicia el que abre.
func (s *DailyReset) Rollover(ctx context.Context, closingDate, openingDate string) (Rollover, error) {
	r := Rollover{ClosingDate: closingDate, OpeningDate: openingDate}

	closing, err := s.counters.GetCounts(ctx, closingDate)
	if err != nil {
		return r, fmt.Errorf("scheduler.Rollover: read %s: %w", closingDate, err)
	}
	r.Closing = closing

	if s.minTrades > 0 && closing.Overall < s.minTrades {
		r.BelowMinimum = true
		slog.Warn("daily trade minimum not met",
			"date", closingDate,
			"trades", closing.Overall,
			"min_trades_per_day", s.minTrades,
		)
	}

	if err := s.counters.Reset(ctx, openingDate); err != nil {
		return r, fmt.Errorf("scheduler.Rollover: reset %s: %w", openingDate, err)
	}
	slog.Info("daily counters reset", "date", openingDate, "closing_trades", closing.Overall)
	return r, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
