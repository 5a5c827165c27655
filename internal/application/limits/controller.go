// Package limits aplica los límites diarios de trades (global y por activo).
package limits

import (
	"context"
	"fmt"
	"sync"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
)

// Controller es el único escritor de los contadores diarios.
// El orquestador y el scheduler comparten una instancia; el mutex evita que
// un reset se intercale entre la consulta y el incremento de un ciclo.
type Controller struct {
	store  ports.CounterStore
	policy domain.LimitPolicy
	mu     sync.Mutex
}

// NewController crea un Controller con la política dada.
func NewController(store ports.CounterStore, policy domain.LimitPolicy) *Controller {
	return &Controller{store: store, policy: policy}
}

// Policy devuelve los máximos configurados.
func (c *Controller) Policy() domain.LimitPolicy {
	return c.policy
}

// GetCounts devuelve los contadores de la fecha ({0, {}} si no hay).
func (c *Controller) GetCounts(ctx context.Context, date string) (domain.DayCounters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.store.GetCounts(ctx, date)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("limits.GetCounts: %w", err)
	}
	return counts, nil
}

// Allow consulta la política para symbol en la fecha. No modifica nada.
func (c *Controller) Allow(ctx context.Context, date, symbol string) (domain.LimitVerdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.store.GetCounts(ctx, date)
	if err != nil {
		return domain.LimitVerdict{}, fmt.Errorf("limits.Allow: %w", err)
	}
	return c.policy.Check(counts, symbol), nil
}

// Increment registra un trade ejecutado.
func (c *Controller) Increment(ctx context.Context, date, symbol string) (domain.DayCounters, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counts, err := c.store.IncrementCounts(ctx, date, symbol)
	if err != nil {
		return domain.DayCounters{}, fmt.Errorf("limits.Increment: %w", err)
	}
	return counts, nil
}

// Reset deja la fecha en {0, {}}.
func (c *Controller) Reset(ctx context.Context, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ResetCounts(ctx, date); err != nil {
		return fmt.Errorf("limits.Reset: %w", err)
	}
	return nil
}
