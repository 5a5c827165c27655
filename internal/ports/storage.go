package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// CounterStore persiste los contadores diarios de trades, indexados por fecha UTC.
type CounterStore interface {
	// GetCounts devuelve {0, {}} si no hay contadores para la fecha.
	GetCounts(ctx context.Context, date string) (domain.DayCounters, error)

	// IncrementCounts suma 1 al total y al activo en una única operación atómica
	// y devuelve los contadores resultantes.
	IncrementCounts(ctx context.Context, date, symbol string) (domain.DayCounters, error)

	// ResetCounts deja la fecha en {0, {}}.
	ResetCounts(ctx context.Context, date string) error
}

// HistoryStore persiste el buffer acotado de observaciones por símbolo.
type HistoryStore interface {
	LoadHistory(ctx context.Context, symbol string) ([]domain.HistoryPoint, error)

	// SaveHistory reemplaza el buffer completo del símbolo.
	SaveHistory(ctx context.Context, symbol string, points []domain.HistoryPoint) error
}

// Ledger es el registro append-only de trades del learning layer.
type Ledger interface {
	// InsertTrade asigna un ID monotónico y lo devuelve.
	InsertTrade(ctx context.Context, rec domain.TradeRecord) (int64, error)

	// UpdateOutcome liquida un trade. Devuelve domain.ErrNotFound si no existe.
	UpdateOutcome(ctx context.Context, id int64, outcome float64) error

	// TradesByAsset devuelve los trades del activo en orden de inserción.
	TradesByAsset(ctx context.Context, asset string) ([]domain.TradeRecord, error)

	// Assets devuelve los activos con al menos un trade, ordenados.
	Assets(ctx context.Context) ([]string, error)
}
