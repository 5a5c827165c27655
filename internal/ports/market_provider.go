package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// MarketDataProvider obtiene el snapshot de mercado de los activos candidatos.
type MarketDataProvider interface {
	// FetchSnapshots devuelve un snapshot por activo configurado.
	// Los campos numéricos que el proveedor no informa llegan como 0.
	FetchSnapshots(ctx context.Context) ([]domain.AssetSnapshot, error)
}
