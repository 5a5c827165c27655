package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	// NotifyCycle muestra el ranking y el desenlace del ciclo.
	// En la implementación de consola, imprime una tabla formateada.
	NotifyCycle(ctx context.Context, report domain.CycleReport) error
}
