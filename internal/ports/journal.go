package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// Journal guarda el registro de auditoría de cada ejecución. Nunca reescribe entradas.
type Journal interface {
	Append(ctx context.Context, entry domain.JournalEntry) error
}
