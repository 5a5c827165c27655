package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// DecisionOracle pide una recomendación de trade a partir del contexto narrado.
type DecisionOracle interface {
	// Decide devuelve una Decision ya validada. Un payload ilegible no es un
	// error: se degrada a Hold. Solo los fallos de transporte devuelven error.
	Decide(ctx context.Context, prompt string) (domain.Decision, error)
}
