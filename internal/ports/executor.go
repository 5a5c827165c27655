package ports

import (
	"context"

	"github.com/alejandrodnm/easel/internal/domain"
)

// PortfolioProvider lists the tokens the counterparty can trade.
type PortfolioProvider interface {
	FetchTokens(ctx context.Context) ([]domain.PortfolioToken, error)
}

// TradeExecutor submits swaps to the counterparty.
type TradeExecutor interface {
	// Execute returns an error only on transport failure. A trade rejected by
	// the counterparty comes back as a result with Success == false.
	Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error)
}
