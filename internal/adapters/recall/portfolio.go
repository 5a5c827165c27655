package recall

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/easel/internal/domain"
)

type portfolioResponse struct {
	Success bool             `json:"success"`
	Tokens  []portfolioToken `json:"tokens"`
}

type portfolioToken struct {
	Token  string  `json:"token"`
	Symbol string  `json:"symbol"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Chain  string  `json:"chain"`
}

// FetchTokens implementa ports.PortfolioProvider.
// Los tokens sin dirección o sin símbolo se descartan.
func (c *Client) FetchTokens(ctx context.Context) ([]domain.PortfolioToken, error) {
	var resp portfolioResponse
	if err := c.http.Get(ctx, "/agent/portfolio", nil, &resp); err != nil {
		return nil, fmt.Errorf("recall.FetchTokens: %w", err)
	}

	tokens := make([]domain.PortfolioToken, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		if t.Token == "" || t.Symbol == "" {
			continue
		}
		name := t.Name
		if name == "" {
			name = t.Symbol
		}
		tokens = append(tokens, domain.PortfolioToken{
			Symbol:      strings.ToUpper(t.Symbol),
			DisplayName: name,
			TradableID:  t.Token,
		})
	}
	return tokens, nil
}
