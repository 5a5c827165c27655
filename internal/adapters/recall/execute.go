package recall

import (
	"context"
	"fmt"
	"math"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/shopspring/decimal"
)

// executeRequest es el body de POST /trade/execute. Los importes viajan como string.
type executeRequest struct {
	FromToken         string `json:"fromToken"`
	ToToken           string `json:"toToken"`
	Amount            string `json:"amount"`
	Reason            string `json:"reason"`
	SlippageTolerance string `json:"slippageTolerance"`
	FromChain         string `json:"fromChain,omitempty"`
	FromSpecificChain string `json:"fromSpecificChain,omitempty"`
	ToChain           string `json:"toChain,omitempty"`
	ToSpecificChain   string `json:"toSpecificChain,omitempty"`
}

// Execute implementa ports.TradeExecutor. No reintenta: un swap no es idempotente.
// Solo devuelve error si la llamada no llega a completarse; un rechazo de la
// contraparte se refleja en ExecutionResult.Success.
func (c *Client) Execute(ctx context.Context, req domain.ExecutionRequest) (domain.ExecutionResult, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return domain.ExecutionResult{}, fmt.Errorf("recall.Execute: non-finite amount %v", req.Amount)
	}
	slippage, err := decimal.NewFromString(req.SlippageTolerance)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("recall.Execute: slippage %q: %w", req.SlippageTolerance, err)
	}

	body := executeRequest{
		FromToken:         req.FromID,
		ToToken:           req.ToID,
		Amount:            decimal.NewFromFloat(req.Amount).String(),
		Reason:            req.Reason,
		SlippageTolerance: slippage.String(),
		FromChain:         req.Routing.FromChain,
		FromSpecificChain: req.Routing.FromSpecificChain,
		ToChain:           req.Routing.ToChain,
		ToSpecificChain:   req.Routing.ToSpecificChain,
	}

	var raw map[string]any
	if err := c.http.PostOnce(ctx, "/trade/execute", body, &raw); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("recall.Execute: %w", err)
	}
	return resultFromRaw(raw), nil
}

// resultFromRaw interpreta {success, transaction:{id}, error} sin perder el payload.
func resultFromRaw(raw map[string]any) domain.ExecutionResult {
	res := domain.ExecutionResult{Raw: raw}
	res.Success, _ = raw["success"].(bool)
	if tx, ok := raw["transaction"].(map[string]any); ok {
		res.TxID, _ = tx["id"].(string)
	}
	res.Error, _ = raw["error"].(string)
	return res
}
