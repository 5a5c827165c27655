package domain

import "time"

// ChainRouting indica las cadenas de origen y destino de un swap.
type ChainRouting struct {
	FromChain         string
	FromSpecificChain string
	ToChain           string
	ToSpecificChain   string
}

// ExecutionRequest es lo que se envía al servicio de ejecución.
type ExecutionRequest struct {
	FromID            string
	ToID              string
	Amount            float64
	Reason            string
	SlippageTolerance string // porcentaje, p.ej. "0.5"
	Routing           ChainRouting
}

// ExecutionResult es la respuesta opaca del servicio de ejecución.
// Raw se loguea tal cual; Success refleja el fallo reportado por el servicio.
type ExecutionResult struct {
	Success bool
	TxID    string
	Error   string
	Raw     map[string]any
}

// Status devuelve "executed" o "failed".
func (r ExecutionResult) Status() string {
	if r.Success {
		return "executed"
	}
	return "failed"
}

// JournalEntry es el registro de auditoría inmutable de una ejecución.
type JournalEntry struct {
	ID             string     `json:"id"`
	CycleID        string     `json:"cycle_id"`
	Timestamp      time.Time  `json:"timestamp"`
	Asset          string     `json:"asset"`
	Decision       Action     `json:"decision"`
	Amount         float64    `json:"amount"`
	Reasoning      string     `json:"reasoning"`
	Outcome        string     `json:"outcome"`
	TradeID        int64      `json:"trade_id,omitempty"`
	ChartReference string     `json:"chart_reference,omitempty"`
	LearningStats  AssetStats `json:"learning_stats"`
	Execution      any        `json:"execution,omitempty"`
}
