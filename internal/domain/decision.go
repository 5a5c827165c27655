package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Action es la acción recomendada por el oráculo.
type Action string

const (
	ActionBuy  Action = "Buy"
	ActionSell Action = "Sell"
	ActionHold Action = "Hold"
)

// ParseAction normaliza la acción sin distinguir mayúsculas.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return ActionBuy, true
	case "sell":
		return ActionSell, true
	case "hold":
		return ActionHold, true
	}
	return "", false
}

// Trades informa si la acción implica una ejecución.
func (a Action) Trades() bool {
	return a == ActionBuy || a == ActionSell
}

// Decision es la recomendación ya validada del oráculo.
// Confidence es nil si el oráculo no la informó.
type Decision struct {
	Asset      string   `json:"asset"`
	Action     Action   `json:"action"`
	Amount     float64  `json:"amount"`
	Reason     string   `json:"reason"`
	Confidence *float64 `json:"confidence,omitempty"`
	Degraded   bool     `json:"degraded,omitempty"` // true si viene de una respuesta inválida
}

// HoldDecision construye un Hold con el motivo dado.
func HoldDecision(reason string) Decision {
	return Decision{Action: ActionHold, Reason: reason}
}

// rawDecision es la forma laxa que devuelve el oráculo.
type rawDecision struct {
	Asset      string          `json:"asset"`
	Action     string          `json:"action"`
	Amount     json.RawMessage `json:"amount"`
	Reason     string          `json:"reason"`
	Confidence *float64        `json:"confidence"`
}

// ParseDecision valida el payload del oráculo y devuelve una Decision tipada.
// Acepta el JSON envuelto en bloques markdown y amount como número o string.
// Cualquier fallo se reporta envolviendo ErrMalformedDecision.
func ParseDecision(payload string) (Decision, error) {
	body := extractJSONObject(payload)
	if body == "" {
		return Decision{}, fmt.Errorf("%w: no JSON object in payload", ErrMalformedDecision)
	}

	var raw rawDecision
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformedDecision, err)
	}

	action, ok := ParseAction(raw.Action)
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrMalformedDecision, raw.Action)
	}

	d := Decision{
		Asset:  strings.TrimSpace(raw.Asset),
		Action: action,
		Reason: strings.TrimSpace(raw.Reason),
	}

	if raw.Confidence != nil {
		c := *raw.Confidence
		if c < 0 || c > 1 {
			c = 0
		}
		d.Confidence = &c
	}

	if !action.Trades() {
		return d, nil
	}

	if d.Asset == "" {
		return Decision{}, fmt.Errorf("%w: %s without asset", ErrMalformedDecision, action)
	}
	amount, err := parseAmount(raw.Amount)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: amount: %v", ErrMalformedDecision, err)
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Decision{}, fmt.Errorf("%w: non-finite amount %q", ErrMalformedDecision, string(raw.Amount))
	}
	if amount <= 0 {
		return Decision{}, fmt.Errorf("%w: non-positive amount %v", ErrMalformedDecision, amount)
	}
	d.Amount = amount
	return d, nil
}

// DecisionFromPayload nunca falla: un payload inválido se degrada a Hold
// con el payload crudo como diagnóstico.
func DecisionFromPayload(payload string) Decision {
	d, err := ParseDecision(payload)
	if err != nil {
		hold := HoldDecision(fmt.Sprintf("unparseable oracle response (%v): %s", err, payload))
		hold.Degraded = true
		return hold
	}
	return d
}

// parseAmount acepta 2, 2.5, "2" o "2.5".
func parseAmount(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("not a number: %s", string(raw))
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// extractJSONObject quita fences markdown y texto alrededor del primer objeto JSON.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
