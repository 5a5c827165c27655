package domain

import "time"

// DateLayout es el formato de la clave diaria de los contadores (fecha UTC).
const DateLayout = "2006-01-02"

// DateKey devuelve la clave UTC del día de t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// DayCounters son los contadores de trades de un día UTC.
// Invariante: Overall == Σ Assets.
type DayCounters struct {
	Overall int            `json:"overall"`
	Assets  map[string]int `json:"assets"`
}

// NewDayCounters devuelve contadores vacíos.
func NewDayCounters() DayCounters {
	return DayCounters{Assets: map[string]int{}}
}

// Increment suma un trade para symbol. Devuelve una copia; no muta el receptor.
func (c DayCounters) Increment(symbol string) DayCounters {
	out := DayCounters{Overall: c.Overall + 1, Assets: make(map[string]int, len(c.Assets)+1)}
	for k, v := range c.Assets {
		out.Assets[k] = v
	}
	out.Assets[symbol]++
	return out
}

// Consistent verifica el invariante Overall == Σ Assets.
func (c DayCounters) Consistent() bool {
	sum := 0
	for _, v := range c.Assets {
		if v < 0 {
			return false
		}
		sum += v
	}
	return c.Overall >= 0 && sum == c.Overall
}

// LimitPolicy define los máximos diarios.
type LimitPolicy struct {
	OverallMax  int
	PerAssetMax int
}

// LimitVerdict explica el resultado de consultar la política.
type LimitVerdict struct {
	Allowed    bool
	Overall    int
	AssetCount int
	BlockedBy  string // "overall" | "asset" | ""
}

// Check aplica la política: permitido si overall < OverallMax y assets[symbol] < PerAssetMax.
func (p LimitPolicy) Check(c DayCounters, symbol string) LimitVerdict {
	v := LimitVerdict{Overall: c.Overall, AssetCount: c.Assets[symbol]}
	switch {
	case c.Overall >= p.OverallMax:
		v.BlockedBy = "overall"
	case v.AssetCount >= p.PerAssetMax:
		v.BlockedBy = "asset"
	default:
		v.Allowed = true
	}
	return v
}
