package domain

import "time"

// TradeRecord es una fila del ledger de aprendizaje.
// Outcome es nil hasta que el trade se liquida (settlement diferido).
type TradeRecord struct {
	ID        int64
	Timestamp time.Time
	Asset     string
	Action    Action
	Amount    float64
	Outcome   *float64
	Reasoning string
}

// Settled informa si el trade ya tiene resultado.
func (r TradeRecord) Settled() bool {
	return r.Outcome != nil
}

// AssetStats resume los trades liquidados de un activo.
// WinRate y AvgReturn son nil cuando Count == 0.
type AssetStats struct {
	Asset     string   `json:"asset"`
	Count     int      `json:"count"`
	WinRate   *float64 `json:"win_rate"`
	AvgReturn *float64 `json:"avg_return"`
}

// ComputeStats calcula count, win-rate (outcome > 0) y retorno medio
// considerando solo los registros liquidados.
func ComputeStats(asset string, records []TradeRecord) AssetStats {
	stats := AssetStats{Asset: asset}
	wins := 0
	sum := 0.0
	for _, r := range records {
		if !r.Settled() {
			continue
		}
		stats.Count++
		sum += *r.Outcome
		if *r.Outcome > 0 {
			wins++
		}
	}
	if stats.Count == 0 {
		return stats
	}
	winRate := float64(wins) / float64(stats.Count)
	avg := sum / float64(stats.Count)
	stats.WinRate = &winRate
	stats.AvgReturn = &avg
	return stats
}

// AdaptiveGate decide si un activo debe saltarse por bajo rendimiento histórico.
type AdaptiveGate struct {
	MinSamples   int     // mínimo de trades liquidados para que el gate aplique
	WinRateFloor float64 // win-rate por debajo del cual se salta
}

// DefaultAdaptiveGate: 5 trades liquidados, 30% de win-rate mínimo.
func DefaultAdaptiveGate() AdaptiveGate {
	return AdaptiveGate{MinSamples: 5, WinRateFloor: 0.3}
}

// ShouldSkip devuelve true si count ≥ MinSamples y winRate < WinRateFloor.
func (g AdaptiveGate) ShouldSkip(s AssetStats) bool {
	if s.WinRate == nil || s.Count < g.MinSamples {
		return false
	}
	return *s.WinRate < g.WinRateFloor
}
