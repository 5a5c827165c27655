package domain

import (
	"math"
	"sort"
)

// ScoreAsset calcula el score heurístico de un activo.
//
// Fórmula: S = 2·|Δ%| + volumen/1e6 + volatilidad
//   - Δ%: variación de precio 24h en porcentaje
//   - volatilidad: (high − low) / price, o 0 si price == 0
func ScoreAsset(a AssetSnapshot) float64 {
	volatility := 0.0
	if a.Price != 0 {
		volatility = (a.High24h - a.Low24h) / a.Price
	}
	return 2*math.Abs(a.PriceChangePct) + a.Volume/1e6 + volatility
}

// RankAssets puntúa los activos y los ordena por score descendente.
// El orden es estable: en empate se conserva el orden de entrada.
func RankAssets(assets []AssetSnapshot) []ScoredAsset {
	scored := make([]ScoredAsset, len(assets))
	for i, a := range assets {
		scored[i] = ScoredAsset{Asset: a, Score: ScoreAsset(a)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// TopN devuelve como mucho los n primeros activos del ranking.
func TopN(ranked []ScoredAsset, n int) []ScoredAsset {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
