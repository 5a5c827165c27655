package domain

import (
	"math"
	"time"
)

// HistoryCapacity es el número máximo de puntos que se guardan por símbolo.
const HistoryCapacity = 10

const (
	flatPriceThreshold    = 0.01 // ±1% primer vs último precio
	volatileStdevRatio    = 0.03 // stdev > 3% de la media → volatile
	steadyVolumeThreshold = 0.05 // ±5% primer vs último volumen
)

// HistoryPoint es una observación de precio/volumen de un símbolo.
type HistoryPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
}

// PriceTrend clasifica la evolución del precio en el buffer.
type PriceTrend string

const (
	PriceRising   PriceTrend = "rising"
	PriceFalling  PriceTrend = "falling"
	PriceFlat     PriceTrend = "flat"
	PriceVolatile PriceTrend = "volatile"
	PriceUnknown  PriceTrend = "unknown"
)

// VolumeTrend clasifica la evolución del volumen en el buffer.
type VolumeTrend string

const (
	VolumeSurging  VolumeTrend = "surging"
	VolumeDropping VolumeTrend = "dropping"
	VolumeSteady   VolumeTrend = "steady"
	VolumeUnknown  VolumeTrend = "unknown"
)

// Trend agrupa ambas clasificaciones.
type Trend struct {
	Price  PriceTrend
	Volume VolumeTrend
}

// AppendBounded añade p al final y descarta los más antiguos si se supera la capacidad.
// Nunca modifica el slice de entrada.
func AppendBounded(points []HistoryPoint, p HistoryPoint) []HistoryPoint {
	out := make([]HistoryPoint, 0, len(points)+1)
	out = append(out, points...)
	out = append(out, p)
	if len(out) > HistoryCapacity {
		out = out[len(out)-HistoryCapacity:]
	}
	return out
}

// ClassifyTrend calcula la tendencia de precio y volumen sobre el buffer.
func ClassifyTrend(points []HistoryPoint) Trend {
	return Trend{
		Price:  classifyPrice(points),
		Volume: classifyVolume(points),
	}
}

func classifyPrice(points []HistoryPoint) PriceTrend {
	if len(points) < 2 {
		return PriceUnknown
	}

	first, last := points[0].Price, points[len(points)-1].Price
	pct := relDelta(first, last)

	// Justo en el umbral (±1% exacto) no hay clasificación.
	trend := PriceUnknown
	switch {
	case math.Abs(pct) < flatPriceThreshold:
		trend = PriceFlat
	case pct > flatPriceThreshold:
		trend = PriceRising
	case pct < -flatPriceThreshold:
		trend = PriceFalling
	}

	if len(points) >= 3 {
		prices := make([]float64, len(points))
		for i, p := range points {
			prices[i] = p.Price
		}
		if sampleStdev(prices) > volatileStdevRatio*mean(prices) {
			trend = PriceVolatile
		}
	}
	return trend
}

func classifyVolume(points []HistoryPoint) VolumeTrend {
	if len(points) < 2 {
		return VolumeUnknown
	}

	pct := relDelta(points[0].Volume, points[len(points)-1].Volume)
	switch {
	case math.Abs(pct) < steadyVolumeThreshold:
		return VolumeSteady
	case pct > steadyVolumeThreshold:
		return VolumeSurging
	case pct < -steadyVolumeThreshold:
		return VolumeDropping
	default:
		return VolumeUnknown
	}
}

// relDelta devuelve (last-first)/first, o 0 si first es 0.
func relDelta(first, last float64) float64 {
	if first == 0 {
		return 0
	}
	return (last - first) / first
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStdev usa n-1 en el denominador.
func sampleStdev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	ss := 0.0
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}
