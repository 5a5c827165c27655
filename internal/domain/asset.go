package domain

import "strings"

// AssetSnapshot es el estado de mercado de un activo en el ciclo actual.
// Se refresca en cada ciclo; los campos numéricos ausentes llegan como 0.
type AssetSnapshot struct {
	Symbol          string
	Name            string
	Price           float64
	Volume          float64 // volumen 24h en la moneda de cotización
	High24h         float64
	Low24h          float64
	PriceChangePct  float64 // variación 24h en porcentaje (+3.2 = +3.2%)
	OnChainActivity bool    // true si el proveedor reporta actividad on-chain
}

// ScoredAsset empareja un snapshot con su score heurístico.
type ScoredAsset struct {
	Asset AssetSnapshot
	Score float64
}

// PortfolioToken es un activo operable conocido por la contraparte.
type PortfolioToken struct {
	Symbol      string
	DisplayName string
	TradableID  string // dirección del token en la contraparte
}

// ResolveAsset traduce la referencia libre del oráculo a un token operable.
//
// Orden de búsqueda:
//  1. símbolo exacto, sin distinguir mayúsculas
//  2. la referencia como substring del nombre visible, sin distinguir mayúsculas
//
// Devuelve ErrUnresolvedAsset si ninguno coincide.
func ResolveAsset(ref string, tokens []PortfolioToken) (PortfolioToken, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return PortfolioToken{}, ErrUnresolvedAsset
	}

	for _, t := range tokens {
		if strings.EqualFold(t.Symbol, ref) {
			return t, nil
		}
	}

	lower := strings.ToLower(ref)
	for _, t := range tokens {
		if t.DisplayName != "" && strings.Contains(strings.ToLower(t.DisplayName), lower) {
			return t, nil
		}
	}
	return PortfolioToken{}, ErrUnresolvedAsset
}
