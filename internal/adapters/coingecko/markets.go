// Package coingecko implementa ports.MarketDataProvider sobre /coins/markets.
package coingecko

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alejandrodnm/easel/internal/adapters/httpapi"
	"github.com/alejandrodnm/easel/internal/domain"
)

const (
	// DefaultBaseURL es la API pública v3.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"

	// Plan gratuito: ~30 req/min. Se usa la mitad.
	ratePerSec = 0.25
)

// Config selecciona los activos a consultar.
// Si IDs está vacío se piden los PerPage activos de Category con más volumen.
type Config struct {
	BaseURL    string
	APIKey     string
	VsCurrency string
	IDs        []string
	Category   string
	PerPage    int
}

// Provider consulta CoinGecko una vez por ciclo.
type Provider struct {
	client *httpapi.Client
	cfg    Config
}

// NewProvider crea un Provider con rate limiting propio.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.VsCurrency == "" {
		cfg.VsCurrency = "usd"
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = 50
	}
	return &Provider{
		client: httpapi.NewClient(httpapi.Options{
			BaseURL:    cfg.BaseURL,
			RatePerSec: ratePerSec,
			Burst:      2,
		}),
		cfg: cfg,
	}
}

// NewProviderWithClient permite inyectar un cliente (tests).
func NewProviderWithClient(client *httpapi.Client, cfg Config) *Provider {
	p := NewProvider(cfg)
	p.client = client
	return p
}

// marketRow es una fila de /coins/markets. Los números pueden venir null.
type marketRow struct {
	ID                       string   `json:"id"`
	Symbol                   string   `json:"symbol"`
	Name                     string   `json:"name"`
	CurrentPrice             *float64 `json:"current_price"`
	TotalVolume              *float64 `json:"total_volume"`
	High24h                  *float64 `json:"high_24h"`
	Low24h                   *float64 `json:"low_24h"`
	PriceChangePercentage24h *float64 `json:"price_change_percentage_24h"`
}

// FetchSnapshots implementa ports.MarketDataProvider.
func (p *Provider) FetchSnapshots(ctx context.Context) ([]domain.AssetSnapshot, error) {
	q := url.Values{}
	q.Set("vs_currency", p.cfg.VsCurrency)
	q.Set("order", "volume_desc")
	q.Set("page", "1")
	q.Set("price_change_percentage", "24h")
	if len(p.cfg.IDs) > 0 {
		q.Set("ids", strings.Join(p.cfg.IDs, ","))
		q.Set("per_page", strconv.Itoa(len(p.cfg.IDs)))
	} else {
		q.Set("per_page", strconv.Itoa(p.cfg.PerPage))
		if p.cfg.Category != "" {
			q.Set("category", p.cfg.Category)
		}
	}
	if p.cfg.APIKey != "" {
		q.Set("x_cg_demo_api_key", p.cfg.APIKey)
	}

	var rows []marketRow
	if err := p.client.Get(ctx, "/coins/markets", q, &rows); err != nil {
		return nil, fmt.Errorf("coingecko.FetchSnapshots: %w", err)
	}

	snaps := make([]domain.AssetSnapshot, 0, len(rows))
	for _, r := range rows {
		if r.Symbol == "" {
			continue
		}
		snaps = append(snaps, domain.AssetSnapshot{
			Symbol:         strings.ToUpper(r.Symbol),
			Name:           r.Name,
			Price:          orZero(r.CurrentPrice),
			Volume:         orZero(r.TotalVolume),
			High24h:        orZero(r.High24h),
			Low24h:         orZero(r.Low24h),
			PriceChangePct: orZero(r.PriceChangePercentage24h),
		})
	}
	return snaps, nil
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
