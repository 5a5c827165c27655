package recall

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/alejandrodnm/easel/internal/ports"
)

// enrichWorkers acota las consultas token-info simultáneas; el rate limiter
// del cliente sigue mandando sobre el ritmo real.
const enrichWorkers = 4

type tokenInfoResponse struct {
	Success bool           `json:"success"`
	OnChain map[string]any `json:"on_chain"`
}

// HasOnChainActivity consulta /price/token-info y devuelve true si el token
// reporta algún dato on-chain.
func (c *Client) HasOnChainActivity(ctx context.Context, address, chain, specificChain string) (bool, error) {
	q := url.Values{"token": {address}}
	if chain != "" {
		q.Set("chain", chain)
	}
	if specificChain != "" {
		q.Set("specificChain", specificChain)
	}

	var resp tokenInfoResponse
	if err := c.http.Get(ctx, "/price/token-info", q, &resp); err != nil {
		return false, fmt.Errorf("recall.HasOnChainActivity: %s: %w", address, err)
	}
	return len(resp.OnChain) > 0, nil
}

// OnChainEnricher decora un MarketDataProvider marcando OnChainActivity en los
// snapshots cuyos símbolos están en el portfolio. Un fallo al consultar un token
// se loguea y deja la marca en false: la narración no depende de ella.
type OnChainEnricher struct {
	inner         ports.MarketDataProvider
	client        *Client
	chain         string
	specificChain string
	workers       int
}

// NewOnChainEnricher envuelve inner.
func NewOnChainEnricher(inner ports.MarketDataProvider, client *Client, chain, specificChain string) *OnChainEnricher {
	return &OnChainEnricher{inner: inner, client: client, chain: chain, specificChain: specificChain, workers: enrichWorkers}
}

// FetchSnapshots implementa ports.MarketDataProvider.
func (e *OnChainEnricher) FetchSnapshots(ctx context.Context) ([]domain.AssetSnapshot, error) {
	snaps, err := e.inner.FetchSnapshots(ctx)
	if err != nil {
		return nil, err
	}

	tokens, err := e.client.FetchTokens(ctx)
	if err != nil {
		slog.Warn("on-chain enrichment skipped", "err", err)
		return snaps, nil
	}

	type work struct {
		idx     int
		address string
	}
	workCh := make(chan work, len(snaps))
	for i := range snaps {
		tok, err := domain.ResolveAsset(snaps[i].Symbol, tokens)
		if err != nil {
			continue
		}
		workCh <- work{idx: i, address: tok.TradableID}
	}
	queued := len(workCh)
	close(workCh)

	// Cada worker escribe solo en su índice: no hace falta lock sobre snaps.
	var wg sync.WaitGroup
	for i := 0; i < min(e.workers, queued); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				active, err := e.client.HasOnChainActivity(ctx, w.address, e.chain, e.specificChain)
				if err != nil {
					slog.Warn("token info failed", "symbol", snaps[w.idx].Symbol, "err", err)
					continue
				}
				snaps[w.idx].OnChainActivity = active
			}
		}()
	}
	wg.Wait()

	slog.Debug("on-chain enrichment complete", "snapshots", len(snaps), "queried", queued, "workers", e.workers)
	return snaps, nil
}
