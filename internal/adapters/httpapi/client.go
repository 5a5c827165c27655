// Package httpapi es el cliente JSON compartido por los adapters HTTP
// (CoinGecko, Gaia, Recall): rate limiting, retries con backoff y auth Bearer.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	baseRetryWait  = 500 * time.Millisecond
)

// Options configura un Client. Los campos a cero usan valores por defecto.
type Options struct {
	BaseURL    string
	APIKey     string        // si no está vacío se envía como "Authorization: Bearer <key>"
	RatePerSec float64       // 0 → sin límite
	Burst      int           // 0 → 1
	Timeout    time.Duration // 0 → 10s
	RetryWait  time.Duration // 0 → 500ms; base del backoff exponencial
}

// Client es un HTTP client JSON con rate limiting y retries.
type Client struct {
	http      *http.Client
	base      string
	apiKey    string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// NewClient crea un Client. BaseURL se usa como prefijo de todas las rutas.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	retryWait := opts.RetryWait
	if retryWait == 0 {
		retryWait = baseRetryWait
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		base:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		limiter:   rate.NewLimiter(limit, burst),
		retryWait: retryWait,
	}
}

// Get hace un GET con rate limiting y retries.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.doWithRetry(ctx, maxRetries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

// Post hace un POST JSON con rate limiting y retries.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.post(ctx, maxRetries, path, body, out)
}

// PostOnce hace un POST JSON sin reintentos. Para operaciones no idempotentes
// como la ejecución de un trade.
func (c *Client) PostOnce(ctx context.Context, path string, body, out any) error {
	return c.post(ctx, 0, path, body, out)
}

func (c *Client) post(ctx context.Context, retries int, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}
	return c.doWithRetry(ctx, retries, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setHeaders(req)
		return c.http.Do(req)
	}, out)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// doWithRetry ejecuta la función con backoff exponencial, respetando el contexto.
func (c *Client) doWithRetry(ctx context.Context, retries int, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == retries {
				return fmt.Errorf("request failed after %d retries: %w", retries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			slog.Warn("rate limited by API", "host", resp.Request.URL.Host, "attempt", attempt+1)
			if attempt == retries {
				return fmt.Errorf("rate limited after %d retries", retries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == retries {
				return fmt.Errorf("server error %d after %d retries", resp.StatusCode, retries)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", retries)
}

// sleep espera con backoff exponencial, respetando el contexto.
func (c *Client) sleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * c.retryWait
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
