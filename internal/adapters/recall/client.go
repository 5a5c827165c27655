// Package recall es el adapter de la API sandbox de Recall: portfolio del agente,
// ejecución de swaps e información on-chain de tokens.
package recall

import (
	"github.com/alejandrodnm/easel/internal/adapters/httpapi"
)

const (
	// DefaultBaseURL es el entorno sandbox de competiciones.
	DefaultBaseURL = "https://api.sandbox.competitions.recall.network/api"

	ratePerSec = 5
)

// Client agrupa las llamadas a Recall sobre un httpapi.Client autenticado.
type Client struct {
	http *httpapi.Client
}

// NewClient crea un Client autenticado con apiKey.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: httpapi.NewClient(httpapi.Options{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		RatePerSec: ratePerSec,
		Burst:      5,
	})}
}

// NewClientWithHTTP permite inyectar el cliente HTTP (tests).
func NewClientWithHTTP(h *httpapi.Client) *Client {
	return &Client{http: h}
}
