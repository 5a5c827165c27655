// Package gaia implementa ports.DecisionOracle sobre un endpoint de chat
// compatible con OpenAI (/chat/completions).
package gaia

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/easel/internal/adapters/httpapi"
	"github.com/alejandrodnm/easel/internal/domain"
)

const systemPrompt = "You are a narrative-driven, contrarian market psychologist. " +
	"Respond ONLY in valid JSON with the keys asset, action (Buy, Sell or Hold), amount, reason and confidence (0 to 1)."

// Config del oráculo.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Oracle pide decisiones al modelo y las valida con domain.DecisionFromPayload.
type Oracle struct {
	client *httpapi.Client
	cfg    Config
}

// NewOracle crea un Oracle. Los LLM tardan: el timeout por defecto es 60s.
func NewOracle(cfg Config) *Oracle {
	if cfg.Model == "" {
		cfg.Model = "llama"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Oracle{
		client: httpapi.NewClient(httpapi.Options{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			RatePerSec: 1,
			Timeout:    cfg.Timeout,
		}),
		cfg: cfg,
	}
}

// NewOracleWithClient permite inyectar un cliente (tests).
func NewOracleWithClient(client *httpapi.Client, cfg Config) *Oracle {
	o := NewOracle(cfg)
	o.client = client
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Decide implementa ports.DecisionOracle. Solo devuelve error si falla la llamada:
// una respuesta que no se puede validar se degrada a Hold.
func (o *Oracle) Decide(ctx context.Context, prompt string) (domain.Decision, error) {
	req := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}

	var resp chatResponse
	if err := o.client.Post(ctx, "/chat/completions", req, &resp); err != nil {
		return domain.Decision{}, fmt.Errorf("gaia.Decide: %w", err)
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}

	d := domain.DecisionFromPayload(content)
	if d.Degraded {
		slog.Warn("oracle response degraded to hold", "payload", content)
	}
	return d, nil
}
