package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_Valid(t *testing.T) {
	d, err := ParseDecision(`{"asset":"SOL","action":"buy","amount":2,"reason":"spiral","confidence":0.8}`)
	require.NoError(t, err)
	assert.Equal(t, "SOL", d.Asset)
	assert.Equal(t, ActionBuy, d.Action)
	assert.Equal(t, 2.0, d.Amount)
	assert.Equal(t, "spiral", d.Reason)
	require.NotNil(t, d.Confidence)
	assert.InDelta(t, 0.8, *d.Confidence, 1e-9)
}

func TestParseDecision_MarkdownFenceAndStringAmount(t *testing.T) {
	payload := "Here you go:\n```json\n{\"asset\":\"ETH\",\"action\":\"SELL\",\"amount\":\"1.5\",\"reason\":\"fading\"}\n```"
	d, err := ParseDecision(payload)
	require.NoError(t, err)
	assert.Equal(t, ActionSell, d.Action)
	assert.Equal(t, 1.5, d.Amount)
	assert.Nil(t, d.Confidence)
}

func TestParseDecision_HoldNeedsNoAmount(t *testing.T) {
	d, err := ParseDecision(`{"action":"Hold","reason":"calm"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionHold, d.Action)
	assert.Equal(t, 0.0, d.Amount)
}

func TestParseDecision_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          "I think you should buy SOL",
		"broken json":       `{"asset":"SOL",`,
		"unknown action":    `{"asset":"SOL","action":"moon","amount":1}`,
		"buy without asset": `{"action":"buy","amount":1}`,
		"zero amount":       `{"asset":"SOL","action":"buy","amount":0}`,
		"missing amount":    `{"asset":"SOL","action":"sell"}`,
		"garbage amount":    `{"asset":"SOL","action":"sell","amount":"lots"}`,
		"infinite amount":   `{"asset":"SOL","action":"Buy","amount":"Inf"}`,
		"infinity amount":   `{"asset":"SOL","action":"Buy","amount":"Infinity"}`,
		"NaN amount":        `{"asset":"SOL","action":"Sell","amount":"NaN"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDecision(payload)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedDecision))
		})
	}
}

func TestDecisionFromPayload_NonFiniteAmountIsHold(t *testing.T) {
	d := DecisionFromPayload(`{"asset":"SOL","action":"Buy","amount":"Inf"}`)
	assert.Equal(t, ActionHold, d.Action)
	assert.True(t, d.Degraded)
}

func TestParseDecision_OutOfRangeConfidenceIsZero(t *testing.T) {
	d, err := ParseDecision(`{"asset":"SOL","action":"buy","amount":1,"confidence":7}`)
	require.NoError(t, err)
	require.NotNil(t, d.Confidence)
	assert.Equal(t, 0.0, *d.Confidence)
}

func TestDecisionFromPayload_DegradesToHold(t *testing.T) {
	d := DecisionFromPayload("the canvas is blank")
	assert.Equal(t, ActionHold, d.Action)
	assert.True(t, d.Degraded)
	assert.Contains(t, d.Reason, "the canvas is blank")
}

func TestResolveAsset(t *testing.T) {
	tokens := []PortfolioToken{
		{Symbol: "USDC", DisplayName: "USD Coin", TradableID: "0xusdc"},
		{Symbol: "SOL", DisplayName: "Wrapped Solana", TradableID: "0xsol"},
		{Symbol: "WETH", DisplayName: "Wrapped Ether", TradableID: "0xweth"},
	}

	t.Run("exact symbol case-insensitive", func(t *testing.T) {
		tok, err := ResolveAsset("sol", tokens)
		require.NoError(t, err)
		assert.Equal(t, "0xsol", tok.TradableID)
	})

	t.Run("symbol match wins over name match", func(t *testing.T) {
		tok, err := ResolveAsset("USDC", tokens)
		require.NoError(t, err)
		assert.Equal(t, "USDC", tok.Symbol)
	})

	t.Run("substring of display name", func(t *testing.T) {
		tok, err := ResolveAsset("ether", tokens)
		require.NoError(t, err)
		assert.Equal(t, "WETH", tok.Symbol)
	})

	t.Run("no match", func(t *testing.T) {
		_, err := ResolveAsset("DOGE", tokens)
		assert.ErrorIs(t, err, ErrUnresolvedAsset)
	})

	t.Run("empty reference", func(t *testing.T) {
		_, err := ResolveAsset("  ", tokens)
		assert.ErrorIs(t, err, ErrUnresolvedAsset)
	})
}
