package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/easel/internal/domain"
	"github.com/dustin/go-humanize"
)

// NarratedAsset pairs a ranked asset with its trend narration.
type NarratedAsset struct {
	Scored    domain.ScoredAsset
	Narrative string
}

// DefaultEcosystemSummary is used when no summary is configured.
func DefaultEcosystemSummary(now time.Time) string {
	return fmt.Sprintf("As of %s, Ethereum's DeFi and token landscape is vibrant and ever-shifting.",
		now.UTC().Format("2006-01-02 15:04 UTC"))
}

// BuildPrompt assembles the oracle context: ecosystem summary, one line per
// top asset with its narration, and the closing question.
func BuildPrompt(summary string, now time.Time, assets []NarratedAsset) string {
	if strings.TrimSpace(summary) == "" {
		summary = DefaultEcosystemSummary(now)
	}

	var sb strings.Builder
	sb.WriteString(summary)
	sb.WriteString("\nHere are the most visually interesting assets today:\n")
	for _, na := range assets {
		sb.WriteString(assetLine(na.Scored.Asset))
		if na.Narrative != "" {
			sb.WriteString(" ")
			sb.WriteString(na.Narrative)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Which asset should I trade next? Should I buy, sell, or hold, and how much? ")
	sb.WriteString("Respond in JSON with asset, action, amount, confidence, and a painterly reason.")
	return sb.String()
}

func assetLine(a domain.AssetSnapshot) string {
	name := a.Name
	if name == "" {
		name = a.Symbol
	}
	return fmt.Sprintf("%s (%s) trades at $%.2f with a 24h change of %+.2f%%. Volume swells to %s, volatility dances between %.2f and %.2f.",
		name, strings.ToUpper(a.Symbol), a.Price, a.PriceChangePct,
		humanize.Comma(int64(a.Volume)), a.Low24h, a.High24h)
}
