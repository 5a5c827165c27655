package domain

import (
	"fmt"
	"math/rand"
	"strings"
)

// onChainFlavors son las frases que se añaden cuando hay actividad on-chain.
var onChainFlavors = []string{
	"On-chain activity flickers at the edges, hinting at hidden currents.",
	"Blockchain flows ripple beneath the surface, subtle but persistent.",
	"Smart contract calls add texture, like impasto on a painted surface.",
	"NFT transfers sparkle like flecks of gold in the paint.",
}

var volumeFlavors = map[VolumeTrend]string{
	VolumeSurging:  "Volume surges in bold strokes, amplifying the movement.",
	VolumeDropping: "Volume fades, colors thinning as the energy wanes.",
	VolumeSteady:   "Volume remains steady, a gentle rhythm beneath the surface.",
	VolumeUnknown:  "Volume is an underpainting, subtle and subdued.",
}

// Narrator convierte una tendencia en la descripción textual que recibe el oráculo.
// La fuente aleatoria se inyecta para que la narración sea determinista en tests.
type Narrator struct {
	rng *rand.Rand
}

// NewNarrator crea un Narrator. Si rng es nil se usa una fuente con semilla 1.
func NewNarrator(rng *rand.Rand) *Narrator {
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Narrator{rng: rng}
}

// Narrate compone: metáfora de precio + sabor de volumen + (opcional) frase on-chain.
func (n *Narrator) Narrate(symbol string, trend Trend, onChainPresent bool) string {
	parts := []string{priceMetaphor(symbol, trend.Price)}

	vol, ok := volumeFlavors[trend.Volume]
	if !ok {
		vol = volumeFlavors[VolumeUnknown]
	}
	parts = append(parts, vol)

	if onChainPresent {
		parts = append(parts, onChainFlavors[n.rng.Intn(len(onChainFlavors))])
	}
	return strings.Join(parts, " ")
}

func priceMetaphor(symbol string, t PriceTrend) string {
	switch t {
	case PriceRising:
		return fmt.Sprintf("The chart for %s forms a rising spiral, like smoke from a bonfire; momentum building steadily.", symbol)
	case PriceFalling:
		return fmt.Sprintf("The chart for %s drips downward, like paint running from a canvas; energy dissipating.", symbol)
	case PriceVolatile:
		return fmt.Sprintf("%s whirls in a storm of brushstrokes, price and volume clashing in vivid bursts.", symbol)
	case PriceFlat:
		return fmt.Sprintf("%s rests in muted tones, the market calm and still as a pond at dawn.", symbol)
	default:
		return fmt.Sprintf("The market for %s is a blank canvas, awaiting the first stroke.", symbol)
	}
}
