package drivers

import (
	"fmt"
	"math"

	"MarketPulse/internal/domain/models"
)

// classifyPct is the winning-share band above which the bias is directional
// rather than mixed.
const classifyPct = 65.0

// AggregateBias reduces a driver list to a single net bias. Pure and
// deterministic: no time dependency, no randomness. Neutral drivers
// contribute to neither score.
func AggregateBias(driverList []models.Driver) models.NetBias {
	var bullish, bearish float64
	var bullCount, bearCount int
	for _, d := range driverList {
		switch d.Direction {
		case models.Bullish:
			bullish += d.Impact
			bullCount++
		case models.Bearish:
			bearish += d.Impact
			bearCount++
		}
	}

	total := bullish + bearish
	if total == 0 {
		return models.NetBias{
			Direction:  models.Neutral,
			Confidence: 50,
			Summary:    "no strong drivers active",
		}
	}

	bullishPct := bullish / total * 100
	bearishPct := bearish / total * 100
	winning := math.Max(bullishPct, bearishPct)

	bias := models.NetBias{
		BullishScore: bullish,
		BearishScore: bearish,
		Confidence:   int(math.Round(winning)),
	}
	switch {
	case bullishPct > classifyPct:
		bias.Direction = models.Bullish
		bias.Summary = fmt.Sprintf("%d bullish drivers outweigh %d bearish", bullCount, bearCount)
	case bearishPct > classifyPct:
		bias.Direction = models.Bearish
		bias.Summary = fmt.Sprintf("%d bearish drivers outweigh %d bullish", bearCount, bullCount)
	default:
		bias.Direction = models.Mixed
		bias.Summary = fmt.Sprintf("mixed tape: %d bullish vs %d bearish drivers", bullCount, bearCount)
	}
	return bias
}
