package drivers

import (
	"testing"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
)

func driver(dir models.Direction, impact float64) models.Driver {
	return models.Driver{Type: models.DriverCorrelation, Name: string(dir), Direction: dir, Impact: impact}
}

func TestAggregateBiasDirectional(t *testing.T) {
	bias := AggregateBias([]models.Driver{
		driver(models.Bullish, 10),
		driver(models.Bearish, 3),
	})
	assert.Equal(t, models.Bullish, bias.Direction)
	assert.Equal(t, 77, bias.Confidence)
	assert.Equal(t, 10.0, bias.BullishScore)
	assert.Equal(t, 3.0, bias.BearishScore)
	assert.NotEmpty(t, bias.Summary)
}

func TestAggregateBiasMixed(t *testing.T) {
	bias := AggregateBias([]models.Driver{
		driver(models.Bullish, 5),
		driver(models.Bearish, 5),
	})
	assert.Equal(t, models.Mixed, bias.Direction)
	assert.Equal(t, 50, bias.Confidence)
}

func TestAggregateBiasJustInsideMixedBand(t *testing.T) {
	// 65/35 is not strictly above the band, so the read stays mixed.
	bias := AggregateBias([]models.Driver{
		driver(models.Bullish, 65),
		driver(models.Bearish, 35),
	})
	assert.Equal(t, models.Mixed, bias.Direction)
	assert.Equal(t, 65, bias.Confidence)
}

func TestAggregateBiasEmpty(t *testing.T) {
	bias := AggregateBias(nil)
	assert.Equal(t, models.Neutral, bias.Direction)
	assert.Equal(t, 50, bias.Confidence)
}

func TestAggregateBiasIgnoresNeutralDrivers(t *testing.T) {
	bias := AggregateBias([]models.Driver{
		driver(models.Neutral, 100),
		driver(models.Bullish, 1),
	})
	assert.Equal(t, models.Bullish, bias.Direction)
	assert.Equal(t, 100, bias.Confidence)
}

func TestAggregateBiasDeterministic(t *testing.T) {
	in := []models.Driver{
		driver(models.Bullish, 4),
		driver(models.Bearish, 9),
		driver(models.Bullish, 2),
	}
	assert.Equal(t, AggregateBias(in), AggregateBias(in))
}
