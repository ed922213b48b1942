package drivers

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := NewDetector(DefaultTable())
	require.NoError(t, err)
	return d
}

func obs(name string, changePct float64) models.Observation {
	return models.Observation{Name: name, ChangePercent: changePct}
}

func TestDetectInversePolarity(t *testing.T) {
	d := newTestDetector(t)

	// VIX up 8% with weight 2.0 is a bearish driver of impact 16.
	out := d.Detect(map[string]models.Observation{"VIX": obs("VIX", 8)}, nil, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, "VIX", out[0].Name)
	assert.Equal(t, models.Bearish, out[0].Direction)
	assert.InDelta(t, 16.0, out[0].Impact, 1e-9)

	// Falling VIX flips bullish.
	out = d.Detect(map[string]models.Observation{"VIX": obs("VIX", -5)}, nil, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, models.Bullish, out[0].Direction)
}

func TestDetectThresholdBoundary(t *testing.T) {
	d := newTestDetector(t)

	// Exactly at threshold fires.
	out := d.Detect(map[string]models.Observation{"VIX": obs("VIX", 2.0)}, nil, time.Now())
	assert.Len(t, out, 1)

	// Just under is dropped silently, not emitted as neutral.
	out = d.Detect(map[string]models.Observation{"VIX": obs("VIX", 1.99)}, nil, time.Now())
	assert.Empty(t, out)
}

func TestDetectBasisPoints(t *testing.T) {
	d := newTestDetector(t)

	bps := 3.0
	o := models.Observation{Name: "US10Y", ChangeAbsolute: 0.03, ChangePercent: 0.7, ChangeBasisPoints: &bps}
	out := d.Detect(map[string]models.Observation{"US10Y": o}, nil, time.Now())
	require.Len(t, out, 1)
	// Yields up is risk-off; impact uses the bps change, not the percent.
	assert.Equal(t, models.Bearish, out[0].Direction)
	assert.InDelta(t, 4.5, out[0].Impact, 1e-9)

	// Without the bps field the yield rule cannot evaluate.
	out = d.Detect(map[string]models.Observation{"US10Y": obs("US10Y", 0.7)}, nil, time.Now())
	assert.Empty(t, out)
}

func TestDetectOrderingAndDeterminism(t *testing.T) {
	d := newTestDetector(t)

	in := map[string]models.Observation{
		"VIX":  obs("VIX", 3),    // impact 6
		"DXY":  obs("DXY", -0.5), // impact 1.5, bullish
		"NVDA": obs("NVDA", 4),   // impact 3.2
	}
	first := d.Detect(in, nil, time.Now())
	require.Len(t, first, 3)
	assert.Equal(t, []string{"VIX", "Nvidia", "Dollar Index"},
		[]string{first[0].Name, first[1].Name, first[2].Name})

	// Same input, same output.
	second := d.Detect(in, nil, time.Now())
	assert.Equal(t, first, second)
}

func TestDetectBreadthDivergence(t *testing.T) {
	d := newTestDetector(t)

	in := map[string]models.Observation{
		"RUT": obs("RUT", 1.2),
		"SPX": obs("SPX", 0.2),
	}
	out := d.Detect(in, nil, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, models.DriverDivergence, out[0].Type)
	assert.Equal(t, "Small Caps vs Broad", out[0].Name)
	assert.Equal(t, models.Bullish, out[0].Direction)
	assert.InDelta(t, 2.0, out[0].Impact, 1e-9)

	// Small caps lagging narrows breadth.
	in["RUT"] = obs("RUT", -1.0)
	out = d.Detect(in, nil, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, models.Bearish, out[0].Direction)
}

func TestDetectNeutralDivergence(t *testing.T) {
	d := newTestDetector(t)

	in := map[string]models.Observation{
		"NDX": obs("NDX", 1.5),
		"SPX": obs("SPX", 0.2),
	}
	out := d.Detect(in, nil, time.Now())
	require.Len(t, out, 1)
	assert.Equal(t, models.Neutral, out[0].Direction)
}

func TestDetectNewsWindows(t *testing.T) {
	d := newTestDetector(t)
	now := time.Now()

	news := []models.NewsItem{
		{Headline: "fresh high", Impact: models.NewsImpactHigh, Sentiment: models.Bearish, PublishedAt: now.Add(-10 * time.Minute)},
		{Headline: "stale high", Impact: models.NewsImpactHigh, Sentiment: models.Bearish, PublishedAt: now.Add(-45 * time.Minute)},
		{Headline: "fresh medium", Impact: models.NewsImpactMedium, Sentiment: models.Bullish, PublishedAt: now.Add(-5 * time.Minute)},
		{Headline: "stale medium", Impact: models.NewsImpactMedium, Sentiment: models.Bullish, PublishedAt: now.Add(-20 * time.Minute)},
		{Headline: "low never scores", Impact: models.NewsImpactLow, Sentiment: models.Bullish, PublishedAt: now},
	}
	out := d.Detect(nil, news, now)
	require.Len(t, out, 2)
	assert.Equal(t, "fresh high", out[0].Name)
	assert.InDelta(t, 5.0, out[0].Impact, 1e-9)
	assert.Equal(t, "fresh medium", out[1].Name)
	assert.InDelta(t, 3.0, out[1].Impact, 1e-9)
}

func TestTableValidation(t *testing.T) {
	bad := DefaultTable()
	bad.Rules[0].Threshold = -1
	_, err := NewDetector(bad)
	assert.Error(t, err)

	bad = DefaultTable()
	bad.Rules = append(bad.Rules, bad.Rules[0])
	_, err = NewDetector(bad)
	assert.Error(t, err)

	bad = DefaultTable()
	bad.TopN = 0
	_, err = NewDetector(bad)
	assert.Error(t, err)
}
