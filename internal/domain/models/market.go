package models

import "time"

// Observation is a normalized snapshot of one external metric, produced fresh
// per aggregation cycle.
type Observation struct {
	Name              string   `json:"name"`
	Symbol            string   `json:"symbol,omitempty"`
	Value             float64  `json:"value"`
	ChangeAbsolute    float64  `json:"changeAbsolute"`
	ChangePercent     float64  `json:"changePercent"`
	ChangeBasisPoints *float64 `json:"changeBasisPoints,omitempty"`
}

// Direction of a driver or of the net bias.
type Direction string

const (
	Bullish Direction = "BULLISH"
	Bearish Direction = "BEARISH"
	Mixed   Direction = "MIXED"
	Neutral Direction = "NEUTRAL"
)

// DriverType classifies what kind of signal produced a driver.
type DriverType string

const (
	DriverCorrelation   DriverType = "CORRELATION"
	DriverDivergence    DriverType = "DIVERGENCE"
	DriverInternational DriverType = "INTERNATIONAL"
	DriverSector        DriverType = "SECTOR"
	DriverMag7          DriverType = "MAG7"
	DriverNews          DriverType = "NEWS"
)

// Driver is one detected market-moving signal. Impact is a ranking key, not a
// probability.
type Driver struct {
	Type        DriverType   `json:"type"`
	Name        string       `json:"name"`
	Direction   Direction    `json:"direction"`
	Impact      float64      `json:"impact"`
	Reason      string       `json:"reason"`
	Observation *Observation `json:"observation,omitempty"`
}

// NetBias is the single aggregated directional read derived from a driver
// list.
type NetBias struct {
	Direction    Direction `json:"direction"`
	Confidence   int       `json:"confidence"`
	BullishScore float64   `json:"bullishScore"`
	BearishScore float64   `json:"bearishScore"`
	Summary      string    `json:"summary"`
}

// NewsImpact is the pre-assigned impact tag on a headline.
type NewsImpact string

const (
	NewsImpactHigh   NewsImpact = "high"
	NewsImpactMedium NewsImpact = "medium"
	NewsImpactLow    NewsImpact = "low"
)

// NewsItem is a session-filtered headline as delivered by the news provider.
// Tagging (impact, sentiment, categories) happens upstream.
type NewsItem struct {
	ID          string     `json:"id"`
	Headline    string     `json:"headline"`
	Source      string     `json:"source,omitempty"`
	Impact      NewsImpact `json:"impact"`
	Sentiment   Direction  `json:"sentiment"`
	Categories  []string   `json:"categories,omitempty"`
	PublishedAt time.Time  `json:"publishedAt"`
}

// ReportEvent is one scheduled economic release.
type ReportEvent struct {
	Name        string    `json:"name"`
	Importance  string    `json:"importance"`
	ScheduledAt time.Time `json:"scheduledAt"`
}
