package drivers

import (
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
)

// ChangeBasis selects which change field of an observation a rule compares
// against its threshold.
type ChangeBasis string

const (
	BasisPercent     ChangeBasis = "percent"
	BasisAbsolute    ChangeBasis = "absolute"
	BasisBasisPoints ChangeBasis = "bps"
)

// Polarity maps the sign of a metric's change to a direction for
// equity-correlated risk assets. Each metric's polarity is a fixed
// configuration fact, never inferred at runtime.
type Polarity string

const (
	// PolarityDirect: metric up is risk-on (sector ETFs, single names,
	// high-yield credit).
	PolarityDirect Polarity = "direct"
	// PolarityInverse: metric up is risk-off (VIX, yields, dollar, safe-haven
	// currencies).
	PolarityInverse Polarity = "inverse"
)

// Rule is the per-metric detection entry: minimum magnitude, ranking weight,
// polarity, and driver class.
type Rule struct {
	Metric    string            `yaml:"metric"`
	Label     string            `yaml:"label"`
	Class     models.DriverType `yaml:"class"`
	Basis     ChangeBasis       `yaml:"basis"`
	Threshold float64           `yaml:"threshold"`
	Weight    float64           `yaml:"weight"`
	Polarity  Polarity          `yaml:"polarity"`
}

// PairKind selects how a divergence pair's spread maps to a direction.
type PairKind string

const (
	// PairNeutral: the spread signals narrowness, not direction (tech vs
	// broad market).
	PairNeutral PairKind = "neutral"
	// PairBreadth: positive spread means breadth expanding (bullish),
	// negative means narrowing (bearish). Used for small caps vs broad.
	PairBreadth PairKind = "breadth"
)

// DivergencePair compares the percent changes of two observations.
type DivergencePair struct {
	Name      string   `yaml:"name"`
	Leader    string   `yaml:"leader"`
	Base      string   `yaml:"base"`
	Threshold float64  `yaml:"threshold"`
	Weight    float64  `yaml:"weight"`
	Kind      PairKind `yaml:"kind"`
}

// NewsRule fixes the recency windows and constant impacts for news drivers.
// News impact is independent of the numeric thresholds.
type NewsRule struct {
	HighWindow   time.Duration `yaml:"high_window"`
	MediumWindow time.Duration `yaml:"medium_window"`
	HighImpact   float64       `yaml:"high_impact"`
	MediumImpact float64       `yaml:"medium_impact"`
}

// Table is the full declarative threshold configuration the detector reduces
// over. Loaded once at startup and validated; a malformed table fails the
// process before serving.
type Table struct {
	Rules []Rule           `yaml:"rules"`
	Pairs []DivergencePair `yaml:"pairs"`
	News  NewsRule         `yaml:"news"`
	TopN  int              `yaml:"top_n"`
}

// DefaultTable carries the built-in metric thresholds: VIX 2.0 percentage
// points, 10Y yield 2 basis points, dollar index 0.3%, sector ETFs 0.5%
// weighted by index weighting, Mag-7 names 1.0% weighted by estimated
// index-point contribution, cross-asset spreads 0.3-0.5 points.
func DefaultTable() Table {
	return Table{
		TopN: 6,
		News: NewsRule{
			HighWindow:   30 * time.Minute,
			MediumWindow: 15 * time.Minute,
			HighImpact:   5,
			MediumImpact: 3,
		},
		Rules: []Rule{
			{Metric: "VIX", Label: "VIX", Class: models.DriverCorrelation, Basis: BasisPercent, Threshold: 2.0, Weight: 2.0, Polarity: PolarityInverse},
			{Metric: "US10Y", Label: "10Y Treasury Yield", Class: models.DriverCorrelation, Basis: BasisBasisPoints, Threshold: 2.0, Weight: 1.5, Polarity: PolarityInverse},
			{Metric: "DXY", Label: "Dollar Index", Class: models.DriverCorrelation, Basis: BasisPercent, Threshold: 0.3, Weight: 3.0, Polarity: PolarityInverse},
			{Metric: "HYG", Label: "High-Yield Credit", Class: models.DriverCorrelation, Basis: BasisPercent, Threshold: 0.3, Weight: 3.0, Polarity: PolarityDirect},
			{Metric: "USDJPY", Label: "Yen Carry", Class: models.DriverInternational, Basis: BasisPercent, Threshold: 0.3, Weight: 2.5, Polarity: PolarityDirect},
			{Metric: "NIKKEI", Label: "Nikkei 225", Class: models.DriverInternational, Basis: BasisPercent, Threshold: 0.5, Weight: 1.0, Polarity: PolarityDirect},
			{Metric: "DAX", Label: "DAX", Class: models.DriverInternational, Basis: BasisPercent, Threshold: 0.5, Weight: 1.0, Polarity: PolarityDirect},
			{Metric: "FTSE", Label: "FTSE 100", Class: models.DriverInternational, Basis: BasisPercent, Threshold: 0.5, Weight: 0.8, Polarity: PolarityDirect},

			// Sector ETFs, weight scaled by S&P index weighting.
			{Metric: "XLK", Label: "Technology", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 3.0, Polarity: PolarityDirect},
			{Metric: "XLF", Label: "Financials", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 1.3, Polarity: PolarityDirect},
			{Metric: "XLV", Label: "Health Care", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 1.2, Polarity: PolarityDirect},
			{Metric: "XLY", Label: "Consumer Discretionary", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 1.0, Polarity: PolarityDirect},
			{Metric: "XLI", Label: "Industrials", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 0.8, Polarity: PolarityDirect},
			{Metric: "XLE", Label: "Energy", Class: models.DriverSector, Basis: BasisPercent, Threshold: 0.5, Weight: 0.4, Polarity: PolarityDirect},

			// Mag-7, weight scaled by estimated index-point contribution.
			{Metric: "AAPL", Label: "Apple", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.7, Polarity: PolarityDirect},
			{Metric: "MSFT", Label: "Microsoft", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.7, Polarity: PolarityDirect},
			{Metric: "NVDA", Label: "Nvidia", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.8, Polarity: PolarityDirect},
			{Metric: "GOOGL", Label: "Alphabet", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.4, Polarity: PolarityDirect},
			{Metric: "AMZN", Label: "Amazon", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.4, Polarity: PolarityDirect},
			{Metric: "META", Label: "Meta", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.3, Polarity: PolarityDirect},
			{Metric: "TSLA", Label: "Tesla", Class: models.DriverMag7, Basis: BasisPercent, Threshold: 1.0, Weight: 0.2, Polarity: PolarityDirect},
		},
		Pairs: []DivergencePair{
			{Name: "Tech vs Broad", Leader: "NDX", Base: "SPX", Threshold: 0.5, Weight: 2.0, Kind: PairNeutral},
			{Name: "Small Caps vs Broad", Leader: "RUT", Base: "SPX", Threshold: 0.3, Weight: 2.0, Kind: PairBreadth},
		},
	}
}

// Validate rejects a table that could produce unstable or meaningless
// rankings.
func (t Table) Validate() error {
	if t.TopN <= 0 {
		return faults.Wrapf(faults.ErrInvalidConfig, "threshold table: top_n must be positive")
	}
	seen := make(map[string]bool, len(t.Rules))
	for _, r := range t.Rules {
		if r.Metric == "" {
			return faults.Wrapf(faults.ErrInvalidConfig, "threshold rule with empty metric")
		}
		if seen[r.Metric] {
			return faults.Wrapf(faults.ErrInvalidConfig, "duplicate threshold rule for %q", r.Metric)
		}
		seen[r.Metric] = true
		if r.Threshold <= 0 || r.Weight <= 0 {
			return faults.Wrapf(faults.ErrInvalidConfig, "rule %q: threshold and weight must be positive", r.Metric)
		}
		switch r.Basis {
		case BasisPercent, BasisAbsolute, BasisBasisPoints:
		default:
			return faults.Wrapf(faults.ErrInvalidConfig, "rule %q: unknown change basis %q", r.Metric, r.Basis)
		}
		switch r.Polarity {
		case PolarityDirect, PolarityInverse:
		default:
			return faults.Wrapf(faults.ErrInvalidConfig, "rule %q: unknown polarity %q", r.Metric, r.Polarity)
		}
	}
	for _, p := range t.Pairs {
		if p.Leader == "" || p.Base == "" || p.Leader == p.Base {
			return faults.Wrapf(faults.ErrInvalidConfig, "divergence pair %q: bad leader/base", p.Name)
		}
		if p.Threshold <= 0 || p.Weight <= 0 {
			return faults.Wrapf(faults.ErrInvalidConfig, "divergence pair %q: threshold and weight must be positive", p.Name)
		}
		if p.Kind != PairNeutral && p.Kind != PairBreadth {
			return faults.Wrapf(faults.ErrInvalidConfig, "divergence pair %q: unknown kind %q", p.Name, p.Kind)
		}
	}
	if t.News.HighWindow <= 0 || t.News.MediumWindow <= 0 || t.News.HighImpact <= 0 || t.News.MediumImpact <= 0 {
		return faults.Wrapf(faults.ErrInvalidConfig, "news rule: windows and impacts must be positive")
	}
	return nil
}

// rule looks up the detection entry for a metric.
func (t Table) rule(metric string) (Rule, bool) {
	for _, r := range t.Rules {
		if r.Metric == metric {
			return r, true
		}
	}
	return Rule{}, false
}
