package drivers

import (
	"fmt"
	"math"
	"sort"
	"time"

	"MarketPulse/internal/domain/models"
)

// Detector turns normalized observations into ranked drivers by reducing the
// threshold table. Deterministic: the same observation set always yields the
// same driver list in the same order.
type Detector struct {
	table Table
}

func NewDetector(table Table) (*Detector, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &Detector{table: table}, nil
}

// Table exposes the active threshold configuration.
func (d *Detector) Table() Table { return d.table }

// TopN is the presentation truncation callers apply to the full list.
func (d *Detector) TopN() int { return d.table.TopN }

// Detect scores every observation against its rule and appends divergence and
// news drivers. Sub-threshold observations are dropped silently, not emitted
// as neutral noise. The returned list is sorted by impact descending (name
// ascending on ties) and is never truncated here.
func (d *Detector) Detect(observations map[string]models.Observation, news []models.NewsItem, now time.Time) []models.Driver {
	out := make([]models.Driver, 0, len(observations))

	for metric, obs := range observations {
		rule, ok := d.table.rule(metric)
		if !ok {
			continue
		}
		change, ok := changeFor(rule.Basis, obs)
		if !ok || math.Abs(change) < rule.Threshold {
			continue
		}
		obs := obs
		out = append(out, models.Driver{
			Type:        rule.Class,
			Name:        rule.Label,
			Direction:   rule.direction(change),
			Impact:      math.Abs(change) * rule.Weight,
			Reason:      rule.reason(change),
			Observation: &obs,
		})
	}

	out = append(out, d.detectDivergences(observations)...)
	out = append(out, d.detectNews(news, now)...)

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Impact != out[j].Impact {
			return out[i].Impact > out[j].Impact
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (d *Detector) detectDivergences(observations map[string]models.Observation) []models.Driver {
	var out []models.Driver
	for _, p := range d.table.Pairs {
		leader, okL := observations[p.Leader]
		base, okB := observations[p.Base]
		if !okL || !okB {
			continue
		}
		spread := leader.ChangePercent - base.ChangePercent
		if math.Abs(spread) < p.Threshold {
			continue
		}

		direction := models.Neutral
		reason := fmt.Sprintf("%s leading %s by %.2f pts", p.Leader, p.Base, spread)
		if p.Kind == PairBreadth {
			if spread > 0 {
				direction = models.Bullish
				reason = fmt.Sprintf("%s outperforming %s by %.2f pts, breadth expanding", p.Leader, p.Base, spread)
			} else {
				direction = models.Bearish
				reason = fmt.Sprintf("%s lagging %s by %.2f pts, breadth narrowing", p.Leader, p.Base, -spread)
			}
		} else if spread < 0 {
			reason = fmt.Sprintf("%s lagging %s by %.2f pts", p.Leader, p.Base, -spread)
		}

		out = append(out, models.Driver{
			Type:      models.DriverDivergence,
			Name:      p.Name,
			Direction: direction,
			Impact:    math.Abs(spread) * p.Weight,
			Reason:    reason,
		})
	}
	return out
}

func (d *Detector) detectNews(news []models.NewsItem, now time.Time) []models.Driver {
	var out []models.Driver
	for _, item := range news {
		age := now.Sub(item.PublishedAt)
		if age < 0 {
			age = 0
		}

		var impact float64
		switch {
		case item.Impact == models.NewsImpactHigh && age <= d.table.News.HighWindow:
			impact = d.table.News.HighImpact
		case item.Impact == models.NewsImpactMedium && age <= d.table.News.MediumWindow:
			impact = d.table.News.MediumImpact
		default:
			continue
		}

		direction := item.Sentiment
		if direction != models.Bullish && direction != models.Bearish {
			direction = models.Neutral
		}
		out = append(out, models.Driver{
			Type:      models.DriverNews,
			Name:      item.Headline,
			Direction: direction,
			Impact:    impact,
			Reason:    fmt.Sprintf("%s-impact headline %dm ago", item.Impact, int(age.Minutes())),
		})
	}
	return out
}

func changeFor(basis ChangeBasis, obs models.Observation) (float64, bool) {
	switch basis {
	case BasisPercent:
		return obs.ChangePercent, true
	case BasisAbsolute:
		return obs.ChangeAbsolute, true
	case BasisBasisPoints:
		if obs.ChangeBasisPoints == nil {
			return 0, false
		}
		return *obs.ChangeBasisPoints, true
	default:
		return 0, false
	}
}

func (r Rule) direction(change float64) models.Direction {
	up := change > 0
	if r.Polarity == PolarityInverse {
		up = !up
	}
	if up {
		return models.Bullish
	}
	return models.Bearish
}

func (r Rule) reason(change float64) string {
	verb := "up"
	if change < 0 {
		verb = "down"
	}
	unit := "%"
	if r.Basis == BasisBasisPoints {
		unit = "bps"
	} else if r.Basis == BasisAbsolute {
		unit = ""
	}
	return fmt.Sprintf("%s %s %.2f%s (threshold %.2f)", r.Label, verb, math.Abs(change), unit, r.Threshold)
}
