package sessions

import (
	"time"

	"MarketPulse/internal/domain/models"
)

// Clock maps wall-clock time to the active trading session. It is pure: no
// I/O, no state beyond the static table, safe at arbitrary call frequency.
type Clock struct {
	defs    []models.SessionDefinition
	loc     *time.Location
	weekend WeekendRule
}

// NewClock validates the session table and builds a clock for the reference
// timezone.
func NewClock(defs []models.SessionDefinition, loc *time.Location, weekend WeekendRule) (*Clock, error) {
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	owned := make([]models.SessionDefinition, len(defs))
	copy(owned, defs)
	return &Clock{defs: owned, loc: loc, weekend: weekend}, nil
}

// Definitions returns the session table (excluding the weekend closure).
func (c *Clock) Definitions() []models.SessionDefinition {
	out := make([]models.SessionDefinition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Location returns the reference timezone.
func (c *Clock) Location() *time.Location { return c.loc }

// Resolve returns the session window active at now.
func (c *Clock) Resolve(now time.Time) models.SessionWindow {
	local := now.In(c.loc)
	t := local.Hour()*60 + local.Minute()

	if c.closedAt(local.Weekday(), t) {
		return models.SessionWindow{Definition: WeekendDefinition, LocalTime: local}
	}

	for _, d := range c.defs {
		if !windowContains(d, t) {
			continue
		}
		w := models.SessionWindow{Definition: d, LocalTime: local}
		if d.IBDurationMinutes > 0 {
			into := minutesIntoSession(d, t)
			if into >= 0 && into < d.IBDurationMinutes {
				w.IsInitialBalance = true
				w.IBMinutesRemaining = d.IBDurationMinutes - into
			}
		}
		return w
	}

	// Unreachable with a validated table; report the closure window rather
	// than a bogus session.
	return models.SessionWindow{Definition: WeekendDefinition, LocalTime: local}
}

// Next returns the session definition that begins after the current one and
// the minutes until its start. During the weekend closure it jumps to the
// first session after Sunday open.
func (c *Clock) Next(now time.Time) (models.SessionDefinition, int) {
	local := now.In(c.loc)
	cur := c.Resolve(local)

	var target models.SessionDefinition
	if cur.Definition.Key == models.SessionWeekend {
		target = c.defAtStart(c.weekend.SundayOpenMinute % minutesPerDay)
	} else {
		target = c.defAtStart(cur.Definition.EndMinute % minutesPerDay)
	}

	start := c.nextOccurrence(local, target.StartMinute)
	return target, int(start.Sub(local).Minutes())
}

// nextOccurrence finds the next wall-clock instant strictly after from with
// the given minutes-since-midnight, skipping days inside the weekend closure.
// Same-day arithmetic: the start minute gains a day when it is not strictly
// after the current minute.
func (c *Clock) nextOccurrence(from time.Time, startMinute int) time.Time {
	day := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, c.loc)
	target := day.Add(time.Duration(startMinute) * time.Minute)
	if !target.After(from) {
		target = target.AddDate(0, 0, 1)
	}
	for c.closedAt(target.Weekday(), startMinute) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

func (c *Clock) defAtStart(minute int) models.SessionDefinition {
	for _, d := range c.defs {
		if d.StartMinute == minute {
			return d
		}
	}
	// Validated tables always have a session at every boundary; fall back to
	// the earliest-starting session.
	return c.defs[0]
}

func (c *Clock) closedAt(day time.Weekday, t int) bool {
	switch day {
	case time.Saturday:
		return true
	case time.Friday:
		return t >= c.weekend.FridayCloseMinute
	case time.Sunday:
		return t < c.weekend.SundayOpenMinute
	default:
		return false
	}
}

func windowContains(d models.SessionDefinition, t int) bool {
	if d.CrossesMidnight {
		return t >= d.StartMinute || t < d.EndMinute
	}
	return t >= d.StartMinute && t < d.EndMinute
}

func minutesIntoSession(d models.SessionDefinition, t int) int {
	if d.CrossesMidnight && t < d.EndMinute {
		return (minutesPerDay - d.StartMinute) + t
	}
	return t - d.StartMinute
}
