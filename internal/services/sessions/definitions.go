package sessions

import (
	"fmt"
	"sort"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
)

const minutesPerDay = 24 * 60

// WeekendRule describes the market closure: closed from Friday close through
// Sunday open, in reference-timezone minutes since midnight.
type WeekendRule struct {
	FridayCloseMinute int
	SundayOpenMinute  int
}

// DefaultWeekendRule matches the CME futures schedule: Friday 17:00 ET close,
// Sunday 18:00 ET reopen.
func DefaultWeekendRule() WeekendRule {
	return WeekendRule{FridayCloseMinute: 17 * 60, SundayOpenMinute: 18 * 60}
}

// WeekendDefinition is the synthetic closure window returned while the market
// is closed. It never reports an active initial balance.
var WeekendDefinition = models.SessionDefinition{
	Key:  models.SessionWeekend,
	Name: "Weekend Close",
}

// DefaultDefinitions is the built-in session table. The windows partition the
// full 24h reference day: 18:00 -> 03:00 -> 08:00 -> 09:30 -> 12:00 -> 13:30
// -> 16:00 -> 18:00.
func DefaultDefinitions() []models.SessionDefinition {
	return []models.SessionDefinition{
		{
			Key:               models.SessionAsia,
			Name:              "Asia",
			StartMinute:       18 * 60,
			EndMinute:         3 * 60,
			CrossesMidnight:   true,
			IBDurationMinutes: 60,
			FocusInstruments:  []string{"NKD", "NQ"},
		},
		{
			Key:               models.SessionLondon,
			Name:              "London",
			StartMinute:       3 * 60,
			EndMinute:         8 * 60,
			IBDurationMinutes: 60,
			FocusInstruments:  []string{"FDAX", "ES"},
		},
		{
			Key:              models.SessionPremarket,
			Name:             "NY Premarket",
			StartMinute:      8 * 60,
			EndMinute:        9*60 + 30,
			FocusInstruments: []string{"ES", "NQ"},
		},
		{
			Key:               models.SessionNYMorning,
			Name:              "NY Morning",
			StartMinute:       9*60 + 30,
			EndMinute:         12 * 60,
			IBDurationMinutes: 60,
			FocusInstruments:  []string{"ES", "NQ", "RTY"},
		},
		{
			Key:              models.SessionNYLunch,
			Name:             "NY Lunch",
			StartMinute:      12 * 60,
			EndMinute:        13*60 + 30,
			FocusInstruments: []string{"ES"},
		},
		{
			Key:              models.SessionNYAfternoon,
			Name:             "NY Afternoon",
			StartMinute:      13*60 + 30,
			EndMinute:        16 * 60,
			FocusInstruments: []string{"ES", "NQ"},
		},
		{
			Key:              models.SessionPostMarket,
			Name:             "NY Post Market",
			StartMinute:      16 * 60,
			EndMinute:        18 * 60,
			FocusInstruments: []string{"ES"},
		},
	}
}

// ValidateDefinitions checks that the table partitions the reference day with
// no gaps and no overlaps. Exactly one session may cross midnight.
func ValidateDefinitions(defs []models.SessionDefinition) error {
	if len(defs) == 0 {
		return faults.Wrapf(faults.ErrInvalidConfig, "session table is empty")
	}

	seen := make(map[models.SessionKey]bool, len(defs))
	crossing := 0
	total := 0
	for _, d := range defs {
		if d.Key == "" || d.Key == models.SessionWeekend {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: reserved or empty key", d.Key)
		}
		if seen[d.Key] {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: duplicate key", d.Key)
		}
		seen[d.Key] = true

		if d.StartMinute < 0 || d.StartMinute >= minutesPerDay || d.EndMinute < 0 || d.EndMinute > minutesPerDay {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: window out of range", d.Key)
		}
		length := windowLength(d)
		if length <= 0 {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: empty window", d.Key)
		}
		if d.IBDurationMinutes < 0 || d.IBDurationMinutes > length {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: IB duration %d exceeds window length %d", d.Key, d.IBDurationMinutes, length)
		}
		if d.CrossesMidnight {
			crossing++
			if d.EndMinute >= d.StartMinute {
				return faults.Wrapf(faults.ErrInvalidConfig, "session %q: marked crossing but end >= start", d.Key)
			}
		} else if d.EndMinute <= d.StartMinute {
			return faults.Wrapf(faults.ErrInvalidConfig, "session %q: end <= start without crossing flag", d.Key)
		}
		total += length
	}
	if crossing > 1 {
		return faults.Wrapf(faults.ErrInvalidConfig, "more than one midnight-crossing session")
	}
	if total != minutesPerDay {
		return faults.Wrapf(faults.ErrInvalidConfig, "session windows cover %d minutes, want %d", total, minutesPerDay)
	}

	// With total length == 1440 and no duplicate coverage, each window's end
	// must be the next window's start in cyclic order.
	ordered := make([]models.SessionDefinition, len(defs))
	copy(ordered, defs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartMinute < ordered[j].StartMinute })
	for i, d := range ordered {
		next := ordered[(i+1)%len(ordered)]
		if d.EndMinute%minutesPerDay != next.StartMinute%minutesPerDay {
			return faults.Wrapf(faults.ErrInvalidConfig,
				"gap or overlap between %q (ends %s) and %q (starts %s)",
				d.Key, fmtMinute(d.EndMinute), next.Key, fmtMinute(next.StartMinute))
		}
	}
	return nil
}

func windowLength(d models.SessionDefinition) int {
	if d.CrossesMidnight {
		return (minutesPerDay - d.StartMinute) + d.EndMinute
	}
	return d.EndMinute - d.StartMinute
}

func fmtMinute(m int) string {
	m %= minutesPerDay
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
