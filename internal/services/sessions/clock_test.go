package sessions

import (
	"testing"
	"time"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClock(t *testing.T) *Clock {
	t.Helper()
	c, err := NewClock(DefaultDefinitions(), time.UTC, DefaultWeekendRule())
	require.NoError(t, err)
	return c
}

// 2026-01-05 is a Monday.
func day(t *testing.T, dayOfMonth, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2026, time.January, dayOfMonth, hour, minute, 0, 0, time.UTC)
}

func TestResolveMidnightCrossing(t *testing.T) {
	c := newTestClock(t)

	// Asia runs 18:00 -> 03:00 and spans midnight.
	assert.Equal(t, models.SessionAsia, c.Resolve(day(t, 5, 23, 59)).Definition.Key)
	assert.Equal(t, models.SessionAsia, c.Resolve(day(t, 6, 0, 1)).Definition.Key)
	assert.Equal(t, models.SessionAsia, c.Resolve(day(t, 5, 18, 0)).Definition.Key)

	// End minute is exclusive: 03:00 belongs to London.
	assert.Equal(t, models.SessionLondon, c.Resolve(day(t, 6, 3, 0)).Definition.Key)
}

func TestResolveFullDayPartition(t *testing.T) {
	c := newTestClock(t)

	cases := map[models.SessionKey]time.Time{
		models.SessionAsia:        day(t, 5, 20, 0),
		models.SessionLondon:      day(t, 5, 5, 0),
		models.SessionPremarket:   day(t, 5, 8, 30),
		models.SessionNYMorning:   day(t, 5, 10, 0),
		models.SessionNYLunch:     day(t, 5, 12, 30),
		models.SessionNYAfternoon: day(t, 5, 14, 0),
		models.SessionPostMarket:  day(t, 5, 16, 30),
	}
	for want, at := range cases {
		assert.Equal(t, want, c.Resolve(at).Definition.Key, "at %s", at)
	}
}

func TestResolveInitialBalance(t *testing.T) {
	c := newTestClock(t)

	// NY Morning opens 09:30 with a 60 minute IB window.
	w := c.Resolve(day(t, 5, 9, 45))
	assert.True(t, w.IsInitialBalance)
	assert.Equal(t, 45, w.IBMinutesRemaining)

	// IB counts down monotonically.
	later := c.Resolve(day(t, 5, 10, 15))
	assert.True(t, later.IsInitialBalance)
	assert.Greater(t, w.IBMinutesRemaining, later.IBMinutesRemaining)

	// Past the window the flag drops.
	done := c.Resolve(day(t, 5, 10, 30))
	assert.False(t, done.IsInitialBalance)
	assert.Zero(t, done.IBMinutesRemaining)
}

func TestResolveInitialBalanceAcrossMidnight(t *testing.T) {
	c := newTestClock(t)

	// Asia's IB window is 18:00-19:00; well before midnight.
	w := c.Resolve(day(t, 5, 18, 30))
	assert.True(t, w.IsInitialBalance)
	assert.Equal(t, 30, w.IBMinutesRemaining)

	// After midnight the session is still Asia but IB is long gone.
	w = c.Resolve(day(t, 6, 0, 30))
	assert.Equal(t, models.SessionAsia, w.Definition.Key)
	assert.False(t, w.IsInitialBalance)
}

func TestResolveWeekendClosure(t *testing.T) {
	c := newTestClock(t)

	// Friday trades until 17:00, then the closure takes over.
	assert.Equal(t, models.SessionPostMarket, c.Resolve(day(t, 9, 16, 59)).Definition.Key)
	assert.Equal(t, models.SessionWeekend, c.Resolve(day(t, 9, 17, 0)).Definition.Key)
	assert.Equal(t, models.SessionWeekend, c.Resolve(day(t, 10, 12, 0)).Definition.Key)
	assert.Equal(t, models.SessionWeekend, c.Resolve(day(t, 11, 17, 59)).Definition.Key)

	// Sunday 18:00 reopens straight into Asia.
	assert.Equal(t, models.SessionAsia, c.Resolve(day(t, 11, 18, 0)).Definition.Key)
}

func TestNextSession(t *testing.T) {
	c := newTestClock(t)

	def, minutes := c.Next(day(t, 5, 10, 0))
	assert.Equal(t, models.SessionNYLunch, def.Key)
	assert.Equal(t, 120, minutes)

	// During the closure the next session is Asia at Sunday open.
	def, minutes = c.Next(day(t, 9, 18, 0))
	assert.Equal(t, models.SessionAsia, def.Key)
	assert.Equal(t, 2*24*60, minutes)
}

func TestValidateDefinitionsRejectsGaps(t *testing.T) {
	defs := DefaultDefinitions()
	defs[1].EndMinute -= 30 // London now ends 07:30, leaving a hole

	err := ValidateDefinitions(defs)
	require.Error(t, err)
}

func TestValidateDefinitionsRejectsDuplicateKeys(t *testing.T) {
	defs := DefaultDefinitions()
	defs[2].Key = defs[1].Key

	require.Error(t, ValidateDefinitions(defs))
}

func TestValidateDefinitionsRejectsOversizedIB(t *testing.T) {
	defs := DefaultDefinitions()
	defs[2].IBDurationMinutes = 600 // premarket is only 90 minutes long

	require.Error(t, ValidateDefinitions(defs))
}
