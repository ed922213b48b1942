package usecase

import (
	"context"
	"testing"
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/services/sessions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIngest(t *testing.T) *SessionIngest {
	t.Helper()
	clock, err := sessions.NewClock(sessions.DefaultDefinitions(), time.UTC, sessions.DefaultWeekendRule())
	require.NoError(t, err)
	return NewSessionIngest(clock, sessions.NewStateStore(sessions.DefaultDefinitions()), noopMetrics{})
}

func TestApplyTickRoutesToActiveSession(t *testing.T) {
	ingest := newTestIngest(t)

	// Monday 10:00 falls inside NY_AM.
	at := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	err := ingest.ApplyTick(context.Background(), &models.Tick{
		Symbol:    "NQ",
		Price:     21500,
		Volume:    120,
		Timestamp: at.Unix(),
	})
	require.NoError(t, err)

	lv, err := ingest.Levels(models.SessionNYMorning)
	require.NoError(t, err)
	require.NotNil(t, lv.High)
	assert.Equal(t, 21500.0, *lv.High)
	assert.Equal(t, 21500.0, *lv.Low)
	assert.Equal(t, 120.0, lv.Volume)
}

func TestApplyTickWeekendDropped(t *testing.T) {
	ingest := newTestIngest(t)

	// Saturday noon is inside the weekend closure.
	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := ingest.ApplyTick(context.Background(), &models.Tick{
		Symbol:    "NQ",
		Price:     21500,
		Timestamp: at.Unix(),
	})
	require.NoError(t, err)

	// Nothing was recorded anywhere.
	for _, def := range sessions.DefaultDefinitions() {
		lv, err := ingest.Levels(def.Key)
		require.NoError(t, err)
		assert.Nil(t, lv.High, "session %s", def.Key)
	}
}

func TestApplySweepRecordsAgainstResolvedSession(t *testing.T) {
	ingest := newTestIngest(t)

	at := time.Date(2026, 1, 5, 10, 30, 0, 0, time.UTC)
	err := ingest.ApplySweep(context.Background(), &models.SweepEvent{
		Level: "PDH",
		Price: 21480,
		Time:  at,
	})
	require.NoError(t, err)

	lv, err := ingest.Levels(models.SessionNYMorning)
	require.NoError(t, err)
	require.Len(t, lv.Sweeps, 1)
	assert.Equal(t, "PDH", lv.Sweeps[0].Level)
	assert.Equal(t, at, lv.Sweeps[0].Time)
}

func TestApplySweepWeekendRejected(t *testing.T) {
	ingest := newTestIngest(t)

	at := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	err := ingest.ApplySweep(context.Background(), &models.SweepEvent{
		Level: "PDH",
		Price: 21480,
		Time:  at,
	})
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.ErrUnknownSession))
}
