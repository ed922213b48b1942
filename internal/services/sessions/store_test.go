package sessions

import (
	"sync"
	"testing"

	"MarketPulse/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *StateStore {
	return NewStateStore(DefaultDefinitions())
}

func tick(price, volume, delta float64) models.Tick {
	return models.Tick{Symbol: "ES", Price: price, Volume: volume, Delta: delta, Timestamp: 1767610800}
}

func TestRecordTickSeedsLevels(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.RecordTick(models.SessionNYMorning, tick(5000, 100, 10)))
	require.NoError(t, s.RecordTick(models.SessionNYMorning, tick(5010, 250, -5)))
	require.NoError(t, s.RecordTick(models.SessionNYMorning, tick(4995, 400, 20)))

	lv, err := s.Levels(models.SessionNYMorning)
	require.NoError(t, err)
	require.NotNil(t, lv.Open)
	assert.Equal(t, 5000.0, *lv.Open)
	assert.Equal(t, 5010.0, *lv.High)
	assert.Equal(t, 4995.0, *lv.Low)
	assert.Equal(t, 4995.0, *lv.Close)

	// Delta and volume are cumulative feed counters: last write wins.
	assert.Equal(t, 20.0, lv.Delta)
	assert.Equal(t, 400.0, lv.Volume)
}

func TestLevelsEmptyBeforeFirstTick(t *testing.T) {
	s := newTestStore()

	lv, err := s.Levels(models.SessionAsia)
	require.NoError(t, err)
	assert.Nil(t, lv.Open)
	assert.Nil(t, lv.High)
	assert.Nil(t, lv.Low)
	assert.Nil(t, lv.Close)
}

func TestUnknownSessionKey(t *testing.T) {
	s := newTestStore()

	assert.Error(t, s.RecordTick("NOPE", tick(1, 1, 1)))
	_, err := s.Levels("NOPE")
	assert.Error(t, err)
}

func TestInitialBalanceFreezes(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.RecordTick(models.SessionLondon, tick(5000, 1, 0)))
	require.NoError(t, s.RecordTick(models.SessionLondon, tick(5020, 2, 0)))
	require.NoError(t, s.MarkInitialBalanceComplete(models.SessionLondon))

	// Ticks after completion extend the session range but not the IB range.
	require.NoError(t, s.RecordTick(models.SessionLondon, tick(5100, 3, 0)))

	ib, err := s.InitialBalance(models.SessionLondon)
	require.NoError(t, err)
	assert.True(t, ib.Complete)
	assert.Equal(t, 5020.0, *ib.High)
	assert.Equal(t, 5000.0, *ib.Low)

	lv, err := s.Levels(models.SessionLondon)
	require.NoError(t, err)
	assert.Equal(t, 5100.0, *lv.High)

	// Completion is idempotent.
	require.NoError(t, s.MarkInitialBalanceComplete(models.SessionLondon))
	ib2, err := s.InitialBalance(models.SessionLondon)
	require.NoError(t, err)
	assert.Equal(t, ib, ib2)
}

func TestResetSessionClearsEverything(t *testing.T) {
	s := newTestStore()

	require.NoError(t, s.RecordTick(models.SessionAsia, tick(100, 1, 1)))
	require.NoError(t, s.RecordSweep(models.SessionAsia, models.SweepEvent{Level: "asia_low", Price: 99}))
	require.NoError(t, s.MarkInitialBalanceComplete(models.SessionAsia))
	require.NoError(t, s.ResetSession(models.SessionAsia))

	lv, err := s.Levels(models.SessionAsia)
	require.NoError(t, err)
	assert.Nil(t, lv.Open)
	assert.Empty(t, lv.Sweeps)

	ib, err := s.InitialBalance(models.SessionAsia)
	require.NoError(t, err)
	assert.False(t, ib.Complete)
	assert.Nil(t, ib.High)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.RecordTick(models.SessionAsia, tick(100, 1, 1)))

	lv, err := s.Levels(models.SessionAsia)
	require.NoError(t, err)
	*lv.High = 999

	again, err := s.Levels(models.SessionAsia)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *again.High)
}

func TestConcurrentTicks(t *testing.T) {
	s := newTestStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.RecordTick(models.SessionNYMorning, tick(5000+float64(i), float64(i), 0))
		}(i)
	}
	wg.Wait()

	lv, err := s.Levels(models.SessionNYMorning)
	require.NoError(t, err)
	assert.Equal(t, 5049.0, *lv.High)
	assert.Equal(t, 5000.0, *lv.Low)
}
