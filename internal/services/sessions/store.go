package sessions

import (
	"sync"
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
)

// StateStore owns the mutable per-session price levels. Each session key has
// its own lock so the webhook/Kafka ingestion path and the read-side
// aggregation queries never observe a torn update. The store has no wall-clock
// awareness: resetting at session start and completing the IB window are the
// scheduler's job.
type StateStore struct {
	mu     sync.RWMutex
	states map[models.SessionKey]*sessionState
}

type sessionState struct {
	mu     sync.Mutex
	levels models.SessionLevels
	ib     models.InitialBalanceLevels
}

// NewStateStore creates empty state for every tracked session key.
func NewStateStore(defs []models.SessionDefinition) *StateStore {
	s := &StateStore{states: make(map[models.SessionKey]*sessionState, len(defs))}
	for _, d := range defs {
		s.states[d.Key] = &sessionState{}
	}
	return s
}

func (s *StateStore) state(key models.SessionKey) (*sessionState, error) {
	s.mu.RLock()
	st, ok := s.states[key]
	s.mu.RUnlock()
	if !ok {
		return nil, faults.Wrapf(faults.ErrUnknownSession, "%q", key)
	}
	return st, nil
}

// RecordTick folds a tick into the session's levels. The first tick seeds
// open/high/low; delta and volume are cumulative counters from the feed and
// overwrite the previous values. The IB range tracks ticks until the window
// is explicitly marked complete.
func (s *StateStore) RecordTick(key models.SessionKey, tick models.Tick) error {
	st, err := s.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	p := tick.Price
	if st.levels.Open == nil {
		st.levels.Open = ptr(p)
	}
	if st.levels.High == nil || p > *st.levels.High {
		st.levels.High = ptr(p)
	}
	if st.levels.Low == nil || p < *st.levels.Low {
		st.levels.Low = ptr(p)
	}
	st.levels.Close = ptr(p)
	st.levels.Delta = tick.Delta
	st.levels.Volume = tick.Volume

	if !st.ib.Complete {
		if st.ib.High == nil || p > *st.ib.High {
			st.ib.High = ptr(p)
		}
		if st.ib.Low == nil || p < *st.ib.Low {
			st.ib.Low = ptr(p)
		}
	}
	return nil
}

// RecordSweep appends a sweep event to the session's log. Unbounded within a
// trading day; cleared on reset.
func (s *StateStore) RecordSweep(key models.SessionKey, sweep models.SweepEvent) error {
	st, err := s.state(key)
	if err != nil {
		return err
	}
	if sweep.Time.IsZero() {
		sweep.Time = time.Now()
	}

	st.mu.Lock()
	st.levels.Sweeps = append(st.levels.Sweeps, sweep)
	st.mu.Unlock()
	return nil
}

// MarkInitialBalanceComplete freezes the IB range. Idempotent; the recorded
// high/low are left untouched.
func (s *StateStore) MarkInitialBalanceComplete(key models.SessionKey) error {
	st, err := s.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.ib.Complete = true
	st.mu.Unlock()
	return nil
}

// ResetSession clears all fields for the key back to the initial empty state.
func (s *StateStore) ResetSession(key models.SessionKey) error {
	st, err := s.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.levels = models.SessionLevels{}
	st.ib = models.InitialBalanceLevels{}
	st.mu.Unlock()
	return nil
}

// Levels returns a snapshot copy of the session's levels.
func (s *StateStore) Levels(key models.SessionKey) (models.SessionLevels, error) {
	st, err := s.state(key)
	if err != nil {
		return models.SessionLevels{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	out := models.SessionLevels{
		High:   copyPtr(st.levels.High),
		Low:    copyPtr(st.levels.Low),
		Open:   copyPtr(st.levels.Open),
		Close:  copyPtr(st.levels.Close),
		Delta:  st.levels.Delta,
		Volume: st.levels.Volume,
	}
	if len(st.levels.Sweeps) > 0 {
		out.Sweeps = make([]models.SweepEvent, len(st.levels.Sweeps))
		copy(out.Sweeps, st.levels.Sweeps)
	}
	return out, nil
}

// InitialBalance returns a snapshot copy of the session's IB levels.
func (s *StateStore) InitialBalance(key models.SessionKey) (models.InitialBalanceLevels, error) {
	st, err := s.state(key)
	if err != nil {
		return models.InitialBalanceLevels{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return models.InitialBalanceLevels{
		High:     copyPtr(st.ib.High),
		Low:      copyPtr(st.ib.Low),
		Complete: st.ib.Complete,
	}, nil
}

func ptr(v float64) *float64 { return &v }

func copyPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
