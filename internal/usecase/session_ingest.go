package usecase

import (
	"context"
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/services/sessions"
)

// SessionIngest applies ticks and sweep events to the session state store,
// resolving the active session from the tick timestamp.
type SessionIngest struct {
	clock   *sessions.Clock
	store   *sessions.StateStore
	metrics drepo.Metrics
}

func NewSessionIngest(clock *sessions.Clock, store *sessions.StateStore, metrics drepo.Metrics) *SessionIngest {
	return &SessionIngest{clock: clock, store: store, metrics: metrics}
}

// ApplyTick folds one tick into the levels of the session active at the tick's
// timestamp. Ticks arriving during the weekend closure are dropped.
func (s *SessionIngest) ApplyTick(ctx context.Context, t *models.Tick) error {
	if t == nil {
		return faults.Wrapf(faults.ErrUnknownSession, "nil tick")
	}
	at := time.Unix(t.Timestamp, 0)
	win := s.clock.Resolve(at)
	if win.Definition.Key == models.SessionWeekend {
		s.metrics.RecordError("tick_weekend_drop")
		return nil
	}
	if err := s.store.RecordTick(win.Definition.Key, *t); err != nil {
		s.metrics.RecordError("tick_apply")
		return err
	}
	s.metrics.RecordLastPrice(t.Symbol, t.Price)
	return nil
}

// ApplySweep records a liquidity sweep against the session active at the
// event time (now when unset).
func (s *SessionIngest) ApplySweep(ctx context.Context, ev *models.SweepEvent) error {
	if ev == nil {
		return faults.Wrapf(faults.ErrUnknownSession, "nil sweep event")
	}
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	win := s.clock.Resolve(at)
	if win.Definition.Key == models.SessionWeekend {
		return faults.Wrapf(faults.ErrUnknownSession, "sweep during weekend closure")
	}
	cp := *ev
	cp.Time = at
	return s.store.RecordSweep(win.Definition.Key, cp)
}

// CompleteInitialBalance freezes the IB range for the given session.
func (s *SessionIngest) CompleteInitialBalance(key models.SessionKey) error {
	return s.store.MarkInitialBalanceComplete(key)
}

// Reset clears all accumulated state for the given session.
func (s *SessionIngest) Reset(key models.SessionKey) error {
	return s.store.ResetSession(key)
}

// Location returns the engine's reference timezone.
func (s *SessionIngest) Location() *time.Location {
	return s.clock.Location()
}

// Definitions returns the configured session table.
func (s *SessionIngest) Definitions() []models.SessionDefinition {
	return s.clock.Definitions()
}

// Resolve returns the session window active at the given time.
func (s *SessionIngest) Resolve(at time.Time) models.SessionWindow {
	return s.clock.Resolve(at)
}

// Next returns the upcoming session and minutes until its start.
func (s *SessionIngest) Next(at time.Time) (models.SessionDefinition, int) {
	return s.clock.Next(at)
}

// Levels returns a snapshot of the session's accumulated levels.
func (s *SessionIngest) Levels(key models.SessionKey) (*models.SessionLevels, error) {
	lv, err := s.store.Levels(key)
	if err != nil {
		return nil, err
	}
	return &lv, nil
}

// InitialBalance returns a snapshot of the session's IB range.
func (s *SessionIngest) InitialBalance(key models.SessionKey) (*models.InitialBalanceLevels, error) {
	ib, err := s.store.InitialBalance(key)
	if err != nil {
		return nil, err
	}
	return &ib, nil
}
