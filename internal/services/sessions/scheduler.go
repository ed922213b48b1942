package sessions

import (
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	applogger "MarketPulse/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler drives the caller-side lifecycle the state store deliberately
// does not own: resetting a session's levels at its true start and freezing
// the IB range when the IB window elapses. All cron entries run in the
// clock's reference timezone and no-op during the weekend closure.
type Scheduler struct {
	cron  *cron.Cron
	clock *Clock
	store *StateStore
	l     *applogger.Logger
}

// NewScheduler registers reset and IB-completion entries for every session in
// the clock's table.
func NewScheduler(clock *Clock, store *StateStore, l *applogger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:  cron.New(cron.WithLocation(clock.Location())),
		clock: clock,
		store: store,
		l:     l,
	}

	for _, d := range clock.Definitions() {
		d := d
		if _, err := s.cron.AddFunc(cronAtMinute(d.StartMinute), func() { s.resetSession(d.Key) }); err != nil {
			return nil, fmt.Errorf("schedule reset %s: %w", d.Key, err)
		}
		if d.IBDurationMinutes > 0 {
			ibEnd := (d.StartMinute + d.IBDurationMinutes) % minutesPerDay
			if _, err := s.cron.AddFunc(cronAtMinute(ibEnd), func() { s.completeIB(d.Key) }); err != nil {
				return nil, fmt.Errorf("schedule ib-complete %s: %w", d.Key, err)
			}
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("session scheduler started")
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.l.Info("session scheduler stopped")
}

func (s *Scheduler) resetSession(key models.SessionKey) {
	if s.closedNow() {
		return
	}
	if err := s.store.ResetSession(key); err != nil {
		s.l.Error("session reset failed", applogger.String("session", string(key)), applogger.Error(err))
		return
	}
	s.l.Info("session reset", applogger.String("session", string(key)))
}

func (s *Scheduler) completeIB(key models.SessionKey) {
	if s.closedNow() {
		return
	}
	if err := s.store.MarkInitialBalanceComplete(key); err != nil {
		s.l.Error("ib completion failed", applogger.String("session", string(key)), applogger.Error(err))
		return
	}
	s.l.Info("initial balance complete", applogger.String("session", string(key)))
}

func cronAtMinute(m int) string {
	m %= minutesPerDay
	return fmt.Sprintf("%d %d * * *", m%60, m/60)
}

func (s *Scheduler) closedNow() bool {
	now := time.Now().In(s.clock.Location())
	return s.clock.closedAt(now.Weekday(), now.Hour()*60+now.Minute())
}
