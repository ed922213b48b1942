package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/services/drivers"
	"MarketPulse/internal/services/sessions"
	applogger "MarketPulse/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshot struct {
	mu    sync.Mutex
	calls int
	obs   map[string]models.Observation
	err   error
	gate  chan struct{}
}

func (f *fakeSnapshot) FetchMarketSnapshot(ctx context.Context) (map[string]models.Observation, error) {
	f.mu.Lock()
	f.calls++
	obs, err, gate := f.obs, f.err, f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return obs, err
}

func (f *fakeSnapshot) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSnapshot) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSectors struct {
	obs map[string]models.Observation
	err error
}

func (f *fakeSectors) FetchSectorPerformance(ctx context.Context) (map[string]models.Observation, error) {
	return f.obs, f.err
}

type fakeConstituents struct {
	obs map[string]models.Observation
	err error
}

func (f *fakeConstituents) FetchTopConstituents(ctx context.Context) (map[string]models.Observation, error) {
	return f.obs, f.err
}

type fakeNews struct {
	mu    sync.Mutex
	items []models.NewsItem
	err   error
}

func (f *fakeNews) FetchFilteredNews(ctx context.Context, key models.SessionKey) ([]models.NewsItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items, f.err
}

func (f *fakeNews) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

type noopMetrics struct{}

func (noopMetrics) RecordTickIngested(backend, symbol string)      {}
func (noopMetrics) RecordError(kind string)                        {}
func (noopMetrics) RecordLastPrice(symbol string, price float64)   {}
func (noopMetrics) RecordLatency(op string, seconds float64)       {}
func (noopMetrics) RecordSourceFailure(source string)              {}
func (noopMetrics) RecordCacheEvent(kind, outcome string)          {}

type aggFixture struct {
	agg      *ViewAggregator
	ingest   *SessionIngest
	snapshot *fakeSnapshot
	news     *fakeNews
}

func newAggFixture(t *testing.T, opts ...ViewAggregatorOption) *aggFixture {
	t.Helper()

	clock, err := sessions.NewClock(sessions.DefaultDefinitions(), time.UTC, sessions.DefaultWeekendRule())
	require.NoError(t, err)
	store := sessions.NewStateStore(sessions.DefaultDefinitions())
	ingest := NewSessionIngest(clock, store, noopMetrics{})

	detector, err := drivers.NewDetector(drivers.DefaultTable())
	require.NoError(t, err)

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	snap := &fakeSnapshot{obs: map[string]models.Observation{
		"VIX": {Name: "VIX", Value: 18.5, ChangePercent: 8},
	}}
	news := &fakeNews{}

	agg := NewViewAggregator(
		ingest, detector,
		snap, &fakeSectors{}, &fakeConstituents{}, news,
		noopMetrics{}, l,
		opts...,
	)
	return &aggFixture{agg: agg, ingest: ingest, snapshot: snap, news: news}
}

func TestAggregatePartialFailureStillBuilds(t *testing.T) {
	fx := newAggFixture(t)
	fx.news.fail(errors.New("news api 502"))

	view, err := fx.agg.Aggregate(context.Background(), models.ViewCommandCenter, false)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, models.ViewCommandCenter, view.Kind)
	assert.False(t, view.Stale)
	assert.Contains(t, view.Failures, "news")
	assert.NotNil(t, view.Session)

	require.NotEmpty(t, view.Drivers)
	assert.Equal(t, "VIX", view.Drivers[0].Name)
	assert.Equal(t, models.Bearish, view.Drivers[0].Direction)
	assert.Equal(t, 16.0, view.Drivers[0].Impact)
	require.NotNil(t, view.Bias)
	assert.Equal(t, models.Bearish, view.Bias.Direction)
}

func TestAggregateAllSourcesFailed(t *testing.T) {
	fx := newAggFixture(t)
	fx.snapshot.fail(errors.New("quote api down"))
	fx.news.fail(errors.New("news api down"))

	view, err := fx.agg.Aggregate(context.Background(), models.ViewMarketBrief, false)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.ErrAllSourcesFailed))
	assert.Nil(t, view)
}

func TestAggregateStaleServeAfterTotalFailure(t *testing.T) {
	fx := newAggFixture(t, WithViewTTL(models.ViewMarketBrief, time.Nanosecond))

	first, err := fx.agg.Aggregate(context.Background(), models.ViewMarketBrief, false)
	require.NoError(t, err)
	assert.False(t, first.Stale)

	fx.snapshot.fail(errors.New("quote api down"))
	fx.news.fail(errors.New("news api down"))

	second, err := fx.agg.Aggregate(context.Background(), models.ViewMarketBrief, false)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.True(t, second.Stale)
	assert.Equal(t, first.GeneratedAt, second.GeneratedAt)
	// The cached entry itself is not mutated by the stale copy.
	assert.False(t, first.Stale)
}

func TestAggregateUnknownViewKind(t *testing.T) {
	fx := newAggFixture(t)

	_, err := fx.agg.Aggregate(context.Background(), models.ViewKind("heatmap"), false)
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.ErrUnknownView))

	err = fx.agg.Invalidate(context.Background(), models.ViewKind("heatmap"))
	require.Error(t, err)
	assert.True(t, faults.Is(err, faults.ErrUnknownView))
}

func TestAggregateCollapsesConcurrentCallers(t *testing.T) {
	fx := newAggFixture(t)
	gate := make(chan struct{})
	fx.snapshot.mu.Lock()
	fx.snapshot.gate = gate
	fx.snapshot.mu.Unlock()

	const callers = 10
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := fx.agg.Aggregate(context.Background(), models.ViewMarketBrief, false)
			assert.NoError(t, err)
			assert.NotNil(t, view)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, fx.snapshot.callCount())
}

func TestAggregateServesFromCache(t *testing.T) {
	fx := newAggFixture(t)

	_, err := fx.agg.Aggregate(context.Background(), models.ViewDashboard, false)
	require.NoError(t, err)
	_, err = fx.agg.Aggregate(context.Background(), models.ViewDashboard, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.snapshot.callCount())

	require.NoError(t, fx.agg.Invalidate(context.Background(), models.ViewDashboard))
	_, err = fx.agg.Aggregate(context.Background(), models.ViewDashboard, false)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.snapshot.callCount())
}

func TestAggregateForceBypassesCache(t *testing.T) {
	fx := newAggFixture(t)

	_, err := fx.agg.Aggregate(context.Background(), models.ViewCommandCenter, false)
	require.NoError(t, err)
	_, err = fx.agg.Aggregate(context.Background(), models.ViewCommandCenter, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.snapshot.callCount())
}

func TestAggregateBiasCountsDriversBeyondDisplayCut(t *testing.T) {
	table := drivers.Table{
		TopN: 3,
		News: drivers.NewsRule{
			HighWindow:   30 * time.Minute,
			MediumWindow: 15 * time.Minute,
			HighImpact:   5,
			MediumImpact: 3,
		},
		Rules: []drivers.Rule{
			{Metric: "B1", Label: "B1", Class: models.DriverCorrelation, Basis: drivers.BasisPercent, Threshold: 1, Weight: 1, Polarity: drivers.PolarityDirect},
			{Metric: "B2", Label: "B2", Class: models.DriverCorrelation, Basis: drivers.BasisPercent, Threshold: 1, Weight: 1, Polarity: drivers.PolarityDirect},
			{Metric: "B3", Label: "B3", Class: models.DriverCorrelation, Basis: drivers.BasisPercent, Threshold: 1, Weight: 1, Polarity: drivers.PolarityDirect},
			{Metric: "S1", Label: "S1", Class: models.DriverCorrelation, Basis: drivers.BasisPercent, Threshold: 1, Weight: 1, Polarity: drivers.PolarityDirect},
			{Metric: "S2", Label: "S2", Class: models.DriverCorrelation, Basis: drivers.BasisPercent, Threshold: 1, Weight: 1, Polarity: drivers.PolarityDirect},
		},
	}
	detector, err := drivers.NewDetector(table)
	require.NoError(t, err)

	clock, err := sessions.NewClock(sessions.DefaultDefinitions(), time.UTC, sessions.DefaultWeekendRule())
	require.NoError(t, err)
	ingest := NewSessionIngest(clock, sessions.NewStateStore(sessions.DefaultDefinitions()), noopMetrics{})

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stderr"})
	require.NoError(t, err)

	// Three bullish drivers of impact 10, two bearish of 9.9. The display cut
	// keeps only the bullish three; the bias must still see 30 vs 19.8.
	snap := &fakeSnapshot{obs: map[string]models.Observation{
		"B1": {Name: "B1", ChangePercent: 10},
		"B2": {Name: "B2", ChangePercent: 10},
		"B3": {Name: "B3", ChangePercent: 10},
		"S1": {Name: "S1", ChangePercent: -9.9},
		"S2": {Name: "S2", ChangePercent: -9.9},
	}}
	agg := NewViewAggregator(
		ingest, detector,
		snap, &fakeSectors{}, &fakeConstituents{}, &fakeNews{},
		noopMetrics{}, l,
	)

	view, err := agg.Aggregate(context.Background(), models.ViewMarketBrief, false)
	require.NoError(t, err)

	require.Len(t, view.Drivers, 3)
	for _, d := range view.Drivers {
		assert.Equal(t, models.Bullish, d.Direction)
	}
	require.NotNil(t, view.Bias)
	assert.Equal(t, models.Mixed, view.Bias.Direction)
	assert.InDelta(t, 30.0, view.Bias.BullishScore, 1e-9)
	assert.InDelta(t, 19.8, view.Bias.BearishScore, 1e-9)
}

func TestAggregateWeatherReportCarriesSessionLevels(t *testing.T) {
	fx := newAggFixture(t)

	now := time.Now()
	win := fx.ingest.Resolve(now)
	if win.Definition.Key == models.SessionWeekend {
		view, err := fx.agg.Aggregate(context.Background(), models.ViewWeatherReport, false)
		require.NoError(t, err)
		assert.Nil(t, view.Levels)
		return
	}

	require.NoError(t, fx.ingest.ApplyTick(context.Background(), &models.Tick{
		Symbol:    "NQ",
		Price:     21500,
		Timestamp: now.Unix(),
	}))

	view, err := fx.agg.Aggregate(context.Background(), models.ViewWeatherReport, false)
	require.NoError(t, err)
	require.NotNil(t, view.Session)
	require.NotNil(t, view.Levels)
	require.NotNil(t, view.Levels.High)
	assert.Equal(t, 21500.0, *view.Levels.High)
}

func TestAggregateReportsCalendar(t *testing.T) {
	fx := newAggFixture(t, WithCalendar([]ScheduledReport{
		{Name: "CPI", Weekday: time.Tuesday, Minute: 8*60 + 30, Importance: "high"},
		{Name: "NFP", Weekday: time.Friday, Minute: 8*60 + 30, Importance: "high"},
	}))

	view, err := fx.agg.Aggregate(context.Background(), models.ViewReportsCalendar, false)
	require.NoError(t, err)
	require.Len(t, view.Calendar, 2)

	now := time.Now()
	for _, ev := range view.Calendar {
		assert.True(t, ev.ScheduledAt.After(now.Add(-time.Minute)))
	}
	assert.True(t, view.Calendar[0].ScheduledAt.Before(view.Calendar[1].ScheduledAt) ||
		view.Calendar[0].ScheduledAt.Equal(view.Calendar[1].ScheduledAt))

	// Built from local config only.
	assert.Zero(t, fx.snapshot.callCount())
	assert.Nil(t, view.Drivers)
	assert.Nil(t, view.Bias)
}
