package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"MarketPulse/internal/domain/faults"
	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/internal/services/drivers"
	"MarketPulse/pkg/cache"
	applogger "MarketPulse/pkg/logger"
)

const (
	srcSnapshot     = "market_snapshot"
	srcSectors      = "sectors"
	srcConstituents = "constituents"
	srcNews         = "news"
)

// ScheduledReport is a recurring economic release used to build the
// reports-calendar view.
type ScheduledReport struct {
	Name       string
	Weekday    time.Weekday
	Minute     int // minutes since midnight in the engine timezone
	Importance string
}

// ViewAggregatorOption configures the ViewAggregator.
type ViewAggregatorOption func(*ViewAggregator)

// WithSharedCache adds a second cache tier (Redis) shared across replicas.
func WithSharedCache(svc cache.Service) ViewAggregatorOption {
	return func(a *ViewAggregator) { a.shared = svc }
}

// WithSourceTimeout bounds each upstream fetch during a fan-out.
func WithSourceTimeout(d time.Duration) ViewAggregatorOption {
	return func(a *ViewAggregator) {
		if d > 0 {
			a.sourceTimeout = d
		}
	}
}

// WithViewTTL overrides the freshness window for one view kind.
func WithViewTTL(kind models.ViewKind, ttl time.Duration) ViewAggregatorOption {
	return func(a *ViewAggregator) {
		if ttl > 0 {
			a.ttl[kind] = ttl
		}
	}
}

// WithCalendar sets the recurring reports used by the reports-calendar view.
func WithCalendar(reports []ScheduledReport) ViewAggregatorOption {
	return func(a *ViewAggregator) { a.reports = reports }
}

// ViewAggregator assembles aggregated views by fanning out to the external
// providers, scoring drivers, and caching the result per view kind. A view
// survives partial source failure; only a cycle where every source fails is
// an error, and then the last good payload is served stale when one exists.
type ViewAggregator struct {
	ingest       *SessionIngest
	detector     *drivers.Detector
	snapshot     drepo.SnapshotProvider
	sectors      drepo.SectorProvider
	constituents drepo.ConstituentProvider
	news         drepo.NewsProvider
	metrics      drepo.Metrics
	log          *applogger.Logger

	flight *cache.FlightCache[*models.AggregatedView]
	shared cache.Service

	sourceTimeout time.Duration
	ttl           map[models.ViewKind]time.Duration
	reports       []ScheduledReport
}

func NewViewAggregator(
	ingest *SessionIngest,
	detector *drivers.Detector,
	snapshot drepo.SnapshotProvider,
	sectors drepo.SectorProvider,
	constituents drepo.ConstituentProvider,
	news drepo.NewsProvider,
	metrics drepo.Metrics,
	log *applogger.Logger,
	opts ...ViewAggregatorOption,
) *ViewAggregator {
	a := &ViewAggregator{
		ingest:        ingest,
		detector:      detector,
		snapshot:      snapshot,
		sectors:       sectors,
		constituents:  constituents,
		news:          news,
		metrics:       metrics,
		log:           log,
		flight:        cache.NewFlightCache[*models.AggregatedView](),
		sourceTimeout: 5 * time.Second,
		ttl: map[models.ViewKind]time.Duration{
			models.ViewCommandCenter:   30 * time.Second,
			models.ViewMarketBrief:     time.Minute,
			models.ViewDashboard:       5 * time.Minute,
			models.ViewReportsCalendar: time.Hour,
			models.ViewWeatherReport:   30 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns the view for kind, serving from cache when fresh. force
// bypasses freshness but still rides an in-flight rebuild. When every source
// of a rebuild fails, the last good payload is returned marked stale.
func (a *ViewAggregator) Aggregate(ctx context.Context, kind models.ViewKind, force bool) (*models.AggregatedView, error) {
	ttl, ok := a.ttl[kind]
	if !ok {
		return nil, faults.Wrapf(faults.ErrUnknownView, "view kind %q", kind)
	}

	view, hit, err := a.flight.Do(ctx, string(kind), ttl, force, func(ctx context.Context) (*models.AggregatedView, error) {
		if !force && a.shared != nil {
			var cached models.AggregatedView
			if gErr := a.shared.Get(ctx, sharedViewKey(kind), &cached); gErr == nil {
				a.metrics.RecordCacheEvent(string(kind), "shared_hit")
				return &cached, nil
			}
		}
		built, bErr := a.build(ctx, kind)
		if bErr != nil {
			return nil, bErr
		}
		if a.shared != nil {
			if sErr := a.shared.Set(ctx, sharedViewKey(kind), built, ttl); sErr != nil {
				a.metrics.RecordError("shared_cache_set")
			}
		}
		return built, nil
	})
	if err != nil {
		if stale, at, ok := a.flight.Stale(string(kind)); ok && faults.Is(err, faults.ErrAllSourcesFailed) {
			a.metrics.RecordCacheEvent(string(kind), "stale")
			a.log.Warn("serving stale view, all sources failed",
				applogger.String("kind", string(kind)),
				applogger.Duration("age", time.Since(at)),
			)
			cp := *stale
			cp.Stale = true
			return &cp, nil
		}
		return nil, err
	}
	if hit {
		a.metrics.RecordCacheEvent(string(kind), "hit")
	} else {
		a.metrics.RecordCacheEvent(string(kind), "miss")
	}
	return view, nil
}

// Invalidate drops both cache tiers for kind so the next Aggregate rebuilds.
func (a *ViewAggregator) Invalidate(ctx context.Context, kind models.ViewKind) error {
	if _, ok := a.ttl[kind]; !ok {
		return faults.Wrapf(faults.ErrUnknownView, "view kind %q", kind)
	}
	a.flight.Invalidate(string(kind))
	if a.shared != nil {
		if err := a.shared.Delete(ctx, sharedViewKey(kind)); err != nil {
			a.metrics.RecordError("shared_cache_delete")
		}
	}
	a.metrics.RecordCacheEvent(string(kind), "invalidate")
	return nil
}

func sharedViewKey(kind models.ViewKind) string {
	return cache.Key("view", string(kind))
}

func sourcesFor(kind models.ViewKind) []string {
	switch kind {
	case models.ViewCommandCenter:
		return []string{srcSnapshot, srcNews}
	case models.ViewMarketBrief:
		return []string{srcSnapshot, srcNews}
	case models.ViewDashboard:
		return []string{srcSnapshot, srcSectors, srcConstituents}
	case models.ViewWeatherReport:
		return []string{srcSnapshot, srcSectors, srcNews}
	default: // reports-calendar is built from local config only
		return nil
	}
}

func (a *ViewAggregator) build(ctx context.Context, kind models.ViewKind) (*models.AggregatedView, error) {
	now := time.Now().In(a.ingest.Location())
	view := &models.AggregatedView{
		Kind:        kind,
		GeneratedAt: now,
		Failures:    map[string]string{},
	}
	win := a.ingest.Resolve(now)

	sources := sourcesFor(kind)
	observations := map[string]models.Observation{}
	var headlines []models.NewsItem

	if len(sources) > 0 {
		type item struct {
			name string
			val  interface{}
			err  error
		}
		ch := make(chan item, len(sources))
		var wg sync.WaitGroup

		for _, src := range sources {
			wg.Add(1)
			go func(src string) {
				defer wg.Done()
				sctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
				defer cancel()
				switch src {
				case srcSnapshot:
					v, err := a.snapshot.FetchMarketSnapshot(sctx)
					ch <- item{src, v, err}
				case srcSectors:
					v, err := a.sectors.FetchSectorPerformance(sctx)
					ch <- item{src, v, err}
				case srcConstituents:
					v, err := a.constituents.FetchTopConstituents(sctx)
					ch <- item{src, v, err}
				case srcNews:
					v, err := a.news.FetchFilteredNews(sctx, win.Definition.Key)
					ch <- item{src, v, err}
				}
			}(src)
		}
		go func() { wg.Wait(); close(ch) }()

		for it := range ch {
			if it.err != nil {
				view.Failures[it.name] = it.err.Error()
				a.metrics.RecordSourceFailure(it.name)
				a.log.Warn("aggregation source failed",
					applogger.String("kind", string(kind)),
					applogger.String("source", it.name),
					applogger.Error(it.err),
				)
				continue
			}
			switch it.name {
			case srcSnapshot:
				m := it.val.(map[string]models.Observation)
				view.Quotes = m
				mergeObservations(observations, m)
			case srcSectors:
				m := it.val.(map[string]models.Observation)
				view.Sectors = m
				mergeObservations(observations, m)
			case srcConstituents:
				m := it.val.(map[string]models.Observation)
				view.Constituents = m
				mergeObservations(observations, m)
			case srcNews:
				headlines = it.val.([]models.NewsItem)
				view.News = headlines
			}
		}

		if len(view.Failures) == len(sources) {
			return nil, faults.Wrapf(faults.ErrAllSourcesFailed, "view %s: all %d sources failed", kind, len(sources))
		}
	}

	switch kind {
	case models.ViewCommandCenter:
		view.Session = &win
		if win.Definition.Key != models.SessionWeekend {
			if lv, err := a.ingest.Levels(win.Definition.Key); err == nil {
				view.Levels = lv
			}
			if ib, err := a.ingest.InitialBalance(win.Definition.Key); err == nil {
				view.InitialBalance = ib
			}
		}
	case models.ViewMarketBrief:
		view.Session = &win
	case models.ViewWeatherReport:
		view.Session = &win
		if win.Definition.Key != models.SessionWeekend {
			if lv, err := a.ingest.Levels(win.Definition.Key); err == nil {
				view.Levels = lv
			}
		}
	case models.ViewReportsCalendar:
		view.Calendar = a.upcomingReports(now)
	}

	if kind != models.ViewReportsCalendar {
		detected, err := a.score(observations, headlines, now)
		if err != nil {
			return nil, err
		}
		// Bias is computed over every detected driver; the TopN cut is
		// presentation only.
		bias := drivers.AggregateBias(detected)
		if n := a.detector.TopN(); n > 0 && len(detected) > n {
			detected = detected[:n]
		}
		view.Drivers = detected
		view.Bias = &bias
	}

	if len(view.Failures) == 0 {
		view.Failures = nil
	}
	return view, nil
}

// score runs driver detection with a panic barrier so one bad observation set
// cannot take the whole aggregation path down.
func (a *ViewAggregator) score(observations map[string]models.Observation, news []models.NewsItem, now time.Time) (out []models.Driver, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.metrics.RecordError("scoring_panic")
			out = nil
			err = faults.Wrapf(faults.ErrScoring, "driver scoring panicked: %v", r)
		}
	}()
	out = a.detector.Detect(observations, news, now)
	return out, nil
}

// upcomingReports computes the next occurrence of each recurring report,
// ordered soonest first.
func (a *ViewAggregator) upcomingReports(now time.Time) []models.ReportEvent {
	if len(a.reports) == 0 {
		return nil
	}
	out := make([]models.ReportEvent, 0, len(a.reports))
	for _, r := range a.reports {
		out = append(out, models.ReportEvent{
			Name:        r.Name,
			Importance:  r.Importance,
			ScheduledAt: nextWeekdayMinute(now, r.Weekday, r.Minute),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out
}

func nextWeekdayMinute(now time.Time, day time.Weekday, minute int) time.Time {
	days := (int(day) - int(now.Weekday()) + 7) % 7
	at := time.Date(now.Year(), now.Month(), now.Day(), minute/60, minute%60, 0, 0, now.Location()).AddDate(0, 0, days)
	if !at.After(now) {
		at = at.AddDate(0, 0, 7)
	}
	return at
}

func mergeObservations(dst, src map[string]models.Observation) {
	for k, v := range src {
		dst[k] = v
	}
}
