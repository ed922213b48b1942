package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	xhttp "MarketPulse/pkg/http"

	"golang.org/x/sync/errgroup"
)

// Config describes the REST market-data provider.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// Symbols maps engine metric names to provider symbols.
	Symbols map[string]string
	// YieldMetrics lists metrics quoted as yields; their absolute change is
	// also reported in basis points.
	YieldMetrics []string
	Sectors      []string
	Constituents []string
}

// Client implements the quote, sector and constituent providers over the
// provider's JSON REST API.
type Client struct {
	cfg    Config
	http   *xhttp.Client
	yields map[string]bool
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	yields := make(map[string]bool, len(cfg.YieldMetrics))
	for _, m := range cfg.YieldMetrics {
		yields[m] = true
	}
	return &Client{
		cfg:    cfg,
		http:   xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		yields: yields,
	}
}

// quoteResponse is the provider's quote schema: current price, absolute and
// percent change from previous close.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	PrevClose     float64 `json:"pc"`
}

// FetchQuote fetches one metric's quote and normalizes it into an
// observation.
func (c *Client) FetchQuote(ctx context.Context, metric string) (*models.Observation, error) {
	symbol, ok := c.cfg.Symbols[metric]
	if !ok {
		symbol = metric
	}

	var q quoteResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.BaseURL + "/quote",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"token":  {c.cfg.APIKey},
		},
	}, &q)
	if err != nil {
		return nil, fmt.Errorf("quote %s: %w", symbol, err)
	}
	if q.Current == 0 && q.PrevClose == 0 {
		return nil, fmt.Errorf("quote %s: empty payload", symbol)
	}

	obs := c.normalize(metric, symbol, q)
	return &obs, nil
}

// FetchMarketSnapshot fetches every configured driver metric concurrently.
func (c *Client) FetchMarketSnapshot(ctx context.Context) (map[string]models.Observation, error) {
	metrics := make([]string, 0, len(c.cfg.Symbols))
	for metric := range c.cfg.Symbols {
		metrics = append(metrics, metric)
	}
	return c.fetchSet(ctx, metrics)
}

// FetchSectorPerformance fetches the configured sector ETFs concurrently.
// A source-level error is returned only when every symbol fails.
func (c *Client) FetchSectorPerformance(ctx context.Context) (map[string]models.Observation, error) {
	return c.fetchSet(ctx, c.cfg.Sectors)
}

// FetchTopConstituents fetches the configured top index names concurrently.
func (c *Client) FetchTopConstituents(ctx context.Context) (map[string]models.Observation, error) {
	return c.fetchSet(ctx, c.cfg.Constituents)
}

func (c *Client) fetchSet(ctx context.Context, metrics []string) (map[string]models.Observation, error) {
	if len(metrics) == 0 {
		return map[string]models.Observation{}, nil
	}

	var (
		mu   sync.Mutex
		out  = make(map[string]models.Observation, len(metrics))
		errs = make([]error, 0, len(metrics))
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, metric := range metrics {
		metric := metric
		g.Go(func() error {
			obs, err := c.FetchQuote(ctx, metric)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil // per-symbol failures don't abort the set
			}
			out[metric] = *obs
			return nil
		})
	}
	_ = g.Wait()

	if len(out) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all %d symbols failed: %w", len(metrics), errs[0])
	}
	return out, nil
}

func (c *Client) normalize(metric, symbol string, q quoteResponse) models.Observation {
	obs := models.Observation{
		Name:           metric,
		Symbol:         symbol,
		Value:          q.Current,
		ChangeAbsolute: q.Change,
		ChangePercent:  q.ChangePercent,
	}
	if c.yields[metric] {
		bps := q.Change * 100
		obs.ChangeBasisPoints = &bps
	}
	return obs
}

var (
	_ drepo.QuoteProvider       = (*Client)(nil)
	_ drepo.SnapshotProvider    = (*Client)(nil)
	_ drepo.SectorProvider      = (*Client)(nil)
	_ drepo.ConstituentProvider = (*Client)(nil)
)
