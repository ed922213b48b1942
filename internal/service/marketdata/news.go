package marketdata

import (
	"context"
	"fmt"
	"time"

	"MarketPulse/internal/domain/models"
	drepo "MarketPulse/internal/domain/repository"
	"MarketPulse/pkg/cache"
	xhttp "MarketPulse/pkg/http"
)

// NewsConfig describes the news provider endpoint. Headlines arrive already
// tagged with impact and sentiment by the upstream tagger.
type NewsConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// NewsClient implements the session-filtered news provider. Responses are
// memoized per session for a short window: several view kinds fan out to news
// in the same cycle and the upstream rate limit is tight.
type NewsClient struct {
	cfg   NewsConfig
	http  *xhttp.Client
	local *cache.MemoryCache
}

func NewNewsClient(cfg NewsConfig) *NewsClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &NewsClient{
		cfg:   cfg,
		http:  xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		local: cache.NewMemoryCache(cache.WithMemoryMaxSize(64)),
	}
}

type newsItemResponse struct {
	ID          string   `json:"id"`
	Headline    string   `json:"headline"`
	Source      string   `json:"source"`
	Impact      string   `json:"impact"`
	Sentiment   string   `json:"sentiment"`
	Categories  []string `json:"categories"`
	PublishedAt int64    `json:"published_at"` // unix seconds
}

// FetchFilteredNews fetches headlines filtered for the given session.
func (c *NewsClient) FetchFilteredNews(ctx context.Context, key models.SessionKey) ([]models.NewsItem, error) {
	cacheKey := cache.Key("news", string(key))
	var cached interface{}
	if err := c.local.Get(ctx, cacheKey, &cached); err == nil {
		if items, ok := cached.([]models.NewsItem); ok {
			return items, nil
		}
	}

	var raw []newsItemResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.cfg.BaseURL + "/news",
		QueryParams: map[string][]string{
			"session": {string(key)},
			"token":   {c.cfg.APIKey},
		},
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("news %s: %w", key, err)
	}

	out := make([]models.NewsItem, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.NewsItem{
			ID:          r.ID,
			Headline:    r.Headline,
			Source:      r.Source,
			Impact:      models.NewsImpact(r.Impact),
			Sentiment:   parseSentiment(r.Sentiment),
			Categories:  r.Categories,
			PublishedAt: time.Unix(r.PublishedAt, 0),
		})
	}
	_ = c.local.Set(ctx, cacheKey, out, c.cfg.CacheTTL)
	return out, nil
}

func parseSentiment(s string) models.Direction {
	switch s {
	case "bullish":
		return models.Bullish
	case "bearish":
		return models.Bearish
	default:
		return models.Neutral
	}
}

var _ drepo.NewsProvider = (*NewsClient)(nil)
