package fetcher

import (
	"context"
	"net/http"
	"time"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/rs/zerolog"
)

// CollyFetcher fetches pages through a fresh colly collector per request.
type CollyFetcher struct {
	cfg       config.FetcherConfig
	transport http.RoundTripper
	logger    zerolog.Logger
}

// NewCollyFetcher creates a colly-backed fetcher. transport may be nil.
func NewCollyFetcher(cfg config.FetcherConfig, transport http.RoundTripper, logger zerolog.Logger) *CollyFetcher {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &CollyFetcher{
		cfg:       cfg,
		transport: transport,
		logger:    logger.With().Str("component", "CollyFetcher").Logger(),
	}
}

// contextTransport binds every request to the caller's context.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func (cf *CollyFetcher) newCollector(ctx context.Context) *colly.Collector {
	options := []colly.CollectorOption{
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	}
	if cf.cfg.UserAgent != "" {
		options = append(options, colly.UserAgent(cf.cfg.UserAgent))
	}
	if cf.cfg.MaxBodySizeBytes > 0 {
		options = append(options, colly.MaxBodySize(cf.cfg.MaxBodySizeBytes))
	}

	collector := colly.NewCollector(options...)
	collector.SetRequestTimeout(time.Duration(cf.cfg.TimeoutSecs) * time.Second)
	collector.WithTransport(&contextTransport{ctx: ctx, base: cf.transport})
	return collector
}

// FetchPage issues a single GET. Non-2xx responses are errors.
func (cf *CollyFetcher) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	collector := cf.newCollector(ctx)

	var (
		page     *Page
		fetchErr error
	)

	collector.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:         r.Request.URL.String(),
			StatusCode:  r.StatusCode,
			ContentType: r.Headers.Get("Content-Type"),
			Body:        r.Body,
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			fetchErr = common.NewHTTPErrorWithURL(r.StatusCode, http.StatusText(r.StatusCode), rawURL)
			return
		}
		fetchErr = common.NewNetworkError(rawURL, "request failed", err)
	})

	visitErr := collector.Visit(rawURL)
	if fetchErr != nil {
		cf.logger.Debug().Err(fetchErr).Str("url", rawURL).Msg("Fetch failed")
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, common.NewNetworkError(rawURL, "visit failed", visitErr)
	}
	if page == nil {
		return nil, common.NewNetworkError(rawURL, "no response received", nil)
	}
	return page, nil
}
