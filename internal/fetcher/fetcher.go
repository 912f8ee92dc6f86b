// Package fetcher retrieves tracked pages and extracts downloadable resources from them.
package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/aleister1102/resourcewatch/internal/common"
	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/rs/zerolog"
)

// Page is a retrieved document.
type Page struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
}

// PageFetcher retrieves a single page with one bounded request and no retries.
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*Page, error)
}

// Result is the outcome of fetching and parsing a target page.
type Result struct {
	URL       string
	Content   string
	Resources []models.Resource
	Documents []models.Document
}

// Service combines a PageFetcher with resource and document extraction.
type Service struct {
	pages     PageFetcher
	extractor *ResourceExtractor
	logger    zerolog.Logger
}

// NewService creates a fetch service.
func NewService(pages PageFetcher, extractor *ResourceExtractor, logger zerolog.Logger) *Service {
	return &Service{
		pages:     pages,
		extractor: extractor,
		logger:    logger.With().Str("component", "FetcherService").Logger(),
	}
}

// Fetch retrieves rawURL and extracts its resources. Any failure yields an empty
// result and a FetchError; the page is treated as unreachable for this cycle.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	empty := &Result{URL: rawURL}

	page, err := s.pages.FetchPage(ctx, rawURL)
	if err != nil {
		return empty, common.NewFetchError(rawURL, err)
	}
	if strings.TrimSpace(string(page.Body)) == "" {
		return empty, common.NewFetchError(rawURL, common.ErrUnreachable)
	}

	base, err := url.Parse(page.URL)
	if err != nil || page.URL == "" {
		base, err = url.Parse(rawURL)
		if err != nil {
			return empty, common.NewFetchError(rawURL, err)
		}
	}

	extraction, err := s.extractor.Extract(page.Body, base)
	if err != nil {
		return empty, common.NewFetchError(rawURL, err)
	}
	for _, linkErr := range extraction.Dropped {
		s.logger.Debug().Err(linkErr).Str("url", rawURL).Msg("Link dropped during extraction")
	}

	s.logger.Debug().
		Str("url", rawURL).
		Int("bytes", len(page.Body)).
		Int("resources", len(extraction.Resources)).
		Int("documents", len(extraction.Documents)).
		Msg("Page fetched")

	return &Result{
		URL:       rawURL,
		Content:   string(page.Body),
		Resources: extraction.Resources,
		Documents: extraction.Documents,
	}, nil
}
