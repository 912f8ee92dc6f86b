package acquisition

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/aleister1102/resourcewatch/internal/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// SizeProber reports the advertised size of a remote resource.
type SizeProber interface {
	ContentLength(ctx context.Context, rawURL string) int64
}

// HeadProber issues HEAD requests and reads Content-Length. Unknown sizes are 0.
type HeadProber struct {
	client *resty.Client
	logger zerolog.Logger
}

// NewHeadProber creates a HEAD-based size prober.
func NewHeadProber(timeout time.Duration, userAgent string, logger zerolog.Logger) *HeadProber {
	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return &HeadProber{
		client: client,
		logger: logger.With().Str("component", "HeadProber").Logger(),
	}
}

// ContentLength returns the Content-Length header of a HEAD response, or 0.
func (p *HeadProber) ContentLength(ctx context.Context, rawURL string) int64 {
	resp, err := p.client.R().SetContext(ctx).Head(rawURL)
	if err != nil {
		p.logger.Debug().Err(err).Str("url", rawURL).Msg("HEAD probe failed")
		return 0
	}
	if resp.StatusCode() != http.StatusOK {
		return 0
	}
	size, err := strconv.ParseInt(resp.Header().Get("Content-Length"), 10, 64)
	if err != nil || size < 0 {
		return 0
	}
	return size
}

// UserFilter applies an owner's type, size and URL pattern constraints.
type UserFilter struct {
	prober SizeProber
	logger zerolog.Logger
}

// NewUserFilter creates a filter that probes sizes with prober.
func NewUserFilter(prober SizeProber, logger zerolog.Logger) *UserFilter {
	return &UserFilter{
		prober: prober,
		logger: logger.With().Str("component", "UserFilter").Logger(),
	}
}

// Apply returns the resources allowed by filter. An invalid pattern is logged and ignored.
func (uf *UserFilter) Apply(ctx context.Context, resources []models.Resource, filter models.Filter) []models.Resource {
	if filter.IsEmpty() {
		return resources
	}

	pattern, err := filter.CompileRegex()
	if err != nil {
		uf.logger.Warn().Err(err).Str("owner", filter.Owner).Str("regex", filter.Regex).Msg("Invalid filter pattern ignored")
		pattern = nil
	}

	kept := make([]models.Resource, 0, len(resources))
	for _, r := range resources {
		if !filter.AllowsType(r.Type) {
			continue
		}
		if pattern != nil && !pattern.MatchString(r.URL) {
			continue
		}
		if len(filter.SizeRanges) > 0 && !filter.AllowsSize(uf.prober.ContentLength(ctx, r.FetchURL())) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
