package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aleister1102/resourcewatch/internal/acquisition"
	"github.com/aleister1102/resourcewatch/internal/archive"
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/aleister1102/resourcewatch/internal/differ"
	"github.com/aleister1102/resourcewatch/internal/fetcher"
	"github.com/aleister1102/resourcewatch/internal/httpclient"
	"github.com/aleister1102/resourcewatch/internal/metrics"
	"github.com/aleister1102/resourcewatch/internal/notifier"
	"github.com/aleister1102/resourcewatch/internal/rasterizer"
	"github.com/aleister1102/resourcewatch/internal/registry"
	"github.com/aleister1102/resourcewatch/internal/rslimiter"
	"github.com/aleister1102/resourcewatch/internal/scheduler"
	"github.com/aleister1102/resourcewatch/internal/stats"
	"github.com/aleister1102/resourcewatch/internal/tracker"
	"github.com/rs/zerolog"
)

// app holds every long-lived component of the service.
type app struct {
	cfg       *config.GlobalConfig
	logger    zerolog.Logger
	store     *registry.SQLStore
	stats     stats.Recorder
	http      *httpclient.HTTPClient
	browser   *fetcher.HeadlessBrowserManager
	limiter   *rslimiter.ResourceLimiter
	metrics   *metrics.Collector
	scheduler *scheduler.Scheduler
	tracker   *tracker.Service
}

// newApp builds the full dependency graph. Nothing is started except the
// headless browser and the memory sampler; close releases them.
func newApp(ctx context.Context, cfg *config.GlobalConfig, logger zerolog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger, metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.close()
			a = nil
		}
	}()

	a.store, err = registry.Open(ctx, cfg.StorageConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	a.stats, err = stats.NewRecorder(cfg.StatsConfig, a.store, logger)
	if err != nil {
		return nil, err
	}

	a.http, err = httpclient.NewHTTPClientBuilder(logger).
		WithTimeout(time.Duration(cfg.AcquisitionConfig.DownloadTimeoutSecs) * time.Second).
		WithUserAgent(cfg.FetcherConfig.UserAgent).
		WithInsecureSkipVerify(cfg.FetcherConfig.InsecureSkipVerify).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create http client: %w", err)
	}

	pages, err := a.pageFetcher()
	if err != nil {
		return nil, err
	}
	source := fetcher.NewService(pages, fetcher.NewResourceExtractor(cfg.FetcherConfig.ScanScripts, logger), logger)

	detector, err := differ.NewContentDifferBuilder(logger).WithConfig(cfg.DifferConfig).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create differ: %w", err)
	}

	acquirer, err := a.acquirer()
	if err != nil {
		return nil, err
	}

	a.limiter = rslimiter.NewResourceLimiter(cfg.ResourceLimiterConfig, logger)
	a.limiter.Start()

	raster, err := rasterizer.NewRasterizerBuilder(logger).
		WithConfig(cfg.RasterizerConfig).
		WithRenderer(rasterizer.NewPdftoppmRenderer(cfg.RasterizerConfig, logger)).
		WithPageCounter(rasterizer.PDFPageCounter{}).
		WithThrottle(rasterizer.NewThrottle(time.Duration(cfg.RasterizerConfig.InterJobDelayMs)*time.Millisecond, a.limiter)).
		WithObserver(a.metrics).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create rasterizer: %w", err)
	}

	headTimeout := time.Duration(cfg.AcquisitionConfig.HeadTimeoutSecs) * time.Second
	filter := acquisition.NewUserFilter(acquisition.NewHeadProber(headTimeout, cfg.FetcherConfig.UserAgent, logger), logger)

	a.scheduler, err = scheduler.NewScheduler(cfg.SchedulerConfig, a.fire, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	a.scheduler.WithObserver(a.metrics)

	deps := tracker.Dependencies{
		Store:      a.store,
		Pages:      source,
		Detector:   detector,
		Filter:     filter,
		Acquirer:   acquirer,
		Rasterizer: raster,
		Notifier:   notifier.NewDiscordNotifier(cfg.NotificationConfig, nil, logger),
		Stats:      a.stats,
		Timers:     a.scheduler,
		Observer:   a.metrics,
	}
	if cfg.StorageConfig.EnableArchive {
		store, err := archive.NewStore(cfg.StorageConfig, logger)
		if err != nil {
			return nil, err
		}
		deps.Archive = store
	}

	a.tracker, err = tracker.NewService(*cfg, deps, logger)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (a *app) fire(ctx context.Context, targetID string) {
	a.tracker.Fire(ctx, targetID)
}

func (a *app) pageFetcher() (fetcher.PageFetcher, error) {
	fc := a.cfg.FetcherConfig
	if !fc.Headless.Enabled {
		return fetcher.NewCollyFetcher(fc, a.http.StdClient().Transport, a.logger), nil
	}

	a.browser = fetcher.NewHeadlessBrowserManager(fc.Headless, fc.UserAgent, a.logger)
	if err := a.browser.Start(); err != nil {
		return nil, fmt.Errorf("failed to start headless browser: %w", err)
	}
	return a.browser, nil
}

func (a *app) acquirer() (*acquisition.Acquirer, error) {
	ac := a.cfg.AcquisitionConfig
	builder := acquisition.NewAcquirerBuilder(ac.DownloadDir, a.logger).
		WithDownloader(a.http).
		WithMaxSize(ac.MaxArtifactSize)
	if ac.PrimaryExtractor.Enabled {
		builder = builder.WithPrimary(acquisition.NewYtDlpExtractor(ac.PrimaryExtractor, ac.MaxArtifactSize, a.logger))
	}

	acquirer, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create acquirer: %w", err)
	}
	return acquirer, nil
}

func (a *app) close() {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.browser != nil {
		a.browser.Stop()
	}
	if a.stats != nil {
		if err := a.stats.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close stats recorder")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close registry")
		}
	}
}
