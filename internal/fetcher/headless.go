package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// HeadlessBrowserManager manages a pool of browser instances for script-built pages
type HeadlessBrowserManager struct {
	config      config.HeadlessBrowserConfig
	userAgent   string
	logger      zerolog.Logger
	browserPool chan *rod.Browser
	launcher    *launcher.Launcher
	mutex       sync.Mutex
	isRunning   bool
}

// NewHeadlessBrowserManager creates a new headless browser manager
func NewHeadlessBrowserManager(cfg config.HeadlessBrowserConfig, userAgent string, logger zerolog.Logger) *HeadlessBrowserManager {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 1
	}
	cfg.PoolSize = poolSize
	return &HeadlessBrowserManager{
		config:      cfg,
		userAgent:   userAgent,
		logger:      logger.With().Str("component", "HeadlessBrowserManager").Logger(),
		browserPool: make(chan *rod.Browser, poolSize),
	}
}

// Start launches the browser and fills the pool
func (hbm *HeadlessBrowserManager) Start() error {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()

	if hbm.isRunning {
		return nil
	}
	if !hbm.config.Enabled {
		hbm.logger.Info().Msg("Headless browser is disabled in config")
		return nil
	}

	l := launcher.New().Headless(true)
	if hbm.config.ChromePath != "" {
		l = l.Bin(hbm.config.ChromePath)
	}
	if hbm.config.UserDataDir != "" {
		l = l.UserDataDir(hbm.config.UserDataDir)
	}
	l = l.
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("disable-default-apps").
		Set("disable-sync")
	if hbm.config.DisableImages {
		l = l.Set("blink-settings", "imagesEnabled=false")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	hbm.launcher = l

	for i := 0; i < hbm.config.PoolSize; i++ {
		browser := rod.New().ControlURL(controlURL)
		if err := browser.Connect(); err != nil {
			hbm.logger.Error().Err(err).Int("browser_index", i).Msg("Failed to connect browser")
			continue
		}
		hbm.browserPool <- browser
	}

	hbm.isRunning = true
	hbm.logger.Info().Int("pool_size", hbm.config.PoolSize).Msg("Headless browser manager started")
	return nil
}

// Stop closes all browser instances and the launcher
func (hbm *HeadlessBrowserManager) Stop() {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()

	if !hbm.isRunning {
		return
	}

	close(hbm.browserPool)
	for browser := range hbm.browserPool {
		if browser != nil {
			_ = browser.Close()
		}
	}
	if hbm.launcher != nil {
		hbm.launcher.Cleanup()
	}

	hbm.isRunning = false
	hbm.logger.Info().Msg("Headless browser manager stopped")
}

func (hbm *HeadlessBrowserManager) running() bool {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()
	return hbm.isRunning
}

func (hbm *HeadlessBrowserManager) acquire(ctx context.Context) (*rod.Browser, error) {
	if !hbm.config.Enabled || !hbm.running() {
		return nil, fmt.Errorf("headless browser manager not running or disabled")
	}
	select {
	case browser, ok := <-hbm.browserPool:
		if !ok {
			return nil, fmt.Errorf("headless browser manager stopped")
		}
		return browser, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (hbm *HeadlessBrowserManager) release(browser *rod.Browser) {
	hbm.mutex.Lock()
	defer hbm.mutex.Unlock()

	if !hbm.isRunning || browser == nil {
		return
	}
	select {
	case hbm.browserPool <- browser:
	default:
		_ = browser.Close()
	}
}

// FetchPage renders a page in a pooled browser and returns the resulting DOM.
func (hbm *HeadlessBrowserManager) FetchPage(ctx context.Context, rawURL string) (*Page, error) {
	browser, err := hbm.acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get browser: %w", err)
	}
	defer hbm.release(browser)

	timeout := time.Duration(hbm.config.NavigateTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := browser.Context(pageCtx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if hbm.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: hbm.userAgent}); err != nil {
			hbm.logger.Warn().Err(err).Msg("Failed to set user agent")
		}
	}

	if err := page.Navigate(rawURL); err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", rawURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page load timeout for %s: %w", rawURL, err)
	}
	if hbm.config.WaitLoadSecs > 0 {
		select {
		case <-time.After(time.Duration(hbm.config.WaitLoadSecs) * time.Second):
		case <-pageCtx.Done():
			return nil, pageCtx.Err()
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML for %s: %w", rawURL, err)
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info.URL != "" {
		finalURL = info.URL
	}

	return &Page{URL: finalURL, StatusCode: 200, ContentType: "text/html", Body: []byte(html)}, nil
}
