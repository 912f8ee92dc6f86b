package config

// FetcherConfig defines how target pages are retrieved
type FetcherConfig struct {
	TimeoutSecs        int                   `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
	UserAgent          string                `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	InsecureSkipVerify bool                  `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	ScanScripts        bool                  `json:"scan_scripts" yaml:"scan_scripts"`
	MaxBodySizeBytes   int                   `json:"max_body_size_bytes,omitempty" yaml:"max_body_size_bytes,omitempty" validate:"omitempty,min=1024"`
	Headless           HeadlessBrowserConfig `json:"headless,omitempty" yaml:"headless,omitempty"`
}

// HeadlessBrowserConfig configures the optional headless renderer for script-built pages
type HeadlessBrowserConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ChromePath      string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	PoolSize        int    `json:"pool_size,omitempty" yaml:"pool_size,omitempty" validate:"omitempty,min=1,max=8"`
	WaitLoadSecs    int    `json:"wait_load_secs,omitempty" yaml:"wait_load_secs,omitempty" validate:"omitempty,min=0"`
	DisableImages   bool   `json:"disable_images" yaml:"disable_images"`
	UserDataDir     string `json:"user_data_dir,omitempty" yaml:"user_data_dir,omitempty"`
	NavigateTimeout int    `json:"navigate_timeout_secs,omitempty" yaml:"navigate_timeout_secs,omitempty" validate:"omitempty,min=1"`
}

// NewDefaultFetcherConfig creates default fetcher configuration
func NewDefaultFetcherConfig() FetcherConfig {
	return FetcherConfig{
		TimeoutSecs:      DefaultFetcherTimeoutSecs,
		UserAgent:        DefaultFetcherUserAgent,
		ScanScripts:      false,
		MaxBodySizeBytes: 20 * 1024 * 1024,
		Headless: HeadlessBrowserConfig{
			Enabled:         false,
			PoolSize:        1,
			WaitLoadSecs:    2,
			DisableImages:   true,
			NavigateTimeout: DefaultFetcherTimeoutSecs,
		},
	}
}
