package config

// DPITier maps an upper bound on average page density (KB per page, exclusive) to a render DPI.
// A zero MaxKBPerPage marks the unbounded last tier.
type DPITier struct {
	MaxKBPerPage float64 `json:"max_kb_per_page" yaml:"max_kb_per_page" validate:"min=0"`
	DPI          int     `json:"dpi" yaml:"dpi" validate:"min=36,max=600"`
}

// RasterizerConfig defines when and how documents are converted into page images
type RasterizerConfig struct {
	Enabled            bool      `json:"enabled" yaml:"enabled"`
	SizeThresholdBytes int64     `json:"size_threshold_bytes,omitempty" yaml:"size_threshold_bytes,omitempty" validate:"min=1"`
	PageThreshold      int       `json:"page_threshold,omitempty" yaml:"page_threshold,omitempty" validate:"min=1"`
	DPITiers           []DPITier `json:"dpi_tiers,omitempty" yaml:"dpi_tiers,omitempty" validate:"dpitiers,dive"`
	RendererPath       string    `json:"renderer_path,omitempty" yaml:"renderer_path,omitempty" validate:"required"`
	ImageFormat        string    `json:"image_format,omitempty" yaml:"image_format,omitempty" validate:"oneof=png jpeg"`
	InterJobDelayMs    int       `json:"inter_job_delay_ms,omitempty" yaml:"inter_job_delay_ms,omitempty" validate:"min=0"`
	TimeoutSecs        int       `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
	WorkDir            string    `json:"work_dir,omitempty" yaml:"work_dir,omitempty"`
}

// DefaultDPITiers returns the reference density-to-DPI step table.
func DefaultDPITiers() []DPITier {
	return []DPITier{
		{MaxKBPerPage: 80, DPI: 300},
		{MaxKBPerPage: 150, DPI: 250},
		{MaxKBPerPage: 300, DPI: 200},
		{MaxKBPerPage: 500, DPI: 180},
		{MaxKBPerPage: 700, DPI: 175},
		{MaxKBPerPage: 1024, DPI: 150},
		{MaxKBPerPage: 2048, DPI: 100},
		{MaxKBPerPage: 0, DPI: 75},
	}
}

// NewDefaultRasterizerConfig creates default rasterizer configuration
func NewDefaultRasterizerConfig() RasterizerConfig {
	return RasterizerConfig{
		Enabled:            true,
		SizeThresholdBytes: DefaultRasterSizeThreshold,
		PageThreshold:      DefaultRasterPageThreshold,
		DPITiers:           DefaultDPITiers(),
		RendererPath:       DefaultRendererPath,
		ImageFormat:        "png",
		InterJobDelayMs:    DefaultRenderInterJobDelayMs,
		TimeoutSecs:        DefaultRenderTimeoutSecs,
	}
}
