package config

// AcquisitionConfig defines how resources are turned into local artifacts
type AcquisitionConfig struct {
	DownloadDir         string                 `json:"download_dir,omitempty" yaml:"download_dir,omitempty" validate:"required"`
	DownloadTimeoutSecs int                    `json:"download_timeout_secs,omitempty" yaml:"download_timeout_secs,omitempty" validate:"min=1"`
	HeadTimeoutSecs     int                    `json:"head_timeout_secs,omitempty" yaml:"head_timeout_secs,omitempty" validate:"min=1"`
	MaxArtifactSize     int64                  `json:"max_artifact_size,omitempty" yaml:"max_artifact_size,omitempty" validate:"min=1"`
	PrimaryExtractor    PrimaryExtractorConfig `json:"primary_extractor,omitempty" yaml:"primary_extractor,omitempty"`
}

// PrimaryExtractorConfig configures the site-aware streaming extractor tried before raw download
type PrimaryExtractorConfig struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	BinaryPath  string   `json:"binary_path,omitempty" yaml:"binary_path,omitempty" validate:"required_if=Enabled true"`
	ExtraArgs   []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`
	TimeoutSecs int      `json:"timeout_secs,omitempty" yaml:"timeout_secs,omitempty" validate:"min=1"`
}

// NewDefaultAcquisitionConfig creates default acquisition configuration
func NewDefaultAcquisitionConfig() AcquisitionConfig {
	return AcquisitionConfig{
		DownloadDir:         DefaultDownloadDir,
		DownloadTimeoutSecs: DefaultDownloadTimeoutSecs,
		HeadTimeoutSecs:     DefaultHeadTimeoutSecs,
		MaxArtifactSize:     DefaultMaxArtifactSize,
		PrimaryExtractor: PrimaryExtractorConfig{
			Enabled:     true,
			BinaryPath:  DefaultYtDlpPath,
			TimeoutSecs: DefaultPrimaryTimeoutSecs,
		},
	}
}
