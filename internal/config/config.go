package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aleister1102/resourcewatch/internal/common"
	"gopkg.in/yaml.v3"
)

const (
	// Log Defaults
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
	DefaultLogFile       = ""
	DefaultMaxLogSizeMB  = 100
	DefaultMaxLogBackups = 3

	// Storage Defaults
	DefaultStorageDriver          = "sqlite"
	DefaultStorageDSN             = "data/resourcewatch.db"
	DefaultArchiveDir             = "data/archives"
	DefaultArchiveRetentionDays   = 30
	DefaultArchiveCleanupInterval = 24 // hours

	// Scheduler Defaults
	DefaultSchedulerIntervalMinutes  = 60
	DefaultSchedulerMaxConcurrent    = 2
	DefaultSchedulerTimezone         = "Asia/Kolkata"
	DefaultSchedulerQuietHoursStart  = "09:00"
	DefaultSchedulerQuietHoursEnd    = "23:00"
	DefaultSchedulerMaxTrackedPerOwn = 30

	// Fetcher Defaults
	DefaultFetcherTimeoutSecs = 30
	DefaultFetcherUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// Acquisition Defaults
	DefaultMaxArtifactSize     = 2 * 1024 * 1024 * 1024
	DefaultDownloadDir         = "data/downloads"
	DefaultYtDlpPath           = "yt-dlp"
	DefaultPrimaryTimeoutSecs  = 600
	DefaultHeadTimeoutSecs     = 10
	DefaultDownloadTimeoutSecs = 1800

	// Rasterizer Defaults
	DefaultRasterSizeThreshold   = 3 * 1024 * 1024
	DefaultRasterPageThreshold   = 3
	DefaultRendererPath          = "pdftoppm"
	DefaultRenderInterJobDelayMs = 2000
	DefaultRenderTimeoutSecs     = 300

	// Differ Defaults
	DefaultMaxDiffLength = 4096
	DefaultContextLines  = 3

	// Notification Defaults
	DefaultCaptionMaxLength   = 1024
	DefaultRequestsPerSecond  = 2.0
	DefaultNotifierTimeoutSec = 120

	// Stats Defaults
	DefaultStatsBackend   = "sql"
	DefaultStatsRedisAddr = "localhost:6379"
	DefaultStatsKeyPrefix = "resourcewatch:stats"

	// Server Defaults
	DefaultServerListenAddr = ":8080"
)

// GlobalConfig is the root configuration document.
type GlobalConfig struct {
	AcquisitionConfig     AcquisitionConfig     `json:"acquisition_config,omitempty" yaml:"acquisition_config,omitempty"`
	BotConfig             BotConfig             `json:"bot_config,omitempty" yaml:"bot_config,omitempty"`
	DifferConfig          DifferConfig          `json:"differ_config,omitempty" yaml:"differ_config,omitempty"`
	FetcherConfig         FetcherConfig         `json:"fetcher_config,omitempty" yaml:"fetcher_config,omitempty"`
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	NotificationConfig    NotificationConfig    `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	RasterizerConfig      RasterizerConfig      `json:"rasterizer_config,omitempty" yaml:"rasterizer_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
	SchedulerConfig       SchedulerConfig       `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
	ServerConfig          ServerConfig          `json:"server_config,omitempty" yaml:"server_config,omitempty"`
	StatsConfig           StatsConfig           `json:"stats_config,omitempty" yaml:"stats_config,omitempty"`
	StorageConfig         StorageConfig         `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		AcquisitionConfig:     NewDefaultAcquisitionConfig(),
		BotConfig:             NewDefaultBotConfig(),
		DifferConfig:          NewDefaultDifferConfig(),
		FetcherConfig:         NewDefaultFetcherConfig(),
		LogConfig:             NewDefaultLogConfig(),
		NotificationConfig:    NewDefaultNotificationConfig(),
		RasterizerConfig:      NewDefaultRasterizerConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
		SchedulerConfig:       NewDefaultSchedulerConfig(),
		ServerConfig:          NewDefaultServerConfig(),
		StatsConfig:           NewDefaultStatsConfig(),
		StorageConfig:         NewDefaultStorageConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// YAML is used for .yaml/.yml files, JSON otherwise. With no file found the defaults are returned.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	if providedPath != "" && !common.FileExists(providedPath) {
		return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
	}

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	return cfg, nil
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}
