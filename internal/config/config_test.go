package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "sqlite", cfg.StorageConfig.Driver)
	assert.Equal(t, 2, cfg.SchedulerConfig.MaxConcurrentPerTarget)
	assert.Equal(t, int64(2*1024*1024*1024), cfg.AcquisitionConfig.MaxArtifactSize)
	assert.Equal(t, int64(3*1024*1024), cfg.RasterizerConfig.SizeThresholdBytes)
	assert.Equal(t, 3, cfg.RasterizerConfig.PageThreshold)
	assert.Equal(t, 4096, cfg.DifferConfig.MaxDiffLength)
	assert.Len(t, cfg.RasterizerConfig.DPITiers, 8)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadGlobalConfig("/nonexistent/config.yaml")

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log_config:
  log_level: debug
  log_format: json
scheduler_config:
  max_concurrent_per_target: 3
  timezone: UTC
  quiet_hours_start: "08:00"
  quiet_hours_end: "20:30"
rasterizer_config:
  page_threshold: 5
  dpi_tiers:
    - max_kb_per_page: 100
      dpi: 200
    - max_kb_per_page: 0
      dpi: 100
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
	assert.Equal(t, 3, cfg.SchedulerConfig.MaxConcurrentPerTarget)
	assert.Equal(t, "UTC", cfg.SchedulerConfig.Timezone)
	assert.Equal(t, 5, cfg.RasterizerConfig.PageThreshold)
	assert.Len(t, cfg.RasterizerConfig.DPITiers, 2)
	// untouched sections keep defaults
	assert.Equal(t, "pdftoppm", cfg.RasterizerConfig.RendererPath)
	assert.Equal(t, 60, cfg.SchedulerConfig.DefaultIntervalMinutes)

	require.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"storage_config": {"driver": "postgres", "dsn": "postgres://localhost/rw", "archive_dir": "a", "archive_retention_days": 7, "archive_cleanup_interval_hours": 12}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadGlobalConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.StorageConfig.Driver)
	assert.Equal(t, 7, cfg.StorageConfig.ArchiveRetentionDays)
}

func TestLoadGlobalConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_config: [unterminated"), 0644))

	_, err := LoadGlobalConfig(path)
	assert.Error(t, err)
}

func TestValidateConfig_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *GlobalConfig)
	}{
		{name: "bad log level", mutate: func(cfg *GlobalConfig) { cfg.LogConfig.LogLevel = "loud" }},
		{name: "bad driver", mutate: func(cfg *GlobalConfig) { cfg.StorageConfig.Driver = "mongo" }},
		{name: "bad clock", mutate: func(cfg *GlobalConfig) { cfg.SchedulerConfig.QuietHoursStart = "25:00" }},
		{name: "bad timezone", mutate: func(cfg *GlobalConfig) { cfg.SchedulerConfig.Timezone = "Mars/Olympus" }},
		{name: "zero per-target concurrency", mutate: func(cfg *GlobalConfig) { cfg.SchedulerConfig.MaxConcurrentPerTarget = 0 }},
		{name: "bot without token", mutate: func(cfg *GlobalConfig) { cfg.BotConfig.Enabled = true }},
		{name: "redis stats without addr", mutate: func(cfg *GlobalConfig) {
			cfg.StatsConfig.Backend = "redis"
			cfg.StatsConfig.RedisAddr = ""
		}},
		{name: "dpi tiers not monotonic", mutate: func(cfg *GlobalConfig) {
			cfg.RasterizerConfig.DPITiers = []DPITier{{MaxKBPerPage: 100, DPI: 150}, {MaxKBPerPage: 0, DPI: 200}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration validation failed")
		})
	}
}

func TestValidateDPITiers(t *testing.T) {
	assert.NoError(t, ValidateDPITiers(DefaultDPITiers()))
	assert.Error(t, ValidateDPITiers(nil))
	assert.Error(t, ValidateDPITiers([]DPITier{{MaxKBPerPage: 80, DPI: 300}}), "last tier must be unbounded")
	assert.Error(t, ValidateDPITiers([]DPITier{{MaxKBPerPage: 150, DPI: 300}, {MaxKBPerPage: 80, DPI: 200}, {DPI: 100}}))
}

func TestParseClock(t *testing.T) {
	minutes, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, minutes)

	_, err = ParseClock("9")
	assert.Error(t, err)
}

func TestGetConfigPath_Env(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))
	t.Setenv(ConfigPathEnv, path)

	assert.Equal(t, path, GetConfigPath(""))
	assert.Equal(t, path, GetConfigPath("/does/not/exist.yaml"))
}
