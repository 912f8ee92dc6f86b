package config

// StorageConfig defines where tracked targets and content archives live
type StorageConfig struct {
	Driver                      string `json:"driver,omitempty" yaml:"driver,omitempty" validate:"required,oneof=sqlite postgres"`
	DSN                         string `json:"dsn,omitempty" yaml:"dsn,omitempty" validate:"required"`
	ArchiveDir                  string `json:"archive_dir,omitempty" yaml:"archive_dir,omitempty" validate:"required"`
	ArchiveRetentionDays        int    `json:"archive_retention_days,omitempty" yaml:"archive_retention_days,omitempty" validate:"min=1"`
	ArchiveCleanupIntervalHours int    `json:"archive_cleanup_interval_hours,omitempty" yaml:"archive_cleanup_interval_hours,omitempty" validate:"min=1"`
	EnableArchive               bool   `json:"enable_archive" yaml:"enable_archive"`
}

// NewDefaultStorageConfig creates default storage configuration
func NewDefaultStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:                      DefaultStorageDriver,
		DSN:                         DefaultStorageDSN,
		ArchiveDir:                  DefaultArchiveDir,
		ArchiveRetentionDays:        DefaultArchiveRetentionDays,
		ArchiveCleanupIntervalHours: DefaultArchiveCleanupInterval,
		EnableArchive:               true,
	}
}
