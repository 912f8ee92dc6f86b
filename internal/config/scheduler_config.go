package config

// SchedulerConfig defines configuration for the per-target job scheduler
type SchedulerConfig struct {
	DefaultIntervalMinutes int    `json:"default_interval_minutes,omitempty" yaml:"default_interval_minutes,omitempty" validate:"min=1"`
	MaxConcurrentPerTarget int    `json:"max_concurrent_per_target,omitempty" yaml:"max_concurrent_per_target,omitempty" validate:"min=1,max=16"`
	MaxTrackedPerOwner     int    `json:"max_tracked_per_owner,omitempty" yaml:"max_tracked_per_owner,omitempty" validate:"min=1"`
	QuietHoursEnd          string `json:"quiet_hours_end,omitempty" yaml:"quiet_hours_end,omitempty" validate:"required,clock"`
	QuietHoursStart        string `json:"quiet_hours_start,omitempty" yaml:"quiet_hours_start,omitempty" validate:"required,clock"`
	Timezone               string `json:"timezone,omitempty" yaml:"timezone,omitempty" validate:"required,timezone"`
}

// NewDefaultSchedulerConfig creates default scheduler configuration
func NewDefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		DefaultIntervalMinutes: DefaultSchedulerIntervalMinutes,
		MaxConcurrentPerTarget: DefaultSchedulerMaxConcurrent,
		MaxTrackedPerOwner:     DefaultSchedulerMaxTrackedPerOwn,
		QuietHoursEnd:          DefaultSchedulerQuietHoursEnd,
		QuietHoursStart:        DefaultSchedulerQuietHoursStart,
		Timezone:               DefaultSchedulerTimezone,
	}
}
