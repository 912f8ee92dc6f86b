package config

// StatsConfig selects the backend for per-owner check/download counters
type StatsConfig struct {
	Backend       string `json:"backend,omitempty" yaml:"backend,omitempty" validate:"oneof=sql redis"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" validate:"required_if=Backend redis"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty" validate:"min=0"`
	KeyPrefix     string `json:"key_prefix,omitempty" yaml:"key_prefix,omitempty"`
}

// NewDefaultStatsConfig creates default stats configuration
func NewDefaultStatsConfig() StatsConfig {
	return StatsConfig{
		Backend:   DefaultStatsBackend,
		RedisAddr: DefaultStatsRedisAddr,
		KeyPrefix: DefaultStatsKeyPrefix,
	}
}
