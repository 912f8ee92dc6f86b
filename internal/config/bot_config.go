package config

// BotConfig configures the Discord command surface
type BotConfig struct {
	Enabled         bool     `json:"enabled" yaml:"enabled"`
	Token           string   `json:"token,omitempty" yaml:"token,omitempty" validate:"required_if=Enabled true"`
	GuildID         string   `json:"guild_id,omitempty" yaml:"guild_id,omitempty"`
	AuthorizedUsers []string `json:"authorized_users,omitempty" yaml:"authorized_users,omitempty"`
	CommandsPerMin  int      `json:"commands_per_min,omitempty" yaml:"commands_per_min,omitempty" validate:"min=1"`
}

// NewDefaultBotConfig creates default bot configuration
func NewDefaultBotConfig() BotConfig {
	return BotConfig{
		Enabled:         false,
		AuthorizedUsers: []string{},
		CommandsPerMin:  10,
	}
}
