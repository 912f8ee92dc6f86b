package config

// ServerConfig configures the health and metrics HTTP listener
type ServerConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty" validate:"required_if=Enabled true"`
}

// NewDefaultServerConfig creates default server configuration
func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		Enabled:    true,
		ListenAddr: DefaultServerListenAddr,
	}
}
