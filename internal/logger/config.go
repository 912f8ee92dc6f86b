package logger

import (
	"github.com/aleister1102/resourcewatch/internal/config"
	"github.com/rs/zerolog"
)

// LogFormat selects how entries are encoded.
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatConsole
	FormatText
)

// LoggerConfig is the resolved logger setup. File output is enabled when
// FilePath is set; Console controls the stderr writer.
type LoggerConfig struct {
	Level      zerolog.Level
	Format     LogFormat
	Console    bool
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
}

func (c LoggerConfig) fileEnabled() bool {
	return c.FilePath != ""
}

// DefaultLoggerConfig logs at info level to stderr only.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:      zerolog.InfoLevel,
		Format:     FormatConsole,
		Console:    true,
		MaxSizeMB:  config.DefaultMaxLogSizeMB,
		MaxBackups: config.DefaultMaxLogBackups,
	}
}
