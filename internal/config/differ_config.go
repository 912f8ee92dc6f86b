package config

// DifferConfig defines how page changes are summarized
type DifferConfig struct {
	MaxDiffLength int `json:"max_diff_length,omitempty" yaml:"max_diff_length,omitempty" validate:"min=64"`
	ContextLines  int `json:"context_lines,omitempty" yaml:"context_lines,omitempty" validate:"min=0,max=20"`
}

// NewDefaultDifferConfig creates default differ configuration
func NewDefaultDifferConfig() DifferConfig {
	return DifferConfig{
		MaxDiffLength: DefaultMaxDiffLength,
		ContextLines:  DefaultContextLines,
	}
}
