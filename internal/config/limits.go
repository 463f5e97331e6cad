package config

import "fmt"

// LimitsConfig bounds how much file and command text reaches the model.
// All sizes are in characters, window sizes in lines.
type LimitsConfig struct {
	ReadMaxChars       int `yaml:"read_max_chars"`
	ExcerptMaxChars    int `yaml:"excerpt_max_chars"`
	ExcerptHeadLines   int `yaml:"excerpt_head_lines"`
	ExcerptTailLines   int `yaml:"excerpt_tail_lines"`
	ContextLines       int `yaml:"context_lines"`
	SearchContextLines int `yaml:"search_context_lines"`
	SearchMaxMatches   int `yaml:"search_max_matches"`
	ResultMaxChars     int `yaml:"result_max_chars"`
}

// DefaultLimitsConfig returns the default limits.
func DefaultLimitsConfig() LimitsConfig {
	return LimitsConfig{
		ReadMaxChars:       2000,
		ExcerptMaxChars:    3000,
		ExcerptHeadLines:   20,
		ExcerptTailLines:   10,
		ContextLines:       10,
		SearchContextLines: 5,
		SearchMaxMatches:   5,
		ResultMaxChars:     8000,
	}
}

// Validate rejects non-positive sizes. Fields are checked in declaration
// order so the first bad one is always the one reported.
func (c *LimitsConfig) Validate() error {
	for _, f := range []struct {
		name   string
		v      int
		zeroOK bool
	}{
		{"read_max_chars", c.ReadMaxChars, false},
		{"excerpt_max_chars", c.ExcerptMaxChars, false},
		{"excerpt_head_lines", c.ExcerptHeadLines, false},
		{"excerpt_tail_lines", c.ExcerptTailLines, true},
		{"context_lines", c.ContextLines, true},
		{"search_context_lines", c.SearchContextLines, true},
		{"search_max_matches", c.SearchMaxMatches, false},
		{"result_max_chars", c.ResultMaxChars, false},
	} {
		switch {
		case f.zeroOK && f.v < 0:
			return fmt.Errorf("limits.%s must not be negative, got %d", f.name, f.v)
		case !f.zeroOK && f.v <= 0:
			return fmt.Errorf("limits.%s must be positive, got %d", f.name, f.v)
		}
	}
	return nil
}
