package config

import "quantumbreach/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	File       string          `yaml:"file"`       // empty = default log file
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no logging (production)
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// Options converts the section for logging.Initialize. Debug output always
// goes to a file; stderr belongs to the console.
func (c *LoggingConfig) Options() logging.Options {
	file := c.File
	if file == "" {
		file = DefaultConfig().Logging.File
	}
	return logging.Options{
		DebugMode:  c.DebugMode,
		Level:      c.Level,
		Format:     c.Format,
		File:       file,
		Categories: c.Categories,
	}
}
