package config

import "modelgen/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" validate:"required"`                 // debug, info, warn, error
	Format     string          `yaml:"format" validate:"oneof=console text json"` // console, json
	Categories map[string]bool `yaml:"categories,omitempty"`                      // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// LoggerConfig returns the logger settings, with verbose forcing debug
// level.
func (c *LoggingConfig) LoggerConfig(verbose bool) logging.Config {
	lc := logging.Config{Level: c.Level, Format: c.Format, Categories: c.Categories}
	if verbose {
		lc.Level = "debug"
	}
	return lc
}
