package sprite

import (
	"fmt"

	"github.com/gogpu/sprite/atlas"
)

// DefaultSoftLimitBytes is the stored-image size above which
// CheckCacheSizeReduceMemoryUse asks for unused images to be removed.
const DefaultSoftLimitBytes = 100 * 8192

// Config holds Manager configuration.
type Config struct {
	// SoftLimitBytes is the total bitmap size tolerated before unused
	// on-demand images are offered for removal.
	// Default: 819200
	SoftLimitBytes int64

	// Atlas configures the packed buffer.
	Atlas atlas.Config
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		SoftLimitBytes: DefaultSoftLimitBytes,
		Atlas:          atlas.DefaultConfig(),
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.SoftLimitBytes < 0 {
		return &ConfigError{Field: "SoftLimitBytes", Reason: "must be non-negative"}
	}
	if err := c.Atlas.Validate(); err != nil {
		return fmt.Errorf("sprite: %w", err)
	}
	return nil
}
