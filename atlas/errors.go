package atlas

import "errors"

// Sentinel errors for atlas package.
var (
	// ErrAtlasFull is returned when a bitmap cannot be placed even after
	// growing the buffer to its maximum size.
	ErrAtlasFull = errors.New("atlas: atlas is full")

	// ErrInvalidDimensions is returned when width or height is non-positive.
	ErrInvalidDimensions = errors.New("atlas: invalid dimensions")

	// ErrDataTooSmall is returned when provided pixel data is smaller than
	// width*height*4 bytes.
	ErrDataTooSmall = errors.New("atlas: data buffer too small")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
