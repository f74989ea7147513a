package sprite

import "errors"

// Sentinel errors for sprite package.
var (
	// ErrDuplicateImage is returned by AddImage when the id is already
	// stored. Use UpdateImage to replace an image.
	ErrDuplicateImage = errors.New("sprite: image already exists")

	// ErrUnknownImage is returned by UpdateImage when the id is not stored.
	ErrUnknownImage = errors.New("sprite: unknown image")

	// ErrInvalidImage is returned when an image fails validation.
	ErrInvalidImage = errors.New("sprite: invalid image")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "sprite: invalid config." + e.Field + ": " + e.Reason
}
