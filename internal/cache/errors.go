package cache

import (
	"errors"
	"fmt"
)

// ErrConfigNotFound is returned when a table name has no backing source.
var ErrConfigNotFound = errors.New("config table not found")

// ErrSectionNotFound is returned when a hook name has no sub-section in
// the hooks table. Callers should treat it as "no configuration, use
// defaults", not as a failure.
var ErrSectionNotFound = errors.New("hook section not found")

// ConfigParseError reports a malformed table source. It wraps the
// underlying parse or validation failure.
type ConfigParseError struct {
	Name string
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("failed to parse config table %q (%s): %v", e.Name, e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }
