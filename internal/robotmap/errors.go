package robotmap

import "fmt"

// ConfigError reports an invalid value in the robot layout. Field is the YAML path
// of the offending value, e.g. "drive.left.countsPerRev".
type ConfigError struct {
	Field string
	msg   string
}

func newConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("robotmap: %s: %s", e.Field, e.msg)
}
